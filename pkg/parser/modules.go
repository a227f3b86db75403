package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"esrt/pkg/ast"
)

func (c *parseContext) importStatement(m *ast.Module, node *sitter.Node) error {
	specifier := c.stringValue(node.ChildByFieldName("source"))
	m.AddRequest(specifier)

	var clause *sitter.Node
	for i := uint(0); i < node.NamedChildCount(); i++ {
		if child := node.NamedChild(i); child.Kind() == "import_clause" {
			clause = child
		}
	}
	if clause == nil {
		return nil
	}
	for i := uint(0); i < clause.NamedChildCount(); i++ {
		child := clause.NamedChild(i)
		switch child.Kind() {
		case "identifier":
			m.ImportEntries = append(m.ImportEntries, ast.ImportEntry{
				ModuleRequest: specifier, ImportName: "default", LocalName: c.textOf(child),
			})
		case "namespace_import":
			m.ImportEntries = append(m.ImportEntries, ast.ImportEntry{
				ModuleRequest: specifier, ImportName: ast.StarName, LocalName: c.textOf(firstNamed(child, "identifier")),
			})
		case "named_imports":
			for j := uint(0); j < child.NamedChildCount(); j++ {
				spec := child.NamedChild(j)
				if spec.Kind() != "import_specifier" {
					continue
				}
				name := c.exportName(spec.ChildByFieldName("name"))
				local := name
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					local = c.textOf(alias)
				}
				m.ImportEntries = append(m.ImportEntries, ast.ImportEntry{
					ModuleRequest: specifier, ImportName: name, LocalName: local,
				})
			}
		}
	}
	return nil
}

func (c *parseContext) exportStatement(m *ast.Module, node *sitter.Node) error {
	source := node.ChildByFieldName("source")
	specifier := ""
	if source != nil {
		specifier = c.stringValue(source)
		m.AddRequest(specifier)
	}

	if decl := node.ChildByFieldName("declaration"); decl != nil {
		if hasToken(node, "default") {
			return c.exportDefaultDeclaration(m, decl)
		}
		decls, stmts, err := c.declaration(decl, true)
		if err != nil {
			return err
		}
		for _, d := range decls {
			m.ExportEntries = append(m.ExportEntries, ast.ExportEntry{ExportName: d.Name, LocalName: d.Name})
		}
		m.Declarations = append(m.Declarations, decls...)
		m.Body = append(m.Body, stmts...)
		return nil
	}

	if value := node.ChildByFieldName("value"); value != nil {
		return c.exportDefaultValue(m, value)
	}

	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		switch child.Kind() {
		case "namespace_export":
			m.ExportEntries = append(m.ExportEntries, ast.ExportEntry{
				ExportName:    c.exportName(lastNamed(child)),
				ModuleRequest: specifier,
				ImportName:    ast.StarName,
			})
			return nil
		case "export_clause":
			for j := uint(0); j < child.NamedChildCount(); j++ {
				spec := child.NamedChild(j)
				if spec.Kind() != "export_specifier" {
					continue
				}
				name := c.exportName(spec.ChildByFieldName("name"))
				exportName := name
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					exportName = c.exportName(alias)
				}
				entry := ast.ExportEntry{ExportName: exportName}
				if specifier != "" {
					entry.ModuleRequest = specifier
					entry.ImportName = name
				} else {
					entry.LocalName = name
				}
				m.ExportEntries = append(m.ExportEntries, entry)
			}
			return nil
		}
	}
	if hasToken(node, "*") && specifier != "" {
		m.ExportEntries = append(m.ExportEntries, ast.ExportEntry{ModuleRequest: specifier, ImportName: ast.StarName})
		return nil
	}
	return c.errorAt(node, "unsupported export form")
}

func (c *parseContext) exportDefaultDeclaration(m *ast.Module, decl *sitter.Node) error {
	decls, stmts, err := c.declaration(decl, true)
	if err != nil {
		return err
	}
	if len(decls) != 1 {
		return c.errorAt(decl, "unsupported default export")
	}
	d := decls[0]
	if d.Name == "" {
		d.Name = ast.DefaultLocalName
		d.Function.Name = "default"
		if cls, ok := stmts[0].(*ast.ClassStatement); ok {
			cls.Name = ast.DefaultLocalName
		}
	}
	m.ExportEntries = append(m.ExportEntries, ast.ExportEntry{ExportName: "default", LocalName: d.Name})
	m.Declarations = append(m.Declarations, d)
	m.Body = append(m.Body, stmts...)
	return nil
}

// exportDefaultValue handles export default <expression>. Anonymous
// function and class expressions are hoisted like declarations.
func (c *parseContext) exportDefaultValue(m *ast.Module, value *sitter.Node) error {
	m.ExportEntries = append(m.ExportEntries, ast.ExportEntry{ExportName: "default", LocalName: ast.DefaultLocalName})
	span := c.span(value)
	switch value.Kind() {
	case "function_expression", "function", "generator_function":
		fn := c.function(value, ast.FunctionDeclaration, true)
		if fn.Name == "" {
			fn.Name = "default"
		}
		m.Declarations = append(m.Declarations, ast.Declaration{Kind: ast.DeclFunction, Name: ast.DefaultLocalName, Function: fn, Span: span})
		return nil
	case "class":
		cls := c.class(value, "default")
		cls.Name = ast.DefaultLocalName
		m.Declarations = append(m.Declarations, ast.Declaration{Kind: ast.DeclClass, Name: ast.DefaultLocalName, Function: cls.Constructor, Span: span})
		m.Body = append(m.Body, cls)
		return nil
	}
	init := c.expr(value)
	nameAnonymous(init, "default")
	m.Declarations = append(m.Declarations, ast.Declaration{Kind: ast.DeclLet, Name: ast.DefaultLocalName, Span: span})
	m.Body = append(m.Body, &ast.VarStatement{Kind: ast.DeclLet, Name: ast.DefaultLocalName, Init: init, Span: span})
	return nil
}

// exportName reads an identifier or a string module export name.
func (c *parseContext) exportName(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	if node.Kind() == "string" {
		return c.stringValue(node)
	}
	return c.textOf(node)
}

func hasToken(node *sitter.Node, kind string) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); !child.IsNamed() && child.Kind() == kind {
			return true
		}
	}
	return false
}

func firstNamed(node *sitter.Node, kind string) *sitter.Node {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		if child := node.NamedChild(i); child.Kind() == kind {
			return child
		}
	}
	return nil
}

func lastNamed(node *sitter.Node) *sitter.Node {
	n := node.NamedChildCount()
	if n == 0 {
		return nil
	}
	return node.NamedChild(n - 1)
}
