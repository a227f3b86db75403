// Package parser is the ECMAScript module front end. It runs the
// tree-sitter JavaScript grammar and lowers the concrete tree into an
// ast.Module: import and export entries, top-level declarations, function
// nodes with their flags and scope information, and the statement subset
// the reference backend evaluates.
package parser

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"

	"esrt/pkg/ast"
	"esrt/pkg/source"
)

// Parser wraps a tree-sitter parser configured for JavaScript. A Parser is
// not safe for concurrent use; create one per goroutine.
type Parser struct {
	parser *sitter.Parser
}

// New constructs a parser with the JavaScript language loaded.
func New() (*Parser, error) {
	p := sitter.NewParser()
	if err := p.SetLanguage(sitter.NewLanguage(tree_sitter_javascript.Language())); err != nil {
		p.Close()
		return nil, fmt.Errorf("parser: %w", err)
	}
	return &Parser{parser: p}, nil
}

// Close releases parser resources.
func (p *Parser) Close() {
	if p == nil || p.parser == nil {
		return
	}
	p.parser.Close()
}

// ParseModule parses src with a one-shot parser.
func ParseModule(src *source.SourceFile) (*ast.Module, error) {
	p, err := New()
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return p.ParseModule(src)
}

// ParseModule parses module source. Module code is always strict.
func (p *Parser) ParseModule(src *source.SourceFile) (*ast.Module, error) {
	if p == nil || p.parser == nil {
		return nil, fmt.Errorf("parser: nil parser")
	}
	text := []byte(src.Content)
	tree := p.parser.Parse(text, nil)
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.Kind() != "program" {
		return nil, fmt.Errorf("parser: unexpected root node")
	}
	c := &parseContext{src: src, text: text}
	if root.HasError() {
		return nil, c.syntaxError(root)
	}

	m := &ast.Module{Name: src.Path, Strict: true}
	if m.Name == "" {
		m.Name = src.Name
	}
	exported := make(map[string]bool)
	for i := uint(0); i < root.NamedChildCount(); i++ {
		node := root.NamedChild(i)
		if err := c.moduleItem(m, node); err != nil {
			return nil, err
		}
	}
	for _, e := range m.ExportEntries {
		if e.ExportName == "" {
			continue
		}
		if exported[e.ExportName] {
			return nil, c.errorAt(root, "duplicate export of '%s'", e.ExportName)
		}
		exported[e.ExportName] = true
	}
	return m, nil
}

// parseContext carries the source while lowering one tree.
type parseContext struct {
	src  *source.SourceFile
	text []byte
}

func (c *parseContext) textOf(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return node.Utf8Text(c.text)
}

func (c *parseContext) span(node *sitter.Node) ast.Span {
	if node == nil {
		return ast.Span{Source: c.src}
	}
	start := node.StartPosition()
	return ast.Span{
		Source: c.src,
		Line:   int(start.Row) + 1,
		Column: int(start.Column) + 1,
		Start:  int(node.StartByte()),
		End:    int(node.EndByte()),
	}
}

func (c *parseContext) moduleItem(m *ast.Module, node *sitter.Node) error {
	switch node.Kind() {
	case "comment", "hash_bang_line", "empty_statement":
		return nil
	case "import_statement":
		return c.importStatement(m, node)
	case "export_statement":
		return c.exportStatement(m, node)
	}
	decls, stmts, err := c.declaration(node, true)
	if err != nil {
		return err
	}
	if decls == nil && stmts == nil {
		stmts = []ast.Statement{c.statement(node, &ast.FunctionNode{Strict: true})}
	}
	m.Declarations = append(m.Declarations, decls...)
	m.Body = append(m.Body, stmts...)
	return nil
}

// declaration lowers a declaration statement into module declarations and
// the body statements that initialize them. Both results are nil when node
// is not a declaration.
func (c *parseContext) declaration(node *sitter.Node, strict bool) ([]ast.Declaration, []ast.Statement, error) {
	switch node.Kind() {
	case "function_declaration", "generator_function_declaration":
		fn := c.function(node, ast.FunctionDeclaration, strict)
		return []ast.Declaration{{Kind: ast.DeclFunction, Name: fn.Name, Function: fn, Span: c.span(node)}}, []ast.Statement{}, nil
	case "class_declaration":
		cls := c.class(node, "")
		decl := ast.Declaration{Kind: ast.DeclClass, Name: cls.Name, Function: cls.Constructor, Span: c.span(node)}
		return []ast.Declaration{decl}, []ast.Statement{cls}, nil
	case "lexical_declaration", "variable_declaration":
		kind := ast.DeclVar
		if node.Kind() == "lexical_declaration" {
			kind = ast.DeclLet
			if c.textOf(node.ChildByFieldName("kind")) == "const" {
				kind = ast.DeclConst
			}
		}
		var decls []ast.Declaration
		stmts := []ast.Statement{}
		for i := uint(0); i < node.NamedChildCount(); i++ {
			d := node.NamedChild(i)
			if d.Kind() != "variable_declarator" {
				continue
			}
			nameNode := d.ChildByFieldName("name")
			value := d.ChildByFieldName("value")
			if nameNode.Kind() != "identifier" {
				for _, name := range c.boundNames(nameNode) {
					decls = append(decls, ast.Declaration{Kind: kind, Name: name, Span: c.span(d)})
				}
				stmts = append(stmts, &ast.ExprStatement{X: c.unsupported(d), Span: c.span(d)})
				continue
			}
			name := c.textOf(nameNode)
			decls = append(decls, ast.Declaration{Kind: kind, Name: name, Span: c.span(d)})
			if value == nil && kind == ast.DeclVar {
				continue
			}
			stmt := &ast.VarStatement{Kind: kind, Name: name, Span: c.span(d)}
			if value != nil {
				stmt.Init = c.expr(value)
				nameAnonymous(stmt.Init, name)
			}
			stmts = append(stmts, stmt)
		}
		return decls, stmts, nil
	}
	return nil, nil, nil
}

// boundNames collects the identifiers bound by a destructuring pattern.
func (c *parseContext) boundNames(node *sitter.Node) []string {
	var names []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Kind() {
		case "identifier", "shorthand_property_identifier_pattern":
			names = append(names, c.textOf(n))
			return
		case "pair_pattern":
			walk(n.ChildByFieldName("value"))
			return
		case "assignment_pattern", "object_assignment_pattern":
			walk(n.ChildByFieldName("left"))
			return
		}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(node)
	return names
}

// nameAnonymous gives anonymous function expressions the binding name,
// as NamedEvaluation does.
func nameAnonymous(e ast.Expr, name string) {
	if fe, ok := e.(*ast.FunctionExpr); ok && fe.Function.Name == "" {
		fe.Function.Name = name
	}
}
