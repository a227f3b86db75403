package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"esrt/pkg/ast"
)

// function lowers any function-like node: declarations, expressions,
// arrows and methods.
func (c *parseContext) function(node *sitter.Node, kind ast.FunctionKind, strict bool) *ast.FunctionNode {
	if node.Kind() == "arrow_function" {
		kind = ast.ArrowFunction
	}
	fn := &ast.FunctionNode{
		Name:      c.textOf(node.ChildByFieldName("name")),
		Kind:      kind,
		Generator: strings.Contains(node.Kind(), "generator") || hasToken(node, "*"),
		Async:     hasToken(node, "async"),
		Span:      c.span(node),
	}

	if params := node.ChildByFieldName("parameters"); params != nil {
		for i := uint(0); i < params.NamedChildCount(); i++ {
			fn.Params = append(fn.Params, c.paramNames(params.NamedChild(i))...)
		}
	} else if param := node.ChildByFieldName("parameter"); param != nil {
		fn.Params = append(fn.Params, c.textOf(param))
	}

	body := node.ChildByFieldName("body")
	fn.Strict = strict || (body != nil && c.hasUseStrict(body))
	if body != nil {
		fn.HeaderSource = strings.TrimSpace(string(c.text[node.StartByte():body.StartByte()]))
		fn.BodySource = c.textOf(body)
	}

	switch {
	case body == nil:
	case body.Kind() == "statement_block":
		c.collectScope(fn, body, true)
		for i := uint(0); i < body.NamedChildCount(); i++ {
			child := body.NamedChild(i)
			if decls, stmts, _ := c.declaration(child, fn.Strict); decls != nil {
				fn.Body = append(fn.Body, stmts...)
				continue
			}
			if stmt := c.statement(child, fn); stmt != nil {
				fn.Body = append(fn.Body, stmt)
			}
		}
	default:
		// Concise arrow body.
		c.collectScope(fn, body, false)
		ret := &ast.ReturnStatement{Arg: c.expr(body), Span: c.span(body)}
		c.markTail(fn, ret.Arg)
		fn.Body = []ast.Statement{ret}
	}
	return fn
}

// paramNames returns the names bound by one formal parameter.
func (c *parseContext) paramNames(node *sitter.Node) []string {
	switch node.Kind() {
	case "identifier":
		return []string{c.textOf(node)}
	case "assignment_pattern":
		return c.paramNames(node.ChildByFieldName("left"))
	case "rest_pattern":
		return c.boundNames(node)
	case "comment":
		return nil
	}
	return c.boundNames(node)
}

func (c *parseContext) hasUseStrict(body *sitter.Node) bool {
	for i := uint(0); i < body.NamedChildCount(); i++ {
		stmt := body.NamedChild(i)
		if stmt.Kind() == "comment" {
			continue
		}
		if stmt.Kind() != "expression_statement" {
			return false
		}
		lit := stmt.NamedChild(0)
		if lit == nil || lit.Kind() != "string" {
			return false
		}
		raw := c.textOf(lit)
		if raw == `"use strict"` || raw == `'use strict'` {
			return true
		}
	}
	return false
}

// collectScope records var names, top-level lexical names, hoisted
// function declarations and uses of "arguments" in a function body.
// Nested non-arrow functions are opaque; arrows only contribute their
// "arguments" references.
func (c *parseContext) collectScope(fn *ast.FunctionNode, body *sitter.Node, top bool) {
	seenVar := make(map[string]bool)
	var walk func(n *sitter.Node, top, varScope bool)
	walk = func(n *sitter.Node, top, varScope bool) {
		for i := uint(0); i < n.NamedChildCount(); i++ {
			child := n.NamedChild(i)
			switch child.Kind() {
			case "function_declaration", "generator_function_declaration":
				if top {
					fn.Functions = append(fn.Functions, c.function(child, ast.FunctionDeclaration, fn.Strict))
				}
				continue
			case "function_expression", "function", "generator_function", "method_definition", "class", "class_body":
				continue
			case "class_declaration":
				if top {
					fn.LexicalNames = append(fn.LexicalNames, ast.LexicalName{Name: c.textOf(child.ChildByFieldName("name"))})
				}
				continue
			case "arrow_function":
				walk(child, false, false)
				continue
			case "variable_declaration":
				if varScope {
					for _, name := range c.declaredNames(child) {
						if !seenVar[name] {
							seenVar[name] = true
							fn.VarNames = append(fn.VarNames, name)
						}
					}
				}
			case "lexical_declaration":
				if top {
					isConst := c.textOf(child.ChildByFieldName("kind")) == "const"
					for _, name := range c.declaredNames(child) {
						fn.LexicalNames = append(fn.LexicalNames, ast.LexicalName{Name: name, Const: isConst})
					}
				}
			case "identifier":
				if c.textOf(child) == "arguments" {
					fn.UsesArguments = true
				}
				continue
			}
			walk(child, false, varScope)
		}
	}
	if top {
		walk(body, true, true)
		return
	}
	if body.Kind() == "identifier" && c.textOf(body) == "arguments" {
		fn.UsesArguments = true
	}
	walk(body, false, true)
}

func (c *parseContext) declaredNames(node *sitter.Node) []string {
	var names []string
	for i := uint(0); i < node.NamedChildCount(); i++ {
		d := node.NamedChild(i)
		if d.Kind() == "variable_declarator" {
			names = append(names, c.boundNames(d.ChildByFieldName("name"))...)
		}
	}
	return names
}

// class lowers a class declaration or expression. fallbackName names an
// anonymous class.
func (c *parseContext) class(node *sitter.Node, fallbackName string) *ast.ClassStatement {
	name := c.textOf(node.ChildByFieldName("name"))
	cls := &ast.ClassStatement{Name: name, Span: c.span(node)}
	if name == "" {
		name = fallbackName
	}
	if heritage := firstNamed(node, "class_heritage"); heritage != nil && heritage.NamedChildCount() > 0 {
		cls.Heritage = c.expr(heritage.NamedChild(0))
	}
	derived := cls.Heritage != nil

	if body := node.ChildByFieldName("body"); body != nil {
		for i := uint(0); i < body.NamedChildCount(); i++ {
			member := body.NamedChild(i)
			if member.Kind() != "method_definition" || hasToken(member, "get") || hasToken(member, "set") {
				continue
			}
			static := hasToken(member, "static")
			if !static && c.textOf(member.ChildByFieldName("name")) == "constructor" {
				ctor := c.function(member, ast.ClassConstructor, true)
				ctor.Name = name
				ctor.Derived = derived
				cls.Constructor = ctor
				continue
			}
			method := c.function(member, ast.MethodDefinition, true)
			method.Name = c.propertyKey(member.ChildByFieldName("name"))
			cls.Methods = append(cls.Methods, ast.ClassMethod{Function: method, Static: static})
		}
	}
	if cls.Constructor == nil {
		cls.Constructor = defaultConstructor(name, derived, cls.Span)
	}
	return cls
}

// defaultConstructor is constructor() {} or, for derived classes,
// constructor(...args) { super(...args); }.
func defaultConstructor(name string, derived bool, span ast.Span) *ast.FunctionNode {
	fn := &ast.FunctionNode{Name: name, Kind: ast.ClassConstructor, Strict: true, Derived: derived, Span: span}
	if derived {
		fn.Body = []ast.Statement{&ast.ExprStatement{X: &ast.SuperCall{ForwardArguments: true, Span: span}, Span: span}}
	}
	return fn
}
