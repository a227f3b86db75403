package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"esrt/pkg/ast"
)

// statement lowers a body statement. It returns nil for statements with no
// runtime effect.
func (c *parseContext) statement(node *sitter.Node, fn *ast.FunctionNode) ast.Statement {
	span := c.span(node)
	switch node.Kind() {
	case "comment", "empty_statement":
		return nil
	case "expression_statement":
		inner := node.NamedChild(0)
		if inner == nil {
			return nil
		}
		return &ast.ExprStatement{X: c.expr(inner), Span: span}
	case "return_statement":
		ret := &ast.ReturnStatement{Span: span}
		if arg := node.NamedChild(0); arg != nil && arg.Kind() != "comment" {
			ret.Arg = c.expr(arg)
			c.markTail(fn, ret.Arg)
		}
		return ret
	case "throw_statement":
		return &ast.ThrowStatement{Arg: c.expr(node.NamedChild(0)), Span: span}
	}
	return &ast.ExprStatement{X: c.unsupported(node), Span: span}
}

// markTail flags calls in tail position of strict, non-generator,
// non-async functions.
func (c *parseContext) markTail(fn *ast.FunctionNode, e ast.Expr) {
	if !fn.Strict || fn.Generator || fn.Async {
		return
	}
	switch x := e.(type) {
	case *ast.CallExpr:
		x.Tail = true
	case *ast.ConditionalExpr:
		c.markTail(fn, x.Then)
		c.markTail(fn, x.Else)
	}
}

func (c *parseContext) unsupported(node *sitter.Node) *ast.Unsupported {
	return &ast.Unsupported{Text: c.textOf(node), Span: c.span(node)}
}

// expr lowers an expression node.
func (c *parseContext) expr(node *sitter.Node) ast.Expr {
	if node == nil {
		return &ast.Literal{Kind: ast.LitUndefined}
	}
	span := c.span(node)
	switch node.Kind() {
	case "parenthesized_expression":
		return c.expr(node.NamedChild(0))
	case "number":
		n, ok := parseNumber(c.textOf(node))
		if !ok {
			return c.unsupported(node)
		}
		return &ast.Literal{Kind: ast.LitNumber, Number: n, Span: span}
	case "string":
		return &ast.Literal{Kind: ast.LitString, Str: c.stringValue(node), Span: span}
	case "template_string":
		if firstNamed(node, "template_substitution") != nil {
			return c.unsupported(node)
		}
		return &ast.Literal{Kind: ast.LitString, Str: c.stringValue(node), Span: span}
	case "true", "false":
		return &ast.Literal{Kind: ast.LitBoolean, Bool: node.Kind() == "true", Span: span}
	case "null":
		return &ast.Literal{Kind: ast.LitNull, Span: span}
	case "undefined":
		return &ast.Identifier{Name: "undefined", Span: span}
	case "identifier":
		return &ast.Identifier{Name: c.textOf(node), Span: span}
	case "this":
		return &ast.ThisExpr{Span: span}

	case "call_expression":
		callee := node.ChildByFieldName("function")
		args := node.ChildByFieldName("arguments")
		if args == nil || args.Kind() != "arguments" {
			return c.unsupported(node)
		}
		list, ok := c.arguments(args)
		if !ok {
			return c.unsupported(node)
		}
		if callee.Kind() == "super" {
			return &ast.SuperCall{Args: list, Span: span}
		}
		return &ast.CallExpr{Callee: c.expr(callee), Args: list, Span: span}
	case "new_expression":
		var list []ast.Expr
		if args := node.ChildByFieldName("arguments"); args != nil {
			var ok bool
			if list, ok = c.arguments(args); !ok {
				return c.unsupported(node)
			}
		}
		return &ast.NewExpr{Callee: c.expr(node.ChildByFieldName("constructor")), Args: list, Span: span}
	case "member_expression":
		prop := node.ChildByFieldName("property")
		if prop == nil || prop.Kind() != "property_identifier" {
			return c.unsupported(node)
		}
		return &ast.MemberExpr{Object: c.expr(node.ChildByFieldName("object")), Property: c.textOf(prop), Span: span}
	case "subscript_expression":
		index := node.ChildByFieldName("index")
		if index == nil || (index.Kind() != "string" && index.Kind() != "number") {
			return c.unsupported(node)
		}
		return &ast.MemberExpr{Object: c.expr(node.ChildByFieldName("object")), Property: c.propertyKey(index), Span: span}
	case "assignment_expression":
		left := node.ChildByFieldName("left")
		target := c.expr(left)
		switch target.(type) {
		case *ast.Identifier, *ast.MemberExpr:
		default:
			return c.unsupported(node)
		}
		value := c.expr(node.ChildByFieldName("right"))
		if id, ok := target.(*ast.Identifier); ok {
			nameAnonymous(value, id.Name)
		}
		return &ast.AssignExpr{Target: target, Value: value, Span: span}

	case "array":
		arr := &ast.ArrayLiteral{Span: span}
		for i := uint(0); i < node.NamedChildCount(); i++ {
			el := node.NamedChild(i)
			if el.Kind() == "comment" {
				continue
			}
			if el.Kind() == "spread_element" {
				return c.unsupported(node)
			}
			arr.Elements = append(arr.Elements, c.expr(el))
		}
		return arr
	case "object":
		obj := &ast.ObjectLiteral{Span: span}
		for i := uint(0); i < node.NamedChildCount(); i++ {
			member := node.NamedChild(i)
			switch member.Kind() {
			case "comment":
			case "pair":
				key := c.propertyKey(member.ChildByFieldName("key"))
				value := c.expr(member.ChildByFieldName("value"))
				nameAnonymous(value, key)
				obj.Properties = append(obj.Properties, ast.Property{Key: key, Value: value})
			case "shorthand_property_identifier":
				name := c.textOf(member)
				obj.Properties = append(obj.Properties, ast.Property{Key: name, Value: &ast.Identifier{Name: name, Span: c.span(member)}})
			case "method_definition":
				if hasToken(member, "get") || hasToken(member, "set") {
					return c.unsupported(node)
				}
				method := c.function(member, ast.MethodDefinition, true)
				method.Name = c.propertyKey(member.ChildByFieldName("name"))
				obj.Properties = append(obj.Properties, ast.Property{Key: method.Name, Value: &ast.FunctionExpr{Function: method, Span: c.span(member)}})
			default:
				return c.unsupported(node)
			}
		}
		return obj

	case "unary_expression":
		op := c.textOf(node.ChildByFieldName("operator"))
		switch op {
		case "-", "+", "!", "typeof", "void":
			return &ast.UnaryExpr{Op: op, X: c.expr(node.ChildByFieldName("argument")), Span: span}
		}
		return c.unsupported(node)
	case "binary_expression":
		op := c.textOf(node.ChildByFieldName("operator"))
		switch op {
		case "+", "-", "*", "/", "%", "===", "!==", "==", "!=", "<", ">", "<=", ">=", "&&", "||", "??":
			return &ast.BinaryExpr{
				Op:    op,
				Left:  c.expr(node.ChildByFieldName("left")),
				Right: c.expr(node.ChildByFieldName("right")),
				Span:  span,
			}
		}
		return c.unsupported(node)
	case "ternary_expression":
		return &ast.ConditionalExpr{
			Test: c.expr(node.ChildByFieldName("condition")),
			Then: c.expr(node.ChildByFieldName("consequence")),
			Else: c.expr(node.ChildByFieldName("alternative")),
			Span: span,
		}

	case "function_expression", "function", "generator_function", "arrow_function":
		return &ast.FunctionExpr{Function: c.function(node, ast.FunctionExpression, true), Span: span}
	case "yield_expression":
		if hasToken(node, "*") {
			return c.unsupported(node)
		}
		y := &ast.YieldExpr{Span: span}
		if node.NamedChildCount() > 0 {
			y.Arg = c.expr(node.NamedChild(0))
		}
		return y
	case "await_expression":
		return &ast.AwaitExpr{Arg: c.expr(node.NamedChild(0)), Span: span}
	}
	return c.unsupported(node)
}

func (c *parseContext) arguments(node *sitter.Node) ([]ast.Expr, bool) {
	var list []ast.Expr
	for i := uint(0); i < node.NamedChildCount(); i++ {
		arg := node.NamedChild(i)
		switch arg.Kind() {
		case "comment":
			continue
		case "spread_element":
			return nil, false
		}
		list = append(list, c.expr(arg))
	}
	return list, true
}

// propertyKey returns the string form of a literal property name.
func (c *parseContext) propertyKey(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	switch node.Kind() {
	case "string":
		return c.stringValue(node)
	case "number":
		if n, ok := parseNumber(c.textOf(node)); ok {
			return formatNumberKey(n)
		}
	}
	return c.textOf(node)
}
