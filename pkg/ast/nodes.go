package ast

import (
	"strconv"
	"strings"
)

// Statement is a body statement.
type Statement interface {
	statementNode()
	Pos() Span
}

// Expr is an expression.
type Expr interface {
	exprNode()
	Pos() Span
	String() string
}

// --- Statements ---

type ExprStatement struct {
	X    Expr
	Span Span
}

type ReturnStatement struct {
	Arg  Expr // nil for a bare return
	Span Span
}

type ThrowStatement struct {
	Arg  Expr
	Span Span
}

// VarStatement assigns the initializer of a var, let or const binding
// whose binding was created by declaration instantiation.
type VarStatement struct {
	Kind DeclKind
	Name string
	Init Expr
	Span Span
}

// FunctionStatement is a hoisted declaration left in statement position;
// evaluating it is a no-op.
type FunctionStatement struct {
	Function *FunctionNode
	Span     Span
}

// ClassMethod is a method of a class body.
type ClassMethod struct {
	Function *FunctionNode
	Static   bool
}

// ClassStatement initializes a class binding when evaluated.
type ClassStatement struct {
	Name        string
	Constructor *FunctionNode
	Heritage    Expr // nil without an extends clause
	Methods     []ClassMethod
	Span        Span
}

func (*ExprStatement) statementNode()     {}
func (*ClassStatement) statementNode()    {}
func (*ReturnStatement) statementNode()   {}
func (*ThrowStatement) statementNode()    {}
func (*VarStatement) statementNode()      {}
func (*FunctionStatement) statementNode() {}

func (s *ExprStatement) Pos() Span     { return s.Span }
func (s *ClassStatement) Pos() Span    { return s.Span }
func (s *ReturnStatement) Pos() Span   { return s.Span }
func (s *ThrowStatement) Pos() Span    { return s.Span }
func (s *VarStatement) Pos() Span      { return s.Span }
func (s *FunctionStatement) Pos() Span { return s.Span }

// --- Expressions ---

type LiteralKind uint8

const (
	LitUndefined LiteralKind = iota
	LitNull
	LitBoolean
	LitNumber
	LitString
)

type Literal struct {
	Kind   LiteralKind
	Bool   bool
	Number float64
	Str    string
	Span   Span
}

type Identifier struct {
	Name string
	Span Span
}

type ThisExpr struct {
	Span Span
}

type CallExpr struct {
	Callee Expr
	Args   []Expr
	// Tail is set when the call is the argument of a return statement in
	// strict code.
	Tail bool
	Span Span
}

type NewExpr struct {
	Callee Expr
	Args   []Expr
	Span   Span
}

type SuperCall struct {
	Args []Expr
	// ForwardArguments passes the constructor's own arguments, as the
	// implicit constructor of a derived class does.
	ForwardArguments bool
	Span             Span
}

type MemberExpr struct {
	Object   Expr
	Property string
	Span     Span
}

type AssignExpr struct {
	Target Expr // *Identifier or *MemberExpr
	Value  Expr
	Span   Span
}

type ArrayLiteral struct {
	Elements []Expr
	Span     Span
}

type Property struct {
	Key   string
	Value Expr
}

type ObjectLiteral struct {
	Properties []Property
	Span       Span
}

type UnaryExpr struct {
	Op   string
	X    Expr
	Span Span
}

type BinaryExpr struct {
	Op          string
	Left, Right Expr
	Span        Span
}

type ConditionalExpr struct {
	Test, Then, Else Expr
	Span             Span
}

// FunctionExpr creates a closure.
type FunctionExpr struct {
	Function *FunctionNode
	Span     Span
}

type YieldExpr struct {
	Arg  Expr
	Span Span
}

type AwaitExpr struct {
	Arg  Expr
	Span Span
}

// Unsupported stands for syntax the reference backend does not evaluate.
type Unsupported struct {
	Text string
	Span Span
}

func (*Literal) exprNode()         {}
func (*Identifier) exprNode()      {}
func (*ThisExpr) exprNode()        {}
func (*CallExpr) exprNode()        {}
func (*NewExpr) exprNode()         {}
func (*SuperCall) exprNode()       {}
func (*MemberExpr) exprNode()      {}
func (*AssignExpr) exprNode()      {}
func (*ArrayLiteral) exprNode()    {}
func (*ObjectLiteral) exprNode()   {}
func (*UnaryExpr) exprNode()       {}
func (*BinaryExpr) exprNode()      {}
func (*ConditionalExpr) exprNode() {}
func (*FunctionExpr) exprNode()    {}
func (*YieldExpr) exprNode()       {}
func (*AwaitExpr) exprNode()       {}
func (*Unsupported) exprNode()     {}

func (e *Literal) Pos() Span         { return e.Span }
func (e *Identifier) Pos() Span      { return e.Span }
func (e *ThisExpr) Pos() Span        { return e.Span }
func (e *CallExpr) Pos() Span        { return e.Span }
func (e *NewExpr) Pos() Span         { return e.Span }
func (e *SuperCall) Pos() Span       { return e.Span }
func (e *MemberExpr) Pos() Span      { return e.Span }
func (e *AssignExpr) Pos() Span      { return e.Span }
func (e *ArrayLiteral) Pos() Span    { return e.Span }
func (e *ObjectLiteral) Pos() Span   { return e.Span }
func (e *UnaryExpr) Pos() Span       { return e.Span }
func (e *BinaryExpr) Pos() Span      { return e.Span }
func (e *ConditionalExpr) Pos() Span { return e.Span }
func (e *FunctionExpr) Pos() Span    { return e.Span }
func (e *YieldExpr) Pos() Span       { return e.Span }
func (e *AwaitExpr) Pos() Span       { return e.Span }
func (e *Unsupported) Pos() Span     { return e.Span }

func (e *Literal) String() string {
	switch e.Kind {
	case LitNull:
		return "null"
	case LitBoolean:
		return strconv.FormatBool(e.Bool)
	case LitNumber:
		return strconv.FormatFloat(e.Number, 'g', -1, 64)
	case LitString:
		return strconv.Quote(e.Str)
	}
	return "undefined"
}

func (e *Identifier) String() string { return e.Name }
func (e *ThisExpr) String() string   { return "this" }

func joinExprs(xs []Expr) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = x.String()
	}
	return strings.Join(parts, ", ")
}

func (e *CallExpr) String() string { return e.Callee.String() + "(" + joinExprs(e.Args) + ")" }
func (e *NewExpr) String() string  { return "new " + e.Callee.String() + "(" + joinExprs(e.Args) + ")" }
func (e *SuperCall) String() string {
	if e.ForwardArguments {
		return "super(...args)"
	}
	return "super(" + joinExprs(e.Args) + ")"
}
func (e *MemberExpr) String() string {
	return e.Object.String() + "." + e.Property
}
func (e *AssignExpr) String() string   { return e.Target.String() + " = " + e.Value.String() }
func (e *ArrayLiteral) String() string { return "[" + joinExprs(e.Elements) + "]" }
func (e *ObjectLiteral) String() string {
	parts := make([]string, len(e.Properties))
	for i, p := range e.Properties {
		parts[i] = p.Key + ": " + p.Value.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
func (e *UnaryExpr) String() string {
	if e.Op == "typeof" {
		return "typeof " + e.X.String()
	}
	return e.Op + e.X.String()
}
func (e *BinaryExpr) String() string {
	return "(" + e.Left.String() + " " + e.Op + " " + e.Right.String() + ")"
}
func (e *ConditionalExpr) String() string {
	return e.Test.String() + " ? " + e.Then.String() + " : " + e.Else.String()
}
func (e *FunctionExpr) String() string { return e.Function.String() }
func (e *YieldExpr) String() string {
	if e.Arg == nil {
		return "yield"
	}
	return "yield " + e.Arg.String()
}
func (e *AwaitExpr) String() string   { return "await " + e.Arg.String() }
func (e *Unsupported) String() string { return e.Text }
