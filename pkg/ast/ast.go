// Package ast holds the syntax tree consumed by the module and call
// protocol layers. It covers module structure (imports, exports, top-level
// declarations) and function nodes with the flags the call protocol needs;
// statement and expression nodes cover the subset the reference backend
// evaluates.
package ast

import (
	"fmt"
	"strings"

	"esrt/pkg/source"
)

// Span locates a node in its source file.
type Span struct {
	Source *source.SourceFile
	Line   int // 1-based
	Column int // 1-based
	Start  int
	End    int
}

func (s Span) String() string {
	name := "<unknown>"
	if s.Source != nil {
		name = s.Source.DisplayPath()
	}
	return fmt.Sprintf("%s:%d:%d", name, s.Line, s.Column)
}

// Text returns the source text covered by the span.
func (s Span) Text() string {
	if s.Source == nil || s.End > len(s.Source.Content) || s.Start > s.End {
		return ""
	}
	return s.Source.Content[s.Start:s.End]
}

type FunctionKind uint8

const (
	FunctionDeclaration FunctionKind = iota
	FunctionExpression
	ArrowFunction
	MethodDefinition
	ClassConstructor
)

func (k FunctionKind) String() string {
	switch k {
	case FunctionDeclaration:
		return "declaration"
	case FunctionExpression:
		return "expression"
	case ArrowFunction:
		return "arrow"
	case MethodDefinition:
		return "method"
	case ClassConstructor:
		return "class-constructor"
	}
	return fmt.Sprintf("FunctionKind(%d)", uint8(k))
}

// FunctionNode describes one function: its flags, declarations and body.
type FunctionNode struct {
	Name      string
	Kind      FunctionKind
	Strict    bool
	Generator bool
	Async     bool
	// Derived marks the constructor of a class with an extends clause.
	Derived bool

	Params []string
	// VarNames are var-declared names of the body, excluding parameters.
	VarNames []string
	// LexicalNames are let, const and class names at the top of the body.
	LexicalNames []LexicalName
	// Functions are the hoisted function declarations of the body.
	Functions []*FunctionNode
	// UsesArguments is set when the body references "arguments".
	UsesArguments bool

	Body []Statement

	// HeaderSource and BodySource are kept only for diagnostics.
	HeaderSource string
	BodySource   string
	Span         Span
}

// LexicalName is a let/const/class binding.
type LexicalName struct {
	Name  string
	Const bool
}

// IsArrow reports whether the function binds this lexically.
func (f *FunctionNode) IsArrow() bool { return f.Kind == ArrowFunction }

// SourceText reconstructs the function text for diagnostics.
func (f *FunctionNode) SourceText() string {
	if f.HeaderSource == "" && f.BodySource == "" {
		return "function " + f.Name + "() { [native code] }"
	}
	return strings.TrimSpace(f.HeaderSource + " " + f.BodySource)
}

func (f *FunctionNode) String() string {
	var flags []string
	if f.Strict {
		flags = append(flags, "strict")
	}
	if f.Generator {
		flags = append(flags, "generator")
	}
	if f.Async {
		flags = append(flags, "async")
	}
	if f.Derived {
		flags = append(flags, "derived")
	}
	name := f.Name
	if name == "" {
		name = "<anonymous>"
	}
	return fmt.Sprintf("%s %s(%s) [%s]", f.Kind, name, strings.Join(f.Params, ", "), strings.Join(flags, " "))
}
