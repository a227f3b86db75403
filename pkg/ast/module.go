package ast

// StarName marks namespace imports (import * as ns) and star exports
// (export * from "m") in the ImportName field of entries.
const StarName = "*"

// DefaultLocalName is the local binding of an anonymous default export.
const DefaultLocalName = "*default*"

// ImportEntry is one imported binding. An empty string means null.
type ImportEntry struct {
	ModuleRequest string
	ImportName    string
	LocalName     string
}

// ExportEntry is one exported binding. An empty string means null.
type ExportEntry struct {
	ExportName    string
	ModuleRequest string
	ImportName    string
	LocalName     string
}

type DeclKind uint8

const (
	DeclVar DeclKind = iota
	DeclLet
	DeclConst
	DeclFunction
	DeclClass
)

func (k DeclKind) String() string {
	switch k {
	case DeclVar:
		return "var"
	case DeclLet:
		return "let"
	case DeclConst:
		return "const"
	case DeclFunction:
		return "function"
	case DeclClass:
		return "class"
	}
	return "unknown"
}

// IsLexical reports whether the declaration creates an uninitialized
// binding until its statement runs.
func (k DeclKind) IsLexical() bool {
	return k == DeclLet || k == DeclConst || k == DeclClass
}

// Declaration is a top-level module declaration.
type Declaration struct {
	Kind DeclKind
	Name string
	// Function is the function, or the class constructor, of function
	// and class declarations. Initializers of other kinds run as body
	// statements.
	Function *FunctionNode
	Span     Span
}

// Module is a parsed module: its entries in source order, the requested
// module specifiers in first-occurrence order, and its body.
type Module struct {
	Name             string
	RequestedModules []string
	ImportEntries    []ImportEntry
	ExportEntries    []ExportEntry
	Declarations     []Declaration
	Body             []Statement
	Strict           bool
}

// AddRequest records specifier once, keeping first-occurrence order.
func (m *Module) AddRequest(specifier string) {
	for _, r := range m.RequestedModules {
		if r == specifier {
			return
		}
	}
	m.RequestedModules = append(m.RequestedModules, specifier)
}
