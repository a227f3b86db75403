package modules

import (
	"esrt/pkg/ast"
)

// ResolvedBinding is the result of export resolution: a binding name in
// the environment of Module, or, for export * as ns, the namespace of
// Module itself.
type ResolvedBinding struct {
	Module      *SourceTextModuleRecord
	BindingName string
	Namespace   bool
}

// Ambiguous is returned by ResolveExport when star exports supply two
// different bindings for one name.
var Ambiguous = &ResolvedBinding{}

func (b *ResolvedBinding) String() string {
	switch {
	case b == nil:
		return "<unresolved>"
	case b == Ambiguous:
		return "<ambiguous>"
	case b.Namespace:
		return b.Module.ID().String() + ":*namespace*"
	}
	return b.Module.ID().String() + ":" + b.BindingName
}

func sameBinding(a, b *ResolvedBinding) bool {
	return a.Module == b.Module && a.BindingName == b.BindingName && a.Namespace == b.Namespace
}

// exportEntries holds the export entries of a module split by kind.
type exportEntries struct {
	local     []ast.ExportEntry
	indirect  []ast.ExportEntry
	star      []ast.ExportEntry
	namespace []ast.ExportEntry
}

func isStarExport(e ast.ExportEntry) bool {
	return e.ImportName == ast.StarName && e.ExportName == ""
}

func isNamespaceExport(e ast.ExportEntry) bool {
	return e.ImportName == ast.StarName && e.ExportName != ""
}

// classifyExports sorts export entries. An export of an imported binding
// that is not a namespace import is rewritten into an indirect export of
// the original module's binding.
func classifyExports(imports []ast.ImportEntry, exports []ast.ExportEntry) exportEntries {
	imported := make(map[string]ast.ImportEntry, len(imports))
	for _, ie := range imports {
		imported[ie.LocalName] = ie
	}

	var out exportEntries
	for _, ee := range exports {
		switch {
		case ee.ModuleRequest == "":
			ie, ok := imported[ee.LocalName]
			if !ok || ie.ImportName == ast.StarName {
				out.local = append(out.local, ee)
				continue
			}
			out.indirect = append(out.indirect, ast.ExportEntry{
				ExportName:    ee.ExportName,
				ModuleRequest: ie.ModuleRequest,
				ImportName:    ie.ImportName,
			})
		case isStarExport(ee):
			out.star = append(out.star, ee)
		case isNamespaceExport(ee):
			out.namespace = append(out.namespace, ee)
		default:
			out.indirect = append(out.indirect, ee)
		}
	}
	return out
}
