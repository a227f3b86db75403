package modules

import (
	"esrt/pkg/errors"
)

// ResolveSet records the (module, export name) pairs visited by one
// resolution, so circular re-exports resolve to nothing.
type ResolveSet map[*SourceTextModuleRecord]map[string]struct{}

// StarSet records the modules whose star exports have been followed.
type StarSet map[*SourceTextModuleRecord]struct{}

// ResolveExport finds the binding exported as name. It returns nil when
// the name cannot be resolved or the lookup is circular, and Ambiguous
// when star exports provide conflicting bindings. Both sets must be
// non-nil and are shared across the recursion.
//
// A default export is never found through export *; when the module has
// no default export of its own the result is a ResolutionError.
func (m *SourceTextModuleRecord) ResolveExport(name string, resolveSet ResolveSet, starSet StarSet) (*ResolvedBinding, error) {
	seen := resolveSet[m]
	if seen == nil {
		seen = make(map[string]struct{})
		resolveSet[m] = seen
	} else if _, ok := seen[name]; ok {
		return nil, nil
	}
	seen[name] = struct{}{}

	for _, ee := range m.exports.local {
		if ee.ExportName == name {
			return &ResolvedBinding{Module: m, BindingName: ee.LocalName}, nil
		}
	}

	for _, ee := range m.exports.indirect {
		if ee.ExportName != name {
			continue
		}
		dep, err := m.resolveImported(ee.ModuleRequest)
		if err != nil {
			return nil, err
		}
		r, err := dep.ResolveExport(ee.ImportName, resolveSet, starSet)
		if err != nil {
			return nil, err
		}
		if r != nil {
			return r, nil
		}
	}

	for _, ee := range m.exports.namespace {
		if ee.ExportName != name {
			continue
		}
		dep, err := m.resolveImported(ee.ModuleRequest)
		if err != nil {
			return nil, err
		}
		return &ResolvedBinding{Module: dep, Namespace: true}, nil
	}

	if name == "default" {
		return nil, errors.NewResolutionError(m.id.String(), name, "module %s has no default export", m.id)
	}

	if _, ok := starSet[m]; ok {
		return nil, nil
	}
	starSet[m] = struct{}{}

	var star *ResolvedBinding
	for _, ee := range m.exports.star {
		dep, err := m.resolveImported(ee.ModuleRequest)
		if err != nil {
			return nil, err
		}
		r, err := dep.ResolveExport(name, resolveSet, starSet)
		if err != nil {
			return nil, err
		}
		switch {
		case r == Ambiguous:
			return Ambiguous, nil
		case r == nil:
		case star == nil:
			star = r
		case !sameBinding(star, r):
			return Ambiguous, nil
		}
	}
	return star, nil
}

// Resolve is ResolveExport with fresh visited sets.
func (m *SourceTextModuleRecord) Resolve(name string) (*ResolvedBinding, error) {
	return m.ResolveExport(name, make(ResolveSet), make(StarSet))
}

// GetExportedNames lists the names the module exports, in declaration
// order followed by names reached through star exports. "default" is
// never taken from a star export. Modules already in starSet contribute
// nothing.
func (m *SourceTextModuleRecord) GetExportedNames(starSet StarSet) ([]string, error) {
	if _, ok := starSet[m]; ok {
		return nil, nil
	}
	starSet[m] = struct{}{}

	var names []string
	seen := make(map[string]struct{})
	add := func(n string) {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			names = append(names, n)
		}
	}
	for _, ee := range m.exports.local {
		add(ee.ExportName)
	}
	for _, ee := range m.exports.indirect {
		add(ee.ExportName)
	}
	for _, ee := range m.exports.star {
		dep, err := m.resolveImported(ee.ModuleRequest)
		if err != nil {
			return nil, err
		}
		starNames, err := dep.GetExportedNames(starSet)
		if err != nil {
			return nil, err
		}
		for _, n := range starNames {
			if n != "default" {
				add(n)
			}
		}
	}
	for _, ee := range m.exports.namespace {
		add(ee.ExportName)
	}
	return names, nil
}
