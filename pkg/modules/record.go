package modules

import (
	"fmt"
	"slices"

	"esrt/pkg/ast"
	"esrt/pkg/compiler"
	"esrt/pkg/errors"
	"esrt/pkg/vm"
)

// SourceTextModuleRecord is a module created from source text. It is
// linked to one realm, instantiated once and evaluated once; repeated
// calls return immediately, which is what lets cyclic graphs terminate.
//
// A record is not safe for concurrent use. All records of a realm run on
// the goroutine that owns the realm's agent.
type SourceTextModuleRecord struct {
	id       SourceIdentifier
	host     Host
	node     *ast.Module
	compiler *compiler.Compiler
	unit     compiler.Unit

	realm        *vm.Realm
	env          *vm.ModuleEnvironment
	namespace    *vm.ModuleNamespace
	instantiated bool
	evaluated    bool

	requested []string
	imports   []ast.ImportEntry
	exports   exportEntries
}

// ParseModule creates the record for a parsed module. unit evaluates the
// module body; c compiles the functions it declares. Requested modules
// are resolved through host.
func ParseModule(host Host, id SourceIdentifier, node *ast.Module, c *compiler.Compiler, unit compiler.Unit) *SourceTextModuleRecord {
	return &SourceTextModuleRecord{
		id:        id,
		host:      host,
		node:      node,
		compiler:  c,
		unit:      unit,
		requested: slices.Clone(node.RequestedModules),
		imports:   slices.Clone(node.ImportEntries),
		exports:   classifyExports(node.ImportEntries, node.ExportEntries),
	}
}

func (m *SourceTextModuleRecord) String() string { return fmt.Sprintf("[Module = %s]", m.id) }

func (m *SourceTextModuleRecord) ID() SourceIdentifier               { return m.id }
func (m *SourceTextModuleRecord) AST() *ast.Module                   { return m.node }
func (m *SourceTextModuleRecord) Realm() *vm.Realm                   { return m.realm }
func (m *SourceTextModuleRecord) Environment() *vm.ModuleEnvironment { return m.env }
func (m *SourceTextModuleRecord) IsInstantiated() bool               { return m.instantiated }
func (m *SourceTextModuleRecord) IsEvaluated() bool                  { return m.evaluated }

func (m *SourceTextModuleRecord) RequestedModules() []string       { return slices.Clone(m.requested) }
func (m *SourceTextModuleRecord) ImportEntries() []ast.ImportEntry { return slices.Clone(m.imports) }
func (m *SourceTextModuleRecord) LocalExportEntries() []ast.ExportEntry {
	return slices.Clone(m.exports.local)
}
func (m *SourceTextModuleRecord) IndirectExportEntries() []ast.ExportEntry {
	return slices.Clone(m.exports.indirect)
}
func (m *SourceTextModuleRecord) StarExportEntries() []ast.ExportEntry {
	return slices.Clone(m.exports.star)
}
func (m *SourceTextModuleRecord) NamespaceExportEntries() []ast.ExportEntry {
	return slices.Clone(m.exports.namespace)
}

// Status derives the linking state from the record's flags.
func (m *SourceTextModuleRecord) Status() ModuleStatus {
	switch {
	case m.evaluated:
		return StatusEvaluated
	case m.instantiated:
		return StatusInstantiated
	case m.realm != nil:
		return StatusLinked
	}
	return StatusUnlinked
}

// SetRealm links the record to realm. A record is linked at most once.
func (m *SourceTextModuleRecord) SetRealm(realm *vm.Realm) error {
	if m.realm != nil {
		return errors.NewTypeError("module %s is already linked", m.id)
	}
	if realm == nil {
		return errors.NewTypeError("module %s: nil realm", m.id)
	}
	m.realm = realm
	return nil
}

func (m *SourceTextModuleRecord) resolveImported(specifier string) (*SourceTextModuleRecord, error) {
	dep, err := m.host.HostResolveImportedModule(m, specifier)
	if err != nil {
		return nil, fmt.Errorf("%s: import %q: %w", m.id, specifier, err)
	}
	return dep, nil
}

// Instantiate creates the module environment, instantiates the requested
// modules and then creates the import and declaration bindings. The
// environment is assigned before recursing, so a module reached again
// through a cycle returns at once.
//
// When instantiation fails the environment stays assigned and the record
// is never marked instantiated; a later Evaluate then does nothing.
func (m *SourceTextModuleRecord) Instantiate() error {
	if m.realm == nil {
		return errors.NewTypeError("module %s is not linked", m.id)
	}
	if m.env != nil {
		return nil
	}
	m.env = vm.NewModuleEnvironment(m.realm.GlobalEnv, m.id.String())
	for _, req := range m.requested {
		dep, err := m.resolveImported(req)
		if err != nil {
			return err
		}
		if err := dep.Instantiate(); err != nil {
			return err
		}
	}
	if err := m.declarationInstantiation(); err != nil {
		return err
	}
	m.instantiated = true
	logger := m.realm.Agent().Logger()
	logger.Debug().Str("module", m.id.String()).Msg("module instantiated")
	return nil
}

func (m *SourceTextModuleRecord) declarationInstantiation() error {
	env := m.env
	for _, ee := range m.exports.indirect {
		r, err := m.ResolveExport(ee.ExportName, make(ResolveSet), make(StarSet))
		if err != nil {
			return err
		}
		if err := checkResolution(m, ee.ExportName, r); err != nil {
			return err
		}
	}

	for _, ie := range m.imports {
		dep, err := m.resolveImported(ie.ModuleRequest)
		if err != nil {
			return err
		}
		if ie.ImportName == ast.StarName {
			ns, err := dep.Namespace()
			if err != nil {
				return err
			}
			if err := bindConstant(env, ie.LocalName, vm.ObjectValue(ns)); err != nil {
				return err
			}
			continue
		}
		r, err := dep.ResolveExport(ie.ImportName, make(ResolveSet), make(StarSet))
		if err != nil {
			return err
		}
		if err := checkResolution(dep, ie.ImportName, r); err != nil {
			return err
		}
		if r.Namespace {
			ns, err := r.Module.Namespace()
			if err != nil {
				return err
			}
			if err := bindConstant(env, ie.LocalName, vm.ObjectValue(ns)); err != nil {
				return err
			}
			continue
		}
		if r.Module.env == nil {
			return errors.NewResolutionError(r.Module.id.String(), r.BindingName, "module %s is not instantiated", r.Module.id)
		}
		if err := env.CreateImportBinding(ie.LocalName, r.Module.env, r.BindingName); err != nil {
			return err
		}
	}

	cx := m.compiler.NewModuleContext(m.realm, env)
	for _, d := range m.node.Declarations {
		if ok, _ := env.HasBinding(d.Name); ok {
			// Duplicate var declarations share one binding.
			continue
		}
		var err error
		switch d.Kind {
		case ast.DeclVar:
			if err = env.CreateMutableBinding(d.Name, false); err == nil {
				err = env.InitializeBinding(d.Name, vm.Undefined)
			}
		case ast.DeclLet, ast.DeclClass:
			err = env.CreateMutableBinding(d.Name, false)
		case ast.DeclConst:
			err = env.CreateImmutableBinding(d.Name, true)
		case ast.DeclFunction:
			if err = env.CreateMutableBinding(d.Name, false); err != nil {
				break
			}
			var f *vm.FunctionObject
			if f, err = cx.Closure(d.Function); err == nil {
				err = env.InitializeBinding(d.Name, vm.ObjectValue(f))
			}
		}
		if err != nil {
			return fmt.Errorf("%s: declare %s %s: %w", m.id, d.Kind, d.Name, err)
		}
	}
	return m.unit.Init(cx)
}

func checkResolution(m *SourceTextModuleRecord, name string, r *ResolvedBinding) error {
	switch r {
	case nil:
		return errors.NewResolutionError(m.id.String(), name, "module %s does not provide an export named '%s'", m.id, name)
	case Ambiguous:
		return errors.NewResolutionError(m.id.String(), name, "export '%s' of module %s is ambiguous", name, m.id)
	}
	return nil
}

func bindConstant(env *vm.ModuleEnvironment, name string, v vm.Value) error {
	if err := env.CreateImmutableBinding(name, true); err != nil {
		return err
	}
	return env.InitializeBinding(name, v)
}

// Evaluate runs the module body after evaluating its requested modules.
// The evaluated flag is set first, so each record runs at most once even
// in a cycle. The realm's script context is restored on every exit path.
func (m *SourceTextModuleRecord) Evaluate() (vm.Value, error) {
	if m.env == nil {
		return vm.Undefined, errors.NewTypeError("module %s is not instantiated", m.id)
	}
	if m.evaluated {
		return vm.Undefined, nil
	}
	m.evaluated = true
	if !m.instantiated {
		return vm.Undefined, nil
	}
	for _, req := range m.requested {
		dep, err := m.resolveImported(req)
		if err != nil {
			return vm.Undefined, err
		}
		if _, err := dep.Evaluate(); err != nil {
			return vm.Undefined, err
		}
	}

	agent := m.realm.Agent()
	ec := &vm.ExecutionContext{
		Realm:               m.realm,
		ScriptOrModule:      m,
		LexicalEnvironment:  m.env,
		VariableEnvironment: m.env,
	}
	if err := agent.PushContext(ec); err != nil {
		return vm.Undefined, err
	}
	defer agent.PopContext()
	old := m.realm.SetScriptContext(ec)
	defer m.realm.SetScriptContext(old)

	logger := agent.Logger()
	logger.Debug().Str("module", m.id.String()).Msg("evaluating module")
	c, err := m.unit.Evaluate(m.compiler.NewModuleContext(m.realm, m.env))
	if err != nil {
		return vm.Undefined, err
	}
	return vm.Resolve(c)
}

// Namespace returns the module namespace object, creating it on first use.
// Its properties read the exported bindings live.
func (m *SourceTextModuleRecord) Namespace() (*vm.ModuleNamespace, error) {
	if m.namespace != nil {
		return m.namespace, nil
	}
	names, err := m.GetExportedNames(make(StarSet))
	if err != nil {
		return nil, err
	}
	bindings := make(map[string]*ResolvedBinding, len(names))
	unambiguous := make([]string, 0, len(names))
	for _, name := range names {
		r, err := m.ResolveExport(name, make(ResolveSet), make(StarSet))
		if err != nil {
			return nil, err
		}
		if r == nil || r == Ambiguous {
			continue
		}
		bindings[name] = r
		unambiguous = append(unambiguous, name)
	}
	m.namespace = vm.NewModuleNamespace(unambiguous, func(name string) (vm.Value, error) {
		r := bindings[name]
		if r.Namespace {
			ns, err := r.Module.Namespace()
			if err != nil {
				return vm.Undefined, err
			}
			return vm.ObjectValue(ns), nil
		}
		if r.Module.env == nil {
			return vm.Undefined, errors.NewResolutionError(r.Module.id.String(), r.BindingName, "module %s is not instantiated", r.Module.id)
		}
		return r.Module.env.GetBindingValue(r.BindingName, true)
	})
	return m.namespace, nil
}
