package driver

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"unicode"

	"esrt/pkg/modules"
)

// ModuleBuilder provides the declarative API for building native modules.
// Exported values must be JSON-encodable; they are written into the
// module's source as literals.
type ModuleBuilder struct {
	decls []nativeDecl
	names map[string]struct{}
	err   error
}

type nativeDecl struct {
	keyword string // const, let or default
	name    string
	value   any
}

// NamespaceBuilder collects the members of an exported plain object.
type NamespaceBuilder struct {
	values map[string]any
}

// NativeModule represents a module declared in Go code.
type NativeModule struct {
	name    string
	exports []string
	source  string
}

// Const adds an exported constant.
func (m *ModuleBuilder) Const(name string, value any) *ModuleBuilder {
	return m.add("const", name, value)
}

// Let adds an exported mutable binding.
func (m *ModuleBuilder) Let(name string, value any) *ModuleBuilder {
	return m.add("let", name, value)
}

// Default sets the default export.
func (m *ModuleBuilder) Default(value any) *ModuleBuilder {
	return m.add("default", "default", value)
}

// Namespace exports a constant object built by build.
func (m *ModuleBuilder) Namespace(name string, build func(ns *NamespaceBuilder)) *ModuleBuilder {
	ns := &NamespaceBuilder{values: make(map[string]any)}
	build(ns)
	return m.Const(name, ns.values)
}

// Const adds a member to the namespace object.
func (ns *NamespaceBuilder) Const(name string, value any) *NamespaceBuilder {
	ns.values[name] = value
	return ns
}

func (m *ModuleBuilder) add(keyword, name string, value any) *ModuleBuilder {
	if m.err != nil {
		return m
	}
	if keyword != "default" && !isIdentifier(name) {
		m.err = fmt.Errorf("export %q is not an identifier", name)
		return m
	}
	if _, dup := m.names[name]; dup {
		m.err = fmt.Errorf("duplicate export %q", name)
		return m
	}
	m.names[name] = struct{}{}
	m.decls = append(m.decls, nativeDecl{keyword: keyword, name: name, value: value})
	return m
}

func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r == '_' || r == '$' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}

// NewNativeModule runs build and renders the module source.
func NewNativeModule(name string, build func(m *ModuleBuilder)) (*NativeModule, error) {
	m := &ModuleBuilder{names: make(map[string]struct{})}
	build(m)
	if m.err != nil {
		return nil, fmt.Errorf("native module %s: %w", name, m.err)
	}

	var b strings.Builder
	exports := make([]string, 0, len(m.decls))
	for _, d := range m.decls {
		literal, err := json.Marshal(d.value)
		if err != nil {
			return nil, fmt.Errorf("native module %s: export %s: %w", name, d.name, err)
		}
		if d.keyword == "default" {
			fmt.Fprintf(&b, "export default %s;\n", literal)
		} else {
			fmt.Fprintf(&b, "export %s %s = %s;\n", d.keyword, d.name, literal)
		}
		exports = append(exports, d.name)
	}
	return &NativeModule{name: name, exports: exports, source: b.String()}, nil
}

func (nm *NativeModule) Name() string { return nm.name }

// Exports lists the export names in declaration order.
func (nm *NativeModule) Exports() []string { return slices.Clone(nm.exports) }

// Source returns the generated module text.
func (nm *NativeModule) Source() string { return nm.source }

// NativeModuleResolver resolves native modules by their exact name.
type NativeModuleResolver struct {
	modules  map[string]*NativeModule
	mutex    sync.RWMutex
	priority int
}

func NewNativeModuleResolver() *NativeModuleResolver {
	return &NativeModuleResolver{
		modules:  make(map[string]*NativeModule),
		priority: 10, // Ahead of memory and file system resolvers
	}
}

func (r *NativeModuleResolver) Name() string {
	return "native"
}

func (r *NativeModuleResolver) CanResolve(id modules.SourceIdentifier) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	_, exists := r.modules[string(id)]
	return exists
}

func (r *NativeModuleResolver) Priority() int {
	return r.priority
}

// RegisterModule adds or replaces a module. A module already linked by a
// loader keeps its old record.
func (r *NativeModuleResolver) RegisterModule(module *NativeModule) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.modules[module.name] = module
}

// List returns the registered module names, sorted.
func (r *NativeModuleResolver) List() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (r *NativeModuleResolver) Resolve(id modules.SourceIdentifier) (*modules.ResolvedModule, error) {
	r.mutex.RLock()
	module, exists := r.modules[string(id)]
	r.mutex.RUnlock()
	if !exists {
		return nil, fmt.Errorf("native module '%s' not found", id)
	}

	return &modules.ResolvedModule{
		ID:       id,
		Source:   io.NopCloser(strings.NewReader(module.source)),
		Resolver: r.Name(),
	}, nil
}
