package vm

import (
	"slices"
	"unicode/utf16"
)

// BindingLookup reads the current value of an exported binding.
type BindingLookup func(name string) (Value, error)

// ModuleNamespace is the module namespace exotic object. String keys are
// the module's exported names, each read live through lookup; symbol keys
// are ordinary properties.
type ModuleNamespace struct {
	OrdinaryObject
	exports []string
	names   map[string]struct{}
	lookup  BindingLookup
}

// NewModuleNamespace creates a namespace over exports. The names are sorted
// by UTF-16 code unit order.
func NewModuleNamespace(exports []string, lookup BindingLookup) *ModuleNamespace {
	sorted := slices.Clone(exports)
	slices.SortFunc(sorted, compareCodeUnits)
	sorted = slices.Compact(sorted)
	ns := &ModuleNamespace{
		exports: sorted,
		names:   make(map[string]struct{}, len(sorted)),
		lookup:  lookup,
	}
	for _, n := range sorted {
		ns.names[n] = struct{}{}
	}
	ns.init(ns, nil, "Module")
	ns.props.Put(SymbolKey(SymToStringTag), NewDataProperty(NewString("Module"), false, false, false))
	ns.extensible = false
	return ns
}

func compareCodeUnits(a, b string) int {
	ua, ub := utf16.Encode([]rune(a)), utf16.Encode([]rune(b))
	return slices.Compare(ua, ub)
}

// Exports returns the sorted export names.
func (ns *ModuleNamespace) Exports() []string { return slices.Clone(ns.exports) }

func (ns *ModuleNamespace) export(key PropertyKey) (string, bool) {
	if key.IsSymbol() {
		return "", false
	}
	name := key.Name()
	_, ok := ns.names[name]
	return name, ok
}

func (ns *ModuleNamespace) GetPrototypeOf() (Object, error) { return nil, nil }

func (ns *ModuleNamespace) SetPrototypeOf(proto Object) (bool, error) {
	return proto == nil, nil
}

func (ns *ModuleNamespace) IsExtensible() (bool, error) { return false, nil }

func (ns *ModuleNamespace) PreventExtensions() (bool, error) { return true, nil }

func (ns *ModuleNamespace) GetOwnProperty(key PropertyKey) (*Property, error) {
	if key.IsSymbol() {
		return OrdinaryGetOwnProperty(&ns.OrdinaryObject, key), nil
	}
	name, ok := ns.export(key)
	if !ok {
		return nil, nil
	}
	v, err := ns.lookup(name)
	if err != nil {
		return nil, err
	}
	return NewDataProperty(v, true, true, false), nil
}

func (ns *ModuleNamespace) DefineOwnProperty(key PropertyKey, desc PropertyDescriptor) (bool, error) {
	if key.IsSymbol() {
		return OrdinaryDefineOwnProperty(&ns.OrdinaryObject, key, desc)
	}
	current, err := ns.GetOwnProperty(key)
	if err != nil || current == nil {
		return false, err
	}
	switch {
	case desc.Configurable == FlagTrue,
		desc.Enumerable == FlagFalse,
		desc.IsAccessorDescriptor(),
		desc.Writable == FlagFalse:
		return false, nil
	}
	if desc.HasValue {
		return SameValue(desc.Value, current.value), nil
	}
	return true, nil
}

func (ns *ModuleNamespace) HasProperty(key PropertyKey) (bool, error) {
	if key.IsSymbol() {
		return OrdinaryGetOwnProperty(&ns.OrdinaryObject, key) != nil, nil
	}
	_, ok := ns.export(key)
	return ok, nil
}

func (ns *ModuleNamespace) Get(key PropertyKey, receiver Value) (Value, error) {
	if key.IsSymbol() {
		return OrdinaryGet(ns, key, receiver)
	}
	name, ok := ns.export(key)
	if !ok {
		return Undefined, nil
	}
	return ns.lookup(name)
}

func (ns *ModuleNamespace) Set(PropertyKey, Value, Value) (bool, error) {
	return false, nil
}

func (ns *ModuleNamespace) Delete(key PropertyKey) (bool, error) {
	if key.IsSymbol() {
		return OrdinaryDelete(&ns.OrdinaryObject, key)
	}
	_, ok := ns.export(key)
	return !ok, nil
}

func (ns *ModuleNamespace) OwnPropertyKeys() ([]PropertyKey, error) {
	keys := make([]PropertyKey, 0, len(ns.exports)+1)
	for _, n := range ns.exports {
		keys = append(keys, StringKey(n))
	}
	for _, s := range ns.props.SymbolKeys() {
		keys = append(keys, SymbolKey(s))
	}
	return keys, nil
}
