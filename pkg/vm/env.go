package vm

import (
	"esrt/pkg/errors"
)

// Environment is an environment record: a scope of name bindings with an
// optional outer scope.
type Environment interface {
	Outer() Environment
	HasBinding(name string) (bool, error)
	CreateMutableBinding(name string, deletable bool) error
	CreateImmutableBinding(name string, strict bool) error
	InitializeBinding(name string, v Value) error
	SetMutableBinding(name string, v Value, strict bool) error
	GetBindingValue(name string, strict bool) (Value, error)
	DeleteBinding(name string) (bool, error)
	HasThisBinding() bool
}

type binding struct {
	value       Value
	initialized bool
	mutable     bool
	deletable   bool
	strict      bool

	// import bindings forward to a binding in another module environment
	target     Environment
	targetName string
}

// DeclarativeEnvironment holds bindings created by declarations.
type DeclarativeEnvironment struct {
	outer    Environment
	bindings map[string]*binding
	names    []string
}

func NewDeclarativeEnvironment(outer Environment) *DeclarativeEnvironment {
	return &DeclarativeEnvironment{outer: outer, bindings: make(map[string]*binding)}
}

func (e *DeclarativeEnvironment) Outer() Environment { return e.outer }

// Names returns binding names in creation order.
func (e *DeclarativeEnvironment) Names() []string {
	out := make([]string, 0, len(e.bindings))
	for _, n := range e.names {
		if _, ok := e.bindings[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

func (e *DeclarativeEnvironment) HasBinding(name string) (bool, error) {
	_, ok := e.bindings[name]
	return ok, nil
}

func (e *DeclarativeEnvironment) add(name string, b *binding) error {
	if _, ok := e.bindings[name]; ok {
		return errors.NewTypeError("binding %q already declared", name)
	}
	e.bindings[name] = b
	e.names = append(e.names, name)
	return nil
}

func (e *DeclarativeEnvironment) CreateMutableBinding(name string, deletable bool) error {
	return e.add(name, &binding{mutable: true, deletable: deletable})
}

func (e *DeclarativeEnvironment) CreateImmutableBinding(name string, strict bool) error {
	return e.add(name, &binding{strict: strict})
}

func (e *DeclarativeEnvironment) InitializeBinding(name string, v Value) error {
	b, ok := e.bindings[name]
	if !ok {
		return errors.NewReferenceError(name, "%s is not defined", name)
	}
	b.value = v
	b.initialized = true
	return nil
}

func (e *DeclarativeEnvironment) SetMutableBinding(name string, v Value, strict bool) error {
	b, ok := e.bindings[name]
	if !ok {
		if strict {
			return errors.NewReferenceError(name, "%s is not defined", name)
		}
		if err := e.CreateMutableBinding(name, true); err != nil {
			return err
		}
		return e.InitializeBinding(name, v)
	}
	if b.strict {
		strict = true
	}
	switch {
	case b.target != nil:
		return errors.NewTypeError("assignment to constant variable %q", name)
	case !b.initialized:
		return errors.NewReferenceError(name, "cannot access '%s' before initialization", name)
	case b.mutable:
		b.value = v
	case strict:
		return errors.NewTypeError("assignment to constant variable %q", name)
	}
	return nil
}

func (e *DeclarativeEnvironment) GetBindingValue(name string, strict bool) (Value, error) {
	b, ok := e.bindings[name]
	if !ok {
		return Undefined, errors.NewReferenceError(name, "%s is not defined", name)
	}
	if !b.initialized {
		return Undefined, errors.NewReferenceError(name, "cannot access '%s' before initialization", name)
	}
	return b.value, nil
}

func (e *DeclarativeEnvironment) DeleteBinding(name string) (bool, error) {
	b, ok := e.bindings[name]
	if !ok {
		return true, nil
	}
	if !b.deletable {
		return false, nil
	}
	delete(e.bindings, name)
	return true, nil
}

func (e *DeclarativeEnvironment) HasThisBinding() bool { return false }

// --- Function environments ---

type ThisBindingStatus uint8

const (
	ThisLexical ThisBindingStatus = iota
	ThisUninitialized
	ThisInitialized
)

// FunctionEnvironment is the top-level scope of a function call. It owns
// the call's this binding unless the function is an arrow function.
type FunctionEnvironment struct {
	DeclarativeEnvironment
	thisStatus ThisBindingStatus
	thisValue  Value
	function   *FunctionObject
	newTarget  Object
}

// NewFunctionEnvironment creates the environment for a call of f. newTarget
// is nil for [[Call]].
func NewFunctionEnvironment(f *FunctionObject, newTarget Object) *FunctionEnvironment {
	env := &FunctionEnvironment{
		DeclarativeEnvironment: DeclarativeEnvironment{outer: f.env, bindings: make(map[string]*binding)},
		function:               f,
		newTarget:              newTarget,
		thisStatus:             ThisUninitialized,
	}
	if f.thisMode == ThisModeLexical {
		env.thisStatus = ThisLexical
	}
	return env
}

func (e *FunctionEnvironment) HasThisBinding() bool { return e.thisStatus != ThisLexical }

// ThisBound reports whether the this binding has been initialized.
func (e *FunctionEnvironment) ThisBound() bool { return e.thisStatus == ThisInitialized }

// BindThisValue initializes the this binding. Binding twice is an error,
// which is how a second super() call in a derived constructor fails.
func (e *FunctionEnvironment) BindThisValue(v Value) error {
	if e.thisStatus == ThisLexical {
		return errors.NewTypeError("arrow functions have no this binding")
	}
	if e.thisStatus == ThisInitialized {
		return errors.NewReferenceError("this", "super constructor may only be called once")
	}
	e.thisValue = v
	e.thisStatus = ThisInitialized
	return nil
}

// GetThisBinding returns the this value, failing while uninitialized.
func (e *FunctionEnvironment) GetThisBinding() (Value, error) {
	if e.thisStatus == ThisUninitialized {
		return Undefined, errors.NewReferenceError("this", "must call super constructor before accessing 'this'")
	}
	return e.thisValue, nil
}

func (e *FunctionEnvironment) Function() *FunctionObject { return e.function }
func (e *FunctionEnvironment) NewTarget() Object         { return e.newTarget }

// --- Module environments ---

// ModuleEnvironment is the top-level scope of a module. Besides ordinary
// bindings it holds immutable import bindings that forward to a binding in
// another module's environment.
type ModuleEnvironment struct {
	DeclarativeEnvironment
	module string
}

// NewModuleEnvironment creates the environment of the named module.
func NewModuleEnvironment(outer Environment, module string) *ModuleEnvironment {
	return &ModuleEnvironment{
		DeclarativeEnvironment: DeclarativeEnvironment{outer: outer, bindings: make(map[string]*binding)},
		module:                 module,
	}
}

// CreateImportBinding creates an initialized, immutable binding that reads
// through to targetName in target.
func (e *ModuleEnvironment) CreateImportBinding(name string, target Environment, targetName string) error {
	return e.add(name, &binding{initialized: true, strict: true, target: target, targetName: targetName})
}

func (e *ModuleEnvironment) GetBindingValue(name string, strict bool) (Value, error) {
	b, ok := e.bindings[name]
	if !ok {
		return Undefined, errors.NewReferenceError(name, "%s is not defined", name)
	}
	if b.target != nil {
		return b.target.GetBindingValue(b.targetName, true)
	}
	if !b.initialized {
		return Undefined, errors.NewResolutionError(e.module, name, "binding '%s' is not initialized", name)
	}
	return b.value, nil
}

func (e *ModuleEnvironment) HasThisBinding() bool { return true }

// GetThisBinding returns undefined; module code has no this value.
func (e *ModuleEnvironment) GetThisBinding() (Value, error) { return Undefined, nil }

// Module returns the source identifier of the owning module.
func (e *ModuleEnvironment) Module() string { return e.module }

// --- Global environment ---

// GlobalEnvironment combines the global object's properties with a
// declarative record for lexical top-level declarations.
type GlobalEnvironment struct {
	global *OrdinaryObject
	decl   *DeclarativeEnvironment
}

func NewGlobalEnvironment(global *OrdinaryObject) *GlobalEnvironment {
	return &GlobalEnvironment{global: global, decl: NewDeclarativeEnvironment(nil)}
}

func (e *GlobalEnvironment) Outer() Environment { return nil }

func (e *GlobalEnvironment) HasBinding(name string) (bool, error) {
	if ok, _ := e.decl.HasBinding(name); ok {
		return true, nil
	}
	return e.global.HasProperty(StringKey(name))
}

func (e *GlobalEnvironment) CreateMutableBinding(name string, deletable bool) error {
	return e.decl.CreateMutableBinding(name, deletable)
}

func (e *GlobalEnvironment) CreateImmutableBinding(name string, strict bool) error {
	return e.decl.CreateImmutableBinding(name, strict)
}

// CreateGlobalVarBinding defines a var-style binding as a property of the
// global object.
func (e *GlobalEnvironment) CreateGlobalVarBinding(name string, deletable bool) error {
	key := StringKey(name)
	has, err := HasOwnProperty(e.global, key)
	if err != nil || has {
		return err
	}
	return DefinePropertyOrThrow(e.global, key, DataDescriptor(Undefined, true, true, deletable))
}

func (e *GlobalEnvironment) InitializeBinding(name string, v Value) error {
	if ok, _ := e.decl.HasBinding(name); ok {
		return e.decl.InitializeBinding(name, v)
	}
	return SetOrThrow(e.global, StringKey(name), v)
}

func (e *GlobalEnvironment) SetMutableBinding(name string, v Value, strict bool) error {
	if ok, _ := e.decl.HasBinding(name); ok {
		return e.decl.SetMutableBinding(name, v, strict)
	}
	key := StringKey(name)
	if strict {
		has, err := e.global.HasProperty(key)
		if err != nil {
			return err
		}
		if !has {
			return errors.NewReferenceError(name, "%s is not defined", name)
		}
		return SetOrThrow(e.global, key, v)
	}
	_, err := e.global.Set(key, v, ObjectValue(e.global))
	return err
}

func (e *GlobalEnvironment) GetBindingValue(name string, strict bool) (Value, error) {
	if ok, _ := e.decl.HasBinding(name); ok {
		return e.decl.GetBindingValue(name, strict)
	}
	key := StringKey(name)
	has, err := e.global.HasProperty(key)
	if err != nil {
		return Undefined, err
	}
	if !has {
		return Undefined, errors.NewReferenceError(name, "%s is not defined", name)
	}
	return e.global.Get(key, ObjectValue(e.global))
}

func (e *GlobalEnvironment) DeleteBinding(name string) (bool, error) {
	if ok, _ := e.decl.HasBinding(name); ok {
		return e.decl.DeleteBinding(name)
	}
	return e.global.Delete(StringKey(name))
}

func (e *GlobalEnvironment) HasThisBinding() bool { return true }

// GetThisBinding returns the global object.
func (e *GlobalEnvironment) GetThisBinding() (Value, error) {
	return ObjectValue(e.global), nil
}
