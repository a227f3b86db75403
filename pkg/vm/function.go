package vm

import "fmt"

// ThisMode selects how a function binds its this value.
type ThisMode uint8

const (
	// ThisModeLexical functions (arrows) have no this binding of their own.
	ThisModeLexical ThisMode = iota
	// ThisModeStrict passes the receiver through unchanged.
	ThisModeStrict
	// ThisModeGlobal substitutes the global object for undefined or null and
	// boxes primitives.
	ThisModeGlobal
)

func (m ThisMode) String() string {
	switch m {
	case ThisModeLexical:
		return "lexical"
	case ThisModeStrict:
		return "strict"
	case ThisModeGlobal:
		return "global"
	}
	return fmt.Sprintf("ThisMode(%d)", uint8(m))
}

type ConstructorKind uint8

const (
	ConstructorBase ConstructorKind = iota
	ConstructorDerived
)

// CallEntry implements [[Call]] for a compiled function. It may return a
// pending tail call instead of a final value.
type CallEntry func(f *FunctionObject, this Value, args []Value) (Completion, error)

// ConstructEntry implements [[Construct]] for a compiled function.
type ConstructEntry func(f *FunctionObject, args []Value, newTarget Object) (Completion, error)

// FunctionConfig describes a function object to create.
type FunctionConfig struct {
	Name             string
	Length           int
	ThisMode         ThisMode
	Strict           bool
	ClassConstructor bool
	ConstructorKind  ConstructorKind
	// Env is the closure environment.
	Env        Environment
	HomeObject Object
	// Code is the backend unit, opaque to the object model.
	Code any
	// Source is the function's source text, used only for diagnostics.
	Source string
	// Proto overrides %FunctionPrototype%.
	Proto Object
}

// FunctionObject is a script function. Its [[Call]] and [[Construct]]
// behavior is installed by the compiler as entry functions.
type FunctionObject struct {
	OrdinaryObject
	realm            *Realm
	name             string
	thisMode         ThisMode
	strict           bool
	classConstructor bool
	constructorKind  ConstructorKind
	env              Environment
	homeObject       Object
	code             any
	source           string

	callEntry      CallEntry
	constructEntry ConstructEntry

	legacy bool
}

// NewFunction allocates a function object without call behavior; the
// compiler links the entries.
func NewFunction(realm *Realm, cfg FunctionConfig) *FunctionObject {
	f := &FunctionObject{
		realm:            realm,
		name:             cfg.Name,
		thisMode:         cfg.ThisMode,
		strict:           cfg.Strict,
		classConstructor: cfg.ClassConstructor,
		constructorKind:  cfg.ConstructorKind,
		env:              cfg.Env,
		homeObject:       cfg.HomeObject,
		code:             cfg.Code,
		source:           cfg.Source,
	}
	proto := cfg.Proto
	if proto == nil {
		proto = realm.Intrinsic(IntrinsicFunctionPrototype)
	}
	f.init(f, proto, "Function")
	f.props.Put(lengthKey, NewDataProperty(IntegerValue(int64(cfg.Length)), false, false, true))
	f.props.Put(StringKey("name"), NewDataProperty(NewString(cfg.Name), false, false, true))
	return f
}

func (f *FunctionObject) Realm() *Realm                    { return f.realm }
func (f *FunctionObject) Name() string                     { return f.name }
func (f *FunctionObject) ThisMode() ThisMode               { return f.thisMode }
func (f *FunctionObject) Strict() bool                     { return f.strict }
func (f *FunctionObject) IsClassConstructor() bool         { return f.classConstructor }
func (f *FunctionObject) ConstructorKind() ConstructorKind { return f.constructorKind }
func (f *FunctionObject) Environment() Environment         { return f.env }
func (f *FunctionObject) HomeObject() Object               { return f.homeObject }
func (f *FunctionObject) Code() any                        { return f.code }
func (f *FunctionObject) SourceText() string               { return f.source }
func (f *FunctionObject) IsLegacy() bool                   { return f.legacy }

func (f *FunctionObject) SetCallEntry(e CallEntry)           { f.callEntry = e }
func (f *FunctionObject) SetConstructEntry(e ConstructEntry) { f.constructEntry = e }

// IsConstructor reports whether a construct entry has been installed.
func (f *FunctionObject) IsConstructor() bool { return f.constructEntry != nil }

func (f *FunctionObject) Call(this Value, args []Value) (Value, error) {
	if f.callEntry == nil {
		return Undefined, newTypeError("%s is not callable", f.describe())
	}
	c, err := f.callEntry(f, this, args)
	if err != nil {
		return Undefined, err
	}
	return Resolve(c)
}

func (f *FunctionObject) Construct(args []Value, newTarget Object) (Object, error) {
	if f.constructEntry == nil {
		return nil, newTypeError("%s is not a constructor", f.describe())
	}
	if newTarget == nil {
		newTarget = f
	}
	c, err := f.constructEntry(f, args, newTarget)
	if err != nil {
		return nil, err
	}
	v, err := Resolve(c)
	if err != nil {
		return nil, err
	}
	o := v.AsObject()
	if o == nil {
		return nil, newTypeError("%s did not produce an object", f.describe())
	}
	return o, nil
}

func (f *FunctionObject) describe() string {
	if f.name == "" {
		return "anonymous function"
	}
	return "function " + f.name
}

// MakeConstructor gives f a "prototype" property. A nil prototype creates a
// fresh object whose "constructor" points back at f.
func MakeConstructor(f *FunctionObject, writable bool, prototype Object) {
	if prototype == nil {
		p := NewOrdinaryObject(f.realm.Intrinsic(IntrinsicObjectPrototype))
		p.props.Put(StringKey("constructor"), NewDataProperty(ObjectValue(f), writable, false, true))
		prototype = p
	}
	f.props.Put(StringKey("prototype"), NewDataProperty(ObjectValue(prototype), writable, false, false))
}

var (
	callerKey    = PropertyKey{kind: KeyString, name: "caller"}
	argumentsKey = PropertyKey{kind: KeyString, name: "arguments"}
)

// EnableLegacy adds the "caller" and "arguments" own properties of
// non-strict functions. Both read null outside a call.
func (f *FunctionObject) EnableLegacy() {
	f.legacy = true
	f.props.Put(callerKey, NewDataProperty(Null, false, false, false))
	f.props.Put(argumentsKey, NewDataProperty(Null, false, false, false))
}

// LegacyEnter publishes caller and arguments for the duration of a call and
// returns the function restoring the previous values. Callers must run it
// on every exit path.
func (f *FunctionObject) LegacyEnter(caller Value, arguments Value) (restore func()) {
	cp, ap := f.props.Get(callerKey), f.props.Get(argumentsKey)
	if cp == nil || ap == nil {
		return func() {}
	}
	oldCaller, oldArgs := cp.value, ap.value
	cp.value, ap.value = caller, arguments
	return func() {
		cp.value, ap.value = oldCaller, oldArgs
	}
}

// --- Native functions ---

// NativeFunc implements a built-in function.
type NativeFunc func(this Value, args []Value) (Value, error)

// NativeConstructFunc implements [[Construct]] for a built-in.
type NativeConstructFunc func(args []Value, newTarget Object) (Object, error)

// NativeFunction is a function implemented in Go.
type NativeFunction struct {
	OrdinaryObject
	realm *Realm
	name  string
	fn    NativeFunc
	ctor  NativeConstructFunc
}

// NewNativeFunction creates a built-in function in realm.
func NewNativeFunction(realm *Realm, name string, length int, fn NativeFunc) *NativeFunction {
	return newNativeFunction(realm, realm.Intrinsic(IntrinsicFunctionPrototype), name, length, fn)
}

func newNativeFunction(realm *Realm, proto Object, name string, length int, fn NativeFunc) *NativeFunction {
	f := &NativeFunction{realm: realm, name: name, fn: fn}
	f.init(f, proto, "Function")
	f.props.Put(lengthKey, NewDataProperty(IntegerValue(int64(length)), false, false, true))
	f.props.Put(StringKey("name"), NewDataProperty(NewString(name), false, false, true))
	return f
}

func (f *NativeFunction) Realm() *Realm { return f.realm }
func (f *NativeFunction) Name() string  { return f.name }

// SetConstructor makes f a constructor.
func (f *NativeFunction) SetConstructor(ctor NativeConstructFunc) { f.ctor = ctor }

func (f *NativeFunction) IsConstructor() bool { return f.ctor != nil }

func (f *NativeFunction) Call(this Value, args []Value) (Value, error) {
	return f.fn(this, args)
}

func (f *NativeFunction) Construct(args []Value, newTarget Object) (Object, error) {
	if f.ctor == nil {
		return nil, newTypeError("%s is not a constructor", f.name)
	}
	if newTarget == nil {
		newTarget = f
	}
	return f.ctor(args, newTarget)
}

// Arg returns args[i], or undefined when absent.
func Arg(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return Undefined
}
