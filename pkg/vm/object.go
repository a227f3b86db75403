package vm

import (
	"esrt/pkg/errors"
)

// Object is the capability shared by every script object: the fundamental
// internal methods. Operations whose algorithm reports failure as a boolean
// return false with a nil error; errors are reserved for thrown
// completions (TypeErrors from proxy invariants, exceptions from getters
// and traps).
type Object interface {
	GetPrototypeOf() (Object, error)
	SetPrototypeOf(proto Object) (bool, error)
	IsExtensible() (bool, error)
	PreventExtensions() (bool, error)
	GetOwnProperty(key PropertyKey) (*Property, error)
	DefineOwnProperty(key PropertyKey, desc PropertyDescriptor) (bool, error)
	HasProperty(key PropertyKey) (bool, error)
	Get(key PropertyKey, receiver Value) (Value, error)
	Set(key PropertyKey, value Value, receiver Value) (bool, error)
	Delete(key PropertyKey) (bool, error)
	OwnPropertyKeys() ([]PropertyKey, error)

	// Class names the object's kind for diagnostics, e.g. "Object".
	Class() string
}

// Callable objects have a [[Call]] internal method.
type Callable interface {
	Object
	Call(this Value, args []Value) (Value, error)
}

// Constructor objects have a [[Construct]] internal method.
type Constructor interface {
	Callable
	Construct(args []Value, newTarget Object) (Object, error)
}

// constructorChecker lets callable objects decide at runtime whether they
// are constructors (proxies, functions without a construct entry).
type constructorChecker interface {
	IsConstructor() bool
}

// ordinaryBacked is implemented by objects whose prototype link is an
// ordinary [[Prototype]] slot. The SetPrototypeOf cycle walk follows only
// these.
type ordinaryBacked interface {
	ordinary() *OrdinaryObject
}

func newTypeError(format string, args ...any) error {
	return errors.NewTypeError(format, args...)
}

func IsCallable(v Value) bool {
	_, ok := v.AsObject().(Callable)
	return ok
}

func IsConstructor(v Value) bool {
	o := v.AsObject()
	if o == nil {
		return false
	}
	if c, ok := o.(constructorChecker); ok {
		return c.IsConstructor()
	}
	_, ok := o.(Constructor)
	return ok
}

// Call invokes f with the given receiver.
func Call(f Value, this Value, args []Value) (Value, error) {
	c, ok := f.AsObject().(Callable)
	if !ok {
		return Undefined, newTypeError("%s is not a function", f.TypeName())
	}
	return c.Call(this, args)
}

// Construct invokes f as a constructor. A nil newTarget defaults to f.
func Construct(f Object, args []Value, newTarget Object) (Object, error) {
	if !IsConstructor(ObjectValue(f)) {
		return nil, newTypeError("%s is not a constructor", f.Class())
	}
	if newTarget == nil {
		newTarget = f
	}
	return f.(Constructor).Construct(args, newTarget)
}

// GetMethod returns the callable at key, or nil when it is undefined or null.
func GetMethod(o Object, key PropertyKey) (Value, error) {
	fn, err := o.Get(key, ObjectValue(o))
	if err != nil {
		return Undefined, err
	}
	if fn.IsNullish() {
		return Undefined, nil
	}
	if !IsCallable(fn) {
		return Undefined, newTypeError("%s is not a function", key)
	}
	return fn, nil
}

// GetV reads key from o with o as receiver.
func GetV(o Object, key PropertyKey) (Value, error) {
	return o.Get(key, ObjectValue(o))
}

// CreateDataProperty defines a writable, enumerable, configurable data
// property, reporting failure as false.
func CreateDataProperty(o Object, key PropertyKey, v Value) (bool, error) {
	return o.DefineOwnProperty(key, DataDescriptor(v, true, true, true))
}

func CreateDataPropertyOrThrow(o Object, key PropertyKey, v Value) error {
	ok, err := CreateDataProperty(o, key, v)
	if err != nil {
		return err
	}
	if !ok {
		return newTypeError("cannot define property %s", key)
	}
	return nil
}

func DefinePropertyOrThrow(o Object, key PropertyKey, desc PropertyDescriptor) error {
	ok, err := o.DefineOwnProperty(key, desc)
	if err != nil {
		return err
	}
	if !ok {
		return newTypeError("cannot redefine property: %s", key)
	}
	return nil
}

func DeletePropertyOrThrow(o Object, key PropertyKey) error {
	ok, err := o.Delete(key)
	if err != nil {
		return err
	}
	if !ok {
		return newTypeError("cannot delete property '%s' of %s", key, o.Class())
	}
	return nil
}

// SetOrThrow performs Set with o as receiver and converts a false result
// into a TypeError, as strict-mode assignment does.
func SetOrThrow(o Object, key PropertyKey, v Value) error {
	ok, err := o.Set(key, v, ObjectValue(o))
	if err != nil {
		return err
	}
	if !ok {
		return newTypeError("cannot assign to read only property '%s' of %s", key, o.Class())
	}
	return nil
}

// HasOwnProperty reports whether o has an own property at key.
func HasOwnProperty(o Object, key PropertyKey) (bool, error) {
	p, err := o.GetOwnProperty(key)
	return p != nil, err
}

// IntegrityLevel selects SetIntegrityLevel's target state.
type IntegrityLevel uint8

const (
	Sealed IntegrityLevel = iota
	Frozen
)

// SetIntegrityLevel seals or freezes o.
func SetIntegrityLevel(o Object, level IntegrityLevel) (bool, error) {
	ok, err := o.PreventExtensions()
	if err != nil || !ok {
		return false, err
	}
	keys, err := o.OwnPropertyKeys()
	if err != nil {
		return false, err
	}
	for _, k := range keys {
		desc := PropertyDescriptor{Configurable: FlagFalse}
		if level == Frozen {
			cur, err := o.GetOwnProperty(k)
			if err != nil {
				return false, err
			}
			if cur == nil {
				continue
			}
			if cur.IsData() {
				desc.Writable = FlagFalse
			}
		}
		if err := DefinePropertyOrThrow(o, k, desc); err != nil {
			return false, err
		}
	}
	return true, nil
}

// TestIntegrityLevel reports whether o is sealed or frozen.
func TestIntegrityLevel(o Object, level IntegrityLevel) (bool, error) {
	ext, err := o.IsExtensible()
	if err != nil || ext {
		return false, err
	}
	keys, err := o.OwnPropertyKeys()
	if err != nil {
		return false, err
	}
	for _, k := range keys {
		cur, err := o.GetOwnProperty(k)
		if err != nil {
			return false, err
		}
		if cur == nil {
			continue
		}
		if cur.Configurable() {
			return false, nil
		}
		if level == Frozen && cur.IsData() && cur.Writable() {
			return false, nil
		}
	}
	return true, nil
}

// ToPropertyDescriptor reads a descriptor object the way
// Object.defineProperty does.
func ToPropertyDescriptor(v Value) (PropertyDescriptor, error) {
	var desc PropertyDescriptor
	o := v.AsObject()
	if o == nil {
		return desc, newTypeError("property description must be an object: %s", v)
	}
	flag := func(name string, dst *Flag) error {
		key := StringKey(name)
		has, err := o.HasProperty(key)
		if err != nil || !has {
			return err
		}
		val, err := o.Get(key, v)
		if err != nil {
			return err
		}
		*dst = ToFlag(ToBoolean(val))
		return nil
	}
	field := func(name string, dst *Value, present *bool) error {
		key := StringKey(name)
		has, err := o.HasProperty(key)
		if err != nil || !has {
			return err
		}
		val, err := o.Get(key, v)
		if err != nil {
			return err
		}
		*dst, *present = val, true
		return nil
	}
	if err := flag("enumerable", &desc.Enumerable); err != nil {
		return desc, err
	}
	if err := flag("configurable", &desc.Configurable); err != nil {
		return desc, err
	}
	if err := field("value", &desc.Value, &desc.HasValue); err != nil {
		return desc, err
	}
	if err := flag("writable", &desc.Writable); err != nil {
		return desc, err
	}
	if err := field("get", &desc.Getter, &desc.HasGetter); err != nil {
		return desc, err
	}
	if desc.HasGetter && !desc.Getter.IsUndefined() && !IsCallable(desc.Getter) {
		return desc, newTypeError("getter must be a function: %s", desc.Getter)
	}
	if err := field("set", &desc.Setter, &desc.HasSetter); err != nil {
		return desc, err
	}
	if desc.HasSetter && !desc.Setter.IsUndefined() && !IsCallable(desc.Setter) {
		return desc, newTypeError("setter must be a function: %s", desc.Setter)
	}
	if desc.IsAccessorDescriptor() && desc.IsDataDescriptor() {
		return desc, newTypeError("invalid property descriptor: cannot both specify accessors and a value or writable attribute")
	}
	return desc, nil
}

// FromPropertyDescriptor builds a descriptor object in realm.
func FromPropertyDescriptor(realm *Realm, desc PropertyDescriptor) Value {
	o := NewOrdinaryObject(realm.Intrinsic(IntrinsicObjectPrototype))
	put := func(name string, v Value) {
		o.props.Put(StringKey(name), NewDataProperty(v, true, true, true))
	}
	if desc.HasValue {
		put("value", desc.Value)
	}
	if desc.Writable != FlagNotSet {
		put("writable", BooleanValue(desc.Writable.Bool()))
	}
	if desc.HasGetter {
		put("get", desc.Getter)
	}
	if desc.HasSetter {
		put("set", desc.Setter)
	}
	if desc.Enumerable != FlagNotSet {
		put("enumerable", BooleanValue(desc.Enumerable.Bool()))
	}
	if desc.Configurable != FlagNotSet {
		put("configurable", BooleanValue(desc.Configurable.Bool()))
	}
	return ObjectValue(o)
}

// CreateListFromArrayLike reads length and indices from an array-like
// object. When onlyKeys is set, every element must be a string or symbol.
func CreateListFromArrayLike(v Value, onlyKeys bool) ([]Value, error) {
	o := v.AsObject()
	if o == nil {
		return nil, newTypeError("CreateListFromArrayLike called on non-object")
	}
	lenVal, err := o.Get(StringKey("length"), v)
	if err != nil {
		return nil, err
	}
	n, err := ToNumber(lenVal)
	if err != nil {
		return nil, err
	}
	length := ToLength(n)
	list := make([]Value, 0, min(length, 1024))
	for i := uint64(0); i < length; i++ {
		el, err := o.Get(IndexKey(i), v)
		if err != nil {
			return nil, err
		}
		if onlyKeys && !el.IsString() && !el.IsSymbol() {
			return nil, newTypeError("%s is not a valid property name", el.Inspect())
		}
		list = append(list, el)
	}
	return list, nil
}

// OrdinaryCreateFromConstructor allocates an ordinary object whose
// prototype is read from constructor.prototype, falling back to the given
// intrinsic of the constructor's realm.
func OrdinaryCreateFromConstructor(constructor Object, fallback Intrinsic) (*OrdinaryObject, error) {
	proto, err := GetPrototypeFromConstructor(constructor, fallback)
	if err != nil {
		return nil, err
	}
	return NewOrdinaryObject(proto), nil
}

// GetPrototypeFromConstructor reads constructor.prototype; when it is not an
// object the fallback intrinsic of the constructor's realm is used.
func GetPrototypeFromConstructor(constructor Object, fallback Intrinsic) (Object, error) {
	proto, err := constructor.Get(StringKey("prototype"), ObjectValue(constructor))
	if err != nil {
		return nil, err
	}
	if o := proto.AsObject(); o != nil {
		return o, nil
	}
	realm, err := GetFunctionRealm(constructor)
	if err != nil {
		return nil, err
	}
	return realm.Intrinsic(fallback), nil
}

// realmOwner is implemented by function objects that remember their realm.
type realmOwner interface {
	Realm() *Realm
}

// GetFunctionRealm returns the realm a constructor was created in,
// unwrapping proxies.
func GetFunctionRealm(o Object) (*Realm, error) {
	switch f := o.(type) {
	case proxyBacked:
		p := f.proxy()
		if p.target == nil {
			return nil, newTypeError("cannot perform 'GetFunctionRealm' on a proxy that has been revoked")
		}
		return GetFunctionRealm(p.target)
	case realmOwner:
		return f.Realm(), nil
	}
	return nil, newTypeError("%s has no realm", o.Class())
}
