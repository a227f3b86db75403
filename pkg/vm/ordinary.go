package vm

// OrdinaryObject implements the fundamental operations with the default
// algorithms. Exotic objects embed it and override the operations they
// change; self is the outermost object so the default algorithms dispatch
// back through those overrides.
type OrdinaryObject struct {
	self       Object
	proto      Object
	extensible bool
	class      string
	props      PropertyStore
}

// NewOrdinaryObject creates an extensible object with the given prototype
// (nil for none).
func NewOrdinaryObject(proto Object) *OrdinaryObject {
	o := &OrdinaryObject{}
	o.init(o, proto, "Object")
	return o
}

func (o *OrdinaryObject) init(self Object, proto Object, class string) {
	o.self = self
	o.proto = proto
	o.extensible = true
	o.class = class
}

func (o *OrdinaryObject) ordinary() *OrdinaryObject { return o }

func (o *OrdinaryObject) Class() string { return o.class }

// Properties exposes the backing store for embedders that populate
// intrinsics without going through DefineOwnProperty.
func (o *OrdinaryObject) Properties() *PropertyStore { return &o.props }

// Prototype returns the [[Prototype]] slot without dispatch.
func (o *OrdinaryObject) Prototype() Object { return o.proto }

func (o *OrdinaryObject) GetPrototypeOf() (Object, error) {
	return o.proto, nil
}

func (o *OrdinaryObject) SetPrototypeOf(proto Object) (bool, error) {
	return OrdinarySetPrototypeOf(o, proto), nil
}

func (o *OrdinaryObject) IsExtensible() (bool, error) {
	return o.extensible, nil
}

func (o *OrdinaryObject) PreventExtensions() (bool, error) {
	o.extensible = false
	return true, nil
}

func (o *OrdinaryObject) GetOwnProperty(key PropertyKey) (*Property, error) {
	return OrdinaryGetOwnProperty(o, key), nil
}

func (o *OrdinaryObject) DefineOwnProperty(key PropertyKey, desc PropertyDescriptor) (bool, error) {
	return OrdinaryDefineOwnProperty(o, key, desc)
}

func (o *OrdinaryObject) HasProperty(key PropertyKey) (bool, error) {
	return OrdinaryHasProperty(o.self, key)
}

func (o *OrdinaryObject) Get(key PropertyKey, receiver Value) (Value, error) {
	return OrdinaryGet(o.self, key, receiver)
}

func (o *OrdinaryObject) Set(key PropertyKey, value Value, receiver Value) (bool, error) {
	return OrdinarySet(o.self, key, value, receiver)
}

func (o *OrdinaryObject) Delete(key PropertyKey) (bool, error) {
	return OrdinaryDelete(o, key)
}

func (o *OrdinaryObject) OwnPropertyKeys() ([]PropertyKey, error) {
	return OrdinaryOwnPropertyKeys(o), nil
}

// --- Ordinary algorithms ---

// OrdinarySetPrototypeOf changes o's prototype unless o is non-extensible or
// the change would create a cycle. The cycle walk stops at the first object
// that does not use an ordinary prototype slot (e.g. a proxy), so cycles
// through such objects are not detected.
func OrdinarySetPrototypeOf(o *OrdinaryObject, proto Object) bool {
	if proto == o.proto {
		return true
	}
	if !o.extensible {
		return false
	}
	for p := proto; p != nil; {
		if p == o.self {
			return false
		}
		ob, ok := p.(ordinaryBacked)
		if !ok {
			break
		}
		p = ob.ordinary().proto
	}
	o.proto = proto
	return true
}

// OrdinaryGetOwnProperty returns a copy of the stored slot, or nil.
func OrdinaryGetOwnProperty(o *OrdinaryObject, key PropertyKey) *Property {
	if p := o.props.Get(key); p != nil {
		return p.Clone()
	}
	return nil
}

// OrdinaryDefineOwnProperty runs ValidateAndApplyPropertyDescriptor against
// the current own property and extensibility, both read through dispatch.
func OrdinaryDefineOwnProperty(o *OrdinaryObject, key PropertyKey, desc PropertyDescriptor) (bool, error) {
	current, err := o.self.GetOwnProperty(key)
	if err != nil {
		return false, err
	}
	extensible, err := o.self.IsExtensible()
	if err != nil {
		return false, err
	}
	return ValidateAndApplyPropertyDescriptor(o, key, extensible, desc, current), nil
}

// IsCompatiblePropertyDescriptor validates desc against current without
// applying it.
func IsCompatiblePropertyDescriptor(extensible bool, desc PropertyDescriptor, current *Property) bool {
	return ValidateAndApplyPropertyDescriptor(nil, PropertyKey{}, extensible, desc, current)
}

// ValidateAndApplyPropertyDescriptor decides whether desc may be applied on
// top of current and, when o is non-nil, applies it to o's store.
func ValidateAndApplyPropertyDescriptor(o *OrdinaryObject, key PropertyKey, extensible bool,
	desc PropertyDescriptor, current *Property) bool {
	if current == nil {
		if !extensible {
			return false
		}
		if o != nil {
			o.props.Put(key, desc.toProperty())
		}
		return true
	}
	if desc.IsEmpty() {
		return true
	}
	if desc.isSubsetOf(current) {
		return true
	}
	if !current.configurable {
		if desc.Configurable.Bool() {
			return false
		}
		if desc.Enumerable != FlagNotSet && desc.Enumerable.Bool() != current.enumerable {
			return false
		}
	}
	convert := false
	switch {
	case desc.IsGenericDescriptor():
	case current.IsData() != desc.IsDataDescriptor():
		if !current.configurable {
			return false
		}
		convert = true
	case current.IsData():
		if !current.configurable && !current.writable {
			if desc.Writable.Bool() {
				return false
			}
			if desc.HasValue && !SameValue(desc.Value, current.value) {
				return false
			}
		}
	default:
		if !current.configurable {
			if desc.HasSetter && desc.Setter.AsObject() != current.setter {
				return false
			}
			if desc.HasGetter && desc.Getter.AsObject() != current.getter {
				return false
			}
		}
	}
	if o == nil {
		return true
	}
	stored := o.props.Get(key)
	if stored == nil {
		// current was synthesized by an exotic GetOwnProperty; materialize it.
		stored = current.Clone()
		o.props.Put(key, stored)
	}
	if convert {
		if stored.IsData() {
			stored.toAccessor()
		} else {
			stored.toData()
		}
	}
	stored.apply(desc)
	return true
}

// OrdinaryHasProperty checks own properties and then the prototype chain.
func OrdinaryHasProperty(o Object, key PropertyKey) (bool, error) {
	own, err := o.GetOwnProperty(key)
	if err != nil {
		return false, err
	}
	if own != nil {
		return true, nil
	}
	parent, err := o.GetPrototypeOf()
	if err != nil || parent == nil {
		return false, err
	}
	return parent.HasProperty(key)
}

// OrdinaryGet reads key, walking the prototype chain, and calls getters
// with receiver as this.
func OrdinaryGet(o Object, key PropertyKey, receiver Value) (Value, error) {
	desc, err := o.GetOwnProperty(key)
	if err != nil {
		return Undefined, err
	}
	if desc == nil {
		parent, err := o.GetPrototypeOf()
		if err != nil || parent == nil {
			return Undefined, err
		}
		return parent.Get(key, receiver)
	}
	if desc.IsData() {
		return desc.value, nil
	}
	if desc.getter == nil {
		return Undefined, nil
	}
	return Call(ObjectValue(desc.getter), receiver, nil)
}

// OrdinarySet assigns key on receiver following the found property's
// attributes. New properties on the receiver are created with
// CreateDataProperty so the receiver's own invariants apply.
func OrdinarySet(o Object, key PropertyKey, value Value, receiver Value) (bool, error) {
	ownDesc, err := o.GetOwnProperty(key)
	if err != nil {
		return false, err
	}
	if ownDesc == nil {
		parent, err := o.GetPrototypeOf()
		if err != nil {
			return false, err
		}
		if parent != nil {
			return parent.Set(key, value, receiver)
		}
		ownDesc = NewDataProperty(Undefined, true, true, true)
	}
	if ownDesc.IsData() {
		if !ownDesc.writable {
			return false, nil
		}
		recv := receiver.AsObject()
		if recv == nil {
			return false, nil
		}
		existing, err := recv.GetOwnProperty(key)
		if err != nil {
			return false, err
		}
		if existing != nil {
			if existing.IsAccessor() || !existing.writable {
				return false, nil
			}
			return recv.DefineOwnProperty(key, ValueDescriptor(value))
		}
		return CreateDataProperty(recv, key, value)
	}
	if ownDesc.setter == nil {
		return false, nil
	}
	if _, err := Call(ObjectValue(ownDesc.setter), receiver, []Value{value}); err != nil {
		return false, err
	}
	return true, nil
}

// OrdinaryDelete removes a configurable own property. Absent keys succeed.
func OrdinaryDelete(o *OrdinaryObject, key PropertyKey) (bool, error) {
	desc, err := o.self.GetOwnProperty(key)
	if err != nil {
		return false, err
	}
	if desc == nil {
		return true, nil
	}
	if desc.configurable {
		o.props.Remove(key)
		return true, nil
	}
	return false, nil
}

// OrdinaryOwnPropertyKeys lists indices ascending, then strings and symbols
// in insertion order.
func OrdinaryOwnPropertyKeys(o *OrdinaryObject) []PropertyKey {
	return o.props.Keys()
}
