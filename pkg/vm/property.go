package vm

type PropertyKind uint8

const (
	DataProperty PropertyKind = iota
	AccessorProperty
)

func (k PropertyKind) String() string {
	if k == AccessorProperty {
		return "accessor"
	}
	return "data"
}

// Property is one stored slot. It is either a data property or an accessor
// property; the fields of the other kind are kept zero. Conversions go
// through toAccessor and toData only.
type Property struct {
	kind         PropertyKind
	value        Value
	getter       Object
	setter       Object
	writable     bool
	enumerable   bool
	configurable bool
}

func NewDataProperty(value Value, writable, enumerable, configurable bool) *Property {
	return &Property{
		kind:         DataProperty,
		value:        value,
		writable:     writable,
		enumerable:   enumerable,
		configurable: configurable,
	}
}

// NewAccessorProperty creates an accessor slot. A nil getter or setter
// means undefined.
func NewAccessorProperty(getter, setter Object, enumerable, configurable bool) *Property {
	return &Property{
		kind:         AccessorProperty,
		getter:       getter,
		setter:       setter,
		enumerable:   enumerable,
		configurable: configurable,
	}
}

func (p *Property) Kind() PropertyKind { return p.kind }
func (p *Property) IsData() bool       { return p.kind == DataProperty }
func (p *Property) IsAccessor() bool   { return p.kind == AccessorProperty }
func (p *Property) Value() Value       { return p.value }
func (p *Property) Getter() Object     { return p.getter }
func (p *Property) Setter() Object     { return p.setter }
func (p *Property) Writable() bool     { return p.writable }
func (p *Property) Enumerable() bool   { return p.enumerable }
func (p *Property) Configurable() bool { return p.configurable }

// Clone returns an independent copy of the slot.
func (p *Property) Clone() *Property {
	c := *p
	return &c
}

// Descriptor returns a fully populated descriptor for the slot.
func (p *Property) Descriptor() PropertyDescriptor {
	if p.kind == AccessorProperty {
		return AccessorDescriptor(accessorValue(p.getter), accessorValue(p.setter), p.enumerable, p.configurable)
	}
	return DataDescriptor(p.value, p.writable, p.enumerable, p.configurable)
}

// accessorValue reports an absent getter or setter as undefined.
func accessorValue(fn Object) Value {
	if fn == nil {
		return Undefined
	}
	return ObjectValue(fn)
}

// toAccessor converts a data slot in place, keeping enumerable and
// configurable and resetting the accessor functions to undefined.
func (p *Property) toAccessor() {
	p.kind = AccessorProperty
	p.value = Undefined
	p.writable = false
	p.getter = nil
	p.setter = nil
}

// toData converts an accessor slot in place, keeping enumerable and
// configurable and resetting value and writable to their defaults.
func (p *Property) toData() {
	p.kind = DataProperty
	p.getter = nil
	p.setter = nil
	p.value = Undefined
	p.writable = false
}

// apply merges the fields present in desc. The kinds must already agree.
func (p *Property) apply(desc PropertyDescriptor) {
	if desc.HasValue {
		p.value = desc.Value
	}
	if desc.Writable != FlagNotSet {
		p.writable = desc.Writable.Bool()
	}
	if desc.HasGetter {
		p.getter = desc.Getter.AsObject()
	}
	if desc.HasSetter {
		p.setter = desc.Setter.AsObject()
	}
	if desc.Enumerable != FlagNotSet {
		p.enumerable = desc.Enumerable.Bool()
	}
	if desc.Configurable != FlagNotSet {
		p.configurable = desc.Configurable.Bool()
	}
}

// Flag is a tri-state descriptor attribute.
type Flag uint8

const (
	FlagNotSet Flag = iota
	FlagFalse
	FlagTrue
)

func ToFlag(b bool) Flag {
	if b {
		return FlagTrue
	}
	return FlagFalse
}

func (f Flag) Bool() bool { return f == FlagTrue }

// PropertyDescriptor is a partial description of a property. Absent fields
// are FlagNotSet or have their Has* bit cleared. Getter and Setter hold
// undefined or a callable object when present.
type PropertyDescriptor struct {
	Value  Value
	Getter Value
	Setter Value

	Writable     Flag
	Enumerable   Flag
	Configurable Flag

	HasValue  bool
	HasGetter bool
	HasSetter bool
}

// DataDescriptor returns a complete data descriptor.
func DataDescriptor(value Value, writable, enumerable, configurable bool) PropertyDescriptor {
	return PropertyDescriptor{
		Value:        value,
		HasValue:     true,
		Writable:     ToFlag(writable),
		Enumerable:   ToFlag(enumerable),
		Configurable: ToFlag(configurable),
	}
}

// AccessorDescriptor returns a complete accessor descriptor.
func AccessorDescriptor(getter, setter Value, enumerable, configurable bool) PropertyDescriptor {
	return PropertyDescriptor{
		Getter:       getter,
		HasGetter:    true,
		Setter:       setter,
		HasSetter:    true,
		Enumerable:   ToFlag(enumerable),
		Configurable: ToFlag(configurable),
	}
}

// ValueDescriptor returns a descriptor carrying only a value.
func ValueDescriptor(value Value) PropertyDescriptor {
	return PropertyDescriptor{Value: value, HasValue: true}
}

func (d PropertyDescriptor) IsAccessorDescriptor() bool {
	return d.HasGetter || d.HasSetter
}

func (d PropertyDescriptor) IsDataDescriptor() bool {
	return d.HasValue || d.Writable != FlagNotSet
}

func (d PropertyDescriptor) IsGenericDescriptor() bool {
	return !d.IsAccessorDescriptor() && !d.IsDataDescriptor()
}

// IsEmpty reports whether no field is present.
func (d PropertyDescriptor) IsEmpty() bool {
	return d.IsGenericDescriptor() && d.Enumerable == FlagNotSet && d.Configurable == FlagNotSet
}

// Complete fills absent fields with their defaults, following
// CompletePropertyDescriptor.
func (d PropertyDescriptor) Complete() PropertyDescriptor {
	if d.IsGenericDescriptor() || d.IsDataDescriptor() {
		if !d.HasValue {
			d.Value = Undefined
			d.HasValue = true
		}
		if d.Writable == FlagNotSet {
			d.Writable = FlagFalse
		}
	} else {
		if !d.HasGetter {
			d.Getter = Undefined
			d.HasGetter = true
		}
		if !d.HasSetter {
			d.Setter = Undefined
			d.HasSetter = true
		}
	}
	if d.Enumerable == FlagNotSet {
		d.Enumerable = FlagFalse
	}
	if d.Configurable == FlagNotSet {
		d.Configurable = FlagFalse
	}
	return d
}

// toProperty materializes a new slot from the descriptor. Generic and data
// descriptors produce data slots; absent fields take their defaults.
func (d PropertyDescriptor) toProperty() *Property {
	if d.IsAccessorDescriptor() {
		return NewAccessorProperty(d.Getter.AsObject(), d.Setter.AsObject(),
			d.Enumerable.Bool(), d.Configurable.Bool())
	}
	v := Undefined
	if d.HasValue {
		v = d.Value
	}
	return NewDataProperty(v, d.Writable.Bool(), d.Enumerable.Bool(), d.Configurable.Bool())
}

// isSubsetOf reports whether every field present in d already holds the
// same value in p, which makes applying d a no-op.
func (d PropertyDescriptor) isSubsetOf(p *Property) bool {
	if d.Enumerable != FlagNotSet && d.Enumerable.Bool() != p.enumerable {
		return false
	}
	if d.Configurable != FlagNotSet && d.Configurable.Bool() != p.configurable {
		return false
	}
	if d.HasValue && (!p.IsData() || !SameValue(d.Value, p.value)) {
		return false
	}
	if d.Writable != FlagNotSet && (!p.IsData() || d.Writable.Bool() != p.writable) {
		return false
	}
	if d.HasGetter && (!p.IsAccessor() || d.Getter.AsObject() != p.getter) {
		return false
	}
	if d.HasSetter && (!p.IsAccessor() || d.Setter.AsObject() != p.setter) {
		return false
	}
	return true
}
