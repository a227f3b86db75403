package vm

import (
	"unicode/utf16"
)

// PrimitiveObject boxes a boolean, number, string or symbol. Boxed strings
// expose their code units as read-only index properties.
type PrimitiveObject struct {
	OrdinaryObject
	value Value
	units []uint16
}

// ToObject converts v to an object, boxing primitives with the matching
// prototype of realm. Undefined and null throw.
func ToObject(realm *Realm, v Value) (Object, error) {
	var proto Intrinsic
	var class string
	switch v.Type() {
	case TypeObject:
		return v.AsObject(), nil
	case TypeUndefined, TypeNull:
		return nil, newTypeError("cannot convert %s to object", v)
	case TypeBoolean:
		proto, class = IntrinsicBooleanPrototype, "Boolean"
	case TypeNumber:
		proto, class = IntrinsicNumberPrototype, "Number"
	case TypeString:
		proto, class = IntrinsicStringPrototype, "String"
	case TypeSymbol:
		proto, class = IntrinsicSymbolPrototype, "Symbol"
	}
	o := &PrimitiveObject{value: v}
	o.init(o, realm.Intrinsic(proto), class)
	if v.IsString() {
		o.units = utf16.Encode([]rune(v.AsString()))
		o.props.Put(lengthKey, NewDataProperty(IntegerValue(int64(len(o.units))), false, false, false))
	}
	return o, nil
}

// PrimitiveValue returns the boxed value.
func (o *PrimitiveObject) PrimitiveValue() Value { return o.value }

func (o *PrimitiveObject) stringIndex(key PropertyKey) (Value, bool) {
	if o.units == nil || !key.IsIndex() || key.Index() >= uint64(len(o.units)) {
		return Undefined, false
	}
	return NewString(string(utf16.Decode(o.units[key.Index() : key.Index()+1]))), true
}

func (o *PrimitiveObject) GetOwnProperty(key PropertyKey) (*Property, error) {
	if p := OrdinaryGetOwnProperty(&o.OrdinaryObject, key); p != nil {
		return p, nil
	}
	if ch, ok := o.stringIndex(key); ok {
		return NewDataProperty(ch, false, true, false), nil
	}
	return nil, nil
}

func (o *PrimitiveObject) DefineOwnProperty(key PropertyKey, desc PropertyDescriptor) (bool, error) {
	if ch, ok := o.stringIndex(key); ok {
		return IsCompatiblePropertyDescriptor(false, desc, NewDataProperty(ch, false, true, false)), nil
	}
	return OrdinaryDefineOwnProperty(&o.OrdinaryObject, key, desc)
}

func (o *PrimitiveObject) Delete(key PropertyKey) (bool, error) {
	if _, ok := o.stringIndex(key); ok {
		return false, nil
	}
	return OrdinaryDelete(&o.OrdinaryObject, key)
}

func (o *PrimitiveObject) OwnPropertyKeys() ([]PropertyKey, error) {
	own := OrdinaryOwnPropertyKeys(&o.OrdinaryObject)
	if len(o.units) == 0 {
		return own, nil
	}
	keys := make([]PropertyKey, 0, len(o.units)+len(own))
	for i := range o.units {
		keys = append(keys, IndexKey(uint64(i)))
	}
	return append(keys, own...), nil
}
