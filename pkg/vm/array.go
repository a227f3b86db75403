package vm

import "esrt/pkg/errors"

var lengthKey = PropertyKey{kind: KeyString, name: "length"}

// ArrayObject is the Array exotic object: defining an index at or past the
// length grows "length", and writing a smaller "length" deletes elements
// from the top.
type ArrayObject struct {
	OrdinaryObject
}

// NewArrayObject creates an empty array with the given prototype.
func NewArrayObject(proto Object) *ArrayObject {
	a := &ArrayObject{}
	a.init(a, proto, "Array")
	a.props.Put(lengthKey, NewDataProperty(IntegerValue(0), true, false, false))
	return a
}

// CreateArrayFromList builds an array in realm holding values.
func CreateArrayFromList(realm *Realm, values []Value) *ArrayObject {
	a := NewArrayObject(realm.Intrinsic(IntrinsicArrayPrototype))
	for i, v := range values {
		a.props.Put(IndexKey(uint64(i)), NewDataProperty(v, true, true, true))
	}
	a.props.Get(lengthKey).value = IntegerValue(int64(len(values)))
	return a
}

// Length returns the current value of the length property.
func (a *ArrayObject) Length() uint64 {
	return uint64(a.props.Get(lengthKey).value.AsNumber())
}

func (a *ArrayObject) DefineOwnProperty(key PropertyKey, desc PropertyDescriptor) (bool, error) {
	if key == lengthKey {
		return a.setLength(desc)
	}
	if key.IsArrayIndex() {
		lenProp := a.props.Get(lengthKey)
		oldLen := uint64(lenProp.value.AsNumber())
		if key.index >= oldLen && !lenProp.writable {
			return false, nil
		}
		ok, err := OrdinaryDefineOwnProperty(&a.OrdinaryObject, key, desc)
		if err != nil || !ok {
			return false, err
		}
		if key.index >= oldLen {
			lenProp.value = IntegerValue(int64(key.index + 1))
		}
		return true, nil
	}
	return OrdinaryDefineOwnProperty(&a.OrdinaryObject, key, desc)
}

// setLength implements ArraySetLength.
func (a *ArrayObject) setLength(desc PropertyDescriptor) (bool, error) {
	if !desc.HasValue {
		return OrdinaryDefineOwnProperty(&a.OrdinaryObject, lengthKey, desc)
	}
	num, err := ToNumber(desc.Value)
	if err != nil {
		return false, err
	}
	newLen := ToUint32(num)
	if float64(newLen) != num {
		return false, errors.NewRangeError("invalid array length")
	}
	newLenDesc := desc
	newLenDesc.Value = IntegerValue(int64(newLen))

	lenProp := a.props.Get(lengthKey)
	oldLen := uint64(lenProp.value.AsNumber())
	if uint64(newLen) >= oldLen {
		return OrdinaryDefineOwnProperty(&a.OrdinaryObject, lengthKey, newLenDesc)
	}
	if !lenProp.writable {
		return false, nil
	}
	newWritable := newLenDesc.Writable != FlagFalse
	if !newWritable {
		newLenDesc.Writable = FlagTrue
	}
	ok, err := OrdinaryDefineOwnProperty(&a.OrdinaryObject, lengthKey, newLenDesc)
	if err != nil || !ok {
		return false, err
	}

	indices := a.props.Indices()
	for i := len(indices) - 1; i >= 0; i-- {
		idx := indices[i]
		if idx < uint64(newLen) {
			break
		}
		if idx > maxArrayIndex {
			continue
		}
		deleted, err := a.Delete(IndexKey(idx))
		if err != nil {
			return false, err
		}
		if !deleted {
			lenProp.value = IntegerValue(int64(idx + 1))
			if !newWritable {
				lenProp.writable = false
			}
			return false, nil
		}
	}
	if !newWritable {
		lenProp.writable = false
	}
	return true, nil
}
