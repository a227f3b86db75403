package vm

// NewArgumentsObject creates an unmapped arguments object holding args.
// In non-strict functions callee refers to f; strict functions get a
// poisoned accessor instead.
func NewArgumentsObject(realm *Realm, f *FunctionObject, args []Value) *OrdinaryObject {
	o := NewOrdinaryObject(realm.Intrinsic(IntrinsicObjectPrototype))
	o.class = "Arguments"
	o.props.Put(lengthKey, NewDataProperty(IntegerValue(int64(len(args))), true, false, true))
	for i, v := range args {
		o.props.Put(IndexKey(uint64(i)), NewDataProperty(v, true, true, true))
	}
	calleeKey := StringKey("callee")
	if f == nil || f.strict {
		thrower := realm.throwTypeError()
		o.props.Put(calleeKey, NewAccessorProperty(thrower, thrower, false, false))
	} else {
		o.props.Put(calleeKey, NewDataProperty(ObjectValue(f), true, false, true))
	}
	return o
}

// throwTypeError returns the realm's %ThrowTypeError% function.
func (r *Realm) throwTypeError() *NativeFunction {
	if r.thrower == nil {
		r.thrower = NewNativeFunction(r, "", 0, func(Value, []Value) (Value, error) {
			return Undefined, newTypeError("'caller', 'callee', and 'arguments' properties may not be accessed on strict mode functions or the arguments objects for calls to them")
		})
		r.thrower.extensible = false
	}
	return r.thrower
}
