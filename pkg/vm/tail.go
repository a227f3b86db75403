package vm

// Completion is the result of running a function body: either a final
// value, or a pending tail call that the caller's trampoline must run.
type Completion struct {
	Value Value
	Tail  *TailCall
}

// Normal wraps a final value.
func Normal(v Value) Completion { return Completion{Value: v} }

// IsTail reports whether the completion is a pending tail call.
func (c Completion) IsTail() bool { return c.Tail != nil }

// TailCall is a call deferred to the trampoline. Then, when set, applies a
// constructor's result rule to the call's eventual value.
type TailCall struct {
	Callee Value
	This   Value
	Args   []Value
	Then   *ConstructContinuation
}

// NewTailCall creates a pending call completion.
func NewTailCall(callee, this Value, args []Value) Completion {
	return Completion{Tail: &TailCall{Callee: callee, This: this, Args: args}}
}

func (t *TailCall) invoke() (Completion, error) {
	if f, ok := t.Callee.AsObject().(*FunctionObject); ok && f.callEntry != nil {
		return f.callEntry(f, t.This, t.Args)
	}
	v, err := Call(t.Callee, t.This, t.Args)
	return Normal(v), err
}

// ConstructContinuation finishes a [[Construct]] whose body ended in a tail
// call. This is the allocated this value of a base constructor; Env is the
// function environment a derived constructor reads this from.
type ConstructContinuation struct {
	This    Value
	Env     *FunctionEnvironment
	Derived bool
}

// Finish applies the construct result rule to the body's value v.
func (k *ConstructContinuation) Finish(v Value) (Value, error) {
	if v.IsObject() {
		return v, nil
	}
	if !k.Derived {
		return k.This, nil
	}
	if !v.IsUndefined() {
		return Undefined, newTypeError("derived constructors may only return object or undefined")
	}
	if k.Env == nil || !k.Env.ThisBound() {
		return Undefined, newTypeError("must call super constructor in derived class before returning")
	}
	return k.Env.GetThisBinding()
}

// Resolve runs pending tail calls until a final value is produced, then
// applies any construct continuations collected on the way, innermost
// first.
func Resolve(c Completion) (Value, error) {
	var pending []*ConstructContinuation
	for c.Tail != nil {
		t := c.Tail
		if t.Then != nil {
			pending = append(pending, t.Then)
		}
		next, err := t.invoke()
		if err != nil {
			return Undefined, err
		}
		c = next
	}
	v := c.Value
	for i := len(pending) - 1; i >= 0; i-- {
		var err error
		if v, err = pending[i].Finish(v); err != nil {
			return Undefined, err
		}
	}
	return v, nil
}
