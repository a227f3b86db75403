package vm

// PromiseState is the settlement state of a promise.
type PromiseState uint8

const (
	PromisePending PromiseState = iota
	PromiseFulfilled
	PromiseRejected
)

func (s PromiseState) String() string {
	switch s {
	case PromiseFulfilled:
		return "fulfilled"
	case PromiseRejected:
		return "rejected"
	}
	return "pending"
}

type reactionKind uint8

const (
	reactFulfill reactionKind = iota
	reactReject
)

type promiseReaction struct {
	kind    reactionKind
	handler Value
	derived *PromiseObject
}

// PromiseObject is a minimal promise: settlement, then-reactions and
// thenable adoption, all scheduled as jobs on the agent's queue.
type PromiseObject struct {
	OrdinaryObject
	realm    *Realm
	state    PromiseState
	result   Value
	resolved bool

	fulfillReactions []promiseReaction
	rejectReactions  []promiseReaction
}

// NewPromise creates a pending promise in realm.
func NewPromise(realm *Realm) *PromiseObject {
	p := &PromiseObject{realm: realm}
	p.init(p, realm.Intrinsic(IntrinsicPromisePrototype), "Promise")
	return p
}

func (p *PromiseObject) State() PromiseState { return p.state }

// Result returns the fulfillment value or rejection reason.
func (p *PromiseObject) Result() Value { return p.result }

func (p *PromiseObject) enqueue(job Job) {
	p.realm.agent.jobs.Enqueue(job)
}

// Resolve resolves p with v. Thenables are adopted through a job; later
// calls after the first are ignored.
func (p *PromiseObject) Resolve(v Value) {
	if p.resolved {
		return
	}
	p.resolved = true
	p.resolve(v)
}

// Reject rejects p with reason unless it is already resolved.
func (p *PromiseObject) Reject(reason Value) {
	if p.resolved {
		return
	}
	p.resolved = true
	p.settle(PromiseRejected, reason)
}

func (p *PromiseObject) resolve(v Value) {
	o := v.AsObject()
	if o == nil {
		p.settle(PromiseFulfilled, v)
		return
	}
	if o == Object(p) {
		p.settle(PromiseRejected, ObjectValue(NewError(p.realm, IntrinsicTypeErrorPrototype, "chaining cycle detected for promise")))
		return
	}
	then, err := o.Get(StringKey("then"), v)
	if err != nil {
		p.settle(PromiseRejected, ErrorValue(p.realm, err))
		return
	}
	if !IsCallable(then) {
		p.settle(PromiseFulfilled, v)
		return
	}
	p.enqueue(func() error {
		resolve, reject := p.resolvingFunctions()
		if _, err := Call(then, v, []Value{ObjectValue(resolve), ObjectValue(reject)}); err != nil {
			_, _ = reject.Call(Undefined, []Value{ErrorValue(p.realm, err)})
		}
		return nil
	})
}

// resolvingFunctions returns a resolve/reject pair sharing one
// already-resolved flag.
func (p *PromiseObject) resolvingFunctions() (*NativeFunction, *NativeFunction) {
	done := false
	resolve := NewNativeFunction(p.realm, "", 1, func(_ Value, args []Value) (Value, error) {
		if !done {
			done = true
			p.resolve(Arg(args, 0))
		}
		return Undefined, nil
	})
	reject := NewNativeFunction(p.realm, "", 1, func(_ Value, args []Value) (Value, error) {
		if !done {
			done = true
			p.settle(PromiseRejected, Arg(args, 0))
		}
		return Undefined, nil
	})
	return resolve, reject
}

func (p *PromiseObject) settle(state PromiseState, v Value) {
	if p.state != PromisePending {
		return
	}
	reactions := p.fulfillReactions
	if state == PromiseRejected {
		reactions = p.rejectReactions
	}
	p.state, p.result = state, v
	p.fulfillReactions, p.rejectReactions = nil, nil
	for _, r := range reactions {
		p.enqueueReaction(r, v)
	}
}

func (p *PromiseObject) enqueueReaction(r promiseReaction, arg Value) {
	p.enqueue(func() error {
		if !IsCallable(r.handler) {
			if r.kind == reactFulfill {
				r.derived.Resolve(arg)
			} else {
				r.derived.Reject(arg)
			}
			return nil
		}
		v, err := Call(r.handler, Undefined, []Value{arg})
		if err != nil {
			r.derived.Reject(ErrorValue(p.realm, err))
			return nil
		}
		r.derived.Resolve(v)
		return nil
	})
}

// Then registers reactions and returns the derived promise.
func (p *PromiseObject) Then(onFulfilled, onRejected Value) *PromiseObject {
	derived := NewPromise(p.realm)
	fr := promiseReaction{kind: reactFulfill, handler: onFulfilled, derived: derived}
	rr := promiseReaction{kind: reactReject, handler: onRejected, derived: derived}
	switch p.state {
	case PromisePending:
		p.fulfillReactions = append(p.fulfillReactions, fr)
		p.rejectReactions = append(p.rejectReactions, rr)
	case PromiseFulfilled:
		p.enqueueReaction(fr, p.result)
	case PromiseRejected:
		p.enqueueReaction(rr, p.result)
	}
	return derived
}

func (r *Realm) newPromisePrototype(objectProto Object) *OrdinaryObject {
	proto := NewOrdinaryObject(objectProto)
	proto.class = "Promise"
	r.DefineMethod(proto, "then", 2, func(this Value, args []Value) (Value, error) {
		p, ok := this.AsObject().(*PromiseObject)
		if !ok {
			return Undefined, newTypeError("Promise.prototype.then called on incompatible receiver %s", this)
		}
		return ObjectValue(p.Then(Arg(args, 0), Arg(args, 1))), nil
	})
	r.DefineMethod(proto, "catch", 1, func(this Value, args []Value) (Value, error) {
		p, ok := this.AsObject().(*PromiseObject)
		if !ok {
			return Undefined, newTypeError("Promise.prototype.catch called on incompatible receiver %s", this)
		}
		return ObjectValue(p.Then(Undefined, Arg(args, 0))), nil
	})
	proto.props.Put(SymbolKey(SymToStringTag), NewDataProperty(NewString("Promise"), false, false, true))
	return proto
}
