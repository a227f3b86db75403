package vm

import "fmt"

type GeneratorState uint8

const (
	GeneratorSuspendedStart GeneratorState = iota
	GeneratorSuspendedYield
	GeneratorExecuting
	GeneratorCompleted
)

func (s GeneratorState) String() string {
	switch s {
	case GeneratorSuspendedStart:
		return "suspendedStart"
	case GeneratorSuspendedYield:
		return "suspendedYield"
	case GeneratorExecuting:
		return "executing"
	case GeneratorCompleted:
		return "completed"
	}
	return fmt.Sprintf("GeneratorState(%d)", uint8(s))
}

// ResumeMode says how a suspended generator body continues.
type ResumeMode uint8

const (
	ResumeNext ResumeMode = iota
	ResumeReturn
	ResumeThrow
)

// ResumeFunc continues a generator body until its next yield (done is
// false) or its completion (done is true).
type ResumeFunc func(mode ResumeMode, sent Value) (v Value, done bool, err error)

// GeneratorObject is the object returned by calling a generator function.
type GeneratorObject struct {
	OrdinaryObject
	realm  *Realm
	state  GeneratorState
	resume ResumeFunc
}

// NewGenerator creates a generator in the suspendedStart state.
func NewGenerator(realm *Realm, proto Object, resume ResumeFunc) *GeneratorObject {
	if proto == nil {
		proto = realm.Intrinsic(IntrinsicGeneratorPrototype)
	}
	g := &GeneratorObject{realm: realm, resume: resume}
	g.init(g, proto, "Generator")
	return g
}

func (g *GeneratorObject) State() GeneratorState { return g.state }

func (g *GeneratorObject) run(mode ResumeMode, sent Value) (Value, error) {
	g.state = GeneratorExecuting
	v, done, err := g.resume(mode, sent)
	if err != nil || done {
		g.state = GeneratorCompleted
		g.resume = nil
		if err != nil {
			return Undefined, err
		}
		return CreateIterResultObject(g.realm, v, true), nil
	}
	g.state = GeneratorSuspendedYield
	return CreateIterResultObject(g.realm, v, false), nil
}

func (g *GeneratorObject) checkRunning() error {
	if g.state == GeneratorExecuting {
		return newTypeError("generator is already running")
	}
	return nil
}

// Next resumes the body with sent as the value of the pending yield.
func (g *GeneratorObject) Next(sent Value) (Value, error) {
	if err := g.checkRunning(); err != nil {
		return Undefined, err
	}
	if g.state == GeneratorCompleted {
		return CreateIterResultObject(g.realm, Undefined, true), nil
	}
	return g.run(ResumeNext, sent)
}

// Return completes the generator with v, running the body's pending
// finally blocks when it is suspended at a yield.
func (g *GeneratorObject) Return(v Value) (Value, error) {
	if err := g.checkRunning(); err != nil {
		return Undefined, err
	}
	if g.state == GeneratorSuspendedStart || g.state == GeneratorCompleted {
		g.state = GeneratorCompleted
		g.resume = nil
		return CreateIterResultObject(g.realm, v, true), nil
	}
	return g.run(ResumeReturn, v)
}

// Throw resumes the body by throwing v at the pending yield.
func (g *GeneratorObject) Throw(v Value) (Value, error) {
	if err := g.checkRunning(); err != nil {
		return Undefined, err
	}
	if g.state == GeneratorSuspendedStart || g.state == GeneratorCompleted {
		g.state = GeneratorCompleted
		g.resume = nil
		return Undefined, Throw(v)
	}
	return g.run(ResumeThrow, v)
}

// CreateIterResultObject returns {value, done}.
func CreateIterResultObject(realm *Realm, v Value, done bool) Value {
	o := NewOrdinaryObject(realm.Intrinsic(IntrinsicObjectPrototype))
	o.props.Put(StringKey("value"), NewDataProperty(v, true, true, true))
	o.props.Put(StringKey("done"), NewDataProperty(BooleanValue(done), true, true, true))
	return ObjectValue(o)
}

func (r *Realm) newGeneratorPrototype(objectProto Object) *OrdinaryObject {
	proto := NewOrdinaryObject(objectProto)
	proto.class = "Generator"
	method := func(name string, fn func(g *GeneratorObject, v Value) (Value, error)) {
		r.DefineMethod(proto, name, 1, func(this Value, args []Value) (Value, error) {
			g, ok := this.AsObject().(*GeneratorObject)
			if !ok {
				return Undefined, newTypeError("%s method called on incompatible receiver %s", name, this)
			}
			return fn(g, Arg(args, 0))
		})
	}
	method("next", (*GeneratorObject).Next)
	method("return", (*GeneratorObject).Return)
	method("throw", (*GeneratorObject).Throw)
	iter := NewNativeFunction(r, "[Symbol.iterator]", 0, func(this Value, _ []Value) (Value, error) {
		return this, nil
	})
	proto.props.Put(SymbolKey(SymIterator), NewDataProperty(ObjectValue(iter), true, false, true))
	proto.props.Put(SymbolKey(SymToStringTag), NewDataProperty(NewString("Generator"), false, false, true))
	return proto
}
