package compiler

import (
	"fmt"

	"esrt/pkg/errors"
	"esrt/pkg/vm"
)

// entry runs one chunk for a compiled function.
type entry struct {
	compiler *Compiler
	code     *Code
	chunk    *Chunk
}

// frame is the state threaded through the opcodes of one invocation.
type frame struct {
	f         *vm.FunctionObject
	realm     *vm.Realm
	agent     *vm.Agent
	this      vm.Value
	args      []vm.Value
	newTarget vm.Object

	caller  vm.Value
	env     *vm.FunctionEnvironment
	cx      *vm.ExecutionContext
	ctx     *Context
	pushed  bool
	restore func()

	result  vm.Completion
	promise *vm.PromiseObject
}

// run executes the chunk. The execution context pushed by OpPrepareCall is
// popped and the finally sequence is run on every exit path.
func (e *entry) run(f *vm.FunctionObject, this vm.Value, args []vm.Value, newTarget vm.Object) (result vm.Completion, err error) {
	realm := f.Realm()
	fr := &frame{
		f:         f,
		realm:     realm,
		agent:     realm.Agent(),
		this:      this,
		args:      args,
		newTarget: newTarget,
		caller:    vm.Null,
	}
	if running := fr.agent.RunningContext(); running != nil && running.Function != nil {
		fr.caller = vm.ObjectValue(running.Function)
	}
	defer func() {
		if fr.pushed {
			fr.agent.PopContext()
		}
		for _, op := range e.chunk.Finally {
			if ferr := e.step(fr, op); ferr != nil && err == nil {
				err = ferr
			}
		}
	}()

	for _, op := range e.chunk.Code {
		if err := e.step(fr, op); err != nil {
			if fr.promise != nil {
				fr.promise.Reject(vm.ErrorValue(realm, err))
				return vm.Normal(vm.ObjectValue(fr.promise)), nil
			}
			return vm.Completion{}, err
		}
	}
	return fr.result, nil
}

func (e *entry) step(fr *frame, op OpCode) error {
	switch op {
	case OpThrowClassCall:
		return errors.NewTypeError("Class constructor %s cannot be invoked without 'new'", describe(e.code.Node))

	case OpAllocateThis:
		obj, err := vm.OrdinaryCreateFromConstructor(fr.newTarget, vm.IntrinsicObjectPrototype)
		if err != nil {
			return err
		}
		fr.this = vm.ObjectValue(obj)

	case OpLegacyEnter:
		fr.restore = fr.f.LegacyEnter(fr.caller, vm.ObjectValue(vm.NewArgumentsObject(fr.realm, fr.f, fr.args)))

	case OpLegacyExit:
		if fr.restore != nil {
			fr.restore()
			fr.restore = nil
		}

	case OpPrepareCall:
		fr.env = vm.NewFunctionEnvironment(fr.f, fr.newTarget)
		fr.cx = &vm.ExecutionContext{
			Realm:               fr.realm,
			Function:            fr.f,
			LexicalEnvironment:  fr.env,
			VariableEnvironment: fr.env,
		}
		if sc := fr.realm.ScriptContext(); sc != nil {
			fr.cx.ScriptOrModule = sc.ScriptOrModule
		}
		if err := fr.agent.PushContext(fr.cx); err != nil {
			return err
		}
		fr.pushed = true
		fr.ctx = &Context{
			Realm:     fr.realm,
			Function:  fr.f,
			Env:       fr.env,
			NewTarget: fr.newTarget,
			Args:      fr.args,
			compiler:  e.compiler,
		}

	case OpBindThis:
		if fr.f.ThisMode() == vm.ThisModeLexical {
			return nil
		}
		this, err := coerceThis(fr.realm, fr.f.ThisMode(), fr.this)
		if err != nil {
			return err
		}
		return fr.env.BindThisValue(this)

	case OpFunctionInit:
		if err := e.compiler.instantiateDeclarations(fr.ctx, e.code.Node); err != nil {
			return err
		}
		return e.code.Unit.Init(fr.ctx)

	case OpEvaluateBody:
		c, err := e.code.Unit.Evaluate(fr.ctx)
		if err != nil {
			return err
		}
		fr.result = c

	case OpCreateGenerator:
		proto, err := vm.GetPrototypeFromConstructor(fr.f, vm.IntrinsicGeneratorPrototype)
		if err != nil {
			return err
		}
		resume := e.code.Unit.(Resumable).Start(fr.ctx)
		agent, cx := fr.agent, fr.cx
		g := vm.NewGenerator(fr.realm, proto, func(mode vm.ResumeMode, sent vm.Value) (vm.Value, bool, error) {
			if err := agent.PushContext(cx); err != nil {
				return vm.Undefined, true, err
			}
			defer agent.PopContext()
			return resume(mode, sent)
		})
		fr.result = vm.Normal(vm.ObjectValue(g))

	case OpCreatePromise:
		fr.promise = vm.NewPromise(fr.realm)

	case OpResolvePromise:
		v, err := vm.Resolve(fr.result)
		if err != nil {
			return err
		}
		fr.promise.Resolve(v)
		fr.result = vm.Normal(vm.ObjectValue(fr.promise))

	case OpReturnValue:

	case OpReturnResultOrThis:
		k := &vm.ConstructContinuation{This: fr.this}
		return finishConstruct(fr, k)

	case OpReturnDerivedResult:
		k := &vm.ConstructContinuation{Env: fr.env, Derived: true}
		return finishConstruct(fr, k)

	default:
		return fmt.Errorf("unknown opcode %s", op)
	}
	return nil
}

// finishConstruct applies the construct result rule now, or defers it to
// the trampoline when the body ended in a tail call.
func finishConstruct(fr *frame, k *vm.ConstructContinuation) error {
	if fr.result.IsTail() {
		fr.result.Tail.Then = k
		return nil
	}
	v, err := k.Finish(fr.result.Value)
	if err != nil {
		return err
	}
	fr.result = vm.Normal(v)
	return nil
}

// coerceThis implements OrdinaryCallBindThis for non-lexical modes.
func coerceThis(realm *vm.Realm, mode vm.ThisMode, this vm.Value) (vm.Value, error) {
	if mode == vm.ThisModeStrict {
		return this, nil
	}
	if this.IsNullish() {
		return realm.GlobalThis(), nil
	}
	o, err := vm.ToObject(realm, this)
	if err != nil {
		return vm.Undefined, err
	}
	return vm.ObjectValue(o), nil
}
