package interp

import (
	"fmt"

	"esrt/pkg/ast"
	"esrt/pkg/errors"
	"esrt/pkg/vm"
)

func (ev *evaluator) eval(e ast.Expr) (vm.Value, error) {
	switch x := e.(type) {
	case *ast.Literal:
		return literal(x), nil
	case *ast.Identifier:
		return ev.lookup(x.Name)
	case *ast.ThisExpr:
		return ev.cx.This()
	case *ast.CallExpr:
		callee, this, args, err := ev.callParts(x)
		if err != nil {
			return vm.Undefined, err
		}
		return vm.Call(callee, this, args)
	case *ast.NewExpr:
		return ev.construct(x)
	case *ast.SuperCall:
		args := ev.cx.Args
		if !x.ForwardArguments {
			var err error
			if args, err = ev.list(x.Args); err != nil {
				return vm.Undefined, err
			}
		}
		return ev.cx.SuperCall(args)
	case *ast.MemberExpr:
		obj, err := ev.eval(x.Object)
		if err != nil {
			return vm.Undefined, err
		}
		return ev.member(obj, x.Property)
	case *ast.AssignExpr:
		return ev.assignExpr(x)
	case *ast.ArrayLiteral:
		values, err := ev.list(x.Elements)
		if err != nil {
			return vm.Undefined, err
		}
		return vm.ObjectValue(vm.CreateArrayFromList(ev.cx.Realm, values)), nil
	case *ast.ObjectLiteral:
		o := vm.NewOrdinaryObject(ev.cx.Realm.Intrinsic(vm.IntrinsicObjectPrototype))
		for _, p := range x.Properties {
			v, err := ev.eval(p.Value)
			if err != nil {
				return vm.Undefined, err
			}
			if err := vm.CreateDataPropertyOrThrow(o, vm.StringKey(p.Key), v); err != nil {
				return vm.Undefined, err
			}
		}
		return vm.ObjectValue(o), nil
	case *ast.UnaryExpr:
		return ev.unary(x)
	case *ast.BinaryExpr:
		return ev.binary(x)
	case *ast.ConditionalExpr:
		test, err := ev.eval(x.Test)
		if err != nil {
			return vm.Undefined, err
		}
		if vm.ToBoolean(test) {
			return ev.eval(x.Then)
		}
		return ev.eval(x.Else)
	case *ast.FunctionExpr:
		f, err := ev.cx.Closure(x.Function)
		if err != nil {
			return vm.Undefined, err
		}
		return vm.ObjectValue(f), nil
	case *ast.YieldExpr:
		return vm.Undefined, syntaxError(x.Span, "yield is only supported as a statement or an initializer")
	case *ast.AwaitExpr:
		return ev.await(x)
	case *ast.Unsupported:
		return vm.Undefined, syntaxError(x.Span, "unsupported syntax: %s", x.Text)
	}
	return vm.Undefined, errors.NewTypeError("unknown expression %T", e)
}

// evalTail evaluates a return argument. Calls marked as tail calls are
// returned to the trampoline instead of being run.
func (ev *evaluator) evalTail(e ast.Expr) (vm.Completion, error) {
	switch x := e.(type) {
	case *ast.CallExpr:
		if !x.Tail {
			break
		}
		callee, this, args, err := ev.callParts(x)
		if err != nil {
			return vm.Normal(vm.Undefined), err
		}
		return vm.NewTailCall(callee, this, args), nil
	case *ast.ConditionalExpr:
		test, err := ev.eval(x.Test)
		if err != nil {
			return vm.Normal(vm.Undefined), err
		}
		if vm.ToBoolean(test) {
			return ev.evalTail(x.Then)
		}
		return ev.evalTail(x.Else)
	}
	v, err := ev.eval(e)
	return vm.Normal(v), err
}

func literal(l *ast.Literal) vm.Value {
	switch l.Kind {
	case ast.LitNull:
		return vm.Null
	case ast.LitBoolean:
		return vm.BooleanValue(l.Bool)
	case ast.LitNumber:
		return vm.NumberValue(l.Number)
	case ast.LitString:
		return vm.NewString(l.Str)
	}
	return vm.Undefined
}

func syntaxError(span ast.Span, format string, args ...any) error {
	return &errors.SyntaxError{
		Position: errors.Position{
			Line:     span.Line,
			Column:   span.Column,
			StartPos: span.Start,
			EndPos:   span.End,
			Source:   span.Source,
		},
		Msg: fmt.Sprintf(format, args...),
	}
}

// resolve finds the environment holding name, or nil.
func (ev *evaluator) resolve(name string) (vm.Environment, error) {
	for env := ev.cx.Env; env != nil; env = env.Outer() {
		ok, err := env.HasBinding(name)
		if err != nil {
			return nil, err
		}
		if ok {
			return env, nil
		}
	}
	return nil, nil
}

func (ev *evaluator) lookup(name string) (vm.Value, error) {
	env, err := ev.resolve(name)
	if err != nil {
		return vm.Undefined, err
	}
	if env == nil {
		if name == "undefined" {
			return vm.Undefined, nil
		}
		return vm.Undefined, errors.NewReferenceError(name, "%s is not defined", name)
	}
	return env.GetBindingValue(name, ev.strict)
}

// assign implements PutValue for an identifier reference.
func (ev *evaluator) assign(name string, v vm.Value) error {
	env, err := ev.resolve(name)
	if err != nil {
		return err
	}
	if env != nil {
		return env.SetMutableBinding(name, v, ev.strict)
	}
	if ev.strict {
		return errors.NewReferenceError(name, "%s is not defined", name)
	}
	_, err = ev.cx.Realm.GlobalObject.Set(vm.StringKey(name), v, ev.cx.Realm.GlobalThis())
	return err
}

func (ev *evaluator) assignExpr(x *ast.AssignExpr) (vm.Value, error) {
	switch target := x.Target.(type) {
	case *ast.Identifier:
		v, err := ev.eval(x.Value)
		if err != nil {
			return vm.Undefined, err
		}
		return v, ev.assign(target.Name, v)
	case *ast.MemberExpr:
		base, err := ev.eval(target.Object)
		if err != nil {
			return vm.Undefined, err
		}
		v, err := ev.eval(x.Value)
		if err != nil {
			return vm.Undefined, err
		}
		return v, ev.setMember(base, target.Property, v)
	}
	return vm.Undefined, syntaxError(x.Span, "invalid assignment target")
}

func (ev *evaluator) toObject(v vm.Value, name string) (vm.Object, error) {
	if v.IsNullish() {
		return nil, errors.NewTypeError("Cannot read properties of %s (reading '%s')", v, name)
	}
	return vm.ToObject(ev.cx.Realm, v)
}

func (ev *evaluator) member(base vm.Value, name string) (vm.Value, error) {
	o, err := ev.toObject(base, name)
	if err != nil {
		return vm.Undefined, err
	}
	return o.Get(vm.StringKey(name), base)
}

func (ev *evaluator) setMember(base vm.Value, name string, v vm.Value) error {
	if base.IsNullish() {
		return errors.NewTypeError("Cannot set properties of %s (setting '%s')", base, name)
	}
	o, err := vm.ToObject(ev.cx.Realm, base)
	if err != nil {
		return err
	}
	ok, err := o.Set(vm.StringKey(name), v, base)
	if err != nil {
		return err
	}
	if !ok && ev.strict {
		return errors.NewTypeError("Cannot assign to read only property '%s' of %s", name, base)
	}
	return nil
}

func (ev *evaluator) list(exprs []ast.Expr) ([]vm.Value, error) {
	values := make([]vm.Value, 0, len(exprs))
	for _, e := range exprs {
		v, err := ev.eval(e)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// callParts evaluates the callee, its this value and the arguments of a
// call. Member calls pass the base object as this.
func (ev *evaluator) callParts(x *ast.CallExpr) (callee, this vm.Value, args []vm.Value, err error) {
	this = vm.Undefined
	if m, ok := x.Callee.(*ast.MemberExpr); ok {
		if this, err = ev.eval(m.Object); err != nil {
			return
		}
		if callee, err = ev.member(this, m.Property); err != nil {
			return
		}
	} else if callee, err = ev.eval(x.Callee); err != nil {
		return
	}
	if args, err = ev.list(x.Args); err != nil {
		return
	}
	if !vm.IsCallable(callee) {
		err = errors.NewTypeError("%s is not a function", x.Callee)
	}
	return
}

func (ev *evaluator) construct(x *ast.NewExpr) (vm.Value, error) {
	callee, err := ev.eval(x.Callee)
	if err != nil {
		return vm.Undefined, err
	}
	args, err := ev.list(x.Args)
	if err != nil {
		return vm.Undefined, err
	}
	if !vm.IsConstructor(callee) {
		return vm.Undefined, errors.NewTypeError("%s is not a constructor", x.Callee)
	}
	o, err := vm.Construct(callee.AsObject(), args, nil)
	if err != nil {
		return vm.Undefined, err
	}
	return vm.ObjectValue(o), nil
}

// await unwraps a promise operand. A pending promise drains the job queue
// first; one that is still pending afterwards can never settle.
func (ev *evaluator) await(x *ast.AwaitExpr) (vm.Value, error) {
	v, err := ev.eval(x.Arg)
	if err != nil {
		return vm.Undefined, err
	}
	p, ok := v.AsObject().(*vm.PromiseObject)
	if !ok {
		return v, nil
	}
	if p.State() == vm.PromisePending {
		if err := ev.cx.Realm.Agent().RunJobs(); err != nil {
			return vm.Undefined, err
		}
	}
	switch p.State() {
	case vm.PromiseFulfilled:
		return p.Result(), nil
	case vm.PromiseRejected:
		return vm.Undefined, vm.Throw(p.Result())
	}
	return vm.Undefined, errors.NewTypeError("awaited promise never settles")
}
