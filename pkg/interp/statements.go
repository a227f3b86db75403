package interp

import (
	"esrt/pkg/ast"
	"esrt/pkg/errors"
	"esrt/pkg/vm"
)

// exec runs one statement. returned is true when the statement completes
// the body.
func (ev *evaluator) exec(stmt ast.Statement) (c vm.Completion, returned bool, err error) {
	switch s := stmt.(type) {
	case *ast.ExprStatement:
		_, err = ev.eval(s.X)
		return vm.Normal(vm.Undefined), false, err
	case *ast.VarStatement:
		return vm.Normal(vm.Undefined), false, ev.declare(s)
	case *ast.FunctionStatement:
		// Hoisted during declaration instantiation.
		return vm.Normal(vm.Undefined), false, nil
	case *ast.ClassStatement:
		_, err = ev.class(s)
		return vm.Normal(vm.Undefined), false, err
	case *ast.ReturnStatement:
		if s.Arg == nil {
			return vm.Normal(vm.Undefined), true, nil
		}
		c, err = ev.evalTail(s.Arg)
		return c, true, err
	case *ast.ThrowStatement:
		v, err := ev.eval(s.Arg)
		if err != nil {
			return vm.Normal(vm.Undefined), false, err
		}
		return vm.Normal(vm.Undefined), false, vm.Throw(v)
	}
	return vm.Normal(vm.Undefined), false, errors.NewTypeError("unknown statement %T", stmt)
}

// declare runs a var, let or const statement. Lexical bindings live in
// the context's own environment; var statements assign through the chain.
func (ev *evaluator) declare(s *ast.VarStatement) error {
	v := vm.Undefined
	if s.Init != nil {
		var err error
		if v, err = ev.eval(s.Init); err != nil {
			return err
		}
	}
	return ev.bindDeclared(s, v)
}

func (ev *evaluator) bindDeclared(s *ast.VarStatement, v vm.Value) error {
	if s.Kind == ast.DeclVar {
		return ev.assign(s.Name, v)
	}
	return ev.cx.Env.InitializeBinding(s.Name, v)
}

// class evaluates a class statement and initializes its binding.
func (ev *evaluator) class(s *ast.ClassStatement) (vm.Value, error) {
	realm := ev.cx.Realm
	protoParent := realm.Intrinsic(vm.IntrinsicObjectPrototype)
	ctorParent := realm.Intrinsic(vm.IntrinsicFunctionPrototype)
	if s.Heritage != nil {
		super, err := ev.eval(s.Heritage)
		if err != nil {
			return vm.Undefined, err
		}
		switch {
		case super.IsNull():
			protoParent = nil
		case !vm.IsConstructor(super):
			return vm.Undefined, errors.NewTypeError("Class extends value %s is not a constructor or null", super)
		default:
			pp, err := vm.GetV(super.AsObject(), vm.StringKey("prototype"))
			if err != nil {
				return vm.Undefined, err
			}
			if !pp.IsObject() && !pp.IsNull() {
				return vm.Undefined, errors.NewTypeError("Class extends value does not have valid prototype property %s", pp)
			}
			protoParent = pp.AsObject()
			ctorParent = super.AsObject()
		}
	}

	f, err := ev.cx.Closure(s.Constructor)
	if err != nil {
		return vm.Undefined, err
	}
	if _, err := f.SetPrototypeOf(ctorParent); err != nil {
		return vm.Undefined, err
	}
	pv, err := vm.GetV(f, vm.StringKey("prototype"))
	if err != nil {
		return vm.Undefined, err
	}
	proto := pv.AsObject()
	if _, err := proto.SetPrototypeOf(protoParent); err != nil {
		return vm.Undefined, err
	}

	for _, m := range s.Methods {
		method, err := ev.cx.Closure(m.Function)
		if err != nil {
			return vm.Undefined, err
		}
		var target vm.Object = proto
		if m.Static {
			target = f
		}
		desc := vm.DataDescriptor(vm.ObjectValue(method), true, false, true)
		if err := vm.DefinePropertyOrThrow(target, vm.StringKey(m.Function.Name), desc); err != nil {
			return vm.Undefined, err
		}
	}

	v := vm.ObjectValue(f)
	if s.Name != "" {
		if err := ev.cx.Env.InitializeBinding(s.Name, v); err != nil {
			return vm.Undefined, err
		}
	}
	return v, nil
}
