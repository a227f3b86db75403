package interp

import (
	"esrt/pkg/ast"
	"esrt/pkg/compiler"
	"esrt/pkg/vm"
)

// generatorUnit runs a generator body one statement at a time. A yield
// may appear as an expression statement, as the initializer of a
// declaration, or as the right-hand side of an assignment; the body
// suspends after evaluating the yield operand and resumes at the next
// statement.
type generatorUnit struct {
	*functionUnit
}

func (u *generatorUnit) Start(cx *compiler.Context) vm.ResumeFunc {
	ev := &evaluator{cx: cx, strict: u.strict}
	pc := 0
	var receive func(vm.Value) error
	return func(mode vm.ResumeMode, sent vm.Value) (vm.Value, bool, error) {
		switch mode {
		case vm.ResumeReturn:
			return sent, true, nil
		case vm.ResumeThrow:
			return vm.Undefined, true, vm.Throw(sent)
		}
		if receive != nil {
			r := receive
			receive = nil
			if err := r(sent); err != nil {
				return vm.Undefined, true, err
			}
		}
		for pc < len(u.body) {
			stmt := u.body[pc]
			pc++
			if y, target := yieldOf(stmt); y != nil {
				v := vm.Undefined
				if y.Arg != nil {
					var err error
					if v, err = ev.eval(y.Arg); err != nil {
						return vm.Undefined, true, err
					}
				}
				if target != nil {
					receive = func(sent vm.Value) error { return target(ev, sent) }
				}
				return v, false, nil
			}
			c, returned, err := ev.exec(stmt)
			if err != nil {
				return vm.Undefined, true, err
			}
			if returned {
				v, err := vm.Resolve(c)
				return v, true, err
			}
		}
		return vm.Undefined, true, nil
	}
}

// yieldOf returns the yield a statement suspends at and how the resumed
// value is stored.
func yieldOf(stmt ast.Statement) (*ast.YieldExpr, func(*evaluator, vm.Value) error) {
	switch s := stmt.(type) {
	case *ast.ExprStatement:
		if y, ok := s.X.(*ast.YieldExpr); ok {
			return y, nil
		}
		if a, ok := s.X.(*ast.AssignExpr); ok {
			if y, ok := a.Value.(*ast.YieldExpr); ok {
				return y, func(ev *evaluator, v vm.Value) error { return ev.store(a.Target, v) }
			}
		}
	case *ast.VarStatement:
		if y, ok := s.Init.(*ast.YieldExpr); ok {
			return y, func(ev *evaluator, v vm.Value) error { return ev.bindDeclared(s, v) }
		}
	}
	return nil, nil
}

func (ev *evaluator) store(target ast.Expr, v vm.Value) error {
	switch t := target.(type) {
	case *ast.Identifier:
		return ev.assign(t.Name, v)
	case *ast.MemberExpr:
		base, err := ev.eval(t.Object)
		if err != nil {
			return err
		}
		return ev.setMember(base, t.Property, v)
	}
	return syntaxError(target.Pos(), "invalid assignment target")
}
