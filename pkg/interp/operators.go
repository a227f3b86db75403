package interp

import (
	"math"
	"unicode/utf16"

	"esrt/pkg/ast"
	"esrt/pkg/errors"
	"esrt/pkg/vm"
)

func (ev *evaluator) unary(x *ast.UnaryExpr) (vm.Value, error) {
	if x.Op == "typeof" {
		if id, ok := x.X.(*ast.Identifier); ok {
			env, err := ev.resolve(id.Name)
			if err != nil {
				return vm.Undefined, err
			}
			if env == nil {
				return vm.NewString("undefined"), nil
			}
		}
	}
	v, err := ev.eval(x.X)
	if err != nil {
		return vm.Undefined, err
	}
	switch x.Op {
	case "typeof":
		return vm.NewString(v.TypeName()), nil
	case "void":
		return vm.Undefined, nil
	case "!":
		return vm.BooleanValue(!vm.ToBoolean(v)), nil
	case "-", "+":
		n, err := vm.ToNumber(v)
		if err != nil {
			return vm.Undefined, err
		}
		if x.Op == "-" {
			n = -n
		}
		return vm.NumberValue(n), nil
	}
	return vm.Undefined, errors.NewTypeError("unsupported unary operator %s", x.Op)
}

func (ev *evaluator) binary(x *ast.BinaryExpr) (vm.Value, error) {
	left, err := ev.eval(x.Left)
	if err != nil {
		return vm.Undefined, err
	}
	switch x.Op {
	case "&&":
		if !vm.ToBoolean(left) {
			return left, nil
		}
		return ev.eval(x.Right)
	case "||":
		if vm.ToBoolean(left) {
			return left, nil
		}
		return ev.eval(x.Right)
	case "??":
		if !left.IsNullish() {
			return left, nil
		}
		return ev.eval(x.Right)
	}

	right, err := ev.eval(x.Right)
	if err != nil {
		return vm.Undefined, err
	}
	switch x.Op {
	case "===":
		return vm.BooleanValue(vm.IsStrictlyEqual(left, right)), nil
	case "!==":
		return vm.BooleanValue(!vm.IsStrictlyEqual(left, right)), nil
	case "==", "!=":
		eq, err := looselyEqual(left, right)
		if err != nil {
			return vm.Undefined, err
		}
		return vm.BooleanValue(eq == (x.Op == "==")), nil
	case "+":
		if left.IsString() || right.IsString() {
			l, err := vm.ToString(left)
			if err != nil {
				return vm.Undefined, err
			}
			r, err := vm.ToString(right)
			if err != nil {
				return vm.Undefined, err
			}
			return vm.NewString(l + r), nil
		}
	case "<", ">", "<=", ">=":
		return compare(x.Op, left, right)
	}

	l, err := vm.ToNumber(left)
	if err != nil {
		return vm.Undefined, err
	}
	r, err := vm.ToNumber(right)
	if err != nil {
		return vm.Undefined, err
	}
	switch x.Op {
	case "+":
		return vm.NumberValue(l + r), nil
	case "-":
		return vm.NumberValue(l - r), nil
	case "*":
		return vm.NumberValue(l * r), nil
	case "/":
		return vm.NumberValue(l / r), nil
	case "%":
		return vm.NumberValue(math.Mod(l, r)), nil
	}
	return vm.Undefined, errors.NewTypeError("unsupported binary operator %s", x.Op)
}

// looselyEqual implements == for primitives. An object only equals itself.
func looselyEqual(a, b vm.Value) (bool, error) {
	if a.Type() == b.Type() {
		return vm.IsStrictlyEqual(a, b), nil
	}
	if a.IsNullish() && b.IsNullish() {
		return true, nil
	}
	if a.IsObject() || b.IsObject() || a.IsNullish() || b.IsNullish() || a.IsSymbol() || b.IsSymbol() {
		return false, nil
	}
	l, err := vm.ToNumber(a)
	if err != nil {
		return false, err
	}
	r, err := vm.ToNumber(b)
	if err != nil {
		return false, err
	}
	return l == r, nil
}

func compare(op string, a, b vm.Value) (vm.Value, error) {
	var c int
	if a.IsString() && b.IsString() {
		c = compareCodeUnits(a.AsString(), b.AsString())
	} else {
		l, err := vm.ToNumber(a)
		if err != nil {
			return vm.Undefined, err
		}
		r, err := vm.ToNumber(b)
		if err != nil {
			return vm.Undefined, err
		}
		if math.IsNaN(l) || math.IsNaN(r) {
			return vm.BooleanValue(false), nil
		}
		switch {
		case l < r:
			c = -1
		case l > r:
			c = 1
		}
	}
	switch op {
	case "<":
		return vm.BooleanValue(c < 0), nil
	case ">":
		return vm.BooleanValue(c > 0), nil
	case "<=":
		return vm.BooleanValue(c <= 0), nil
	}
	return vm.BooleanValue(c >= 0), nil
}

func compareCodeUnits(a, b string) int {
	x, y := utf16.Encode([]rune(a)), utf16.Encode([]rune(b))
	for i := 0; i < len(x) && i < len(y); i++ {
		if x[i] != y[i] {
			if x[i] < y[i] {
				return -1
			}
			return 1
		}
	}
	return len(x) - len(y)
}
