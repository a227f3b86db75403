package vm

import (
	"math"
	"strconv"
	"strings"
)

// cleanExponentialFormat removes leading zeros from the exponent to match JS
// number formatting, e.g. "1e-07" -> "1e-7".
func cleanExponentialFormat(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == 'e' || s[i] == 'E' {
			if i+1 < len(s) && (s[i+1] == '+' || s[i+1] == '-') {
				sign := s[i+1]
				j := i + 2
				for j < len(s) && s[j] == '0' {
					j++
				}
				if j >= len(s) {
					return s[:i+2] + "0"
				}
				return s[:i+1] + string(sign) + s[j:]
			}
			break
		}
	}
	return s
}

type ValueType uint8

const (
	TypeUndefined ValueType = iota
	TypeNull
	TypeBoolean
	TypeNumber
	TypeString
	TypeSymbol
	TypeObject
)

// String returns the typeof-style name of the type.
func (vt ValueType) String() string {
	switch vt {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBoolean:
		return "boolean"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeSymbol:
		return "symbol"
	case TypeObject:
		return "object"
	default:
		return "<unknown>"
	}
}

// Value is an ECMAScript language value. The zero Value is undefined.
type Value struct {
	typ ValueType
	num float64
	str string
	sym *Symbol
	obj Object
}

var (
	Undefined = Value{typ: TypeUndefined}
	Null      = Value{typ: TypeNull}
	True      = Value{typ: TypeBoolean, num: 1}
	False     = Value{typ: TypeBoolean}
)

func BooleanValue(b bool) Value {
	if b {
		return True
	}
	return False
}

func NumberValue(f float64) Value {
	return Value{typ: TypeNumber, num: f}
}

func IntegerValue(i int64) Value {
	return Value{typ: TypeNumber, num: float64(i)}
}

func NewString(s string) Value {
	return Value{typ: TypeString, str: s}
}

func SymbolValue(s *Symbol) Value {
	return Value{typ: TypeSymbol, sym: s}
}

// ObjectValue wraps o. A nil object becomes null, matching the way
// prototype slots report "no prototype".
func ObjectValue(o Object) Value {
	if o == nil {
		return Null
	}
	return Value{typ: TypeObject, obj: o}
}

func (v Value) Type() ValueType { return v.typ }

func (v Value) IsUndefined() bool { return v.typ == TypeUndefined }
func (v Value) IsNull() bool      { return v.typ == TypeNull }
func (v Value) IsNullish() bool   { return v.typ == TypeUndefined || v.typ == TypeNull }
func (v Value) IsBoolean() bool   { return v.typ == TypeBoolean }
func (v Value) IsNumber() bool    { return v.typ == TypeNumber }
func (v Value) IsString() bool    { return v.typ == TypeString }
func (v Value) IsSymbol() bool    { return v.typ == TypeSymbol }
func (v Value) IsObject() bool    { return v.typ == TypeObject }

func (v Value) AsBoolean() bool   { return v.num != 0 }
func (v Value) AsNumber() float64 { return v.num }
func (v Value) AsString() string  { return v.str }
func (v Value) AsSymbol() *Symbol { return v.sym }

// AsObject returns the object, or nil for non-object values.
func (v Value) AsObject() Object {
	if v.typ != TypeObject {
		return nil
	}
	return v.obj
}

// TypeName returns the result of the typeof operator.
func (v Value) TypeName() string {
	if v.typ == TypeObject {
		if _, ok := v.obj.(Callable); ok {
			return "function"
		}
		return "object"
	}
	if v.typ == TypeNull {
		return "object"
	}
	return v.typ.String()
}

// String renders the value for diagnostics. Objects are not converted
// through user code.
func (v Value) String() string {
	switch v.typ {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBoolean:
		if v.AsBoolean() {
			return "true"
		}
		return "false"
	case TypeNumber:
		return numberToString(v.num)
	case TypeString:
		return v.str
	case TypeSymbol:
		return "Symbol(" + v.sym.Description + ")"
	case TypeObject:
		return "[object " + v.obj.Class() + "]"
	}
	return "<invalid>"
}

// Inspect renders the value the way a REPL would echo it.
func (v Value) Inspect() string {
	if v.typ == TypeString {
		return strconv.Quote(v.str)
	}
	return v.String()
}

func numberToString(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		return cleanExponentialFormat(strconv.FormatFloat(f, 'e', -1, 64))
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// SameValue implements the SameValue algorithm: NaN equals NaN and +0 is
// distinct from -0.
func SameValue(a, b Value) bool {
	if a.typ != b.typ {
		return false
	}
	if a.typ == TypeNumber {
		if math.IsNaN(a.num) && math.IsNaN(b.num) {
			return true
		}
		if a.num == 0 && b.num == 0 {
			return math.Signbit(a.num) == math.Signbit(b.num)
		}
		return a.num == b.num
	}
	return sameNonNumber(a, b)
}

// SameValueZero is SameValue with +0 and -0 considered equal.
func SameValueZero(a, b Value) bool {
	if a.typ != b.typ {
		return false
	}
	if a.typ == TypeNumber {
		if math.IsNaN(a.num) && math.IsNaN(b.num) {
			return true
		}
		return a.num == b.num
	}
	return sameNonNumber(a, b)
}

func sameNonNumber(a, b Value) bool {
	switch a.typ {
	case TypeUndefined, TypeNull:
		return true
	case TypeBoolean:
		return a.num == b.num
	case TypeString:
		return a.str == b.str
	case TypeSymbol:
		return a.sym == b.sym
	case TypeObject:
		return a.obj == b.obj
	}
	return false
}

// ToBoolean implements the ToBoolean abstract operation.
func ToBoolean(v Value) bool {
	switch v.typ {
	case TypeUndefined, TypeNull:
		return false
	case TypeBoolean:
		return v.AsBoolean()
	case TypeNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case TypeString:
		return v.str != ""
	}
	return true
}

// ToNumber converts primitives to a number. Objects are rejected because
// ToPrimitive would run user code this core does not model.
func ToNumber(v Value) (float64, error) {
	switch v.typ {
	case TypeUndefined:
		return math.NaN(), nil
	case TypeNull:
		return 0, nil
	case TypeBoolean:
		return v.num, nil
	case TypeNumber:
		return v.num, nil
	case TypeString:
		return stringToNumber(v.str), nil
	case TypeSymbol:
		return 0, newTypeError("cannot convert a Symbol value to a number")
	}
	return 0, newTypeError("cannot convert object to primitive value")
}

// ToString converts a primitive to a string. Objects are rejected for the
// same reason as in ToNumber.
func ToString(v Value) (string, error) {
	switch v.typ {
	case TypeSymbol:
		return "", newTypeError("cannot convert a Symbol value to a string")
	case TypeObject:
		return "", newTypeError("cannot convert object to primitive value")
	}
	return v.String(), nil
}

// IsStrictlyEqual implements ===.
func IsStrictlyEqual(a, b Value) bool {
	if a.typ != b.typ {
		return false
	}
	if a.typ == TypeNumber {
		return a.num == b.num
	}
	return sameNonNumber(a, b)
}

func stringToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, err := strconv.ParseUint(s[2:], base, 64)
			if err != nil {
				return math.NaN()
			}
			return float64(n)
		}
	}
	for _, c := range s {
		if (c < '0' || c > '9') && c != '.' && c != 'e' && c != 'E' && c != '+' && c != '-' {
			return math.NaN()
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// ToUint32 implements the ToUint32 abstract operation for a number.
func ToUint32(f float64) uint32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	i := math.Trunc(f)
	m := math.Mod(i, 1<<32)
	if m < 0 {
		m += 1 << 32
	}
	return uint32(m)
}

// ToLength clamps a number into the valid length range [0, 2^53-1].
func ToLength(f float64) uint64 {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= MaxSafeInteger {
		return MaxSafeInteger
	}
	return uint64(math.Trunc(f))
}

// ToPropertyKey converts a primitive value to a property key.
func ToPropertyKey(v Value) (PropertyKey, error) {
	switch v.typ {
	case TypeSymbol:
		return SymbolKey(v.sym), nil
	case TypeString:
		return StringKey(v.str), nil
	case TypeObject:
		return PropertyKey{}, newTypeError("cannot convert object to property key")
	}
	return StringKey(v.String()), nil
}
