package vm

import (
	stderrors "errors"

	"esrt/pkg/errors"
)

// Exception carries a value thrown by script code through Go error returns.
type Exception struct {
	Value Value
}

func (e *Exception) Error() string {
	if o := e.Value.AsObject(); o != nil {
		name, _ := GetV(o, StringKey("name"))
		msg, _ := GetV(o, StringKey("message"))
		if name.IsString() {
			if msg.IsString() && msg.AsString() != "" {
				return name.AsString() + ": " + msg.AsString()
			}
			return name.AsString()
		}
	}
	return "Uncaught " + e.Value.Inspect()
}

// Throw wraps a script value as an error.
func Throw(v Value) error {
	return &Exception{Value: v}
}

func NewRangeErrorf(format string, args ...any) error {
	return errors.NewRangeError(format, args...)
}

// NewError creates an error object with the given prototype and message.
func NewError(realm *Realm, proto Intrinsic, message string) *OrdinaryObject {
	o := NewOrdinaryObject(realm.Intrinsic(proto))
	o.class = "Error"
	if message != "" {
		o.props.Put(StringKey("message"), NewDataProperty(NewString(message), true, false, true))
	}
	return o
}

// ErrorValue converts a Go error into the script value a catch clause or a
// promise rejection would observe. Thrown values are returned unchanged;
// runtime errors become error objects of the matching kind.
func ErrorValue(realm *Realm, err error) Value {
	var exc *Exception
	if stderrors.As(err, &exc) {
		return exc.Value
	}
	proto := IntrinsicErrorPrototype
	msg := err.Error()
	var rtErr errors.Error
	if stderrors.As(err, &rtErr) {
		msg = rtErr.Message()
		switch rtErr.Kind() {
		case errors.KindType:
			proto = IntrinsicTypeErrorPrototype
		case errors.KindRange:
			proto = IntrinsicRangeErrorPrototype
		case errors.KindReference:
			proto = IntrinsicReferenceErrorPrototype
		case errors.KindSyntax:
			proto = IntrinsicSyntaxErrorPrototype
		}
	}
	return ObjectValue(NewError(realm, proto, msg))
}
