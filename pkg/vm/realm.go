package vm

// Intrinsic names a well-known object of a realm.
type Intrinsic uint8

const (
	IntrinsicObjectPrototype Intrinsic = iota
	IntrinsicFunctionPrototype
	IntrinsicArrayPrototype
	IntrinsicStringPrototype
	IntrinsicNumberPrototype
	IntrinsicBooleanPrototype
	IntrinsicSymbolPrototype
	IntrinsicGeneratorPrototype
	IntrinsicPromisePrototype
	IntrinsicErrorPrototype
	IntrinsicTypeErrorPrototype
	IntrinsicRangeErrorPrototype
	IntrinsicReferenceErrorPrototype
	IntrinsicSyntaxErrorPrototype
	intrinsicCount
)

var intrinsicNames = [intrinsicCount]string{
	IntrinsicObjectPrototype:         "%ObjectPrototype%",
	IntrinsicFunctionPrototype:       "%FunctionPrototype%",
	IntrinsicArrayPrototype:          "%ArrayPrototype%",
	IntrinsicStringPrototype:         "%StringPrototype%",
	IntrinsicNumberPrototype:         "%NumberPrototype%",
	IntrinsicBooleanPrototype:        "%BooleanPrototype%",
	IntrinsicSymbolPrototype:         "%SymbolPrototype%",
	IntrinsicGeneratorPrototype:      "%GeneratorPrototype%",
	IntrinsicPromisePrototype:        "%PromisePrototype%",
	IntrinsicErrorPrototype:          "%ErrorPrototype%",
	IntrinsicTypeErrorPrototype:      "%TypeErrorPrototype%",
	IntrinsicRangeErrorPrototype:     "%RangeErrorPrototype%",
	IntrinsicReferenceErrorPrototype: "%ReferenceErrorPrototype%",
	IntrinsicSyntaxErrorPrototype:    "%SyntaxErrorPrototype%",
}

func (i Intrinsic) String() string {
	if i < intrinsicCount {
		return intrinsicNames[i]
	}
	return "%Unknown%"
}

// Realm is an isolated set of intrinsics with its own global object and
// global environment. Realms of one agent share the job queue.
type Realm struct {
	id    int
	agent *Agent

	intrinsics   [intrinsicCount]Object
	GlobalObject *OrdinaryObject
	GlobalEnv    *GlobalEnvironment
	thrower      *NativeFunction

	// scriptContext is the context of the script or module body currently
	// being evaluated in this realm.
	scriptContext *ExecutionContext
}

func newRealm(agent *Agent, id int) *Realm {
	r := &Realm{id: id, agent: agent}
	r.initializeIntrinsics()
	return r
}

func (r *Realm) ID() int { return r.id }

func (r *Realm) Agent() *Agent { return r.agent }

// Intrinsic returns the realm's well-known object.
func (r *Realm) Intrinsic(id Intrinsic) Object {
	return r.intrinsics[id]
}

// ScriptContext returns the context of the body currently being evaluated.
func (r *Realm) ScriptContext() *ExecutionContext { return r.scriptContext }

// SetScriptContext installs cx and returns the previous script context, so
// callers can restore it when evaluation ends.
func (r *Realm) SetScriptContext(cx *ExecutionContext) *ExecutionContext {
	old := r.scriptContext
	r.scriptContext = cx
	return old
}

// GlobalThis returns the global object as a value.
func (r *Realm) GlobalThis() Value { return ObjectValue(r.GlobalObject) }

func (r *Realm) initializeIntrinsics() {
	objectProto := NewOrdinaryObject(nil)
	r.intrinsics[IntrinsicObjectPrototype] = objectProto

	funcProto := newNativeFunction(r, objectProto, "", 0, func(Value, []Value) (Value, error) {
		return Undefined, nil
	})
	r.intrinsics[IntrinsicFunctionPrototype] = funcProto

	r.intrinsics[IntrinsicArrayPrototype] = NewArrayObject(objectProto)
	for _, p := range []struct {
		id    Intrinsic
		class string
	}{
		{IntrinsicStringPrototype, "String"},
		{IntrinsicNumberPrototype, "Number"},
		{IntrinsicBooleanPrototype, "Boolean"},
		{IntrinsicSymbolPrototype, "Symbol"},
	} {
		proto := NewOrdinaryObject(objectProto)
		proto.class = p.class
		r.intrinsics[p.id] = proto
	}

	errorProto := r.newErrorPrototype(objectProto, "Error")
	r.intrinsics[IntrinsicErrorPrototype] = errorProto
	r.intrinsics[IntrinsicTypeErrorPrototype] = r.newErrorPrototype(errorProto, "TypeError")
	r.intrinsics[IntrinsicRangeErrorPrototype] = r.newErrorPrototype(errorProto, "RangeError")
	r.intrinsics[IntrinsicReferenceErrorPrototype] = r.newErrorPrototype(errorProto, "ReferenceError")
	r.intrinsics[IntrinsicSyntaxErrorPrototype] = r.newErrorPrototype(errorProto, "SyntaxError")

	r.intrinsics[IntrinsicGeneratorPrototype] = r.newGeneratorPrototype(objectProto)
	r.intrinsics[IntrinsicPromisePrototype] = r.newPromisePrototype(objectProto)

	r.GlobalObject = NewOrdinaryObject(objectProto)
	r.GlobalObject.class = "global"
	r.GlobalObject.props.Put(StringKey("globalThis"), NewDataProperty(ObjectValue(r.GlobalObject), true, false, true))
	r.GlobalObject.props.Put(StringKey("undefined"), NewDataProperty(Undefined, false, false, false))
	r.GlobalEnv = NewGlobalEnvironment(r.GlobalObject)
}

func (r *Realm) newErrorPrototype(parent Object, name string) *OrdinaryObject {
	proto := NewOrdinaryObject(parent)
	proto.class = "Error"
	proto.props.Put(StringKey("name"), NewDataProperty(NewString(name), true, false, true))
	proto.props.Put(StringKey("message"), NewDataProperty(NewString(""), true, false, true))
	return proto
}

// DefineMethod installs a native method on o as a non-enumerable property.
func (r *Realm) DefineMethod(o *OrdinaryObject, name string, length int, fn NativeFunc) *NativeFunction {
	f := NewNativeFunction(r, name, length, fn)
	o.props.Put(StringKey(name), NewDataProperty(ObjectValue(f), true, false, true))
	return f
}
