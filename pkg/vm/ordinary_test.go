package vm

import (
	"math"
	"testing"

	"github.com/dop251/goja"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esrt/pkg/errors"
)

func newTestRealm(t *testing.T) *Realm {
	t.Helper()
	return NewAgent().NewRealm()
}

func keyNames(keys []PropertyKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

func TestOrdinary_DefineReadOnlyScenario(t *testing.T) {
	o := NewOrdinaryObject(nil)
	x := StringKey("x")

	ok, err := o.DefineOwnProperty(x, DataDescriptor(IntegerValue(1), false, true, false))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = o.Set(x, IntegerValue(2), ObjectValue(o))
	require.NoError(t, err)
	assert.False(t, ok)
	v, err := o.Get(x, ObjectValue(o))
	require.NoError(t, err)
	assert.Equal(t, float64(1), v.AsNumber())

	ok, err = o.DefineOwnProperty(x, ValueDescriptor(IntegerValue(2)))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = o.DefineOwnProperty(x, ValueDescriptor(IntegerValue(1)))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOrdinary_DefineIsIdempotent(t *testing.T) {
	descs := []PropertyDescriptor{
		DataDescriptor(NewString("v"), true, true, true),
		DataDescriptor(NewString("v"), false, false, false),
		{Enumerable: FlagTrue},
		ValueDescriptor(NewString("v")),
		{},
	}
	for _, d := range descs {
		o := NewOrdinaryObject(nil)
		k := StringKey("k")
		_, err := o.DefineOwnProperty(k, DataDescriptor(NewString("v"), d.Writable != FlagFalse, d.Enumerable != FlagFalse, d.Configurable != FlagFalse))
		require.NoError(t, err)

		ok1, err := o.DefineOwnProperty(k, d)
		require.NoError(t, err)
		once := o.props.Get(k).Clone()
		ok2, err := o.DefineOwnProperty(k, d)
		require.NoError(t, err)

		assert.True(t, ok1)
		assert.True(t, ok2)
		if diff := cmp.Diff(once.Descriptor(), o.props.Get(k).Descriptor(), cmp.AllowUnexported(Value{})); diff != "" {
			t.Errorf("second define changed the property (-once +twice):\n%s", diff)
		}
	}
}

func TestOrdinary_NonConfigurableLockdown(t *testing.T) {
	cases := []struct {
		name  string
		v, v2 Value
	}{
		{"numbers", IntegerValue(1), IntegerValue(2)},
		{"strings", NewString("a"), NewString("b")},
		{"signed zero", NumberValue(0), NumberValue(math.Copysign(0, -1))},
		{"nan stays nan", NumberValue(math.NaN()), IntegerValue(0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := NewOrdinaryObject(nil)
			k := StringKey("p")
			ok, err := o.DefineOwnProperty(k, DataDescriptor(tc.v, false, false, false))
			require.NoError(t, err)
			require.True(t, ok)

			ok, err = o.DefineOwnProperty(k, ValueDescriptor(tc.v2))
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = o.DefineOwnProperty(k, ValueDescriptor(tc.v))
			require.NoError(t, err)
			assert.True(t, ok)

			for _, d := range []PropertyDescriptor{
				{Configurable: FlagTrue},
				{Enumerable: FlagTrue},
				{Writable: FlagTrue},
				AccessorDescriptor(Undefined, Undefined, false, false),
			} {
				ok, err := o.DefineOwnProperty(k, d)
				require.NoError(t, err)
				assert.False(t, ok)
			}
		})
	}
}

func TestOrdinary_IndexKeysRouteToIndexPartition(t *testing.T) {
	o := NewOrdinaryObject(nil)
	sym := NewSymbol("tag")
	for _, k := range []PropertyKey{StringKey("b"), SymbolKey(sym), StringKey("7"), StringKey("a"), StringKey("1")} {
		_, err := o.DefineOwnProperty(k, DataDescriptor(True, true, true, true))
		require.NoError(t, err)
	}
	_, err := o.DefineOwnProperty(StringKey("7"), ValueDescriptor(False))
	require.NoError(t, err)

	keys, err := o.OwnPropertyKeys()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "7", "b", "a", "Symbol(tag)"}, keyNames(keys))
	assert.True(t, keys[1].IsIndex())
	assert.Equal(t, []string{"b", "a"}, o.props.StringKeys())
}

// Cross-check validate-and-apply outcomes against a reference engine.
// goja accepts kind conversion of a non-configurable property, so those
// combinations are pinned to false instead.
func TestOrdinary_DefineMatchesReference(t *testing.T) {
	cases := []struct {
		js   string
		desc PropertyDescriptor
	}{
		{`{value: 1}`, ValueDescriptor(IntegerValue(1))},
		{`{value: 2}`, ValueDescriptor(IntegerValue(2))},
		{`{writable: true}`, PropertyDescriptor{Writable: FlagTrue}},
		{`{writable: false}`, PropertyDescriptor{Writable: FlagFalse}},
		{`{enumerable: true}`, PropertyDescriptor{Enumerable: FlagTrue}},
		{`{enumerable: false}`, PropertyDescriptor{Enumerable: FlagFalse}},
		{`{configurable: true}`, PropertyDescriptor{Configurable: FlagTrue}},
		{`{configurable: false}`, PropertyDescriptor{Configurable: FlagFalse}},
		{`{get: undefined}`, PropertyDescriptor{Getter: Undefined, HasGetter: true}},
		{`{}`, PropertyDescriptor{}},
	}
	initial := []struct {
		js   string
		desc PropertyDescriptor
	}{
		{`{value: 1, writable: false, enumerable: true, configurable: false}`, DataDescriptor(IntegerValue(1), false, true, false)},
		{`{value: 1, writable: true, enumerable: false, configurable: false}`, DataDescriptor(IntegerValue(1), true, false, false)},
		{`{value: 1, writable: false, enumerable: false, configurable: true}`, DataDescriptor(IntegerValue(1), false, false, true)},
		{`{get: undefined, set: undefined, enumerable: true, configurable: false}`, AccessorDescriptor(Undefined, Undefined, true, false)},
	}

	rt := goja.New()
	for _, init := range initial {
		for _, tc := range cases {
			res, err := rt.RunString(`(function () {
				var o = {};
				Object.defineProperty(o, "x", ` + init.js + `);
				return Reflect.defineProperty(o, "x", ` + tc.js + `);
			})()`)
			require.NoError(t, err)
			want := res.ToBoolean()
			converts := (init.desc.IsDataDescriptor() && tc.desc.IsAccessorDescriptor()) ||
				(init.desc.IsAccessorDescriptor() && tc.desc.IsDataDescriptor())
			if converts && init.desc.Configurable == FlagFalse {
				want = false
			}

			o := NewOrdinaryObject(nil)
			_, err = o.DefineOwnProperty(StringKey("x"), init.desc)
			require.NoError(t, err)
			got, err := o.DefineOwnProperty(StringKey("x"), tc.desc)
			require.NoError(t, err)
			assert.Equal(t, want, got, "define %s over %s", tc.js, init.js)
		}
	}
}

// Cross-check array key ordering against a reference engine.
func TestArray_KeyOrderMatchesReference(t *testing.T) {
	rt := goja.New()
	res, err := rt.RunString(`
		var a = [1, 2];
		a.foo = true;
		a[2] = 3;
		a.bar = true;
		Object.getOwnPropertyNames(a);
	`)
	require.NoError(t, err)
	var want []string
	require.NoError(t, rt.ExportTo(res, &want))

	r := newTestRealm(t)
	a := CreateArrayFromList(r, []Value{IntegerValue(1), IntegerValue(2)})
	require.NoError(t, SetOrThrow(a, StringKey("foo"), True))
	require.NoError(t, SetOrThrow(a, StringKey("2"), IntegerValue(3)))
	require.NoError(t, SetOrThrow(a, StringKey("bar"), True))
	keys, err := a.OwnPropertyKeys()
	require.NoError(t, err)
	if diff := cmp.Diff(want, keyNames(keys)); diff != "" {
		t.Errorf("key order differs from reference (-want +got):\n%s", diff)
	}
}

func TestOrdinary_DefineMergesOnlyPresentFields(t *testing.T) {
	o := NewOrdinaryObject(nil)
	k := StringKey("k")
	_, err := o.DefineOwnProperty(k, DataDescriptor(IntegerValue(1), true, false, true))
	require.NoError(t, err)
	ok, err := o.DefineOwnProperty(k, PropertyDescriptor{Enumerable: FlagTrue})
	require.NoError(t, err)
	require.True(t, ok)

	p, err := o.GetOwnProperty(k)
	require.NoError(t, err)
	assert.True(t, p.Enumerable())
	assert.True(t, p.Writable())
	assert.Equal(t, float64(1), p.Value().AsNumber())
}

func TestOrdinary_KindConversion(t *testing.T) {
	r := newTestRealm(t)
	getter := NewNativeFunction(r, "get", 0, func(Value, []Value) (Value, error) { return NewString("got"), nil })
	o := NewOrdinaryObject(nil)
	k := StringKey("k")
	_, err := o.DefineOwnProperty(k, DataDescriptor(IntegerValue(1), true, true, true))
	require.NoError(t, err)

	ok, err := o.DefineOwnProperty(k, PropertyDescriptor{Getter: ObjectValue(getter), HasGetter: true})
	require.NoError(t, err)
	require.True(t, ok)
	p, _ := o.GetOwnProperty(k)
	require.True(t, p.IsAccessor())
	assert.True(t, p.Enumerable())
	assert.True(t, p.Configurable())
	assert.Nil(t, p.Setter())
	v, err := o.Get(k, ObjectValue(o))
	require.NoError(t, err)
	assert.Equal(t, "got", v.AsString())

	ok, err = o.DefineOwnProperty(k, PropertyDescriptor{Writable: FlagFalse, Configurable: FlagFalse})
	require.NoError(t, err)
	require.True(t, ok)
	p, _ = o.GetOwnProperty(k)
	require.True(t, p.IsData())
	assert.True(t, p.Value().IsUndefined())
	assert.False(t, p.Writable())

	ok, err = o.DefineOwnProperty(k, PropertyDescriptor{Getter: ObjectValue(getter), HasGetter: true})
	require.NoError(t, err)
	assert.False(t, ok, "non-configurable data property cannot become an accessor")
}

func TestOrdinary_GetOwnPropertyReturnsCopy(t *testing.T) {
	o := NewOrdinaryObject(nil)
	k := StringKey("k")
	_, _ = CreateDataProperty(o, k, IntegerValue(1))
	p, _ := o.GetOwnProperty(k)
	p.value = IntegerValue(99)
	v, _ := o.Get(k, ObjectValue(o))
	assert.Equal(t, float64(1), v.AsNumber())
}

func TestOrdinary_NonExtensibleRejectsNewProperties(t *testing.T) {
	o := NewOrdinaryObject(nil)
	_, _ = CreateDataProperty(o, StringKey("a"), True)
	ok, _ := o.PreventExtensions()
	require.True(t, ok)

	ok, err := o.DefineOwnProperty(StringKey("b"), DataDescriptor(True, true, true, true))
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = o.DefineOwnProperty(StringKey("a"), ValueDescriptor(False))
	require.NoError(t, err)
	assert.True(t, ok, "existing properties stay writable")

	err = CreateDataPropertyOrThrow(o, StringKey("c"), True)
	assert.True(t, errors.IsKind(err, errors.KindType))
}

func TestOrdinary_GetUsesReceiverForAccessors(t *testing.T) {
	r := newTestRealm(t)
	proto := NewOrdinaryObject(nil)
	getter := NewNativeFunction(r, "", 0, func(this Value, _ []Value) (Value, error) {
		return GetV(this.AsObject(), StringKey("name"))
	})
	_, err := proto.DefineOwnProperty(StringKey("greeting"), AccessorDescriptor(ObjectValue(getter), Undefined, true, true))
	require.NoError(t, err)

	child := NewOrdinaryObject(proto)
	_, _ = CreateDataProperty(child, StringKey("name"), NewString("child"))
	v, err := child.Get(StringKey("greeting"), ObjectValue(child))
	require.NoError(t, err)
	assert.Equal(t, "child", v.AsString())

	has, err := child.HasProperty(StringKey("greeting"))
	require.NoError(t, err)
	assert.True(t, has)
	has, err = child.HasProperty(StringKey("missing"))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestOrdinary_SetCreatesOnReceiver(t *testing.T) {
	proto := NewOrdinaryObject(nil)
	_, _ = CreateDataProperty(proto, StringKey("x"), IntegerValue(1))
	child := NewOrdinaryObject(proto)

	ok, err := child.Set(StringKey("x"), IntegerValue(2), ObjectValue(child))
	require.NoError(t, err)
	require.True(t, ok)
	own, _ := child.GetOwnProperty(StringKey("x"))
	require.NotNil(t, own)
	assert.Equal(t, float64(2), own.Value().AsNumber())
	inherited, _ := proto.Get(StringKey("x"), ObjectValue(proto))
	assert.Equal(t, float64(1), inherited.AsNumber())

	sealed := NewOrdinaryObject(proto)
	_, _ = sealed.PreventExtensions()
	ok, err = sealed.Set(StringKey("x"), IntegerValue(3), ObjectValue(sealed))
	require.NoError(t, err)
	assert.False(t, ok, "receiver invariants apply when Set creates the property")
}

func TestOrdinary_SetInheritedReadOnlyFails(t *testing.T) {
	proto := NewOrdinaryObject(nil)
	_, _ = proto.DefineOwnProperty(StringKey("x"), DataDescriptor(IntegerValue(1), false, true, true))
	child := NewOrdinaryObject(proto)
	ok, err := child.Set(StringKey("x"), IntegerValue(2), ObjectValue(child))
	require.NoError(t, err)
	assert.False(t, ok)
	has, _ := HasOwnProperty(child, StringKey("x"))
	assert.False(t, has)
}

func TestOrdinary_SetCallsInheritedSetter(t *testing.T) {
	r := newTestRealm(t)
	var gotThis Value
	setter := NewNativeFunction(r, "", 1, func(this Value, args []Value) (Value, error) {
		gotThis = this
		return Undefined, nil
	})
	proto := NewOrdinaryObject(nil)
	_, _ = proto.DefineOwnProperty(StringKey("x"), AccessorDescriptor(Undefined, ObjectValue(setter), true, true))
	child := NewOrdinaryObject(proto)
	ok, err := child.Set(StringKey("x"), IntegerValue(2), ObjectValue(child))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Object(child), gotThis.AsObject())

	getterOnly := NewOrdinaryObject(nil)
	_, _ = getterOnly.DefineOwnProperty(StringKey("y"), AccessorDescriptor(Undefined, Undefined, true, true))
	ok, err = getterOnly.Set(StringKey("y"), True, ObjectValue(getterOnly))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOrdinary_Delete(t *testing.T) {
	o := NewOrdinaryObject(nil)
	_, _ = o.DefineOwnProperty(StringKey("fixed"), DataDescriptor(True, true, true, false))
	_, _ = CreateDataProperty(o, StringKey("loose"), True)

	ok, err := o.Delete(StringKey("missing"))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = o.Delete(StringKey("fixed"))
	assert.False(t, ok)
	ok, _ = o.Delete(StringKey("loose"))
	assert.True(t, ok)

	keys, _ := o.OwnPropertyKeys()
	assert.Equal(t, []string{"fixed"}, keyNames(keys))
	assert.Error(t, DeletePropertyOrThrow(o, StringKey("fixed")))
}

func TestOrdinary_SetPrototypeOfRejectsCycles(t *testing.T) {
	a := NewOrdinaryObject(nil)
	b := NewOrdinaryObject(a)
	c := NewOrdinaryObject(b)

	ok, err := a.SetPrototypeOf(c)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, a.Prototype())

	ok, _ = a.SetPrototypeOf(a)
	assert.False(t, ok)

	ok, _ = c.SetPrototypeOf(a)
	assert.True(t, ok)
	assert.Equal(t, Object(a), c.Prototype())

	_, _ = a.PreventExtensions()
	ok, _ = a.SetPrototypeOf(NewOrdinaryObject(nil))
	assert.False(t, ok)
	ok, _ = a.SetPrototypeOf(nil)
	assert.True(t, ok, "setting the same prototype succeeds on non-extensible objects")
}

func TestOrdinary_SetPrototypeOfWalkStopsAtProxy(t *testing.T) {
	r := newTestRealm(t)
	a := NewOrdinaryObject(nil)
	p, err := NewProxy(r, a, NewOrdinaryObject(nil))
	require.NoError(t, err)
	b := NewOrdinaryObject(p)

	ok, err := a.SetPrototypeOf(b)
	require.NoError(t, err)
	assert.True(t, ok, "the cycle through the proxy is not detected")
}

func TestIntegrityLevels(t *testing.T) {
	o := NewOrdinaryObject(nil)
	_, _ = CreateDataProperty(o, StringKey("a"), True)
	_, _ = CreateDataProperty(o, IndexKey(0), True)

	sealed, _ := TestIntegrityLevel(o, Sealed)
	assert.False(t, sealed)

	ok, err := SetIntegrityLevel(o, Sealed)
	require.NoError(t, err)
	require.True(t, ok)
	sealed, _ = TestIntegrityLevel(o, Sealed)
	frozen, _ := TestIntegrityLevel(o, Frozen)
	assert.True(t, sealed)
	assert.False(t, frozen)

	ok, err = SetIntegrityLevel(o, Frozen)
	require.NoError(t, err)
	require.True(t, ok)
	frozen, _ = TestIntegrityLevel(o, Frozen)
	assert.True(t, frozen)
	assert.Error(t, SetOrThrow(o, StringKey("a"), False))
}

func TestPropertyDescriptorRoundTrip(t *testing.T) {
	r := newTestRealm(t)
	obj := FromPropertyDescriptor(r, DataDescriptor(IntegerValue(3), true, false, true))
	desc, err := ToPropertyDescriptor(obj)
	require.NoError(t, err)
	assert.True(t, desc.IsDataDescriptor())
	assert.Equal(t, FlagTrue, desc.Writable)
	assert.Equal(t, FlagFalse, desc.Enumerable)
	assert.Equal(t, float64(3), desc.Value.AsNumber())

	bad := NewOrdinaryObject(nil)
	_, _ = CreateDataProperty(bad, StringKey("get"), IntegerValue(1))
	_, err = ToPropertyDescriptor(ObjectValue(bad))
	assert.True(t, errors.IsKind(err, errors.KindType))

	mixed := NewOrdinaryObject(nil)
	_, _ = CreateDataProperty(mixed, StringKey("get"), Undefined)
	_, _ = CreateDataProperty(mixed, StringKey("value"), IntegerValue(1))
	_, err = ToPropertyDescriptor(ObjectValue(mixed))
	assert.True(t, errors.IsKind(err, errors.KindType))
}

func TestProperty_DescriptorReportsAbsentAccessorsAsUndefined(t *testing.T) {
	r := newTestRealm(t)
	getter := NewNativeFunction(r, "get", 0, constant(IntegerValue(1)))
	p := NewAccessorProperty(getter, nil, true, false)

	desc := p.Descriptor()
	assert.True(t, desc.IsAccessorDescriptor())
	assert.Same(t, getter, desc.Getter.AsObject())
	assert.True(t, desc.Setter.IsUndefined(), "got %s", desc.Setter.Inspect())

	o := NewOrdinaryObject(nil)
	ok, err := o.DefineOwnProperty(StringKey("x"), desc)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = o.DefineOwnProperty(StringKey("x"), p.Descriptor())
	require.NoError(t, err)
	assert.True(t, ok, "redefining with the same descriptor is a no-op")
}

func TestOrdinaryCreateFromConstructor_FallsBackToRealmIntrinsic(t *testing.T) {
	r := newTestRealm(t)
	ctor := NewFunction(r, FunctionConfig{Name: "C"})
	_, _ = ctor.DefineOwnProperty(StringKey("prototype"), DataDescriptor(IntegerValue(5), true, false, false))
	o, err := OrdinaryCreateFromConstructor(ctor, IntrinsicObjectPrototype)
	require.NoError(t, err)
	assert.Equal(t, r.Intrinsic(IntrinsicObjectPrototype), o.Prototype())

	proto := NewOrdinaryObject(nil)
	_, _ = ctor.DefineOwnProperty(StringKey("prototype"), ValueDescriptor(ObjectValue(proto)))
	o, err = OrdinaryCreateFromConstructor(ctor, IntrinsicObjectPrototype)
	require.NoError(t, err)
	assert.Equal(t, Object(proto), o.Prototype())
}
