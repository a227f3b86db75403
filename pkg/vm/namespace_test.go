package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esrt/pkg/errors"
)

func TestModuleNamespace(t *testing.T) {
	values := map[string]Value{"b": IntegerValue(2), "a": IntegerValue(1), "default": NewString("d")}
	ns := NewModuleNamespace([]string{"b", "default", "a", "a"}, func(name string) (Value, error) {
		if name == "late" {
			return Undefined, errors.NewResolutionError("m.js", name, "binding '%s' is not initialized", name)
		}
		return values[name], nil
	})

	keys, err := ns.OwnPropertyKeys()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "default", "Symbol(Symbol.toStringTag)"}, keyNames(keys))

	v, err := ns.Get(StringKey("a"), ObjectValue(ns))
	require.NoError(t, err)
	assert.Equal(t, float64(1), v.AsNumber())

	values["a"] = IntegerValue(10)
	v, _ = ns.Get(StringKey("a"), ObjectValue(ns))
	assert.Equal(t, float64(10), v.AsNumber(), "bindings are live")

	tag, _ := ns.Get(SymbolKey(SymToStringTag), ObjectValue(ns))
	assert.Equal(t, "Module", tag.AsString())

	p, err := ns.GetOwnProperty(StringKey("b"))
	require.NoError(t, err)
	assert.True(t, p.Writable())
	assert.True(t, p.Enumerable())
	assert.False(t, p.Configurable())

	ok, _ := ns.Set(StringKey("a"), True, ObjectValue(ns))
	assert.False(t, ok)
	ok, _ = ns.Delete(StringKey("a"))
	assert.False(t, ok)
	ok, _ = ns.Delete(StringKey("missing"))
	assert.True(t, ok)
	ok, _ = ns.DefineOwnProperty(StringKey("new"), DataDescriptor(True, true, true, false))
	assert.False(t, ok)
	ok, _ = ns.DefineOwnProperty(StringKey("b"), ValueDescriptor(IntegerValue(2)))
	assert.True(t, ok)
	ok, _ = ns.DefineOwnProperty(StringKey("b"), ValueDescriptor(IntegerValue(3)))
	assert.False(t, ok)
	ok, _ = ns.DefineOwnProperty(StringKey("b"), PropertyDescriptor{Configurable: FlagTrue})
	assert.False(t, ok)

	ext, _ := ns.IsExtensible()
	assert.False(t, ext)
	proto, _ := ns.GetPrototypeOf()
	assert.Nil(t, proto)
	ok, _ = ns.SetPrototypeOf(nil)
	assert.True(t, ok)
	ok, _ = ns.SetPrototypeOf(NewOrdinaryObject(nil))
	assert.False(t, ok)
	frozen, err := TestIntegrityLevel(ns, Sealed)
	require.NoError(t, err)
	assert.True(t, frozen)

	has, _ := ns.HasProperty(StringKey("default"))
	assert.True(t, has)
	has, _ = ns.HasProperty(StringKey("toString"))
	assert.False(t, has)
}

func TestModuleNamespace_UninitializedBinding(t *testing.T) {
	ns := NewModuleNamespace([]string{"late"}, func(name string) (Value, error) {
		return Undefined, errors.NewResolutionError("m.js", name, "binding '%s' is not initialized", name)
	})
	_, err := ns.Get(StringKey("late"), ObjectValue(ns))
	assert.True(t, errors.IsKind(err, errors.KindResolution))
	has, err := ns.HasProperty(StringKey("late"))
	require.NoError(t, err)
	assert.True(t, has)
}

func TestModuleNamespace_CodeUnitOrder(t *testing.T) {
	ns := NewModuleNamespace([]string{"\U0001F600", "￿", "Z", "a"}, func(string) (Value, error) { return Undefined, nil })
	assert.Equal(t, []string{"Z", "a", "\U0001F600", "￿"}, ns.Exports())
}
