package vm

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyStore_Partitions(t *testing.T) {
	var s PropertyStore
	sym := NewSymbol("s")
	s.Put(StringKey("b"), NewDataProperty(NewString("b"), true, true, true))
	s.Put(SymbolKey(sym), NewDataProperty(True, true, true, true))
	s.Put(StringKey("10"), NewDataProperty(IntegerValue(10), true, true, true))
	s.Put(StringKey("a"), NewDataProperty(NewString("a"), true, true, true))
	s.Put(IndexKey(2), NewDataProperty(IntegerValue(2), true, true, true))

	assert.Equal(t, []uint64{2, 10}, s.Indices())
	assert.Equal(t, []string{"b", "a"}, s.StringKeys())
	assert.Equal(t, []*Symbol{sym}, s.SymbolKeys())
	assert.Equal(t, uint64(11), s.Length())
	assert.Equal(t, 5, s.Size())

	want := []PropertyKey{IndexKey(2), IndexKey(10), StringKey("b"), StringKey("a"), SymbolKey(sym)}
	if diff := cmp.Diff(want, s.Keys(), cmp.AllowUnexported(PropertyKey{})); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
}

func TestPropertyStore_NonCanonicalStringsStayStrings(t *testing.T) {
	var s PropertyStore
	for _, name := range []string{"01", "-1", "1.5", "9007199254740992", ""} {
		s.Put(StringKey(name), NewDataProperty(Undefined, true, true, true))
	}
	assert.Empty(t, s.Indices())
	assert.Equal(t, []string{"01", "-1", "1.5", "9007199254740992", ""}, s.StringKeys())
}

func TestPropertyStore_RemoveAndReinsertMovesToEnd(t *testing.T) {
	var s PropertyStore
	for _, name := range []string{"x", "y", "z"} {
		s.Put(StringKey(name), NewDataProperty(Undefined, true, true, true))
	}
	require.True(t, s.Remove(StringKey("x")))
	assert.False(t, s.Remove(StringKey("x")))
	s.Put(StringKey("x"), NewDataProperty(Undefined, true, true, true))
	assert.Equal(t, []string{"y", "z", "x"}, s.StringKeys())
	assert.False(t, s.Contains(StringKey("w")))
}

func TestPropertyStore_CompactsTombstones(t *testing.T) {
	var s PropertyStore
	for i := 0; i < 100; i++ {
		s.Put(StringKey(string(rune('A'+i%26))+string(rune('a'+i/26))), NewDataProperty(IntegerValue(int64(i)), true, true, true))
	}
	for i := 0; i < 90; i++ {
		s.Remove(StringKey(string(rune('A'+i%26)) + string(rune('a'+i/26))))
	}
	keys := s.StringKeys()
	require.Len(t, keys, 10)
	assert.Equal(t, "Md", keys[0])
	assert.Equal(t, IntegerValue(99).AsNumber(), s.Get(StringKey("Vd")).Value().AsNumber())
}

func TestPropertyStore_DenseSparseSwitch(t *testing.T) {
	var s PropertyStore
	for i := uint64(0); i < 8; i++ {
		s.Put(IndexKey(i), NewDataProperty(IntegerValue(int64(i)), true, true, true))
	}
	assert.False(t, s.IsSparse())

	s.Put(IndexKey(1_000_000), NewDataProperty(True, true, true, true))
	assert.True(t, s.IsSparse(), "far write should switch to the sparse representation")
	assert.Equal(t, uint64(1_000_001), s.Length())
	assert.Equal(t, []uint64{0, 1, 2, 3, 4, 5, 6, 7, 1_000_000}, s.Indices())

	require.True(t, s.Remove(IndexKey(1_000_000)))
	assert.Equal(t, uint64(8), s.Length())
	s.Put(IndexKey(8), NewDataProperty(True, true, true, true))
	assert.False(t, s.IsSparse(), "well-filled partition should return to dense")
	assert.Equal(t, []uint64{0, 1, 2, 3, 4, 5, 6, 7, 8}, s.Indices())
}

func TestPropertyStore_HolesGoSparse(t *testing.T) {
	var s PropertyStore
	for i := uint64(0); i < 64; i++ {
		s.Put(IndexKey(i), NewDataProperty(Undefined, true, true, true))
	}
	for i := uint64(0); i < 60; i++ {
		s.Remove(IndexKey(i))
	}
	assert.True(t, s.IsSparse())
	assert.Equal(t, []uint64{60, 61, 62, 63}, s.Indices())
	assert.Equal(t, uint64(64), s.Length())
	assert.NotNil(t, s.Get(IndexKey(61)))
	assert.Nil(t, s.Get(IndexKey(3)))
}
