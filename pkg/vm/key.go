package vm

import "strconv"

// Symbol is a unique property key with an optional description.
type Symbol struct {
	Description string
}

func NewSymbol(description string) *Symbol {
	return &Symbol{Description: description}
}

// Well-known symbols shared by every realm of the process.
var (
	SymToStringTag = NewSymbol("Symbol.toStringTag")
	SymIterator    = NewSymbol("Symbol.iterator")
)

// MaxSafeInteger is 2^53-1, the largest index the indexed partition accepts.
const MaxSafeInteger = 1<<53 - 1

// maxArrayIndex is 2^32-2, the largest index that affects an array's length.
const maxArrayIndex = 1<<32 - 2

type KeyKind uint8

const (
	KeyString KeyKind = iota
	KeyIndex
	KeySymbol
)

// PropertyKey identifies a property. Exactly one of the payloads is
// meaningful, selected by the kind. Keys are comparable and may be used as
// map keys.
type PropertyKey struct {
	kind  KeyKind
	index uint64
	name  string
	sym   *Symbol
}

// StringKey builds a key for s, routing canonical integer strings to the
// index kind so that "7" and IndexKey(7) are the same key.
func StringKey(s string) PropertyKey {
	if idx, ok := CanonicalIndex(s); ok {
		return PropertyKey{kind: KeyIndex, index: idx}
	}
	return PropertyKey{kind: KeyString, name: s}
}

// IndexKey builds an index key. Callers must keep idx <= MaxSafeInteger.
func IndexKey(idx uint64) PropertyKey {
	return PropertyKey{kind: KeyIndex, index: idx}
}

func SymbolKey(s *Symbol) PropertyKey {
	return PropertyKey{kind: KeySymbol, sym: s}
}

// CanonicalIndex reports whether s is the canonical decimal form of an
// integer in [0, 2^53-1]: no sign, no leading zeros except "0" itself.
func CanonicalIndex(s string) (uint64, bool) {
	n := len(s)
	if n == 0 || n > 16 {
		return 0, false
	}
	if s[0] == '0' {
		return 0, n == 1
	}
	var idx uint64
	for i := 0; i < n; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		idx = idx*10 + uint64(c-'0')
	}
	if idx > MaxSafeInteger {
		return 0, false
	}
	return idx, true
}

func (k PropertyKey) Kind() KeyKind   { return k.kind }
func (k PropertyKey) IsIndex() bool   { return k.kind == KeyIndex }
func (k PropertyKey) IsString() bool  { return k.kind == KeyString }
func (k PropertyKey) IsSymbol() bool  { return k.kind == KeySymbol }
func (k PropertyKey) Index() uint64   { return k.index }
func (k PropertyKey) Symbol() *Symbol { return k.sym }

// IsArrayIndex reports whether the key is an index that participates in
// array length bookkeeping.
func (k PropertyKey) IsArrayIndex() bool {
	return k.kind == KeyIndex && k.index <= maxArrayIndex
}

// Name returns the string form of a string or index key.
func (k PropertyKey) Name() string {
	switch k.kind {
	case KeyIndex:
		return strconv.FormatUint(k.index, 10)
	case KeyString:
		return k.name
	}
	return ""
}

// ToValue returns the key as a language value: a string for index and
// string keys, a symbol otherwise.
func (k PropertyKey) ToValue() Value {
	if k.kind == KeySymbol {
		return SymbolValue(k.sym)
	}
	return NewString(k.Name())
}

func (k PropertyKey) String() string {
	if k.kind == KeySymbol {
		return "Symbol(" + k.sym.Description + ")"
	}
	return k.Name()
}
