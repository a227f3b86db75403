package vm

import (
	"slices"
)

// PropertyStore holds an object's own properties in three disjoint
// partitions: integer indices, strings and symbols. It does not interpret
// keys; callers route canonical integer strings with StringKey.
//
// The zero value is an empty store ready to use.
type PropertyStore struct {
	indexed indexedStore
	strings orderedMap[string]
	symbols orderedMap[*Symbol]
}

func (s *PropertyStore) Get(key PropertyKey) *Property {
	switch key.kind {
	case KeyIndex:
		return s.indexed.get(key.index)
	case KeySymbol:
		return s.symbols.get(key.sym)
	default:
		return s.strings.get(key.name)
	}
}

func (s *PropertyStore) Put(key PropertyKey, p *Property) {
	switch key.kind {
	case KeyIndex:
		s.indexed.put(key.index, p)
	case KeySymbol:
		s.symbols.put(key.sym, p)
	default:
		s.strings.put(key.name, p)
	}
}

// Remove deletes key and reports whether it was present.
func (s *PropertyStore) Remove(key PropertyKey) bool {
	switch key.kind {
	case KeyIndex:
		return s.indexed.remove(key.index)
	case KeySymbol:
		return s.symbols.remove(key.sym)
	default:
		return s.strings.remove(key.name)
	}
}

func (s *PropertyStore) Contains(key PropertyKey) bool {
	return s.Get(key) != nil
}

// Indices returns the present indices in ascending order.
func (s *PropertyStore) Indices() []uint64 { return s.indexed.indices() }

// StringKeys returns string keys in insertion order.
func (s *PropertyStore) StringKeys() []string { return s.strings.ordered() }

// SymbolKeys returns symbol keys in insertion order.
func (s *PropertyStore) SymbolKeys() []*Symbol { return s.symbols.ordered() }

// Length is one past the highest present index, or 0.
func (s *PropertyStore) Length() uint64 { return s.indexed.length }

// Size returns the number of properties across all partitions.
func (s *PropertyStore) Size() int {
	return s.indexed.count + s.strings.len() + s.symbols.len()
}

// IsSparse reports the current representation of the indexed partition.
func (s *PropertyStore) IsSparse() bool { return s.indexed.sparse != nil }

// Keys returns all keys: indices ascending, then strings, then symbols.
func (s *PropertyStore) Keys() []PropertyKey {
	keys := make([]PropertyKey, 0, s.Size())
	for _, i := range s.indexed.indices() {
		keys = append(keys, IndexKey(i))
	}
	for _, name := range s.strings.ordered() {
		keys = append(keys, PropertyKey{kind: KeyString, name: name})
	}
	for _, sym := range s.symbols.ordered() {
		keys = append(keys, SymbolKey(sym))
	}
	return keys
}

// --- Ordered map ---

// orderedMap keeps insertion order. Removed entries leave a tombstone that
// is compacted once tombstones outnumber live entries. A key that is
// removed and added again moves to the end.
type orderedMap[K comparable] struct {
	index map[K]int
	keys  []K
	props []*Property
	dead  int
}

func (m *orderedMap[K]) get(k K) *Property {
	if i, ok := m.index[k]; ok {
		return m.props[i]
	}
	return nil
}

func (m *orderedMap[K]) put(k K, p *Property) {
	if i, ok := m.index[k]; ok {
		m.props[i] = p
		return
	}
	if m.index == nil {
		m.index = make(map[K]int)
	}
	m.index[k] = len(m.keys)
	m.keys = append(m.keys, k)
	m.props = append(m.props, p)
}

func (m *orderedMap[K]) remove(k K) bool {
	i, ok := m.index[k]
	if !ok {
		return false
	}
	delete(m.index, k)
	m.props[i] = nil
	m.dead++
	if m.dead > len(m.index) {
		m.compact()
	}
	return true
}

func (m *orderedMap[K]) compact() {
	keys := m.keys[:0]
	props := m.props[:0]
	for i, p := range m.props {
		if p == nil {
			continue
		}
		m.index[m.keys[i]] = len(keys)
		keys = append(keys, m.keys[i])
		props = append(props, p)
	}
	clear(m.keys[len(keys):])
	clear(m.props[len(props):])
	m.keys = keys
	m.props = props
	m.dead = 0
}

func (m *orderedMap[K]) len() int { return len(m.index) }

func (m *orderedMap[K]) ordered() []K {
	out := make([]K, 0, len(m.index))
	for i, p := range m.props {
		if p != nil {
			out = append(out, m.keys[i])
		}
	}
	return out
}

// --- Indexed partition ---

const (
	// denseSlack is how far past the end a write may land and still extend
	// the dense slice.
	denseSlack = 64
	// denseMinSize is the size below which the partition always stays dense.
	denseMinSize = 32
	// maxDenseLength bounds the dense slice regardless of occupancy.
	maxDenseLength = 1 << 24
)

// indexedStore is either dense (a slice with nil holes) or sparse (a map).
// The switch is decided by the hole ratio and is invisible to callers.
type indexedStore struct {
	dense  []*Property
	sparse map[uint64]*Property
	count  int
	length uint64
}

func (s *indexedStore) get(i uint64) *Property {
	if s.sparse != nil {
		return s.sparse[i]
	}
	if i < uint64(len(s.dense)) {
		return s.dense[i]
	}
	return nil
}

func (s *indexedStore) put(i uint64, p *Property) {
	if s.sparse != nil {
		if _, ok := s.sparse[i]; !ok {
			s.count++
		}
		s.sparse[i] = p
		s.grow(i)
		s.maybeDensify()
		return
	}
	n := uint64(len(s.dense))
	switch {
	case i < n:
		if s.dense[i] == nil {
			s.count++
		}
		s.dense[i] = p
	case i < n+denseSlack && i < maxDenseLength && (i < denseMinSize || uint64(s.count+1)*2 >= i+1):
		s.dense = append(s.dense, make([]*Property, i-n+1)...)
		s.dense[i] = p
		s.count++
	default:
		s.toSparse()
		s.sparse[i] = p
		s.count++
	}
	s.grow(i)
}

func (s *indexedStore) remove(i uint64) bool {
	if s.sparse != nil {
		if _, ok := s.sparse[i]; !ok {
			return false
		}
		delete(s.sparse, i)
	} else {
		if i >= uint64(len(s.dense)) || s.dense[i] == nil {
			return false
		}
		s.dense[i] = nil
	}
	s.count--
	if i+1 == s.length {
		s.shrink()
	}
	if s.sparse == nil && len(s.dense) > denseMinSize && s.count*4 < len(s.dense) {
		s.toSparse()
	}
	return true
}

func (s *indexedStore) grow(i uint64) {
	if i+1 > s.length {
		s.length = i + 1
	}
}

// shrink recomputes length after the highest index was removed.
func (s *indexedStore) shrink() {
	if s.count == 0 {
		s.length = 0
		s.dense = s.dense[:0]
		return
	}
	if s.sparse != nil {
		var hi uint64
		for i := range s.sparse {
			if i+1 > hi {
				hi = i + 1
			}
		}
		s.length = hi
		return
	}
	n := len(s.dense)
	for n > 0 && s.dense[n-1] == nil {
		n--
	}
	s.dense = s.dense[:n]
	s.length = uint64(n)
}

func (s *indexedStore) toSparse() {
	m := make(map[uint64]*Property, s.count+1)
	for i, p := range s.dense {
		if p != nil {
			m[uint64(i)] = p
		}
	}
	s.sparse = m
	s.dense = nil
}

func (s *indexedStore) maybeDensify() {
	if s.length > maxDenseLength || uint64(s.count)*2 < s.length {
		return
	}
	dense := make([]*Property, s.length)
	for i, p := range s.sparse {
		dense[i] = p
	}
	s.dense = dense
	s.sparse = nil
}

func (s *indexedStore) indices() []uint64 {
	out := make([]uint64, 0, s.count)
	if s.sparse != nil {
		for i := range s.sparse {
			out = append(out, i)
		}
		slices.Sort(out)
		return out
	}
	for i, p := range s.dense {
		if p != nil {
			out = append(out, uint64(i))
		}
	}
	return out
}
