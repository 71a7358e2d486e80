package registry

// orderedMap is a string-keyed map that remembers insertion order.
// Not safe for concurrent use; the registries guard it with their own locks.
type orderedMap[V any] struct {
	keys   []string
	values map[string]V
}

func newOrderedMap[V any]() *orderedMap[V] {
	return &orderedMap[V]{values: make(map[string]V)}
}

func (m *orderedMap[V]) Len() int { return len(m.keys) }

func (m *orderedMap[V]) Get(key string) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *orderedMap[V]) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Set inserts key at the end, or replaces the value in place if key exists.
func (m *orderedMap[V]) Set(key string, v V) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Delete removes key and reports whether it was present.
func (m *orderedMap[V]) Delete(key string) (V, bool) {
	v, ok := m.values[key]
	if !ok {
		return v, false
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return v, true
}

func (m *orderedMap[V]) Clear() {
	m.keys = nil
	m.values = make(map[string]V)
}

// Each visits entries in insertion order.
func (m *orderedMap[V]) Each(fn func(key string, v V)) {
	for _, k := range m.keys {
		fn(k, m.values[k])
	}
}

// Values returns a fresh slice of values in insertion order, keeping only
// those accepted by keep (all when keep is nil).
func (m *orderedMap[V]) Values(keep func(V) bool) []V {
	out := make([]V, 0, len(m.keys))
	for _, k := range m.keys {
		v := m.values[k]
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	return out
}
