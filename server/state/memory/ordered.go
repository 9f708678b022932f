package memory

import "container/list"

// orderedMap は挿入順を保持するマップです。既存キーへのsetは順序を変えません。
type orderedMap[K comparable, V any] struct {
	index map[K]*list.Element
	order *list.List
}

type orderedEntry[K comparable, V any] struct {
	key   K
	value V
}

func newOrderedMap[K comparable, V any]() *orderedMap[K, V] {
	return &orderedMap[K, V]{
		index: make(map[K]*list.Element),
		order: list.New(),
	}
}

func (m *orderedMap[K, V]) set(key K, value V) {
	if el, ok := m.index[key]; ok {
		el.Value.(*orderedEntry[K, V]).value = value
		return
	}
	m.index[key] = m.order.PushBack(&orderedEntry[K, V]{key: key, value: value})
}

func (m *orderedMap[K, V]) get(key K) (V, bool) {
	el, ok := m.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	return el.Value.(*orderedEntry[K, V]).value, true
}

func (m *orderedMap[K, V]) delete(key K) bool {
	el, ok := m.index[key]
	if !ok {
		return false
	}
	m.order.Remove(el)
	delete(m.index, key)
	return true
}

func (m *orderedMap[K, V]) len() int {
	return len(m.index)
}

func (m *orderedMap[K, V]) values() []V {
	out := make([]V, 0, len(m.index))
	for el := m.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*orderedEntry[K, V]).value)
	}
	return out
}
