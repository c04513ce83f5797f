package guest

// table is an insertion-ordered map. Listings come back in creation order
// and "first match" scans are deterministic.
type table[T any] struct {
	keys []string
	rows map[string]T
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]T)}
}

func (t *table[T]) put(id string, v T) {
	if _, ok := t.rows[id]; !ok {
		t.keys = append(t.keys, id)
	}
	t.rows[id] = v
}

func (t *table[T]) get(id string) (T, bool) {
	v, ok := t.rows[id]
	return v, ok
}

func (t *table[T]) del(id string) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	for i, k := range t.keys {
		if k == id {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
	return true
}

func (t *table[T]) len() int {
	return len(t.rows)
}

// each visits rows in insertion order until fn returns false.
func (t *table[T]) each(fn func(id string, v T) bool) {
	for _, k := range t.keys {
		if !fn(k, t.rows[k]) {
			return
		}
	}
}
