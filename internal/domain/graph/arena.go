package graph

import "activegraph/internal/domain/shared"

// arena keeps entities in insertion order with O(1) lookup by identifier.
// Removal leaves a tombstone; tombstones are squeezed out once they make up
// half the slots or before ordinal access.
type arena[T any] struct {
	ids   []shared.ID
	items []T
	index map[shared.ID]int
	dead  int
}

func newArena[T any]() *arena[T] {
	return &arena[T]{index: make(map[shared.ID]int)}
}

func (a *arena[T]) insert(id shared.ID, item T) {
	a.index[id] = len(a.ids)
	a.ids = append(a.ids, id)
	a.items = append(a.items, item)
}

func (a *arena[T]) get(id shared.ID) (T, bool) {
	slot, ok := a.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return a.items[slot], true
}

func (a *arena[T]) has(id shared.ID) bool {
	_, ok := a.index[id]
	return ok
}

func (a *arena[T]) remove(id shared.ID) bool {
	slot, ok := a.index[id]
	if !ok {
		return false
	}
	var zero T
	delete(a.index, id)
	a.ids[slot] = shared.ID{}
	a.items[slot] = zero
	a.dead++

	if a.dead*2 >= len(a.ids) {
		a.compact()
	}
	return true
}

func (a *arena[T]) len() int { return len(a.index) }

// at returns the identifier at ordinal position i among live entries.
func (a *arena[T]) at(i int) (shared.ID, bool) {
	if a.dead > 0 {
		a.compact()
	}
	if i < 0 || i >= len(a.ids) {
		return shared.ID{}, false
	}
	return a.ids[i], true
}

// each visits live entries in insertion order until fn returns false.
// Entries removed by fn during the walk are skipped.
func (a *arena[T]) each(fn func(T) bool) {
	ids := make([]shared.ID, 0, len(a.index))
	for _, id := range a.ids {
		if !id.IsZero() {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		item, ok := a.get(id)
		if !ok {
			continue
		}
		if !fn(item) {
			return
		}
	}
}

func (a *arena[T]) compact() {
	live := 0
	for slot, id := range a.ids {
		if id.IsZero() {
			continue
		}
		a.ids[live] = id
		a.items[live] = a.items[slot]
		a.index[id] = live
		live++
	}
	var zero T
	for slot := live; slot < len(a.ids); slot++ {
		a.items[slot] = zero
	}
	a.ids = a.ids[:live]
	a.items = a.items[:live]
	a.dead = 0
}
