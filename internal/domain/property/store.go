// Package property implements the observable, insertion-ordered key/value
// store attached to every node and connection.
package property

import (
	"sort"

	"activegraph/internal/domain/shared"
)

// Notifier is the only capability a store holds back to its graph.
type Notifier interface {
	Notify(eventType shared.EventType, payload shared.Describer)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(eventType shared.EventType, payload shared.Describer)

// Notify calls f.
func (f NotifierFunc) Notify(eventType shared.EventType, payload shared.Describer) {
	f(eventType, payload)
}

// Entry is one key/value pair in iteration order.
type Entry struct {
	Key   string
	Value any
}

// Store is an ordered string-keyed map that reports every write. Overwriting
// an existing key keeps its position; deleting and re-adding moves it to the
// end. Notifications are sent after the change is applied.
type Store struct {
	owner    shared.ID
	notifier Notifier
	keys     []string
	values   map[string]any
}

// NewStore creates an empty store owned by the given entity. A nil notifier
// makes the store silent.
func NewStore(owner shared.ID, notifier Notifier) *Store {
	return &Store{
		owner:    owner,
		notifier: notifier,
		values:   make(map[string]any),
	}
}

// Owner returns the identifier of the entity the store belongs to.
func (s *Store) Owner() shared.ID { return s.owner }

// Set inserts or overwrites key and emits property/set.
func (s *Store) Set(key string, value any) {
	s.put(key, value)
	s.notify(shared.EventPropertySet, shared.PropertySet{Entity: s.owner, Key: key, Value: value})
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Has reports whether key is present.
func (s *Store) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Delete removes key. It emits property/delete and returns true only when
// the key was present.
func (s *Store) Delete(key string) bool {
	if _, ok := s.values[key]; !ok {
		return false
	}
	delete(s.values, key)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
	s.notify(shared.EventPropertyDelete, shared.PropertyDeleted{Entity: s.owner, Key: key})
	return true
}

// Clear removes every entry and then emits exactly one property/clear whose
// count is the size before clearing. An empty store still emits.
func (s *Store) Clear() {
	count := len(s.keys)
	s.keys = nil
	s.values = make(map[string]any)
	s.notify(shared.EventPropertyClear, shared.PropertyCleared{Entity: s.owner, Count: count})
}

// Save applies every entry of props, new keys in sorted order, and emits a
// single property/save carrying a copy of props and the order it was
// applied in.
func (s *Store) Save(props map[string]any) {
	keys := make([]string, 0, len(props))
	entries := make(map[string]any, len(props))
	for k, v := range props {
		keys = append(keys, k)
		entries[k] = v
	}
	sort.Strings(keys)

	for _, k := range keys {
		s.put(k, props[k])
	}
	s.notify(shared.EventPropertySave, shared.PropertySaved{Entity: s.owner, Keys: keys, Entries: entries})
}

// Replace clears the store and saves props.
func (s *Store) Replace(props map[string]any) {
	s.Clear()
	s.Save(props)
}

// Len returns the number of entries.
func (s *Store) Len() int { return len(s.keys) }

// Keys returns the keys in iteration order.
func (s *Store) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Entries returns the pairs in iteration order.
func (s *Store) Entries() []Entry {
	out := make([]Entry, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, Entry{Key: k, Value: s.values[k]})
	}
	return out
}

// Range calls fn for each entry in order until fn returns false. fn must not
// modify the store.
func (s *Store) Range(fn func(key string, value any) bool) {
	for _, k := range s.keys {
		if !fn(k, s.values[k]) {
			return
		}
	}
}

// Export returns a plain snapshot of the store.
func (s *Store) Export() map[string]any {
	out := make(map[string]any, len(s.keys))
	for _, k := range s.keys {
		out[k] = s.values[k]
	}
	return out
}

func (s *Store) put(key string, value any) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

func (s *Store) notify(eventType shared.EventType, payload shared.Describer) {
	if s.notifier != nil {
		s.notifier.Notify(eventType, payload)
	}
}
