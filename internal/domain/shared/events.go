package shared

// EventType names a mutation notification.
type EventType string

// Topology events.
const (
	EventVertexCreate     EventType = "vertex/create"
	EventVertexUpdate     EventType = "vertex/update"
	EventVertexDelete     EventType = "vertex/delete"
	EventVertexDisconnect EventType = "vertex/disconnect"
	EventEdgeCreate       EventType = "edge/create"
	EventEdgeUpdate       EventType = "edge/update"
	EventEdgeDelete       EventType = "edge/delete"
)

// Property store events.
const (
	EventPropertySet    EventType = "property/set"
	EventPropertyDelete EventType = "property/delete"
	EventPropertyClear  EventType = "property/clear"
	EventPropertySave   EventType = "property/save"
)

// AllEventTypes lists every event the graph can broadcast.
var AllEventTypes = []EventType{
	EventVertexCreate, EventVertexUpdate, EventVertexDelete, EventVertexDisconnect,
	EventEdgeCreate, EventEdgeUpdate, EventEdgeDelete,
	EventPropertySet, EventPropertyDelete, EventPropertyClear, EventPropertySave,
}

// String returns the wire name.
func (t EventType) String() string { return string(t) }

// IsTopology reports whether t describes a node or connection change rather
// than a property change.
func (t EventType) IsTopology() bool {
	switch t {
	case EventPropertySet, EventPropertyDelete, EventPropertyClear, EventPropertySave:
		return false
	}
	return true
}

// Describer is implemented by every payload so adapters can serialise an
// event without reaching into graph entities.
type Describer interface {
	Describe() map[string]any
}

// Event is what subscribers receive.
type Event struct {
	Type    EventType
	Payload Describer
	// Seq is stamped by the bus and strictly increases per bus.
	Seq uint64
}

// Describe returns the payload description, or an empty map for a nil payload.
func (e Event) Describe() map[string]any {
	if e.Payload == nil {
		return map[string]any{}
	}
	return e.Payload.Describe()
}

// ============================================================================
// PAYLOADS
// ============================================================================

// Removed reports a deleted node or connection.
type Removed struct {
	ID ID
}

func (p Removed) Describe() map[string]any {
	return map[string]any{"id": p.ID.String()}
}

// Disconnected reports how many connections were detached from a node.
type Disconnected struct {
	ID    ID
	Count int
}

func (p Disconnected) Describe() map[string]any {
	return map[string]any{"id": p.ID.String(), "count": p.Count}
}

// PropertySet reports a single key write.
type PropertySet struct {
	Entity ID
	Key    string
	Value  any
}

func (p PropertySet) Describe() map[string]any {
	return map[string]any{"entity": p.Entity.String(), "key": p.Key, "value": p.Value}
}

// PropertyDeleted reports the removal of a key that was present.
type PropertyDeleted struct {
	Entity ID
	Key    string
}

func (p PropertyDeleted) Describe() map[string]any {
	return map[string]any{"entity": p.Entity.String(), "key": p.Key}
}

// PropertyCleared reports a clear; Count is the size before clearing.
type PropertyCleared struct {
	Entity ID
	Count  int
}

func (p PropertyCleared) Describe() map[string]any {
	return map[string]any{"entity": p.Entity.String(), "count": p.Count}
}

// PropertySaved reports a bulk save. Entries holds only the saved pairs,
// not the rest of the store; Keys lists them in the order they were applied.
type PropertySaved struct {
	Entity  ID
	Keys    []string
	Entries map[string]any
}

func (p PropertySaved) Describe() map[string]any {
	entries := make(map[string]any, len(p.Entries))
	for k, v := range p.Entries {
		entries[k] = v
	}
	keys := make([]string, len(p.Keys))
	copy(keys, p.Keys)
	return map[string]any{"entity": p.Entity.String(), "keys": keys, "entries": entries}
}
