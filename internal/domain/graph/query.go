package graph

import (
	"time"

	"go.opentelemetry.io/otel/attribute"

	"activegraph/internal/domain/shared"
)

// View is the read-only surface handed to Query callbacks. Entity property
// stores reached through it still broadcast their writes.
type View interface {
	Node(id shared.ID) (*Node, bool)
	Connection(id shared.ID) (*Connection, bool)
	NodeCount() int
	ConnectionCount() int
	NodeIDAt(i int) (shared.ID, bool)
	ConnectionIDAt(i int) (shared.ID, bool)
	RangeNodes(fn func(*Node) bool)
	RangeConnections(fn func(*Connection) bool)
	Revision() uint64
}

// Mutator extends View with the graph's notifying operations.
type Mutator interface {
	View
	InsertNode(props map[string]any) shared.ID
	UpdateNode(id shared.ID, props map[string]any) error
	MergeNode(id shared.ID, props map[string]any) error
	DeleteNode(id shared.ID) bool
	DisconnectNode(id shared.ID, direction Direction) int
	InsertConnection(source, target shared.ID, props map[string]any) (shared.ID, error)
	UpdateConnection(id shared.ID, props map[string]any) error
	DeleteConnection(id shared.ID) bool
}

var (
	_ View    = (*Graph)(nil)
	_ Mutator = (*Graph)(nil)
)

// Metadata describes what a Query or Mutate call observed.
type Metadata struct {
	RevisionBefore uint64
	RevisionAfter  uint64
	// Events counts broadcasts issued during the call.
	Events  uint64
	Elapsed time.Duration
}

// Changed reports whether the call mutated the graph.
func (m Metadata) Changed() bool { return m.RevisionAfter != m.RevisionBefore }

// Query runs fn against a read-only view of g.
func Query[T any](g *Graph, fn func(View) T) (T, Metadata) {
	_, span := g.startSpan("Query")
	defer span.End()

	meta, done := g.measure()
	result := fn(readOnly{g})
	done(&meta)
	return result, meta
}

// Mutate runs fn with access to g's mutation operations. Every change goes
// through the same notifying path as a direct call.
func Mutate[T any](g *Graph, fn func(Mutator) T) (T, Metadata) {
	_, span := g.startSpan("Mutate")
	defer span.End()

	meta, done := g.measure()
	result := fn(g)
	done(&meta)
	span.SetAttributes(attribute.Int64("graph.events", int64(meta.Events)))
	return result, meta
}

func (g *Graph) measure() (Metadata, func(*Metadata)) {
	start := time.Now()
	seq := g.bus.Seq()
	meta := Metadata{RevisionBefore: g.revision}
	return meta, func(m *Metadata) {
		m.RevisionAfter = g.revision
		m.Events = g.bus.Seq() - seq
		m.Elapsed = time.Since(start)
	}
}

// readOnly hides the mutation methods of *Graph from Query callbacks, so a
// type assertion on the View cannot recover them.
type readOnly struct{ g *Graph }

func (r readOnly) Node(id shared.ID) (*Node, bool)             { return r.g.Node(id) }
func (r readOnly) Connection(id shared.ID) (*Connection, bool) { return r.g.Connection(id) }
func (r readOnly) NodeCount() int                              { return r.g.NodeCount() }
func (r readOnly) ConnectionCount() int                        { return r.g.ConnectionCount() }
func (r readOnly) NodeIDAt(i int) (shared.ID, bool)            { return r.g.NodeIDAt(i) }
func (r readOnly) ConnectionIDAt(i int) (shared.ID, bool)      { return r.g.ConnectionIDAt(i) }
func (r readOnly) RangeNodes(fn func(*Node) bool)              { r.g.RangeNodes(fn) }
func (r readOnly) RangeConnections(fn func(*Connection) bool)  { r.g.RangeConnections(fn) }
func (r readOnly) Revision() uint64                            { return r.g.Revision() }
