// Package activegraph is the embeddable surface of the graph: an observable,
// mutable, labelled directed multigraph whose every topology or property
// change is reported synchronously to subscribers.
//
//	g := activegraph.New()
//	g.Subscribe(activegraph.SubscriberFunc(func(e activegraph.Event) error {
//		fmt.Println(e.Seq, e.Type, e.Describe())
//		return nil
//	}))
//	a := g.InsertNode(map[string]any{"name": "a"})
//	b := g.InsertNode(map[string]any{"name": "b"})
//	g.InsertConnection(a, b, nil)
package activegraph

import (
	"activegraph/internal/domain/events"
	"activegraph/internal/domain/graph"
	"activegraph/internal/domain/property"
	"activegraph/internal/domain/shared"
	"activegraph/internal/errors"
)

type (
	Graph      = graph.Graph
	Node       = graph.Node
	Connection = graph.Connection
	Direction  = graph.Direction
	View       = graph.View
	Mutator    = graph.Mutator
	Metadata   = graph.Metadata
	Option     = graph.Option

	ID        = shared.ID
	Kind      = shared.Kind
	Allocator = shared.Allocator

	Event     = shared.Event
	EventType = shared.EventType
	Describer = shared.Describer

	Store = property.Store
	Entry = property.Entry

	Subscriber     = events.Subscriber
	SubscriberFunc = events.SubscriberFunc
	SubscriptionID = events.SubscriptionID
	BusOption      = events.Option
	BreakerConfig  = events.BreakerConfig
	FailureHook    = events.FailureHook

	Error = errors.UnifiedError
)

// Directions for DisconnectNode.
const (
	Incoming = graph.Incoming
	Outgoing = graph.Outgoing
	Both     = graph.Both
)

// Identifier kinds.
const (
	KindNode       = shared.KindNode
	KindConnection = shared.KindConnection
	KindGraph      = shared.KindGraph
)

// Event types.
const (
	EventVertexCreate     = shared.EventVertexCreate
	EventVertexUpdate     = shared.EventVertexUpdate
	EventVertexDelete     = shared.EventVertexDelete
	EventVertexDisconnect = shared.EventVertexDisconnect
	EventEdgeCreate       = shared.EventEdgeCreate
	EventEdgeUpdate       = shared.EventEdgeUpdate
	EventEdgeDelete       = shared.EventEdgeDelete
	EventPropertySet      = shared.EventPropertySet
	EventPropertyDelete   = shared.EventPropertyDelete
	EventPropertyClear    = shared.EventPropertyClear
	EventPropertySave     = shared.EventPropertySave
)

// IdentityKey is the property every entity stores its own identifier under.
const IdentityKey = graph.IdentityKey

// Sentinel errors; match them with errors.Is.
var (
	ErrNodeNotFound       = shared.ErrNodeNotFound
	ErrConnectionNotFound = shared.ErrConnectionNotFound
	ErrInvalidReference   = shared.ErrInvalidReference
)

// Graph options.
var (
	WithLogger     = graph.WithLogger
	WithTracer     = graph.WithTracer
	WithAllocator  = graph.WithAllocator
	WithBusOptions = graph.WithBusOptions
	WithContext    = graph.WithContext
)

// Bus options.
var (
	WithMaxDepth    = events.WithMaxDepth
	WithBreaker     = events.WithBreaker
	WithFailureHook = events.WithFailureHook
)

// New creates an empty graph.
func New(opts ...Option) *Graph { return graph.New(opts...) }

// NewAllocator creates an identifier allocator independent of the
// process-wide default.
func NewAllocator() *Allocator { return shared.NewAllocator() }

// ParseID parses the string form of an identifier.
func ParseID(s string) (ID, error) { return shared.ParseID(s) }

// ParseDirection accepts "in", "out", "both" and their long forms.
func ParseDirection(s string) (Direction, error) { return graph.ParseDirection(s) }

// DefaultBreakerConfig returns the breaker settings used when none are given.
func DefaultBreakerConfig() BreakerConfig { return events.DefaultBreakerConfig() }

// Query runs fn against a read-only view of g.
func Query[T any](g *Graph, fn func(View) T) (T, Metadata) { return graph.Query(g, fn) }

// Mutate runs fn against g and reports the revisions and events it caused.
func Mutate[T any](g *Graph, fn func(Mutator) T) (T, Metadata) { return graph.Mutate(g, fn) }

// IsNotFound reports whether err names a missing node or connection.
func IsNotFound(err error) bool { return errors.IsNotFound(err) }

// IsInvalidReference reports whether err is a connection endpoint that does
// not exist.
func IsInvalidReference(err error) bool { return errors.IsInvalidReference(err) }
