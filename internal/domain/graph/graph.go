// Package graph implements the observable directed multigraph aggregate.
//
// A Graph owns its nodes and connections; each entity owns a property store
// whose writes are broadcast on the graph's bus. Every mutation is applied
// before it is announced, and deleting a node first deletes every connection
// touching it so subscribers never see a dangling connection.
//
// A Graph is not safe for concurrent use. Subscribers may call back into the
// graph; the bus bounds how deeply such calls nest.
package graph

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"activegraph/internal/domain/events"
	"activegraph/internal/domain/property"
	"activegraph/internal/domain/shared"
	"activegraph/internal/errors"
)

// Direction selects which side of a node DisconnectNode detaches.
type Direction uint8

const (
	Incoming Direction = 1 << iota
	Outgoing
	Both = Incoming | Outgoing
)

// String returns the lower-case name used by adapters.
func (d Direction) String() string {
	switch d {
	case Incoming:
		return "incoming"
	case Outgoing:
		return "outgoing"
	case Both:
		return "both"
	}
	return "none"
}

// ParseDirection accepts incoming, outgoing, both or the empty string
// (meaning both).
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "", "both":
		return Both, nil
	case "incoming", "in":
		return Incoming, nil
	case "outgoing", "out":
		return Outgoing, nil
	}
	return 0, errors.Validation(errors.CodeInvalidInput.String(), "unknown direction").
		WithDetails(s).
		Build()
}

// Graph is the aggregate root. Besides its nodes and connections it carries
// a property store of its own, for labels that describe the whole graph.
type Graph struct {
	id          shared.ID
	props       *property.Store
	nodes       *arena[*Node]
	connections *arena[*Connection]
	bus         *events.Bus
	allocator   *shared.Allocator
	revision    uint64

	// deleting holds nodes whose cascade is in progress; they accept no
	// new connections.
	deleting map[shared.ID]struct{}

	logger *zap.Logger
	tracer trace.Tracer
	ctx    context.Context

	busOptions []events.Option
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger used by the graph and its bus.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Graph) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithTracer wraps every mutation in a span from tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(g *Graph) {
		if tracer != nil {
			g.tracer = tracer
		}
	}
}

// WithAllocator sets the identifier source. Graphs share the process-wide
// allocator unless told otherwise.
func WithAllocator(a *shared.Allocator) Option {
	return func(g *Graph) {
		if a != nil {
			g.allocator = a
		}
	}
}

// WithBusOptions forwards options to the graph's bus.
func WithBusOptions(opts ...events.Option) Option {
	return func(g *Graph) { g.busOptions = append(g.busOptions, opts...) }
}

// WithContext sets the parent context for mutation spans.
func WithContext(ctx context.Context) Option {
	return func(g *Graph) {
		if ctx != nil {
			g.ctx = ctx
		}
	}
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		nodes:       newArena[*Node](),
		connections: newArena[*Connection](),
		deleting:    make(map[shared.ID]struct{}),
		logger:      zap.NewNop(),
		tracer:      noop.NewTracerProvider().Tracer("activegraph/graph"),
		ctx:         context.Background(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.bus = events.NewBus(g.logger.Named("bus"), g.busOptions...)
	g.busOptions = nil

	g.id = g.allocate(shared.KindGraph)
	g.props = property.NewStore(g.id, g.notifier())
	return g
}

// ID returns the graph identifier. Graph-level property events carry it as
// their entity.
func (g *Graph) ID() shared.ID { return g.id }

// Props returns the graph's own property store. Writes through it are
// broadcast like those on entity stores but do not advance Revision.
func (g *Graph) Props() *property.Store { return g.props }

// MergeProps writes props over the graph's own properties as one mutation.
// Unlike entity stores, the graph store starts empty and holds no identity
// key.
func (g *Graph) MergeProps(props map[string]any) {
	_, span := g.startSpan("MergeProps", attribute.String("graph.id", g.id.String()))
	defer span.End()

	g.props.Save(props)
	g.revision++
}

// ============================================================================
// SUBSCRIPTION
// ============================================================================

// Subscribe registers s on the graph's bus.
func (g *Graph) Subscribe(s events.Subscriber) events.SubscriptionID {
	return g.bus.Subscribe(s)
}

// Unsubscribe removes a registration.
func (g *Graph) Unsubscribe(id events.SubscriptionID) bool {
	return g.bus.Unsubscribe(id)
}

// Bus exposes the broadcast facility.
func (g *Graph) Bus() *events.Bus { return g.bus }

// ============================================================================
// NODE OPERATIONS
// ============================================================================

// InsertNode creates a node with the given properties and returns its
// identifier. Construction broadcasts property/save and property/set, then
// the node is indexed and vertex/create is broadcast.
func (g *Graph) InsertNode(props map[string]any) shared.ID {
	id := g.allocate(shared.KindNode)
	_, span := g.startSpan("InsertNode", attribute.String("node.id", id.String()))
	defer span.End()

	node := newNode(id, g, g.notifier(), props)
	g.nodes.insert(id, node)
	g.revision++

	g.logger.Debug("Node inserted", zap.Stringer("node_id", id))
	g.bus.Broadcast(shared.EventVertexCreate, node)
	return id
}

// UpdateNode replaces every property of a node. The identity key survives.
func (g *Graph) UpdateNode(id shared.ID, props map[string]any) error {
	return g.updateNode("UpdateNode", id, props, true)
}

// MergeNode writes props over a node's existing properties.
func (g *Graph) MergeNode(id shared.ID, props map[string]any) error {
	return g.updateNode("MergeNode", id, props, false)
}

func (g *Graph) updateNode(op string, id shared.ID, props map[string]any, replace bool) error {
	_, span := g.startSpan(op, attribute.String("node.id", id.String()))
	defer span.End()

	node, ok := g.nodes.get(id)
	if !ok {
		err := errors.From(shared.ErrNodeNotFound).
			WithOperation(op).
			WithEntity(id.String()).
			Build()
		recordError(span, err)
		return err
	}

	if replace {
		node.props.Replace(withIdentity(props, id))
	} else {
		node.props.Save(withIdentity(props, id))
	}
	g.revision++

	g.logger.Debug("Node updated", zap.Stringer("node_id", id), zap.Bool("replace", replace))
	g.bus.Broadcast(shared.EventVertexUpdate, node)
	return nil
}

// DeleteNode removes a node and every connection touching it. Each removed
// connection is announced with edge/delete, followed by one
// vertex/disconnect when there were any, and finally vertex/delete. It
// returns false, broadcasting nothing, when id is unknown. While the cascade
// runs the node rejects new connections, and a nested DeleteNode for it
// returns false.
func (g *Graph) DeleteNode(id shared.ID) bool {
	_, span := g.startSpan("DeleteNode", attribute.String("node.id", id.String()))
	defer span.End()

	if !g.nodes.has(id) {
		return false
	}
	if _, busy := g.deleting[id]; busy {
		// A subscriber asked again while the cascade runs; the outer call
		// finishes the job.
		return false
	}
	g.deleting[id] = struct{}{}
	defer delete(g.deleting, id)

	removed := g.detach(id, Both)
	span.SetAttributes(attribute.Int("connections.removed", removed))

	g.nodes.remove(id)
	g.revision++

	g.logger.Debug("Node deleted", zap.Stringer("node_id", id), zap.Int("connections_removed", removed))
	g.bus.Broadcast(shared.EventVertexDelete, shared.Removed{ID: id})
	return true
}

// DisconnectNode deletes the connections on the requested side(s) of a node
// and returns how many were removed. Neighbouring nodes are left in place.
// A self-loop is counted once.
func (g *Graph) DisconnectNode(id shared.ID, direction Direction) int {
	_, span := g.startSpan("DisconnectNode",
		attribute.String("node.id", id.String()),
		attribute.String("direction", direction.String()))
	defer span.End()

	if !g.nodes.has(id) {
		return 0
	}
	removed := g.detach(id, direction)
	if removed > 0 {
		g.revision++
	}
	span.SetAttributes(attribute.Int("connections.removed", removed))
	return removed
}

// detach removes the incident connections selected by direction and
// broadcasts vertex/disconnect if any were removed.
func (g *Graph) detach(id shared.ID, direction Direction) int {
	incoming, outgoing := g.incident(id)

	var targets []*Connection
	seen := make(map[shared.ID]bool)
	collect := func(list []*Connection) {
		for _, c := range list {
			if !seen[c.id] {
				seen[c.id] = true
				targets = append(targets, c)
			}
		}
	}
	if direction&Incoming != 0 {
		collect(incoming)
	}
	if direction&Outgoing != 0 {
		collect(outgoing)
	}

	removed := 0
	for _, c := range targets {
		if g.removeConnection(c.id) {
			removed++
		}
	}
	if removed > 0 {
		g.bus.Broadcast(shared.EventVertexDisconnect, shared.Disconnected{ID: id, Count: removed})
	}
	return removed
}

// ============================================================================
// CONNECTION OPERATIONS
// ============================================================================

// InsertConnection creates a connection from source to target. Both must
// be nodes of this graph.
func (g *Graph) InsertConnection(source, target shared.ID, props map[string]any) (shared.ID, error) {
	_, span := g.startSpan("InsertConnection",
		attribute.String("connection.source", source.String()),
		attribute.String("connection.target", target.String()))
	defer span.End()

	for _, endpoint := range []struct {
		role string
		id   shared.ID
	}{{"source", source}, {"target", target}} {
		if !g.acceptsConnections(endpoint.id) {
			err := errors.From(shared.ErrInvalidReference).
				WithOperation("InsertConnection").
				WithEntity(endpoint.id.String()).
				WithDetails(endpoint.role + " node does not exist").
				Build()
			recordError(span, err)
			return shared.ID{}, err
		}
	}

	id := g.allocate(shared.KindConnection)
	span.SetAttributes(attribute.String("connection.id", id.String()))

	conn := newConnection(id, source, target, g, g.notifier(), props)
	g.connections.insert(id, conn)
	g.revision++

	g.logger.Debug("Connection inserted",
		zap.Stringer("connection_id", id),
		zap.Stringer("source", source),
		zap.Stringer("target", target))
	g.bus.Broadcast(shared.EventEdgeCreate, conn)
	return id, nil
}

// UpdateConnection merges props into a connection's properties.
func (g *Graph) UpdateConnection(id shared.ID, props map[string]any) error {
	_, span := g.startSpan("UpdateConnection", attribute.String("connection.id", id.String()))
	defer span.End()

	conn, ok := g.connections.get(id)
	if !ok {
		err := errors.From(shared.ErrConnectionNotFound).
			WithOperation("UpdateConnection").
			WithEntity(id.String()).
			Build()
		recordError(span, err)
		return err
	}

	conn.props.Save(withIdentity(props, id))
	g.revision++

	g.logger.Debug("Connection updated", zap.Stringer("connection_id", id))
	g.bus.Broadcast(shared.EventEdgeUpdate, conn)
	return nil
}

// DeleteConnection removes a connection. It returns false, broadcasting
// nothing, when id is unknown.
func (g *Graph) DeleteConnection(id shared.ID) bool {
	_, span := g.startSpan("DeleteConnection", attribute.String("connection.id", id.String()))
	defer span.End()

	if !g.removeConnection(id) {
		return false
	}
	g.revision++
	return true
}

func (g *Graph) removeConnection(id shared.ID) bool {
	if !g.connections.remove(id) {
		return false
	}
	g.logger.Debug("Connection deleted", zap.Stringer("connection_id", id))
	g.bus.Broadcast(shared.EventEdgeDelete, shared.Removed{ID: id})
	return true
}

// ============================================================================
// READS
// ============================================================================

// Node looks up a node.
func (g *Graph) Node(id shared.ID) (*Node, bool) { return g.nodes.get(id) }

// Connection looks up a connection.
func (g *Graph) Connection(id shared.ID) (*Connection, bool) { return g.connections.get(id) }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return g.nodes.len() }

// ConnectionCount returns the number of connections.
func (g *Graph) ConnectionCount() int { return g.connections.len() }

// Order is the graph-theory name for NodeCount.
func (g *Graph) Order() int { return g.NodeCount() }

// Size is the graph-theory name for ConnectionCount.
func (g *Graph) Size() int { return g.ConnectionCount() }

// NodeIDAt returns the identifier of the i-th live node in insertion order.
func (g *Graph) NodeIDAt(i int) (shared.ID, bool) { return g.nodes.at(i) }

// ConnectionIDAt returns the identifier of the i-th live connection in
// insertion order.
func (g *Graph) ConnectionIDAt(i int) (shared.ID, bool) { return g.connections.at(i) }

// RangeNodes visits nodes in insertion order until fn returns false.
func (g *Graph) RangeNodes(fn func(*Node) bool) { g.nodes.each(fn) }

// RangeConnections visits connections in insertion order until fn returns
// false.
func (g *Graph) RangeConnections(fn func(*Connection) bool) { g.connections.each(fn) }

// Revision increases by one for every operation that changed the graph.
func (g *Graph) Revision() uint64 { return g.revision }

// ============================================================================
// INTERNALS
// ============================================================================

func (g *Graph) incident(id shared.ID) (incoming, outgoing []*Connection) {
	g.connections.each(func(c *Connection) bool {
		if c.target == id {
			incoming = append(incoming, c)
		}
		if c.source == id {
			outgoing = append(outgoing, c)
		}
		return true
	})
	return incoming, outgoing
}

func (g *Graph) lookupNode(id shared.ID) (*Node, bool) { return g.nodes.get(id) }

func (g *Graph) acceptsConnections(id shared.ID) bool {
	if _, busy := g.deleting[id]; busy {
		return false
	}
	return g.nodes.has(id)
}

func (g *Graph) notifier() property.Notifier {
	return property.NotifierFunc(func(eventType shared.EventType, payload shared.Describer) {
		g.bus.Broadcast(eventType, payload)
	})
}

func (g *Graph) allocate(kind shared.Kind) shared.ID {
	if g.allocator != nil {
		return g.allocator.Allocate(kind)
	}
	return shared.NewID(kind)
}

func (g *Graph) startSpan(op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return g.tracer.Start(g.ctx, "graph."+op, trace.WithAttributes(attrs...))
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// withIdentity copies props and pins the identity key to id.
func withIdentity(props map[string]any, id shared.ID) map[string]any {
	out := make(map[string]any, len(props)+1)
	for k, v := range props {
		out[k] = v
	}
	out[IdentityKey] = id.String()
	return out
}
