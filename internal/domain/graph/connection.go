package graph

import (
	"activegraph/internal/domain/property"
	"activegraph/internal/domain/shared"
)

// Connection is a directed edge between two nodes of the same graph.
type Connection struct {
	id     shared.ID
	source shared.ID
	target shared.ID
	props  *property.Store
	owner  incidence
}

func newConnection(id, source, target shared.ID, owner incidence, notifier property.Notifier, initial map[string]any) *Connection {
	c := &Connection{
		id:     id,
		source: source,
		target: target,
		props:  property.NewStore(id, notifier),
		owner:  owner,
	}
	c.props.Save(initial)
	c.props.Set(IdentityKey, id.String())
	return c
}

// ID returns the connection identifier.
func (c *Connection) ID() shared.ID { return c.id }

// Source returns the identifier of the node the connection starts from.
func (c *Connection) Source() shared.ID { return c.source }

// Target returns the identifier of the node the connection points to.
func (c *Connection) Target() shared.ID { return c.target }

// From resolves the source node. It returns nil only if the node is gone,
// which cannot happen while the connection is part of a graph.
func (c *Connection) From() *Node {
	n, _ := c.owner.lookupNode(c.source)
	return n
}

// To resolves the target node.
func (c *Connection) To() *Node {
	n, _ := c.owner.lookupNode(c.target)
	return n
}

// IsLoop reports whether the connection starts and ends at the same node.
func (c *Connection) IsLoop() bool { return c.source == c.target }

// Props returns the connection's property store. Like Node.Props it is
// caller-writable and its writes do not advance Revision; UpdateConnection
// restores IdentityKey.
func (c *Connection) Props() *property.Store { return c.props }

// Get is shorthand for Props().Get.
func (c *Connection) Get(key string) (any, bool) { return c.props.Get(key) }

// Export returns a plain snapshot of the connection's properties.
func (c *Connection) Export() map[string]any { return c.props.Export() }

// Describe implements shared.Describer.
func (c *Connection) Describe() map[string]any {
	return map[string]any{
		"id":         c.id.String(),
		"source":     c.source.String(),
		"target":     c.target.String(),
		"properties": c.Export(),
	}
}
