package graph

import (
	"activegraph/internal/domain/property"
	"activegraph/internal/domain/shared"
)

// IdentityKey is the property under which every entity stores its own
// identifier, so exported snapshots are self-describing.
const IdentityKey = "id"

// incidence is the narrow view of the owning graph a node needs to compute
// its relations on demand.
type incidence interface {
	incident(id shared.ID) (incoming, outgoing []*Connection)
	lookupNode(id shared.ID) (*Node, bool)
}

// Node is a vertex. It is created and destroyed only through its Graph.
type Node struct {
	id    shared.ID
	props *property.Store
	owner incidence
}

func newNode(id shared.ID, owner incidence, notifier property.Notifier, initial map[string]any) *Node {
	n := &Node{
		id:    id,
		props: property.NewStore(id, notifier),
		owner: owner,
	}
	n.props.Save(initial)
	n.props.Set(IdentityKey, id.String())
	return n
}

// ID returns the node identifier.
func (n *Node) ID() shared.ID { return n.id }

// Props returns the node's property store. The store is caller-writable:
// writes through it are broadcast but do not advance the graph's Revision,
// and nothing stops them removing IdentityKey. UpdateNode and MergeNode put
// the key back.
func (n *Node) Props() *property.Store { return n.props }

// Get is shorthand for Props().Get.
func (n *Node) Get(key string) (any, bool) { return n.props.Get(key) }

// Export returns a plain snapshot of the node's properties.
func (n *Node) Export() map[string]any { return n.props.Export() }

// Describe implements shared.Describer.
func (n *Node) Describe() map[string]any {
	return map[string]any{
		"id":         n.id.String(),
		"properties": n.Export(),
	}
}

// Connections scans the graph and returns the connections ending at this
// node and those starting from it. A self-loop appears in both.
func (n *Node) Connections() (incoming, outgoing []*Connection) {
	return n.owner.incident(n.id)
}

// Neighbours returns the distinct nodes joined to this one by a connection
// in either direction, in order of first appearance.
func (n *Node) Neighbours() []*Node {
	incoming, outgoing := n.Connections()
	seen := make(map[shared.ID]bool)
	var out []*Node
	add := func(id shared.ID) {
		if seen[id] {
			return
		}
		seen[id] = true
		if node, ok := n.owner.lookupNode(id); ok {
			out = append(out, node)
		}
	}
	for _, c := range outgoing {
		add(c.target)
	}
	for _, c := range incoming {
		add(c.source)
	}
	return out
}

// IsAdjacentTo reports whether a connection joins this node and other in
// either direction.
func (n *Node) IsAdjacentTo(other shared.ID) bool {
	incoming, outgoing := n.Connections()
	for _, c := range outgoing {
		if c.target == other {
			return true
		}
	}
	for _, c := range incoming {
		if c.source == other {
			return true
		}
	}
	return false
}

// InDegree counts incoming connections.
func (n *Node) InDegree() int {
	incoming, _ := n.Connections()
	return len(incoming)
}

// OutDegree counts outgoing connections.
func (n *Node) OutDegree() int {
	_, outgoing := n.Connections()
	return len(outgoing)
}

// Degree is InDegree plus OutDegree; a self-loop counts twice.
func (n *Node) Degree() int {
	incoming, outgoing := n.Connections()
	return len(incoming) + len(outgoing)
}
