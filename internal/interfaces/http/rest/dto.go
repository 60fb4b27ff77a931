package rest

import (
	"activegraph/internal/domain/graph"
)

// NodeRequest is the body of POST, PUT and PATCH on nodes.
type NodeRequest struct {
	Properties map[string]any `json:"properties"`
}

// ConnectionRequest is the body of POST /connections.
type ConnectionRequest struct {
	Source     string         `json:"source" validate:"required"`
	Target     string         `json:"target" validate:"required"`
	Properties map[string]any `json:"properties"`
}

// ConnectionUpdateRequest is the body of PATCH /connections/{id}.
type ConnectionUpdateRequest struct {
	Properties map[string]any `json:"properties" validate:"required"`
}

// NodeResponse describes a node.
type NodeResponse struct {
	ID         string         `json:"id"`
	Properties map[string]any `json:"properties"`
	InDegree   int            `json:"in_degree"`
	OutDegree  int            `json:"out_degree"`
}

func nodeResponse(n *graph.Node) NodeResponse {
	incoming, outgoing := n.Connections()
	return NodeResponse{
		ID:         n.ID().String(),
		Properties: n.Export(),
		InDegree:   len(incoming),
		OutDegree:  len(outgoing),
	}
}

// ConnectionResponse describes a connection.
type ConnectionResponse struct {
	ID         string         `json:"id"`
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Properties map[string]any `json:"properties"`
}

func connectionResponse(c *graph.Connection) ConnectionResponse {
	return ConnectionResponse{
		ID:         c.ID().String(),
		Source:     c.Source().String(),
		Target:     c.Target().String(),
		Properties: c.Export(),
	}
}

// GraphRequest is the body of PATCH /graph.
type GraphRequest struct {
	Properties map[string]any `json:"properties" validate:"required"`
}

// GraphResponse describes the graph's own properties.
type GraphResponse struct {
	ID         string         `json:"id"`
	Properties map[string]any `json:"properties"`
	Revision   uint64         `json:"revision"`
}

func graphResponse(g *graph.Graph) GraphResponse {
	return GraphResponse{
		ID:         g.ID().String(),
		Properties: g.Props().Export(),
		Revision:   g.Revision(),
	}
}

// DisconnectResponse reports how many connections were removed.
type DisconnectResponse struct {
	ID        string `json:"id"`
	Direction string `json:"direction"`
	Removed   int    `json:"removed"`
}

// StatsResponse summarises the graph.
type StatsResponse struct {
	Nodes       int    `json:"nodes"`
	Connections int    `json:"connections"`
	Revision    uint64 `json:"revision"`
	Subscribers int    `json:"subscribers"`
}
