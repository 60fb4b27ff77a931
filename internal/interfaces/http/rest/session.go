package rest

import (
	"sync"

	"activegraph/internal/domain/graph"
)

// Session serialises access to a graph shared by concurrent requests. The
// graph itself assumes a single logical thread.
type Session struct {
	mu    sync.Mutex
	graph *graph.Graph
}

// NewSession wraps g.
func NewSession(g *graph.Graph) *Session {
	return &Session{graph: g}
}

// Do runs fn with exclusive access to the graph. Subscribers triggered by
// fn run inside the same critical section.
func (s *Session) Do(fn func(g *graph.Graph)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.graph)
}
