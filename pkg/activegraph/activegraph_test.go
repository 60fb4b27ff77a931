package activegraph_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activegraph/pkg/activegraph"
)

func TestFacade(t *testing.T) {
	g := activegraph.New(activegraph.WithBusOptions(activegraph.WithMaxDepth(4)))

	var seen []activegraph.EventType
	g.Subscribe(activegraph.SubscriberFunc(func(e activegraph.Event) error {
		if e.Type.IsTopology() {
			seen = append(seen, e.Type)
		}
		return nil
	}))

	ids, meta := activegraph.Mutate(g, func(m activegraph.Mutator) []activegraph.ID {
		a := m.InsertNode(map[string]any{"name": "a"})
		b := m.InsertNode(map[string]any{"name": "b"})
		_, err := m.InsertConnection(a, b, nil)
		require.NoError(t, err)
		return []activegraph.ID{a, b}
	})
	assert.Equal(t, uint64(3), meta.RevisionAfter-meta.RevisionBefore)

	degree, _ := activegraph.Query(g, func(v activegraph.View) int {
		n, _ := v.Node(ids[0])
		return n.Degree()
	})
	assert.Equal(t, 1, degree)

	assert.Equal(t, 1, g.DisconnectNode(ids[1], activegraph.Incoming))
	assert.Equal(t, []activegraph.EventType{
		activegraph.EventVertexCreate,
		activegraph.EventVertexCreate,
		activegraph.EventEdgeCreate,
		activegraph.EventEdgeDelete,
		activegraph.EventVertexDisconnect,
	}, seen)
}

func TestFacadeErrors(t *testing.T) {
	g := activegraph.New()
	a := g.InsertNode(nil)
	ghost := activegraph.NewAllocator().Allocate(activegraph.KindNode)

	_, err := g.InsertConnection(a, ghost, nil)
	assert.True(t, activegraph.IsInvalidReference(err))
	assert.True(t, errors.Is(err, activegraph.ErrInvalidReference))

	err = g.MergeNode(ghost, nil)
	assert.True(t, activegraph.IsNotFound(err))

	parsed, err := activegraph.ParseID(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, parsed)

	_, err = activegraph.ParseDirection("up")
	assert.Error(t, err)
}

func Example() {
	g := activegraph.New()
	g.Subscribe(activegraph.SubscriberFunc(func(e activegraph.Event) error {
		if e.Type.IsTopology() {
			fmt.Println(e.Type)
		}
		return nil
	}))

	a := g.InsertNode(map[string]any{"name": "a"})
	b := g.InsertNode(map[string]any{"name": "b"})
	g.InsertConnection(a, b, nil)
	g.DeleteNode(a)

	// Output:
	// vertex/create
	// vertex/create
	// edge/create
	// edge/delete
	// vertex/disconnect
	// vertex/delete
}
