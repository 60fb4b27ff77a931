package eventbridge

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"activegraph/internal/config"
	"activegraph/internal/domain/graph"
	"activegraph/internal/domain/shared"
	"activegraph/internal/errors"
)

type fakeClient struct {
	mu      sync.Mutex
	batches [][]types.PutEventsRequestEntry
	err     error
	failAll bool
}

func (c *fakeClient) PutEvents(_ context.Context, in *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, in.Entries)
	if c.err != nil {
		return nil, c.err
	}
	out := &eventbridge.PutEventsOutput{}
	if c.failAll {
		out.FailedEntryCount = int32(len(in.Entries))
		for range in.Entries {
			out.Entries = append(out.Entries, types.PutEventsResultEntry{
				ErrorCode:    aws.String("ThrottlingException"),
				ErrorMessage: aws.String("slow down"),
			})
		}
	}
	return out, nil
}

func (c *fakeClient) entries() []types.PutEventsRequestEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []types.PutEventsRequestEntry
	for _, b := range c.batches {
		out = append(out, b...)
	}
	return out
}

func testConfig() config.EventBridge {
	return config.EventBridge{
		Enabled: true,
		BusName: "graph-bus",
		Source:  "activegraph.test",
		Timeout: time.Second,
	}
}

func TestForwarder_ForwardsGraphEvents(t *testing.T) {
	client := &fakeClient{}
	f := NewForwarder(client, testConfig(), nil)

	g := graph.New()
	g.Subscribe(f)
	a := g.InsertNode(map[string]any{"label": "A"})
	g.DeleteNode(a)

	require.NoError(t, f.Close(context.Background()))

	entries := client.entries()
	require.Len(t, entries, 4) // save, set, create, delete

	var detailTypes []string
	for _, e := range entries {
		assert.Equal(t, "graph-bus", aws.ToString(e.EventBusName))
		assert.Equal(t, "activegraph.test", aws.ToString(e.Source))
		detailTypes = append(detailTypes, aws.ToString(e.DetailType))
	}
	assert.Equal(t, []string{"property/save", "property/set", "vertex/create", "vertex/delete"}, detailTypes)

	var detail map[string]any
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(entries[3].Detail)), &detail))
	assert.Equal(t, "vertex/delete", detail["type"])
	assert.Equal(t, float64(4), detail["seq"])
	assert.Equal(t, map[string]any{"id": a.String()}, detail["payload"])
}

func TestForwarder_Batches(t *testing.T) {
	client := &fakeClient{}
	f := NewForwarder(client, testConfig(), nil)

	g := graph.New()
	g.Subscribe(f)
	for i := 0; i < 8; i++ {
		g.InsertNode(nil) // three events each
	}
	require.NoError(t, f.Close(context.Background()))

	assert.Len(t, client.entries(), 24)
	client.mu.Lock()
	defer client.mu.Unlock()
	for _, b := range client.batches {
		assert.LessOrEqual(t, len(b), maxBatchSize)
	}
}

func TestForwarder_LogsFailures(t *testing.T) {
	tests := []struct {
		name    string
		client  *fakeClient
		message string
	}{
		{"api error", &fakeClient{err: stderrors.New("network")}, "EventBridge PutEvents failed"},
		{"rejected entries", &fakeClient{failAll: true}, "EventBridge rejected event"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.ErrorLevel)
			f := NewForwarder(tt.client, testConfig(), zap.New(core))

			g := graph.New()
			g.Subscribe(f)
			g.InsertNode(nil)
			require.NoError(t, f.Close(context.Background()))

			assert.NotZero(t, logs.FilterMessage(tt.message).Len())
		})
	}
}

func TestForwarder_RejectsAfterClose(t *testing.T) {
	f := NewForwarder(&fakeClient{}, testConfig(), nil)
	require.NoError(t, f.Close(context.Background()))
	require.NoError(t, f.Close(context.Background()), "close is idempotent")

	err := f.Handle(shared.Event{
		Type:    shared.EventVertexDelete,
		Payload: shared.Removed{ID: shared.NewID(shared.KindNode)},
		Seq:     1,
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnavailable))
}
