package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zapcore"

	"activegraph/internal/config"
	"activegraph/internal/domain/events"
	"activegraph/internal/domain/graph"
	"activegraph/internal/domain/shared"
	"activegraph/internal/errors"
)

func TestCollector_TracksGraph(t *testing.T) {
	c := NewCollector("activegraph")
	g := graph.New(graph.WithBusOptions(events.WithFailureHook(c.OnFailure)))
	g.Subscribe(c)
	g.Subscribe(events.SubscriberFunc(func(e shared.Event) error {
		if e.Type == shared.EventEdgeCreate {
			panic("renderer bug")
		}
		return nil
	}))

	a := g.InsertNode(map[string]any{"label": "A"})
	b := g.InsertNode(map[string]any{"label": "B"})
	_, err := g.InsertConnection(a, b, nil)
	require.NoError(t, err)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.Nodes))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.Connections))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.EventsTotal.WithLabelValues("vertex/create")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.SubscriberFailures.WithLabelValues("edge/create")))

	g.DeleteNode(a)
	assert.Equal(t, float64(1), testutil.ToFloat64(c.Nodes))
	assert.Equal(t, float64(0), testutil.ToFloat64(c.Connections))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.EventsTotal.WithLabelValues("vertex/disconnect")))
}

func TestCollector_SyncAndHandler(t *testing.T) {
	c := NewCollector("activegraph")
	c.Sync(5, 7)
	c.ObserveRequest(http.MethodGet, "/stats", http.StatusOK, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "activegraph_nodes 5")
	assert.Contains(t, body, "activegraph_connections 7")
	assert.Contains(t, body, `activegraph_http_requests_total{method="GET",route="/stats",status="200"} 1`)
	assert.True(t, strings.Contains(body, `activegraph_events_total{type="property/clear"} 0`))
}

func TestLogger_Levels(t *testing.T) {
	l, err := NewLogger(config.Logging{Level: "warn", Format: "json"})
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, l.Level())

	cfg := config.Default()
	cfg.Logging.Level = "debug"
	l.OnConfigChange(cfg)
	assert.Equal(t, zapcore.DebugLevel, l.Level())

	cfg.Logging.Level = "nonsense"
	l.OnConfigChange(cfg)
	assert.Equal(t, zapcore.DebugLevel, l.Level(), "invalid level is ignored")

	_, err = NewLogger(config.Logging{Level: "nonsense"})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestLogger_Console(t *testing.T) {
	l, err := NewLogger(config.Logging{Level: "info", Format: "console"})
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, l.Level())
}

func TestInitTracing_Disabled(t *testing.T) {
	tp, err := InitTracing(context.Background(), config.Tracing{ServiceName: "activegraph"}, config.Development)
	require.NoError(t, err)

	_, span := tp.Tracer().Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestGraphMutationSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := NewTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)), "activegraph-test")
	defer tp.Shutdown(context.Background())

	g := graph.New(graph.WithTracer(tp.Tracer()))
	a := g.InsertNode(nil)
	_, err := g.InsertConnection(a, shared.NewID(shared.KindNode), nil)
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "graph.InsertNode", spans[0].Name())
	assert.Equal(t, "graph.InsertConnection", spans[1].Name())
	assert.Equal(t, "Error", spans[1].Status().Code.String())
	require.NotEmpty(t, spans[1].Events(), "error is recorded on the span")
}

func TestSampler(t *testing.T) {
	cfg := config.Tracing{SampleRate: 0.25}
	assert.Equal(t, "AlwaysOnSampler", newSampler(cfg, config.Development).Description())
	assert.Contains(t, newSampler(cfg, config.Production).Description(), "TraceIDRatioBased{0.25}")
}
