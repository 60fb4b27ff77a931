package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activegraph/internal/config"
	"activegraph/internal/domain/events"
	"activegraph/internal/domain/graph"
	"activegraph/internal/domain/shared"
)

type observedRequest struct {
	method string
	route  string
	status int
}

type recordingObserver struct {
	mu       sync.Mutex
	requests []observedRequest
}

func (o *recordingObserver) ObserveRequest(method, route string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests = append(o.requests, observedRequest{method, route, status})
}

func newTestServer(t *testing.T) (*graph.Graph, http.Handler, *recordingObserver) {
	t.Helper()
	g := graph.New()
	observer := &recordingObserver{}
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("# metrics"))
	})
	router := NewRouter(NewHandler(NewSession(g), nil), observer, metrics, config.Default().Server, nil)
	return g, router.Setup(), observer
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func nodePath(id string) string       { return "/nodes/" + url.PathEscape(id) }
func connectionPath(id string) string { return "/connections/" + url.PathEscape(id) }

func createNode(t *testing.T, h http.Handler, props map[string]any) NodeResponse {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/nodes", NodeRequest{Properties: props})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[NodeResponse](t, rec)
}

func createConnection(t *testing.T, h http.Handler, source, target string) ConnectionResponse {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/connections", ConnectionRequest{Source: source, Target: target})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[ConnectionResponse](t, rec)
}

func TestNodeLifecycle(t *testing.T) {
	_, h, _ := newTestServer(t)

	created := createNode(t, h, map[string]any{"name": "a", "weight": 2})
	assert.Equal(t, created.ID, created.Properties["id"])
	assert.Equal(t, "a", created.Properties["name"])

	rec := do(t, h, http.MethodGet, nodePath(created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created, decode[NodeResponse](t, rec))

	rec = do(t, h, http.MethodPatch, nodePath(created.ID), NodeRequest{Properties: map[string]any{"colour": "red"}})
	require.Equal(t, http.StatusOK, rec.Code)
	merged := decode[NodeResponse](t, rec)
	assert.Equal(t, "a", merged.Properties["name"])
	assert.Equal(t, "red", merged.Properties["colour"])

	rec = do(t, h, http.MethodPut, nodePath(created.ID), NodeRequest{Properties: map[string]any{"name": "b"}})
	require.Equal(t, http.StatusOK, rec.Code)
	replaced := decode[NodeResponse](t, rec)
	assert.Equal(t, map[string]any{"id": created.ID, "name": "b"}, replaced.Properties)

	rec = do(t, h, http.MethodDelete, nodePath(created.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, nodePath(created.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	problem := decode[Problem](t, rec)
	assert.Equal(t, "NODE_NOT_FOUND", problem.Code)
	assert.Equal(t, created.ID, problem.Entity)
}

func TestCreateNodeEmptyBody(t *testing.T) {
	_, h, _ := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/nodes", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	node := decode[NodeResponse](t, rec)
	assert.Equal(t, map[string]any{"id": node.ID}, node.Properties)
	assert.Equal(t, nodePath(node.ID), rec.Header().Get("Location"))
}

func TestErrorMapping(t *testing.T) {
	g, h, _ := newTestServer(t)
	a := createNode(t, h, nil)
	ghost := shared.NewID(shared.KindNode).String()
	missingConnection := shared.NewID(shared.KindConnection).String()

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"malformed JSON", http.MethodPost, "/nodes", "{", http.StatusBadRequest},
		{"malformed identifier", http.MethodGet, "/nodes/garbage", nil, http.StatusBadRequest},
		{"unknown node", http.MethodGet, nodePath(ghost), nil, http.StatusNotFound},
		{"replace unknown node", http.MethodPut, nodePath(ghost), NodeRequest{}, http.StatusNotFound},
		{"merge unknown node", http.MethodPatch, nodePath(ghost), NodeRequest{}, http.StatusNotFound},
		{"delete unknown node", http.MethodDelete, nodePath(ghost), nil, http.StatusNotFound},
		{"disconnect unknown node", http.MethodPost, nodePath(ghost) + "/disconnect", nil, http.StatusNotFound},
		{"bad direction", http.MethodPost, nodePath(a.ID) + "/disconnect?direction=sideways", nil, http.StatusBadRequest},
		{"connection missing source", http.MethodPost, "/connections", ConnectionRequest{Target: a.ID}, http.StatusBadRequest},
		{"connection to unknown node", http.MethodPost, "/connections", ConnectionRequest{Source: a.ID, Target: ghost}, http.StatusUnprocessableEntity},
		{"connection with bad identifier", http.MethodPost, "/connections", ConnectionRequest{Source: a.ID, Target: "nope"}, http.StatusBadRequest},
		{"unknown connection", http.MethodGet, connectionPath(missingConnection), nil, http.StatusNotFound},
		{"update connection without properties", http.MethodPatch, connectionPath(missingConnection), map[string]any{}, http.StatusBadRequest},
		{"update unknown connection", http.MethodPatch, connectionPath(missingConnection), ConnectionUpdateRequest{Properties: map[string]any{"w": 1}}, http.StatusNotFound},
		{"delete unknown connection", http.MethodDelete, connectionPath(missingConnection), nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}

	assert.Equal(t, 1, g.NodeCount())
	assert.Equal(t, 0, g.ConnectionCount())
}

func TestValidationProblemListsFields(t *testing.T) {
	_, h, _ := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/connections", ConnectionRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decode[Problem](t, rec)
	assert.Equal(t, map[string]string{"Source": "required", "Target": "required"}, problem.Fields)
}

func TestConnectionLifecycle(t *testing.T) {
	_, h, _ := newTestServer(t)
	a := createNode(t, h, nil)
	b := createNode(t, h, nil)

	c := createConnection(t, h, a.ID, b.ID)
	assert.Equal(t, a.ID, c.Source)
	assert.Equal(t, b.ID, c.Target)
	assert.Equal(t, c.ID, c.Properties["id"])

	rec := do(t, h, http.MethodPatch, connectionPath(c.ID), ConnectionUpdateRequest{Properties: map[string]any{"label": "knows"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "knows", decode[ConnectionResponse](t, rec).Properties["label"])

	rec = do(t, h, http.MethodGet, nodePath(a.ID), nil)
	node := decode[NodeResponse](t, rec)
	assert.Equal(t, 0, node.InDegree)
	assert.Equal(t, 1, node.OutDegree)

	rec = do(t, h, http.MethodGet, "/connections", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]ConnectionResponse](t, rec), 1)

	rec = do(t, h, http.MethodDelete, connectionPath(c.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodGet, connectionPath(c.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDisconnectNode(t *testing.T) {
	tests := []struct {
		direction string
		want      string
		removed   int
	}{
		{"", "both", 2},
		{"in", "incoming", 1},
		{"out", "outgoing", 1},
		{"both", "both", 2},
	}

	for _, tt := range tests {
		t.Run("direction="+tt.direction, func(t *testing.T) {
			g, h, _ := newTestServer(t)
			a := createNode(t, h, nil)
			b := createNode(t, h, nil)
			c := createNode(t, h, nil)
			createConnection(t, h, a.ID, b.ID)
			createConnection(t, h, b.ID, c.ID)

			path := nodePath(b.ID) + "/disconnect"
			if tt.direction != "" {
				path += "?direction=" + tt.direction
			}
			rec := do(t, h, http.MethodPost, path, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			resp := decode[DisconnectResponse](t, rec)
			assert.Equal(t, tt.want, resp.Direction)
			assert.Equal(t, tt.removed, resp.Removed)
			assert.Equal(t, 2-tt.removed, g.ConnectionCount())
			assert.Equal(t, 3, g.NodeCount())
		})
	}
}

func TestDeleteNodeCascades(t *testing.T) {
	g, h, _ := newTestServer(t)
	a := createNode(t, h, nil)
	b := createNode(t, h, nil)
	createConnection(t, h, a.ID, b.ID)
	createConnection(t, h, b.ID, a.ID)

	var seen []shared.EventType
	g.Subscribe(events.SubscriberFunc(func(e shared.Event) error {
		seen = append(seen, e.Type)
		return nil
	}))

	rec := do(t, h, http.MethodDelete, nodePath(a.ID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []shared.EventType{
		shared.EventEdgeDelete,
		shared.EventEdgeDelete,
		shared.EventVertexDisconnect,
		shared.EventVertexDelete,
	}, seen)

	rec = do(t, h, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[StatsResponse](t, rec)
	assert.Equal(t, 1, stats.Nodes)
	assert.Equal(t, 0, stats.Connections)
	assert.Equal(t, 1, stats.Subscribers)
	assert.Equal(t, g.Revision(), stats.Revision)
}

func TestGraphProperties(t *testing.T) {
	g, h, _ := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/graph", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[GraphResponse](t, rec)
	assert.Equal(t, g.ID().String(), resp.ID)
	assert.Empty(t, resp.Properties)

	rec = do(t, h, http.MethodPatch, "/graph", GraphRequest{Properties: map[string]any{"title": "org chart"}})
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[GraphResponse](t, rec)
	assert.Equal(t, map[string]any{"title": "org chart"}, resp.Properties)
	assert.Equal(t, uint64(1), resp.Revision)

	rec = do(t, h, http.MethodPatch, "/graph", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubscriberRemovesEntityMidRequest(t *testing.T) {
	tests := []struct {
		name    string
		trigger shared.EventType
		request func(t *testing.T, h http.Handler, node string) *httptest.ResponseRecorder
	}{
		{"create", shared.EventVertexCreate, func(t *testing.T, h http.Handler, _ string) *httptest.ResponseRecorder {
			return do(t, h, http.MethodPost, "/nodes", nil)
		}},
		{"merge", shared.EventVertexUpdate, func(t *testing.T, h http.Handler, node string) *httptest.ResponseRecorder {
			return do(t, h, http.MethodPatch, nodePath(node), NodeRequest{Properties: map[string]any{"k": 1}})
		}},
		{"replace", shared.EventVertexUpdate, func(t *testing.T, h http.Handler, node string) *httptest.ResponseRecorder {
			return do(t, h, http.MethodPut, nodePath(node), NodeRequest{})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, h, _ := newTestServer(t)
			existing := createNode(t, h, nil)

			g.Subscribe(events.SubscriberFunc(func(e shared.Event) error {
				if e.Type == tt.trigger {
					g.DeleteNode(e.Payload.(*graph.Node).ID())
				}
				return nil
			}))

			rec := tt.request(t, h, existing.ID)
			assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestSubscriberRemovesConnectionMidRequest(t *testing.T) {
	g, h, _ := newTestServer(t)
	a := createNode(t, h, nil)
	b := createNode(t, h, nil)

	g.Subscribe(events.SubscriberFunc(func(e shared.Event) error {
		if e.Type == shared.EventEdgeCreate || e.Type == shared.EventEdgeUpdate {
			g.DeleteConnection(e.Payload.(*graph.Connection).ID())
		}
		return nil
	}))

	rec := do(t, h, http.MethodPost, "/connections", ConnectionRequest{Source: a.ID, Target: b.ID})
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	assert.Equal(t, 0, g.ConnectionCount())
}

func TestNeighbours(t *testing.T) {
	_, h, _ := newTestServer(t)
	a := createNode(t, h, map[string]any{"name": "a"})
	b := createNode(t, h, map[string]any{"name": "b"})
	c := createNode(t, h, map[string]any{"name": "c"})
	createConnection(t, h, a.ID, b.ID)
	createConnection(t, h, c.ID, a.ID)

	rec := do(t, h, http.MethodGet, nodePath(a.ID)+"/neighbours", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var names []any
	for _, n := range decode[[]NodeResponse](t, rec) {
		names = append(names, n.Properties["name"])
	}
	assert.Equal(t, []any{"b", "c"}, names)

	rec = do(t, h, http.MethodGet, "/nodes", nil)
	assert.Len(t, decode[[]NodeResponse](t, rec), 3)
}

func TestObserverUsesRoutePattern(t *testing.T) {
	_, h, observer := newTestServer(t)
	a := createNode(t, h, nil)
	do(t, h, http.MethodGet, nodePath(a.ID), nil)

	observer.mu.Lock()
	defer observer.mu.Unlock()
	require.Len(t, observer.requests, 2)
	assert.Equal(t, observedRequest{http.MethodGet, "/nodes/{id}", http.StatusOK}, observer.requests[1])
}

func TestHealthAndMetrics(t *testing.T) {
	_, h, _ := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# metrics", rec.Body.String())
}

func TestConcurrentRequests(t *testing.T) {
	g, h, _ := newTestServer(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/nodes", nil)
			h.ServeHTTP(httptest.NewRecorder(), req)
		}()
	}
	wg.Wait()

	assert.Equal(t, 16, g.NodeCount())
}
