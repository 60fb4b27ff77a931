// Package rest exposes a single graph over HTTP. Every request runs against
// the graph under the Session lock, so subscribers observe the same ordering
// they would in-process.
package rest

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"activegraph/internal/domain/graph"
	"activegraph/internal/domain/shared"
	"activegraph/internal/errors"
)

// Handler implements the graph endpoints.
type Handler struct {
	session  *Session
	validate *validator.Validate
	logger   *zap.Logger
}

// NewHandler creates a handler backed by session.
func NewHandler(session *Session, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		session:  session,
		validate: validator.New(),
		logger:   logger.Named("GraphHandler"),
	}
}

// CreateNode handles POST /nodes.
func (h *Handler) CreateNode() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req NodeRequest
		if !h.decode(w, r, &req) {
			return
		}

		var (
			resp NodeResponse
			err  error
		)
		h.session.Do(func(g *graph.Graph) {
			id := g.InsertNode(req.Properties)
			n, ok := g.Node(id)
			if !ok {
				// A subscriber removed it while handling vertex/create.
				err = nodeNotFound("CreateNode", id)
				return
			}
			resp = nodeResponse(n)
		})
		if err != nil {
			h.fail(w, err)
			return
		}

		h.logger.Debug("Node created", zap.String("node_id", resp.ID))
		w.Header().Set("Location", "/nodes/"+url.PathEscape(resp.ID))
		writeJSON(w, http.StatusCreated, resp)
	}
}

// ListNodes handles GET /nodes.
func (h *Handler) ListNodes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := []NodeResponse{}
		h.session.Do(func(g *graph.Graph) {
			g.RangeNodes(func(n *graph.Node) bool {
				resp = append(resp, nodeResponse(n))
				return true
			})
		})
		writeJSON(w, http.StatusOK, resp)
	}
}

// GetNode handles GET /nodes/{id}.
func (h *Handler) GetNode() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.pathID(w, r)
		if !ok {
			return
		}

		var (
			resp  NodeResponse
			found bool
		)
		h.session.Do(func(g *graph.Graph) {
			var n *graph.Node
			if n, found = g.Node(id); found {
				resp = nodeResponse(n)
			}
		})
		if !found {
			h.fail(w, nodeNotFound("GetNode", id))
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ReplaceNode handles PUT /nodes/{id}.
func (h *Handler) ReplaceNode() http.HandlerFunc {
	return h.updateNode(func(g *graph.Graph, id shared.ID, props map[string]any) error {
		return g.UpdateNode(id, props)
	})
}

// MergeNode handles PATCH /nodes/{id}.
func (h *Handler) MergeNode() http.HandlerFunc {
	return h.updateNode(func(g *graph.Graph, id shared.ID, props map[string]any) error {
		return g.MergeNode(id, props)
	})
}

func (h *Handler) updateNode(apply func(*graph.Graph, shared.ID, map[string]any) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.pathID(w, r)
		if !ok {
			return
		}
		var req NodeRequest
		if !h.decode(w, r, &req) {
			return
		}

		var (
			resp NodeResponse
			err  error
		)
		h.session.Do(func(g *graph.Graph) {
			if err = apply(g, id, req.Properties); err != nil {
				return
			}
			n, ok := g.Node(id)
			if !ok {
				err = nodeNotFound("UpdateNode", id)
				return
			}
			resp = nodeResponse(n)
		})
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// DeleteNode handles DELETE /nodes/{id}.
func (h *Handler) DeleteNode() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.pathID(w, r)
		if !ok {
			return
		}

		var deleted bool
		h.session.Do(func(g *graph.Graph) {
			deleted = g.DeleteNode(id)
		})
		if !deleted {
			h.fail(w, nodeNotFound("DeleteNode", id))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DisconnectNode handles POST /nodes/{id}/disconnect?direction=in|out|both.
func (h *Handler) DisconnectNode() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.pathID(w, r)
		if !ok {
			return
		}
		direction, err := graph.ParseDirection(r.URL.Query().Get("direction"))
		if err != nil {
			h.fail(w, err)
			return
		}

		var (
			removed int
			found   bool
		)
		h.session.Do(func(g *graph.Graph) {
			if _, found = g.Node(id); found {
				removed = g.DisconnectNode(id, direction)
			}
		})
		if !found {
			h.fail(w, nodeNotFound("DisconnectNode", id))
			return
		}
		writeJSON(w, http.StatusOK, DisconnectResponse{
			ID:        id.String(),
			Direction: direction.String(),
			Removed:   removed,
		})
	}
}

// Neighbours handles GET /nodes/{id}/neighbours.
func (h *Handler) Neighbours() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.pathID(w, r)
		if !ok {
			return
		}

		resp := []NodeResponse{}
		var found bool
		h.session.Do(func(g *graph.Graph) {
			n, ok := g.Node(id)
			if found = ok; !found {
				return
			}
			for _, other := range n.Neighbours() {
				resp = append(resp, nodeResponse(other))
			}
		})
		if !found {
			h.fail(w, nodeNotFound("Neighbours", id))
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// CreateConnection handles POST /connections.
func (h *Handler) CreateConnection() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ConnectionRequest
		if !h.decode(w, r, &req) {
			return
		}
		source, err := shared.ParseID(req.Source)
		if err != nil {
			h.fail(w, err)
			return
		}
		target, err := shared.ParseID(req.Target)
		if err != nil {
			h.fail(w, err)
			return
		}

		var resp ConnectionResponse
		h.session.Do(func(g *graph.Graph) {
			var id shared.ID
			if id, err = g.InsertConnection(source, target, req.Properties); err != nil {
				return
			}
			c, ok := g.Connection(id)
			if !ok {
				err = connectionNotFound("CreateConnection", id)
				return
			}
			resp = connectionResponse(c)
		})
		if err != nil {
			h.fail(w, err)
			return
		}

		h.logger.Debug("Connection created",
			zap.String("connection_id", resp.ID),
			zap.String("source", resp.Source),
			zap.String("target", resp.Target))
		w.Header().Set("Location", "/connections/"+url.PathEscape(resp.ID))
		writeJSON(w, http.StatusCreated, resp)
	}
}

// ListConnections handles GET /connections.
func (h *Handler) ListConnections() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := []ConnectionResponse{}
		h.session.Do(func(g *graph.Graph) {
			g.RangeConnections(func(c *graph.Connection) bool {
				resp = append(resp, connectionResponse(c))
				return true
			})
		})
		writeJSON(w, http.StatusOK, resp)
	}
}

// GetConnection handles GET /connections/{id}.
func (h *Handler) GetConnection() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.pathID(w, r)
		if !ok {
			return
		}

		var (
			resp  ConnectionResponse
			found bool
		)
		h.session.Do(func(g *graph.Graph) {
			var c *graph.Connection
			if c, found = g.Connection(id); found {
				resp = connectionResponse(c)
			}
		})
		if !found {
			h.fail(w, connectionNotFound("GetConnection", id))
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// UpdateConnection handles PATCH /connections/{id}.
func (h *Handler) UpdateConnection() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.pathID(w, r)
		if !ok {
			return
		}
		var req ConnectionUpdateRequest
		if !h.decode(w, r, &req) {
			return
		}

		var (
			resp ConnectionResponse
			err  error
		)
		h.session.Do(func(g *graph.Graph) {
			if err = g.UpdateConnection(id, req.Properties); err != nil {
				return
			}
			c, ok := g.Connection(id)
			if !ok {
				err = connectionNotFound("UpdateConnection", id)
				return
			}
			resp = connectionResponse(c)
		})
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// DeleteConnection handles DELETE /connections/{id}.
func (h *Handler) DeleteConnection() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.pathID(w, r)
		if !ok {
			return
		}

		var deleted bool
		h.session.Do(func(g *graph.Graph) {
			deleted = g.DeleteConnection(id)
		})
		if !deleted {
			h.fail(w, connectionNotFound("DeleteConnection", id))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GetGraph handles GET /graph.
func (h *Handler) GetGraph() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var resp GraphResponse
		h.session.Do(func(g *graph.Graph) {
			resp = graphResponse(g)
		})
		writeJSON(w, http.StatusOK, resp)
	}
}

// MergeGraph handles PATCH /graph.
func (h *Handler) MergeGraph() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GraphRequest
		if !h.decode(w, r, &req) {
			return
		}

		var resp GraphResponse
		h.session.Do(func(g *graph.Graph) {
			g.MergeProps(req.Properties)
			resp = graphResponse(g)
		})
		writeJSON(w, http.StatusOK, resp)
	}
}

// Stats handles GET /stats.
func (h *Handler) Stats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var resp StatsResponse
		h.session.Do(func(g *graph.Graph) {
			resp = StatsResponse{
				Nodes:       g.NodeCount(),
				Connections: g.ConnectionCount(),
				Revision:    g.Revision(),
				Subscribers: g.Bus().Len(),
			}
		})
		writeJSON(w, http.StatusOK, resp)
	}
}

// pathID reads the {id} URL parameter. Identifiers contain slashes, so
// clients send them percent-encoded.
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (shared.ID, bool) {
	raw, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		badRequest("malformed identifier").Write(w)
		return shared.ID{}, false
	}
	id, err := shared.ParseID(raw)
	if err != nil {
		h.fail(w, err)
		return shared.ID{}, false
	}
	return id, true
}

// decode reads a JSON body into dst and validates it. An empty body leaves
// dst at its zero value.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !stderrors.Is(err, io.EOF) {
		h.logger.Debug("Rejected request body", zap.Error(err))
		badRequest("request body is not valid JSON").Write(w)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		validationProblem(err).Write(w)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	p := problemFrom(err)
	if p.Status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.Error(err))
	}
	p.Write(w)
}

func nodeNotFound(op string, id shared.ID) error {
	return errors.From(shared.ErrNodeNotFound).
		WithOperation(op).
		WithEntity(id.String()).
		Build()
}

func connectionNotFound(op string, id shared.ID) error {
	return errors.From(shared.ErrConnectionNotFound).
		WithOperation(op).
		WithEntity(id.String()).
		Build()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
