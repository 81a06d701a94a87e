package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mapcore/application/ports"
	"mapcore/application/session"
	"mapcore/domain/graph"
	"mapcore/pkg/common"
	apperrors "mapcore/pkg/errors"
)

// SessionHandler exposes the map session over HTTP
type SessionHandler struct {
	session *session.Session
	logger  *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(s *session.Session, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{session: s, logger: logger}
}

// LoadGraph handles POST /graph/load
func (h *SessionHandler) LoadGraph(w http.ResponseWriter, r *http.Request) {
	var query ports.LoadQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_BODY", "Request body is not a valid load query")
		return
	}

	if err := h.session.Load(r.Context(), query); err != nil {
		h.respondAppError(w, err)
		return
	}

	s := h.session.Controller.Snapshot()
	common.RespondJSON(w, http.StatusOK, snapshotResponse(s))
}

// GetGraph handles GET /graph
func (h *SessionHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	s := h.session.Controller.Snapshot()
	common.RespondJSON(w, http.StatusOK, snapshotResponse(s))
}

// GetAnalytics handles GET /graph/analytics
func (h *SessionHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	s := h.session.Controller.Snapshot()
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"centrality": s.DegreeCentrality(),
		"clusters":   s.Clusters(),
	})
}

// Search handles GET /search
func (h *SessionHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	var types []graph.NodeType
	if raw := r.URL.Query().Get("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			types = append(types, graph.ParseNodeType(strings.ToUpper(strings.TrimSpace(t))))
		}
	}

	results := h.session.Search(q, types)
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"query":   q,
		"results": results,
		"count":   len(results),
	})
}

// selectRequest is the body of a node selection
type selectRequest struct {
	EntityType string `json:"entity_type,omitempty"`
}

// SelectNode handles POST /nodes/{nodeID}/select
func (h *SessionHandler) SelectNode(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")
	if nodeID == "" {
		common.RespondError(w, http.StatusBadRequest, "MISSING_NODE_ID", "Node ID is required")
		return
	}

	var req selectRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	detail, err := h.session.SelectNode(r.Context(), nodeID, graph.NodeType(req.EntityType))
	if err != nil {
		h.respondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"node_id": nodeID,
		"detail":  detail,
	})
}

// Deselect handles POST /stage/click, the background-click gesture
func (h *SessionHandler) Deselect(w http.ResponseWriter, r *http.Request) {
	h.session.Interaction.ClickBackground()
	common.RespondJSON(w, http.StatusOK, h.session.Interaction.Selection())
}

// hoverRequest is the body of a hover update; a null node clears
type hoverRequest struct {
	NodeID string          `json:"node_id,omitempty"`
	Screen *graph.Position `json:"screen,omitempty"`
}

// Hover handles POST /hover
func (h *SessionHandler) Hover(w http.ResponseWriter, r *http.Request) {
	var req hoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_BODY", "Request body is not a valid hover update")
		return
	}

	if req.NodeID == "" {
		h.session.Interaction.HoverNode(nil, nil)
	} else {
		node, ok := h.session.Controller.Snapshot().Node(req.NodeID)
		if !ok {
			common.RespondError(w, http.StatusNotFound, "NODE_NOT_FOUND", "Hovered node is not in the current graph")
			return
		}
		h.session.Interaction.HoverNode(node, req.Screen)
	}

	common.RespondJSON(w, http.StatusOK, h.session.Interaction.Selection())
}

// UpdateViewport handles POST /viewport
func (h *SessionHandler) UpdateViewport(w http.ResponseWriter, r *http.Request) {
	var state graph.Viewport
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_BODY", "Request body is not a valid viewport state")
		return
	}

	h.session.Viewport.OnViewportChange(state)
	common.RespondJSON(w, http.StatusOK, h.session.Viewport.State())
}

// ResetViewport handles POST /viewport/reset
func (h *SessionHandler) ResetViewport(w http.ResponseWriter, r *http.Request) {
	h.session.Viewport.Reset()
	common.RespondJSON(w, http.StatusOK, h.session.Viewport.State())
}

// CenterViewport handles POST /viewport/center/{nodeID}
func (h *SessionHandler) CenterViewport(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")
	if err := h.session.Viewport.CenterOn(nodeID); err != nil {
		h.respondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, h.session.Viewport.State())
}

// linkModeRequest toggles link mode
type linkModeRequest struct {
	Active bool `json:"active"`
}

// SetLinkMode handles POST /link-mode
func (h *SessionHandler) SetLinkMode(w http.ResponseWriter, r *http.Request) {
	var req linkModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_BODY", "Request body is not a valid link-mode toggle")
		return
	}

	if req.Active {
		h.session.Interaction.EnterLinkMode()
	} else {
		h.session.Interaction.CancelLinkMode()
	}
	common.RespondJSON(w, http.StatusOK, h.session.Interaction.LinkMode())
}

// ClickNode handles POST /nodes/{nodeID}/click, the raw click gesture
// that feeds both selection and link mode
func (h *SessionHandler) ClickNode(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")
	node, ok := h.session.Controller.Snapshot().Node(nodeID)
	if !ok {
		common.RespondError(w, http.StatusNotFound, "NODE_NOT_FOUND", "Clicked node is not in the current graph")
		return
	}

	h.session.Interaction.ClickNode(*node)
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"selection": h.session.Interaction.Selection(),
		"link_mode": h.session.Interaction.LinkMode(),
	})
}

// linkRequest names both endpoints of a new relationship
type linkRequest struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
}

// CreateLink handles POST /links
func (h *SessionHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_BODY", "Request body is not a valid link request")
		return
	}

	snapshot := h.session.Controller.Snapshot()
	source, ok := snapshot.Node(req.SourceID)
	if !ok {
		common.RespondError(w, http.StatusNotFound, "NODE_NOT_FOUND", "Link source is not in the current graph")
		return
	}
	target, ok := snapshot.Node(req.TargetID)
	if !ok {
		common.RespondError(w, http.StatusNotFound, "NODE_NOT_FOUND", "Link target is not in the current graph")
		return
	}

	if err := h.session.LinkNodes(r.Context(), *source, *target); err != nil {
		h.respondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"source_id": req.SourceID,
		"target_id": req.TargetID,
	})
}

// snapshotResponse shapes a snapshot for the wire
func snapshotResponse(s *graph.Snapshot) map[string]interface{} {
	return map[string]interface{}{
		"nodes":      s.Nodes,
		"edges":      s.Edges,
		"node_count": len(s.Nodes),
		"edge_count": len(s.Edges),
	}
}

// respondAppError maps application errors onto HTTP responses
func (h *SessionHandler) respondAppError(w http.ResponseWriter, err error) {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		common.RespondError(w, appErr.HTTPStatus, string(appErr.Type), appErr.Message)
		return
	}
	h.logger.Error("Unclassified handler error", zap.Error(err))
	common.RespondError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
}
