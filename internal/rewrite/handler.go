package rewrite

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hhoang/fastai-rewrite/internal/api"
	"github.com/hhoang/fastai-rewrite/internal/domain"
	"github.com/hhoang/fastai-rewrite/internal/identity"
)

// Handler exposes the rewrite endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a rewrite handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the rewrite endpoints on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/rewrite/generate", h.Generate)
	r.Post("/api/rewrite/mark-as-approved", h.MarkAsApproved)
	r.Post("/api/rewrite/mark-chat", h.MarkChat)
}

type generateRequest struct {
	AgentID  string `json:"agentId"`
	Original string `json:"original"`
	Prompt   string `json:"prompt"`
	IsChat   bool   `json:"isChat"`
}

type generateResponse struct {
	ActivityID string `json:"activityId"`
	AgentID    string `json:"agentId"`
	Original   string `json:"original"`
	Prompt     string `json:"prompt,omitempty"`
	Suggestion string `json:"suggestion"`
}

// Generate handles POST /api/rewrite/generate.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())
	if user == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req generateRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.svc.Rewrite(r.Context(), user, Request{
		AgentID:  req.AgentID,
		Original: req.Original,
		Prompt:   req.Prompt,
		IsChat:   req.IsChat,
	})
	if err != nil {
		slog.Warn("rewrite request failed", "agent_id", req.AgentID, "error", err)
		api.DomainError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, generateResponse{
		ActivityID: resp.ActivityID,
		AgentID:    resp.AgentID,
		Original:   resp.Original,
		Prompt:     resp.Prompt,
		Suggestion: resp.Suggestion,
	})
}

type markApprovedRequest struct {
	ActivityID string `json:"activityId"`
}

// MarkAsApproved handles POST /api/rewrite/mark-as-approved.
func (h *Handler) MarkAsApproved(w http.ResponseWriter, r *http.Request) {
	var req markApprovedRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.MarkRewriteApproved(r.Context(), req.ActivityID); err != nil {
		slog.Warn("mark-as-approved failed", "activity_id", req.ActivityID, "error", err)
		api.DomainError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

type markChatRequest struct {
	ChatActivityID string `json:"chatActivityId"`
	Action         string `json:"action"`
}

// MarkChat handles POST /api/rewrite/mark-chat.
func (h *Handler) MarkChat(w http.ResponseWriter, r *http.Request) {
	var req markChatRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.MarkChatInteraction(r.Context(), req.ChatActivityID, domain.VerdictAction(req.Action)); err != nil {
		slog.Warn("mark-chat failed", "chat_activity_id", req.ChatActivityID, "action", req.Action, "error", err)
		api.DomainError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
