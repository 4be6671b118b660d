package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hhoang/fastai-rewrite/internal/domain"
)

// RegisterActivityRoutes registers the interaction listing endpoints.
func (h *Handler) RegisterActivityRoutes(r chi.Router) {
	r.Get("/api/agents/activities", h.GetActivities)
	r.Get("/api/agents/chat-activities", h.GetChatActivities)
}

type activitiesResponse struct {
	Activities []*domain.Activity `json:"activities"`
	Pagination Pagination         `json:"pagination"`
}

// GetActivities handles GET /api/agents/activities?agentId=&page=&limit=.
// Records come back newest first for the dashboard listing.
func (h *Handler) GetActivities(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agentId")
	if agentID == "" {
		DomainError(w, domain.NewValidationError("agentId", "is required"))
		return
	}

	agent := h.ownedAgent(w, r, agentID)
	if agent == nil {
		return
	}

	page := PageFromRequest(r)
	activities, total, err := h.repo.ListActivitiesPage(r.Context(), agent.ID, page)
	if err != nil {
		slog.Error("failed to list activities", "agent_id", agent.ID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to list activities")
		return
	}
	if activities == nil {
		activities = []*domain.Activity{}
	}

	JSON(w, http.StatusOK, activitiesResponse{
		Activities: activities,
		Pagination: NewPagination(page, total),
	})
}

// GetChatActivities handles GET /api/agents/chat-activities?agentId=. Chat
// turns come back in chronological order so the client can replay the
// conversation.
func (h *Handler) GetChatActivities(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agentId")
	if agentID == "" {
		DomainError(w, domain.NewValidationError("agentId", "is required"))
		return
	}

	agent := h.ownedAgent(w, r, agentID)
	if agent == nil {
		return
	}

	chats, err := h.repo.ListChatActivities(r.Context(), agent.ID)
	if err != nil {
		slog.Error("failed to list chat activities", "agent_id", agent.ID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to list chat activities")
		return
	}
	if chats == nil {
		chats = []*domain.ChatActivity{}
	}

	JSON(w, http.StatusOK, map[string]interface{}{"chatActivities": chats})
}
