package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hhoang/fastai-rewrite/internal/domain"
	"github.com/hhoang/fastai-rewrite/internal/identity"
)

// RegisterAgentRoutes registers the agent CRUD endpoints.
func (h *Handler) RegisterAgentRoutes(r chi.Router) {
	r.Get("/api/agents", h.GetAgents)
	r.Post("/api/agents", h.CreateAgent)
	r.Put("/api/agents", h.UpdateAgent)
	r.Delete("/api/agents", h.DeleteAgent)
}

// ownedAgent loads an agent and verifies the caller owns it. Missing and
// foreign agents are indistinguishable to the caller.
func (h *Handler) ownedAgent(w http.ResponseWriter, r *http.Request, id string) *domain.Agent {
	user := identity.UserFromContext(r.Context())
	agent, err := h.repo.GetAgent(r.Context(), id)
	if err != nil {
		slog.Error("failed to load agent", "agent_id", id, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load agent")
		return nil
	}
	if agent == nil || !agent.OwnedBy(user.ID) {
		Error(w, http.StatusNotFound, "agent not found")
		return nil
	}
	return agent
}

// GetAgents handles GET /api/agents. With ?id= it returns a single owned
// agent, otherwise all of the caller's agents newest first.
func (h *Handler) GetAgents(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())

	if id := r.URL.Query().Get("id"); id != "" {
		agent := h.ownedAgent(w, r, id)
		if agent == nil {
			return
		}
		JSON(w, http.StatusOK, agent)
		return
	}

	agents, err := h.repo.ListAgents(r.Context(), user.ID)
	if err != nil {
		slog.Error("failed to list agents", "user_id", user.ID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to list agents")
		return
	}
	JSON(w, http.StatusOK, agents)
}

type agentRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Tone        string `json:"tone"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

func (req *agentRequest) validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return domain.NewValidationError("name", "is required")
	}
	if strings.TrimSpace(req.Role) == "" {
		return domain.NewValidationError("role", "is required")
	}
	if req.Status != "" && req.Status != domain.AgentStatusActive && req.Status != domain.AgentStatusInactive {
		return domain.NewValidationError("status", "must be active or inactive")
	}
	return nil
}

// CreateAgent handles POST /api/agents.
func (h *Handler) CreateAgent(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())

	var req agentRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		DomainError(w, err)
		return
	}

	status := req.Status
	if status == "" {
		status = domain.AgentStatusActive
	}
	now := time.Now()
	agent := &domain.Agent{
		ID:          uuid.New().String(),
		UserID:      user.ID,
		Name:        req.Name,
		Role:        req.Role,
		Tone:        req.Tone,
		Description: req.Description,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.repo.CreateAgent(r.Context(), agent); err != nil {
		slog.Error("failed to create agent", "user_id", user.ID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to create agent")
		return
	}
	JSON(w, http.StatusCreated, agent)
}

// UpdateAgent handles PUT /api/agents.
func (h *Handler) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" {
		DomainError(w, domain.NewValidationError("id", "is required"))
		return
	}
	if err := req.validate(); err != nil {
		DomainError(w, err)
		return
	}

	agent := h.ownedAgent(w, r, req.ID)
	if agent == nil {
		return
	}

	agent.Name = req.Name
	agent.Role = req.Role
	agent.Tone = req.Tone
	agent.Description = req.Description
	if req.Status != "" {
		agent.Status = req.Status
	}
	agent.UpdatedAt = time.Now()

	if err := h.repo.UpdateAgent(r.Context(), agent); err != nil {
		slog.Error("failed to update agent", "agent_id", agent.ID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to update agent")
		return
	}
	JSON(w, http.StatusOK, agent)
}

// DeleteAgent handles DELETE /api/agents?id=. Deleting an agent cascades to
// its interaction records.
func (h *Handler) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		DomainError(w, domain.NewValidationError("id", "is required"))
		return
	}

	agent := h.ownedAgent(w, r, id)
	if agent == nil {
		return
	}

	if err := h.repo.DeleteAgent(r.Context(), agent.ID); err != nil {
		slog.Error("failed to delete agent", "agent_id", agent.ID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to delete agent")
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"success": true})
}
