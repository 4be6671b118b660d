package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hhoang/fastai-rewrite/internal/domain"
	"github.com/hhoang/fastai-rewrite/internal/identity"
)

// AdminChecker reports whether an email belongs to an operator.
type AdminChecker interface {
	IsAdmin(email string) bool
}

// AdminHandler exposes the operator-only endpoints.
type AdminHandler struct {
	*Handler
	admins AdminChecker
}

// NewAdminHandler creates an admin handler gated by the given checker.
func NewAdminHandler(base *Handler, admins AdminChecker) *AdminHandler {
	return &AdminHandler{Handler: base, admins: admins}
}

// RegisterRoutes registers the admin endpoints.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/admin/users", h.requireAdmin(h.GetUsers))
	r.Get("/api/admin/rewrite-history", h.requireAdmin(h.GetRewriteHistory))
}

func (h *AdminHandler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.UserFromContext(r.Context())
		if user == nil || !h.admins.IsAdmin(user.Email) {
			Error(w, http.StatusForbidden, "forbidden")
			return
		}
		next(w, r)
	}
}

type usersResponse struct {
	Users      []*domain.User `json:"users"`
	Pagination Pagination     `json:"pagination"`
}

// GetUsers handles GET /api/admin/users, newest first.
func (h *AdminHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	page := PageFromRequest(r)
	users, total, err := h.repo.ListUsers(r.Context(), page)
	if err != nil {
		slog.Error("failed to list users", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if users == nil {
		users = []*domain.User{}
	}

	JSON(w, http.StatusOK, usersResponse{
		Users:      users,
		Pagination: NewPagination(page, total),
	})
}

type historyResponse struct {
	History    []*domain.HistoryEntry `json:"history"`
	Pagination Pagination             `json:"pagination"`
}

// GetRewriteHistory handles GET /api/admin/rewrite-history: every rewrite
// interaction across all users, joined with its agent and owner, newest
// first.
func (h *AdminHandler) GetRewriteHistory(w http.ResponseWriter, r *http.Request) {
	page := PageFromRequest(r)
	history, total, err := h.repo.ListRewriteHistory(r.Context(), page)
	if err != nil {
		slog.Error("failed to list rewrite history", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list rewrite history")
		return
	}
	if history == nil {
		history = []*domain.HistoryEntry{}
	}

	JSON(w, http.StatusOK, historyResponse{
		History:    history,
		Pagination: NewPagination(page, total),
	})
}
