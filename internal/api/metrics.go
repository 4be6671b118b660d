package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hhoang/fastai-rewrite/internal/identity"
)

// Metric is one dashboard figure with its value as of the start of the
// comparison window, so the client can render a delta.
type Metric struct {
	Current  int    `json:"current"`
	Previous int    `json:"previous"`
	Unit     string `json:"unit"`
}

type metricsResponse struct {
	ActiveAgents       Metric `json:"activeAgents"`
	SuccessfulRewrites Metric `json:"successfulRewrites"`
	TotalRequests      Metric `json:"totalRequests"`
}

// RegisterMetricsRoutes registers the dashboard metrics endpoint.
func (h *Handler) RegisterMetricsRoutes(r chi.Router) {
	r.Get("/api/metrics", h.GetMetrics)
}

// GetMetrics handles GET /api/metrics. Active agents compare against the
// start of the month, successful rewrites against a week ago, and total
// requests against a day ago.
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())
	ctx := r.Context()
	now := time.Now()

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	weekAgo := now.AddDate(0, 0, -7)
	dayAgo := now.AddDate(0, 0, -1)

	fail := func(err error) {
		slog.Error("failed to compute metrics", "user_id", user.ID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to compute metrics")
	}

	activeNow, err := h.repo.CountActiveAgents(ctx, user.ID, nil)
	if err != nil {
		fail(err)
		return
	}
	activeBefore, err := h.repo.CountActiveAgents(ctx, user.ID, &monthStart)
	if err != nil {
		fail(err)
		return
	}
	approvedNow, err := h.repo.CountActivities(ctx, user.ID, true, nil)
	if err != nil {
		fail(err)
		return
	}
	approvedBefore, err := h.repo.CountActivities(ctx, user.ID, true, &weekAgo)
	if err != nil {
		fail(err)
		return
	}
	totalNow, err := h.repo.CountActivities(ctx, user.ID, false, nil)
	if err != nil {
		fail(err)
		return
	}
	totalBefore, err := h.repo.CountActivities(ctx, user.ID, false, &dayAgo)
	if err != nil {
		fail(err)
		return
	}

	JSON(w, http.StatusOK, metricsResponse{
		ActiveAgents:       Metric{Current: activeNow, Previous: activeBefore, Unit: "month"},
		SuccessfulRewrites: Metric{Current: approvedNow, Previous: approvedBefore, Unit: "week"},
		TotalRequests:      Metric{Current: totalNow, Previous: totalBefore, Unit: "day"},
	})
}
