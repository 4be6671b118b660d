// Package api provides HTTP handlers for the FastAI Rewrite API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/hhoang/fastai-rewrite/internal/domain"
	"github.com/hhoang/fastai-rewrite/internal/store"
)

// maxRequestBodySize is the maximum allowed request body size (1MB).
const maxRequestBodySize = 1 << 20

// Handler provides common handler utilities.
type Handler struct {
	repo store.Repository
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository) *Handler {
	return &Handler{repo: repo}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// DomainError maps domain errors to HTTP responses: validation failures to
// 400 with the offending field, missing entities to 404, everything else to
// a generic 500.
func DomainError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		Error(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, domain.ErrNotFound):
		Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrUnauthorized):
		Error(w, http.StatusUnauthorized, "unauthorized")
	default:
		Error(w, http.StatusInternalServerError, "internal server error")
	}
}

// DecodeJSON decodes a bounded JSON request body into v.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	return json.NewDecoder(r.Body).Decode(v)
}

// Pagination is the envelope returned alongside paginated listings.
type Pagination struct {
	CurrentPage     int  `json:"currentPage"`
	TotalPages      int  `json:"totalPages"`
	TotalCount      int  `json:"totalCount"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// NewPagination computes the envelope for a page request and total count.
func NewPagination(page store.Page, total int) Pagination {
	totalPages := (total + page.Limit - 1) / page.Limit
	return Pagination{
		CurrentPage:     page.Number,
		TotalPages:      totalPages,
		TotalCount:      total,
		HasNextPage:     page.Number < totalPages,
		HasPreviousPage: page.Number > 1,
	}
}

// PageFromRequest parses page/limit query parameters with the listing
// defaults (page 1, limit 10, limit capped at 100).
func PageFromRequest(r *http.Request) store.Page {
	page := store.Page{Number: 1, Limit: 10}
	if n, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && n > 0 {
		page.Number = n
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		page.Limit = n
	}
	if page.Limit > 100 {
		page.Limit = 100
	}
	return page
}
