// Package identity resolves the calling user from the identity provider.
//
// OAuth sign-in and session issuance live in the fronting auth proxy, which
// forwards the verified identity on trusted headers. This package turns those
// headers into a typed user attached to the request context, upserting the
// user record keyed by external identity on every authenticated request.
package identity

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/hhoang/fastai-rewrite/internal/domain"
	"github.com/hhoang/fastai-rewrite/internal/store"
)

// Trusted headers set by the auth proxy after verifying the session.
const (
	HeaderExternalID = "X-Auth-Id"
	HeaderEmail      = "X-Auth-Email"
	HeaderName       = "X-Auth-Name"
	HeaderPicture    = "X-Auth-Picture"
)

type contextKey int

const userKey contextKey = iota

// UserFromContext extracts the authenticated user from the request context.
// Returns nil outside the middleware.
func UserFromContext(ctx context.Context) *domain.User {
	if u, ok := ctx.Value(userKey).(*domain.User); ok {
		return u
	}
	return nil
}

// WithUser attaches a user to the context. Exported for handler tests.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// Middleware authenticates requests from the identity headers. Requests
// without a verified identity are rejected with 401.
func Middleware(repo store.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			externalID := r.Header.Get(HeaderExternalID)
			email := r.Header.Get(HeaderEmail)
			if externalID == "" || email == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}

			user, err := repo.UpsertUser(r.Context(), &domain.User{
				ID:         uuid.New().String(),
				Name:       r.Header.Get(HeaderName),
				Email:      email,
				Image:      r.Header.Get(HeaderPicture),
				ExternalID: externalID,
			})
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"failed to resolve user"}`))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}
