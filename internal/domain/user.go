// Package domain contains core domain types for the FastAI Rewrite application.
package domain

import (
	"time"
)

// User represents a signed-in user. Users are created or refreshed on every
// authenticated request, keyed by the identity provider's external ID.
type User struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Image      string    `json:"image,omitempty"`
	ExternalID string    `json:"externalId"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
