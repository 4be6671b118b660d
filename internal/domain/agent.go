package domain

import (
	"time"
)

// Agent status values. Only active agents count toward dashboard metrics.
const (
	AgentStatusActive   = "active"
	AgentStatusInactive = "inactive"
)

// Agent is a named, user-owned writing persona that parameterizes rewrite
// requests. Role, tone and description are free text and flow directly into
// the generation backend's system prompt.
type Agent struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	Tone        string    `json:"tone,omitempty"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// IsActive reports whether the agent counts as active.
func (a *Agent) IsActive() bool {
	return a.Status == AgentStatusActive
}

// OwnedBy reports whether the agent belongs to the given user.
func (a *Agent) OwnedBy(userID string) bool {
	return a.UserID == userID
}
