// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/hhoang/fastai-rewrite/internal/domain"
)

// Page describes a one-based page request for list endpoints.
type Page struct {
	Number int
	Limit  int
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Limit
}

// Repository defines the interface for persisting users, agents and
// interaction records.
type Repository interface {
	// UpsertUser creates or refreshes a user keyed by external identity ID
	// and returns the stored record.
	UpsertUser(ctx context.Context, user *domain.User) (*domain.User, error)

	// GetUser retrieves a user by ID. Returns nil, nil when absent.
	GetUser(ctx context.Context, id string) (*domain.User, error)

	// ListUsers returns a newest-first page of users plus the total count.
	ListUsers(ctx context.Context, page Page) ([]*domain.User, int, error)

	// CreateAgent persists a new agent.
	CreateAgent(ctx context.Context, agent *domain.Agent) error

	// GetAgent retrieves an agent by ID. Returns nil, nil when absent.
	GetAgent(ctx context.Context, id string) (*domain.Agent, error)

	// ListAgents returns all agents owned by a user, newest first.
	ListAgents(ctx context.Context, userID string) ([]*domain.Agent, error)

	// UpdateAgent overwrites an agent's mutable fields.
	UpdateAgent(ctx context.Context, agent *domain.Agent) error

	// DeleteAgent removes an agent and cascades to its interaction records.
	DeleteAgent(ctx context.Context, id string) error

	// CreateActivity persists a rewrite interaction record.
	CreateActivity(ctx context.Context, activity *domain.Activity) error

	// GetActivity retrieves a rewrite interaction. Returns nil, nil when absent.
	GetActivity(ctx context.Context, id string) (*domain.Activity, error)

	// MarkActivityApproved sets result=true on a rewrite interaction.
	// Returns domain.ErrNotFound when no row matches.
	MarkActivityApproved(ctx context.Context, id string) error

	// ListAgentActivities returns an agent's rewrite interactions in stable
	// chronological order, for context building.
	ListAgentActivities(ctx context.Context, agentID string) ([]*domain.Activity, error)

	// ListActivitiesPage returns a newest-first page of an agent's rewrite
	// interactions plus the total count.
	ListActivitiesPage(ctx context.Context, agentID string, page Page) ([]*domain.Activity, int, error)

	// ListRewriteHistory returns a newest-first page of all rewrite
	// interactions joined with agent and user, plus the total count.
	ListRewriteHistory(ctx context.Context, page Page) ([]*domain.HistoryEntry, int, error)

	// CreateChatActivity persists a chat interaction record.
	CreateChatActivity(ctx context.Context, chat *domain.ChatActivity) error

	// GetChatActivity retrieves a chat interaction. Returns nil, nil when absent.
	GetChatActivity(ctx context.Context, id string) (*domain.ChatActivity, error)

	// ListChatActivities returns an agent's chat interactions in stable
	// chronological order.
	ListChatActivities(ctx context.Context, agentID string) ([]*domain.ChatActivity, error)

	// ReconcileChatVerdict writes the chat interaction's verdict flags and,
	// in the same transaction, creates, updates or deletes the mirrored
	// rewrite interaction so that exactly one mirror exists while the turn
	// is marked and none while it is unmarked. mirrorID names the record
	// should a new mirror be needed.
	ReconcileChatVerdict(ctx context.Context, chat *domain.ChatActivity, mirrorID string) error

	// CountActiveAgents counts a user's active agents, optionally only those
	// created before the given instant.
	CountActiveAgents(ctx context.Context, userID string, before *time.Time) (int, error)

	// CountActivities counts a user's rewrite interactions, optionally only
	// approved ones and/or only those before the given instant.
	CountActivities(ctx context.Context, userID string, approvedOnly bool, before *time.Time) (int, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
