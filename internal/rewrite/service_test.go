package rewrite

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hhoang/fastai-rewrite/internal/domain"
	"github.com/hhoang/fastai-rewrite/internal/llm"
	"github.com/hhoang/fastai-rewrite/internal/store"
)

// fakeClient is a canned generation backend.
type fakeClient struct {
	result   *llm.Result
	err      error
	calls    int
	messages []llm.Message
	temp     float64
}

func (f *fakeClient) Complete(_ context.Context, messages []llm.Message, temperature float64) (*llm.Result, error) {
	f.calls++
	f.messages = messages
	f.temp = temperature
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fixture struct {
	repo      store.Repository
	client    *fakeClient
	persister *Persister
	svc       *Service
	user      *domain.User
	agent     *domain.Agent
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})

	ctx := context.Background()
	user, err := repo.UpsertUser(ctx, &domain.User{
		ID:         uuid.New().String(),
		Name:       "Owner",
		Email:      "owner@example.com",
		ExternalID: "ext-owner",
	})
	if err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}

	now := time.Now()
	agent := &domain.Agent{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Name:      "Formal Writer",
		Role:      "a business correspondent",
		Tone:      "formal",
		Status:    domain.AgentStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreateAgent(ctx, agent); err != nil {
		t.Fatalf("CreateAgent failed: %v", err)
	}

	client := &fakeClient{result: &llm.Result{Text: "a polished rewrite"}}
	persister := NewPersister(4)
	svc := NewService(repo, client, persister, Options{Temperature: 0.3, Timeout: 5 * time.Second})

	return &fixture{repo: repo, client: client, persister: persister, svc: svc, user: user, agent: agent}
}

// drain waits for detached persistence to complete.
func (f *fixture) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.persister.Close(ctx); err != nil {
		t.Fatalf("persister drain failed: %v", err)
	}
}

func TestRewriteEmptyOriginalFailsValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Rewrite(context.Background(), f.user, Request{
		AgentID:  f.agent.ID,
		Original: "   ",
	})
	if !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if f.client.calls != 0 {
		t.Error("generation backend must not be called on validation failure")
	}
}

func TestRewriteUnknownAgentFailsBeforeGeneration(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Rewrite(context.Background(), f.user, Request{
		AgentID:  "no-such-agent",
		Original: "hello",
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if f.client.calls != 0 {
		t.Error("generation backend must not be called for unknown agent")
	}
}

func TestRewriteForeignAgentIsNotFound(t *testing.T) {
	f := newFixture(t)

	stranger, err := f.repo.UpsertUser(context.Background(), &domain.User{
		ID:         uuid.New().String(),
		Name:       "Stranger",
		Email:      "stranger@example.com",
		ExternalID: "ext-stranger",
	})
	if err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}

	_, err = f.svc.Rewrite(context.Background(), stranger, Request{
		AgentID:  f.agent.ID,
		Original: "hello",
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unowned agent, got %v", err)
	}
}

func TestRewriteReturnsSuggestionAndPersistsActivity(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Rewrite(context.Background(), f.user, Request{
		AgentID:  f.agent.ID,
		Original: "fix this up",
		Prompt:   "sound professional",
	})
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}

	if resp.Suggestion != "a polished rewrite" {
		t.Errorf("unexpected suggestion: %q", resp.Suggestion)
	}
	if resp.ActivityID == "" {
		t.Error("expected a minted activity id")
	}
	if f.client.temp != 0.3 {
		t.Errorf("expected temperature 0.3, got %v", f.client.temp)
	}

	f.drain(t)

	activity, err := f.repo.GetActivity(context.Background(), resp.ActivityID)
	if err != nil {
		t.Fatalf("GetActivity failed: %v", err)
	}
	if activity == nil {
		t.Fatal("expected activity persisted after drain")
	}
	if activity.Input != "fix this up" || activity.Prompt != "sound professional" ||
		activity.Output != "a polished rewrite" {
		t.Errorf("unexpected persisted activity: %+v", activity)
	}
	if activity.Result {
		t.Error("new activity must start unjudged (result=false)")
	}
}

func TestRewriteChatPersistsChatActivity(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Rewrite(context.Background(), f.user, Request{
		AgentID:  f.agent.ID,
		Original: "hello there",
		IsChat:   true,
	})
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}

	f.drain(t)

	chat, err := f.repo.GetChatActivity(context.Background(), resp.ActivityID)
	if err != nil {
		t.Fatalf("GetChatActivity failed: %v", err)
	}
	if chat == nil {
		t.Fatal("expected chat activity persisted after drain")
	}
	if chat.Approved || chat.Rejected {
		t.Error("new chat activity must start unmarked")
	}

	// No counted record until the turn is marked.
	activity, err := f.repo.GetActivity(context.Background(), resp.ActivityID)
	if err != nil {
		t.Fatalf("GetActivity failed: %v", err)
	}
	if activity != nil {
		t.Error("chat turns must not land in the counted collection directly")
	}
}

func TestRewriteUpstreamFailureResolvesToFallback(t *testing.T) {
	f := newFixture(t)
	f.client.err = errors.New("connection refused")

	resp, err := f.svc.Rewrite(context.Background(), f.user, Request{
		AgentID:  f.agent.ID,
		Original: "hello",
	})
	if err != nil {
		t.Fatalf("expected graceful degradation, got error: %v", err)
	}
	if resp.Suggestion != FallbackText {
		t.Errorf("expected fallback text, got %q", resp.Suggestion)
	}
}

func TestRewriteEmptyCompletionResolvesToFallback(t *testing.T) {
	f := newFixture(t)
	f.client.result = &llm.Result{Text: ""}

	resp, err := f.svc.Rewrite(context.Background(), f.user, Request{
		AgentID:  f.agent.ID,
		Original: "hello",
	})
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	if resp.Suggestion != FallbackText {
		t.Errorf("expected fallback text for empty completion, got %q", resp.Suggestion)
	}
}

func TestRewriteSubmitsFeedbackConditionedContext(t *testing.T) {
	f := newFixture(t)

	if err := f.repo.CreateActivity(context.Background(), &domain.Activity{
		ID:        uuid.New().String(),
		AgentID:   f.agent.ID,
		Input:     "hi",
		Output:    "hello",
		Result:    true,
		Timestamp: time.Now().Add(-time.Minute),
	}); err != nil {
		t.Fatalf("CreateActivity failed: %v", err)
	}

	if _, err := f.svc.Rewrite(context.Background(), f.user, Request{
		AgentID:  f.agent.ID,
		Original: "hi",
	}); err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}

	msgs := f.client.messages
	// system + 4 history messages + new request turn.
	if len(msgs) != 6 {
		t.Fatalf("expected 6 messages, got %d", len(msgs))
	}
	if msgs[0].Role != llm.RoleSystem || !strings.Contains(msgs[0].Content, "business correspondent") {
		t.Errorf("expected persona system message first, got %+v", msgs[0])
	}
	if !strings.Contains(msgs[1].Content, "hi") {
		t.Errorf("expected history to restate input, got %q", msgs[1].Content)
	}
	if msgs[2].Content != "hello" {
		t.Errorf("expected prior output, got %q", msgs[2].Content)
	}
	if !strings.Contains(msgs[3].Content, "approved") {
		t.Errorf("expected positive feedback, got %q", msgs[3].Content)
	}
	last := msgs[len(msgs)-1]
	if last.Role != llm.RoleUser || !strings.Contains(last.Content, "hi") {
		t.Errorf("expected new request turn for %q, got %+v", "hi", last)
	}
}

func TestRewriteFirstRequestHasNoHistory(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Rewrite(context.Background(), f.user, Request{
		AgentID:  f.agent.ID,
		Original: "first ever",
	}); err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}

	// Only persona + new request for a fresh agent.
	if len(f.client.messages) != 2 {
		t.Errorf("expected 2 messages for empty history, got %d", len(f.client.messages))
	}
}
