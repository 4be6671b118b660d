package rewrite

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkoukk/tiktoken-go"

	"github.com/hhoang/fastai-rewrite/internal/domain"
	"github.com/hhoang/fastai-rewrite/internal/llm"
	"github.com/hhoang/fastai-rewrite/internal/store"
)

// FallbackText is returned to the caller whenever the generation backend
// fails. Upstream failures degrade to this apology instead of an error so the
// interactive chat surface always gets a usable response.
const FallbackText = "Sorry, I couldn't generate a rewrite right now. Please try again in a moment."

// Options configures the rewrite service.
type Options struct {
	Temperature float64
	Timeout     time.Duration
}

// Service orchestrates rewrite requests: it validates the agent and inputs,
// assembles the feedback-conditioned context, drives the generation backend,
// and schedules detached persistence of the resulting interaction.
type Service struct {
	repo      store.Repository
	client    llm.Client
	persister *Persister

	temperature float64
	timeout     time.Duration
	tokenizer   *tiktoken.Tiktoken
}

// NewService creates a rewrite service.
func NewService(repo store.Repository, client llm.Client, persister *Persister, opts Options) *Service {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		repo:        repo,
		client:      client,
		persister:   persister,
		temperature: opts.Temperature,
		timeout:     timeout,
	}
}

// EnableTokenEstimates loads a tokenizer for the given model so the
// observability log line can report a token count even when the backend
// omits usage. Safe to skip; the service then logs latency only.
func (s *Service) EnableTokenEstimates(model string) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil {
		slog.Warn("token estimates disabled, tokenizer unavailable", "model", model, "error", err)
		return
	}
	s.tokenizer = enc
}

// Request is one rewrite or chat invocation.
type Request struct {
	AgentID  string
	Original string
	Prompt   string
	IsChat   bool
}

// Response is the synchronous result of a rewrite. The named interaction is
// persisted after the response is delivered; callers must not assume it is
// queryable immediately.
type Response struct {
	ActivityID string
	AgentID    string
	Original   string
	Prompt     string
	Suggestion string
}

// Rewrite runs one rewrite request for the calling user's agent.
func (s *Service) Rewrite(ctx context.Context, caller *domain.User, req Request) (*Response, error) {
	if strings.TrimSpace(req.Original) == "" {
		return nil, domain.NewValidationError("original", "must be a non-empty string")
	}
	if req.AgentID == "" {
		return nil, domain.NewValidationError("agentId", "is required")
	}

	agent, err := s.repo.GetAgent(ctx, req.AgentID)
	if err != nil {
		return nil, fmt.Errorf("load agent: %w", err)
	}
	if agent == nil || !agent.OwnedBy(caller.ID) {
		return nil, fmt.Errorf("agent %s: %w", req.AgentID, domain.ErrNotFound)
	}

	history, err := s.repo.ListAgentActivities(ctx, agent.ID)
	if err != nil {
		return nil, fmt.Errorf("load agent history: %w", err)
	}

	messages := make([]llm.Message, 0, len(history)*4+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: PersonaPrompt(agent)})
	messages = append(messages, BuildHistory(history)...)
	messages = append(messages, RequestTurn(req.Original, req.Prompt))

	suggestion := s.generate(ctx, agent.ID, messages)

	activityID := uuid.New().String()
	now := time.Now()
	if req.IsChat {
		chat := &domain.ChatActivity{
			ID:        activityID,
			AgentID:   agent.ID,
			Input:     req.Original,
			Prompt:    req.Prompt,
			Output:    suggestion,
			Timestamp: now,
		}
		s.persister.Submit("create chat activity", func(ctx context.Context) error {
			return s.repo.CreateChatActivity(ctx, chat)
		})
	} else {
		activity := &domain.Activity{
			ID:        activityID,
			AgentID:   agent.ID,
			Input:     req.Original,
			Prompt:    req.Prompt,
			Output:    suggestion,
			Timestamp: now,
		}
		s.persister.Submit("create activity", func(ctx context.Context) error {
			return s.repo.CreateActivity(ctx, activity)
		})
	}

	return &Response{
		ActivityID: activityID,
		AgentID:    agent.ID,
		Original:   req.Original,
		Prompt:     req.Prompt,
		Suggestion: suggestion,
	}, nil
}

// generate performs one bounded generation call. Any failure resolves to
// FallbackText; the error is logged, not propagated.
func (s *Service) generate(ctx context.Context, agentID string, messages []llm.Message) string {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	result, err := s.client.Complete(ctx, messages, s.temperature)
	latency := time.Since(start)

	if err != nil || result == nil || result.Text == "" {
		slog.Warn("generation failed, returning fallback",
			"agent_id", agentID,
			"latency_ms", latency.Milliseconds(),
			"error", err)
		return FallbackText
	}

	attrs := []any{
		"agent_id", agentID,
		"latency_ms", latency.Milliseconds(),
		"messages", len(messages),
	}
	switch {
	case result.Usage != nil:
		attrs = append(attrs, "total_tokens", result.Usage.TotalTokens)
	case s.tokenizer != nil:
		attrs = append(attrs, "total_tokens", s.estimateTokens(messages, result.Text), "tokens_estimated", true)
	}
	slog.Info("rewrite generated", attrs...)

	return result.Text
}

func (s *Service) estimateTokens(messages []llm.Message, output string) int {
	total := len(s.tokenizer.Encode(output, nil, nil))
	for _, msg := range messages {
		total += len(s.tokenizer.Encode(msg.Content, nil, nil))
	}
	return total
}
