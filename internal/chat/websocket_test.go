package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/hhoang/fastai-rewrite/internal/domain"
	"github.com/hhoang/fastai-rewrite/internal/identity"
	"github.com/hhoang/fastai-rewrite/internal/llm"
	"github.com/hhoang/fastai-rewrite/internal/rewrite"
	"github.com/hhoang/fastai-rewrite/internal/store"
)

type cannedClient struct {
	text string
}

func (c *cannedClient) Complete(context.Context, []llm.Message, float64) (*llm.Result, error) {
	return &llm.Result{Text: c.text}, nil
}

type wsEnv struct {
	repo   store.Repository
	agent  *domain.Agent
	server *httptest.Server
}

func newWSEnv(t *testing.T) *wsEnv {
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
		Name:      "Chat Agent",
		Role:      "an editor",
		Status:    domain.AgentStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreateAgent(ctx, agent); err != nil {
		t.Fatalf("CreateAgent failed: %v", err)
	}

	persister := rewrite.NewPersister(4)
	t.Cleanup(func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := persister.Close(drainCtx); err != nil {
			t.Errorf("persister drain failed: %v", err)
		}
	})
	svc := rewrite.NewService(repo, &cannedClient{text: "a chat rewrite"}, persister,
		rewrite.Options{Temperature: 0.3, Timeout: 5 * time.Second})

	wsHandler := NewWebSocketHandler(svc, "*", true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wsHandler.ServeHTTP(w, r.WithContext(identity.WithUser(r.Context(), user)))
	}))
	t.Cleanup(server.Close)

	return &wsEnv{repo: repo, agent: agent, server: server}
}

func (e *wsEnv) dial(t *testing.T, ctx context.Context, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws/chat" + query
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	return conn
}

func TestChatTurnRoundTrip(t *testing.T) {
	env := newWSEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx, "?agentId="+env.agent.ID)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	if err := conn.Write(ctx, websocket.MessageText,
		[]byte(`{"text":"make this friendlier","note":"casual"}`)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	var resp struct {
		ChatActivityID string `json:"chatActivityId"`
		Suggestion     string `json:"suggestion"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Suggestion != "a chat rewrite" {
		t.Errorf("unexpected suggestion: %q", resp.Suggestion)
	}
	if resp.ChatActivityID == "" {
		t.Error("expected a chat activity id")
	}
}

func TestChatTurnInvalidPayload(t *testing.T) {
	env := newWSEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx, "?agentId="+env.agent.ID)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	if err := conn.Write(ctx, websocket.MessageText, []byte(`{not json`)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	var resp map[string]string
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp["error"] == "" {
		t.Errorf("expected error reply, got %v", resp)
	}
}

func TestChatRequiresAgentID(t *testing.T) {
	env := newWSEnv(t)

	resp, err := http.Get(env.server.URL + "/ws/chat")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 without agentId, got %d", resp.StatusCode)
	}
}
