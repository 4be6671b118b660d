package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hhoang/fastai-rewrite/internal/config"
)

func testConfig(baseURL string) config.OpenAIConfig {
	return config.OpenAIConfig{
		APIKey:         "sk-test",
		OrganizationID: "org-test",
		ProjectID:      "proj-test",
		BaseURL:        baseURL,
		Model:          "gpt-4o-mini",
		Temperature:    0.3,
		Timeout:        5 * time.Second,
	}
}

func TestCompleteSendsExpectedRequest(t *testing.T) {
	var gotPath, gotAuth, gotOrg, gotProject string
	var gotBody chatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotOrg = r.Header.Get("OpenAI-Organization")
		gotProject = r.Header.Get("OpenAI-Project")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if err := json.NewEncoder(w).Encode(chatResponse{
			Choices: []choice{{Message: Message{Role: RoleAssistant, Content: "rewritten"}}},
			Usage:   &Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		}); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	defer srv.Close()

	client := NewOpenAI(testConfig(srv.URL))
	result, err := client.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "persona"},
		{Role: RoleUser, Content: "rewrite this"},
	}, 0.3)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if gotPath != "/chat/completions" {
		t.Errorf("expected /chat/completions, got %s", gotPath)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("unexpected auth header: %s", gotAuth)
	}
	if gotOrg != "org-test" || gotProject != "proj-test" {
		t.Errorf("missing org/project headers: %s / %s", gotOrg, gotProject)
	}
	if gotBody.Model != "gpt-4o-mini" {
		t.Errorf("unexpected model: %s", gotBody.Model)
	}
	if gotBody.Temperature != 0.3 {
		t.Errorf("unexpected temperature: %v", gotBody.Temperature)
	}
	if len(gotBody.Messages) != 2 || gotBody.Messages[0].Role != RoleSystem {
		t.Errorf("unexpected messages: %+v", gotBody.Messages)
	}

	if result.Text != "rewritten" {
		t.Errorf("expected rewritten, got %q", result.Text)
	}
	if result.Usage == nil || result.Usage.TotalTokens != 15 {
		t.Errorf("expected usage with 15 total tokens, got %+v", result.Usage)
	}
}

func TestCompleteOmittedUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if err := json.NewEncoder(w).Encode(chatResponse{
			Choices: []choice{{Message: Message{Role: RoleAssistant, Content: "ok"}}},
		}); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	defer srv.Close()

	client := NewOpenAI(testConfig(srv.URL))
	result, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, 0)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if result.Usage != nil {
		t.Errorf("expected nil usage, got %+v", result.Usage)
	}
}

func TestCompleteBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewOpenAI(testConfig(srv.URL))
	if _, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, 0); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if err := json.NewEncoder(w).Encode(chatResponse{}); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	defer srv.Close()

	client := NewOpenAI(testConfig(srv.URL))
	if _, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, 0); err == nil {
		t.Fatal("expected error when response has no choices")
	}
}

func TestCompleteNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // closed up front so the dial fails

	client := NewOpenAI(testConfig(srv.URL))
	if _, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, 0); err == nil {
		t.Fatal("expected error on connection failure")
	}
}
