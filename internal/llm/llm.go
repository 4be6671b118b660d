// Package llm provides the generation-backend client and its message types.
package llm

import "context"

// Message roles understood by the generation backend. Order of messages is
// conversation order.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged turn submitted to the generation backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage tracks token consumption for a request/response pair.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result is a completed generation. Usage is nil when the backend omitted it.
type Result struct {
	Text  string
	Usage *Usage
}

// Client performs one request/response cycle against the generation backend.
type Client interface {
	Complete(ctx context.Context, messages []Message, temperature float64) (*Result, error)
}
