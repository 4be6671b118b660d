package domain

import (
	"time"
)

// Activity is one logged rewrite exchange in the counted collection read by
// the context builder and the dashboard metrics. Batch rewrites land here
// directly; chat turns are mirrored into it once the user marks them.
//
// Result conflates "rejected" and "never judged": both read as false. Chat
// records carry the explicit approved/rejected pair instead.
type Activity struct {
	ID      string `json:"id"`
	AgentID string `json:"agentId"`
	Input   string `json:"input"`
	Prompt  string `json:"prompt,omitempty"`
	Output  string `json:"output"`
	Result  bool   `json:"result"`
	// ChatActivityID back-references the chat turn this record mirrors.
	// Empty for batch-origin records.
	ChatActivityID string    `json:"chatActivityId,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// ChatActivity is one turn of the interactive chat flow. Approved and
// Rejected are never both true; setting one clears the other.
type ChatActivity struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agentId"`
	Input     string    `json:"input"`
	Prompt    string    `json:"prompt,omitempty"`
	Output    string    `json:"output"`
	Approved  bool      `json:"approved"`
	Rejected  bool      `json:"rejected"`
	Timestamp time.Time `json:"timestamp"`
}

// VerdictAction is a retroactive judgment applied to a chat turn.
type VerdictAction string

const (
	ActionApprove VerdictAction = "approve"
	ActionReject  VerdictAction = "reject"
)

// Valid reports whether the action is one of the known verdict actions.
func (a VerdictAction) Valid() bool {
	return a == ActionApprove || a == ActionReject
}

// Marked reports whether the chat turn carries any verdict. A marked turn
// has exactly one mirrored Activity; an unmarked turn has none.
func (c *ChatActivity) Marked() bool {
	return c.Approved || c.Rejected
}

// ApplyVerdict advances the turn's verdict state machine:
// approve toggles unmarked<->approved and moves rejected->approved,
// reject toggles unmarked<->rejected and moves approved->rejected.
// Re-applying the currently set verdict un-marks the turn.
func (c *ChatActivity) ApplyVerdict(action VerdictAction) {
	switch action {
	case ActionApprove:
		if c.Approved {
			c.Approved = false
			c.Rejected = false
			return
		}
		c.Approved = true
		c.Rejected = false
	case ActionReject:
		if c.Rejected {
			c.Approved = false
			c.Rejected = false
			return
		}
		c.Rejected = true
		c.Approved = false
	}
}

// Mirror builds the Activity that reflects this chat turn's verdict. The
// mirrored record keeps the chat turn's timestamp so it sorts into the
// agent's history at the position the exchange actually happened.
func (c *ChatActivity) Mirror(id string) *Activity {
	return &Activity{
		ID:             id,
		AgentID:        c.AgentID,
		Input:          c.Input,
		Prompt:         c.Prompt,
		Output:         c.Output,
		Result:         c.Approved,
		ChatActivityID: c.ID,
		Timestamp:      c.Timestamp,
	}
}

// HistoryEntry is an admin view of an Activity joined with its agent and
// owning user.
type HistoryEntry struct {
	Activity  Activity `json:"activity"`
	AgentName string   `json:"agentName"`
	UserName  string   `json:"userName"`
	UserEmail string   `json:"userEmail"`
	UserImage string   `json:"userImage,omitempty"`
}
