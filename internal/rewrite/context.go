// Package rewrite implements the feedback-conditioned rewrite engine: prompt
// assembly from interaction history, orchestration of generation calls, and
// verdict reconciliation.
package rewrite

import (
	"fmt"
	"strings"

	"github.com/hhoang/fastai-rewrite/internal/domain"
	"github.com/hhoang/fastai-rewrite/internal/llm"
)

// Feedback turns synthesized from an interaction's verdict. The approved
// variant reinforces the style; the other variant asks for a different
// attempt on the same input+note.
const (
	feedbackApproved = "I approved this rewrite. Continue this style next time."
	feedbackRejected = "I did not approve this rewrite. Improve next time, and avoid " +
		"repeating the same output for an identical message and note."
	feedbackAck = "Understood."
)

// BuildHistory converts an agent's prior interactions, in chronological
// order, into the conversational context submitted before a new request.
// Each interaction becomes a 4-message micro-exchange: the restated request,
// the previous output, the verdict as user feedback, and an acknowledgment.
// An empty history produces an empty message sequence.
func BuildHistory(activities []*domain.Activity) []llm.Message {
	messages := make([]llm.Message, 0, len(activities)*4)
	for _, activity := range activities {
		messages = append(messages,
			llm.Message{Role: llm.RoleUser, Content: restateRequest(activity.Input, activity.Prompt)},
			llm.Message{Role: llm.RoleAssistant, Content: activity.Output},
			llm.Message{Role: llm.RoleUser, Content: verdictFeedback(activity.Result)},
			llm.Message{Role: llm.RoleAssistant, Content: feedbackAck},
		)
	}
	return messages
}

func restateRequest(input, note string) string {
	return fmt.Sprintf("I asked you to rewrite this message: %s\nwith this note: %s", input, note)
}

func verdictFeedback(approved bool) string {
	if approved {
		return feedbackApproved
	}
	return feedbackRejected
}

// PersonaPrompt builds the system preamble from the agent's persona fields
// plus the fixed house rules.
func PersonaPrompt(agent *domain.Agent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s.\n", agent.Role)
	if agent.Tone != "" {
		fmt.Fprintf(&b, "Write in a %s tone.\n", agent.Tone)
	}
	if agent.Description != "" {
		b.WriteString(agent.Description)
		b.WriteString("\n")
	}
	b.WriteString("If the rewrite note is empty, ignore it.\n")
	b.WriteString("If a previous generated response is empty, ignore it.\n")
	b.WriteString("Reply with the rewritten text only.")
	return b.String()
}

// RequestTurn builds the new request message appended after the history.
func RequestTurn(original, note string) llm.Message {
	content := fmt.Sprintf(
		"Based on the activities above, rewrite the message below.\n"+
			"Message to rewrite: %s.\n"+
			"Note when rewriting: %s.\n"+
			"If this message matches the latest prior input, treat the note as "+
			"applying to the latest prior output, not the input.",
		original, note)
	return llm.Message{Role: llm.RoleUser, Content: content}
}
