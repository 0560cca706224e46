// Package agents contains the SDR dialogue agent, its tag processor and the
// conversation summarizer.
package agents

import (
	"context"

	"sdragent/models"
	"sdragent/tools"
)

// StateStore is the slice of the Redis store the agents read and write.
type StateStore interface {
	LeadState(ctx context.Context, sender string) (*models.LeadState, error)
	SaveState(ctx context.Context, sender string, st models.LeadState) error
	History(ctx context.Context, sender string, limit int) ([]models.HistoryEntry, error)
}

// CRM receives the side effects of tagged model output.
type CRM interface {
	AddObjection(remoteJID, objection string) (bool, error)
	UpdateQualification(remoteJID, level, summary string) (bool, error)
	ConvertToContact(remoteJID, summary string) (*models.Contato, error)
}

// Completer generates text for a single prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int64) (string, error)
}

// LLM is everything the dialogue agent needs from the model provider.
type LLM interface {
	Completer
	Chat(ctx context.Context, system string, transcript []tools.ChatMessage, user string, p tools.ChatParams) (string, error)
	Respond(ctx context.Context, instructions, input string) (string, error)
}

// Summary produces the hand-off summary of a conversation, "" when unavailable.
type Summary interface {
	Summarize(ctx context.Context, sender string) string
}

// DialogueHandler answers one consolidated turn of a lead.
type DialogueHandler interface {
	// Reply never fails: model errors become a fixed fallback text.
	Reply(ctx context.Context, t Turn) string
	Summary
}

// Turn is one request to the dialogue handler.
type Turn struct {
	Sender       string
	Message      string
	Lead         models.LeadState
	FirstContact bool
}
