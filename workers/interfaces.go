package workers

import (
	"context"
	"time"

	"sdragent/models"
	"sdragent/tools"
)

// Gateway is the WhatsApp messaging gateway.
type Gateway interface {
	SendText(ctx context.Context, to, text string) error
	SendAudioWithPresence(ctx context.Context, to, audioBase64 string, duration time.Duration) error
	FetchMediaBase64(ctx context.Context, messageID string) (*tools.Media, error)
}

// GatewayFactory returns a gateway bound to the credentials that came with
// a webhook. Empty values fall back to the configured ones.
type GatewayFactory func(serverURL, apiKey, instance string) Gateway

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audioBase64, mimetype string) (string, error)
}

type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int64) (string, error)
}

type bufferStore interface {
	AppendBuffer(ctx context.Context, sender, text string) error
	BufferMessages(ctx context.Context, sender string) ([]string, error)
	ClearBuffer(ctx context.Context, sender string) error
	AppendHistory(ctx context.Context, sender, role, content string) error
}

type filterStore interface {
	IsBlocked(ctx context.Context, sender string) (bool, error)
	IsAIMessage(ctx context.Context, sender, text string) (bool, error)
}

type deliveryStore interface {
	AppendHistory(ctx context.Context, sender, role, content string) error
	AddAIMessage(ctx context.Context, sender, text string) error
}

type followUpStore interface {
	FollowUp(ctx context.Context, sender string) (*models.FollowUpState, error)
	SaveFollowUp(ctx context.Context, sender string, f models.FollowUpState) error
	FollowUpSenders(ctx context.Context) ([]string, error)
	AppendHistory(ctx context.Context, sender, role, content string) error
}

type leadStore interface {
	LeadState(ctx context.Context, sender string) (*models.LeadState, error)
	SaveState(ctx context.Context, sender string, st models.LeadState) error
}

// Store is every Redis operation the workers use.
type Store interface {
	bufferStore
	filterStore
	deliveryStore
	followUpStore
	leadStore
}
