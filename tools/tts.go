package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/haguro/elevenlabs-go"
)

const elevenLabsTimeout = 60 * time.Second

// ElevenLabsClient converte texto em áudio MP3.
type ElevenLabsClient struct {
	APIKey  string
	VoiceID string
	Model   string
	Timeout time.Duration
}

func NewElevenLabsClient(apiKey, voiceID, model string) *ElevenLabsClient {
	return &ElevenLabsClient{
		APIKey:  strings.TrimSpace(apiKey),
		VoiceID: strings.TrimSpace(voiceID),
		Model:   model,
		Timeout: elevenLabsTimeout,
	}
}

// Synthesize returns the MP3 bytes for text. Expression tags are converted
// before the call.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if c.APIKey == "" || c.VoiceID == "" {
		return nil, fmt.Errorf("elevenlabs api key/voice id não configurados")
	}
	processed := ProcessAudioTags(text)
	if processed == "" {
		return nil, fmt.Errorf("elevenlabs: empty text")
	}

	// o client da lib guarda o contexto, então um por chamada
	client := elevenlabs.NewClient(ctx, c.APIKey, c.Timeout)
	audio, err := client.TextToSpeech(c.VoiceID, elevenlabs.TextToSpeechRequest{
		Text:    processed,
		ModelID: c.Model,
		VoiceSettings: &elevenlabs.VoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Style:           0.4,
			SpeakerBoost:    true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs tts: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("elevenlabs tts: empty audio")
	}
	return audio, nil
}
