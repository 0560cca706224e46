package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

/************************************************
/**** MARK: PRESENCE ****/
/************************************************/
const PRESENCE_COMPOSING = "composing"
const PRESENCE_RECORDING = "recording"

// EvolutionClient is a thin client for the Evolution API (WhatsApp gateway).
type EvolutionClient struct {
	BaseURL  string
	APIKey   string
	Instance string
	HTTP     *http.Client
}

func NewEvolutionClient(baseURL, apiKey, instance string) *EvolutionClient {
	return &EvolutionClient{
		BaseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		APIKey:   strings.TrimSpace(apiKey),
		Instance: strings.TrimSpace(instance),
		HTTP:     &http.Client{Timeout: 60 * time.Second},
	}
}

// WithCredentials returns a copy that talks to the instance that delivered a
// webhook. Empty values keep the configured ones.
func (c *EvolutionClient) WithCredentials(serverURL, apiKey, instance string) *EvolutionClient {
	out := *c
	if v := strings.TrimRight(strings.TrimSpace(serverURL), "/"); v != "" {
		out.BaseURL = v
	}
	if v := strings.TrimSpace(apiKey); v != "" {
		out.APIKey = v
	}
	if v := strings.TrimSpace(instance); v != "" {
		out.Instance = v
	}
	return &out
}

func (c *EvolutionClient) post(ctx context.Context, action string, timeout time.Duration, body any) ([]byte, error) {
	if c.BaseURL == "" || c.Instance == "" {
		return nil, fmt.Errorf("evolution api url/instance não configurados")
	}
	url := fmt.Sprintf("%s/%s/%s", c.BaseURL, strings.Trim(action, "/"), c.Instance)

	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return nil, APIError{Service: "evolution", StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

// SendText sends a text message.
func (c *EvolutionClient) SendText(ctx context.Context, to string, text string) error {
	_, err := c.post(ctx, "message/sendText", 30*time.Second, map[string]any{
		"number": RemoteJID(to),
		"text":   text,
	})
	return err
}

// SendAudio sends a base64 encoded voice note (PTT).
func (c *EvolutionClient) SendAudio(ctx context.Context, to string, audioBase64 string) error {
	_, err := c.post(ctx, "message/sendWhatsAppAudio", 60*time.Second, map[string]any{
		"number":   RemoteJID(to),
		"audio":    audioBase64,
		"encoding": true,
	})
	return err
}

// SendPresence shows "composing" or "recording" in the chat.
func (c *EvolutionClient) SendPresence(ctx context.Context, to string, presence string) error {
	_, err := c.post(ctx, "chat/sendPresence", 10*time.Second, map[string]any{
		"number":   RemoteJID(to),
		"presence": presence,
	})
	return err
}

// SendAudioWithPresence shows "recording" for the given duration, then sends the audio.
func (c *EvolutionClient) SendAudioWithPresence(ctx context.Context, to string, audioBase64 string, duration time.Duration) error {
	// presença é cosmética, falha não impede o envio
	_ = c.SendPresence(ctx, to, PRESENCE_RECORDING)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(duration):
	}
	return c.SendAudio(ctx, to, audioBase64)
}

// Media is the base64 payload of a received media message.
type Media struct {
	Base64   string `json:"base64"`
	Mimetype string `json:"mimetype"`
}

// FetchMediaBase64 downloads a received media message. Returns nil when the
// gateway answers without content.
func (c *EvolutionClient) FetchMediaBase64(ctx context.Context, messageID string) (*Media, error) {
	raw, err := c.post(ctx, "chat/getBase64FromMediaMessage", 60*time.Second, map[string]any{
		"message":      map[string]any{"key": map[string]any{"id": messageID}},
		"convertToMp4": true,
	})
	if err != nil {
		return nil, err
	}

	var media Media
	if err := json.Unmarshal(raw, &media); err != nil {
		return nil, fmt.Errorf("decode media: %w", err)
	}
	if media.Base64 == "" {
		return nil, nil
	}
	if media.Mimetype == "" {
		media.Mimetype = "audio/ogg"
	}
	return &media, nil
}
