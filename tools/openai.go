package tools

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// ChatMessage is one turn of a chat transcript ("user" or "assistant").
type ChatMessage struct {
	Role    string
	Content string
}

// ChatParams are the sampling knobs of a chat completion call.
type ChatParams struct {
	Temperature      float64
	PresencePenalty  float64
	FrequencyPenalty float64
	MaxTokens        int64
}

// OpenAIClient wraps chat completions, Whisper transcription and the Responses API.
type OpenAIClient struct {
	client openai.Client
	model  string
}

func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIClient{
		client: openai.NewClient(
			option.WithAPIKey(strings.TrimSpace(apiKey)),
			option.WithBaseURL(baseURL+"/"),
			option.WithRequestTimeout(60*time.Second),
		),
		model: model,
	}
}

func (c *OpenAIClient) Model() string {
	return c.model
}

// Chat runs a chat completion: system prompt, transcript, then the current user message.
func (c *OpenAIClient) Chat(ctx context.Context, system string, transcript []ChatMessage, user string, p ChatParams) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(system)}
	for _, m := range transcript {
		if m.Role == "assistant" {
			messages = append(messages, openai.AssistantMessage(m.Content))
		} else {
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	if user != "" {
		messages = append(messages, openai.UserMessage(user))
	}

	params := openai.ChatCompletionNewParams{
		Model:            openai.ChatModel(c.model),
		Messages:         messages,
		Temperature:      openai.Float(p.Temperature),
		PresencePenalty:  openai.Float(p.PresencePenalty),
		FrequencyPenalty: openai.Float(p.FrequencyPenalty),
	}
	if p.MaxTokens > 0 {
		params.MaxTokens = openai.Int(p.MaxTokens)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat: empty choices")
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", fmt.Errorf("openai chat: empty content")
	}
	return out, nil
}

// Complete generates text for a single prompt (follow-ups, summaries).
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, maxTokens int64) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		MaxTokens:   openai.Int(maxTokens),
		Temperature: openai.Float(0.8),
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

var audioExtensions = map[string]string{
	"audio/ogg":  ".ogg",
	"audio/mpeg": ".mp3",
	"audio/mp4":  ".m4a",
	"audio/wav":  ".wav",
	"audio/webm": ".webm",
}

// Transcribe sends a base64 encoded voice note to Whisper (pt).
func (c *OpenAIClient) Transcribe(ctx context.Context, audioBase64, mimetype string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(audioBase64)
	if err != nil {
		return "", fmt.Errorf("decode audio: %w", err)
	}
	mime := strings.TrimSpace(strings.Split(mimetype, ";")[0])
	ext, ok := audioExtensions[mime]
	if !ok {
		mime, ext = "audio/ogg", ".ogg"
	}

	resp, err := c.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:     openai.File(bytes.NewReader(data), "audio"+ext, mime),
		Model:    openai.AudioModelWhisper1,
		Language: openai.String("pt"),
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// Respond calls the Responses API with the system instructions and the
// flattened transcript as input.
func (c *OpenAIClient) Respond(ctx context.Context, instructions string, input string) (string, error) {
	resp, err := c.client.Responses.New(ctx, responses.ResponseNewParams{
		Model:        c.model,
		Instructions: openai.String(instructions),
		Input:        responses.ResponseNewParamsInputUnion{OfString: openai.String(input)},
	})
	if err != nil {
		return "", fmt.Errorf("openai responses: %w", err)
	}
	out := strings.TrimSpace(resp.OutputText())
	if out == "" {
		return "", fmt.Errorf("openai responses: empty output")
	}
	return out, nil
}
