package tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type recorded struct {
	path   string
	header http.Header
	body   map[string]any
}

func recordingServer(t *testing.T, status int, reply string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		calls = append(calls, recorded{path: r.URL.Path, header: r.Header.Clone(), body: body})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestEvolutionSendText(t *testing.T) {
	srv, calls := recordingServer(t, http.StatusCreated, `{}`)
	c := NewEvolutionClient(srv.URL, "k1", "inst")

	require.NoError(t, c.SendText(context.Background(), "11 99999-8888", "Oi!"))

	require.Len(t, *calls, 1)
	got := (*calls)[0]
	assert.Equal(t, "/message/sendText/inst", got.path)
	assert.Equal(t, "k1", got.header.Get("apikey"))
	assert.Equal(t, "5511999998888@s.whatsapp.net", got.body["number"])
	assert.Equal(t, "Oi!", got.body["text"])
}

func TestEvolutionWithCredentials(t *testing.T) {
	srv, calls := recordingServer(t, http.StatusOK, `{}`)
	base := NewEvolutionClient("http://unused", "k1", "inst")

	c := base.WithCredentials(srv.URL+"/", "k2", "")
	require.NoError(t, c.SendPresence(context.Background(), "5511999998888@s.whatsapp.net", PRESENCE_COMPOSING))

	require.Len(t, *calls, 1)
	assert.Equal(t, "/chat/sendPresence/inst", (*calls)[0].path)
	assert.Equal(t, "k2", (*calls)[0].header.Get("apikey"))
	assert.Equal(t, "http://unused", base.BaseURL)
}

func TestEvolutionAudioWithPresence(t *testing.T) {
	srv, calls := recordingServer(t, http.StatusOK, `{}`)
	c := NewEvolutionClient(srv.URL, "k", "inst")

	require.NoError(t, c.SendAudioWithPresence(context.Background(), "5511999998888", "QUJD", time.Millisecond))

	require.Len(t, *calls, 2)
	assert.Equal(t, PRESENCE_RECORDING, (*calls)[0].body["presence"])
	assert.Equal(t, "/message/sendWhatsAppAudio/inst", (*calls)[1].path)
	assert.Equal(t, "QUJD", (*calls)[1].body["audio"])
	assert.Equal(t, true, (*calls)[1].body["encoding"])
}

func TestEvolutionAPIError(t *testing.T) {
	srv, _ := recordingServer(t, http.StatusBadRequest, `{"error":"bad"}`)
	c := NewEvolutionClient(srv.URL, "k", "inst")

	err := c.SendText(context.Background(), "5511999998888", "oi")
	var apiErr APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "evolution", apiErr.Service)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestEvolutionFetchMedia(t *testing.T) {
	srv, calls := recordingServer(t, http.StatusOK, `{"base64":"T2dn","mimetype":""}`)
	c := NewEvolutionClient(srv.URL, "k", "inst")

	media, err := c.FetchMediaBase64(context.Background(), "msg1")
	require.NoError(t, err)
	require.NotNil(t, media)
	assert.Equal(t, "T2dn", media.Base64)
	assert.Equal(t, "audio/ogg", media.Mimetype)
	assert.Equal(t, "/chat/getBase64FromMediaMessage/inst", (*calls)[0].path)

	empty, _ := recordingServer(t, http.StatusOK, `{}`)
	media, err = NewEvolutionClient(empty.URL, "k", "inst").FetchMediaBase64(context.Background(), "msg1")
	assert.NoError(t, err)
	assert.Nil(t, media)
}

// redirectTransport sends every request to target, keeping path and query.
type redirectTransport struct {
	target *url.URL
	next   http.RoundTripper
}

func (r redirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = r.target.Scheme
	out.URL.Host = r.target.Host
	out.Host = r.target.Host
	return r.next.RoundTrip(out)
}

func elevenLabsServer(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	target, err := url.Parse(srv.URL)
	require.NoError(t, err)

	prev := http.DefaultTransport
	http.DefaultTransport = redirectTransport{target: target, next: prev}
	t.Cleanup(func() { http.DefaultTransport = prev })
}

func TestElevenLabsSynthesize(t *testing.T) {
	var gotText, gotModel, gotKey, gotPath string
	elevenLabsServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Text    string `json:"text"`
			ModelID string `json:"model_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotText, gotModel, gotKey, gotPath = body.Text, body.ModelID, r.Header.Get("xi-api-key"), r.URL.Path
		_, _ = w.Write([]byte("mp3"))
	})

	c := NewElevenLabsClient("key", "voz", "eleven_v3")
	audio, err := c.Synthesize(context.Background(), "Oi [riso] tudo bem? [ENVIAR_AUDIO]")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3"), audio)
	assert.Equal(t, "/v1/text-to-speech/voz", gotPath)
	assert.Equal(t, "Oi haha tudo bem?", gotText)
	assert.Equal(t, "eleven_v3", gotModel)
	assert.Equal(t, "key", gotKey)
}

func TestElevenLabsSynthesizeErrors(t *testing.T) {
	elevenLabsServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := NewElevenLabsClient("key", "voz", "m").Synthesize(context.Background(), "oi")
	assert.Error(t, err)

	_, err = NewElevenLabsClient("", "voz", "m").Synthesize(context.Background(), "oi")
	assert.Error(t, err)

	_, err = NewElevenLabsClient("key", "voz", "m").Synthesize(context.Background(), "[ENVIAR_AUDIO]")
	assert.Error(t, err)
}

func TestOpenAIRespond(t *testing.T) {
	srv, calls := recordingServer(t, http.StatusOK, `{"id":"resp_1","object":"response","model":"gpt-4o-mini","output":[
		{"type":"reasoning","id":"rs_1","summary":[]},
		{"type":"message","id":"msg_1","role":"assistant","status":"completed","content":[{"type":"output_text","text":" Oi! Tudo bem? ","annotations":[]}]}
	]}`)
	c := NewOpenAIClient("sk", "gpt-4o-mini", srv.URL)

	out, err := c.Respond(context.Background(), "seja breve", "user: oi")
	require.NoError(t, err)
	assert.Equal(t, "Oi! Tudo bem?", out)

	require.Len(t, *calls, 1)
	assert.Equal(t, "/responses", (*calls)[0].path)
	assert.Equal(t, "seja breve", (*calls)[0].body["instructions"])
	assert.Equal(t, "user: oi", (*calls)[0].body["input"])
	assert.Equal(t, "gpt-4o-mini", (*calls)[0].body["model"])
	assert.Equal(t, "Bearer sk", (*calls)[0].header.Get("Authorization"))
}

func TestOpenAIRespondErrors(t *testing.T) {
	empty, _ := recordingServer(t, http.StatusOK, `{"id":"resp_2","object":"response","output":[{"type":"reasoning","id":"rs_1","summary":[]}]}`)
	_, err := NewOpenAIClient("sk", "gpt-4o-mini", empty.URL).Respond(context.Background(), "i", "x")
	assert.Error(t, err)

	bad, _ := recordingServer(t, http.StatusBadRequest, `{"error":{"message":"bad","type":"invalid_request_error"}}`)
	_, err = NewOpenAIClient("sk", "gpt-4o-mini", bad.URL).Respond(context.Background(), "i", "x")
	assert.Error(t, err)
}

func TestOpenAIChat(t *testing.T) {
	srv, calls := recordingServer(t, http.StatusOK, `{
		"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
		"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":" Oi, Maria! "}}]
	}`)
	c := NewOpenAIClient("sk", "gpt-4o-mini", srv.URL)

	out, err := c.Chat(context.Background(), "sistema", []ChatMessage{
		{Role: "assistant", Content: "Olá"},
		{Role: "user", Content: "oi"},
	}, "tudo bem?", ChatParams{Temperature: 0.95, PresencePenalty: 0.6, FrequencyPenalty: 0.4, MaxTokens: 500})
	require.NoError(t, err)
	assert.Equal(t, "Oi, Maria!", out)

	require.Len(t, *calls, 1)
	assert.Equal(t, "/chat/completions", (*calls)[0].path)
	msgs, _ := (*calls)[0].body["messages"].([]any)
	assert.Len(t, msgs, 4)
	assert.Equal(t, 0.95, (*calls)[0].body["temperature"])
}

func TestOpenAITranscribe(t *testing.T) {
	var gotPath string
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = r.ParseMultipartForm(1 << 20)
		gotModel = r.FormValue("model")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":" quero saber mais "}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk", "gpt-4o-mini", srv.URL)
	audio := base64.StdEncoding.EncodeToString([]byte("OggS"))

	out, err := c.Transcribe(context.Background(), audio, "audio/ogg; codecs=opus")
	require.NoError(t, err)
	assert.Equal(t, "quero saber mais", out)
	assert.Equal(t, "/audio/transcriptions", gotPath)
	assert.Equal(t, "whisper-1", gotModel)

	_, err = c.Transcribe(context.Background(), "%%%", "audio/ogg")
	assert.Error(t, err)
}

func TestSheetsAppendLead(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, err := NewSheetsClient(context.Background(), "", "doc1",
		option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication())
	require.NoError(t, err)
	c.now = func() time.Time { return time.Date(2026, 3, 10, 9, 5, 0, 0, time.UTC) }

	require.NoError(t, c.AppendLead(context.Background(), SheetRow{Nome: "Ana", Whatsapp: "5511999998888", Segmento: "Varejo", Origem: "formulario"}))
	assert.True(t, strings.HasSuffix(gotPath, "/spreadsheets/doc1/values/A1:append"), gotPath)
	assert.Contains(t, gotBody, `"10/03/2026 09:05:00"`)
	assert.Contains(t, gotBody, `"novo"`)

	_, err = NewSheetsClient(context.Background(), "", "")
	assert.Error(t, err)
}
