package workers

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"sdragent/logger"
	"sdragent/models"
	"sdragent/store"
	"sdragent/tools"
)

const sender = "5511999998888@s.whatsapp.net"

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return store.New(rdb, logger.Nop(), 20*time.Second, 2*time.Hour)
}

func history(t *testing.T, st *store.Store, who string) []models.HistoryEntry {
	t.Helper()
	h, err := st.History(context.Background(), who, 50)
	require.NoError(t, err)
	return h
}

type sentAudio struct {
	to       string
	b64      string
	duration time.Duration
}

type fakeGateway struct {
	mu       sync.Mutex
	texts    []string
	audios   []sentAudio
	textErr  error
	audioErr error
	media    *tools.Media
	mediaErr error
	fetched  []string
}

func (g *fakeGateway) SendText(_ context.Context, _ string, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.textErr != nil {
		return g.textErr
	}
	g.texts = append(g.texts, text)
	return nil
}

func (g *fakeGateway) SendAudioWithPresence(_ context.Context, to, b64 string, d time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.audioErr != nil {
		return g.audioErr
	}
	g.audios = append(g.audios, sentAudio{to: to, b64: b64, duration: d})
	return nil
}

func (g *fakeGateway) FetchMediaBase64(_ context.Context, id string) (*tools.Media, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetched = append(g.fetched, id)
	return g.media, g.mediaErr
}

func (g *fakeGateway) sentTexts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.texts...)
}

func (g *fakeGateway) sentAudios() []sentAudio {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]sentAudio(nil), g.audios...)
}

func factoryFor(gw Gateway) GatewayFactory {
	return func(string, string, string) Gateway { return gw }
}

type fakeTTS struct {
	mu    sync.Mutex
	audio []byte
	err   error
	texts []string
}

func (f *fakeTTS) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return f.audio, f.err
}

type fakeCompleter struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
	// hook runs during generation, before the reply is returned
	hook func()
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, _ int64) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	hook := f.hook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return f.reply, f.err
}

func (f *fakeCompleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

var errBoom = errors.New("boom")

func textWebhook(t *testing.T, from, text string, fromMe bool) models.WhatsAppWebhook {
	t.Helper()
	raw, err := json.Marshal(text)
	require.NoError(t, err)
	return models.WhatsAppWebhook{
		Event:    "messages.upsert",
		Instance: "sdr",
		Data: models.MessageData{
			Key:     &models.MessageKey{ID: "MSG1", RemoteJID: from, FromMe: fromMe},
			Message: map[string]json.RawMessage{models.MESSAGE_TYPE_CONVERSATION: raw},
		},
	}
}

func mediaWebhook(from, kind string) models.WhatsAppWebhook {
	return models.WhatsAppWebhook{
		Event:    "messages.upsert",
		Instance: "sdr",
		Data: models.MessageData{
			Key:     &models.MessageKey{ID: "MSG2", RemoteJID: from},
			Message: map[string]json.RawMessage{kind: json.RawMessage(`{}`)},
		},
	}
}
