package workers

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdragent/logger"
	"sdragent/models"
	"sdragent/tools"
)

type fakeSubmitter struct {
	mu   sync.Mutex
	msgs []models.InboundMessage
	err  error
}

func (f *fakeSubmitter) Submit(_ context.Context, msg models.InboundMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

type fakeTranscriber struct {
	text  string
	err   error
	calls []string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, b64, mimetype string) (string, error) {
	f.calls = append(f.calls, b64+"|"+mimetype)
	return f.text, f.err
}

func TestProcessorSubmitsText(t *testing.T) {
	st := newTestStore(t)
	next := &fakeSubmitter{}
	p := NewMessageProcessor(st, factoryFor(&fakeGateway{}), nil, next, logger.Nop())

	ok, err := p.Process(context.Background(), textWebhook(t, sender, "  oi, tudo bem?  ", false))
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, next.msgs, 1)
	assert.Equal(t, sender, next.msgs[0].Sender)
	assert.Equal(t, "oi, tudo bem?", next.msgs[0].Text)
	assert.Equal(t, "sdr", next.msgs[0].Instance)
}

func TestProcessorFilters(t *testing.T) {
	ctx := context.Background()

	t.Run("own message", func(t *testing.T) {
		next := &fakeSubmitter{}
		p := NewMessageProcessor(newTestStore(t), factoryFor(&fakeGateway{}), nil, next, logger.Nop())
		ok, err := p.Process(ctx, textWebhook(t, sender, "oi", true))
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, next.msgs)
	})

	t.Run("missing sender", func(t *testing.T) {
		next := &fakeSubmitter{}
		p := NewMessageProcessor(newTestStore(t), factoryFor(&fakeGateway{}), nil, next, logger.Nop())
		ok, err := p.Process(ctx, models.WhatsAppWebhook{Event: "messages.upsert"})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ai echo", func(t *testing.T) {
		st := newTestStore(t)
		require.NoError(t, st.AddAIMessage(ctx, sender, "Oi Ana, tudo bem?"))
		next := &fakeSubmitter{}
		p := NewMessageProcessor(st, factoryFor(&fakeGateway{}), nil, next, logger.Nop())

		ok, err := p.Process(ctx, textWebhook(t, sender, "Oi Ana, tudo bem?", false))
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, next.msgs)
	})

	t.Run("blocked chat", func(t *testing.T) {
		st := newTestStore(t)
		require.NoError(t, st.Block(ctx, sender))
		next := &fakeSubmitter{}
		p := NewMessageProcessor(st, factoryFor(&fakeGateway{}), nil, next, logger.Nop())

		ok, err := p.Process(ctx, textWebhook(t, sender, "oi", false))
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, next.msgs)

		buf, err := st.BufferMessages(ctx, sender)
		require.NoError(t, err)
		assert.Empty(t, buf)
	})

	t.Run("unsupported media", func(t *testing.T) {
		next := &fakeSubmitter{}
		p := NewMessageProcessor(newTestStore(t), factoryFor(&fakeGateway{}), nil, next, logger.Nop())
		ok, err := p.Process(ctx, mediaWebhook(sender, models.MESSAGE_TYPE_IMAGE))
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestProcessorTranscribesAudio(t *testing.T) {
	gw := &fakeGateway{media: &tools.Media{Base64: "T2dnUw==", Mimetype: "audio/ogg"}}
	tr := &fakeTranscriber{text: "quero saber o preço"}
	next := &fakeSubmitter{}
	p := NewMessageProcessor(newTestStore(t), factoryFor(gw), tr, next, logger.Nop())

	ok, err := p.Process(context.Background(), mediaWebhook(sender, models.MESSAGE_TYPE_AUDIO))
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []string{"MSG2"}, gw.fetched)
	assert.Equal(t, []string{"T2dnUw==|audio/ogg"}, tr.calls)
	require.Len(t, next.msgs, 1)
	assert.Equal(t, "quero saber o preço", next.msgs[0].Text)
	assert.Equal(t, models.MESSAGE_TYPE_AUDIO, next.msgs[0].MessageType)
}

func TestProcessorAudioFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("download fails", func(t *testing.T) {
		gw := &fakeGateway{mediaErr: errBoom}
		next := &fakeSubmitter{}
		p := NewMessageProcessor(newTestStore(t), factoryFor(gw), &fakeTranscriber{text: "x"}, next, logger.Nop())
		ok, err := p.Process(ctx, mediaWebhook(sender, models.MESSAGE_TYPE_AUDIO))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("transcription fails", func(t *testing.T) {
		gw := &fakeGateway{media: &tools.Media{Base64: "AA==", Mimetype: "audio/ogg"}}
		next := &fakeSubmitter{}
		p := NewMessageProcessor(newTestStore(t), factoryFor(gw), &fakeTranscriber{err: errBoom}, next, logger.Nop())
		ok, err := p.Process(ctx, mediaWebhook(sender, models.MESSAGE_TYPE_AUDIO))
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, next.msgs)
	})
}

func TestProcessorPropagatesSubmitError(t *testing.T) {
	next := &fakeSubmitter{err: ErrConsolidatorStopped}
	p := NewMessageProcessor(newTestStore(t), factoryFor(&fakeGateway{}), nil, next, logger.Nop())

	ok, err := p.Process(context.Background(), textWebhook(t, sender, "oi", false))
	assert.ErrorIs(t, err, ErrConsolidatorStopped)
	assert.False(t, ok)
}
