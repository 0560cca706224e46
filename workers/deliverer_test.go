package workers

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdragent/logger"
	"sdragent/models"
)

func TestDelivererSplitsText(t *testing.T) {
	st := newTestStore(t)
	gw := &fakeGateway{}
	tts := &fakeTTS{audio: []byte("mp3")}
	d := NewDeliverer(st, tts, 0, 0, logger.Nop())
	ctx := context.Background()

	require.NoError(t, d.Reply(ctx, gw, sender, "Oi Ana! [animado]\n\nComo está o seu negócio hoje?", false))

	assert.Equal(t, []string{"Oi Ana!", "Como está o seu negócio hoje?"}, gw.sentTexts())
	assert.Empty(t, tts.texts)

	h := history(t, st, sender)
	require.Len(t, h, 1)
	assert.Equal(t, models.ROLE_ASSISTANT, h[0].Role)
	assert.Equal(t, "Oi Ana!\n\nComo está o seu negócio hoje?", h[0].Content)

	for _, part := range gw.sentTexts() {
		echo, err := st.IsAIMessage(ctx, sender, part)
		require.NoError(t, err)
		assert.True(t, echo, part)
	}
}

func TestDelivererAudioTag(t *testing.T) {
	st := newTestStore(t)
	gw := &fakeGateway{}
	tts := &fakeTTS{audio: []byte("mp3-bytes")}
	d := NewDeliverer(st, tts, 0, 0, logger.Nop())
	ctx := context.Background()

	require.NoError(t, d.Reply(ctx, gw, sender, "Que bom saber disso [ENVIAR_AUDIO]", false))

	assert.Empty(t, gw.sentTexts())
	audios := gw.sentAudios()
	require.Len(t, audios, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("mp3-bytes")), audios[0].b64)
	assert.Equal(t, 190*time.Millisecond, audios[0].duration)
	assert.Equal(t, []string{"Que bom saber disso"}, tts.texts)

	echo, err := st.IsAIMessage(ctx, sender, "Que bom saber disso")
	require.NoError(t, err)
	assert.True(t, echo)
	assert.Equal(t, "Que bom saber disso", history(t, st, sender)[0].Content)
}

func TestDelivererFallsBackToText(t *testing.T) {
	cases := map[string]struct {
		tts Synthesizer
		gw  *fakeGateway
	}{
		"synthesis error":  {tts: &fakeTTS{err: errBoom}, gw: &fakeGateway{}},
		"empty audio":      {tts: &fakeTTS{}, gw: &fakeGateway{}},
		"no synthesizer":   {tts: nil, gw: &fakeGateway{}},
		"audio send error": {tts: &fakeTTS{audio: []byte("x")}, gw: &fakeGateway{audioErr: errBoom}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			d := NewDeliverer(newTestStore(t), tc.tts, 0, 0, logger.Nop())
			audio, err := d.Send(context.Background(), tc.gw, sender, "Faz sentido pra você?", true)
			require.NoError(t, err)
			assert.False(t, audio)
			assert.Equal(t, []string{"Faz sentido pra você?"}, tc.gw.sentTexts())
		})
	}
}

func TestDelivererEmptyAfterCleaning(t *testing.T) {
	st := newTestStore(t)
	gw := &fakeGateway{}
	d := NewDeliverer(st, nil, 0, 0, logger.Nop())

	require.NoError(t, d.Reply(context.Background(), gw, sender, "[ENVIAR_AUDIO] [pausa]", false))
	assert.Empty(t, gw.sentTexts())
	assert.Empty(t, history(t, st, sender))
}

func TestDelivererTextError(t *testing.T) {
	gw := &fakeGateway{textErr: errBoom}
	d := NewDeliverer(newTestStore(t), nil, 0, 0, logger.Nop())
	_, err := d.Send(context.Background(), gw, sender, "Oi", false)
	assert.ErrorIs(t, err, errBoom)
}

func TestDelivererDelayRange(t *testing.T) {
	d := NewDeliverer(nil, nil, 10*time.Millisecond, 20*time.Millisecond, logger.Nop())
	for i := 0; i < 50; i++ {
		got := d.delay()
		assert.GreaterOrEqual(t, got, 10*time.Millisecond)
		assert.Less(t, got, 20*time.Millisecond)
	}

	inverted := NewDeliverer(nil, nil, 30*time.Millisecond, 10*time.Millisecond, logger.Nop())
	assert.Equal(t, 30*time.Millisecond, inverted.delay())
}

func TestRecordingTimeCapped(t *testing.T) {
	assert.Equal(t, 50*time.Millisecond, recordingTime("olá!!"))
	assert.Equal(t, maxRecordingPresence, recordingTime(strings.Repeat("a", 1000)))
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleep(ctx, time.Hour), context.Canceled)
}
