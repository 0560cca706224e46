package workers

import (
	"context"
	"encoding/base64"
	"errors"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"sdragent/logger"
	"sdragent/models"
	"sdragent/tools"
)

const maxRecordingPresence = 3 * time.Second

var errEmptyAudio = errors.New("tts returned no audio")

// Deliverer sends bot replies as split text messages or as a voice note.
type Deliverer struct {
	log      *logger.Logger
	store    deliveryStore
	tts      Synthesizer
	delayMin time.Duration
	delayMax time.Duration
}

func NewDeliverer(store deliveryStore, tts Synthesizer, delayMin, delayMax time.Duration, log *logger.Logger) *Deliverer {
	if delayMax < delayMin {
		delayMax = delayMin
	}
	return &Deliverer{
		log:      log.With("service", "Deliverer"),
		store:    store,
		tts:      tts,
		delayMin: delayMin,
		delayMax: delayMax,
	}
}

// Reply delivers a dialogue reply: tags are cleaned, the media policy picks
// text or audio and the clean text goes to the history before sending.
func (d *Deliverer) Reply(ctx context.Context, gw Gateway, to, reply string, firstContact bool) error {
	hasAudioTag := strings.Contains(reply, tools.AUDIO_TAG)
	clean := tools.CleanTextTags(reply)
	if clean == "" {
		d.log.Warn("resposta vazia após limpeza de tags", "sender", to)
		return nil
	}

	useAudio, reason := tools.ShouldUseAudio(clean, firstContact, false, hasAudioTag)

	if err := d.store.AppendHistory(ctx, to, models.ROLE_ASSISTANT, clean); err != nil {
		d.log.Warn("erro ao salvar resposta no histórico", "sender", to, "err", err)
	}

	kind := "TEXTO"
	if useAudio {
		kind = "ÁUDIO"
	}
	d.log.Info("enviando resposta", "sender", to, "tipo", kind, "motivo", reason)

	_, err := d.Send(ctx, gw, to, clean, useAudio)
	return err
}

// Send delivers text, as a voice note when audio is set. A failed synthesis
// or audio send falls back to text. Reports whether audio went out.
func (d *Deliverer) Send(ctx context.Context, gw Gateway, to, text string, audio bool) (bool, error) {
	if audio {
		err := d.sendAudio(ctx, gw, to, text)
		if err == nil {
			return true, nil
		}
		d.log.Warn("áudio falhou, enviando como texto", "sender", to, "err", err)
	}
	return false, d.sendText(ctx, gw, to, text)
}

func (d *Deliverer) sendAudio(ctx context.Context, gw Gateway, to, text string) error {
	if d.tts == nil {
		return errEmptyAudio
	}
	audio, err := d.tts.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	if len(audio) == 0 {
		return errEmptyAudio
	}

	if err := gw.SendAudioWithPresence(ctx, to, base64.StdEncoding.EncodeToString(audio), recordingTime(text)); err != nil {
		return err
	}
	if err := d.store.AddAIMessage(ctx, to, text); err != nil {
		d.log.Warn("erro ao registrar mensagem da IA", "sender", to, "err", err)
	}
	return nil
}

func (d *Deliverer) sendText(ctx context.Context, gw Gateway, to, text string) error {
	parts := tools.SplitMessage(text)

	// registra antes de enviar: o eco do gateway pode chegar antes do retorno
	for _, p := range parts {
		if err := d.store.AddAIMessage(ctx, to, p); err != nil {
			d.log.Warn("erro ao registrar mensagem da IA", "sender", to, "err", err)
		}
	}

	for i, p := range parts {
		if i > 0 {
			if err := sleep(ctx, d.delay()); err != nil {
				return err
			}
		}
		if err := gw.SendText(ctx, to, p); err != nil {
			return err
		}
	}
	return nil
}

func (d *Deliverer) delay() time.Duration {
	if d.delayMax <= d.delayMin {
		return d.delayMin
	}
	return d.delayMin + time.Duration(rand.Int63n(int64(d.delayMax-d.delayMin)))
}

// recordingTime is how long "recording" shows before a voice note: 10ms per
// character, at most maxRecordingPresence.
func recordingTime(text string) time.Duration {
	d := time.Duration(utf8.RuneCountInString(text)) * 10 * time.Millisecond
	if d > maxRecordingPresence {
		return maxRecordingPresence
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
