package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"sdragent/logger"
	"sdragent/models"
	"sdragent/prompts"
)

// Janelas de envio: uma hora a partir de cada horário (hora local).
var sendWindows = []struct {
	hour   int
	period string
}{
	{9, models.PERIOD_MORNING},
	{14, models.PERIOD_AFTERNOON},
	{19, models.PERIOD_NIGHT},
}

const DefaultPollInterval = 5 * time.Minute

const followUpMaxTokens = 150

const followUpSendTimeout = 2 * time.Minute

var (
	ErrNoFollowUp        = errors.New("lead não tem follow-up agendado")
	ErrFollowUpCancelled = errors.New("follow-up já foi cancelado")
	ErrFollowUpExhausted = errors.New("máximo de tentativas atingido")
)

// PeriodAt returns the send period t falls in, if any.
func PeriodAt(t time.Time) (string, bool) {
	h := t.Hour()
	for _, w := range sendWindows {
		if h >= w.hour && h < w.hour+1 {
			return w.period, true
		}
	}
	return "", false
}

// PeriodBucket maps any time of day to a period (manual triggers).
func PeriodBucket(t time.Time) string {
	switch h := t.Hour(); {
	case h < 12:
		return models.PERIOD_MORNING
	case h < 18:
		return models.PERIOD_AFTERNOON
	}
	return models.PERIOD_NIGHT
}

// FollowUpScheduler sends up to nine nudges over three days to leads that
// did not answer the welcome message. State lives in the store so restarts
// keep the cadence.
type FollowUpScheduler struct {
	log       *logger.Logger
	store     followUpStore
	gateway   Gateway
	deliverer *Deliverer
	model     Completer
	persona   prompts.Persona
	loc       *time.Location
	interval  time.Duration
	now       func() time.Time
	locks     *keyedMutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
}

func NewFollowUpScheduler(store followUpStore, gateway Gateway, deliverer *Deliverer, model Completer, persona prompts.Persona, loc *time.Location, interval time.Duration, log *logger.Logger) *FollowUpScheduler {
	if loc == nil {
		loc = time.Local
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &FollowUpScheduler{
		log:       log.With("service", "FollowUpScheduler"),
		store:     store,
		gateway:   gateway,
		deliverer: deliverer,
		model:     model,
		persona:   persona,
		loc:       loc,
		interval:  interval,
		now:       time.Now,
		locks:     newKeyedMutex(),
	}
}

// Start runs a pass right away and then one per interval until Stop.
func (s *FollowUpScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			s.Tick(ctx)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	s.log.Info("scheduler de follow-ups iniciado", "intervalo", s.interval.String())
}

// Stop ends the loop and waits for in-flight sends, manual triggers included.
func (s *FollowUpScheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	s.wg.Wait()
	s.log.Info("scheduler de follow-ups parado")
}

// Schedule starts the cadence for a lead that just got its welcome message.
func (s *FollowUpScheduler) Schedule(ctx context.Context, sender, nome, segmento string) error {
	f := models.FollowUpState{
		Nome:      nome,
		Segmento:  segmento,
		StartedAt: s.now().In(s.loc),
	}
	if err := s.store.SaveFollowUp(ctx, sender, f); err != nil {
		return err
	}
	s.log.Info("follow-up agendado", "sender", sender, "nome", nome, "segmento", segmento)
	return nil
}

// Cancel flags the record inert. Missing records are a no-op.
func (s *FollowUpScheduler) Cancel(ctx context.Context, sender string) (bool, error) {
	f, err := s.store.FollowUp(ctx, sender)
	if err != nil || f == nil {
		return false, err
	}
	if f.Cancelled {
		return true, nil
	}
	f.Cancelled = true
	if err := s.store.SaveFollowUp(ctx, sender, *f); err != nil {
		return false, err
	}
	s.log.Info("follow-up cancelado", "sender", sender)
	return true, nil
}

func (s *FollowUpScheduler) Status(ctx context.Context, sender string) (*models.FollowUpState, error) {
	return s.store.FollowUp(ctx, sender)
}

// Trigger sends the next nudge now, outside the send windows, in the
// background. The returned state is the one validated before sending.
func (s *FollowUpScheduler) Trigger(ctx context.Context, sender string) (*models.FollowUpState, error) {
	f, err := s.store.FollowUp(ctx, sender)
	if err != nil {
		return nil, err
	}
	switch {
	case f == nil:
		return nil, ErrNoFollowUp
	case f.Cancelled:
		return f, ErrFollowUpCancelled
	case f.Exhausted():
		return f, ErrFollowUpExhausted
	}

	period := PeriodBucket(s.now().In(s.loc))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.Background(), followUpSendTimeout)
		defer cancel()

		unlock := s.locks.Lock(sender)
		defer unlock()
		s.send(sendCtx, sender, period, f.Attempts)
	}()
	return f, nil
}

// Tick is one scheduler pass: outside the send windows it does nothing.
func (s *FollowUpScheduler) Tick(ctx context.Context) {
	now := s.now().In(s.loc)
	period, ok := PeriodAt(now)
	if !ok {
		return
	}

	senders, err := s.store.FollowUpSenders(ctx)
	if err != nil {
		s.log.Error("erro ao listar follow-ups", "err", err)
		return
	}

	for _, sender := range senders {
		if ctx.Err() != nil {
			return
		}
		s.check(ctx, sender, period, now)
	}
}

func (s *FollowUpScheduler) check(ctx context.Context, sender, period string, now time.Time) {
	log := s.log.With("sender", sender)
	unlock := s.locks.Lock(sender)
	defer unlock()

	f, err := s.store.FollowUp(ctx, sender)
	if err != nil {
		log.Error("erro ao ler follow-up", "err", err)
		return
	}
	if f == nil || f.Cancelled {
		return
	}

	if f.Exhausted() {
		log.Info("follow-up finalizado: máximo de tentativas atingido")
		f.Cancelled = true
		if err := s.store.SaveFollowUp(ctx, sender, *f); err != nil {
			log.Error("erro ao finalizar follow-up", "err", err)
		}
		return
	}

	if f.SentIn(period, now) {
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, followUpSendTimeout)
	defer cancel()
	s.send(sendCtx, sender, period, f.Attempts)
}

// send generates and delivers attempt expected+1. The record is re-read
// before and after generation; a cancel seen at either point aborts the
// send, as does an attempt count that moved since the caller decided.
// Callers hold the sender's lock.
func (s *FollowUpScheduler) send(ctx context.Context, sender, period string, expected int) bool {
	log := s.log.With("sender", sender, "periodo", period)

	current, err := s.store.FollowUp(ctx, sender)
	if err != nil {
		log.Error("erro ao ler follow-up", "err", err)
		return false
	}
	if !current.Active() {
		log.Info("follow-up inativo (verificação antes de gerar)")
		return false
	}
	if current.Attempts != expected {
		log.Info("tentativa já enviada por outra execução", "tentativas", current.Attempts)
		return false
	}

	attempt := current.Attempts + 1
	day := models.FollowUpDay(attempt)
	lead := prompts.Lead{Nome: current.Nome, Segmento: current.Segmento}

	message, err := s.model.Complete(ctx, prompts.FollowUp(s.persona, lead, attempt, day, period), followUpMaxTokens)
	if err != nil || message == "" {
		log.Error("falha ao gerar mensagem de follow-up", "tentativa", attempt, "err", err)
		return false
	}

	final, err := s.store.FollowUp(ctx, sender)
	if err != nil {
		log.Error("erro ao ler follow-up", "err", err)
		return false
	}
	if final == nil || final.Cancelled {
		log.Info("follow-up cancelado (verificação antes do envio)")
		return false
	}

	useAudio := period == models.PERIOD_AFTERNOON && attempt%2 == 0
	if _, err := s.deliverer.Send(ctx, s.gateway, sender, message, useAudio); err != nil {
		log.Error("erro ao enviar follow-up", "tentativa", attempt, "err", err)
		return false
	}

	sentAt := s.now().In(s.loc)
	updated := *final
	updated.Attempts = attempt
	updated.LastSent = &sentAt
	updated.LastPeriod = period
	updated.LastMessage = message

	// um cancelamento durante o envio não pode ser sobrescrito
	if latest, err := s.store.FollowUp(ctx, sender); err == nil && latest != nil && latest.Cancelled {
		updated.Cancelled = true
	}
	if err := s.store.SaveFollowUp(ctx, sender, updated); err != nil {
		log.Error("erro ao salvar follow-up", "err", err)
	}
	if err := s.store.AppendHistory(ctx, sender, models.ROLE_ASSISTANT, message); err != nil {
		log.Warn("erro ao salvar follow-up no histórico", "err", err)
	}

	log.Info("follow-up enviado", "tentativa", attempt, "dia", day, "audio", useAudio)
	return true
}
