package workers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"sdragent/logger"
	"sdragent/models"
)

// TurnTimeout bounds one consolidated turn: handler, history and delivery.
const TurnTimeout = 3 * time.Minute

var ErrConsolidatorStopped = errors.New("consolidator stopped")

// TurnHandler answers a consolidated message. An empty reply sends nothing.
type TurnHandler func(ctx context.Context, msg models.InboundMessage) (string, error)

// Responder delivers the handler reply for msg.
type Responder func(ctx context.Context, msg models.InboundMessage, reply string)

type pendingTurn struct {
	seq    uint64
	cancel context.CancelFunc
}

// Consolidator debounces rapid-fire fragments per sender into one turn.
// Each Submit restarts the sender's quiet window; only the last timer fires.
type Consolidator struct {
	log     *logger.Logger
	store   bufferStore
	window  time.Duration
	handle  TurnHandler
	respond Responder

	mu      sync.Mutex
	seq     uint64
	pending map[string]*pendingTurn
	stopped bool
	// locks serializes whole turns; arming covers append+arm and read+clear
	locks  *keyedMutex
	arming *keyedMutex
	wg     sync.WaitGroup
}

func NewConsolidator(store bufferStore, window time.Duration, handle TurnHandler, respond Responder, log *logger.Logger) *Consolidator {
	return &Consolidator{
		log:     log.With("service", "Consolidator"),
		store:   store,
		window:  window,
		handle:  handle,
		respond: respond,
		pending: map[string]*pendingTurn{},
		locks:   newKeyedMutex(),
		arming:  newKeyedMutex(),
	}
}

// Submit buffers the fragment and (re)arms the sender's quiet-window timer.
func (c *Consolidator) Submit(ctx context.Context, msg models.InboundMessage) error {
	c.mu.Lock()
	stopped := c.stopped
	c.mu.Unlock()
	if stopped {
		return ErrConsolidatorStopped
	}

	// o último fragmento do buffer precisa ser o do último timer armado
	release := c.arming.Lock(msg.Sender)
	defer release()

	if err := c.store.AppendBuffer(ctx, msg.Sender, msg.Text); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return ErrConsolidatorStopped
	}
	if prev, ok := c.pending[msg.Sender]; ok {
		prev.cancel()
	}
	c.seq++
	waitCtx, cancel := context.WithCancel(context.Background())
	turn := &pendingTurn{seq: c.seq, cancel: cancel}
	c.pending[msg.Sender] = turn

	c.wg.Add(1)
	go c.wait(waitCtx, turn, msg)
	return nil
}

// Pending reports how many senders have an armed timer.
func (c *Consolidator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Stop cancels every armed timer and waits for turns already running.
// Fragments still buffered expire with the buffer TTL.
func (c *Consolidator) Stop() {
	c.mu.Lock()
	c.stopped = true
	for sender, p := range c.pending {
		p.cancel()
		delete(c.pending, sender)
	}
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Consolidator) wait(ctx context.Context, turn *pendingTurn, msg models.InboundMessage) {
	defer c.wg.Done()

	timer := time.NewTimer(c.window)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	// a partir daqui o turno não pode mais ser cancelado por novos fragmentos
	c.mu.Lock()
	current, ok := c.pending[msg.Sender]
	if !ok || current.seq != turn.seq {
		c.mu.Unlock()
		return
	}
	delete(c.pending, msg.Sender)
	c.mu.Unlock()
	turn.cancel()

	c.fire(msg)
}

func (c *Consolidator) fire(msg models.InboundMessage) {
	log := c.log.With("sender", msg.Sender)
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic no processamento do turno", "panic", r)
		}
	}()

	unlock := c.locks.Lock(msg.Sender)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), TurnTimeout)
	defer cancel()

	messages, ok := c.drain(ctx, msg)
	if !ok {
		return
	}
	full := strings.Join(messages, " ")

	consolidated := msg
	consolidated.Text = full
	log.Info("mensagens consolidadas", "fragmentos", len(messages))

	reply, err := c.handle(ctx, consolidated)
	if err != nil {
		log.Error("erro no handler do turno", "err", err)
		return
	}

	if err := c.store.AppendHistory(ctx, msg.Sender, models.ROLE_USER, full); err != nil {
		log.Warn("erro ao salvar histórico", "err", err)
	}

	if reply != "" && c.respond != nil {
		c.respond(ctx, consolidated, reply)
	}
}

// drain reads and clears the sender's buffer when msg is still its last
// fragment. Submits for the same sender wait until the buffer is cleared.
func (c *Consolidator) drain(ctx context.Context, msg models.InboundMessage) ([]string, bool) {
	release := c.arming.Lock(msg.Sender)
	defer release()

	log := c.log.With("sender", msg.Sender)
	messages, err := c.store.BufferMessages(ctx, msg.Sender)
	if err != nil {
		log.Error("erro ao ler buffer", "err", err)
		return nil, false
	}
	if len(messages) == 0 || messages[len(messages)-1] != msg.Text {
		log.Debug("buffer mudou desde o agendamento, turno descartado")
		return nil, false
	}
	if err := c.store.ClearBuffer(ctx, msg.Sender); err != nil {
		log.Error("erro ao limpar buffer", "err", err)
		return nil, false
	}
	return messages, true
}

// keyedMutex serializes work per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*refMutex{}}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
