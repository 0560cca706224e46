package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	goredis "github.com/redis/go-redis/v9"

	"sdragent/logger"
	"sdragent/models"
	"sdragent/tools"
)

const (
	HistoryLimit    = 40
	AIMessagesLimit = 50

	TTLHistory    = 7 * 24 * time.Hour
	TTLState      = 30 * 24 * time.Hour
	TTLAIMessages = 24 * time.Hour
	TTLFollowUp   = 4 * 24 * time.Hour
)

/************************************************
/**** MARK: KEYS ****/
/************************************************/
const (
	suffixDebounce   = "_debounce"
	suffixBlock      = "_block"
	suffixAIMessages = "_ai_messages"
	suffixHistory    = "_history"
	suffixState      = "_state"
	suffixFollowUp   = "_followup"
)

// Store keeps every per-sender record in Redis.
type Store struct {
	log            *logger.Logger
	rdb            *goredis.Client
	debounceWindow time.Duration
	blockTTL       time.Duration
}

// Connect opens a client from a redis:// URL and pings it.
func Connect(ctx context.Context, url string, log *logger.Logger, debounceWindow, blockTTL time.Duration) (*Store, error) {
	opts, err := goredis.ParseURL(strings.TrimSpace(url))
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(rdb, log, debounceWindow, blockTTL), nil
}

func New(rdb *goredis.Client, log *logger.Logger, debounceWindow, blockTTL time.Duration) *Store {
	return &Store{
		log:            log.With("service", "StateStore"),
		rdb:            rdb,
		debounceWindow: debounceWindow,
		blockTTL:       blockTTL,
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

/************************************************
/**** MARK: DEBOUNCE BUFFER ****/
/************************************************/

// AppendBuffer adds a fragment to the sender's debounce buffer.
func (s *Store) AppendBuffer(ctx context.Context, sender, text string) error {
	key := sender + suffixDebounce
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.RPush(ctx, key, text)
		if s.debounceWindow > 0 {
			p.Expire(ctx, key, 2*s.debounceWindow)
		}
		return nil
	})
	return err
}

func (s *Store) BufferMessages(ctx context.Context, sender string) ([]string, error) {
	return s.rdb.LRange(ctx, sender+suffixDebounce, 0, -1).Result()
}

func (s *Store) ClearBuffer(ctx context.Context, sender string) error {
	return s.rdb.Del(ctx, sender+suffixDebounce).Err()
}

/************************************************
/**** MARK: BLOCK FLAG ****/
/************************************************/

// Block suspends automatic replies for the sender (human takeover).
func (s *Store) Block(ctx context.Context, sender string) error {
	return s.rdb.Set(ctx, sender+suffixBlock, "true", s.blockTTL).Err()
}

func (s *Store) Unblock(ctx context.Context, sender string) error {
	return s.rdb.Del(ctx, sender+suffixBlock).Err()
}

func (s *Store) IsBlocked(ctx context.Context, sender string) (bool, error) {
	v, err := s.rdb.Get(ctx, sender+suffixBlock).Result()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == "true", nil
}

/************************************************
/**** MARK: AI ECHO REGISTRY ****/
/************************************************/

// AddAIMessage records a message the bot itself sent.
func (s *Store) AddAIMessage(ctx context.Context, sender, text string) error {
	key := sender + suffixAIMessages
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.RPush(ctx, key, text)
		p.LTrim(ctx, key, -AIMessagesLimit, -1)
		p.Expire(ctx, key, TTLAIMessages)
		return nil
	})
	return err
}

// EchoMinSubstringLen is the shortest text (in runes) matched as a
// substring of a sent message. Shorter texts must equal a sent message, so
// a reply like "sim" is not taken for an echo of "assim".
const EchoMinSubstringLen = 12

// IsAIMessage reports whether text (newlines flattened, trimmed) is one of
// the messages the bot recently sent to sender, or part of one.
func (s *Store) IsAIMessage(ctx context.Context, sender, text string) (bool, error) {
	clean := flatten(text)
	if clean == "" {
		return false, nil
	}
	sent, err := s.rdb.LRange(ctx, sender+suffixAIMessages, 0, -1).Result()
	if err != nil {
		return false, err
	}
	partial := utf8.RuneCountInString(clean) >= EchoMinSubstringLen
	for _, m := range sent {
		if partial && strings.Contains(m, clean) {
			return true, nil
		}
		if flatten(m) == clean {
			return true, nil
		}
	}
	return false, nil
}

func flatten(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
}

/************************************************
/**** MARK: HISTORY ****/
/************************************************/

func (s *Store) AppendHistory(ctx context.Context, sender, role, content string) error {
	raw, err := json.Marshal(models.HistoryEntry{Role: role, Content: content})
	if err != nil {
		return err
	}
	key := sender + suffixHistory
	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.RPush(ctx, key, raw)
		p.LTrim(ctx, key, -HistoryLimit, -1)
		p.Expire(ctx, key, TTLHistory)
		return nil
	})
	return err
}

// History returns the last limit entries, oldest first. limit <= 0 returns all.
func (s *Store) History(ctx context.Context, sender string, limit int) ([]models.HistoryEntry, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	rows, err := s.rdb.LRange(ctx, sender+suffixHistory, start, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]models.HistoryEntry, 0, len(rows))
	for _, r := range rows {
		var e models.HistoryEntry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			s.log.Warn("history entry inválida", "sender", sender, "error", err)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) HistoryLen(ctx context.Context, sender string) (int64, error) {
	return s.rdb.LLen(ctx, sender+suffixHistory).Result()
}

/************************************************
/**** MARK: LEAD STATE ****/
/************************************************/

// State returns the record stored under exactly this sender, nil if absent.
func (s *Store) State(ctx context.Context, sender string) (*models.LeadState, error) {
	var st models.LeadState
	ok, err := s.getJSON(ctx, sender+suffixState, &st)
	if err != nil || !ok {
		return nil, err
	}
	return &st, nil
}

func (s *Store) SaveState(ctx context.Context, sender string, st models.LeadState) error {
	return s.setJSON(ctx, sender+suffixState, st, TTLState)
}

// LeadState looks the state up under sender and, when that record is missing
// or incomplete, under the alternate Brazilian mobile encoding. A complete
// alternate record wins; otherwise the primary one (possibly nil) is returned.
func (s *Store) LeadState(ctx context.Context, sender string) (*models.LeadState, error) {
	primary, err := s.State(ctx, sender)
	if err != nil {
		return nil, err
	}
	if primary.Complete() {
		return primary, nil
	}

	alt, ok := tools.AlternateJID(sender)
	if !ok {
		return primary, nil
	}
	other, err := s.State(ctx, alt)
	if err != nil {
		return nil, err
	}
	if other.Complete() {
		s.log.Info("estado encontrado com formato alternativo", "sender", sender, "alternate", alt)
		return other, nil
	}
	return primary, nil
}

/************************************************
/**** MARK: FOLLOW-UP ****/
/************************************************/

func (s *Store) FollowUp(ctx context.Context, sender string) (*models.FollowUpState, error) {
	var f models.FollowUpState
	ok, err := s.getJSON(ctx, sender+suffixFollowUp, &f)
	if err != nil || !ok {
		return nil, err
	}
	return &f, nil
}

// SaveFollowUp writes the record and refreshes its TTL.
func (s *Store) SaveFollowUp(ctx context.Context, sender string, f models.FollowUpState) error {
	return s.setJSON(ctx, sender+suffixFollowUp, f, TTLFollowUp)
}

// FollowUpSenders lists every sender with a follow-up record.
func (s *Store) FollowUpSenders(ctx context.Context) ([]string, error) {
	var out []string
	iter := s.rdb.Scan(ctx, 0, "*"+suffixFollowUp, 100).Iterator()
	for iter.Next(ctx) {
		out = append(out, strings.TrimSuffix(iter.Val(), suffixFollowUp))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, raw, ttl).Err()
}
