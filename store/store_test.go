package store

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdragent/logger"
	"sdragent/models"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, logger.Nop(), 20*time.Second, 2*time.Hour), mr
}

const sender = "5511999998888@s.whatsapp.net"

func TestBuffer(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendBuffer(ctx, sender, "oi"))
	require.NoError(t, s.AppendBuffer(ctx, sender, "tudo bem?"))

	msgs, err := s.BufferMessages(ctx, sender)
	require.NoError(t, err)
	assert.Equal(t, []string{"oi", "tudo bem?"}, msgs)
	assert.Equal(t, 40*time.Second, mr.TTL(sender+"_debounce"))

	require.NoError(t, s.ClearBuffer(ctx, sender))
	msgs, err = s.BufferMessages(ctx, sender)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestBlockFlag(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	blocked, err := s.IsBlocked(ctx, sender)
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, s.Block(ctx, sender))
	blocked, _ = s.IsBlocked(ctx, sender)
	assert.True(t, blocked)
	assert.Equal(t, 2*time.Hour, mr.TTL(sender+"_block"))

	mr.FastForward(2*time.Hour + time.Second)
	blocked, _ = s.IsBlocked(ctx, sender)
	assert.False(t, blocked)

	require.NoError(t, s.Block(ctx, sender))
	require.NoError(t, s.Unblock(ctx, sender))
	blocked, _ = s.IsBlocked(ctx, sender)
	assert.False(t, blocked)
}

func TestAIEchoRegistry(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddAIMessage(ctx, sender, "Oi Maria! Tudo bem com você?"))

	echo, err := s.IsAIMessage(ctx, sender, "Oi Maria! Tudo bem\n")
	require.NoError(t, err)
	assert.True(t, echo)

	// textos curtos só contam como eco quando iguais à mensagem enviada
	require.NoError(t, s.AddAIMessage(ctx, sender, "Fica assim então, combinado?"))
	echo, _ = s.IsAIMessage(ctx, sender, "sim")
	assert.False(t, echo)
	echo, _ = s.IsAIMessage(ctx, sender, "Oi Maria!")
	assert.False(t, echo)
	require.NoError(t, s.AddAIMessage(ctx, sender, "Perfeito!"))
	echo, _ = s.IsAIMessage(ctx, sender, " Perfeito!\n")
	assert.True(t, echo)

	echo, _ = s.IsAIMessage(ctx, sender, "quero saber o preço")
	assert.False(t, echo)

	echo, _ = s.IsAIMessage(ctx, sender, "  ")
	assert.False(t, echo)

	for i := 0; i < 60; i++ {
		require.NoError(t, s.AddAIMessage(ctx, sender, fmt.Sprintf("msg %d", i)))
	}
	list, err := mr.List(sender + "_ai_messages")
	require.NoError(t, err)
	assert.Len(t, list, AIMessagesLimit)
	assert.Equal(t, "msg 59", list[len(list)-1])
	assert.Equal(t, TTLAIMessages, mr.TTL(sender+"_ai_messages"))
}

func TestHistorySlidingWindow(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 45; i++ {
		require.NoError(t, s.AppendHistory(ctx, sender, models.ROLE_USER, fmt.Sprintf("m%d", i)))
	}
	all, err := s.History(ctx, sender, 0)
	require.NoError(t, err)
	require.Len(t, all, HistoryLimit)
	assert.Equal(t, "m5", all[0].Content)
	assert.Equal(t, "m44", all[len(all)-1].Content)

	last, err := s.History(ctx, sender, 3)
	require.NoError(t, err)
	assert.Equal(t, []models.HistoryEntry{
		{Role: models.ROLE_USER, Content: "m42"},
		{Role: models.ROLE_USER, Content: "m43"},
		{Role: models.ROLE_USER, Content: "m44"},
	}, last)

	n, err := s.HistoryLen(ctx, sender)
	require.NoError(t, err)
	assert.EqualValues(t, HistoryLimit, n)
	assert.Equal(t, TTLHistory, mr.TTL(sender+"_history"))
}

func TestStateRoundTrip(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	st, err := s.State(ctx, sender)
	require.NoError(t, err)
	assert.Nil(t, st)

	want := models.LeadState{Nome: "Ana", Segmento: "Varejo", EtapaSpin: models.SPIN_SITUACAO, PrimeiroContato: true}
	require.NoError(t, s.SaveState(ctx, sender, want))

	st, err = s.State(ctx, sender)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, want, *st)
	assert.Equal(t, TTLState, mr.TTL(sender+"_state"))
}

func TestLeadStateReconciliation(t *testing.T) {
	ctx := context.Background()
	short := "551188887777@s.whatsapp.net"
	long := "5511988887777@s.whatsapp.net"

	t.Run("complete primary wins", func(t *testing.T) {
		s, _ := newTestStore(t)
		require.NoError(t, s.SaveState(ctx, short, models.LeadState{Segmento: "A"}))
		require.NoError(t, s.SaveState(ctx, long, models.LeadState{Segmento: "B"}))
		st, err := s.LeadState(ctx, short)
		require.NoError(t, err)
		assert.Equal(t, "A", st.Segmento)
	})

	t.Run("12 digits falls back to added nine", func(t *testing.T) {
		s, _ := newTestStore(t)
		require.NoError(t, s.SaveState(ctx, short, models.LeadState{EtapaSpin: models.SPIN_PROBLEMA}))
		require.NoError(t, s.SaveState(ctx, long, models.LeadState{Nome: "Ana", Segmento: "Varejo"}))
		st, err := s.LeadState(ctx, short)
		require.NoError(t, err)
		assert.Equal(t, "Varejo", st.Segmento)
	})

	t.Run("13 digits falls back to stripped nine", func(t *testing.T) {
		s, _ := newTestStore(t)
		require.NoError(t, s.SaveState(ctx, short, models.LeadState{Segmento: "Varejo"}))
		st, err := s.LeadState(ctx, long)
		require.NoError(t, err)
		require.NotNil(t, st)
		assert.Equal(t, "Varejo", st.Segmento)
	})

	t.Run("incomplete alternate keeps primary", func(t *testing.T) {
		s, _ := newTestStore(t)
		require.NoError(t, s.SaveState(ctx, short, models.LeadState{EtapaSpin: models.SPIN_PROBLEMA}))
		require.NoError(t, s.SaveState(ctx, long, models.LeadState{Nome: "Outro"}))
		st, err := s.LeadState(ctx, short)
		require.NoError(t, err)
		assert.Equal(t, models.SPIN_PROBLEMA, st.EtapaSpin)
	})

	t.Run("nothing stored", func(t *testing.T) {
		s, _ := newTestStore(t)
		st, err := s.LeadState(ctx, short)
		require.NoError(t, err)
		assert.Nil(t, st)
	})

	t.Run("lookup never writes", func(t *testing.T) {
		s, mr := newTestStore(t)
		require.NoError(t, s.SaveState(ctx, long, models.LeadState{Segmento: "Varejo"}))
		_, err := s.LeadState(ctx, short)
		require.NoError(t, err)
		assert.False(t, mr.Exists(short+"_state"))
	})
}

func TestFollowUpRecords(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	f, err := s.FollowUp(ctx, sender)
	require.NoError(t, err)
	assert.Nil(t, f)

	started := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveFollowUp(ctx, sender, models.FollowUpState{Nome: "Ana", StartedAt: started}))
	require.NoError(t, s.SaveFollowUp(ctx, "551188887777@s.whatsapp.net", models.FollowUpState{}))
	require.NoError(t, s.SaveState(ctx, sender, models.LeadState{}))

	f, err = s.FollowUp(ctx, sender)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "Ana", f.Nome)
	assert.True(t, started.Equal(f.StartedAt))
	assert.Equal(t, TTLFollowUp, mr.TTL(sender+"_followup"))

	senders, err := s.FollowUpSenders(ctx)
	require.NoError(t, err)
	sort.Strings(senders)
	assert.Equal(t, []string{"551188887777@s.whatsapp.net", sender}, senders)
}

func TestCorruptRecord(t *testing.T) {
	s, mr := newTestStore(t)
	require.NoError(t, mr.Set(sender+"_state", "{nope"))

	_, err := s.State(context.Background(), sender)
	assert.Error(t, err)
}
