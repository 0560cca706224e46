package agents

import (
	"context"

	"sdragent/logger"
	"sdragent/models"
	"sdragent/prompts"
)

const SummaryWindow = 40

const summaryMaxTokens = 400

type historyReader interface {
	History(ctx context.Context, sender string, limit int) ([]models.HistoryEntry, error)
}

// Summarizer writes the hand-off summary from the last SummaryWindow entries.
type Summarizer struct {
	log     *logger.Logger
	history historyReader
	model   Completer
}

func NewSummarizer(history historyReader, model Completer, log *logger.Logger) *Summarizer {
	return &Summarizer{log: log.With("service", "Summarizer"), history: history, model: model}
}

func (s *Summarizer) Summarize(ctx context.Context, sender string) string {
	history, err := s.history.History(ctx, sender, SummaryWindow)
	if err != nil {
		s.log.Warn("falha ao ler histórico", "sender", sender, "err", err)
		return ""
	}
	if len(history) == 0 {
		return ""
	}

	out, err := s.model.Complete(ctx, prompts.Summary(history), summaryMaxTokens)
	if err != nil {
		s.log.Error("erro ao gerar resumo", "sender", sender, "err", err)
		return ""
	}
	return out
}
