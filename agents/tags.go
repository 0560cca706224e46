package agents

import (
	"context"
	"regexp"
	"strings"

	"sdragent/logger"
	"sdragent/models"
	"sdragent/tools"
)

/************************************************
/**** MARK: TAGS ****/
/************************************************/
const TAG_QUALIFICADO = "[QUALIFICADO]"
const TAG_NAO_QUALIFICADO = "[NAO_QUALIFICADO]"
const TAG_FOLLOW_UP = "[FOLLOW_UP_24H]"
const TAG_TRANSFERIR = "[TRANSFERIR_VENDEDOR]"
const TAG_AUDIO = tools.AUDIO_TAG

type tagUpdate struct {
	tag   string
	apply func(*models.LeadState)
}

// Aplicadas na ordem; uma tag posterior sobrescreve campos de uma anterior.
var tagMapping = []tagUpdate{
	{TAG_QUALIFICADO, func(s *models.LeadState) {
		s.Qualificacao = models.QUALIFICACAO_QUENTE
		s.EtapaSpin = models.SPIN_COMPLETO
	}},
	{TAG_NAO_QUALIFICADO, func(s *models.LeadState) {
		s.Qualificacao = models.QUALIFICACAO_FRIO
		s.EtapaSpin = models.SPIN_COMPLETO
	}},
	{TAG_FOLLOW_UP, func(s *models.LeadState) { s.FollowUp = true }},
	{TAG_TRANSFERIR, func(s *models.LeadState) {
		s.Transferir = true
		s.Qualificacao = models.QUALIFICACAO_QUENTE
	}},
	{TAG_AUDIO, func(s *models.LeadState) { s.Audio = true }},
}

var objectionPattern = regexp.MustCompile(`(?i)\[OBJECAO:\s*([^\]]+)\]`)

type stageKeywords struct {
	stage    string
	keywords []string
}

var spinKeywords = []stageKeywords{
	{models.SPIN_SITUACAO, []string{"o que vocês fazem", "me conta", "qual é o", "como funciona"}},
	{models.SPIN_PROBLEMA, []string{"dor de cabeça", "dificuldade", "problema", "gargalo", "incomoda"}},
	{models.SPIN_IMPLICACAO, []string{"continuar assim", "impacto", "perder", "consequência"}},
	{models.SPIN_NECESSIDADE, []string{"se existisse", "ideal", "conectar", "vendedor", "solução"}},
}

// TagProcessor strips control markers from model output, folds them into
// the lead state and forwards CRM side effects.
type TagProcessor struct {
	log     *logger.Logger
	store   StateStore
	crm     CRM
	summary Summary
}

func NewTagProcessor(store StateStore, crm CRM, summary Summary, log *logger.Logger) *TagProcessor {
	return &TagProcessor{
		log:     log.With("service", "TagProcessor"),
		store:   store,
		crm:     crm,
		summary: summary,
	}
}

// Process returns the clean text and the new state, or nil when the state
// did not change. CRM failures are logged and never undo the state update.
func (p *TagProcessor) Process(ctx context.Context, raw string, current models.LeadState, sender string) (string, *models.LeadState) {
	log := p.log.With("sender", sender)
	next := current
	text := raw
	found := map[string]bool{}

	for _, m := range tagMapping {
		if strings.Contains(text, m.tag) {
			found[m.tag] = true
			m.apply(&next)
			text = strings.TrimSpace(strings.ReplaceAll(text, m.tag, ""))
		}
	}

	if matches := objectionPattern.FindAllStringSubmatch(text, -1); len(matches) > 0 {
		text = strings.TrimSpace(objectionPattern.ReplaceAllString(text, ""))
		for _, m := range matches {
			objection := strings.TrimSpace(m[1])
			if objection == "" {
				continue
			}
			if _, err := p.crm.AddObjection(sender, objection); err != nil {
				log.Warn("falha ao registrar objeção", "objecao", objection, "err", err)
				continue
			}
			log.Info("objeção identificada", "objecao", objection)
		}
	}

	if len(found) == 0 {
		if stage := InferStage(text); stage != "" {
			next.EtapaSpin = stage
		}
	}

	changed := next != current
	if changed {
		if err := p.store.SaveState(ctx, sender, next); err != nil {
			log.Error("falha ao salvar estado do lead", "err", err)
		}
	}

	if found[TAG_QUALIFICADO] || found[TAG_NAO_QUALIFICADO] {
		level := models.QUALIFICACAO_FRIO
		if found[TAG_QUALIFICADO] {
			level = models.QUALIFICACAO_QUENTE
		}
		if _, err := p.crm.UpdateQualification(sender, level, p.summarize(ctx, sender)); err != nil {
			log.Warn("falha ao atualizar qualificação", "err", err)
		} else {
			log.Info("lead qualificado", "qualificacao", level)
		}
	}

	if found[TAG_TRANSFERIR] {
		contato, err := p.crm.ConvertToContact(sender, p.summarize(ctx, sender))
		switch {
		case err != nil:
			log.Warn("falha ao converter lead", "err", err)
		case contato != nil:
			log.Info("lead convertido para contato", "contato", contato.ID)
		}
	}

	if !changed {
		return text, nil
	}
	return text, &next
}

func (p *TagProcessor) summarize(ctx context.Context, sender string) string {
	if p.summary == nil {
		return ""
	}
	return p.summary.Summarize(ctx, sender)
}

// InferStage returns the first SPIN stage whose keywords appear in text.
func InferStage(text string) string {
	lower := strings.ToLower(text)
	for _, s := range spinKeywords {
		for _, kw := range s.keywords {
			if strings.Contains(lower, kw) {
				return s.stage
			}
		}
	}
	return ""
}
