package agents

import (
	"context"
	"errors"
	"strings"

	"sdragent/config"
	"sdragent/logger"
	"sdragent/models"
	"sdragent/prompts"
	"sdragent/tools"
)

// HistoryWindow is how many history entries go into a dialogue turn.
const HistoryWindow = 30

const welcomeMaxTokens = 200

var errEmptyReply = errors.New("model returned an empty reply")

// Sampling for natural, varied replies.
var sdrParams = tools.ChatParams{
	Temperature:      0.95,
	PresencePenalty:  0.6,
	FrequencyPenalty: 0.4,
}

// generator is the model call behind a dialogue turn.
type generator interface {
	generate(ctx context.Context, system string, history []models.HistoryEntry, user string) (string, error)
}

type chatGenerator struct {
	llm LLM
}

func (g chatGenerator) generate(ctx context.Context, system string, history []models.HistoryEntry, user string) (string, error) {
	transcript := make([]tools.ChatMessage, 0, len(history))
	for _, h := range history {
		transcript = append(transcript, tools.ChatMessage{Role: h.Role, Content: h.Content})
	}
	return g.llm.Chat(ctx, system, transcript, user, sdrParams)
}

// responsesGenerator flattens the history into a single Responses API input.
type responsesGenerator struct {
	llm     LLM
	persona prompts.Persona
}

func (g responsesGenerator) generate(ctx context.Context, system string, history []models.HistoryEntry, user string) (string, error) {
	return g.llm.Respond(ctx, system, prompts.Transcript(g.persona, history, user))
}

// SDRAgent is the qualification agent. The model variant is fixed at construction.
type SDRAgent struct {
	log       *logger.Logger
	persona   prompts.Persona
	framework string
	llm       LLM
	gen       generator
	store     StateStore
	tags      *TagProcessor
	summary   *Summarizer
}

func NewSDRAgent(framework string, persona prompts.Persona, llm LLM, store StateStore, crm CRM, log *logger.Logger) *SDRAgent {
	var gen generator = chatGenerator{llm: llm}
	if framework == config.FrameworkResponses {
		gen = responsesGenerator{llm: llm, persona: persona}
	} else {
		framework = config.FrameworkChat
	}

	summary := NewSummarizer(store, llm, log)
	return &SDRAgent{
		log:       log.With("service", "SDRAgent", "framework", framework),
		persona:   persona,
		framework: framework,
		llm:       llm,
		gen:       gen,
		store:     store,
		tags:      NewTagProcessor(store, crm, summary, log),
		summary:   summary,
	}
}

func (a *SDRAgent) Framework() string {
	return a.framework
}

func (a *SDRAgent) Summarize(ctx context.Context, sender string) string {
	return a.summary.Summarize(ctx, sender)
}

// Reply runs one dialogue turn and returns the text to deliver. An audio
// request from the model survives as a trailing tools.AUDIO_TAG.
func (a *SDRAgent) Reply(ctx context.Context, t Turn) string {
	log := a.log.With("sender", t.Sender)
	lead := leadContext(t.Lead)

	var current models.LeadState
	state, err := a.store.LeadState(ctx, t.Sender)
	if err != nil {
		log.Warn("falha ao ler estado do lead", "err", err)
	}
	if state != nil {
		current = *state
	}

	system := prompts.SDR(a.persona, lead, t.FirstContact)
	user := t.Message
	var history []models.HistoryEntry
	if t.FirstContact {
		user = prompts.FirstContactTrigger
		log.Info("primeiro contato", "nome", lead.Nome, "segmento", lead.Segmento)
	} else {
		history, err = a.store.History(ctx, t.Sender, HistoryWindow)
		if err != nil {
			log.Warn("falha ao ler histórico", "err", err)
		}
		log.Debug("contexto da conversa", "historico", len(history))
	}

	raw, err := a.gen.generate(ctx, system, history, user)
	if err == nil && strings.TrimSpace(raw) == "" {
		err = errEmptyReply
	}
	if err != nil {
		log.Error("erro no agente SDR", "err", err)
		if t.FirstContact {
			return a.welcome(ctx, lead)
		}
		return prompts.FallbackReply
	}

	wantsAudio := strings.Contains(raw, tools.AUDIO_TAG)
	clean, next := a.tags.Process(ctx, raw, current, t.Sender)
	if next != nil {
		log.Debug("estado atualizado", "etapa_spin", next.EtapaSpin, "qualificacao", next.Qualificacao)
	}
	if wantsAudio {
		clean = strings.TrimSpace(clean + " " + tools.AUDIO_TAG)
	}
	return clean
}

// welcome writes a first message without the SDR prompt, then falls back
// to a fixed greeting.
func (a *SDRAgent) welcome(ctx context.Context, lead prompts.Lead) string {
	out, err := a.llm.Complete(ctx, prompts.Welcome(a.persona, lead), welcomeMaxTokens)
	if err != nil || strings.TrimSpace(out) == "" {
		a.log.Warn("boas-vindas pelo texto padrão", "nome", lead.Nome, "err", err)
		return prompts.WelcomeFallback(a.persona, lead)
	}
	return out
}

func leadContext(st models.LeadState) prompts.Lead {
	return prompts.Lead{Nome: st.Nome, Segmento: st.Segmento, Origem: st.Origem}
}
