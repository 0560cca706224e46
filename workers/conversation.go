package workers

import (
	"context"
	"sync"
	"time"

	"sdragent/agents"
	"sdragent/logger"
	"sdragent/models"
	"sdragent/tools"
)

const onboardingTimeout = 3 * time.Minute

// LeadCRM is the part of the CRM the conversation flow touches.
type LeadCRM interface {
	CreateLead(capture models.LeadCapture) (*models.Lead, error)
	MarkResponded(remoteJID string) (bool, error)
}

type FollowUps interface {
	Schedule(ctx context.Context, sender, nome, segmento string) error
	Cancel(ctx context.Context, sender string) (bool, error)
}

type Dialogue interface {
	Reply(ctx context.Context, t agents.Turn) string
}

type SheetAppender interface {
	AppendLead(ctx context.Context, row tools.SheetRow) error
}

// Conversation wires lead capture and lead replies to the dialogue agent.
type Conversation struct {
	log       *logger.Logger
	store     leadStore
	crm       LeadCRM
	dialogue  Dialogue
	followUps FollowUps
	deliverer *Deliverer
	gateways  GatewayFactory
	sheets    SheetAppender

	wg sync.WaitGroup
}

func NewConversation(store leadStore, crm LeadCRM, dialogue Dialogue, followUps FollowUps, deliverer *Deliverer, gateways GatewayFactory, sheets SheetAppender, log *logger.Logger) *Conversation {
	return &Conversation{
		log:       log.With("service", "Conversation"),
		store:     store,
		crm:       crm,
		dialogue:  dialogue,
		followUps: followUps,
		deliverer: deliverer,
		gateways:  gateways,
		sheets:    sheets,
	}
}

// HandleTurn answers a consolidated message from a lead. It is the
// consolidator's TurnHandler.
func (c *Conversation) HandleTurn(ctx context.Context, msg models.InboundMessage) (string, error) {
	log := c.log.With("sender", msg.Sender)

	// lead respondeu: nenhum follow-up deve sair depois daqui
	if _, err := c.followUps.Cancel(ctx, msg.Sender); err != nil {
		log.Warn("erro ao cancelar follow-up", "err", err)
	}
	if _, err := c.crm.MarkResponded(msg.Sender); err != nil {
		log.Warn("erro ao marcar resposta no CRM", "err", err)
	}

	var lead models.LeadState
	state, err := c.store.LeadState(ctx, msg.Sender)
	if err != nil {
		log.Warn("erro ao ler estado do lead", "err", err)
	}
	if state != nil {
		lead = *state
	}

	return c.dialogue.Reply(ctx, agents.Turn{
		Sender:  msg.Sender,
		Message: msg.Text,
		Lead:    lead,
	}), nil
}

// Respond delivers a reply with the gateway credentials of the inbound
// message. It is the consolidator's Responder.
func (c *Conversation) Respond(ctx context.Context, msg models.InboundMessage, reply string) {
	gw := c.gateways(msg.ServerURL, msg.APIKey, msg.Instance)
	if err := c.deliverer.Reply(ctx, gw, msg.Sender, reply, false); err != nil {
		c.log.Error("erro ao enviar resposta", "sender", msg.Sender, "err", err)
	}
}

// Capture records a new lead in the spreadsheet and onboards it in the background.
func (c *Conversation) Capture(ctx context.Context, capture models.LeadCapture) {
	if c.sheets != nil {
		row := tools.SheetRow{
			Nome:     capture.Nome,
			Whatsapp: capture.Whatsapp,
			Segmento: capture.Segmento,
			Origem:   capture.Origem,
			Etapa:    models.SPIN_SITUACAO,
		}
		if err := c.sheets.AppendLead(ctx, row); err != nil {
			c.log.Warn("erro ao salvar lead na planilha", "nome", capture.Nome, "err", err)
		}
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), onboardingTimeout)
		defer cancel()
		c.Onboard(ctx, capture)
	}()
}

// Onboard sends the first message to a captured lead and starts its follow-up cadence.
func (c *Conversation) Onboard(ctx context.Context, capture models.LeadCapture) {
	sender := capture.RemoteJID()
	log := c.log.With("sender", sender)

	if _, err := c.crm.CreateLead(capture); err != nil {
		log.Warn("erro ao salvar lead no CRM", "err", err)
	}

	initial := models.LeadState{
		Nome:            capture.Nome,
		Segmento:        capture.Segmento,
		Origem:          capture.Origem,
		EtapaSpin:       models.SPIN_SITUACAO,
		PrimeiroContato: true,
	}

	message := c.dialogue.Reply(ctx, agents.Turn{
		Sender:       sender,
		Lead:         initial,
		FirstContact: true,
	})

	if err := c.store.SaveState(ctx, sender, initial); err != nil {
		log.Error("erro ao salvar estado inicial", "err", err)
	}

	if err := c.deliverer.Reply(ctx, c.gateways("", "", ""), sender, message, true); err != nil {
		log.Error("erro ao enviar boas-vindas", "err", err)
	}

	if err := c.followUps.Schedule(ctx, sender, capture.Nome, capture.Segmento); err != nil {
		log.Error("erro ao agendar follow-up", "err", err)
		return
	}
	log.Info("lead processado, follow-ups agendados", "nome", capture.Nome)
}

// Wait blocks until background onboardings finish.
func (c *Conversation) Wait() {
	c.wg.Wait()
}
