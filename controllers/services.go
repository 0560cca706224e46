package controllers

import (
	"context"

	"github.com/gin-gonic/gin"

	"sdragent/crm"
	"sdragent/logger"
	"sdragent/models"
)

const servicesKey = "services"

type StateStore interface {
	Ping(ctx context.Context) error
	Block(ctx context.Context, sender string) error
	Unblock(ctx context.Context, sender string) error
	LeadState(ctx context.Context, sender string) (*models.LeadState, error)
	History(ctx context.Context, sender string, limit int) ([]models.HistoryEntry, error)
}

type CRMReader interface {
	ListLeads(f crm.ListFilter) ([]models.Lead, int, error)
	LeadByRemoteJID(remoteJID string) (*models.Lead, error)
	ListContatos(f crm.ListFilter) ([]models.Contato, int, error)
	ContatoByRemoteJID(remoteJID string) (*models.Contato, error)
}

type WebhookProcessor interface {
	Process(ctx context.Context, w models.WhatsAppWebhook) (bool, error)
}

type LeadIntake interface {
	Capture(ctx context.Context, capture models.LeadCapture)
}

type Summarizer interface {
	Summarize(ctx context.Context, sender string) string
}

type FollowUpAdmin interface {
	Status(ctx context.Context, sender string) (*models.FollowUpState, error)
	Cancel(ctx context.Context, sender string) (bool, error)
	Trigger(ctx context.Context, sender string) (*models.FollowUpState, error)
}

// Services são as dependências dos handlers, injetadas no contexto do gin.
type Services struct {
	Log        *logger.Logger
	Store      StateStore
	CRM        CRMReader
	Processor  WebhookProcessor
	Leads      LeadIntake
	Summarizer Summarizer
	FollowUps  FollowUpAdmin
	// Sheets indica se a planilha de leads está configurada (health).
	Sheets bool
}

// SetServices registers s on every request.
func SetServices(s *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(servicesKey, s)
		c.Next()
	}
}

// ServicesInstance returns the request services or answers 500.
func ServicesInstance(c *gin.Context) (*Services, bool) {
	v, ok := c.Get(servicesKey)
	if ok {
		if s, ok := v.(*Services); ok && s != nil {
			return s, true
		}
	}
	RespondError(c, "serviços não configurados no contexto", 500)
	return nil, false
}

func (s *Services) logger() *logger.Logger {
	if s.Log == nil {
		return logger.Nop()
	}
	return s.Log
}
