package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sdragent/models"
	"sdragent/workers"
)

const adminHistoryTail = 5

// POST /admin/block/:sender
func BlockChat(c *gin.Context) {
	s, sender, ok := adminRequest(c)
	if !ok {
		return
	}
	if err := s.Store.Block(c.Request.Context(), sender); err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	s.logger().Info("chat bloqueado", "sender", sender)
	RespondSuccess(c, gin.H{"status": "blocked", "sender": sender})
}

// POST /admin/unblock/:sender
func UnblockChat(c *gin.Context) {
	s, sender, ok := adminRequest(c)
	if !ok {
		return
	}
	if err := s.Store.Unblock(c.Request.Context(), sender); err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	s.logger().Info("chat desbloqueado", "sender", sender)
	RespondSuccess(c, gin.H{"status": "unblocked", "sender": sender})
}

// GET /admin/lead/:sender
func GetLeadState(c *gin.Context) {
	s, sender, ok := adminRequest(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	state, err := s.Store.LeadState(ctx, sender)
	if err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	history, err := s.Store.History(ctx, sender, 0)
	if err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	tail := history
	if len(tail) > adminHistoryTail {
		tail = tail[len(tail)-adminHistoryTail:]
	}
	RespondSuccess(c, gin.H{
		"sender":        sender,
		"state":         state,
		"history_count": len(history),
		"history":       tail,
	})
}

// GET /admin/summary/:sender
func GetConversationSummary(c *gin.Context) {
	s, sender, ok := adminRequest(c)
	if !ok {
		return
	}
	summary := s.Summarizer.Summarize(c.Request.Context(), sender)
	RespondSuccess(c, gin.H{"sender": sender, "summary": summary})
}

/************************************************
/**** MARK: FOLLOW-UP ****/
/************************************************/

// GET /admin/followup/:sender
func GetFollowUpStatus(c *gin.Context) {
	s, sender, ok := adminRequest(c)
	if !ok {
		return
	}
	f, err := s.FollowUps.Status(c.Request.Context(), sender)
	if err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	if f == nil {
		RespondSuccess(c, gin.H{"sender": sender, "followup": nil, "message": "Sem follow-up agendado"})
		return
	}

	RespondSuccess(c, gin.H{
		"sender": sender,
		"followup": gin.H{
			"nome":         f.Nome,
			"segmento":     f.Segmento,
			"attempts":     f.Attempts,
			"max_attempts": models.MaxFollowUpAttempts,
			"started_at":   f.StartedAt,
			"last_sent":    f.LastSent,
			"last_period":  f.LastPeriod,
			"cancelled":    f.Cancelled,
			"active":       f.Active(),
		},
	})
}

// POST /admin/followup/:sender/cancel
func CancelFollowUp(c *gin.Context) {
	s, sender, ok := adminRequest(c)
	if !ok {
		return
	}
	if _, err := s.FollowUps.Cancel(c.Request.Context(), sender); err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, gin.H{"status": "cancelled", "sender": sender})
}

// POST /admin/followup/:sender/trigger
func TriggerFollowUp(c *gin.Context) {
	s, sender, ok := adminRequest(c)
	if !ok {
		return
	}

	f, err := s.FollowUps.Trigger(c.Request.Context(), sender)
	switch {
	case errors.Is(err, workers.ErrNoFollowUp):
		RespondError(c, "Lead não tem follow-up agendado", http.StatusNotFound)
		return
	case errors.Is(err, workers.ErrFollowUpCancelled):
		RespondError(c, "Follow-up já foi cancelado", http.StatusBadRequest)
		return
	case errors.Is(err, workers.ErrFollowUpExhausted):
		RespondError(c, "Máximo de tentativas atingido", http.StatusBadRequest)
		return
	case err != nil:
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	RespondSuccess(c, gin.H{"status": "triggered", "sender": sender, "current_attempts": f.Attempts})
}

func adminRequest(c *gin.Context) (*Services, string, bool) {
	s, ok := ServicesInstance(c)
	if !ok {
		return nil, "", false
	}
	sender, ok := ParamSender(c, "sender")
	if !ok {
		return nil, "", false
	}
	return s, sender, true
}
