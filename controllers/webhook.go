package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"sdragent/models"
)

// POST /webhook/whatsapp (Evolution API). A assinatura é validada no middleware.
func WhatsAppWebhook(c *gin.Context) {
	s, ok := ServicesInstance(c)
	if !ok {
		return
	}
	log := s.logger().With("handler", "WhatsAppWebhook")

	raw, err := c.GetRawData()
	if err != nil {
		RespondError(c, "failed to read body", http.StatusBadRequest)
		return
	}

	var payload models.WhatsAppWebhook
	if err := json.Unmarshal(raw, &payload); err != nil {
		RespondError(c, "invalid json", http.StatusBadRequest)
		return
	}

	if !payload.IsMessageEvent() {
		RespondSuccess(c, gin.H{"status": "ok", "ignored": true, "reason": "event=" + payload.Event})
		return
	}

	log.Debug("webhook recebido",
		"event", payload.Event,
		"sender", payload.Sender(),
		"from_me", payload.IsFromMe(),
		"tipo", payload.MessageType(),
	)

	processed, err := s.Processor.Process(c.Request.Context(), payload)
	if err != nil {
		log.Error("erro ao processar webhook", "sender", payload.Sender(), "err", err)
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	RespondSuccess(c, gin.H{"status": "ok", "processed": processed})
}
