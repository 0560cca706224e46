package workers

import (
	"context"
	"strings"

	"sdragent/logger"
	"sdragent/models"
)

type submitter interface {
	Submit(ctx context.Context, msg models.InboundMessage) error
}

// MessageProcessor filters inbound webhooks, extracts their text and hands
// them to the consolidator.
type MessageProcessor struct {
	log         *logger.Logger
	store       filterStore
	gateways    GatewayFactory
	transcriber Transcriber
	next        submitter
}

func NewMessageProcessor(store filterStore, gateways GatewayFactory, transcriber Transcriber, next submitter, log *logger.Logger) *MessageProcessor {
	return &MessageProcessor{
		log:         log.With("service", "MessageProcessor"),
		store:       store,
		gateways:    gateways,
		transcriber: transcriber,
		next:        next,
	}
}

// Process reports whether the message entered the debounce buffer.
func (p *MessageProcessor) Process(ctx context.Context, w models.WhatsAppWebhook) (bool, error) {
	sender := w.Sender()
	log := p.log.With("sender", sender)

	if sender == "" {
		log.Warn("webhook sem remetente")
		return false, nil
	}

	if w.IsFromMe() {
		log.Debug("ignorando mensagem própria")
		return false, nil
	}

	if text := w.TextContent(); text != "" {
		echo, err := p.store.IsAIMessage(ctx, sender, text)
		if err != nil {
			return false, err
		}
		if echo {
			log.Debug("ignorando eco de mensagem da IA")
			return false, nil
		}
	}

	blocked, err := p.store.IsBlocked(ctx, sender)
	if err != nil {
		return false, err
	}
	if blocked {
		log.Info("chat bloqueado, ignorando")
		return false, nil
	}

	text := strings.TrimSpace(p.extract(ctx, w))
	if text == "" {
		log.Warn("não foi possível extrair conteúdo da mensagem", "tipo", w.MessageType())
		return false, nil
	}

	if err := p.next.Submit(ctx, models.NewInboundMessage(w, text)); err != nil {
		return false, err
	}
	return true, nil
}

func (p *MessageProcessor) extract(ctx context.Context, w models.WhatsAppWebhook) string {
	switch w.MessageType() {
	case models.MESSAGE_TYPE_CONVERSATION, models.MESSAGE_TYPE_EXTENDED_TEXT:
		return w.TextContent()
	case models.MESSAGE_TYPE_AUDIO:
		return p.transcribe(ctx, w)
	case models.MESSAGE_TYPE_IMAGE, models.MESSAGE_TYPE_DOCUMENT:
		p.log.Info("mídia recebida sem processamento", "tipo", w.MessageType())
	}
	return ""
}

func (p *MessageProcessor) transcribe(ctx context.Context, w models.WhatsAppWebhook) string {
	log := p.log.With("sender", w.Sender(), "message_id", w.MessageID())
	if p.transcriber == nil {
		return ""
	}

	gw := p.gateways(w.ServerURL, w.APIKey, w.Instance)
	media, err := gw.FetchMediaBase64(ctx, w.MessageID())
	if err != nil {
		log.Warn("erro ao baixar áudio", "err", err)
		return ""
	}
	if media == nil {
		log.Warn("áudio sem base64")
		return ""
	}

	text, err := p.transcriber.Transcribe(ctx, media.Base64, media.Mimetype)
	if err != nil {
		log.Warn("erro ao transcrever áudio", "err", err)
		return ""
	}
	log.Info("áudio transcrito", "caracteres", len(text))
	return text
}
