package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"sdragent/models"
)

const maxFormMemory = 8 << 20

// Aliases aceitos por campo; o formulário do site manda os rótulos "Sem rótulo ...".
var (
	nomeKeys     = []string{"Sem rótulo nome", "Sem rotulo nome", "nome"}
	whatsappKeys = []string{"Sem rótulo whatsapp", "Sem rotulo whatsapp", "whatsapp"}
	segmentoKeys = []string{"Sem rótulo field_689ee39", "Sem rotulo field_689ee39", "segmento"}
	origemKeys   = []string{"lead_source", "origem"}
)

const DEFAULT_ORIGEM = "formulario"

// POST /webhook/captura
func CaptureLead(c *gin.Context) {
	s, ok := ServicesInstance(c)
	if !ok {
		return
	}
	log := s.logger().With("handler", "CaptureLead")

	data, err := captureFields(c)
	if err != nil {
		log.Warn("payload de captura inválido", "err", err)
		RespondError(c, "payload inválido", http.StatusBadRequest)
		return
	}

	lead := models.LeadCapture{
		Nome:     field(data, nomeKeys, ""),
		Whatsapp: field(data, whatsappKeys, ""),
		Segmento: field(data, segmentoKeys, ""),
		Origem:   field(data, origemKeys, DEFAULT_ORIGEM),
	}
	if lead.MissingFields() != "" {
		RespondError(c, "WhatsApp é obrigatório", http.StatusBadRequest)
		return
	}

	log.Info("captura recebida", "nome", lead.Nome, "segmento", lead.Segmento, "origem", lead.Origem)
	s.Leads.Capture(c.Request.Context(), lead)

	RespondSuccess(c, gin.H{"status": "ok", "message": "Lead recebido e processando"})
}

// captureFields returns the submitted fields from a JSON body or a form,
// unwrapping an optional "body" object.
func captureFields(c *gin.Context) (map[string]any, error) {
	if strings.Contains(c.ContentType(), "application/json") {
		var raw map[string]any
		dec := json.NewDecoder(c.Request.Body)
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		if nested, ok := raw["body"].(map[string]any); ok {
			return nested, nil
		}
		return raw, nil
	}

	if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, err
	}
	out := make(map[string]any, len(c.Request.PostForm))
	for k, v := range c.Request.PostForm {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out, nil
}

func field(data map[string]any, keys []string, def string) string {
	for _, k := range keys {
		v, ok := data[k]
		if !ok || v == nil {
			continue
		}
		if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
			return s
		}
	}
	return def
}
