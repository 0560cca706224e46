// Package prompts monta os textos enviados ao modelo: agente SDR,
// boas-vindas, follow-up e resumo.
package prompts

import (
	"fmt"
	"strings"

	"sdragent/models"
)

// Persona identifies who the bot speaks as.
type Persona struct {
	Name    string
	Company string
	Seller  string
}

// Lead is the context the prompts need about the person.
type Lead struct {
	Nome     string
	Segmento string
	Origem   string
}

func (l Lead) withDefaults() Lead {
	if strings.TrimSpace(l.Nome) == "" {
		l.Nome = "Lead"
	}
	if strings.TrimSpace(l.Segmento) == "" {
		l.Segmento = "não especificado"
	}
	if strings.TrimSpace(l.Origem) == "" {
		l.Origem = "formulário"
	}
	return l
}

// FirstContactTrigger é a mensagem "do usuário" usada para gerar a primeira mensagem.
const FirstContactTrigger = "Gere a mensagem de boas-vindas agora."

// FallbackReply é enviado quando o modelo falha.
const FallbackReply = "Opa, me dá um segundo aqui que deu um probleminha\nJá te respondo!"

// Summary builds the hand-off summary prompt over a transcript.
func Summary(history []models.HistoryEntry) string {
	var sb strings.Builder
	for i, h := range history {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(strings.ToUpper(h.Role))
		sb.WriteString(": ")
		sb.WriteString(h.Content)
	}
	return fmt.Sprintf(`Resuma esta conversa de qualificação de lead em 3-5 bullet points.
Inclua: problema identificado, interesse demonstrado, próximos passos.

CONVERSA:
%s

RESUMO:`, sb.String())
}

// Transcript flattens history into the single input used by the Responses API.
func Transcript(p Persona, history []models.HistoryEntry, current string) string {
	if len(history) == 0 {
		return current
	}
	var sb strings.Builder
	sb.WriteString("HISTÓRICO DA CONVERSA (você já conversou com essa pessoa):\n")
	for _, h := range history {
		role := "LEAD"
		if h.Role == models.ROLE_ASSISTANT {
			role = fmt.Sprintf("VOCÊ (%s)", p.Name)
		}
		sb.WriteString(role)
		sb.WriteString(": ")
		sb.WriteString(h.Content)
		sb.WriteString("\n")
	}
	sb.WriteString("\nAGORA O LEAD DISSE: ")
	sb.WriteString(current)
	return sb.String()
}
