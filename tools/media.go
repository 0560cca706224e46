package tools

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

/************************************************
/**** MARK: MEDIA DECISION REASONS ****/
/************************************************/
const REASON_TAG_AUDIO = "tag_audio"
const REASON_TECHNICAL = "conteudo_tecnico"
const REASON_SHORT = "mensagem_curta"
const REASON_FIRST_CONTACT = "primeiro_contato"
const REASON_FOLLOW_UP = "follow_up"
const REASON_LONG_PERSONAL = "mensagem_longa_pessoal"
const REASON_EMPATHY = "mensagem_empatica"
const REASON_SPIN_QUESTION = "pergunta_spin"
const REASON_DEFAULT = "default"

const AUDIO_TAG = "[ENVIAR_AUDIO]"

var technicalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`https?://`),
	regexp.MustCompile(`\d{2}[\s.-]?\d{4,5}[\s.-]?\d{4}`),
	regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
	regexp.MustCompile(`R\$\s?\d`),
	regexp.MustCompile(`\d{2}/\d{2}/\d{4}`),
	regexp.MustCompile(`\d{2}:\d{2}`),
}

var personalWords = []string{
	"entendo", "compreendo", "imagino", "sei como",
	"parabéns", "incrível", "ótimo", "legal",
	"obrigad", "agradeço", "prazer",
	"conte comigo", "estou aqui", "pode contar",
}

var empathyPhrases = []string{
	"sei que", "entendo que", "imagino que",
	"deve ser difícil", "complicado mesmo",
	"te entendo", "faz sentido",
	"você está certo", "concordo",
}

var spinStarters = []string{
	"como você", "qual é", "quais são",
	"me conta", "me fala", "o que",
	"quanto", "quando", "por que",
	"como funciona", "como está",
}

// ShouldUseAudio decide entre áudio e texto. A ordem das regras importa:
// conteúdo técnico e mensagens curtas vencem o primeiro contato.
func ShouldUseAudio(message string, isFirstContact, isFollowUp, hasAudioTag bool) (bool, string) {
	if hasAudioTag || strings.Contains(message, AUDIO_TAG) {
		return true, REASON_TAG_AUDIO
	}
	if hasTechnicalContent(message) {
		return false, REASON_TECHNICAL
	}

	length := utf8.RuneCountInString(message)
	if length < 50 {
		return false, REASON_SHORT
	}
	if isFirstContact {
		return true, REASON_FIRST_CONTACT
	}
	if isFollowUp {
		return true, REASON_FOLLOW_UP
	}

	lower := strings.ToLower(message)
	if length > 200 && containsAny(lower, personalWords) {
		return true, REASON_LONG_PERSONAL
	}
	if containsAny(lower, empathyPhrases) {
		return true, REASON_EMPATHY
	}
	if strings.Contains(message, "?") && containsAny(lower, spinStarters) {
		return false, REASON_SPIN_QUESTION
	}
	return false, REASON_DEFAULT
}

func hasTechnicalContent(message string) bool {
	for _, re := range technicalPatterns {
		if re.MatchString(message) {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
