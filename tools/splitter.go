package tools

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	boldRe     = regexp.MustCompile(`\*\*(.*?)\*\*`)
	emojiRe    = regexp.MustCompile(`[\x{1F600}-\x{1F64F}\x{1F300}-\x{1F5FF}\x{1F680}-\x{1F6FF}\x{1F1E0}-\x{1F1FF}\x{2600}-\x{26FF}\x{2700}-\x{27BF}]+`)
	urlEmailRe = regexp.MustCompile(`(https?://[^\s]+|www\.[^\s]+|\b[\w.-]+@[a-zA-Z.-]+\.[a-zA-Z]{2,6}\b)`)
	dashes     = strings.NewReplacer(" — ", " ", "—", "", " – ", " ", "–", "")
)

// SplitMessage divide uma resposta longa em mensagens menores para envio
// "humanizado" no WhatsApp: primeiro por parágrafos, senão por pontuação final.
func SplitMessage(text string) []string {
	text = strings.Trim(strings.TrimSpace(text), `"'`)
	if text == "" {
		return nil
	}

	text = boldRe.ReplaceAllString(text, "*$1*")
	text = emojiRe.ReplaceAllString(text, "")
	text = dashes.Replace(text)

	var parts []string
	for _, p := range strings.Split(text, "\n") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) > 1 {
		return parts
	}
	return splitByPunctuation(text)
}

// splitByPunctuation corta em . ! ? seguidos de espaço ou fim do texto,
// sem quebrar URLs, emails ou números decimais.
func splitByPunctuation(text string) []string {
	var protected []string
	text = urlEmailRe.ReplaceAllStringFunc(text, func(m string) string {
		key := fmt.Sprintf("\x00%d\x00", len(protected))
		protected = append(protected, m)
		return key
	})

	runes := []rune(text)
	var sentences []string
	var current strings.Builder
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if r == '.' && i > 0 && i < len(runes)-1 && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
			continue
		}
		last := i == len(runes)-1
		if !last && runes[i+1] != ' ' {
			continue
		}
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
		if !last {
			i++
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	for i, s := range sentences {
		for k, v := range protected {
			s = strings.ReplaceAll(s, fmt.Sprintf("\x00%d\x00", k), v)
		}
		sentences[i] = s
	}
	if len(sentences) == 0 {
		return []string{text}
	}
	return sentences
}
