package tools

import (
	"regexp"
	"strings"
)

type tagReplacement struct {
	re   *regexp.Regexp
	with string
}

func tag(name, with string) tagReplacement {
	return tagReplacement{re: regexp.MustCompile(`(?i)\[` + regexp.QuoteMeta(name) + `\]`), with: with}
}

// Pausas e reações viram pontuação/interjeições que a voz interpreta.
var spokenTags = []tagReplacement{
	tag("pausa curta", "..."),
	tag("pausa longa", "...... "),
	tag("pausa", "..."),
	tag("riso leve", "haha, "),
	tag("riso", "haha"),
	tag("risada", "hahaha"),
	tag("surpreso", "nossa, "),
	tag("concordando", "uhum, "),
	tag("pensando", "hmm, "),
	tag("pensativo", "hmm... "),
}

var (
	anyTagRe     = regexp.MustCompile(`\[[^\]]*\]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	spacesRe     = regexp.MustCompile(`[ \t]+`)
)

// ProcessAudioTags prepares text for speech synthesis. Emotion tags and any
// other bracketed marker are dropped.
func ProcessAudioTags(text string) string {
	for _, t := range spokenTags {
		text = t.re.ReplaceAllString(text, t.with)
	}
	return collapse(anyTagRe.ReplaceAllString(text, ""))
}

// CleanTextTags removes every bracketed tag for text delivery. Line breaks
// are kept so the splitter can still cut on paragraphs.
func CleanTextTags(text string) string {
	lines := strings.Split(anyTagRe.ReplaceAllString(text, ""), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(spacesRe.ReplaceAllString(l, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func collapse(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}
