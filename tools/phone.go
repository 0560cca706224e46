package tools

import (
	"fmt"
	"strings"
	"unicode"
)

const JID_SUFFIX = "@s.whatsapp.net"

// NormalizeWhatsAppTo normaliza um telefone para o formato aceito pela Evolution API
// (apenas dígitos, em formato internacional, sem '+').
//
// Heurística atual (Brasil):
// - remove tudo que não é dígito
// - se vier com 10/11 dígitos, assume BR e prefixa 55
// - se já vier com DDI (>= 12 dígitos), mantém
func NormalizeWhatsAppTo(raw string) (string, error) {
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), JID_SUFFIX))
	if raw == "" {
		return "", fmt.Errorf("empty phone")
	}

	phone := strings.TrimLeft(Digits(raw), "0")

	// BR comum (DDD+numero): 10 ou 11 dígitos -> prefixa 55
	if len(phone) == 10 || len(phone) == 11 {
		phone = "55" + phone
	}

	// validação bem leve: DDI + número
	if len(phone) < 12 {
		return "", fmt.Errorf("invalid phone length: %d", len(phone))
	}
	return phone, nil
}

// Digits keeps only the digits of s.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhoneWithCountryCode returns only digits, prefixed with 55 when the
// country code is missing. Unlike NormalizeWhatsAppTo it never fails.
func PhoneWithCountryCode(raw string) string {
	phone := Digits(strings.TrimSuffix(strings.TrimSpace(raw), JID_SUFFIX))
	if phone == "" {
		return ""
	}
	if !strings.HasPrefix(phone, "55") {
		phone = "55" + phone
	}
	return phone
}

// RemoteJID builds the WhatsApp chat id for a phone. Values already in
// JID form are returned as is.
func RemoteJID(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasSuffix(raw, JID_SUFFIX) {
		return raw
	}
	phone := PhoneWithCountryCode(raw)
	if phone == "" {
		return ""
	}
	return phone + JID_SUFFIX
}

// AlternateJID returns the other encoding of a Brazilian mobile number:
// 12 digits gain the mobile "9" after the area code, 13 digits with that
// "9" lose it. Any other shape has no alternate.
func AlternateJID(sender string) (string, bool) {
	digits := strings.TrimSuffix(sender, JID_SUFFIX)
	if !strings.HasPrefix(digits, "55") || Digits(digits) != digits {
		return "", false
	}
	switch {
	case len(digits) == 12:
		return digits[:4] + "9" + digits[4:] + JID_SUFFIX, true
	case len(digits) == 13 && digits[4] == '9':
		return digits[:4] + digits[5:] + JID_SUFFIX, true
	}
	return "", false
}
