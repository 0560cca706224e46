package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

/************************************************
/**** MARK: HEADERS ****/
/************************************************/
const HEADER_API_KEY = "X-API-Key"
const HEADER_WEBHOOK_SIGNATURE = "X-Webhook-Signature"
const HEADER_REQUEST_ID = "X-Request-ID"

// APIKey protects admin and CRM routes. With no key configured the routes
// stay open (local development).
func APIKey(key string) gin.HandlerFunc {
	key = strings.TrimSpace(key)
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		provided := strings.TrimSpace(c.GetHeader(HEADER_API_KEY))
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API key inválida ou ausente"})
			return
		}
		c.Next()
	}
}

// WebhookSignature validates the body HMAC-SHA256 (hex, optional "sha256="
// prefix) sent in X-Webhook-Signature. No secret disables the check. The body
// is restored for the handler.
func WebhookSignature(secret string) gin.HandlerFunc {
	secret = strings.TrimSpace(secret)
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
			return
		}
		_ = c.Request.Body.Close()
		c.Request.Body = io.NopCloser(bytes.NewReader(raw))

		if ok, reason := verifySignature(secret, c.GetHeader(HEADER_WEBHOOK_SIGNATURE), raw); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "assinatura inválida: " + reason})
			return
		}
		c.Next()
	}
}

func verifySignature(secret, header string, body []byte) (bool, string) {
	sig := strings.TrimPrefix(strings.TrimSpace(header), "sha256=")
	if sig == "" {
		return false, "missing " + HEADER_WEBHOOK_SIGNATURE
	}
	provided, err := hex.DecodeString(sig)
	if err != nil {
		return false, "invalid signature hex"
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return false, "signature mismatch"
	}
	return true, ""
}

// Sign returns the hex HMAC-SHA256 of body, as expected by WebhookSignature.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
