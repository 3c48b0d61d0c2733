package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/ignatzorin/finders-backend/internal/pkg/apperror"
)

// SignatureHeader - заголовок с HMAC-SHA256 тела вебхука.
const SignatureHeader = "X-Payment-Signature"

var ErrInvalidSignature = apperror.New(apperror.ErrCodeUnauthorized, "неверная подпись вебхука")

// WebhookVerifier проверяет подпись вебхука общим секретом.
type WebhookVerifier struct {
	secret []byte
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: []byte(secret)}
}

// Sign возвращает hex HMAC-SHA256 тела.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify принимает подпись в виде hex, допускается префикс "sha256=".
func (v *WebhookVerifier) Verify(payload []byte, signature string) error {
	sig := strings.TrimSpace(signature)
	if len(v.secret) == 0 || sig == "" {
		return ErrInvalidSignature
	}
	if strings.HasPrefix(strings.ToLower(sig), "sha256=") {
		sig = sig[len("sha256="):]
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, v.secret)
	_, _ = mac.Write(payload)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}
