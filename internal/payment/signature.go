// Package payment checks that confirmations really come from the payment
// gateway. Both flows use HMAC-SHA256 with hex-encoded signatures.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SkipSignature is accepted in place of a real signature only when the
// verifier was built with allowSkip.
const SkipSignature = "skip"

const checkoutDelimiter = "|"

type Verifier struct {
	secret        []byte
	webhookSecret []byte
	allowSkip     bool
}

func NewVerifier(secret, webhookSecret string, allowSkip bool) *Verifier {
	return &Verifier{
		secret:        []byte(secret),
		webhookSecret: []byte(webhookSecret),
		allowSkip:     allowSkip,
	}
}

// SkipAllowed reports whether the "skip" sentinel is honoured.
func (v *Verifier) SkipAllowed() bool { return v.allowSkip }

// WebhookConfigured reports whether a webhook secret is set.
func (v *Verifier) WebhookConfigured() bool { return len(v.webhookSecret) > 0 }

// VerifyCheckout checks signature against HMAC(secret, gatewayOrderID|paymentID).
func (v *Verifier) VerifyCheckout(gatewayOrderID, paymentID, signature string) bool {
	if v.allowSkip && signature == SkipSignature {
		return true
	}
	if gatewayOrderID == "" || paymentID == "" {
		return false
	}
	return verify(v.secret, []byte(gatewayOrderID+checkoutDelimiter+paymentID), signature)
}

// VerifyWebhook checks signature against HMAC(webhookSecret, body) where body
// is the exact request payload.
func (v *Verifier) VerifyWebhook(body []byte, signature string) bool {
	return verify(v.webhookSecret, body, signature)
}

func (v *Verifier) SignCheckout(gatewayOrderID, paymentID string) string {
	return sign(v.secret, []byte(gatewayOrderID+checkoutDelimiter+paymentID))
}

func (v *Verifier) SignWebhook(body []byte) string {
	return sign(v.webhookSecret, body)
}

func verify(secret, payload []byte, signature string) bool {
	if len(secret) == 0 || signature == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(got) != sha256.Size {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hmac.Equal(got, mac.Sum(nil))
}

func sign(secret, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
