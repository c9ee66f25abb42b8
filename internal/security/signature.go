package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	SignaturePrefix = "sha256="
)

// SignPayload computes the hex-encoded HMAC-SHA256 of payload under secret.
// The returned value carries the "sha256=" prefix used on the wire.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return SignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature verifies an HMAC-SHA256 signature over the raw request body.
// The signature may carry the "sha256=" prefix or be a bare hex digest.
func VerifySignature(payload []byte, signature, secret string) bool {
	// Signature must be present
	if signature == "" {
		return false
	}

	receivedMAC := strings.TrimPrefix(signature, SignaturePrefix)
	if receivedMAC == "" {
		return false
	}

	// Compute expected HMAC
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expectedMAC := hex.EncodeToString(mac.Sum(nil))

	// Constant-time comparison to prevent timing attacks. A length
	// mismatch is a mismatch; hmac.Equal never leaks where bytes differ.
	return hmac.Equal([]byte(expectedMAC), []byte(receivedMAC))
}
