package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math"
	"strings"
)

const (
	// MinWebhookSecretLength is the minimum allowed length for the webhook
	// signing secret.
	MinWebhookSecretLength = 32

	// MinAPIKeyLength is the minimum allowed length for the gateway API key.
	MinAPIKeyLength = 16

	// EncryptionKeyLength is the exact required length of the encryption
	// key (32 bytes, AES-256 sized).
	EncryptionKeyLength = 32

	// MinEntropy is the minimum Shannon entropy threshold for the webhook
	// secret. This ensures secrets have sufficient randomness.
	MinEntropy = 3.0
)

var forbiddenSecrets = map[string]bool{
	"replace-with-secret":                   true,
	"your-webhook-secret-min-32-chars-long": true,
	"min-32-char-webhook-secret":            true,
	"topsecret":                             true,
	"secret":                                true,
	"password":                              true,
	"changeme":                              true,
}

// ValidateWebhookSecret ensures the webhook signing secret meets security
// requirements. Checks:
// - Minimum length (32 characters)
// - Not a placeholder value
// - Sufficient Shannon entropy
func ValidateWebhookSecret(secret string) error {
	if len(secret) < MinWebhookSecretLength {
		return fmt.Errorf("webhook secret too short (minimum %d characters, got %d)", MinWebhookSecretLength, len(secret))
	}

	secretLower := strings.ToLower(secret)
	if forbiddenSecrets[secretLower] {
		return fmt.Errorf("webhook secret appears to be a placeholder value, please use a real secret")
	}

	if strings.Contains(secretLower, "replace") ||
		strings.Contains(secretLower, "changeme") ||
		strings.Contains(secretLower, "password") {
		return fmt.Errorf("webhook secret appears to be a placeholder value")
	}

	entropy := calculateEntropy(secret)
	if entropy < MinEntropy {
		return fmt.Errorf("webhook secret has insufficient entropy (%.2f < %.2f) - use a more random secret", entropy, MinEntropy)
	}

	return nil
}

// ValidateAPIKey ensures the gateway API key meets the minimum length.
func ValidateAPIKey(key string) error {
	if len(key) < MinAPIKeyLength {
		return fmt.Errorf("API key too short (minimum %d characters, got %d)", MinAPIKeyLength, len(key))
	}
	if forbiddenSecrets[strings.ToLower(key)] {
		return fmt.Errorf("API key appears to be a placeholder value")
	}
	return nil
}

// ValidateEncryptionKey ensures the encryption key is exactly 32 bytes.
func ValidateEncryptionKey(key string) error {
	if len(key) != EncryptionKeyLength {
		return fmt.Errorf("encryption key must be exactly %d characters, got %d", EncryptionKeyLength, len(key))
	}
	return nil
}

// GenerateSecret creates a cryptographically secure random secret of n
// base64 characters.
func GenerateSecret(n int) (string, error) {
	if n <= 0 {
		n = MinWebhookSecretLength
	}
	// base64 expands 3 bytes to 4 characters; round up then trim
	raw := make([]byte, (n*3+3)/4+1)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate random secret: %w", err)
	}
	s := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(raw)
	return s[:n], nil
}

// calculateEntropy computes the Shannon entropy of a string.
// Higher entropy indicates more randomness/unpredictability.
func calculateEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}

	freq := make(map[rune]int)
	for _, r := range s {
		freq[r]++
	}

	var entropy float64
	length := float64(len(s))
	for _, count := range freq {
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}

	return entropy
}
