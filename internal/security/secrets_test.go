package security

import (
	"strings"
	"testing"
)

func TestValidateWebhookSecret(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{"valid random secret", "kX9mQ2vL8nR4tY7wA3sD6fG1hJ5uZ0cB", false},
		{"too short", "short-secret", true},
		{"placeholder", "your-webhook-secret-min-32-chars-long", true},
		{"contains replace", "replace-this-secret-with-a-real-one-now", true},
		{"contains changeme", "changeme-changeme-changeme-changeme-abc", true},
		{"low entropy", strings.Repeat("ab", 20), true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWebhookSecret(tt.secret)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateWebhookSecret() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid key", "gk_live_0123456789abcdef", false},
		{"exactly 16 chars", "0123456789abcdef", false},
		{"15 chars", "0123456789abcde", true},
		{"placeholder", "changeme", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAPIKey() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateEncryptionKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"exactly 32 chars", strings.Repeat("k", 32), false},
		{"31 chars", strings.Repeat("k", 31), true},
		{"33 chars", strings.Repeat("k", 33), true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEncryptionKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEncryptionKey() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenerateSecret(t *testing.T) {
	secret, err := GenerateSecret(48)
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}
	if len(secret) != 48 {
		t.Errorf("Expected 48-character secret, got %d", len(secret))
	}

	// Generated secrets must pass our own validation
	if err := ValidateWebhookSecret(secret); err != nil {
		t.Errorf("Generated secret failed validation: %v", err)
	}

	other, err := GenerateSecret(48)
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}
	if secret == other {
		t.Error("Two generated secrets should not be equal")
	}
}
