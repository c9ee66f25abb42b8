package security

import (
	"strings"
	"testing"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", "Deploy finished", "Deploy finished"},
		{"script tag stripped", "hello <script>alert(1)</script>world", "hello alert(1)world"},
		{"script tag case insensitive", "<SCRIPT src=x>", ""},
		{"iframe stripped", `<iframe src="https://evil.example"></iframe>ok`, "ok"},
		{"event handler stripped", `<img src=x onerror=alert(1)>`, "<img src=x alert(1)>"},
		{"javascript url defanged", "click javascript:alert(1)", "click alert(1)"},
		{"zero width space removed", "pay​load", "payload"},
		{"rtl override removed", "abc‮def", "abcdef"},
		{"control chars removed", "a\x00b\x07c", "abc"},
		{"newlines and tabs kept", "line1\n\tline2", "line1\n\tline2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateCustomID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"simple id", "confirm_order", false},
		{"namespaced id", "orders:confirm:1090", false},
		{"with dashes", "role-select", false},
		{"empty", "", true},
		{"spaces", "confirm order", true},
		{"angle brackets", "confirm<script>", true},
		{"too long", strings.Repeat("a", 101), true},
		{"exactly 100", strings.Repeat("a", 100), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCustomID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCustomID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestValidateExternalURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"https url", "https://cdn.example.com/banner.png", false},
		{"http url", "http://cdn.example.com/banner.png", true},
		{"attachment scheme", "attachment://report.pdf", true},
		{"javascript scheme", "javascript:alert(1)", true},
		{"missing host", "https://", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateExternalURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateExternalURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}
