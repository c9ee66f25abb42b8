package security

import "testing"

func TestAllowlist_Check(t *testing.T) {
	al := NewAllowlist([]string{"203.0.113.9", " 198.51.100.7 ", "::1"})

	tests := []struct {
		name string
		addr string
		ok   bool
	}{
		{"listed address", "203.0.113.9", true},
		{"listed address with port", "203.0.113.9:48122", true},
		{"trimmed entry", "198.51.100.7", true},
		{"ipv6 loopback", "::1", true},
		{"ipv6 loopback long form", "0:0:0:0:0:0:0:1", true},
		{"ipv6 loopback with port", "[::1]:9000", true},
		{"unlisted address", "192.0.2.44", false},
		{"unlisted with port", "192.0.2.44:1024", false},
		{"empty address", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := al.Check(tt.addr); got != tt.ok {
				t.Errorf("Check(%q) = %v, want %v", tt.addr, got, tt.ok)
			}
		})
	}
}

func TestAllowlist_Wildcard(t *testing.T) {
	al := NewAllowlist([]string{"*"})

	if !al.Check("192.0.2.44") {
		t.Error("Wildcard allow-list should admit any address")
	}
	if al.Empty() {
		t.Error("Wildcard allow-list should not report empty")
	}
}

func TestAllowlist_Empty(t *testing.T) {
	al := NewAllowlist(nil)

	if !al.Empty() {
		t.Error("Expected empty allow-list")
	}
	if al.Check("203.0.113.9") {
		t.Error("Empty allow-list should deny every address")
	}
}
