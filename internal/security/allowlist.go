package security

import (
	"net"
	"strings"
)

// Wildcard allows any source address when present in the allow-list.
const Wildcard = "*"

// Allowlist restricts administrative endpoints to a configured set of
// source addresses. It is read-only after construction.
type Allowlist struct {
	wildcard bool
	addrs    map[string]bool
}

// NewAllowlist builds an allow-list from configured entries. Entries are
// plain IP addresses or the "*" wildcard; whitespace is trimmed.
func NewAllowlist(entries []string) *Allowlist {
	al := &Allowlist{addrs: make(map[string]bool, len(entries))}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if e == Wildcard {
			al.wildcard = true
			continue
		}
		// Normalize so "::1" and "0:0:0:0:0:0:0:1" compare equal
		if ip := net.ParseIP(e); ip != nil {
			al.addrs[ip.String()] = true
			continue
		}
		al.addrs[e] = true
	}
	return al
}

// Check reports whether a source address is allowed. The address may carry
// a port ("203.0.113.9:4817"); only the host part is considered.
func (al *Allowlist) Check(sourceAddr string) bool {
	if al.wildcard {
		return true
	}

	host := sourceAddr
	if h, _, err := net.SplitHostPort(sourceAddr); err == nil {
		host = h
	}

	if ip := net.ParseIP(host); ip != nil {
		return al.addrs[ip.String()]
	}
	return al.addrs[host]
}

// Empty reports whether no entries (and no wildcard) are configured.
func (al *Allowlist) Empty() bool {
	return !al.wildcard && len(al.addrs) == 0
}
