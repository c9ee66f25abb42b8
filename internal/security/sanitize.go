package security

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// Safe patterns for validation
	customIDPattern = regexp.MustCompile(`^[a-zA-Z0-9:_-]{1,100}$`)
	scriptPattern   = regexp.MustCompile(`(?i)<\s*/?\s*(script|iframe|object|embed)[^>]*>`)
	eventAttrPattern = regexp.MustCompile(`(?i)\bon[a-z]+\s*=`)
)

// zero-width and direction-override runes used to disguise content
var invisibleRunes = map[rune]bool{
	'\u200b': true, // zero width space
	'\u200c': true, // zero width non-joiner
	'\u200d': true, // zero width joiner
	'\u2060': true, // word joiner
	'\ufeff': true, // byte order mark
	'\u202d': true, // left-to-right override
	'\u202e': true, // right-to-left override
}

// SanitizeText neutralizes markup and script injection in user-supplied
// component text (labels, content, placeholders). Script-bearing tags and
// inline event handlers are stripped, control and invisible characters are
// removed, and javascript: pseudo-URLs are defanged.
func SanitizeText(s string) string {
	s = scriptPattern.ReplaceAllString(s, "")
	s = eventAttrPattern.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "javascript:", "")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if invisibleRunes[r] {
			continue
		}
		// Keep newlines and tabs, drop other control characters
		if r < 0x20 && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ValidateCustomID ensures a component custom identifier is safe to echo
// back through interaction callbacks.
func ValidateCustomID(id string) error {
	if id == "" {
		return fmt.Errorf("custom id cannot be empty")
	}
	if !customIDPattern.MatchString(id) {
		return fmt.Errorf("custom id contains invalid characters (only a-z, A-Z, 0-9, :, _, - allowed, max 100)")
	}
	return nil
}

// ValidateExternalURL ensures a URL attached to a component is a plain
// HTTPS link. Attachment references use the attachment:// scheme and are
// checked against the registered set by the component builder, not here.
func ValidateExternalURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("only HTTPS URLs allowed, got scheme '%s'", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL missing host")
	}
	return nil
}
