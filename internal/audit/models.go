package audit

import "time"

// Event kinds recorded for external monitoring.
const (
	KindMissingKey       = "auth.missing_key"
	KindInvalidKey       = "auth.invalid_key"
	KindMissingSignature = "auth.missing_signature"
	KindInvalidSignature = "auth.invalid_signature"
	KindRateLimited      = "ratelimit.denied"
	KindOriginDenied     = "origin.denied"
	KindPayloadTooLarge  = "payload.too_large"
)

// Event is one security event: who, what, when. Secrets never appear here;
// Detail is limited to non-sensitive context such as the endpoint path.
type Event struct {
	ID         string
	Identity   string // caller address, already stripped of credentials
	Kind       string
	Detail     string
	RecordedAt time.Time
}
