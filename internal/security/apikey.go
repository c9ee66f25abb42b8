package security

import (
	"crypto/hmac"
	"crypto/sha256"
)

// CheckAPIKey compares a caller-supplied API key against the configured one
// in constant time. Both sides are hashed first so the comparison cost does
// not depend on where, or whether, the inputs differ in length.
func CheckAPIKey(got, want string) bool {
	if got == "" || want == "" {
		return false
	}

	gotSum := sha256.Sum256([]byte(got))
	wantSum := sha256.Sum256([]byte(want))

	return hmac.Equal(gotSum[:], wantSum[:])
}
