package config

import (
	"fmt"
	"time"
)

// Deployment environment tags. The set is closed: anything else is a
// configuration error.
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

// SecurityProfile is the immutable admission policy for one process
// lifetime. It is selected once at startup and never mutated afterward;
// hand it around by value.
type SecurityProfile struct {
	Environment              string
	RateLimitWindow          time.Duration
	RateLimitMax             int
	MaxPayloadBytes          int64
	AllowedOrigins           []string // empty = same-origin only
	APIKeyRequired           bool
	WebhookSignatureRequired bool
	TokenExpiration          time.Duration
}

// profiles is the static per-environment policy table.
var profiles = map[string]SecurityProfile{
	EnvDevelopment: {
		Environment:              EnvDevelopment,
		RateLimitWindow:          time.Minute,
		RateLimitMax:             120,
		MaxPayloadBytes:          2_000_000,
		AllowedOrigins:           []string{"http://localhost:3000"},
		APIKeyRequired:           false,
		WebhookSignatureRequired: false,
		TokenExpiration:          24 * time.Hour,
	},
	EnvTest: {
		Environment:              EnvTest,
		RateLimitWindow:          time.Minute,
		RateLimitMax:             1000,
		MaxPayloadBytes:          1_000_000,
		APIKeyRequired:           false,
		WebhookSignatureRequired: false,
		TokenExpiration:          time.Hour,
	},
	EnvProduction: {
		Environment:              EnvProduction,
		RateLimitWindow:          time.Minute,
		RateLimitMax:             60,
		MaxPayloadBytes:          1_000_000,
		APIKeyRequired:           true,
		WebhookSignatureRequired: true,
		TokenExpiration:          15 * time.Minute,
	},
}

// SelectProfile returns the security profile for a deployment environment
// tag. The lookup has no side effects; callers run it exactly once at
// startup.
func SelectProfile(environment string) (SecurityProfile, error) {
	profile, ok := profiles[environment]
	if !ok {
		return SecurityProfile{}, &ConfigurationError{
			Problems: []string{fmt.Sprintf("unknown environment '%s' (expected %s, %s, or %s)",
				environment, EnvDevelopment, EnvTest, EnvProduction)},
		}
	}
	return profile, nil
}
