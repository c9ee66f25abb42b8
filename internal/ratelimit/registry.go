package ratelimit

import "time"

// Rule is a per-endpoint override: a stricter pool layered on top of the
// global one.
type Rule struct {
	Window time.Duration
	Max    int
}

// Registry composes the global pool (keyed by caller address) with
// stricter per-endpoint pools (keyed by address+path). A request must pass
// every applicable pool to proceed.
type Registry struct {
	global    *Limiter
	endpoints map[string]*Limiter
}

// NewRegistry builds the global pool from the profile window/max and one
// extra pool per endpoint override.
func NewRegistry(window time.Duration, max int, overrides map[string]Rule, clock Clock) *Registry {
	endpoints := make(map[string]*Limiter, len(overrides))
	for path, rule := range overrides {
		endpoints[path] = NewLimiter(rule.Window, rule.Max, clock)
	}
	return &Registry{
		global:    NewLimiter(window, max, clock),
		endpoints: endpoints,
	}
}

// Admit runs the global check and, when the path has an override, the
// endpoint check. The global slot is consumed even if the endpoint pool
// then denies; an aborted or rejected request still counts against the
// caller's budget.
func (r *Registry) Admit(addr, path string) Decision {
	decision := r.global.Admit(addr)
	if !decision.Allowed {
		return decision
	}

	limiter, ok := r.endpoints[path]
	if !ok {
		return decision
	}

	endpointDecision := limiter.Admit(addr + "|" + path)
	if !endpointDecision.Allowed {
		return endpointDecision
	}

	// Report the tighter of the two remaining counts
	if endpointDecision.Remaining < decision.Remaining {
		return endpointDecision
	}
	return decision
}

// Remaining reports the caller's remaining global budget for response
// headers.
func (r *Registry) Remaining(addr string) int {
	return r.global.Remaining(addr)
}
