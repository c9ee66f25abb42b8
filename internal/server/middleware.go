package server

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"

	"chatgate/internal/audit"
	"chatgate/internal/security"
)

// maxSignedBody caps how much of a request body the signature check will
// buffer. It tracks the largest profile payload limit.
const maxSignedBody = 2_000_000

// corsMiddleware answers preflight requests and sets the CORS headers for
// the profile's allowed origins. An empty origin list means same-origin
// only, so no headers are emitted at all.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, X-Webhook-Signature")
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.Profile.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// maxPayloadMiddleware enforces the profile's payload size limit. Requests
// that declare an oversize body are refused outright; undeclared bodies
// are capped with MaxBytesReader so handlers fail while decoding.
func (s *Server) maxPayloadMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := s.Profile.MaxPayloadBytes
		if limit <= 0 || r.Body == nil {
			next.ServeHTTP(w, r)
			return
		}

		if r.ContentLength > limit {
			s.recordAudit(r, audit.KindPayloadTooLarge, r.URL.Path)
			s.Metrics.PayloadRefused.Inc()
			s.respondError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
				fmt.Sprintf("Request body exceeds %d bytes", limit))
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, limit)
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware admits the request through the sliding-window pools.
// A denied request consumes no slot, so a caller who backs off for one
// full window recovers their entire budget.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision := s.Limits.Admit(clientAddr(r), r.URL.Path)

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.Allowed {
			s.recordAudit(r, audit.KindRateLimited, r.URL.Path)
			s.Metrics.RateLimited.Inc()
			w.Header().Set("Retry-After", strconv.Itoa(int(decision.RetryAfter.Seconds())))
			s.respondError(w, http.StatusTooManyRequests, CodeRateLimitExceeded,
				"Rate limit exceeded, retry later")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireAPIKey checks the X-API-Key header when the active profile
// demands it. The comparison is constant-time regardless of key length.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.Profile.APIKeyRequired {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get("X-API-Key")
		if key == "" {
			s.recordAudit(r, audit.KindMissingKey, r.URL.Path)
			s.Metrics.AuthFailures.WithLabelValues("missing_key").Inc()
			s.respondError(w, http.StatusUnauthorized, CodeMissingKey, "API key required")
			return
		}

		if !security.CheckAPIKey(key, s.apiKey) {
			s.recordAudit(r, audit.KindInvalidKey, r.URL.Path)
			s.Metrics.AuthFailures.WithLabelValues("invalid_key").Inc()
			s.respondError(w, http.StatusUnauthorized, CodeInvalidKey, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireSignature verifies the HMAC-SHA256 signature of the raw request
// body when the profile demands it. Verification happens before any JSON
// parsing; the body is restored for the downstream handler.
func (s *Server) requireSignature(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.Profile.WebhookSignatureRequired {
			next.ServeHTTP(w, r)
			return
		}

		signature := r.Header.Get("X-Webhook-Signature")
		if signature == "" {
			s.recordAudit(r, audit.KindMissingSignature, r.URL.Path)
			s.Metrics.AuthFailures.WithLabelValues("missing_signature").Inc()
			s.respondError(w, http.StatusUnauthorized, CodeMissingSignature, "Signature required")
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxSignedBody))
		if err != nil {
			s.respondError(w, http.StatusBadRequest, CodeMalformedInput, "Failed to read request body")
			return
		}
		r.Body.Close()

		if !security.VerifySignature(body, signature, s.webhookSecret) {
			s.recordAudit(r, audit.KindInvalidSignature, r.URL.Path)
			s.Metrics.AuthFailures.WithLabelValues("invalid_signature").Inc()
			s.respondError(w, http.StatusUnauthorized, CodeInvalidSignature, "Invalid signature")
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

// requireAllowedOrigin restricts admin-tagged routes to the configured
// source-IP allow-list. An empty list denies everything; admin access has
// to be granted explicitly.
func (s *Server) requireAllowedOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.Allowlist.Check(r.RemoteAddr) {
			s.recordAudit(r, audit.KindOriginDenied, r.URL.Path)
			s.Metrics.OriginDenied.Inc()
			s.respondError(w, http.StatusForbidden, CodeUnauthorizedOrigin,
				"Source address not allowed for administrative endpoints")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// recordAudit persists a security event without blocking the response on
// storage failures.
func (s *Server) recordAudit(r *http.Request, kind, detail string) {
	if _, err := s.Audit.Record(r.Context(), clientAddr(r), kind, detail); err != nil {
		s.Logger.Error("Failed to record security event", "kind", kind, "error", err)
	}
}

// clientAddr is the caller's identity for rate limiting and auditing: the
// source IP without the ephemeral port, so reconnecting cannot mint a
// fresh budget.
func clientAddr(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
