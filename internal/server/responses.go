package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// Stable error codes returned to callers. Per-request failures are always
// structured JSON, never a stack trace.
const (
	CodeMalformedInput      = "malformed_input"
	CodeMissingKey          = "missing_key"
	CodeInvalidKey          = "invalid_key"
	CodeMissingSignature    = "missing_signature"
	CodeInvalidSignature    = "invalid_signature"
	CodeRateLimitExceeded   = "rate_limit_exceeded"
	CodePayloadTooLarge     = "payload_too_large"
	CodeUnauthorizedOrigin  = "unauthorized_origin"
	CodePlatformUnavailable = "platform_unavailable"
	CodePlatformRejected    = "platform_rejected"
	CodeInternal            = "internal_error"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Timestamp string `json:"timestamp"`
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.Logger.Error("Failed to encode JSON response", "error", err)
	}
}

// respondError sends the structured error envelope.
func (s *Server) respondError(w http.ResponseWriter, statusCode int, code, message string) {
	s.respondJSON(w, statusCode, errorResponse{
		Error:     message,
		Code:      code,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
