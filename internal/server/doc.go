// Package server implements the HTTP surface of the chatgate admission
// gateway.
//
// Every inbound request passes the admission chain before any business
// logic runs:
//   - payload size check (413 on oversize)
//   - sliding-window rate limiting, global and per-endpoint (429)
//   - IP allow-list on admin-tagged routes (403)
//   - API key and HMAC-SHA256 signature checks per the active
//     security profile (401)
//
// Message-composition handlers additionally build and validate the
// component tree before anything is forwarded to the platform client.
// Inbound interaction callbacks are signature-checked and handed to the
// interaction dispatcher, which guarantees acknowledgement within the
// platform deadline.
//
// The package integrates with:
//   - internal/config: the immutable per-environment security profile
//   - internal/ratelimit: sliding-window admission pools
//   - internal/component: component tree construction and validation
//   - internal/interaction: callback dispatch and acknowledgement
//   - internal/platform: the outbound chat-platform client
//   - internal/audit: SQLite security-event log
package server
