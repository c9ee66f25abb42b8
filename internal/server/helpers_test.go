package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"chatgate/internal/component"
	"chatgate/internal/config"
	"chatgate/internal/interaction"
	"chatgate/internal/platform"
	"chatgate/internal/security"
)

const (
	testAPIKey        = "kX9mQ2vL8nR4tY7w"
	testWebhookSecret = "kX9mQ2vL8nR4tY7wA3sD6fG1hJ5uZ0cB"
)

// fakePlatform records outbound calls and answers from canned data. The
// zero value succeeds; set err to simulate platform failures.
type fakePlatform struct {
	mu       sync.Mutex
	err      error
	sent     []*platform.Message
	modals   []*component.Modal
	channels []platform.ChannelRequest
	roles    []platform.RoleRequest
	webhooks []platform.WebhookRequest
	acks     []string
}

func (f *fakePlatform) SendMessage(ctx context.Context, channelID string, msg *platform.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakePlatform) OpenModal(ctx context.Context, interactionToken string, modal *component.Modal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.modals = append(f.modals, modal)
	return nil
}

func (f *fakePlatform) CreateChannel(ctx context.Context, guildID string, req platform.ChannelRequest) (*platform.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.channels = append(f.channels, req)
	return &platform.Channel{ID: "chan-1", Name: req.Name, Kind: req.Kind, GuildID: guildID}, nil
}

func (f *fakePlatform) CreateRole(ctx context.Context, guildID string, req platform.RoleRequest) (*platform.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.roles = append(f.roles, req)
	return &platform.Role{ID: "role-1", Name: req.Name, Color: req.Color}, nil
}

func (f *fakePlatform) CreateWebhook(ctx context.Context, channelID string, req platform.WebhookRequest) (*platform.Webhook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.webhooks = append(f.webhooks, req)
	return &platform.Webhook{ID: "hook-1", Name: req.Name, ChannelID: channelID}, nil
}

func (f *fakePlatform) GetGuild(ctx context.Context, guildID string) (*platform.Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &platform.Guild{ID: guildID, Name: "Test Guild", MemberCount: 42}, nil
}

func (f *fakePlatform) Respond(ctx context.Context, ev *interaction.Event, reply interaction.Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, "respond")
	return nil
}

func (f *fakePlatform) Defer(ctx context.Context, ev *interaction.Event, ephemeral bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, "defer")
	return nil
}

func (f *fakePlatform) FollowUp(ctx context.Context, ev *interaction.Event, reply interaction.Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, "followup")
	return nil
}

func (f *fakePlatform) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// newTestServer builds a server around the fake platform. The audit store
// is nil (no-op) unless the test installs one.
func newTestServer(t *testing.T, profile config.SecurityProfile, fake *fakePlatform) *Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dispatcher := interaction.NewDispatcher(fake, logger,
		interaction.WithDeadline(time.Second, 100*time.Millisecond))

	cfg := &config.Config{
		APIKey:         testAPIKey,
		WebhookSecret:  testWebhookSecret,
		AdminAllowlist: []string{"203.0.113.9"},
	}

	srv := NewServer(cfg, profile, fake, dispatcher, nil, logger, true)
	t.Cleanup(func() { dispatcher.Wait() })
	return srv
}

// productionProfile returns the strictest profile for auth tests.
func productionProfile(t *testing.T) config.SecurityProfile {
	t.Helper()
	profile, err := config.SelectProfile(config.EnvProduction)
	if err != nil {
		t.Fatalf("SelectProfile() error = %v", err)
	}
	return profile
}

// devProfile returns the development profile (no auth required).
func devProfile(t *testing.T) config.SecurityProfile {
	t.Helper()
	profile, err := config.SelectProfile(config.EnvDevelopment)
	if err != nil {
		t.Fatalf("SelectProfile() error = %v", err)
	}
	return profile
}

// doRequest runs one request through the router and returns the recorder.
func doRequest(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

// signedRequest builds an authenticated request: API key header plus an
// HMAC signature over the exact body bytes.
func signedRequest(method, path string, body []byte) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)
	req.Header.Set("X-Webhook-Signature", security.SignPayload(body, testWebhookSecret))
	return req
}

// decodeError pulls the error envelope out of a response.
func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var envelope errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("Failed to decode error response: %v (body %q)", err, rec.Body.String())
	}
	return envelope
}

// sentinel helpers for platform error tests
var (
	errUnavailable = platform.ErrUnavailable
	errRejected    = &platform.RejectedError{Status: 403, Message: "missing permission"}
)

func isRejected(err error) bool {
	var rejected *platform.RejectedError
	return errors.As(err, &rejected)
}
