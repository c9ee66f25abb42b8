// Package platform is the outbound edge: a REST client for the chat
// platform's messaging and administrative API. The gateway treats the
// platform as a black box; every call carries a timeout, and timeouts are
// recoverable failures, never crashes.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"chatgate/internal/component"
	"chatgate/internal/interaction"

	"golang.org/x/time/rate"
)

// Message is one outgoing message: plain content plus an optional
// validated component tree.
type Message struct {
	Content     string
	Tree        *component.Tree
	Attachments []string
}

// ChannelRequest describes a channel to create.
type ChannelRequest struct {
	Name     string `json:"name"`
	Kind     string `json:"type"`
	Topic    string `json:"topic,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
}

// RoleRequest describes a role to create.
type RoleRequest struct {
	Name        string `json:"name"`
	Color       int    `json:"color,omitempty"`
	Hoist       bool   `json:"hoist,omitempty"`
	Mentionable bool   `json:"mentionable,omitempty"`
	Permissions string `json:"permissions,omitempty"`
}

// Channel, Role and Guild are the platform resources the gateway passes
// through.
type Channel struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Kind    string `json:"type"`
	GuildID string `json:"guild_id"`
}

type Role struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color int    `json:"color"`
}

// WebhookRequest describes an inbound webhook to create on a channel.
type WebhookRequest struct {
	Name string `json:"name"`
}

type Webhook struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ChannelID string `json:"channel_id"`
}

type Guild struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"member_count"`
}

// Client is the outbound surface the gateway depends on. The REST
// implementation talks to the real platform; tests substitute fakes.
type Client interface {
	interaction.Sink

	SendMessage(ctx context.Context, channelID string, msg *Message) error
	OpenModal(ctx context.Context, interactionToken string, modal *component.Modal) error
	CreateChannel(ctx context.Context, guildID string, req ChannelRequest) (*Channel, error)
	CreateRole(ctx context.Context, guildID string, req RoleRequest) (*Role, error)
	CreateWebhook(ctx context.Context, channelID string, req WebhookRequest) (*Webhook, error)
	GetGuild(ctx context.Context, guildID string) (*Guild, error)
}

// RESTClient implements Client over the platform's HTTP API, with a
// per-call timeout and a token-bucket throttle so the gateway stays under
// the platform's own rate limits.
type RESTClient struct {
	baseURL string
	token   string
	timeout time.Duration
	limiter *rate.Limiter
	http    *http.Client
}

// NewRESTClient creates a client for the platform API at baseURL.
// rps/burst shape the outbound throttle.
func NewRESTClient(baseURL, token string, timeout time.Duration, rps float64, burst int) *RESTClient {
	return &RESTClient{
		baseURL: baseURL,
		token:   token,
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *RESTClient) SendMessage(ctx context.Context, channelID string, msg *Message) error {
	payload := map[string]interface{}{}
	if msg.Content != "" {
		payload["content"] = msg.Content
	}
	if msg.Tree != nil {
		payload["components"] = EncodeTree(msg.Tree)
	}
	if len(msg.Attachments) > 0 {
		payload["attachments"] = msg.Attachments
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%s/messages", channelID), payload, nil)
}

// OpenModal presents a validated modal layout as the callback response to
// an interaction. Modals cannot be pushed to a channel; they only open in
// reply to a user action, so the caller must hold a live interaction token.
func (c *RESTClient) OpenModal(ctx context.Context, interactionToken string, modal *component.Modal) error {
	payload := map[string]interface{}{
		"type": callbackModal,
		"data": EncodeModal(modal),
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/interactions/%s/callback", interactionToken), payload, nil)
}

func (c *RESTClient) CreateChannel(ctx context.Context, guildID string, req ChannelRequest) (*Channel, error) {
	var channel Channel
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/guilds/%s/channels", guildID), req, &channel); err != nil {
		return nil, err
	}
	return &channel, nil
}

func (c *RESTClient) CreateRole(ctx context.Context, guildID string, req RoleRequest) (*Role, error) {
	var role Role
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/guilds/%s/roles", guildID), req, &role); err != nil {
		return nil, err
	}
	return &role, nil
}

func (c *RESTClient) CreateWebhook(ctx context.Context, channelID string, req WebhookRequest) (*Webhook, error) {
	var webhook Webhook
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%s/webhooks", channelID), req, &webhook); err != nil {
		return nil, err
	}
	return &webhook, nil
}

func (c *RESTClient) GetGuild(ctx context.Context, guildID string) (*Guild, error) {
	var guild Guild
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/guilds/%s", guildID), nil, &guild); err != nil {
		return nil, err
	}
	return &guild, nil
}

// Interaction callback types on the wire.
const (
	callbackReply         = 4
	callbackDeferredReply = 5
	callbackModal         = 9
)

func (c *RESTClient) Respond(ctx context.Context, ev *interaction.Event, reply interaction.Reply) error {
	payload := map[string]interface{}{
		"type": callbackReply,
		"data": replyData(reply),
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/interactions/%s/callback", ev.Token), payload, nil)
}

func (c *RESTClient) Defer(ctx context.Context, ev *interaction.Event, ephemeral bool) error {
	data := map[string]interface{}{}
	if ephemeral {
		data["ephemeral"] = true
	}
	payload := map[string]interface{}{
		"type": callbackDeferredReply,
		"data": data,
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/interactions/%s/callback", ev.Token), payload, nil)
}

func (c *RESTClient) FollowUp(ctx context.Context, ev *interaction.Event, reply interaction.Reply) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/webhooks/%s/followup", ev.Token), replyData(reply), nil)
}

func replyData(reply interaction.Reply) map[string]interface{} {
	data := map[string]interface{}{"content": reply.Content}
	if reply.Ephemeral {
		data["ephemeral"] = true
	}
	return data
}

// do performs one throttled, time-bounded call and maps failures onto the
// gateway's error surface. A 429 from the platform is retried once after
// honoring its Retry-After header; a second 429 is a rejection.
func (c *RESTClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: outbound throttle: %v", ErrUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	resp, err := c.attempt(ctx, method, path, encoded)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		wait := retryAfter(resp)
		resp.Body.Close()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: throttled by platform: %v", ErrUnavailable, ctx.Err())
		case <-timer.C:
		}

		resp, err = c.attempt(ctx, method, path, encoded)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: platform returned status %d", ErrUnavailable, resp.StatusCode)
	default:
		return &RejectedError{Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode platform response: %w", err)
		}
	}
	return nil
}

// attempt issues one HTTP request. The body is passed as bytes so a retry
// can replay it.
func (c *RESTClient) attempt(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Timeouts and transport errors are recoverable, not fatal
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

// retryAfter reads the platform's Retry-After header in seconds, falling
// back to one second when absent or unparsable.
func retryAfter(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return time.Second
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return time.Second
	}
	return time.Duration(seconds) * time.Second
}

// readErrorMessage pulls a human-readable message out of an error body,
// tolerating non-JSON responses.
func readErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return "no error detail"
	}
	var parsed struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &parsed) == nil && parsed.Message != "" {
		return parsed.Message
	}
	return string(raw)
}
