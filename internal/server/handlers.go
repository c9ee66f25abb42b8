package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"chatgate/internal/component"
	"chatgate/internal/interaction"
	"chatgate/internal/platform"
	"chatgate/internal/security"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// HandleHealth reports liveness and the active environment.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":      "ok",
		"environment": s.Profile.Environment,
	})
}

// composeRequest is the body of POST /api/messages. InteractionToken is
// only meaningful for modal layouts, which open in reply to a user action
// rather than landing in a channel.
type composeRequest struct {
	ChannelID        string              `json:"channel_id"`
	Content          string              `json:"content"`
	InteractionToken string              `json:"interaction_token,omitempty"`
	Attachments      []attachmentUpload  `json:"attachments,omitempty"`
	Components       *component.Document `json:"components,omitempty"`
}

type attachmentUpload struct {
	Name string `json:"name"`
}

// HandleComposeMessage validates and forwards one message. The component
// tree is fully built and checked before anything leaves for the
// platform; a structurally invalid tree never produces an outbound call.
func (s *Server) HandleComposeMessage(w http.ResponseWriter, r *http.Request) {
	var req composeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, CodeMalformedInput, "Invalid JSON body")
		return
	}

	// Modal layouts take the interaction-callback path, not a channel send
	if req.Components != nil && req.Components.Modal != nil {
		s.handleOpenModal(w, r, req)
		return
	}

	if req.ChannelID == "" {
		s.respondError(w, http.StatusBadRequest, CodeMalformedInput, "channel_id is required")
		return
	}

	content := security.SanitizeText(req.Content)
	if strings.TrimSpace(content) == "" && req.Components == nil {
		s.respondError(w, http.StatusBadRequest, CodeMalformedInput,
			"message needs content or components")
		return
	}

	msg := &platform.Message{Content: content}

	if req.Components != nil {
		builder := component.NewBuilder()
		for _, a := range req.Attachments {
			builder.RegisterAttachment(a.Name)
			msg.Attachments = append(msg.Attachments, a.Name)
		}

		tree, err := builder.Build(*req.Components)
		if err != nil {
			s.respondTreeError(w, err)
			return
		}
		msg.Tree = tree
	}

	if err := s.Platform.SendMessage(r.Context(), req.ChannelID, msg); err != nil {
		s.respondPlatformError(w, err)
		return
	}

	s.Logger.Info("message_sent", "channel_id", req.ChannelID,
		"nodes", nodeCount(msg.Tree), "request_id", requestID(r))
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":     "sent",
		"channel_id": req.ChannelID,
	})
}

// handleOpenModal validates a modal layout and presents it as the callback
// response to the referenced interaction.
func (s *Server) handleOpenModal(w http.ResponseWriter, r *http.Request, req composeRequest) {
	if req.InteractionToken == "" {
		s.respondError(w, http.StatusBadRequest, CodeMalformedInput,
			"modal layouts require interaction_token")
		return
	}

	tree, err := component.NewBuilder().Build(*req.Components)
	if err != nil {
		s.respondTreeError(w, err)
		return
	}

	if err := s.Platform.OpenModal(r.Context(), req.InteractionToken, tree.Modal); err != nil {
		s.respondPlatformError(w, err)
		return
	}

	s.Logger.Info("modal_opened", "custom_id", tree.Modal.CustomID, "request_id", requestID(r))
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":    "modal_opened",
		"custom_id": tree.Modal.CustomID,
	})
}

// channelRequest is the body of POST /api/channels.
type channelRequest struct {
	GuildID  string `json:"guild_id"`
	Name     string `json:"name"`
	Kind     string `json:"type"`
	Topic    string `json:"topic,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
}

// HandleCreateChannel passes an administrative channel-creation request
// through to the platform.
func (s *Server) HandleCreateChannel(w http.ResponseWriter, r *http.Request) {
	var req channelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, CodeMalformedInput, "Invalid JSON body")
		return
	}
	if req.GuildID == "" || strings.TrimSpace(req.Name) == "" {
		s.respondError(w, http.StatusBadRequest, CodeMalformedInput, "guild_id and name are required")
		return
	}

	channel, err := s.Platform.CreateChannel(r.Context(), req.GuildID, platform.ChannelRequest{
		Name:     security.SanitizeText(req.Name),
		Kind:     req.Kind,
		Topic:    security.SanitizeText(req.Topic),
		ParentID: req.ParentID,
	})
	if err != nil {
		s.respondPlatformError(w, err)
		return
	}

	s.Logger.Info("channel_created", "guild_id", req.GuildID, "channel_id", channel.ID)
	s.respondJSON(w, http.StatusCreated, channel)
}

// roleRequest is the body of POST /api/roles.
type roleRequest struct {
	GuildID     string `json:"guild_id"`
	Name        string `json:"name"`
	Color       int    `json:"color,omitempty"`
	Hoist       bool   `json:"hoist,omitempty"`
	Mentionable bool   `json:"mentionable,omitempty"`
	Permissions string `json:"permissions,omitempty"`
}

// HandleCreateRole passes an administrative role-creation request through
// to the platform.
func (s *Server) HandleCreateRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, CodeMalformedInput, "Invalid JSON body")
		return
	}
	if req.GuildID == "" || strings.TrimSpace(req.Name) == "" {
		s.respondError(w, http.StatusBadRequest, CodeMalformedInput, "guild_id and name are required")
		return
	}

	role, err := s.Platform.CreateRole(r.Context(), req.GuildID, platform.RoleRequest{
		Name:        security.SanitizeText(req.Name),
		Color:       req.Color,
		Hoist:       req.Hoist,
		Mentionable: req.Mentionable,
		Permissions: req.Permissions,
	})
	if err != nil {
		s.respondPlatformError(w, err)
		return
	}

	s.Logger.Info("role_created", "guild_id", req.GuildID, "role_id", role.ID)
	s.respondJSON(w, http.StatusCreated, role)
}

// webhookRequest is the body of POST /api/webhooks.
type webhookRequest struct {
	ChannelID string `json:"channel_id"`
	Name      string `json:"name"`
}

// HandleCreateWebhook provisions an inbound webhook on a channel.
func (s *Server) HandleCreateWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, CodeMalformedInput, "Invalid JSON body")
		return
	}
	if req.ChannelID == "" || strings.TrimSpace(req.Name) == "" {
		s.respondError(w, http.StatusBadRequest, CodeMalformedInput, "channel_id and name are required")
		return
	}

	webhook, err := s.Platform.CreateWebhook(r.Context(), req.ChannelID, platform.WebhookRequest{
		Name: security.SanitizeText(req.Name),
	})
	if err != nil {
		s.respondPlatformError(w, err)
		return
	}

	s.Logger.Info("webhook_created", "channel_id", req.ChannelID, "webhook_id", webhook.ID)
	s.respondJSON(w, http.StatusCreated, webhook)
}

// HandleGetGuild reads guild details from the platform.
func (s *Server) HandleGetGuild(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	if guildID == "" {
		s.respondError(w, http.StatusBadRequest, CodeMalformedInput, "guild id is required")
		return
	}

	guild, err := s.Platform.GetGuild(r.Context(), guildID)
	if err != nil {
		s.respondPlatformError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, guild)
}

// HandleSecurityEvents returns the most recent audit events for external
// monitoring. Admin-only; the allow-list runs before this handler.
func (s *Server) HandleSecurityEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			s.respondError(w, http.StatusBadRequest, CodeMalformedInput, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	events, err := s.Audit.Recent(r.Context(), limit)
	if err != nil {
		s.Logger.Error("Failed to read security events", "error", err)
		s.respondError(w, http.StatusInternalServerError, CodeInternal, "Failed to read security events")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

// interactionRequest is the body of POST /interactions, as relayed by the
// platform.
type interactionRequest struct {
	Kind     string            `json:"type"`
	Variant  string            `json:"variant,omitempty"`
	CustomID string            `json:"custom_id"`
	Token    string            `json:"token"`
	Values   []string          `json:"values,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// HandleInteraction parses one platform callback and hands it to the
// dispatcher. The response here is to the relay; the user-visible
// acknowledgement travels out-of-band through the platform client.
func (s *Server) HandleInteraction(w http.ResponseWriter, r *http.Request) {
	var req interactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, CodeMalformedInput, "Invalid JSON body")
		return
	}

	var kind interaction.Kind
	switch req.Kind {
	case string(interaction.KindButton):
		kind = interaction.KindButton
	case string(interaction.KindSelectMenu):
		kind = interaction.KindSelectMenu
	case string(interaction.KindModalSubmit):
		kind = interaction.KindModalSubmit
	default:
		s.respondError(w, http.StatusBadRequest, CodeMalformedInput, "Unknown interaction type")
		return
	}
	if req.Token == "" {
		s.respondError(w, http.StatusBadRequest, CodeMalformedInput, "token is required")
		return
	}

	ev := interaction.NewEvent(kind, req.CustomID, req.Token)
	ev.Variant = req.Variant
	ev.Values = req.Values
	ev.Fields = req.Fields

	s.Metrics.Interactions.WithLabelValues(string(kind)).Inc()

	if err := s.Dispatch.Dispatch(r.Context(), ev); err != nil {
		s.Logger.Error("interaction_dispatch_failed", "event_id", ev.ID, "error", err)
		s.respondError(w, http.StatusBadGateway, CodePlatformUnavailable,
			"Failed to acknowledge interaction")
		return
	}

	s.respondJSON(w, http.StatusAccepted, map[string]string{
		"status":   "acknowledged",
		"event_id": ev.ID,
	})
}

// respondTreeError maps a structural validation failure onto the error
// envelope, using the structural reason as the stable code.
func (s *Server) respondTreeError(w http.ResponseWriter, err error) {
	var structural *component.StructuralError
	if errors.As(err, &structural) {
		s.Metrics.TreesRejected.WithLabelValues(string(structural.Reason)).Inc()
		s.respondError(w, http.StatusBadRequest, string(structural.Reason), structural.Error())
		return
	}
	s.respondError(w, http.StatusBadRequest, CodeMalformedInput, err.Error())
}

// respondPlatformError maps outbound failures: unavailability and platform
// rejections both surface as 502 with distinct codes.
func (s *Server) respondPlatformError(w http.ResponseWriter, err error) {
	var rejected *platform.RejectedError
	switch {
	case errors.Is(err, platform.ErrUnavailable):
		s.respondError(w, http.StatusBadGateway, CodePlatformUnavailable,
			"Platform temporarily unavailable, retry later")
	case errors.As(err, &rejected):
		s.respondError(w, http.StatusBadGateway, CodePlatformRejected, rejected.Message)
	default:
		s.Logger.Error("Unexpected platform error", "error", err)
		s.respondError(w, http.StatusInternalServerError, CodeInternal, "Internal error")
	}
}

func nodeCount(tree *component.Tree) int {
	if tree == nil {
		return 0
	}
	return tree.NodeCount
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}
