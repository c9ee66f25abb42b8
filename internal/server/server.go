package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"chatgate/internal/audit"
	"chatgate/internal/config"
	"chatgate/internal/interaction"
	"chatgate/internal/platform"
	"chatgate/internal/ratelimit"
	"chatgate/internal/security"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	// HTTP server timeouts
	HTTPReadTimeout  = 10 * time.Second
	HTTPWriteTimeout = 15 * time.Second
	HTTPIdleTimeout  = 60 * time.Second

	// Request timeout for middleware. Interaction dispatch needs to fit
	// inside it together with one outbound platform call.
	RequestTimeout = 30 * time.Second
)

// Server wires the admission chain around the route handlers. The
// security profile is immutable; everything mutable (rate-limit records,
// audit store) lives behind its own synchronization.
type Server struct {
	Profile   config.SecurityProfile
	Limits    *ratelimit.Registry
	Allowlist *security.Allowlist
	Platform  platform.Client
	Dispatch  *interaction.Dispatcher
	Audit     *audit.Store
	Logger    *slog.Logger
	Metrics   *Metrics
	TestMode  bool

	apiKey        string
	webhookSecret string
}

// NewServer assembles a server from loaded configuration and its
// collaborators. Rate limiting and audit persistence are disabled in test
// mode, matching how the integration tests run.
func NewServer(cfg *config.Config, profile config.SecurityProfile, client platform.Client,
	dispatcher *interaction.Dispatcher, store *audit.Store, logger *slog.Logger, testMode bool) *Server {

	overrides := make(map[string]ratelimit.Rule, len(cfg.EndpointLimits))
	for path, limit := range cfg.EndpointLimits {
		overrides[path] = ratelimit.Rule{Window: limit.Window(), Max: limit.Max}
	}

	return &Server{
		Profile:       profile,
		Limits:        ratelimit.NewRegistry(profile.RateLimitWindow, profile.RateLimitMax, overrides, nil),
		Allowlist:     security.NewAllowlist(cfg.AdminAllowlist),
		Platform:      client,
		Dispatch:      dispatcher,
		Audit:         store,
		Logger:        logger,
		Metrics:       NewMetrics(),
		TestMode:      testMode,
		apiKey:        cfg.APIKey,
		webhookSecret: cfg.WebhookSecret,
	}
}

// Router creates and configures the HTTP router.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))
	r.Use(s.logRequests)
	r.Use(s.corsMiddleware)
	r.Use(s.maxPayloadMiddleware)

	if !s.TestMode {
		r.Use(s.rateLimitMiddleware)
	}

	r.Get("/health", s.HandleHealth)
	r.Get("/metrics", s.Metrics.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.requireAPIKey)
			r.With(s.requireSignature).Post("/messages", s.HandleComposeMessage)
			r.Get("/guilds/{guildID}", s.HandleGetGuild)
		})

		// Admin-tagged routes pass the IP allow-list before any credential
		// check, so a disallowed origin always sees 403
		r.Group(func(r chi.Router) {
			r.Use(s.requireAllowedOrigin)
			r.Use(s.requireAPIKey)
			r.With(s.requireSignature).Post("/channels", s.HandleCreateChannel)
			r.With(s.requireSignature).Post("/roles", s.HandleCreateRole)
			r.With(s.requireSignature).Post("/webhooks", s.HandleCreateWebhook)
			r.Get("/security-events", s.HandleSecurityEvents)
		})
	})

	// Platform interaction callbacks are authenticated by signature only
	r.With(s.requireSignature).Post("/interactions", s.HandleInteraction)

	return r
}

// Start starts the HTTP server.
func (s *Server) Start(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	s.Logger.Info("Starting server", "addr", addr, "environment", s.Profile.Environment)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  HTTPReadTimeout,
		WriteTimeout: HTTPWriteTimeout,
		IdleTimeout:  HTTPIdleTimeout,
	}

	return server.ListenAndServe()
}

// Shutdown drains in-flight interaction work and closes the audit store.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.Dispatch != nil {
		s.Dispatch.Wait()
	}
	return s.Audit.Close()
}

// logRequests emits one structured log line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.Metrics.RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(ww.Status())).Inc()
			s.Logger.Info("http_request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds())
		}()

		next.ServeHTTP(ww, r)
	})
}
