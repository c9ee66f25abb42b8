package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"chatgate/internal/audit"
	"chatgate/internal/config"
	"chatgate/internal/interaction"
	"chatgate/internal/platform"
	"chatgate/internal/server"
	"chatgate/pkg/fileutil"

	"github.com/spf13/cobra"
)

var (
	configFile string
	logFile    string
	auditDB    string
	host       string
	port       int
	testMode   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway",
	Long: `Start the HTTP gateway in front of the chat platform API.

The security profile is selected from the configured environment at startup;
invalid security settings abort the process before it accepts traffic.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&configFile, "config", "c", getEnvOrDefault("CHATGATE_CONFIG_FILE", ""), "Path to chatgate.yaml configuration file")
	serveCmd.Flags().StringVar(&logFile, "log", getEnvOrDefault("CHATGATE_LOG_FILE", "./chatgate.log"), "Path to log file")
	serveCmd.Flags().StringVar(&auditDB, "audit-db", getEnvOrDefault("CHATGATE_AUDIT_DB", "./security-events.db"), "Path to the SQLite security-event database")
	serveCmd.Flags().StringVar(&host, "host", "", "Host to bind to (overrides config)")
	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&testMode, "test-mode", os.Getenv("CHATGATE_TEST_MODE") == "1", "Enable test mode (no rate limiting, no audit persistence)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		searchPaths := fileutil.DefaultConfigPaths("chatgate.yaml")
		configFile = fileutil.SearchPathsOptional(searchPaths)
		if configFile == "" {
			fmt.Fprintf(os.Stderr, "Error: No configuration file found in default locations:\n")
			for _, path := range searchPaths {
				fmt.Fprintf(os.Stderr, "  - %s\n", path)
			}
			fmt.Fprintf(os.Stderr, "Use --config flag to specify a custom location\n")
			return fmt.Errorf("configuration file not found")
		}
	}

	logger, logFileHandle, err := setupLogging(logFile)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logFileHandle.Close()

	logger.Info("Starting chatgate")

	// Invalid security configuration aborts startup here
	logger.Info("Loading configuration", "config", configFile)
	cfg, profile, err := config.LoadConfig(configFile)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Info("Security profile selected",
		"environment", profile.Environment,
		"rate_limit_max", profile.RateLimitMax,
		"api_key_required", profile.APIKeyRequired,
		"signature_required", profile.WebhookSignatureRequired)

	var store *audit.Store
	if !testMode {
		logger.Info("Opening security-event store", "db", auditDB)
		store, err = audit.NewStore(auditDB)
		if err != nil {
			logger.Error("Failed to open security-event store", "error", err)
			return fmt.Errorf("failed to open security-event store: %w", err)
		}
	}

	client := platform.NewRESTClient(
		cfg.Platform.BaseURL,
		cfg.Platform.BotToken,
		time.Duration(cfg.Platform.TimeoutSeconds)*time.Second,
		cfg.Platform.RequestsPerSecond,
		cfg.Platform.Burst,
	)

	dispatcher := interaction.NewDispatcher(client, logger,
		interaction.WithTokenValidity(profile.TokenExpiration))

	srv := server.NewServer(cfg, profile, client, dispatcher, store, logger, testMode)

	if host == "" {
		host = cfg.Server.Host
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(host, port)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Error("Server failed", "error", err)
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		logger.Info("Shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown incomplete", "error", err)
		return err
	}
	logger.Info("Shutdown complete")
	return nil
}

// setupLogging configures slog for file logging
// Returns both the logger and the file handle (caller must close the file)
func setupLogging(logPath string) (*slog.Logger, *os.File, error) {
	logDir := filepath.Dir(logPath)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Open log file with secure permissions
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	handler := slog.NewJSONHandler(multiWriter, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	return slog.New(handler), file, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
