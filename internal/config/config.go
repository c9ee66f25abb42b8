package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"chatgate/internal/security"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHost            = "127.0.0.1"
	DefaultPort            = 5000
	DefaultPlatformTimeout = 10 // seconds
	DefaultOutboundRPS     = 25
	DefaultOutboundBurst   = 50
)

// ConfigurationError is fatal: it aborts process startup so the gateway
// never runs with invalid security settings.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration:\n%s", strings.Join(e.Problems, "\n"))
}

// EndpointLimit is a per-endpoint rate-limit override, stricter than the
// profile-wide window.
type EndpointLimit struct {
	WindowSeconds int `yaml:"window_seconds"`
	Max           int `yaml:"max"`
}

// Window returns the override window as a duration.
func (l EndpointLimit) Window() time.Duration {
	return time.Duration(l.WindowSeconds) * time.Second
}

// PlatformConfig holds settings for the outbound chat-platform client.
type PlatformConfig struct {
	BaseURL           string  `yaml:"base_url"`
	BotToken          string  `yaml:"bot_token"`
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Config is the raw gateway configuration as loaded from YAML.
type Config struct {
	Environment    string                   `yaml:"environment"`
	APIKey         string                   `yaml:"api_key"`
	WebhookSecret  string                   `yaml:"webhook_secret"`
	EncryptionKey  string                   `yaml:"encryption_key"`
	AdminAllowlist []string                 `yaml:"admin_allowlist"`
	EndpointLimits map[string]EndpointLimit `yaml:"endpoint_limits"`
	Platform       PlatformConfig           `yaml:"platform"`
	Server         ServerConfig             `yaml:"server"`
}

// LoadConfig loads and validates the gateway configuration from a YAML
// file, resolves the security profile for the configured environment, and
// fails fast on any invalid security setting.
func LoadConfig(configPath string) (*Config, SecurityProfile, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, SecurityProfile{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, SecurityProfile{}, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	profile, err := SelectProfile(cfg.Environment)
	if err != nil {
		return nil, SecurityProfile{}, err
	}

	if problems := ValidateConfig(&cfg, profile); len(problems) > 0 {
		return nil, SecurityProfile{}, &ConfigurationError{Problems: problems}
	}

	return &cfg, profile, nil
}

// ValidateConfig checks the configured secrets against the requirements of
// the selected profile. It returns one entry per problem so operators see
// everything wrong at once.
func ValidateConfig(cfg *Config, profile SecurityProfile) []string {
	var problems []string

	if profile.APIKeyRequired || cfg.APIKey != "" {
		if err := security.ValidateAPIKey(cfg.APIKey); err != nil {
			problems = append(problems, fmt.Sprintf("  - api_key: %v", err))
		}
	}

	if profile.WebhookSignatureRequired || cfg.WebhookSecret != "" {
		if err := security.ValidateWebhookSecret(cfg.WebhookSecret); err != nil {
			problems = append(problems, fmt.Sprintf("  - webhook_secret: %v", err))
		}
	}

	if profile.Environment == EnvProduction || cfg.EncryptionKey != "" {
		if err := security.ValidateEncryptionKey(cfg.EncryptionKey); err != nil {
			problems = append(problems, fmt.Sprintf("  - encryption_key: %v", err))
		}
	}

	for path, limit := range cfg.EndpointLimits {
		if !strings.HasPrefix(path, "/") {
			problems = append(problems, fmt.Sprintf("  - endpoint_limits: path '%s' must start with '/'", path))
		}
		if limit.WindowSeconds <= 0 {
			problems = append(problems, fmt.Sprintf("  - endpoint_limits['%s']: window_seconds must be positive, got %d", path, limit.WindowSeconds))
		}
		if limit.Max <= 0 {
			problems = append(problems, fmt.Sprintf("  - endpoint_limits['%s']: max must be positive, got %d", path, limit.Max))
		}
	}

	if cfg.Platform.BaseURL != "" && !strings.HasPrefix(cfg.Platform.BaseURL, "https://") {
		problems = append(problems, fmt.Sprintf("  - platform.base_url: must be an HTTPS URL, got '%s'", cfg.Platform.BaseURL))
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("  - server.port: must be in 1-65535, got %d", cfg.Server.Port))
	}

	return problems
}

// applyEnvOverrides lets secrets come from the environment instead of the
// config file, so the file can be committed without credentials.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CHATGATE_ENV"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("CHATGATE_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("CHATGATE_WEBHOOK_SECRET"); v != "" {
		cfg.WebhookSecret = v
	}
	if v := os.Getenv("CHATGATE_ENCRYPTION_KEY"); v != "" {
		cfg.EncryptionKey = v
	}
	if v := os.Getenv("CHATGATE_BOT_TOKEN"); v != "" {
		cfg.Platform.BotToken = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = EnvDevelopment
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Platform.TimeoutSeconds == 0 {
		cfg.Platform.TimeoutSeconds = DefaultPlatformTimeout
	}
	if cfg.Platform.RequestsPerSecond == 0 {
		cfg.Platform.RequestsPerSecond = DefaultOutboundRPS
	}
	if cfg.Platform.Burst == 0 {
		cfg.Platform.Burst = DefaultOutboundBurst
	}
	if cfg.EndpointLimits == nil {
		cfg.EndpointLimits = make(map[string]EndpointLimit)
	}
}
