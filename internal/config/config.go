// Package config loads Breakpoint's server configuration from a YAML file
// with environment-variable overrides, validates the merged result, and
// logs it back with secrets redacted.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/breakpointhq/breakpoint/internal/logging"
)

// OverlayDefaults is the room-level alert-overlay policy applied unless a
// room overrides it.
type OverlayDefaults struct {
	EnabledSources                   []string          `mapstructure:"enabled_sources"`
	PriorityOverrides                map[string]string `mapstructure:"priority_overrides"`
	TickerPosition                   string            `mapstructure:"ticker_position"`
	DashboardAutoExpandBetweenRounds bool              `mapstructure:"dashboard_auto_expand_between_rounds"`
	CriticalAlertPausesAll           bool              `mapstructure:"critical_alert_pauses_all"`
}

// GitHubAdapterConfig configures the opt-in GitHub Actions poller.
type GitHubAdapterConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Token            string        `mapstructure:"token"`
	Repos            []string      `mapstructure:"repos"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	AgentPatterns    []string      `mapstructure:"agent_patterns"`
}

// Limits bounds the server's in-memory resource usage.
type Limits struct {
	MaxRooms          int    `mapstructure:"max_rooms"`
	MaxSSESubscribers int    `mapstructure:"max_sse_subscribers"`
	MaxStoredEvents   int    `mapstructure:"max_stored_events"`
	BroadcastCapacity int    `mapstructure:"broadcast_capacity"`
	IngestRate        string `mapstructure:"ingest_rate"`
}

// Auth holds the optional REST bearer token and webhook HMAC secret.
type Auth struct {
	BearerToken         string `mapstructure:"bearer_token"`
	GitHubWebhookSecret string `mapstructure:"github_webhook_secret"`
	RequireSignature    bool   `mapstructure:"require_signature"`
	// SessionSecret signs reconnect session tokens (internal/auth). Left
	// empty, cmd/server generates an ephemeral secret at startup, which
	// invalidates session tokens across a restart but needs no operator
	// setup for a single-process deployment.
	SessionSecret string `mapstructure:"session_secret"`
}

// Config is the fully merged, validated server configuration.
type Config struct {
	ListenAddr string `mapstructure:"listen_addr"`
	WebRoot    string `mapstructure:"web_root"`
	GoEnv      string `mapstructure:"go_env"`
	LogLevel   string `mapstructure:"log_level"`

	Auth    Auth                `mapstructure:"auth"`
	Limits  Limits              `mapstructure:"limits"`
	Overlay OverlayDefaults     `mapstructure:"overlay"`
	GitHub  GitHubAdapterConfig `mapstructure:"github"`

	RedisAddr    string `mapstructure:"redis_addr"`
	RedisEnabled bool   `mapstructure:"redis_enabled"`

	IdleRoomTimeout time.Duration `mapstructure:"idle_room_timeout"`

	OTLPCollectorAddr string `mapstructure:"otlp_collector_addr"`
}

// Load reads breakpoint.yaml from the given path (or the default search
// path when empty), applies BREAKPOINT_-prefixed env overrides, and
// validates the merged result. When configPath is empty and no
// breakpoint.yaml is found on the search path, defaults are used; an
// explicit configPath that cannot be read, or a malformed file, is an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("breakpoint")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/breakpoint")
	}

	v.SetEnvPrefix("breakpoint")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("listen_addr", "BREAKPOINT_LISTEN_ADDR")
	_ = v.BindEnv("web_root", "BREAKPOINT_WEB_ROOT")
	_ = v.BindEnv("auth.bearer_token", "BREAKPOINT_API_TOKEN")
	_ = v.BindEnv("auth.github_webhook_secret", "BREAKPOINT_GITHUB_SECRET")
	_ = v.BindEnv("auth.session_secret", "BREAKPOINT_SESSION_SECRET")

	v.SetDefault("listen_addr", "0.0.0.0:8080")
	v.SetDefault("web_root", "web")
	v.SetDefault("go_env", "production")
	v.SetDefault("log_level", "info")
	v.SetDefault("limits.max_rooms", 1000)
	v.SetDefault("limits.max_sse_subscribers", 1000)
	v.SetDefault("limits.max_stored_events", 500)
	v.SetDefault("limits.broadcast_capacity", 1024)
	v.SetDefault("limits.ingest_rate", "5-S")
	v.SetDefault("overlay.ticker_position", "top")
	v.SetDefault("overlay.dashboard_auto_expand_between_rounds", true)
	v.SetDefault("overlay.critical_alert_pauses_all", false)
	v.SetDefault("github.poll_interval", 30*time.Second)
	v.SetDefault("github.agent_patterns", []string{
		"dependabot[bot]", "github-actions[bot]", "renovate[bot]", "*[bot]", "*-agent",
	})
	v.SetDefault("idle_room_timeout", time.Hour)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("config: parse breakpoint.yaml: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.logRedacted()
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []string
	if c.ListenAddr == "" {
		errs = append(errs, "listen_addr must not be empty")
	}
	if c.Limits.MaxRooms <= 0 {
		errs = append(errs, "limits.max_rooms must be positive")
	}
	if c.Limits.MaxStoredEvents <= 0 {
		errs = append(errs, "limits.max_stored_events must be positive")
	}
	if c.Limits.BroadcastCapacity <= 0 {
		errs = append(errs, "limits.broadcast_capacity must be positive")
	}
	if c.GitHub.Enabled && c.GitHub.Token == "" {
		errs = append(errs, "github.token is required when github.enabled is true")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) logRedacted() {
	logging.Info(context.Background(), "configuration loaded",
		zap.String("listen_addr", c.ListenAddr),
		zap.String("bearer_token", logging.RedactSecret(c.Auth.BearerToken)),
		zap.String("github_webhook_secret", logging.RedactSecret(c.Auth.GitHubWebhookSecret)),
		zap.String("session_secret", logging.RedactSecret(c.Auth.SessionSecret)),
	)
}
