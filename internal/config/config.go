// Package config handles loading and validating the medassist configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the medassist daemon.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Transports TransportsConfig `mapstructure:"transports"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	TTS        TTSConfig        `mapstructure:"tts"`
	Session    SessionConfig    `mapstructure:"session"`
	History    HistoryConfig    `mapstructure:"history"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
	HTTP HTTPConfig `mapstructure:"http"`
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// GeminiConfig holds the Google AI credential shared by the analysis and
// speech backends. APIKey supports "${GEMINI_API_KEY}" indirection so the
// secret can stay out of config files.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// AnalysisConfig configures the multimodal analysis backend.
type AnalysisConfig struct {
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
	Image   ImageConfig   `mapstructure:"image"`
}

// ImageConfig bounds uploaded images before they are sent to the model.
type ImageConfig struct {
	MaxEdge int `mapstructure:"max_edge"` // longest edge in pixels after resize
	Quality int `mapstructure:"quality"`  // JPEG re-encode quality (1-100)
}

// TTSConfig configures the speech synthesis backend.
type TTSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Model    string `mapstructure:"model"`
	Voice    string `mapstructure:"voice"`     // prebuilt voice name (e.g., "Kore")
	MaxChars int    `mapstructure:"max_chars"` // speech input truncation limit
}

// SessionConfig controls the in-memory session registry.
type SessionConfig struct {
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// HistoryConfig configures the consultation log.
type HistoryConfig struct {
	RetentionMode string `mapstructure:"retention_mode"` // "ephemeral" or "persistent"
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
	MaxSessions   int    `mapstructure:"max_sessions"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./medassist.yaml, ./configs/medassist.yaml, /etc/medassist/medassist.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.grpc.enabled", false)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("gemini.api_key", "${GEMINI_API_KEY}")
	v.SetDefault("analysis.model", "gemini-2.5-flash")
	v.SetDefault("analysis.timeout", "30s")
	v.SetDefault("analysis.image.max_edge", 1024)
	v.SetDefault("analysis.image.quality", 80)
	v.SetDefault("tts.enabled", true)
	v.SetDefault("tts.model", "gemini-2.5-flash-preview-tts")
	v.SetDefault("tts.voice", "Kore")
	v.SetDefault("tts.max_chars", 1000)
	v.SetDefault("session.idle_ttl", "30m")
	v.SetDefault("session.sweep_interval", "5m")
	v.SetDefault("history.retention_mode", "ephemeral")
	v.SetDefault("history.path", "data/medassist.db")
	v.SetDefault("history.retention_days", 30)
	v.SetDefault("history.max_sessions", 500)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("medassist")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/medassist")
	}

	// Environment variables: MEDASSIST_ANALYSIS_MODEL, MEDASSIST_TTS_VOICE, etc.
	v.SetEnvPrefix("MEDASSIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional; env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${GEMINI_API_KEY}")
	cfg.Gemini.APIKey = resolveEnvRef(cfg.Gemini.APIKey)

	return &cfg, nil
}

// Key returns the resolved API key. An unresolved "${...}" reference means
// the variable was absent from the environment, which reads as no key at all.
func (g GeminiConfig) Key() string {
	if strings.HasPrefix(g.APIKey, "${") {
		return ""
	}
	return strings.TrimSpace(g.APIKey)
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
