package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.HealthPort != 8081 {
		t.Fatalf("expected health port 8081, got %d", cfg.Server.HealthPort)
	}
	if !cfg.Transports.HTTP.Enabled || cfg.Transports.HTTP.Port != 8080 {
		t.Fatalf("expected http transport enabled on 8080, got %+v", cfg.Transports.HTTP)
	}
	if cfg.Transports.GRPC.Enabled {
		t.Fatalf("expected grpc transport disabled by default")
	}
	if cfg.Analysis.Model != "gemini-2.5-flash" {
		t.Fatalf("expected default analysis model, got %q", cfg.Analysis.Model)
	}
	if cfg.Analysis.Timeout != 30*time.Second {
		t.Fatalf("expected 30s analysis timeout, got %v", cfg.Analysis.Timeout)
	}
	if cfg.Analysis.Image.MaxEdge != 1024 || cfg.Analysis.Image.Quality != 80 {
		t.Fatalf("expected image bounds 1024/80, got %+v", cfg.Analysis.Image)
	}
	if cfg.TTS.Model != "gemini-2.5-flash-preview-tts" || cfg.TTS.Voice != "Kore" {
		t.Fatalf("unexpected tts defaults: %+v", cfg.TTS)
	}
	if cfg.TTS.MaxChars != 1000 {
		t.Fatalf("expected tts max_chars 1000, got %d", cfg.TTS.MaxChars)
	}
	if cfg.Session.IdleTTL != 30*time.Minute {
		t.Fatalf("expected 30m idle ttl, got %v", cfg.Session.IdleTTL)
	}
	if cfg.History.RetentionMode != "ephemeral" {
		t.Fatalf("expected ephemeral history by default, got %q", cfg.History.RetentionMode)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "medassist.yaml")
	yaml := `
transports:
  http:
    port: 9090
  grpc:
    enabled: true
analysis:
  model: gemini-exp
  timeout: 5s
  image:
    max_edge: 512
tts:
  voice: Puck
session:
  idle_ttl: 1h
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Transports.HTTP.Port != 9090 {
		t.Fatalf("expected http port 9090, got %d", cfg.Transports.HTTP.Port)
	}
	if !cfg.Transports.GRPC.Enabled {
		t.Fatalf("expected grpc enabled from file")
	}
	if cfg.Analysis.Model != "gemini-exp" {
		t.Fatalf("expected model override, got %q", cfg.Analysis.Model)
	}
	if cfg.Analysis.Timeout != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %v", cfg.Analysis.Timeout)
	}
	if cfg.Analysis.Image.MaxEdge != 512 {
		t.Fatalf("expected max_edge 512, got %d", cfg.Analysis.Image.MaxEdge)
	}
	if cfg.Analysis.Image.Quality != 80 {
		t.Fatalf("expected default quality to survive partial override, got %d", cfg.Analysis.Image.Quality)
	}
	if cfg.TTS.Voice != "Puck" {
		t.Fatalf("expected voice override, got %q", cfg.TTS.Voice)
	}
	if cfg.Session.IdleTTL != time.Hour {
		t.Fatalf("expected 1h idle ttl, got %v", cfg.Session.IdleTTL)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MEDASSIST_ANALYSIS_MODEL", "gemini-env")
	t.Setenv("MEDASSIST_TTS_ENABLED", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Analysis.Model != "gemini-env" {
		t.Fatalf("expected env model override, got %q", cfg.Analysis.Model)
	}
	if cfg.TTS.Enabled {
		t.Fatalf("expected tts disabled via env")
	}
}

func TestAPIKeyResolution(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "resolved-secret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Gemini.APIKey != "resolved-secret" {
		t.Fatalf("expected resolved api key, got %q", cfg.Gemini.APIKey)
	}
	if cfg.Gemini.Key() != "resolved-secret" {
		t.Fatalf("expected Key() to return resolved secret, got %q", cfg.Gemini.Key())
	}
}

func TestAPIKeyUnresolved(t *testing.T) {
	g := GeminiConfig{APIKey: "${GEMINI_API_KEY}"}
	if g.Key() != "" {
		t.Fatalf("expected unresolved reference to read as missing, got %q", g.Key())
	}

	g = GeminiConfig{APIKey: "  literal-key  "}
	if g.Key() != "literal-key" {
		t.Fatalf("expected trimmed literal key, got %q", g.Key())
	}
}

func TestResolveEnvRef(t *testing.T) {
	t.Setenv("MEDASSIST_TEST_SECRET", "s3cr3t")

	if got := resolveEnvRef("${MEDASSIST_TEST_SECRET}"); got != "s3cr3t" {
		t.Fatalf("expected env resolution, got %q", got)
	}
	if got := resolveEnvRef("plain-value"); got != "plain-value" {
		t.Fatalf("expected plain value passthrough, got %q", got)
	}
	if got := resolveEnvRef("${MEDASSIST_TEST_UNSET}"); got != "${MEDASSIST_TEST_UNSET}" {
		t.Fatalf("expected unresolved reference to pass through, got %q", got)
	}
}
