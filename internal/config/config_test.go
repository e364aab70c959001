package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AI_GATEWAY_API_KEY", "")
	t.Setenv("LOVABLE_API_KEY", "")
	t.Setenv("NATS_URL", "")

	cfg := Load()

	if cfg.ServerPort != "8080" {
		t.Errorf("expected port 8080, got %q", cfg.ServerPort)
	}
	if cfg.GatewayURL != DefaultGatewayURL {
		t.Errorf("expected gateway URL %q, got %q", DefaultGatewayURL, cfg.GatewayURL)
	}
	if cfg.Model != DefaultModel || cfg.ActionsModel != DefaultActionsModel {
		t.Errorf("unexpected models %q / %q", cfg.Model, cfg.ActionsModel)
	}
	if cfg.GatewayTimeout != 30*time.Second {
		t.Errorf("expected 30s gateway timeout, got %v", cfg.GatewayTimeout)
	}
	if cfg.FunctionTimeout != 100*time.Second || cfg.FunctionTimeout >= cfg.ServerWriteTimeout {
		t.Errorf("function timeout %v must default below write timeout %v", cfg.FunctionTimeout, cfg.ServerWriteTimeout)
	}
	if cfg.GatewayMaxAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", cfg.GatewayMaxAttempts)
	}
	if cfg.GatewayAPIKey != "" {
		t.Errorf("expected empty API key, got %q", cfg.GatewayAPIKey)
	}
	if cfg.EventsEnabled() {
		t.Error("events should be disabled without NATS_URL")
	}
}

func TestLoadLegacyAPIKey(t *testing.T) {
	t.Setenv("AI_GATEWAY_API_KEY", "")
	t.Setenv("LOVABLE_API_KEY", "legacy-key")

	if got := Load().GatewayAPIKey; got != "legacy-key" {
		t.Fatalf("expected legacy key fallback, got %q", got)
	}

	t.Setenv("AI_GATEWAY_API_KEY", "primary-key")
	if got := Load().GatewayAPIKey; got != "primary-key" {
		t.Fatalf("expected primary key to win, got %q", got)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("AI_GATEWAY_TIMEOUT", "5s")
	t.Setenv("AI_GATEWAY_MAX_ATTEMPTS", "1")
	t.Setenv("AI_GATEWAY_MAX_RPS", "2.5")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("RATE_LIMIT_WINDOW", "not-a-duration")

	cfg := Load()

	if cfg.ServerPort != "9090" {
		t.Errorf("expected port 9090, got %q", cfg.ServerPort)
	}
	if cfg.GatewayTimeout != 5*time.Second {
		t.Errorf("expected 5s, got %v", cfg.GatewayTimeout)
	}
	if cfg.GatewayMaxAttempts != 1 {
		t.Errorf("expected 1 attempt, got %d", cfg.GatewayMaxAttempts)
	}
	if cfg.GatewayMaxRPS != 2.5 {
		t.Errorf("expected 2.5 rps, got %v", cfg.GatewayMaxRPS)
	}
	if !cfg.TracingEnabled {
		t.Error("expected tracing enabled")
	}
	if !cfg.EventsEnabled() {
		t.Error("expected events enabled")
	}
	if cfg.RateLimitWindow != time.Minute {
		t.Errorf("invalid duration should keep default, got %v", cfg.RateLimitWindow)
	}
}
