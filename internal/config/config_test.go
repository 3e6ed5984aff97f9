package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"GENERATION_BACKEND", "GENERATION_TIMEOUT_SECONDS", "GENERATION_TEMPERATURE",
		"PARALLEL_JOIN", "API_RATE_LIMIT_RPS", "RESILIENCE_RETRY_MAX_ATTEMPTS",
		"RESILIENCE_BREAKER_OPEN_TIMEOUT_MS", "NATS_ENABLED", "APP_VERSION",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.GenerationBackend != BackendOllama {
		t.Fatalf("expected default backend ollama, got %q", cfg.GenerationBackend)
	}
	if cfg.GenerationTimeout() != 60*time.Second {
		t.Fatalf("expected 60s timeout, got %s", cfg.GenerationTimeout())
	}
	if cfg.GenerationTemperature != 0.7 {
		t.Fatalf("expected temperature 0.7, got %v", cfg.GenerationTemperature)
	}
	if !cfg.ParallelJoin {
		t.Fatalf("expected parallel join enabled by default")
	}
	if cfg.APIRateLimitRPS != 0 {
		t.Fatalf("expected rate limiting off by default, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.ResilienceRetryMaxAttempts != 1 {
		t.Fatalf("expected retries off by default, got %d", cfg.ResilienceRetryMaxAttempts)
	}
	if cfg.ResilienceBreakerOpenTimeout != 30*time.Second {
		t.Fatalf("expected 30s breaker open timeout, got %s", cfg.ResilienceBreakerOpenTimeout)
	}
	if cfg.NATSEnabled {
		t.Fatalf("expected nats disabled by default")
	}
	if cfg.AppVersion != "dev" {
		t.Fatalf("expected version dev, got %q", cfg.AppVersion)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("GENERATION_BACKEND", " Gemini ")
	t.Setenv("GENERATION_TIMEOUT_SECONDS", "15")
	t.Setenv("GENERATION_TOP_P", "0.5")
	t.Setenv("PARALLEL_JOIN", "false")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("RESILIENCE_RETRY_INITIAL_BACKOFF_MS", "50")

	cfg := Load()
	if cfg.GenerationBackend != BackendGemini {
		t.Fatalf("expected gemini backend, got %q", cfg.GenerationBackend)
	}
	if cfg.GenerationTimeout() != 15*time.Second {
		t.Fatalf("expected 15s timeout, got %s", cfg.GenerationTimeout())
	}
	if cfg.GenerationTopP != 0.5 {
		t.Fatalf("expected top_p 0.5, got %v", cfg.GenerationTopP)
	}
	if cfg.ParallelJoin {
		t.Fatalf("expected parallel join disabled")
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rps 2.5, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.ResilienceRetryInitialBackoff != 50*time.Millisecond {
		t.Fatalf("expected 50ms backoff, got %s", cfg.ResilienceRetryInitialBackoff)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("GENERATION_TIMEOUT_SECONDS", "soon")
	t.Setenv("GENERATION_TEMPERATURE", "warm")

	cfg := Load()
	if cfg.GenerationTimeoutSeconds != 60 {
		t.Fatalf("expected fallback timeout 60, got %d", cfg.GenerationTimeoutSeconds)
	}
	if cfg.GenerationTemperature != 0.7 {
		t.Fatalf("expected fallback temperature, got %v", cfg.GenerationTemperature)
	}
}
