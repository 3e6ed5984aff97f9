package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
	BackendDemo   = "demo"
)

type Config struct {
	APIPort    string
	LogLevel   string
	AppVersion string

	CatalogPath string

	GenerationBackend        string
	GenerationTimeoutSeconds int
	GenerationTemperature    float64
	GenerationTopP           float64
	ParallelJoin             bool

	OllamaURL      string
	OllamaGenModel string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	GeminiAPIKey string
	GeminiModel  string

	NATSEnabled bool
	NATSURL     string
	NATSSubject string

	APIRateLimitRPS   float64
	APIRateLimitBurst int

	ResilienceRetryMaxAttempts    int
	ResilienceRetryInitialBackoff time.Duration
	ResilienceRetryMaxBackoff     time.Duration
	ResilienceBreakerEnabled      bool
	ResilienceBreakerMinRequests  int
	ResilienceBreakerFailureRatio float64
	ResilienceBreakerOpenTimeout  time.Duration

	WorkerMetricsPort string

	SunabotAPIURL string
}

func Load() Config {
	return Config{
		APIPort:    mustEnv("API_PORT", "8080"),
		LogLevel:   mustEnv("LOG_LEVEL", "info"),
		AppVersion: mustEnv("APP_VERSION", "dev"),

		CatalogPath: mustEnv("CATALOG_PATH", ""),

		GenerationBackend:        strings.ToLower(strings.TrimSpace(mustEnv("GENERATION_BACKEND", BackendOllama))),
		GenerationTimeoutSeconds: mustEnvInt("GENERATION_TIMEOUT_SECONDS", 60),
		GenerationTemperature:    mustEnvFloat("GENERATION_TEMPERATURE", 0.7),
		GenerationTopP:           mustEnvFloat("GENERATION_TOP_P", 0.9),
		ParallelJoin:             mustEnvBool("PARALLEL_JOIN", true),

		OllamaURL:      mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaGenModel: mustEnv("OLLAMA_GEN_MODEL", "llama3.1:8b"),

		OpenAIAPIKey:  mustEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: mustEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:   mustEnv("OPENAI_MODEL", "gpt-4o-mini"),

		GeminiAPIKey: mustEnv("GEMINI_API_KEY", ""),
		GeminiModel:  mustEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		NATSEnabled: mustEnvBool("NATS_ENABLED", false),
		NATSURL:     mustEnv("NATS_URL", "nats://localhost:4222"),
		NATSSubject: mustEnv("NATS_SUBJECT", "sunabot.consultations"),

		APIRateLimitRPS:   mustEnvFloat("API_RATE_LIMIT_RPS", 0),
		APIRateLimitBurst: mustEnvInt("API_RATE_LIMIT_BURST", 20),

		ResilienceRetryMaxAttempts:    mustEnvInt("RESILIENCE_RETRY_MAX_ATTEMPTS", 1),
		ResilienceRetryInitialBackoff: mustEnvDurationMillis("RESILIENCE_RETRY_INITIAL_BACKOFF_MS", 200*time.Millisecond),
		ResilienceRetryMaxBackoff:     mustEnvDurationMillis("RESILIENCE_RETRY_MAX_BACKOFF_MS", time.Second),
		ResilienceBreakerEnabled:      mustEnvBool("RESILIENCE_BREAKER_ENABLED", true),
		ResilienceBreakerMinRequests:  mustEnvInt("RESILIENCE_BREAKER_MIN_REQUESTS", 5),
		ResilienceBreakerFailureRatio: mustEnvFloat("RESILIENCE_BREAKER_FAILURE_RATIO", 0.6),
		ResilienceBreakerOpenTimeout:  mustEnvDurationMillis("RESILIENCE_BREAKER_OPEN_TIMEOUT_MS", 30*time.Second),

		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),

		SunabotAPIURL: mustEnv("SUNABOT_API_URL", "http://localhost:8080"),
	}
}

func (c Config) GenerationTimeout() time.Duration {
	if c.GenerationTimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.GenerationTimeoutSeconds) * time.Second
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustEnvDurationMillis(key string, fallback time.Duration) time.Duration {
	ms := mustEnvInt(key, -1)
	if ms < 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
