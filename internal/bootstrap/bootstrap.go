package bootstrap

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/sunabot/internal/config"
	"github.com/kirillkom/sunabot/internal/core/catalog"
	"github.com/kirillkom/sunabot/internal/core/ports"
	"github.com/kirillkom/sunabot/internal/core/usecase"
	"github.com/kirillkom/sunabot/internal/infrastructure/events/nats"
	"github.com/kirillkom/sunabot/internal/infrastructure/llm/demo"
	"github.com/kirillkom/sunabot/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/sunabot/internal/infrastructure/llm/openai"
	"github.com/kirillkom/sunabot/internal/infrastructure/resilience"
	"github.com/kirillkom/sunabot/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Catalog     *catalog.Catalog
	Consult     *usecase.ConsultUseCase
	Pipeline    *usecase.PipelineUseCase
	Bus         *nats.Bus
	HTTPMetrics *metrics.HTTPServerMetrics
	Backend     string

	closeFn func()
}

// New wires the consultation core for one process. service names the
// process in metrics labels.
func New(cfg config.Config, service string, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	httpMetrics := metrics.NewHTTPServerMetrics(service)

	genExec := resilience.NewExecutor(resilienceConfig(cfg),
		resilience.WithLogger(logger),
		resilience.WithStateObserver(httpMetrics.ObserveBreakerState),
	)
	generator, backend, err := newGenerator(cfg, genExec)
	if err != nil {
		return nil, err
	}

	demoProvider, err := demo.New(cat)
	if err != nil {
		return nil, fmt.Errorf("init demo answers: %w", err)
	}

	var (
		bus    *nats.Bus
		events ports.EventPublisher
	)
	if cfg.NATSEnabled {
		bus, err = NewEventBus(cfg, logger)
		if err != nil {
			return nil, err
		}
		events = bus
	}

	classifier := usecase.NewClassifier(cat)
	validator := usecase.NewValidator(cat)
	enricher := usecase.NewEnricher(cat, cfg.AppVersion, time.Now)
	analyzer := usecase.NewAnalyzer(classifier, validator, enricher, !cfg.ParallelJoin)
	prompts := usecase.NewPromptBuilder(cat)
	settings := usecase.GenerationSettings{
		Timeout:     cfg.GenerationTimeout(),
		Temperature: cfg.GenerationTemperature,
		TopP:        cfg.GenerationTopP,
	}

	consult := usecase.NewConsultUseCase(classifier, analyzer, prompts, generator, demoProvider, events, httpMetrics, settings, logger)
	pipeline := usecase.NewPipelineUseCase(classifier, validator, analyzer, prompts, generator, demoProvider, events, httpMetrics, settings, logger)

	logger.Info("sunabot_core_ready",
		"backend", backend,
		"catalog", catalogSource(cfg.CatalogPath),
		"events_enabled", bus != nil,
		"parallel_join", cfg.ParallelJoin,
	)

	return &App{
		Config:      cfg,
		Catalog:     cat,
		Consult:     consult,
		Pipeline:    pipeline,
		Bus:         bus,
		HTTPMetrics: httpMetrics,
		Backend:     backend,
		closeFn: func() {
			if bus != nil {
				bus.Close()
			}
		},
	}, nil
}

// NewEventBus connects to NATS with its own breaker so a broker outage
// never trips the generation breaker.
func NewEventBus(cfg config.Config, logger *slog.Logger) (*nats.Bus, error) {
	exec := resilience.NewExecutor(resilienceConfig(cfg), resilience.WithLogger(logger))
	bus, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: exec,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init event bus: %w", err)
	}
	return bus, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return catalog.Default(), nil
	}
	c, err := catalog.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return c, nil
}

func catalogSource(path string) string {
	if strings.TrimSpace(path) == "" {
		return "embedded"
	}
	return path
}

// newGenerator returns a nil generator for the demo backend. The interface
// stays untyped nil so the use cases see no backend at all.
func newGenerator(cfg config.Config, exec *resilience.Executor) (ports.TextGenerator, string, error) {
	switch cfg.GenerationBackend {
	case config.BackendDemo:
		return nil, config.BackendDemo, nil
	case config.BackendOllama, "":
		client := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel)
		return resilience.GuardGenerator(client, exec, ollama.ClassifyError), config.BackendOllama, nil
	case config.BackendOpenAI:
		client, err := openai.New(openai.Options{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		})
		if err != nil {
			return nil, "", fmt.Errorf("init openai backend: %w", err)
		}
		return resilience.GuardGenerator(client, exec, openai.ClassifyError), config.BackendOpenAI, nil
	case config.BackendGemini:
		client, err := openai.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, "", fmt.Errorf("init gemini backend: %w", err)
		}
		return resilience.GuardGenerator(client, exec, openai.ClassifyError), config.BackendGemini, nil
	default:
		return nil, "", fmt.Errorf("unknown generation backend %q", cfg.GenerationBackend)
	}
}

func resilienceConfig(cfg config.Config) resilience.Config {
	rc := resilience.DefaultConfig()
	rc.RetryMaxAttempts = cfg.ResilienceRetryMaxAttempts
	rc.RetryInitialBackoff = cfg.ResilienceRetryInitialBackoff
	rc.RetryMaxBackoff = cfg.ResilienceRetryMaxBackoff
	rc.BreakerEnabled = cfg.ResilienceBreakerEnabled
	if cfg.ResilienceBreakerMinRequests > 0 {
		rc.BreakerMinRequests = uint32(cfg.ResilienceBreakerMinRequests)
	}
	rc.BreakerFailureRatio = cfg.ResilienceBreakerFailureRatio
	rc.BreakerOpenTimeout = cfg.ResilienceBreakerOpenTimeout
	return rc
}
