package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/kirillkom/sunabot/internal/core/catalog"
	"github.com/kirillkom/sunabot/internal/core/domain"
	"github.com/kirillkom/sunabot/internal/core/ports"
)

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type generatorFake struct {
	mu       sync.Mutex
	text     string
	err      error
	block    bool
	requests []domain.GenerationRequest
}

func (f *generatorFake) Name() string { return "fake" }

func (f *generatorFake) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *generatorFake) lastRequest() domain.GenerationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return domain.GenerationRequest{}
	}
	return f.requests[len(f.requests)-1]
}

type demoFake struct{}

func (demoFake) Respond(_ string, intent domain.Intent) string {
	return "Respuesta de referencia para " + intent.Category().String() + ": https://www.sunat.gob.pe/sol.html"
}

func (demoFake) Demo(string) string { return "Modo demostración" }

type eventsFake struct {
	mu     sync.Mutex
	err    error
	events []domain.ConsultationEvent
}

func (f *eventsFake) PublishConsultation(_ context.Context, event domain.ConsultationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

type metricsFake struct {
	mu            sync.Mutex
	consultations []string
	outcomes      []string
	rejected      int
}

func (f *metricsFake) RecordConsultation(processingType string, _ domain.Category, _ bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.consultations = append(f.consultations, processingType)
}

func (f *metricsFake) RecordGeneration(_ string, outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcome)
}

func (f *metricsFake) RecordValidationRejected() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected++
}

type testKit struct {
	classifier *Classifier
	validator  *Validator
	enricher   *Enricher
	analyzer   *Analyzer
	prompts    *PromptBuilder
}

func newTestKit(sequential bool) testKit {
	c := catalog.Default()
	classifier := NewClassifier(c)
	validator := NewValidator(c)
	enricher := NewEnricher(c, "test", fixedClock)
	return testKit{
		classifier: classifier,
		validator:  validator,
		enricher:   enricher,
		analyzer:   NewAnalyzer(classifier, validator, enricher, sequential),
		prompts:    NewPromptBuilder(c),
	}
}

func publisherOrNil(f *eventsFake) ports.EventPublisher {
	if f == nil {
		return nil
	}
	return f
}

func metricsOrNil(f *metricsFake) ports.ConsultationMetrics {
	if f == nil {
		return nil
	}
	return f
}

func testSettings(timeout time.Duration) GenerationSettings {
	settings := DefaultGenerationSettings()
	settings.Timeout = timeout
	return settings
}
