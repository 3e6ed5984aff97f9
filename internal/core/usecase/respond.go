package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/sunabot/internal/core/domain"
	"github.com/kirillkom/sunabot/internal/core/ports"
)

const (
	TechniqueSystemMessages  = "Sistema de Mensajes"
	TechniqueChainOfThought  = "Cadena de Pensamiento (CoT)"
	TechniquePipeline        = "Pipeline paralelo + secuencial"
	TechniqueDefinition      = "Definición especializada"
	TechniquePredetermined   = "Respuestas predeterminadas"
	TechniqueContinuation    = "Continuación contextual"
	TechniqueDemo            = "Modo Demostración"
	techniqueSpecialistCoTFn = "Sistema especializado + CoT (%s)"
)

const demoBackendName = "demo"

const apologyText = "Lo siento, no pude generar una respuesta con el modelo en este momento. " +
	"Mientras tanto, esta información de referencia puede ayudarte:"

const (
	generationOutcomeSuccess = "success"
	generationOutcomeError   = "error"
	generationOutcomeTimeout = "timeout"
)

// GenerationSettings are the per-call options shared by every generation path.
type GenerationSettings struct {
	Timeout     time.Duration
	Temperature float64
	TopP        float64
}

// DefaultGenerationSettings returns the documented sampling defaults. A zero
// temperature is a valid deterministic setting and is passed through.
func DefaultGenerationSettings() GenerationSettings {
	return GenerationSettings{
		Timeout:     60 * time.Second,
		Temperature: domain.DefaultTemperature,
		TopP:        domain.DefaultTopP,
	}
}

func (s GenerationSettings) normalize() GenerationSettings {
	if s.Timeout <= 0 {
		s.Timeout = 60 * time.Second
	}
	if s.Temperature < 0 {
		s.Temperature = domain.DefaultTemperature
	}
	if s.TopP <= 0 || s.TopP > 1 {
		s.TopP = domain.DefaultTopP
	}
	return s
}

// responder owns the backend call and everything after it: timeout,
// degradation, linkification, events and metrics.
type responder struct {
	generator ports.TextGenerator
	demo      ports.DemoResponseProvider
	events    ports.EventPublisher
	metrics   ports.ConsultationMetrics
	settings  GenerationSettings
	logger    *slog.Logger
	now       func() time.Time
}

func newResponder(
	generator ports.TextGenerator,
	demo ports.DemoResponseProvider,
	events ports.EventPublisher,
	metrics ports.ConsultationMetrics,
	settings GenerationSettings,
	logger *slog.Logger,
) *responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &responder{
		generator: generator,
		demo:      demo,
		events:    events,
		metrics:   metrics,
		settings:  settings.normalize(),
		logger:    logger,
		now:       time.Now,
	}
}

func (r *responder) backendName() string {
	if r.generator == nil {
		return demoBackendName
	}
	return r.generator.Name()
}

func (r *responder) hasBackend() bool {
	return r.generator != nil
}

func (r *responder) request(prompt string, maxTokens int) domain.GenerationRequest {
	return domain.GenerationRequest{
		Prompt:        prompt,
		MaxTokens:     maxTokens,
		Temperature:   r.settings.Temperature,
		TopP:          r.settings.TopP,
		StopSequences: StopSequences(),
	}.WithDefaults()
}

// generate is the only call subject to the generation timeout.
func (r *responder) generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	if r.generator == nil {
		return "", domain.NewGenerationError(demoBackendName, domain.ErrBackendUnavailable)
	}

	genCtx, cancel := context.WithTimeout(ctx, r.settings.Timeout)
	defer cancel()

	started := r.now()
	text, err := r.generator.Generate(genCtx, req)
	elapsed := r.now().Sub(started)

	if err == nil {
		text = strings.TrimSpace(text)
		if text == "" {
			err = errors.New("backend returned an empty completion")
		}
	}
	if err != nil {
		outcome := generationOutcomeError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(genCtx.Err(), context.DeadlineExceeded) {
			outcome = generationOutcomeTimeout
		}
		r.recordGeneration(outcome, elapsed)

		var genErr *domain.GenerationError
		if !errors.As(err, &genErr) {
			err = domain.NewGenerationError(r.generator.Name(), err)
		}
		return "", err
	}

	r.recordGeneration(generationOutcomeSuccess, elapsed)
	return text, nil
}

// applyText linkifies once and fills the text fields of the response.
func applyText(resp *domain.StructuredResponse, text string) {
	linked := Linkify(text)
	resp.ResponseText = linked.HTML
	resp.IncludedLinks = linked.Links
}

// degrade turns a failed generation into a well-formed response carrying
// canned reference content.
func (r *responder) degrade(ctx context.Context, resp *domain.StructuredResponse, message string, intent domain.Intent, cause error) {
	r.logger.WarnContext(ctx, "generation_failed",
		"backend", r.backendName(),
		"processing_type", resp.ProcessingType,
		"category", resp.Category,
		"error", cause,
	)
	text := apologyText
	if r.demo != nil {
		text += "\n\n" + r.demo.Respond(message, intent)
	}
	applyText(resp, text)
	resp.IsAIGenerated = false
	resp.ErrorDetail = cause.Error()
}

// demoResponse labels an answer produced without any backend.
func (r *responder) demoResponse(resp *domain.StructuredResponse, message string, intent domain.Intent) {
	var parts []string
	if r.demo != nil {
		parts = append(parts, r.demo.Demo(message), r.demo.Respond(message, intent))
	}
	if len(parts) == 0 {
		parts = append(parts, apologyText)
	}
	applyText(resp, strings.Join(parts, "\n\n"))
	resp.IsAIGenerated = false
	resp.ProcessingType = domain.ProcessingDemo
	resp.TechniqueLabel = TechniqueDemo
	resp.Backend = demoBackendName
}

// finish normalizes the response and emits analytics. Publishing failures
// are logged and never reach the caller.
func (r *responder) finish(ctx context.Context, resp *domain.StructuredResponse, started time.Time) *domain.StructuredResponse {
	resp.Normalize()
	if resp.Backend == "" {
		resp.Backend = r.backendName()
	}

	if r.metrics != nil {
		r.metrics.RecordConsultation(resp.ProcessingType, resp.Category, resp.IsAIGenerated)
	}
	if r.events != nil {
		event := domain.ConsultationEvent{
			Category:       resp.Category,
			Confidence:     resp.Confidence,
			IsAIGenerated:  resp.IsAIGenerated,
			ProcessingType: resp.ProcessingType,
			Backend:        resp.Backend,
			Degraded:       resp.Degraded(),
			LatencyMillis:  r.now().Sub(started).Milliseconds(),
			OccurredAt:     r.now().UTC(),
		}
		if err := r.events.PublishConsultation(ctx, event); err != nil {
			r.logger.WarnContext(ctx, "consultation_event_publish_failed",
				"processing_type", resp.ProcessingType,
				"error", err,
			)
		}
	}
	return resp
}

func (r *responder) recordGeneration(outcome string, elapsed time.Duration) {
	if r.metrics != nil {
		r.metrics.RecordGeneration(r.backendName(), outcome, elapsed)
	}
}

func specialistTechnique(category domain.Category) string {
	return fmt.Sprintf(techniqueSpecialistCoTFn, category)
}
