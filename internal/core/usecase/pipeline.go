package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/sunabot/internal/core/domain"
	"github.com/kirillkom/sunabot/internal/core/ports"
)

// PipelineUseCase validates, runs the parallel analysis and then feeds the
// joined category through prompt, generation and linkification.
type PipelineUseCase struct {
	classifier *Classifier
	validator  *Validator
	analyzer   *Analyzer
	prompts    *PromptBuilder
	responder  *responder
}

func NewPipelineUseCase(
	classifier *Classifier,
	validator *Validator,
	analyzer *Analyzer,
	prompts *PromptBuilder,
	generator ports.TextGenerator,
	demo ports.DemoResponseProvider,
	events ports.EventPublisher,
	metrics ports.ConsultationMetrics,
	settings GenerationSettings,
	logger *slog.Logger,
) *PipelineUseCase {
	return &PipelineUseCase{
		classifier: classifier,
		validator:  validator,
		analyzer:   analyzer,
		prompts:    prompts,
		responder:  newResponder(generator, demo, events, metrics, settings, logger),
	}
}

func (uc *PipelineUseCase) Run(ctx context.Context, input domain.ConsultaInput) (*domain.StructuredResponse, error) {
	message := strings.TrimSpace(input.Message)
	if input.Category != nil && !input.Category.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "run pipeline", fmt.Errorf("unknown category %q", *input.Category))
	}
	maxTokens, err := resolveMaxLength(input.MaxLength)
	if err != nil {
		return nil, err
	}

	validation, err := uc.validator.Check(input.Message)
	if err != nil {
		if uc.responder.metrics != nil {
			uc.responder.metrics.RecordValidationRejected()
		}
		return nil, err
	}

	started := uc.responder.now()
	analysis, err := uc.analyzer.Analyze(ctx, message)
	if err != nil {
		return nil, err
	}

	intent := domain.Intent{
		Classification: analysis.Classification,
		Soft:           uc.classifier.DetectIntent(message).Soft,
	}
	if input.Category != nil {
		intent = withCategory(intent, *input.Category)
	}

	resp := &domain.StructuredResponse{
		Category:       intent.Category(),
		Confidence:     intent.Classification.Confidence,
		TechniqueLabel: TechniquePipeline,
		IsAIGenerated:  true,
		ProcessingType: domain.ProcessingPipeline,
		Validation:     &validation,
		Analysis:       &analysis,
	}

	prompt, err := uc.buildPrompt(message, intent)
	if err != nil {
		return nil, err
	}

	if !uc.responder.hasBackend() {
		uc.responder.demoResponse(resp, message, intent)
		return uc.responder.finish(ctx, resp, started), nil
	}

	text, err := uc.responder.generate(ctx, uc.responder.request(prompt, maxTokens))
	if err != nil {
		uc.responder.degrade(ctx, resp, message, intent, err)
		return uc.responder.finish(ctx, resp, started), nil
	}
	applyText(resp, text)
	return uc.responder.finish(ctx, resp, started), nil
}

func (uc *PipelineUseCase) buildPrompt(message string, intent domain.Intent) (string, error) {
	if intent.Soft != domain.SoftIntentNone {
		return uc.prompts.BuildDefinitionPrompt(message, intent.Soft)
	}
	category := intent.Category()
	return uc.prompts.BuildPrompt(message, &category, PromptModeCategory)
}
