package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/sunabot/internal/core/domain"
	"github.com/kirillkom/sunabot/internal/core/ports"
)

const explicitCategoryConfidence = 1.0

// ConsultUseCase answers single consultations and continuations.
type ConsultUseCase struct {
	classifier *Classifier
	analyzer   *Analyzer
	prompts    *PromptBuilder
	responder  *responder
}

func NewConsultUseCase(
	classifier *Classifier,
	analyzer *Analyzer,
	prompts *PromptBuilder,
	generator ports.TextGenerator,
	demo ports.DemoResponseProvider,
	events ports.EventPublisher,
	metrics ports.ConsultationMetrics,
	settings GenerationSettings,
	logger *slog.Logger,
) *ConsultUseCase {
	return &ConsultUseCase{
		classifier: classifier,
		analyzer:   analyzer,
		prompts:    prompts,
		responder:  newResponder(generator, demo, events, metrics, settings, logger),
	}
}

func (uc *ConsultUseCase) Answer(ctx context.Context, input domain.ConsultaInput) (*domain.StructuredResponse, error) {
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer consultation", fmt.Errorf("message is required"))
	}
	maxTokens, err := resolveMaxLength(input.MaxLength)
	if err != nil {
		return nil, err
	}
	if input.Category != nil && !input.Category.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer consultation", fmt.Errorf("unknown category %q", *input.Category))
	}
	mode := input.Mode
	if mode == "" {
		mode = domain.ModeGeneral
	}

	started := uc.responder.now()
	intent := uc.classifier.DetectIntent(message)

	switch mode {
	case domain.ModePredetermined:
		return uc.predetermined(ctx, message, input.Category, intent, started), nil
	case domain.ModeCategory:
		if input.Category == nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "answer consultation", fmt.Errorf("mode %q requires a category", mode))
		}
		return uc.categoryAnswer(ctx, message, *input.Category, intent, maxTokens, started)
	case domain.ModeGeneral:
		return uc.generalAnswer(ctx, message, input.Category, intent, maxTokens, started)
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer consultation", fmt.Errorf("unknown mode %q", mode))
	}
}

func (uc *ConsultUseCase) generalAnswer(
	ctx context.Context,
	message string,
	explicit *domain.Category,
	intent domain.Intent,
	maxTokens int,
	started time.Time,
) (*domain.StructuredResponse, error) {
	resp := &domain.StructuredResponse{
		Category:       intent.Category(),
		Confidence:     intent.Classification.Confidence,
		IsAIGenerated:  true,
		ProcessingType: domain.ProcessingGeneral,
	}

	var (
		prompt string
		err    error
	)
	switch {
	case explicit != nil:
		resp.Category = *explicit
		resp.Confidence = explicitCategoryConfidence
		resp.TechniqueLabel = specialistTechnique(*explicit)
		prompt, err = uc.prompts.BuildPrompt(message, explicit, PromptModeCategory)
	case intent.Soft != domain.SoftIntentNone:
		resp.TechniqueLabel = TechniqueDefinition
		prompt, err = uc.prompts.BuildDefinitionPrompt(message, intent.Soft)
	case intent.Classification.Category != domain.CategoryOtros:
		category := intent.Classification.Category
		resp.TechniqueLabel = specialistTechnique(category)
		prompt, err = uc.prompts.BuildPrompt(message, &category, PromptModeCategory)
	default:
		resp.TechniqueLabel = TechniqueChainOfThought
		prompt, err = uc.prompts.BuildPrompt(message, nil, PromptModeGeneral)
	}
	if err != nil {
		return nil, err
	}

	uc.generateInto(ctx, resp, message, intent, prompt, maxTokens)
	return uc.responder.finish(ctx, resp, started), nil
}

func (uc *ConsultUseCase) categoryAnswer(
	ctx context.Context,
	message string,
	category domain.Category,
	intent domain.Intent,
	maxTokens int,
	started time.Time,
) (*domain.StructuredResponse, error) {
	prompt, err := uc.prompts.BuildPrompt(message, &category, PromptModeCategory)
	if err != nil {
		return nil, err
	}
	resp := &domain.StructuredResponse{
		Category:       category,
		Confidence:     explicitCategoryConfidence,
		TechniqueLabel: TechniqueSystemMessages,
		IsAIGenerated:  true,
		ProcessingType: domain.ProcessingCategory,
	}
	uc.generateInto(ctx, resp, message, withCategory(intent, category), prompt, maxTokens)
	return uc.responder.finish(ctx, resp, started), nil
}

func (uc *ConsultUseCase) predetermined(
	ctx context.Context,
	message string,
	explicit *domain.Category,
	intent domain.Intent,
	started time.Time,
) *domain.StructuredResponse {
	resp := &domain.StructuredResponse{
		Category:       intent.Category(),
		Confidence:     intent.Classification.Confidence,
		TechniqueLabel: TechniquePredetermined,
		IsAIGenerated:  false,
		ProcessingType: domain.ProcessingPredetermined,
		Backend:        demoBackendName,
	}
	if explicit != nil {
		intent = withCategory(intent, *explicit)
		resp.Category = *explicit
		resp.Confidence = explicitCategoryConfidence
	}
	text := apologyText
	if uc.responder.demo != nil {
		text = uc.responder.demo.Respond(message, intent)
	}
	applyText(resp, text)
	return uc.responder.finish(ctx, resp, started)
}

// Continue extends a previous answer with the continuation template.
func (uc *ConsultUseCase) Continue(ctx context.Context, input domain.ContinuationInput) (*domain.StructuredResponse, error) {
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "continue consultation", fmt.Errorf("message is required"))
	}
	category := input.Category
	confidence := explicitCategoryConfidence
	if !category.Valid() {
		category = domain.CategoryOtros
		confidence = fallbackConfidence
	}

	started := uc.responder.now()
	resp := &domain.StructuredResponse{
		Category:       category,
		Confidence:     confidence,
		TechniqueLabel: TechniqueContinuation,
		IsAIGenerated:  true,
		ProcessingType: domain.ProcessingContinuation,
	}
	prompt := uc.prompts.BuildContinuationPrompt(input.Context, message, category)
	intent := withCategory(uc.classifier.DetectIntent(message), category)
	uc.generateInto(ctx, resp, message, intent, prompt, domain.ContinuationMaxTokens)
	return uc.responder.finish(ctx, resp, started), nil
}

// Classify exposes the parallel analysis without generation.
func (uc *ConsultUseCase) Classify(ctx context.Context, message string) (*domain.Analysis, error) {
	analysis, err := uc.analyzer.Analyze(ctx, message)
	if err != nil {
		return nil, err
	}
	return &analysis, nil
}

func (uc *ConsultUseCase) generateInto(
	ctx context.Context,
	resp *domain.StructuredResponse,
	message string,
	intent domain.Intent,
	prompt string,
	maxTokens int,
) {
	if !uc.responder.hasBackend() {
		uc.responder.demoResponse(resp, message, intent)
		return
	}
	text, err := uc.responder.generate(ctx, uc.responder.request(prompt, maxTokens))
	if err != nil {
		uc.responder.degrade(ctx, resp, message, intent, err)
		return
	}
	applyText(resp, text)
}

func resolveMaxLength(raw int) (int, error) {
	if raw == 0 {
		return domain.DefaultMaxLength, nil
	}
	if raw < domain.MinMaxLength || raw > domain.MaxMaxLength {
		return 0, domain.WrapError(domain.ErrInvalidInput, "resolve max_length",
			fmt.Errorf("max_length must be between %d and %d, got %d", domain.MinMaxLength, domain.MaxMaxLength, raw))
	}
	return raw, nil
}

// withCategory pins the strict classification to a caller-chosen category.
func withCategory(intent domain.Intent, category domain.Category) domain.Intent {
	if intent.Classification.Category != category {
		intent.Classification.Category = category
		intent.Classification.Confidence = explicitCategoryConfidence
		intent.Soft = domain.SoftIntentNone
	}
	return intent
}
