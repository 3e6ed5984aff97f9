package usecase

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/sunabot/internal/core/domain"
)

// Step names of the analysis join. They double as JSON keys of domain.Analysis.
const (
	StepClassify = "categorizar"
	StepValidate = "validar"
	StepEnrich   = "enriquecer"
	StepMetadata = "metadatos"
)

// Step is one independent computation over a shared input.
type Step[In any] struct {
	Name string
	Run  func(ctx context.Context, in In) (any, error)
}

// Join runs every step concurrently over the same input and collects the
// outputs keyed by step name. The first failure cancels the rest.
func Join[In any](ctx context.Context, in In, steps ...Step[In]) (map[string]any, error) {
	if err := checkStepNames(steps); err != nil {
		return nil, err
	}

	results := make([]any, len(steps))
	g, gctx := errgroup.WithContext(ctx)
	for i, step := range steps {
		g.Go(func() error {
			out, err := step.Run(gctx, in)
			if err != nil {
				return fmt.Errorf("step %s: %w", step.Name, err)
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return collect(steps, results), nil
}

// JoinSequential runs the steps one after another with the same result
// shape as Join.
func JoinSequential[In any](ctx context.Context, in In, steps ...Step[In]) (map[string]any, error) {
	if err := checkStepNames(steps); err != nil {
		return nil, err
	}

	results := make([]any, len(steps))
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := step.Run(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", step.Name, err)
		}
		results[i] = out
	}
	return collect(steps, results), nil
}

func checkStepNames[In any](steps []Step[In]) error {
	seen := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		if step.Name == "" || step.Run == nil {
			return domain.WrapError(domain.ErrInvalidInput, "join", fmt.Errorf("step %q is incomplete", step.Name))
		}
		if _, dup := seen[step.Name]; dup {
			return domain.WrapError(domain.ErrInvalidInput, "join", fmt.Errorf("duplicate step %q", step.Name))
		}
		seen[step.Name] = struct{}{}
	}
	return nil
}

func collect[In any](steps []Step[In], results []any) map[string]any {
	joined := make(map[string]any, len(steps))
	for i, step := range steps {
		joined[step.Name] = results[i]
	}
	return joined
}

// Analyzer runs classification, validation, enrichment and metadata
// extraction over one message.
type Analyzer struct {
	classifier *Classifier
	validator  *Validator
	enricher   *Enricher

	// Sequential disables the concurrent join. Output is identical.
	Sequential bool
}

func NewAnalyzer(classifier *Classifier, validator *Validator, enricher *Enricher, sequential bool) *Analyzer {
	return &Analyzer{
		classifier: classifier,
		validator:  validator,
		enricher:   enricher,
		Sequential: sequential,
	}
}

func (a *Analyzer) steps() []Step[string] {
	return []Step[string]{
		{Name: StepClassify, Run: func(_ context.Context, message string) (any, error) {
			return a.classifier.Classify(message), nil
		}},
		{Name: StepValidate, Run: func(_ context.Context, message string) (any, error) {
			return a.validator.Validate(message), nil
		}},
		{Name: StepEnrich, Run: func(_ context.Context, message string) (any, error) {
			return a.enricher.EnrichRecord(a.classifier.Classify(message)), nil
		}},
		{Name: StepMetadata, Run: func(_ context.Context, message string) (any, error) {
			return ExtractMetadata(message), nil
		}},
	}
}

// ExtractMetadata counts runes and whitespace-separated words, and reports
// whether the message carries question or exclamation marks.
func ExtractMetadata(message string) domain.MessageMetadata {
	return domain.MessageMetadata{
		Length:         utf8.RuneCountInString(message),
		Words:          len(strings.Fields(message)),
		HasPunctuation: strings.ContainsAny(message, "?¿!¡"),
	}
}

func (a *Analyzer) Analyze(ctx context.Context, message string) (domain.Analysis, error) {
	join := Join[string]
	if a.Sequential {
		join = JoinSequential[string]
	}

	joined, err := join(ctx, message, a.steps()...)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("analyze message: %w", err)
	}

	classification, okClassify := joined[StepClassify].(domain.ClassificationResult)
	validation, okValidate := joined[StepValidate].(domain.ValidationResult)
	enriched, okEnrich := joined[StepEnrich].(domain.EnrichedRecord)
	metadata, okMetadata := joined[StepMetadata].(domain.MessageMetadata)
	if !okClassify || !okValidate || !okEnrich || !okMetadata {
		return domain.Analysis{}, fmt.Errorf("analyze message: unexpected step output types")
	}

	return domain.Analysis{
		Classification: classification,
		Validation:     validation,
		Enriched:       enriched,
		Metadata:       metadata,
	}, nil
}
