package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/sunabot/internal/core/domain"
	"github.com/kirillkom/sunabot/internal/core/ports"
)

func newPipelineForTest(generator ports.TextGenerator, metrics *metricsFake, sequential bool) *PipelineUseCase {
	kit := newTestKit(sequential)
	return NewPipelineUseCase(
		kit.classifier,
		kit.validator,
		kit.analyzer,
		kit.prompts,
		generator,
		demoFake{},
		nil,
		metricsOrNil(metrics),
		testSettings(time.Second),
		nil,
	)
}

func TestPipelineRejectsInvalidMessage(t *testing.T) {
	generator := &generatorFake{text: "ok"}
	metrics := &metricsFake{}
	uc := newPipelineForTest(generator, metrics, false)

	_, err := uc.Run(context.Background(), domain.ConsultaInput{Message: "hi"})
	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if validationErr.Result.LengthOK {
		t.Fatalf("expected itemized result, got %+v", validationErr.Result)
	}
	if len(generator.requests) != 0 {
		t.Fatalf("generation must not run for invalid input")
	}
	if metrics.rejected != 1 {
		t.Fatalf("expected rejection to be recorded")
	}
}

func TestPipelineRunSuccess(t *testing.T) {
	generator := &generatorFake{text: "Recupera tu clave en https://www.gob.pe/7550-recuperar-la-clave-sol."}
	uc := newPipelineForTest(generator, nil, false)

	resp, err := uc.Run(context.Background(), domain.ConsultaInput{Message: "¿Cómo recupero mi clave sol?"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.Category != domain.CategoryClaveSOL || resp.TechniqueLabel != TechniquePipeline {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.ProcessingType != domain.ProcessingPipeline || !resp.IsAIGenerated {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Analysis == nil || resp.Validation == nil || !resp.Validation.OverallValid {
		t.Fatalf("expected analysis and validation to be attached")
	}
	if resp.Confidence != resp.Analysis.Classification.Confidence {
		t.Fatalf("confidence must come from the joined classification")
	}
	if len(resp.IncludedLinks) != 1 || resp.IncludedLinks[0] != "https://www.gob.pe/7550-recuperar-la-clave-sol" {
		t.Fatalf("unexpected links %v", resp.IncludedLinks)
	}
	req := generator.lastRequest()
	if req.MaxTokens != domain.DefaultMaxLength {
		t.Fatalf("expected %d tokens, got %d", domain.DefaultMaxLength, req.MaxTokens)
	}
	if !strings.Contains(req.Prompt, "### Consulta del usuario sobre Clave SOL:") {
		t.Fatalf("expected joined category template")
	}
}

func TestPipelineGenerationFailureShortCircuits(t *testing.T) {
	uc := newPipelineForTest(&generatorFake{err: errors.New("quota exceeded")}, nil, true)

	resp, err := uc.Run(context.Background(), domain.ConsultaInput{Message: "¿Cómo recupero mi clave sol?"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.IsAIGenerated || resp.ErrorDetail == "" {
		t.Fatalf("expected degraded record, got %+v", resp)
	}
	if resp.Category != domain.CategoryClaveSOL || resp.Analysis == nil {
		t.Fatalf("degraded record keeps the analysis, got %+v", resp)
	}
}

func TestPipelineSoftIntentUsesDefinitionPrompt(t *testing.T) {
	generator := &generatorFake{text: "SUNAT es..."}
	uc := newPipelineForTest(generator, nil, false)

	resp, err := uc.Run(context.Background(), domain.ConsultaInput{Message: "¿Qué es la SUNAT?"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.Category != domain.CategoryOtros {
		t.Fatalf("expected Otros, got %s", resp.Category)
	}
	if !strings.Contains(generator.lastRequest().Prompt, "### SUNABOT - Definiciones tributarias") {
		t.Fatalf("expected definition prompt")
	}
}

func TestPipelineRejectsMaxLengthOutOfRange(t *testing.T) {
	generator := &generatorFake{text: "ok"}
	uc := newPipelineForTest(generator, nil, false)

	for _, maxLength := range []int{50, 2001} {
		_, err := uc.Run(context.Background(), domain.ConsultaInput{Message: "Necesito declarar mi RUC", MaxLength: maxLength})
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("max_length %d: expected invalid input, got %v", maxLength, err)
		}
	}
	if len(generator.requests) != 0 {
		t.Fatalf("generation must not run for an invalid max_length")
	}
}

func TestPipelineMaxLengthDrivesMaxTokens(t *testing.T) {
	generator := &generatorFake{text: "ok"}
	uc := newPipelineForTest(generator, nil, false)

	if _, err := uc.Run(context.Background(), domain.ConsultaInput{Message: "Necesito declarar mi RUC", MaxLength: 300}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := generator.lastRequest().MaxTokens; got != 300 {
		t.Fatalf("expected 300 tokens, got %d", got)
	}
}
