package resilience

import (
	"context"
	"errors"

	"github.com/kirillkom/sunabot/internal/core/domain"
	"github.com/kirillkom/sunabot/internal/core/ports"
)

// GuardedGenerator runs a backend behind the executor. An open breaker is
// reported as ErrBackendUnavailable so callers degrade immediately.
type GuardedGenerator struct {
	next       ports.TextGenerator
	exec       *Executor
	classifier ErrorClassifier
}

func GuardGenerator(next ports.TextGenerator, exec *Executor, classifier ErrorClassifier) *GuardedGenerator {
	return &GuardedGenerator{next: next, exec: exec, classifier: classifier}
}

func (g *GuardedGenerator) Name() string {
	return g.next.Name()
}

func (g *GuardedGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	name := g.next.Name()
	text, err := g.exec.Execute(ctx, "generate:"+name, func(ctx context.Context) (string, error) {
		return g.next.Generate(ctx, req)
	}, g.classifier)
	if err == nil {
		return text, nil
	}

	if IsCircuitOpen(err) {
		return "", domain.NewGenerationError(name, domain.WrapError(domain.ErrBackendUnavailable, "generate", err))
	}
	var genErr *domain.GenerationError
	if errors.As(err, &genErr) {
		return "", err
	}
	return "", domain.NewGenerationError(name, err)
}
