package ports

import (
	"context"
	"time"

	"github.com/kirillkom/sunabot/internal/core/domain"
)

// TextGenerator is the generation backend. Failures are returned as
// *domain.GenerationError.
type TextGenerator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (string, error)
	Name() string
}

// DemoResponseProvider supplies canned answers when no backend is used.
type DemoResponseProvider interface {
	Respond(message string, intent domain.Intent) string
	Demo(message string) string
}

// EventPublisher emits consultation analytics.
type EventPublisher interface {
	PublishConsultation(ctx context.Context, event domain.ConsultationEvent) error
}

type ConsultationMetrics interface {
	RecordConsultation(processingType string, category domain.Category, aiGenerated bool)
	RecordGeneration(backend, outcome string, duration time.Duration)
	RecordValidationRejected()
}
