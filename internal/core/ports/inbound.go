package ports

import (
	"context"

	"github.com/kirillkom/sunabot/internal/core/domain"
)

// ConsultationService is the inbound contract for answering tax queries.
type ConsultationService interface {
	Answer(ctx context.Context, input domain.ConsultaInput) (*domain.StructuredResponse, error)
	Continue(ctx context.Context, input domain.ContinuationInput) (*domain.StructuredResponse, error)
	Classify(ctx context.Context, message string) (*domain.Analysis, error)
}

// PipelineService runs validation, the parallel analysis and generation as one flow.
type PipelineService interface {
	Run(ctx context.Context, input domain.ConsultaInput) (*domain.StructuredResponse, error)
}

// CategoryDirectory is the read model behind the category listing.
type CategoryDirectory interface {
	Describe() []domain.CategoryInfo
}
