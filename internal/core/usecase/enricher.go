package usecase

import (
	"strings"
	"time"

	"github.com/kirillkom/sunabot/internal/core/catalog"
	"github.com/kirillkom/sunabot/internal/core/domain"
)

const contextLabelPrefix = "Especialista en "

type Enricher struct {
	catalog *catalog.Catalog
	version string
	now     func() time.Time
}

func NewEnricher(c *catalog.Catalog, version string, now func() time.Time) *Enricher {
	if c == nil {
		c = catalog.Default()
	}
	if strings.TrimSpace(version) == "" {
		version = "dev"
	}
	if now == nil {
		now = time.Now
	}
	return &Enricher{catalog: c, version: version, now: now}
}

// Enrich attaches the reference links and bookkeeping fields of a category.
// Unknown categories get the Otros links.
func (e *Enricher) Enrich(category domain.Category) domain.Enrichment {
	if !category.Valid() {
		category = domain.CategoryOtros
	}
	return domain.Enrichment{
		RecommendedLinks: e.catalog.LinkURLs(category),
		ContextLabel:     contextLabelPrefix + category.String(),
		Timestamp:        e.now().UTC().Format(time.RFC3339),
		VersionTag:       e.version,
	}
}

func (e *Enricher) EnrichRecord(classification domain.ClassificationResult) domain.EnrichedRecord {
	return domain.EnrichedRecord{
		ClassificationResult: classification,
		Enrichment:           e.Enrich(classification.Category),
	}
}
