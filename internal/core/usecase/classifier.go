package usecase

import (
	"strings"

	"github.com/kirillkom/sunabot/internal/core/catalog"
	"github.com/kirillkom/sunabot/internal/core/domain"
)

const fallbackConfidence = 0.5

// Classifier routes a message to a closed category by ordered keyword sets.
type Classifier struct {
	catalog *catalog.Catalog
}

func NewClassifier(c *catalog.Catalog) *Classifier {
	if c == nil {
		c = catalog.Default()
	}
	return &Classifier{catalog: c}
}

// Classify returns the first category in priority order with at least one
// keyword hit. It never fails.
func (c *Classifier) Classify(message string) domain.ClassificationResult {
	lower := strings.ToLower(message)
	for _, category := range domain.Categories() {
		if category == domain.CategoryOtros {
			continue
		}
		keywords := c.catalog.Keywords(category)
		if len(keywords) == 0 {
			continue
		}
		matched := matchKeywords(lower, keywords)
		if len(matched) == 0 {
			continue
		}
		return domain.ClassificationResult{
			Category:        category,
			Confidence:      min(float64(len(matched))/float64(len(keywords)), 1.0),
			OriginalMessage: message,
			MatchedKeywords: matched,
		}
	}
	return domain.ClassificationResult{
		Category:        domain.CategoryOtros,
		Confidence:      fallbackConfidence,
		OriginalMessage: message,
		MatchedKeywords: []string{},
	}
}

func (c *Classifier) IsDefinitionQuery(message string) bool {
	return containsAny(strings.ToLower(message), c.catalog.DefinitionPhrases())
}

// DetectIntent adds a soft label to the strict classification. The label
// only steers prompt selection.
func (c *Classifier) DetectIntent(message string) domain.Intent {
	intent := domain.Intent{Classification: c.Classify(message)}
	lower := strings.ToLower(message)
	mentionsSUNAT := strings.Contains(lower, "sunat")

	if c.IsDefinitionQuery(message) {
		switch {
		case mentionsSUNAT:
			intent.Soft = domain.SoftIntentDefinitionSUNAT
		case containsAny(lower, c.catalog.Renta4taPhrases()):
			intent.Soft = domain.SoftIntentDefinitionRenta4ta
		case containsAny(lower, c.catalog.Renta5taPhrases()):
			intent.Soft = domain.SoftIntentDefinitionRenta5ta
		}
	}
	if intent.Soft == domain.SoftIntentNone && mentionsSUNAT && intent.Classification.Category == domain.CategoryOtros {
		intent.Soft = domain.SoftIntentSUNATGeneral
	}
	return intent
}

func matchKeywords(lower string, keywords []string) []string {
	matched := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			matched = append(matched, keyword)
		}
	}
	return matched
}

func containsAny(lower string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
