package usecase

import (
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/sunabot/internal/core/catalog"
	"github.com/kirillkom/sunabot/internal/core/domain"
)

const (
	minMessageLength = 3
	maxMessageLength = 1000
)

type Validator struct {
	relevance []string
}

func NewValidator(c *catalog.Catalog) *Validator {
	if c == nil {
		c = catalog.Default()
	}
	return &Validator{relevance: c.RelevanceKeywords()}
}

// Validate evaluates every check independently. Length is measured in runes
// on the raw message.
func (v *Validator) Validate(message string) domain.ValidationResult {
	hasContent := strings.TrimSpace(message) != ""
	length := utf8.RuneCountInString(message)

	result := domain.ValidationResult{
		IsValid:          hasContent,
		HasContent:       hasContent,
		LengthOK:         length >= minMessageLength && length <= maxMessageLength,
		IsDomainRelevant: containsAny(strings.ToLower(message), v.relevance),
	}
	result.OverallValid = result.IsValid && result.LengthOK && result.HasContent && result.IsDomainRelevant
	return result
}

// Check returns a *domain.ValidationError when the message is rejected.
func (v *Validator) Check(message string) (domain.ValidationResult, error) {
	result := v.Validate(message)
	if !result.OverallValid {
		return result, &domain.ValidationError{Result: result}
	}
	return result, nil
}
