package domain

import "strings"

type ClassificationResult struct {
	Category        Category `json:"category"`
	Confidence      float64  `json:"confidence"`
	OriginalMessage string   `json:"original_message"`
	MatchedKeywords []string `json:"matched_keywords"`
}

type ValidationResult struct {
	IsValid          bool `json:"is_valid"`
	LengthOK         bool `json:"length_ok"`
	HasContent       bool `json:"has_content"`
	IsDomainRelevant bool `json:"is_domain_relevant"`
	OverallValid     bool `json:"overall_valid"`
}

// FailedChecks names the sub-checks that did not pass, in field order.
func (v ValidationResult) FailedChecks() []string {
	failed := make([]string, 0, 4)
	if !v.IsValid {
		failed = append(failed, "is_valid")
	}
	if !v.LengthOK {
		failed = append(failed, "length_ok")
	}
	if !v.HasContent {
		failed = append(failed, "has_content")
	}
	if !v.IsDomainRelevant {
		failed = append(failed, "is_domain_relevant")
	}
	return failed
}

type Enrichment struct {
	RecommendedLinks []string `json:"recommended_links"`
	ContextLabel     string   `json:"context_label"`
	Timestamp        string   `json:"timestamp"`
	VersionTag       string   `json:"version_tag"`
}

type EnrichedRecord struct {
	ClassificationResult
	Enrichment
}

// MessageMetadata describes the shape of the raw message. Length is in runes.
type MessageMetadata struct {
	Length         int  `json:"longitud"`
	Words          int  `json:"palabras"`
	HasPunctuation bool `json:"tiene_signos"`
}

// Analysis is the joined output of the analysis steps.
type Analysis struct {
	Classification ClassificationResult `json:"categorizar"`
	Validation     ValidationResult     `json:"validar"`
	Enriched       EnrichedRecord       `json:"enriquecer"`
	Metadata       MessageMetadata      `json:"metadatos"`
}

type Mode string

const (
	ModeGeneral       Mode = "general"
	ModeCategory      Mode = "categoria"
	ModePredetermined Mode = "predeterminada"
)

const (
	DefaultMaxLength = 1200
	MinMaxLength     = 100
	MaxMaxLength     = 2000
)

func ParseMode(raw string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeGeneral:
		return ModeGeneral, true
	case ModeCategory:
		return ModeCategory, true
	case ModePredetermined:
		return ModePredetermined, true
	default:
		return "", false
	}
}

type ConsultaInput struct {
	Message   string
	Category  *Category
	Mode      Mode
	MaxLength int
}

type ContinuationInput struct {
	Message  string
	Context  string
	Category Category
}

// Processing types reported in StructuredResponse.ProcessingType.
const (
	ProcessingGeneral       = "ia_general"
	ProcessingCategory      = "categoria"
	ProcessingPipeline      = "pipeline_completo"
	ProcessingPredetermined = "predeterminada"
	ProcessingContinuation  = "continuacion"
	ProcessingDemo          = "demostracion"
)

// StructuredResponse is the schema returned at the boundary.
type StructuredResponse struct {
	ResponseText   string            `json:"response_text"`
	Category       Category          `json:"category"`
	Confidence     float64           `json:"confidence"`
	IncludedLinks  []string          `json:"included_links"`
	TechniqueLabel string            `json:"technique_label"`
	IsAIGenerated  bool              `json:"is_ai_generated"`
	ProcessingType string            `json:"processing_type"`
	Backend        string            `json:"backend,omitempty"`
	ErrorDetail    string            `json:"error,omitempty"`
	Validation     *ValidationResult `json:"validation,omitempty"`
	Analysis       *Analysis         `json:"analysis,omitempty"`
}

// Normalize enforces the schema invariants: a closed category and a
// confidence in [0,1].
func (r *StructuredResponse) Normalize() {
	if !r.Category.Valid() {
		r.Category = CategoryOtros
	}
	switch {
	case r.Confidence < 0:
		r.Confidence = 0
	case r.Confidence > 1:
		r.Confidence = 1
	}
	if r.IncludedLinks == nil {
		r.IncludedLinks = []string{}
	}
}

// Degraded reports whether the response was produced without the backend.
func (r StructuredResponse) Degraded() bool {
	return r.ErrorDetail != ""
}

type LinkifiedText struct {
	HTML  string   `json:"html"`
	Links []string `json:"links"`
}
