package domain

import "time"

const (
	DefaultMaxTokens   = 800
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9

	ContinuationMaxTokens = 600
)

var defaultStopSequences = []string{"</s>", "### Consulta", "### Usuario:", "Human:", "Assistant:"}

// DefaultStopSequences returns a fresh copy of the role markers that keep a
// backend from inventing further dialogue turns.
func DefaultStopSequences() []string {
	return append([]string(nil), defaultStopSequences...)
}

// GenerationRequest is the ephemeral input of a single backend call.
type GenerationRequest struct {
	Prompt        string
	MaxTokens     int
	Temperature   float64
	TopP          float64
	StopSequences []string
}

func DefaultGenerationRequest(prompt string) GenerationRequest {
	return GenerationRequest{
		Prompt:        prompt,
		MaxTokens:     DefaultMaxTokens,
		Temperature:   DefaultTemperature,
		TopP:          DefaultTopP,
		StopSequences: DefaultStopSequences(),
	}
}

// WithDefaults fills unset options with the documented defaults. Temperature
// is unset only when negative; zero asks for greedy decoding.
func (r GenerationRequest) WithDefaults() GenerationRequest {
	if r.MaxTokens <= 0 {
		r.MaxTokens = DefaultMaxTokens
	}
	if r.Temperature < 0 {
		r.Temperature = DefaultTemperature
	}
	if r.TopP <= 0 || r.TopP > 1 {
		r.TopP = DefaultTopP
	}
	if r.StopSequences == nil {
		r.StopSequences = DefaultStopSequences()
	}
	return r
}

// ConsultationEvent is published after every answered consultation. It
// never carries the user's message.
type ConsultationEvent struct {
	ID             string    `json:"id"`
	Category       Category  `json:"category"`
	Confidence     float64   `json:"confidence"`
	IsAIGenerated  bool      `json:"is_ai_generated"`
	ProcessingType string    `json:"processing_type"`
	Backend        string    `json:"backend"`
	Degraded       bool      `json:"degraded"`
	LatencyMillis  int64     `json:"latency_ms"`
	OccurredAt     time.Time `json:"occurred_at"`
}
