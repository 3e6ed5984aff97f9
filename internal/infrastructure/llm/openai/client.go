package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/sunabot/internal/core/domain"
	"github.com/kirillkom/sunabot/internal/infrastructure/resilience"
)

const (
	DefaultModel       = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-2.0-flash"

	// GeminiBaseURL is Gemini's OpenAI-compatible endpoint.
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

	// maxStopSequences is the API limit; the rest are applied client side.
	maxStopSequences = 4
)

type Options struct {
	Name       string
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// Client is a chat-completions backend. The same code serves OpenAI and
// Gemini through its compatibility layer.
type Client struct {
	name   string
	model  string
	client *goopenai.Client
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "openai client", fmt.Errorf("api key is required"))
	}
	cfg := goopenai.DefaultConfig(opts.APIKey)
	if base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"); base != "" {
		cfg.BaseURL = base
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	} else {
		cfg.HTTPClient = &http.Client{Timeout: 120 * time.Second}
	}

	name := opts.Name
	if name == "" {
		name = "openai"
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		name:   name,
		model:  model,
		client: goopenai.NewClientWithConfig(cfg),
	}, nil
}

// NewGemini targets Gemini's OpenAI-compatible endpoint.
func NewGemini(apiKey, model string) (*Client, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	return New(Options{Name: "gemini", APIKey: apiKey, BaseURL: GeminiBaseURL, Model: model})
}

func (c *Client) Name() string {
	return c.name
}

func (c *Client) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	req = req.WithDefaults()
	stops := req.StopSequences
	if len(stops) > maxStopSequences {
		stops = stops[:maxStopSequences]
	}

	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{
				Role:    goopenai.ChatMessageRoleUser,
				Content: req.Prompt,
			},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
		TopP:        float32(req.TopP),
		Stop:        stops,
	})
	if err != nil {
		return "", domain.NewGenerationError(c.name, wrapTemporaryIfNeeded(c.name+" chat completion", err))
	}
	if len(resp.Choices) == 0 {
		return "", domain.NewGenerationError(c.name, fmt.Errorf("empty choices in completion %s", resp.ID))
	}

	text := truncateAtStop(resp.Choices[0].Message.Content, req.StopSequences)
	return strings.TrimSpace(text), nil
}

// truncateAtStop cuts the completion at the earliest stop marker.
func truncateAtStop(text string, stops []string) string {
	cut := len(text)
	for _, stop := range stops {
		if stop == "" {
			continue
		}
		if idx := strings.Index(text, stop); idx >= 0 && idx < cut {
			cut = idx
		}
	}
	return text[:cut]
}

// ClassifyError tells the resilience executor which API failures count
// against the breaker.
func ClassifyError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	if status := httpStatus(err); status != 0 {
		switch {
		case status == http.StatusTooManyRequests || status >= 500:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
		default:
			return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
		}
	}

	return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
}

func httpStatus(err error) int {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func wrapTemporaryIfNeeded(operation string, err error) error {
	status := httpStatus(err)
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return domain.WrapError(domain.ErrUnauthorized, operation, err)
	}
	if ClassifyError(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
