package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/sunabot/internal/core/domain"
)

const backendName = "ollama"

// Client talks to a local Ollama server through /api/generate.
type Client struct {
	baseURL    string
	genModel   string
	httpClient *http.Client
}

func New(baseURL, genModel string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *Client) Name() string {
	return backendName
}

type generateOptions struct {
	NumPredict  int      `json:"num_predict"`
	Temperature float64  `json:"temperature"`
	TopP        float64  `json:"top_p"`
	Stop        []string `json:"stop,omitempty"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Raw     bool            `json:"raw"`
	Options generateOptions `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate sends the prompt verbatim. Templates already carry their own
// role markers, so the model template is bypassed with raw mode.
func (c *Client) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	req = req.WithDefaults()
	payload := generateRequest{
		Model:  c.genModel,
		Prompt: req.Prompt,
		Stream: false,
		Raw:    true,
		Options: generateOptions{
			NumPredict:  req.MaxTokens,
			Temperature: req.Temperature,
			TopP:        req.TopP,
			Stop:        req.StopSequences,
		},
	}

	var response generateResponse
	if err := c.postJSON(ctx, "/api/generate", payload, &response, "generate"); err != nil {
		return "", domain.NewGenerationError(backendName, generationCause(err))
	}
	return strings.TrimSpace(response.Response), nil
}
