package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/sunabot/internal/core/domain"
)

// Client talks to the SUNABOT HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type askRequest struct {
	Mensaje   string  `json:"mensaje"`
	Categoria *string `json:"categoria,omitempty"`
	Tipo      string  `json:"tipo,omitempty"`
}

type continueRequest struct {
	Mensaje   string `json:"mensaje"`
	Context   string `json:"context"`
	Categoria string `json:"categoria,omitempty"`
}

func (c *Client) Ask(ctx context.Context, message, category, mode string) (*domain.StructuredResponse, error) {
	req := askRequest{Mensaje: message, Tipo: mode}
	if category != "" {
		req.Categoria = &category
	}
	var resp domain.StructuredResponse
	if err := c.post(ctx, "/v1/consultas", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Continue(ctx context.Context, message, previous string, category domain.Category) (*domain.StructuredResponse, error) {
	var resp domain.StructuredResponse
	err := c.post(ctx, "/v1/consultas/continuar", continueRequest{
		Mensaje:   message,
		Context:   previous,
		Categoria: category.String(),
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sunabot api status=%d: %s", e.StatusCode, e.Message)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call sunabot api: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
