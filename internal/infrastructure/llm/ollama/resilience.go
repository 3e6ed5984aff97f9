package ollama

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/kirillkom/sunabot/internal/core/domain"
	"github.com/kirillkom/sunabot/internal/infrastructure/resilience"
)

// HTTPStatusError is a non-2xx answer from the Ollama API.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "ollama status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("ollama %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("ollama %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// ModelMissing reports Ollama's 404 for a model that was never pulled.
func (e *HTTPStatusError) ModelMissing() bool {
	return e != nil && e.StatusCode == http.StatusNotFound && strings.Contains(strings.ToLower(e.Body), "not found")
}

// Statuses that mean the server is loading a model or overloaded.
var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// ClassifyError tells the resilience executor which Ollama failures count
// against the generation breaker, timeouts included.
func ClassifyError(err error) resilience.ErrorClassification {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return resilience.ErrorClassification{}
	case errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{RecordFailure: true}
	case resilience.IsCircuitOpen(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.ModelMissing():
			return resilience.ErrorClassification{RecordFailure: true}
		case retryableStatus[statusErr.StatusCode]:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		default:
			return resilience.ErrorClassification{}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{RecordFailure: true}
}

// generationCause marks a missing model as an unavailable backend.
func generationCause(err error) error {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) && statusErr.ModelMissing() {
		return domain.WrapError(domain.ErrBackendUnavailable, "ollama generate", err)
	}
	return err
}
