package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/sunabot/internal/core/domain"
)

func TestGenerateSendsOptions(t *testing.T) {
	var captured generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":"  Hola desde SUNABOT  ","done":true}`))
	}))
	defer server.Close()

	client := New(server.URL+"/", "llama3")
	text, err := client.Generate(context.Background(), domain.DefaultGenerationRequest("### prompt"))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "Hola desde SUNABOT" {
		t.Fatalf("unexpected text %q", text)
	}
	if captured.Model != "llama3" || captured.Prompt != "### prompt" || captured.Stream || !captured.Raw {
		t.Fatalf("unexpected payload %+v", captured)
	}
	if captured.Options.NumPredict != 800 || captured.Options.Temperature != 0.7 || captured.Options.TopP != 0.9 {
		t.Fatalf("unexpected options %+v", captured.Options)
	}
	if len(captured.Options.Stop) != 5 || captured.Options.Stop[0] != "</s>" {
		t.Fatalf("unexpected stop sequences %v", captured.Options.Stop)
	}
}

func TestGenerateWrapsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := New(server.URL, "llama3").Generate(context.Background(), domain.GenerationRequest{Prompt: "p"})
	var genErr *domain.GenerationError
	if !errors.As(err, &genErr) || genErr.Backend != "ollama" {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if class := ClassifyError(err); !class.Retryable || !class.RecordFailure {
		t.Fatalf("expected 502 to be retryable, got %+v", class)
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
		record    bool
	}{
		{"canceled", context.Canceled, false, false},
		{"deadline", context.DeadlineExceeded, false, true},
		{"unavailable", &HTTPStatusError{StatusCode: http.StatusServiceUnavailable}, true, true},
		{"bad request", &HTTPStatusError{StatusCode: http.StatusBadRequest}, false, false},
		{"model missing", &HTTPStatusError{StatusCode: http.StatusNotFound, Body: `{"error":"model 'llama3' not found"}`}, false, true},
		{"unknown", errors.New("boom"), false, true},
	}
	for _, tc := range cases {
		got := ClassifyError(domain.NewGenerationError("ollama", tc.err))
		if got.Retryable != tc.retryable || got.RecordFailure != tc.record {
			t.Fatalf("%s: unexpected classification %+v", tc.name, got)
		}
	}
}

func TestGenerateMissingModelIsBackendUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'llama3' not found, try pulling it first"}`))
	}))
	defer server.Close()

	_, err := New(server.URL, "llama3").Generate(context.Background(), domain.GenerationRequest{Prompt: "p"})
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected backend unavailable, got %v", err)
	}
	if errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("missing model must not be marked temporary, got %v", err)
	}
}
