package httpadapter

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/sunabot/internal/config"
	"github.com/kirillkom/sunabot/internal/core/domain"
	"github.com/kirillkom/sunabot/internal/observability/metrics"
)

func TestHealthzSetsRequestID(t *testing.T) {
	handler := newTestHandler(config.Config{}, nil, nil)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-123")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if got := res.Header().Get(requestIDHeader); got != "req-123" {
		t.Fatalf("expected propagated request id, got %q", got)
	}
}

func TestListCategoriesReturnsCatalog(t *testing.T) {
	handler := newTestHandler(config.Config{}, nil, nil)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/categorias", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var body struct {
		Categorias []domain.CategoryInfo `json:"categorias"`
	}
	decodeBody(t, res, &body)
	if len(body.Categorias) != len(domain.Categories()) {
		t.Fatalf("expected %d categories, got %d", len(domain.Categories()), len(body.Categorias))
	}
	if body.Categorias[0].Name != domain.CategoryRUC || len(body.Categorias[0].Links) == 0 {
		t.Fatalf("unexpected first category: %+v", body.Categorias[0])
	}
}

func TestAnswerParsesRequestFields(t *testing.T) {
	consult := &consultFake{}
	handler := newTestHandler(config.Config{}, consult, nil)

	res := postJSON(t, handler, "/v1/consultas", map[string]any{
		"mensaje":    "¿Cómo consulto un RUC?",
		"categoria":  "clave_sol",
		"tipo":       "categoria",
		"max_length": 500,
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	input := consult.lastInput
	if input.Message != "¿Cómo consulto un RUC?" || input.Mode != domain.ModeCategory || input.MaxLength != 500 {
		t.Fatalf("unexpected input: %+v", input)
	}
	if input.Category == nil || *input.Category != domain.CategoryClaveSOL {
		t.Fatalf("expected Clave SOL category, got %v", input.Category)
	}

	var resp domain.StructuredResponse
	decodeBody(t, res, &resp)
	if resp.Category != domain.CategoryRUC || resp.ProcessingType != domain.ProcessingGeneral {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAnswerKeepsAnchorMarkupUnescaped(t *testing.T) {
	consult := &consultFake{resp: &domain.StructuredResponse{
		ResponseText:  `Ver <a href="https://www.sunat.gob.pe/sol.html" target="_blank">https://www.sunat.gob.pe/sol.html</a>`,
		Category:      domain.CategoryOtros,
		IncludedLinks: []string{"https://www.sunat.gob.pe/sol.html"},
	}}
	handler := newTestHandler(config.Config{}, consult, nil)

	res := postJSON(t, handler, "/v1/consultas", map[string]any{"mensaje": "portal sol"})
	if !strings.Contains(res.Body.String(), `<a href=\"https://www.sunat.gob.pe/sol.html\"`) {
		t.Fatalf("expected raw anchor markup, got %s", res.Body.String())
	}
}

func TestAnswerRejectsUnknownCategory(t *testing.T) {
	consult := &consultFake{}
	handler := newTestHandler(config.Config{}, consult, nil)

	res := postJSON(t, handler, "/v1/consultas", map[string]any{"mensaje": "hola ruc", "categoria": "Aduanas"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if consult.lastInput.Message != "" {
		t.Fatalf("use case must not be called")
	}
}

func TestAnswerMapsInvalidInputTo400(t *testing.T) {
	consult := &consultFake{err: domain.WrapError(domain.ErrInvalidInput, "answer consultation", errors.New("message is required"))}
	handler := newTestHandler(config.Config{}, consult, nil)

	res := postJSON(t, handler, "/v1/consultas", map[string]any{"mensaje": ""})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	var body map[string]any
	decodeBody(t, res, &body)
	if !strings.Contains(body["error"].(string), "message is required") {
		t.Fatalf("unexpected error body: %v", body)
	}
}

func TestContractRejectsMissingMessageAndBadMode(t *testing.T) {
	consult := &consultFake{}
	handler := newTestHandler(config.Config{}, consult, nil)

	res := postJSON(t, handler, "/v1/consultas", map[string]any{"categoria": "RUC"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("missing mensaje: expected 400, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "contract") {
		t.Fatalf("expected contract error, got %s", res.Body.String())
	}

	res = postJSON(t, handler, "/v1/consultas", map[string]any{"mensaje": "ruc", "tipo": "copilot"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("unknown tipo: expected 400, got %d", res.Code)
	}

	res = postJSON(t, handler, "/v1/consultas", map[string]any{"mensaje": "ruc", "max_length": 5000})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("max_length above range: expected 400, got %d", res.Code)
	}
}

func TestPipelineValidationErrorCarriesChecks(t *testing.T) {
	result := domain.ValidationResult{IsValid: true, HasContent: true, LengthOK: true}
	pipeline := &pipelineFake{err: &domain.ValidationError{Result: result}}
	handler := newTestHandler(config.Config{}, nil, pipeline)

	res := postJSON(t, handler, "/v1/consultas/pipeline", map[string]any{"mensaje": "hola mundo"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	var body errorResponse
	decodeBody(t, res, &body)
	if body.Validation == nil || body.Validation.IsDomainRelevant || body.Validation.OverallValid {
		t.Fatalf("expected itemized validation, got %+v", body)
	}
	if !strings.Contains(body.Error, "is_domain_relevant") {
		t.Fatalf("expected failed check in message, got %q", body.Error)
	}
}

func TestPipelineReturnsAnalysis(t *testing.T) {
	pipeline := &pipelineFake{}
	handler := newTestHandler(config.Config{}, nil, pipeline)

	res := postJSON(t, handler, "/v1/consultas/pipeline", map[string]any{"mensaje": "declaración mensual"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if pipeline.lastInput.Mode != domain.ModeGeneral {
		t.Fatalf("expected default general mode, got %q", pipeline.lastInput.Mode)
	}
	if !strings.Contains(res.Body.String(), `"analysis"`) {
		t.Fatalf("expected analysis in body: %s", res.Body.String())
	}
}

func TestContinuationPassesContextAndCategory(t *testing.T) {
	consult := &consultFake{}
	handler := newTestHandler(config.Config{}, consult, nil)

	res := postJSON(t, handler, "/v1/consultas/continuar", map[string]any{
		"mensaje":   "dame más detalles",
		"context":   "Respuesta anterior",
		"categoria": "Facturación",
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	got := consult.lastContinuation
	if got.Message != "dame más detalles" || got.Context != "Respuesta anterior" || got.Category != domain.CategoryFacturacion {
		t.Fatalf("unexpected continuation input: %+v", got)
	}
}

func TestClassifyReturnsAnalysis(t *testing.T) {
	consult := &consultFake{}
	handler := newTestHandler(config.Config{}, consult, nil)

	res := postJSON(t, handler, "/v1/consultas/clasificar", map[string]any{"mensaje": "mi ruc"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var analysis domain.Analysis
	decodeBody(t, res, &analysis)
	if analysis.Classification.Category != domain.CategoryRUC || consult.lastMessage != "mi ruc" {
		t.Fatalf("unexpected analysis: %+v", analysis)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestHandler(config.Config{}, nil, nil)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/consultas", nil))
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&domain.ValidationError{}, http.StatusBadRequest},
		{domain.WrapError(domain.ErrInvalidInput, "op", errors.New("x")), http.StatusBadRequest},
		{domain.WrapError(domain.ErrTemporary, "op", errors.New("x")), http.StatusServiceUnavailable},
		{domain.NewGenerationError("ollama", domain.ErrBackendUnavailable), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := mapErrorToHTTPStatus(tc.err); got != tc.want {
			t.Fatalf("mapErrorToHTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	handler := newTestHandler(config.Config{APIRateLimitRPS: 1, APIRateLimitBurst: 1}, nil, nil)

	res1 := httptest.NewRecorder()
	handler.ServeHTTP(res1, httptest.NewRequest(http.MethodGet, "/v1/categorias", nil))
	if res1.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", res1.Code)
	}

	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, httptest.NewRequest(http.MethodGet, "/v1/categorias", nil))
	if res2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", res2.Code)
	}
	if res2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header for 429 response")
	}

	res3 := httptest.NewRecorder()
	handler.ServeHTTP(res3, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res3.Code != http.StatusOK {
		t.Fatalf("healthz must bypass the limiter, got %d", res3.Code)
	}
}

func TestMetricsEndpointExposesHTTPSeries(t *testing.T) {
	httpMetrics := metrics.NewHTTPServerMetrics("sunabot-api")
	handler := NewRouter(config.Config{}, &consultFake{}, &pipelineFake{}, nil, httpMetrics).Handler()

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), `sunabot_http_requests_total{method="GET",path="/healthz",service="sunabot-api",status="200"} 1`) {
		t.Fatalf("expected healthz series, got:\n%s", res.Body.String())
	}
}
