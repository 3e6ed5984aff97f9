package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/kirillkom/sunabot/internal/config"
	"github.com/kirillkom/sunabot/internal/core/domain"
	"github.com/kirillkom/sunabot/internal/core/ports"
	"github.com/kirillkom/sunabot/internal/observability/metrics"
)

const maxRequestBodyBytes = 64 << 10

type Router struct {
	cfg        config.Config
	consult    ports.ConsultationService
	pipeline   ports.PipelineService
	categories ports.CategoryDirectory
	metrics    *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	consult ports.ConsultationService,
	pipeline ports.PipelineService,
	categories ports.CategoryDirectory,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:        cfg,
		consult:    consult,
		pipeline:   pipeline,
		categories: categories,
		metrics:    httpMetrics,
	}
}

// Handler wires the routes behind request id, access log, metrics, rate
// limit and contract validation, outermost first.
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}
	mux.HandleFunc("/v1/categorias", rt.listCategories)
	mux.HandleFunc("/v1/consultas", rt.answer)
	mux.HandleFunc("/v1/consultas/pipeline", rt.runPipeline)
	mux.HandleFunc("/v1/consultas/continuar", rt.continueConsultation)
	mux.HandleFunc("/v1/consultas/clasificar", rt.classify)

	var handler http.Handler = mux
	handler = mustContractValidationMiddleware(handler)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, rt.metrics)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) listCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categorias": rt.categories.Describe()})
}

type consultaRequest struct {
	Mensaje   string  `json:"mensaje"`
	Categoria *string `json:"categoria"`
	Tipo      string  `json:"tipo"`
	MaxLength int     `json:"max_length"`
}

func (req consultaRequest) toInput() (domain.ConsultaInput, error) {
	input := domain.ConsultaInput{
		Message:   req.Mensaje,
		MaxLength: req.MaxLength,
	}
	mode, ok := domain.ParseMode(req.Tipo)
	if !ok {
		return input, domain.WrapError(domain.ErrInvalidInput, "parse request", errors.New("tipo must be general, categoria or predeterminada"))
	}
	input.Mode = mode
	if req.Categoria != nil && strings.TrimSpace(*req.Categoria) != "" {
		category, err := domain.ParseCategory(*req.Categoria)
		if err != nil {
			return input, err
		}
		input.Category = &category
	}
	return input, nil
}

func (rt *Router) answer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req consultaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	input, err := req.toInput()
	if err != nil {
		writeError(w, err)
		return
	}

	resp, err := rt.consult.Answer(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) runPipeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req consultaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	input, err := req.toInput()
	if err != nil {
		writeError(w, err)
		return
	}

	resp, err := rt.pipeline.Run(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type continuationRequest struct {
	Mensaje   string `json:"mensaje"`
	Context   string `json:"context"`
	Categoria string `json:"categoria"`
}

func (rt *Router) continueConsultation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req continuationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	input := domain.ContinuationInput{
		Message: req.Mensaje,
		Context: req.Context,
	}
	if strings.TrimSpace(req.Categoria) != "" {
		category, err := domain.ParseCategory(req.Categoria)
		if err != nil {
			writeError(w, err)
			return
		}
		input.Category = category
	}

	resp, err := rt.consult.Continue(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) classify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req struct {
		Mensaje string `json:"mensaje"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	analysis, err := rt.consult.Classify(r.Context(), req.Mensaje)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
			return false
		}
		if errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "request body is required"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
