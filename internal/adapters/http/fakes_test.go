package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/sunabot/internal/config"
	"github.com/kirillkom/sunabot/internal/core/catalog"
	"github.com/kirillkom/sunabot/internal/core/domain"
)

type consultFake struct {
	resp     *domain.StructuredResponse
	analysis *domain.Analysis
	err      error

	lastInput        domain.ConsultaInput
	lastContinuation domain.ContinuationInput
	lastMessage      string
}

func (f *consultFake) Answer(_ context.Context, input domain.ConsultaInput) (*domain.StructuredResponse, error) {
	f.lastInput = input
	if f.err != nil {
		return nil, f.err
	}
	return f.response(), nil
}

func (f *consultFake) Continue(_ context.Context, input domain.ContinuationInput) (*domain.StructuredResponse, error) {
	f.lastContinuation = input
	if f.err != nil {
		return nil, f.err
	}
	return f.response(), nil
}

func (f *consultFake) Classify(_ context.Context, message string) (*domain.Analysis, error) {
	f.lastMessage = message
	if f.err != nil {
		return nil, f.err
	}
	if f.analysis != nil {
		return f.analysis, nil
	}
	return &domain.Analysis{
		Classification: domain.ClassificationResult{Category: domain.CategoryRUC, Confidence: 0.2, OriginalMessage: message},
	}, nil
}

func (f *consultFake) response() *domain.StructuredResponse {
	if f.resp != nil {
		return f.resp
	}
	return &domain.StructuredResponse{
		ResponseText:   "Consulta tu RUC",
		Category:       domain.CategoryRUC,
		Confidence:     0.2,
		IncludedLinks:  []string{},
		TechniqueLabel: "Sistema de Mensajes",
		IsAIGenerated:  true,
		ProcessingType: domain.ProcessingGeneral,
	}
}

type pipelineFake struct {
	err       error
	lastInput domain.ConsultaInput
}

func (f *pipelineFake) Run(_ context.Context, input domain.ConsultaInput) (*domain.StructuredResponse, error) {
	f.lastInput = input
	if f.err != nil {
		return nil, f.err
	}
	return &domain.StructuredResponse{
		Category:       domain.CategoryDeclaraciones,
		Confidence:     0.1,
		IncludedLinks:  []string{},
		ProcessingType: domain.ProcessingPipeline,
		Analysis:       &domain.Analysis{},
	}, nil
}

func newTestHandler(cfg config.Config, consult *consultFake, pipeline *pipelineFake) http.Handler {
	if consult == nil {
		consult = &consultFake{}
	}
	if pipeline == nil {
		pipeline = &pipelineFake{}
	}
	return NewRouter(cfg, consult, pipeline, catalog.Default(), nil).Handler()
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(res.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", res.Body.String(), err)
	}
}
