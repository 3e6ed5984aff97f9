package httpadapter

import (
	"errors"
	"net/http"

	"github.com/kirillkom/sunabot/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrValidation):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrTemporary), domain.IsKind(err, domain.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error      string                   `json:"error"`
	Validation *domain.ValidationResult `json:"validation,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	body := errorResponse{Error: err.Error()}
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		result := validationErr.Result
		body.Validation = &result
	}
	writeJSON(w, mapErrorToHTTPStatus(err), body)
}
