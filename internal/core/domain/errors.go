package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrValidation         = errors.New("consulta no válida")
	ErrGeneration         = errors.New("generation failed")
	ErrBackendUnavailable = errors.New("generation backend unavailable")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrTemporary          = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ValidationError carries the itemized checks of a rejected message.
type ValidationError struct {
	Result ValidationResult
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ErrValidation.Error()
	}
	failed := e.Result.FailedChecks()
	if len(failed) == 0 {
		return ErrValidation.Error()
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(failed, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// GenerationError is returned by text generation backends.
type GenerationError struct {
	Backend string
	Cause   error
}

func NewGenerationError(backend string, cause error) *GenerationError {
	return &GenerationError{Backend: backend, Cause: cause}
}

func (e *GenerationError) Error() string {
	if e == nil {
		return ErrGeneration.Error()
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: backend=%s", ErrGeneration.Error(), e.Backend)
	}
	return fmt.Sprintf("%s: backend=%s: %v", ErrGeneration.Error(), e.Backend, e.Cause)
}

func (e *GenerationError) Unwrap() []error {
	if e == nil {
		return nil
	}
	if e.Cause == nil {
		return []error{ErrGeneration}
	}
	return []error{ErrGeneration, e.Cause}
}
