package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/jd-annotator/internal/schemas"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrNotFound indicates the requested job has nothing stored
type ErrNotFound struct {
	JobID string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("no annotations for job: %s", e.JobID)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation *ErrValidation
		notFound   *ErrNotFound
		schemaErr  *schemas.ValidationError
		fieldErrs  validator.ValidationErrors
		tooLarge   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &schemaErr), errors.As(err, &fieldErrs):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// errorDetails lists field-level problems for a validation failure, or nil.
func errorDetails(err error) []schemas.FieldError {
	var schemaErr *schemas.ValidationError
	if errors.As(err, &schemaErr) {
		return schemaErr.Errors
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		details := make([]schemas.FieldError, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			details = append(details, schemas.FieldError{
				Field:   fe.Namespace(),
				Message: fmt.Sprintf("failed on the '%s' rule", fe.Tag()),
			})
		}
		return details
	}
	var validation *ErrValidation
	if errors.As(err, &validation) {
		return []schemas.FieldError{{Field: validation.Field, Message: validation.Message}}
	}
	return nil
}
