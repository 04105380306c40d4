package annotations

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation names an id the store does not hold.
// Callers treat it as non-fatal.
var ErrNotFound = errors.New("annotation not found")

// ValidationError indicates input that was rejected before touching the store.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
