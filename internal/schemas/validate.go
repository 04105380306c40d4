// Package schemas provides JSON Schema validation for annotation documents and feedback.
package schemas

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	schemafiles "github.com/jonathan/jd-annotator/schemas"
)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

var (
	documentSchema = compiled("annotations.schema.json", schemafiles.Annotations)
	feedbackSchema = compiled("feedback.schema.json", schemafiles.Feedback)
)

func compiled(name, content string) func() (*gojsonschema.Schema, error) {
	return sync.OnceValues(func() (*gojsonschema.Schema, error) {
		s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(content))
		if err != nil {
			return nil, &SchemaLoadError{Path: name, Message: "invalid embedded schema", Cause: err}
		}
		return s, nil
	})
}

// ValidateDocument validates a raw annotation document.
func ValidateDocument(data []byte) error {
	return validateWith(documentSchema, data)
}

// ValidateFeedback validates a raw feedback request.
func ValidateFeedback(data []byte) error {
	return validateWith(feedbackSchema, data)
}

// ValidateDocumentFile validates an annotation document stored on disk.
func ValidateDocumentFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ValidateDocument(data)
}

func validateWith(schema func() (*gojsonschema.Schema, error), data []byte) error {
	s, err := schema()
	if err != nil {
		return err
	}
	result, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return &ValidationError{Errors: []FieldError{{Field: "(root)", Message: "malformed JSON: " + err.Error()}}}
	}
	return toValidationError(result)
}

// SchemaFile is a JSON Schema read from disk. It lets exported documents be checked
// against a consumer's schema instead of the embedded one.
type SchemaFile struct {
	path   string
	schema *gojsonschema.Schema
}

// LoadSchemaFile reads and compiles the schema at path.
func LoadSchemaFile(path string) (*SchemaFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve schema path: %w", err)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, &SchemaLoadError{Path: abs, Message: "schema file not readable", Cause: err}
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(content))
	if err != nil {
		return nil, &SchemaLoadError{Path: abs, Message: "invalid schema", Cause: err}
	}
	return &SchemaFile{path: abs, schema: schema}, nil
}

// Path returns the absolute path the schema was loaded from.
func (f *SchemaFile) Path() string {
	return f.path
}

// ValidateFile validates the JSON document at path against the schema.
func (f *SchemaFile) ValidateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return validateWith(func() (*gojsonschema.Schema, error) { return f.schema, nil }, data)
}

// toValidationError returns nil for a valid result.
func toValidationError(result *gojsonschema.Result) error {
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}
