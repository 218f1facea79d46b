// Package schemas provides JSON Schema validation for render payloads.
package schemas

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed files/*.schema.json
var files embed.FS

const (
	documentSchemaFile      = "files/document.schema.json"
	renderRequestSchemaFile = "files/render_request.schema.json"
)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
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

// Summary joins the field errors on one line, for HTTP error bodies.
func (ve *ValidationError) Summary() string {
	parts := make([]string, len(ve.Errors))
	for i, err := range ve.Errors {
		parts[i] = err.Field + ": " + err.Message
	}
	return strings.Join(parts, "; ")
}

type compiled struct {
	document      *gojsonschema.Schema
	renderRequest *gojsonschema.Schema
}

// load compiles the embedded schemas once. The render request schema refers to
// the document schema by its $id.
var load = sync.OnceValues(func() (*compiled, error) {
	docSrc, err := files.ReadFile(documentSchemaFile)
	if err != nil {
		return nil, &SchemaLoadError{Path: documentSchemaFile, Message: "embedded schema missing", Cause: err}
	}
	reqSrc, err := files.ReadFile(renderRequestSchemaFile)
	if err != nil {
		return nil, &SchemaLoadError{Path: renderRequestSchemaFile, Message: "embedded schema missing", Cause: err}
	}

	document, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(docSrc))
	if err != nil {
		return nil, &SchemaLoadError{Path: documentSchemaFile, Message: "invalid schema", Cause: err}
	}

	sl := gojsonschema.NewSchemaLoader()
	if err := sl.AddSchemas(gojsonschema.NewBytesLoader(docSrc)); err != nil {
		return nil, &SchemaLoadError{Path: documentSchemaFile, Message: "failed to register schema", Cause: err}
	}
	renderRequest, err := sl.Compile(gojsonschema.NewBytesLoader(reqSrc))
	if err != nil {
		return nil, &SchemaLoadError{Path: renderRequestSchemaFile, Message: "invalid schema", Cause: err}
	}

	return &compiled{document: document, renderRequest: renderRequest}, nil
})

// ValidateDocument validates a resume document JSON payload.
func ValidateDocument(jsonContent []byte) error {
	c, err := load()
	if err != nil {
		return err
	}
	return validate(c.document, jsonContent)
}

// ValidateRenderRequest validates a POST /render body.
func ValidateRenderRequest(jsonContent []byte) error {
	c, err := load()
	if err != nil {
		return err
	}
	return validate(c.renderRequest, jsonContent)
}

// ValidateJSONString validates JSON string content against schema string content
func ValidateJSONString(schemaContent, jsonContent string) error {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaContent))
	if err != nil {
		return &SchemaLoadError{
			Path:    "(string schema)",
			Message: "schema validation failed during load",
			Cause:   err,
		}
	}
	return validate(schema, []byte(jsonContent))
}

func validate(schema *gojsonschema.Schema, jsonContent []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(jsonContent))
	if err != nil {
		// the payload itself is not JSON
		return &ValidationError{Errors: []FieldError{{Field: "(root)", Message: err.Error()}}}
	}

	if result.Valid() {
		return nil
	}

	// Build structured error
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
