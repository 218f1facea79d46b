package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/resume-watermark/internal/dither"
	"github.com/jonathan/resume-watermark/internal/fonts"
	"github.com/jonathan/resume-watermark/internal/imagecache"
	"github.com/jonathan/resume-watermark/internal/rendering"
	"github.com/jonathan/resume-watermark/internal/schemas"
)

// Machine-readable error codes returned in the "code" field.
const (
	CodeInvalidRequest    = "invalid_request"
	CodeInvalidDocument   = "invalid_document"
	CodePayloadTooLarge   = "payload_too_large"
	CodeImageDecodeFailed = "image_decode_failed"
	CodeWatermarkNotFound = "watermark_not_found"
	CodeRenderFailed      = "render_failed"
	CodeRenderBusy        = "render_busy"
	CodeRateLimited       = "rate_limit_exceeded"
	CodeInternal          = "internal_error"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrRenderBusy indicates no render slot became free in time
type ErrRenderBusy struct {
	Waited time.Duration
}

func (e *ErrRenderBusy) Error() string {
	return fmt.Sprintf("all render slots busy after waiting %v", e.Waited)
}

// classify maps an error to its HTTP status and machine code.
func classify(err error) (int, string) {
	var (
		validationErr *ErrValidation
		schemaErr     *schemas.ValidationError
		fieldErrs     validator.ValidationErrors
		tooLarge      *http.MaxBytesError
		decodeErr     *dither.ImageDecodeError
		busyErr       *ErrRenderBusy
		renderErr     *rendering.RenderError
		fontErr       *fonts.RegistrationError
	)

	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, CodePayloadTooLarge
	case errors.As(err, &validationErr), errors.As(err, &schemaErr):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.As(err, &fieldErrs):
		return http.StatusUnprocessableEntity, CodeInvalidDocument
	case errors.As(err, &decodeErr):
		return http.StatusUnprocessableEntity, CodeImageDecodeFailed
	case errors.Is(err, imagecache.ErrSourceNotFound):
		return http.StatusNotFound, CodeWatermarkNotFound
	case errors.As(err, &busyErr):
		return http.StatusServiceUnavailable, CodeRenderBusy
	case errors.As(err, &renderErr), errors.As(err, &fontErr):
		return http.StatusInternalServerError, CodeRenderFailed
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	status, _ := classify(err)
	return status
}

// ErrorCode returns the machine code reported for an error
func ErrorCode(err error) string {
	_, code := classify(err)
	return code
}

// publicMessage hides internal failure detail from clients.
func publicMessage(err error, status int) string {
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		return "failed to generate document"
	}
	var schemaErr *schemas.ValidationError
	if errors.As(err, &schemaErr) {
		return schemaErr.Summary()
	}
	return err.Error()
}
