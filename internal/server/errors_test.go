package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/resume-watermark/internal/dither"
	"github.com/jonathan/resume-watermark/internal/fonts"
	"github.com/jonathan/resume-watermark/internal/imagecache"
	"github.com/jonathan/resume-watermark/internal/rendering"
	"github.com/jonathan/resume-watermark/internal/schemas"
	"github.com/jonathan/resume-watermark/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrValidation(t *testing.T) {
	err := &ErrValidation{Field: "watermark", Message: "invalid format"}
	assert.Equal(t, "validation error: watermark - invalid format", err.Error())
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
	assert.Equal(t, CodeInvalidRequest, ErrorCode(err))
}

func TestErrRenderBusy(t *testing.T) {
	err := &ErrRenderBusy{Waited: time.Second}
	assert.Equal(t, "all render slots busy after waiting 1s", err.Error())
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(err))
}

func TestClassify(t *testing.T) {
	fieldErr := (&types.Document{}).Validate()
	var fieldErrs validator.ValidationErrors
	require.ErrorAs(t, fieldErr, &fieldErrs)

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"schema", &schemas.ValidationError{Errors: []schemas.FieldError{{Field: "(root)", Message: "x"}}}, http.StatusBadRequest, CodeInvalidRequest},
		{"validator", fieldErr, http.StatusUnprocessableEntity, CodeInvalidDocument},
		{"too large", fmt.Errorf("read: %w", &http.MaxBytesError{Limit: 10}), http.StatusRequestEntityTooLarge, CodePayloadTooLarge},
		{"decode", &dither.ImageDecodeError{Message: "bad"}, http.StatusUnprocessableEntity, CodeImageDecodeFailed},
		{"not found", fmt.Errorf("%w: x.png", imagecache.ErrSourceNotFound), http.StatusNotFound, CodeWatermarkNotFound},
		{"busy", &ErrRenderBusy{}, http.StatusServiceUnavailable, CodeRenderBusy},
		{"render", &rendering.RenderError{Message: "boom"}, http.StatusInternalServerError, CodeRenderFailed},
		{"fonts", &fonts.RegistrationError{Message: "missing"}, http.StatusInternalServerError, CodeRenderFailed},
		{"other", errors.New("surprise"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestPublicMessage(t *testing.T) {
	internal := &rendering.RenderError{Message: "font cache at /secret/path"}
	assert.Equal(t, "failed to generate document", publicMessage(internal, http.StatusInternalServerError))

	busy := &ErrRenderBusy{Waited: time.Second}
	assert.Equal(t, busy.Error(), publicMessage(busy, http.StatusServiceUnavailable))

	schemaErr := &schemas.ValidationError{Errors: []schemas.FieldError{
		{Field: "document", Message: "is required"},
		{Field: "watermark", Message: "bad pattern"},
	}}
	assert.Equal(t, "document: is required; watermark: bad pattern", publicMessage(schemaErr, http.StatusBadRequest))
}
