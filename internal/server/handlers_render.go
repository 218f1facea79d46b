package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/jonathan/resume-watermark/internal/dither"
	"github.com/jonathan/resume-watermark/internal/rendering"
	"github.com/jonathan/resume-watermark/internal/schemas"
	"github.com/jonathan/resume-watermark/internal/types"
	"github.com/jonathan/resume-watermark/internal/validation"
)

// RenderRequest represents the request body for /render
type RenderRequest struct {
	Document        *types.Document `json:"document"`
	Watermark       string          `json:"watermark,omitempty"`        // dithered PNG data URI
	WatermarkSource string          `json:"watermark_source,omitempty"` // cached or server-side source identity
}

// handleRender renders a document to PDF
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		s.failResponse(w, r, err)
		return
	}

	if err := schemas.ValidateRenderRequest(body); err != nil {
		s.failResponse(w, r, err)
		return
	}

	var req RenderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.failResponse(w, r, &ErrValidation{Field: "body", Message: err.Error()})
		return
	}
	if req.Document == nil {
		s.failResponse(w, r, &ErrValidation{Field: "document", Message: "document is required"})
		return
	}
	if err := req.Document.Validate(); err != nil {
		s.failResponse(w, r, err)
		return
	}

	mark, err := s.resolveWatermark(req)
	if err != nil {
		s.failResponse(w, r, err)
		return
	}

	result, err := s.render(r.Context(), req.Document, mark)
	if err != nil {
		s.failResponse(w, r, err)
		return
	}

	pages := validation.CountPages(result.PDF)
	if pages != result.Pages {
		log.Printf("[render] page scan found %d page(s), writer reported %d", pages, result.Pages)
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", req.Document.FileName()))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.PDF)))
	w.Header().Set("X-Page-Count", strconv.Itoa(pages))
	if warning := validation.CheckOnePage(pages); warning != nil {
		w.Header().Set("X-Page-Warning", warning.Details)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.PDF); err != nil {
		log.Printf("[render] failed to write response: %v", err)
	}
}

// resolveWatermark picks the watermark for a request: an inline data URI, a
// cached or server-side source, or none.
func (s *Server) resolveWatermark(req RenderRequest) (*dither.Image, error) {
	switch {
	case req.Watermark != "" && req.WatermarkSource != "":
		return nil, &ErrValidation{Field: "watermark", Message: "watermark and watermark_source are mutually exclusive"}
	case req.Watermark != "":
		return dither.ParseDataURI(req.Watermark)
	case req.WatermarkSource != "":
		return s.cache.GetOrCompute(req.WatermarkSource)
	default:
		return nil, nil
	}
}

// render runs one render in a bounded slot. Waiting for a slot honours the
// request context and RenderQueueTimeout.
func (s *Server) render(ctx context.Context, doc *types.Document, mark *dither.Image) (*rendering.RenderedDocument, error) {
	wait := s.cfg.RenderQueueTimeout.Std()
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	if err := s.renders.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ErrRenderBusy{Waited: wait}
	}
	defer s.renders.Release(1)

	start := time.Now()
	result, err := s.renderer.Render(doc, mark)
	if err != nil {
		return nil, err
	}
	log.Printf("[render] %d page(s) in %v", result.Pages, time.Since(start).Round(time.Millisecond))
	return result, nil
}

// readBody reads the whole request body, capped at MaxUploadBytes.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(body) == 0 {
		return nil, &ErrValidation{Field: "body", Message: "request body is empty"}
	}
	return body, nil
}
