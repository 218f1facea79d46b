package server

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/jonathan/resume-watermark/internal/dither"
)

// maxPreviewSize bounds the ?size= parameter of dither previews.
const maxPreviewSize = 1024

// WatermarkResponse describes a dithered image
type WatermarkResponse struct {
	Key     string `json:"key,omitempty"`
	DataURI string `json:"data_uri"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Method  string `json:"method"`
}

func newWatermarkResponse(key string, img *dither.Image, method dither.Method) WatermarkResponse {
	return WatermarkResponse{
		Key:     key,
		DataURI: img.DataURI(),
		Width:   img.Width,
		Height:  img.Height,
		Method:  string(method),
	}
}

// handleDitherPreview dithers an uploaded image without touching the cache.
// The fast ordered method is the default; ?method=atkinson previews the final look.
func (s *Server) handleDitherPreview(w http.ResponseWriter, r *http.Request) {
	method := dither.MethodOrdered
	if m := r.URL.Query().Get("method"); m != "" {
		parsed, err := dither.ParseMethod(m)
		if err != nil {
			s.failResponse(w, r, &ErrValidation{Field: "method", Message: err.Error()})
			return
		}
		method = parsed
	}

	size := s.cfg.WatermarkPixels
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxPreviewSize {
			s.failResponse(w, r, &ErrValidation{Field: "size", Message: fmt.Sprintf("must be an integer between 1 and %d", maxPreviewSize)})
			return
		}
		size = n
	}

	data, err := s.readImage(w, r)
	if err != nil {
		s.failResponse(w, r, err)
		return
	}

	img, err := dither.ProcessLimit(data, method, size, s.cfg.MaxImagePixels)
	if err != nil {
		s.failResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, newWatermarkResponse("", img, method))
}

// handleGetWatermark returns the cached dither of a server-side source image.
// With ?format=png the PNG itself is returned.
func (s *Server) handleGetWatermark(w http.ResponseWriter, r *http.Request) {
	identity := r.PathValue("identity")
	if identity == "" {
		s.failResponse(w, r, &ErrValidation{Field: "identity", Message: "watermark identity is required"})
		return
	}

	img, err := s.cache.GetOrCompute(identity)
	if err != nil {
		s.failResponse(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "png" {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(img.PNG)
		return
	}
	s.jsonResponse(w, http.StatusOK, newWatermarkResponse(identity, img, dither.MethodAtkinson))
}

// handleCreateWatermark dithers an uploaded photo into a content-keyed cache
// entry. The returned key can be passed to /render as watermark_source.
func (s *Server) handleCreateWatermark(w http.ResponseWriter, r *http.Request) {
	data, err := s.readImage(w, r)
	if err != nil {
		s.failResponse(w, r, err)
		return
	}

	key, img, err := s.cache.GetOrComputeBytes(data)
	if err != nil {
		s.failResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, newWatermarkResponse(key, img, dither.MethodAtkinson))
}

// readImage returns the uploaded image bytes from a multipart "image" field or
// the raw request body.
func (s *Server) readImage(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		return s.readBody(w, r)
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		return nil, fmt.Errorf("failed to parse multipart form: %w", err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, &ErrValidation{Field: "image", Message: "multipart field 'image' is required"}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded image: %w", err)
	}
	if len(data) == 0 {
		return nil, &ErrValidation{Field: "image", Message: "uploaded image is empty"}
	}
	return data, nil
}
