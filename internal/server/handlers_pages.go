package server

import (
	"bytes"
	"net/http"

	"github.com/jonathan/resume-watermark/internal/validation"
)

// PagesResponse represents the response for /pages
type PagesResponse struct {
	Pages   int                     `json:"pages"`
	OnePage bool                    `json:"one_page"`
	Warning *validation.PageWarning `json:"warning,omitempty"`
}

// handlePages counts the pages of an uploaded PDF
func (s *Server) handlePages(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		s.failResponse(w, r, err)
		return
	}
	if !bytes.HasPrefix(body, []byte("%PDF-")) {
		s.failResponse(w, r, &ErrValidation{Field: "body", Message: "not a PDF document"})
		return
	}

	pages := validation.CountPages(body)
	warning := validation.CheckOnePage(pages)
	s.jsonResponse(w, http.StatusOK, PagesResponse{
		Pages:   pages,
		OnePage: warning == nil,
		Warning: warning,
	})
}
