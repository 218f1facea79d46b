// Package validation inspects rendered PDFs against the one-page layout constraint.
package validation

import (
	"fmt"
	"os"
	"regexp"
)

// pageObject matches a page object's type entry but not the /Pages tree node.
// The dictionary must open the line, as object bodies do, so "/Type/Page" text
// inside a string such as a link URI is not counted.
var pageObject = regexp.MustCompile(`(?m)^<<\s*/Type\s*/Page[^s]`)

// OnePage is the layout target for a resume.
const OnePage = 1

// PageWarning is the advisory result of a page-count check.
type PageWarning struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Pages    int    `json:"pages"`
	Details  string `json:"details"`
}

func (w *PageWarning) String() string {
	return w.Details
}

// CountPages scans a PDF byte stream for page objects. It is a heuristic: it
// reads object dictionaries as text and never parses the cross-reference table,
// so it agrees with the writer only for uncompressed object dictionaries, which
// is what our renderer emits.
func CountPages(pdf []byte) int {
	return len(pageObject.FindAllIndex(pdf, -1))
}

// CountPDFPages counts the pages of the PDF file at pdfPath.
func CountPDFPages(pdfPath string) (int, error) {
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return 0, &FileReadError{Path: pdfPath, Cause: err}
	}
	if len(data) < 5 || string(data[:5]) != "%PDF-" {
		return 0, &NotPDFError{Path: pdfPath}
	}
	return CountPages(data), nil
}

// CheckOnePage returns nil when pages fits on a single page, otherwise an
// advisory warning. Overflow is never an error: the document is still returned.
func CheckOnePage(pages int) *PageWarning {
	if pages <= OnePage {
		return nil
	}
	return &PageWarning{
		Type:     "page_overflow",
		Severity: "warning",
		Pages:    pages,
		Details:  fmt.Sprintf("document is %d pages; expected to fit on %d", pages, OnePage),
	}
}
