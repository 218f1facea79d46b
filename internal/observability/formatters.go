// Package observability provides formatted summaries for CLI output.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonathan/resume-watermark/internal/dither"
	"github.com/jonathan/resume-watermark/internal/rendering"
	"github.com/jonathan/resume-watermark/internal/types"
	"github.com/jonathan/resume-watermark/internal/validation"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted CLI output
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(truncate(line, inner), inner))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-3]) + "..."
}

// pad right-pads s with spaces to n runes; %-*s counts bytes.
func pad(s string, n int) string {
	if c := utf8.RuneCountInString(s); c < n {
		return s + strings.Repeat(" ", n-c)
	}
	return s
}

// PrintDocument outputs a summary of the document about to be rendered.
func (p *Printer) PrintDocument(doc *types.Document) {
	if doc == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:        %s\n", doc.Contact.Name))
	if doc.Contact.Email != "" {
		sb.WriteString(fmt.Sprintf("Email:       %s\n", doc.Contact.Email))
	}

	bullets := 0
	for _, exp := range doc.Experience {
		bullets += len(exp.Bullets)
	}
	sb.WriteString(fmt.Sprintf("Experience:  %d entries, %d bullets\n", len(doc.Experience), bullets))
	sb.WriteString(fmt.Sprintf("Education:   %d entries\n", len(doc.Education)))
	sb.WriteString(fmt.Sprintf("Skills:      %d\n", len(doc.Skills)))
	sb.WriteString(fmt.Sprintf("Certs:       %d", len(doc.Certifications)))

	if len(doc.Experience) > 0 {
		sb.WriteString("\n\nRoles:\n")
		count := min(len(doc.Experience), maxItemsToShow)
		for i := 0; i < count; i++ {
			exp := doc.Experience[i]
			sb.WriteString(fmt.Sprintf("  • %s, %s", exp.Title, exp.Company))
			if dates := exp.DateRange(); dates != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", dates))
			}
			if i < count-1 {
				sb.WriteString("\n")
			}
		}
		if len(doc.Experience) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("\n  ... and %d more", len(doc.Experience)-maxItemsToShow))
		}
	}

	p.printBox("DOCUMENT", sb.String())
}

// PrintRender outputs the outcome of a render, including any page warning.
func (p *Printer) PrintRender(output string, result *rendering.RenderedDocument, watermark string, elapsed time.Duration) {
	if result == nil {
		return
	}

	scanned := validation.CountPages(result.PDF)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Output:      %s\n", output))
	sb.WriteString(fmt.Sprintf("Size:        %s\n", formatBytes(len(result.PDF))))
	sb.WriteString(fmt.Sprintf("Pages:       %d\n", scanned))
	if watermark == "" {
		watermark = "none"
	}
	sb.WriteString(fmt.Sprintf("Watermark:   %s\n", watermark))
	sb.WriteString(fmt.Sprintf("Elapsed:     %v", elapsed.Round(time.Millisecond)))

	if scanned != result.Pages {
		sb.WriteString(fmt.Sprintf("\n\n⚠ page scan disagrees with writer (%d)", result.Pages))
	}
	if warning := validation.CheckOnePage(scanned); warning != nil {
		sb.WriteString("\n\n⚠ " + warning.Details)
	}

	p.printBox("RENDERED", sb.String())
}

// PrintDither outputs a summary of a dithered image.
func (p *Printer) PrintDither(output string, img *dither.Image, method dither.Method, elapsed time.Duration) {
	if img == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Output:      %s\n", output))
	sb.WriteString(fmt.Sprintf("Method:      %s\n", method))
	sb.WriteString(fmt.Sprintf("Size:        %dx%d\n", img.Width, img.Height))
	sb.WriteString(fmt.Sprintf("PNG:         %s\n", formatBytes(len(img.PNG))))
	sb.WriteString(fmt.Sprintf("Elapsed:     %v", elapsed.Round(time.Millisecond)))

	p.printBox("DITHERED", sb.String())
}

// PrintPages outputs a page-count check for a PDF file.
func (p *Printer) PrintPages(path string, pages int) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("File:        %s\n", path))
	sb.WriteString(fmt.Sprintf("Pages:       %d", pages))
	if warning := validation.CheckOnePage(pages); warning != nil {
		sb.WriteString("\n\n⚠ " + warning.Details)
	} else {
		sb.WriteString("\n\n✓ fits on one page")
	}

	p.printBox("PAGE COUNT", sb.String())
}

func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
