package rendering

import (
	"bytes"
	"fmt"
	"log"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/jonathan/resume-watermark/internal/dither"
	"github.com/jonathan/resume-watermark/internal/fonts"
	"github.com/jonathan/resume-watermark/internal/types"
)

const watermarkImageName = "watermark"

// Options controls page geometry and the watermark layer.
type Options struct {
	PageSize         string    // fpdf size name, "Letter" or "A4"
	Margin           float64   // points, all four sides
	WatermarkSize    float64   // physical edge length of the watermark in points
	WatermarkOpacity float64   // 0..1
	Timestamp        time.Time // creation/modification date written to every PDF
}

// DefaultOptions returns US Letter with half-inch margins and a 2in watermark at 18% opacity.
func DefaultOptions() Options {
	return Options{
		PageSize:         "Letter",
		Margin:           36,
		WatermarkSize:    144,
		WatermarkOpacity: 0.18,
		Timestamp:        time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

// RenderedDocument is a finished PDF plus the page count reported by the writer.
type RenderedDocument struct {
	PDF   []byte
	Pages int
}

// Renderer paints documents to PDF. A Renderer is safe for concurrent use:
// each call builds its own fpdf document and only reads the font registry.
type Renderer struct {
	fonts *fonts.Registry
	opts  Options
}

// New creates a renderer backed by registry. Zero option fields take defaults.
func New(registry *fonts.Registry, opts Options) *Renderer {
	def := DefaultOptions()
	if opts.PageSize == "" {
		opts.PageSize = def.PageSize
	}
	if opts.Margin <= 0 {
		opts.Margin = def.Margin
	}
	if opts.WatermarkSize <= 0 {
		opts.WatermarkSize = def.WatermarkSize
	}
	if opts.WatermarkOpacity <= 0 || opts.WatermarkOpacity > 1 {
		opts.WatermarkOpacity = def.WatermarkOpacity
	}
	if opts.Timestamp.IsZero() {
		opts.Timestamp = def.Timestamp
	}
	return &Renderer{fonts: registry, opts: opts}
}

// Fonts returns the registry the renderer draws from.
func (r *Renderer) Fonts() *fonts.Registry {
	return r.fonts
}

// Render lays out doc and returns the PDF. watermark may be nil. On error no
// bytes are returned.
func (r *Renderer) Render(doc *types.Document, watermark *dither.Image) (result *RenderedDocument, err error) {
	if doc == nil {
		return nil, &RenderError{Stage: StageInput, Message: "document is nil"}
	}
	if err := r.fonts.Register(); err != nil {
		return nil, err
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = &RenderError{Stage: StageLayout, Message: fmt.Sprintf("pdf writer panicked: %v", rec)}
		}
	}()

	pdf := r.newDocument(doc)
	if err := r.fonts.Apply(pdf, usedVariants()); err != nil {
		return nil, &RenderError{Stage: StageFonts, Message: "failed to install fonts", Cause: err}
	}

	if watermark != nil {
		if err := r.installWatermark(pdf, watermark); err != nil {
			return nil, err
		}
	}

	p := newPainter(pdf, r.opts.Margin, r.fonts.Hyphenate)
	pdf.AddPage()
	p.paint(Build(doc, watermark))

	if err := pdf.Error(); err != nil {
		return nil, &RenderError{Stage: StageLayout, Message: "layout failed", Cause: err}
	}

	pages := pdf.PageCount()
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &RenderError{Stage: StageOutput, Message: "failed to serialize PDF", Cause: err}
	}

	log.Printf("[render] %q: %d page(s), %d bytes", doc.Contact.Name, pages, buf.Len())
	return &RenderedDocument{PDF: buf.Bytes(), Pages: pages}, nil
}

func (r *Renderer) newDocument(doc *types.Document) *fpdf.Fpdf {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		SizeStr:        r.opts.PageSize,
	})
	pdf.SetMargins(r.opts.Margin, r.opts.Margin, r.opts.Margin)
	pdf.SetAutoPageBreak(true, r.opts.Margin)
	pdf.SetCellMargin(0)

	// fixed metadata keeps identical input byte-identical on output
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(r.opts.Timestamp)
	pdf.SetModificationDate(r.opts.Timestamp)
	pdf.SetProducer("resume-watermark", false)
	pdf.SetCreator("resume-watermark", false)
	pdf.SetTitle(NormalizeText(doc.Contact.Name)+" Resume", true)
	pdf.SetAuthor(NormalizeText(doc.Contact.Name), true)
	return pdf
}

// installWatermark registers the image and paints it from the page hook, so it
// lands first in every page's content stream, beneath the text.
func (r *Renderer) installWatermark(pdf *fpdf.Fpdf, watermark *dither.Image) error {
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	info := pdf.RegisterImageOptionsReader(watermarkImageName, opts, bytes.NewReader(watermark.PNG))
	if info == nil || pdf.Err() {
		return &RenderError{Stage: StageWatermark, Message: "failed to embed watermark image", Cause: pdf.Error()}
	}

	size := r.opts.WatermarkSize
	margin := r.opts.Margin
	opacity := r.opts.WatermarkOpacity
	pdf.SetHeaderFuncMode(func() {
		pageW, pageH := pdf.GetPageSize()
		pdf.SetAlpha(opacity, "Normal")
		pdf.ImageOptions(watermarkImageName, pageW-margin-size, pageH-margin-size, size, size, false, opts, 0, "")
		pdf.SetAlpha(1, "Normal")
	}, true)
	return nil
}
