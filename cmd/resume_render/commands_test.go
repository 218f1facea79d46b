package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonathan/resume-watermark/internal/dither"
	"github.com/jonathan/resume-watermark/internal/validation"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const documentJSON = `{
  "contact": {"name": "Jane Doe", "email": "jane@example.com"},
  "summary": "Backend engineer.",
  "experience": [
    {"title": "Engineer", "company": "Acme", "start_date": "2020", "bullets": ["Shipped the thing"]}
  ],
  "skills": ["Go"]
}`

func resetFlags() {
	renderInputFile, renderWatermarkFile, renderWatermarkURI = "", "", ""
	renderOutputFile, renderFontDir = "", ""
	renderWatermarkPixels = 64
	ditherInputFile, ditherOutputFile = "", ""
	ditherMethod = string(dither.MethodAtkinson)
	ditherSize = 32
	ditherDataURI = false
}

func testCommand(buf *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	return cmd
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func writePhoto(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 6), uint8(y * 8), 90, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return writeFile(t, dir, "photo.png", buf.Bytes())
}

func TestRender_WritesOnePagePDF(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	renderInputFile = writeFile(t, dir, "doc.json", []byte(documentJSON))
	renderOutputFile = filepath.Join(dir, "out", "resume.pdf")

	var buf bytes.Buffer
	require.NoError(t, runRender(testCommand(&buf), nil))

	pages, err := validation.CountPDFPages(renderOutputFile)
	require.NoError(t, err)
	assert.Equal(t, 1, pages)
	assert.Contains(t, buf.String(), "Jane Doe")
	assert.Contains(t, buf.String(), "Watermark:   none")
}

func TestRender_WithPhotoWatermark(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	renderInputFile = writeFile(t, dir, "doc.json", []byte(documentJSON))
	renderWatermarkFile = writePhoto(t, dir)
	renderOutputFile = filepath.Join(dir, "resume.pdf")

	var buf bytes.Buffer
	require.NoError(t, runRender(testCommand(&buf), nil))

	pdf, err := os.ReadFile(renderOutputFile)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(pdf, []byte("/Subtype /Image")))
	assert.Contains(t, buf.String(), "photo.png")
}

func TestRender_WithDataURIWatermark(t *testing.T) {
	resetFlags()
	dir := t.TempDir()

	photo, err := os.ReadFile(writePhoto(t, dir))
	require.NoError(t, err)
	img, err := dither.Process(photo, dither.MethodOrdered, 24)
	require.NoError(t, err)

	renderInputFile = writeFile(t, dir, "doc.json", []byte(documentJSON))
	renderWatermarkURI = writeFile(t, dir, "mark.txt", []byte(img.DataURI()+"\n"))
	renderOutputFile = filepath.Join(dir, "resume.pdf")

	var buf bytes.Buffer
	require.NoError(t, runRender(testCommand(&buf), nil))
	assert.FileExists(t, renderOutputFile)
}

func TestRender_BothWatermarkKinds(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	renderInputFile = writeFile(t, dir, "doc.json", []byte(documentJSON))
	renderWatermarkFile = writePhoto(t, dir)
	renderWatermarkURI = writeFile(t, dir, "mark.txt", []byte("data:image/png;base64,"))
	renderOutputFile = filepath.Join(dir, "resume.pdf")

	var buf bytes.Buffer
	err := runRender(testCommand(&buf), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
	assert.NoFileExists(t, renderOutputFile)
}

func TestRender_InvalidDocument(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	renderInputFile = writeFile(t, dir, "doc.json", []byte(`{"contact": {"name": ""}}`))
	renderOutputFile = filepath.Join(dir, "resume.pdf")

	var buf bytes.Buffer
	require.Error(t, runRender(testCommand(&buf), nil))
	assert.NoFileExists(t, renderOutputFile)
}

func TestRender_MissingInput(t *testing.T) {
	resetFlags()
	renderInputFile = filepath.Join(t.TempDir(), "missing.json")

	var buf bytes.Buffer
	err := runRender(testCommand(&buf), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read document file")
}

func TestDither_WritesTwoTonePNG(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	ditherInputFile = writePhoto(t, dir)

	var buf bytes.Buffer
	require.NoError(t, runDither(testCommand(&buf), nil))

	out := filepath.Join(dir, "photo.dither.png")
	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 32), img.Bounds())
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			v := color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
			assert.True(t, v == 0 || v == 255, "pixel (%d,%d) = %d", x, y, v)
		}
	}
	assert.Contains(t, buf.String(), "atkinson")
}

func TestDither_DataURIOutput(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	ditherInputFile = writePhoto(t, dir)
	ditherMethod = string(dither.MethodOrdered)
	ditherDataURI = true
	ditherOutputFile = filepath.Join(dir, "mark.txt")

	var buf bytes.Buffer
	require.NoError(t, runDither(testCommand(&buf), nil))

	data, err := os.ReadFile(ditherOutputFile)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "data:image/png;base64,"))

	img, err := dither.ParseDataURI(string(data))
	require.NoError(t, err)
	assert.Equal(t, 32, img.Width)
}

func TestDither_RejectsBadFlags(t *testing.T) {
	resetFlags()
	ditherInputFile = writePhoto(t, t.TempDir())
	ditherMethod = "floyd"

	var buf bytes.Buffer
	assert.Error(t, runDither(testCommand(&buf), nil))

	resetFlags()
	ditherInputFile = writePhoto(t, t.TempDir())
	ditherSize = 0
	assert.Error(t, runDither(testCommand(&buf), nil))
}

func TestDither_NotAnImage(t *testing.T) {
	resetFlags()
	ditherInputFile = writeFile(t, t.TempDir(), "notes.txt", []byte("hello"))

	var buf bytes.Buffer
	err := runDither(testCommand(&buf), nil)
	var decodeErr *dither.ImageDecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestPages(t *testing.T) {
	dir := t.TempDir()
	one := writeFile(t, dir, "one.pdf", []byte("%PDF-1.3\n<</Type /Page\n>>\n%%EOF\n"))
	two := writeFile(t, dir, "two.pdf", []byte("%PDF-1.3\n<</Type /Page\n>>\n<</Type /Page\n>>\n%%EOF\n"))

	var buf bytes.Buffer
	require.NoError(t, runPages(testCommand(&buf), []string{one}))
	assert.Contains(t, buf.String(), "fits on one page")

	buf.Reset()
	require.NoError(t, runPages(testCommand(&buf), []string{two}))
	assert.Contains(t, buf.String(), "document is 2 pages")
}

func TestPages_NotAPDF(t *testing.T) {
	path := writeFile(t, t.TempDir(), "x.pdf", []byte("hello"))

	var buf bytes.Buffer
	err := runPages(testCommand(&buf), []string{path})
	var vErr *validation.NotPDFError
	assert.ErrorAs(t, err, &vErr)
}

func TestDefaultDitherOutput(t *testing.T) {
	assert.Equal(t, "a/me.dither.png", defaultDitherOutput("a/me.jpg", false))
	assert.Equal(t, "me.dither.txt", defaultDitherOutput("me.png", true))
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "render", "dither", "pages"} {
		assert.Contains(t, names, want)
	}
}
