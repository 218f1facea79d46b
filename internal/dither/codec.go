package dither

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"io"
	"strings"

	_ "golang.org/x/image/webp" // register WebP decoder
)

const dataURIPrefix = "data:image/png;base64,"

// DefaultMaxPixels caps the canvas an image header may declare (40 MP).
const DefaultMaxPixels = 40_000_000

// Image is an encoded two-tone bitmap ready to travel inline with a document payload.
// Values handed out by the cache are shared; treat them as read-only.
type Image struct {
	PNG    []byte
	Width  int
	Height int
}

// DataURI returns the inline transport form of the image.
func (i *Image) DataURI() string {
	return dataURIPrefix + base64.StdEncoding.EncodeToString(i.PNG)
}

// ParseDataURI decodes a "data:image/png;base64," payload produced by DataURI.
func ParseDataURI(uri string) (*Image, error) {
	uri = strings.TrimSpace(uri)
	if !strings.HasPrefix(uri, dataURIPrefix) {
		return nil, &ImageDecodeError{Message: "watermark must be a base64 PNG data URI"}
	}
	raw, err := base64.StdEncoding.DecodeString(uri[len(dataURIPrefix):])
	if err != nil {
		return nil, &ImageDecodeError{Message: "invalid base64 payload", Cause: err}
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, &ImageDecodeError{Message: "payload is not a PNG image", Cause: err}
	}
	return &Image{PNG: raw, Width: cfg.Width, Height: cfg.Height}, nil
}

// Decode reads a PNG, JPEG, GIF or WebP image of at most DefaultMaxPixels.
func Decode(r io.Reader) (image.Image, error) {
	return DecodeLimit(r, DefaultMaxPixels)
}

// DecodeLimit reads an image, rejecting it from its header alone when the
// declared canvas exceeds maxPixels. A non-positive maxPixels means DefaultMaxPixels.
func DecodeLimit(r io.Reader, maxPixels int) (image.Image, error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	// replay whatever DecodeConfig consumed in front of the rest of r
	var header bytes.Buffer
	cfg, format, err := image.DecodeConfig(io.TeeReader(r, &header))
	if err != nil {
		return nil, &ImageDecodeError{Message: "unsupported or corrupt image", Cause: err}
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, &ImageDecodeError{Message: fmt.Sprintf("%s image is %dx%d, over the %d pixel limit", format, cfg.Width, cfg.Height, maxPixels)}
	}

	img, format, err := image.Decode(io.MultiReader(&header, r))
	if err != nil {
		return nil, &ImageDecodeError{Message: "unsupported or corrupt image", Cause: err}
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, &ImageDecodeError{Message: fmt.Sprintf("%s image has no pixels", format)}
	}
	return img, nil
}

// Encode compresses a two-tone bitmap losslessly as PNG.
func Encode(bm *image.Gray) (*Image, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, bm); err != nil {
		return nil, fmt.Errorf("failed to encode dithered image: %w", err)
	}
	b := bm.Bounds()
	return &Image{PNG: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

// Process decodes data, dithers it to size x size with method and encodes the result.
func Process(data []byte, method Method, size int) (*Image, error) {
	return ProcessLimit(data, method, size, DefaultMaxPixels)
}

// ProcessLimit is Process with an explicit cap on the decoded canvas.
func ProcessLimit(data []byte, method Method, size, maxPixels int) (*Image, error) {
	img, err := DecodeLimit(bytes.NewReader(data), maxPixels)
	if err != nil {
		return nil, err
	}
	bm, err := Apply(img, method, size)
	if err != nil {
		return nil, err
	}
	return Encode(bm)
}
