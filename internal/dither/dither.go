// Package dither reduces photographs to fixed-size two-tone halftones.
package dither

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Method selects the dithering algorithm.
type Method string

const (
	// MethodOrdered is the fast 4x4 threshold-matrix method used for previews.
	MethodOrdered Method = "ordered"
	// MethodAtkinson is the error-diffusion method used for server-side watermarks.
	MethodAtkinson Method = "atkinson"
)

const (
	black = 0
	white = 255

	// atkinsonThreshold is the fixed quantization midpoint.
	atkinsonThreshold = 128
)

// bayer4 is the 4x4 ordered dither matrix; thresholds are bayer4[y%4][x%4] * 255/16.
var bayer4 = [4][4]float64{
	{0, 8, 2, 10},
	{12, 4, 14, 6},
	{3, 11, 1, 9},
	{15, 7, 13, 5},
}

// atkinsonNeighbors lists the offsets that each receive 1/8 of the quantization error.
var atkinsonNeighbors = [...]image.Point{
	{1, 0}, {2, 0},
	{-1, 1}, {0, 1}, {1, 1},
	{0, 2},
}

// ParseMethod converts a user-supplied method name.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodOrdered, MethodAtkinson:
		return Method(s), nil
	case "":
		return MethodAtkinson, nil
	default:
		return "", fmt.Errorf("unknown dither method %q (want %q or %q)", s, MethodOrdered, MethodAtkinson)
	}
}

// Luminance returns the weighted channel sum 0.299R + 0.587G + 0.114B on 8-bit channels.
func Luminance(c color.Color) float64 {
	r, g, b, _ := c.RGBA()
	return 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
}

// Normalize center-crops img to a square, scales it to size x size and returns
// the luminance plane in row-major order.
func Normalize(img image.Image, size int) []float64 {
	if size <= 0 {
		panic(fmt.Sprintf("dither: invalid target size %d", size))
	}

	src := img.Bounds()
	side := min(src.Dx(), src.Dy())
	crop := image.Rect(0, 0, side, side).Add(image.Pt(
		src.Min.X+(src.Dx()-side)/2,
		src.Min.Y+(src.Dy()-side)/2,
	))

	scaled := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(scaled, scaled.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, crop, draw.Over, nil)

	lum := make([]float64, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			lum[y*size+x] = Luminance(scaled.RGBAAt(x, y))
		}
	}
	return lum
}

// Ordered dithers img to a size x size two-level bitmap with the 4x4 threshold matrix.
// Every pixel is decided independently.
func Ordered(img image.Image, size int) *image.Gray {
	lum := Normalize(img, size)
	out := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			threshold := bayer4[y%4][x%4] * 255 / 16
			if lum[y*size+x] > threshold {
				out.Pix[y*out.Stride+x] = white
			} else {
				out.Pix[y*out.Stride+x] = black
			}
		}
	}
	return out
}

// Atkinson dithers img to a size x size two-level bitmap with Atkinson error diffusion.
// Six neighbors each receive 1/8 of the error; the remaining 2/8 is discarded.
func Atkinson(img image.Image, size int) *image.Gray {
	buf := Normalize(img, size)
	out := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			old := buf[y*size+x]
			quantized := float64(black)
			if old >= atkinsonThreshold {
				quantized = white
			}
			out.Pix[y*out.Stride+x] = uint8(quantized)

			share := (old - quantized) / 8
			for _, n := range atkinsonNeighbors {
				nx, ny := x+n.X, y+n.Y
				if nx < 0 || nx >= size || ny >= size {
					continue
				}
				buf[ny*size+nx] += share
			}
		}
	}
	return out
}

// Apply dispatches to the algorithm named by method.
func Apply(img image.Image, method Method, size int) (*image.Gray, error) {
	switch method {
	case MethodOrdered:
		return Ordered(img, size), nil
	case MethodAtkinson:
		return Atkinson(img, size), nil
	default:
		return nil, fmt.Errorf("unknown dither method %q", method)
	}
}
