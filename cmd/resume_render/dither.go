package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonathan/resume-watermark/internal/dither"
	"github.com/jonathan/resume-watermark/internal/observability"
	"github.com/spf13/cobra"
)

var ditherCmd = &cobra.Command{
	Use:   "dither",
	Short: "Dither a photo into a two-tone watermark",
	Long:  "Scales a photo to a square, converts it to black and white with ordered or Atkinson dithering and writes the PNG or its data URI.",
	RunE:  runDither,
}

var (
	ditherInputFile  string
	ditherMethod     string
	ditherSize       int
	ditherOutputFile string
	ditherDataURI    bool
)

func init() {
	ditherCmd.Flags().StringVarP(&ditherInputFile, "input", "i", "", "Path to a PNG, JPEG, GIF or WebP photo (required)")
	ditherCmd.Flags().StringVarP(&ditherMethod, "method", "m", string(dither.MethodAtkinson), "Dithering method: ordered or atkinson")
	ditherCmd.Flags().IntVarP(&ditherSize, "size", "s", 200, "Output edge length in pixels")
	ditherCmd.Flags().StringVarP(&ditherOutputFile, "output", "o", "", "Output path (default <input>.dither.png)")
	ditherCmd.Flags().BoolVar(&ditherDataURI, "data-uri", false, "Write a base64 PNG data URI instead of raw PNG")

	_ = ditherCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(ditherCmd)
}

func runDither(cmd *cobra.Command, _ []string) error {
	method, err := dither.ParseMethod(ditherMethod)
	if err != nil {
		return err
	}
	if ditherSize < 1 {
		return fmt.Errorf("--size must be positive, got %d", ditherSize)
	}

	data, err := os.ReadFile(ditherInputFile)
	if err != nil {
		return fmt.Errorf("failed to read photo: %w", err)
	}

	start := time.Now()
	img, err := dither.Process(data, method, ditherSize)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	outputFile := ditherOutputFile
	if outputFile == "" {
		outputFile = defaultDitherOutput(ditherInputFile, ditherDataURI)
	}

	payload := img.PNG
	if ditherDataURI {
		payload = []byte(img.DataURI())
	}
	if err := writeOutput(outputFile, payload); err != nil {
		return err
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintDither(outputFile, img, method, elapsed)
	return nil
}

func defaultDitherOutput(input string, dataURI bool) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	if dataURI {
		return base + ".dither.txt"
	}
	return base + ".dither.png"
}
