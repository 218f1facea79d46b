package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonathan/resume-watermark/internal/dither"
	"github.com/jonathan/resume-watermark/internal/fonts"
	"github.com/jonathan/resume-watermark/internal/observability"
	"github.com/jonathan/resume-watermark/internal/rendering"
	"github.com/jonathan/resume-watermark/internal/schemas"
	"github.com/jonathan/resume-watermark/internal/types"
	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a resume document to PDF",
	Long:  "Lays out a resume document JSON file as a PDF, optionally with a dithered photo watermark painted behind every page.",
	RunE:  runRender,
}

var (
	renderInputFile       string
	renderWatermarkFile   string
	renderWatermarkURI    string
	renderOutputFile      string
	renderFontDir         string
	renderWatermarkPixels int
)

func init() {
	renderCmd.Flags().StringVarP(&renderInputFile, "input", "i", "", "Path to document JSON file (required)")
	renderCmd.Flags().StringVarP(&renderWatermarkFile, "watermark", "w", "", "Path to a photo to dither into the watermark")
	renderCmd.Flags().StringVar(&renderWatermarkURI, "watermark-data-uri", "", "Path to a file holding an already dithered PNG data URI")
	renderCmd.Flags().StringVarP(&renderOutputFile, "output", "o", "", "Path to output PDF (default <Name>_Resume.pdf)")
	renderCmd.Flags().StringVar(&renderFontDir, "font-dir", "", "Directory of TTF fonts (default built-in Go fonts)")
	renderCmd.Flags().IntVar(&renderWatermarkPixels, "watermark-pixels", 200, "Dither resolution for --watermark")

	_ = renderCmd.MarkFlagRequired("input")
	renderCmd.MarkFlagsMutuallyExclusive("watermark", "watermark-data-uri")

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, _ []string) error {
	content, err := os.ReadFile(renderInputFile)
	if err != nil {
		return fmt.Errorf("failed to read document file: %w", err)
	}
	if err := schemas.ValidateDocument(content); err != nil {
		return err
	}

	var doc types.Document
	if err := json.Unmarshal(content, &doc); err != nil {
		return fmt.Errorf("failed to unmarshal document JSON: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}

	watermark, label, err := loadWatermark()
	if err != nil {
		return err
	}

	renderer := rendering.New(fonts.NewRegistry(renderFontDir), rendering.Options{})
	start := time.Now()
	result, err := renderer.Render(&doc, watermark)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	outputFile := renderOutputFile
	if outputFile == "" {
		outputFile = doc.FileName()
	}
	if err := writeOutput(outputFile, result.PDF); err != nil {
		return err
	}

	printer := observability.NewPrinter(cmd.OutOrStdout())
	printer.PrintDocument(&doc)
	printer.PrintRender(outputFile, result, label, elapsed)
	return nil
}

// loadWatermark resolves the watermark flags. Returns nil when neither is set.
func loadWatermark() (*dither.Image, string, error) {
	switch {
	case renderWatermarkFile != "" && renderWatermarkURI != "":
		return nil, "", fmt.Errorf("--watermark and --watermark-data-uri are mutually exclusive")
	case renderWatermarkFile != "":
		data, err := os.ReadFile(renderWatermarkFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read watermark photo: %w", err)
		}
		img, err := dither.Process(data, dither.MethodAtkinson, renderWatermarkPixels)
		if err != nil {
			return nil, "", err
		}
		return img, filepath.Base(renderWatermarkFile), nil
	case renderWatermarkURI != "":
		data, err := os.ReadFile(renderWatermarkURI)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read watermark data URI: %w", err)
		}
		img, err := dither.ParseDataURI(string(data))
		if err != nil {
			return nil, "", err
		}
		return img, filepath.Base(renderWatermarkURI), nil
	default:
		return nil, "", nil
	}
}

func writeOutput(path string, data []byte) error {
	outputDir := filepath.Dir(path)
	if outputDir != "" && outputDir != "." {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
