// Package main provides the entry point for the resume watermark service and CLI.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
)

var rootCmd = &cobra.Command{
	Use:          "resume_render",
	Short:        "Resume PDF renderer with dithered photo watermarks",
	Long:         "resume_render lays out structured resumes as PDFs, dithers profile photos into two-tone watermarks and checks the one-page constraint, from the command line or over REST.",
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if _, err := maxprocs.Set(maxprocs.Logger(log.Printf)); err != nil {
		log.Printf("[maxprocs] %v", err)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
