package main

import (
	"github.com/jonathan/resume-watermark/internal/observability"
	"github.com/jonathan/resume-watermark/internal/validation"
	"github.com/spf13/cobra"
)

var pagesCmd = &cobra.Command{
	Use:   "pages <file.pdf>",
	Short: "Count the pages of a PDF",
	Long:  "Scans a PDF for page objects and warns when it does not fit on one page. Overflow is reported, not treated as a failure.",
	Args:  cobra.ExactArgs(1),
	RunE:  runPages,
}

func init() {
	rootCmd.AddCommand(pagesCmd)
}

func runPages(cmd *cobra.Command, args []string) error {
	pages, err := validation.CountPDFPages(args[0])
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintPages(args[0], pages)
	return nil
}
