// Package main provides a one-shot CLI over the upload-processing pipeline:
// extract text and images from a local PDF into a result bundle directory.
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/docsmith-io/pdf-extractor-api/internal/extract"
	"github.com/docsmith-io/pdf-extractor-api/internal/observability"
	"github.com/docsmith-io/pdf-extractor-api/internal/pdf"
	"github.com/docsmith-io/pdf-extractor-api/internal/store"
)

var (
	outDir   string
	uploadID string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "pdf-extract <file.pdf>",
	Short: "Extract text and embedded images from a PDF into a result bundle",
	Long: `pdf-extract runs the same processing pipeline as the HTTP API against a
local file: it writes {out}/{id}/images/page{N}_image{M}.{ext},
{out}/{id}/extracted_text.txt and {out}/{id}/original.pdf.`,
	Args: cobra.ExactArgs(1),
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVarP(&outDir, "out", "o", "./uploads", "result bundle root directory")
	rootCmd.Flags().StringVar(&uploadID, "id", "", "upload id (default: random UUID)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

func run(cmd *cobra.Command, args []string) error {
	level := "warn"
	if verbose {
		level = "debug"
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:       level,
		Format:      "console",
		ServiceName: "pdf-extract",
	})

	pdfBytes, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	st, err := store.New(outDir, logger)
	if err != nil {
		return err
	}

	id := uploadID
	if id == "" {
		id = uuid.New().String()
	}

	processor := extract.NewProcessor(pdf.Open, st, logger)
	result, err := processor.Process(cmd.Context(), pdfBytes, id)
	if err != nil {
		return err
	}

	fmt.Printf("Upload id:  %s\n", result.ID)
	fmt.Printf("Text bytes: %d\n", len(result.Text))
	fmt.Printf("Images:     %d\n", len(result.Images))
	for _, name := range result.Images {
		fmt.Printf("  %s\n", name)
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
