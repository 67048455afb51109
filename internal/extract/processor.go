// Package extract implements the upload-processing pipeline: one PDF byte
// stream plus one caller-supplied identifier in, one populated upload
// directory out.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docsmith-io/pdf-extractor-api/internal/domain"
	"github.com/docsmith-io/pdf-extractor-api/internal/observability"
	"github.com/docsmith-io/pdf-extractor-api/internal/pdf"
	"github.com/docsmith-io/pdf-extractor-api/internal/store"
)

// Result aggregates what one processing run produced. Images holds the file
// names written under the upload's images directory, in extraction order.
type Result struct {
	ID     string
	Text   string
	Images []string
}

// Processor orchestrates extraction and persistence for one upload at a time.
// It holds no mutable state, so concurrent Process calls for distinct ids need
// no coordination.
type Processor struct {
	open   pdf.OpenFunc
	store  *store.Store
	logger *observability.Logger
}

// NewProcessor creates a Processor that opens documents with open and writes
// result bundles through st.
func NewProcessor(open pdf.OpenFunc, st *store.Store, logger *observability.Logger) *Processor {
	return &Processor{
		open:   open,
		store:  st,
		logger: logger.WithComponent("extract"),
	}
}

// Process transforms one PDF byte stream into a populated upload directory:
// {root}/{id}/images/page{N}_image{M}.{ext}, then extracted_text.txt, then
// original.pdf. The text and original are written last so an interrupted run
// never leaves a directory that the listing reports as complete. On any error
// the partial directory is removed; callers must not assume partial output.
func (p *Processor) Process(ctx context.Context, pdfBytes []byte, id string) (*Result, error) {
	if err := store.ValidateSegment(id); err != nil {
		return nil, err
	}
	if len(pdfBytes) == 0 {
		return nil, domain.ValidationError("empty PDF data", nil)
	}

	// Parse before touching the filesystem, so a parse failure has no
	// side effects at all.
	doc, err := p.open(pdfBytes)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	text, err := p.extractText(ctx, doc)
	if err != nil {
		return nil, err
	}

	dir, err := p.store.CreateUpload(id)
	if err != nil {
		return nil, err
	}

	result, err := p.populate(ctx, doc, dir, id, text, pdfBytes)
	if err != nil {
		if rmErr := p.store.Remove(id); rmErr != nil {
			p.logger.Error().Err(rmErr).Str("upload_id", id).Msg("Failed to clean up partial upload")
		}
		return nil, err
	}

	p.logger.Info().
		Str("upload_id", id).
		Int("pages", doc.PageCount()).
		Int("images", len(result.Images)).
		Msg("Upload processed")

	return result, nil
}

// extractText streams text page by page in reading order and concatenates it
// with no separator beyond what the extractor inserts.
func (p *Processor) extractText(ctx context.Context, doc pdf.Document) (string, error) {
	var sb strings.Builder

	for pageNr := 1; pageNr <= doc.PageCount(); pageNr++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		pageText, err := doc.PageText(pageNr)
		if err != nil {
			return "", err
		}
		sb.WriteString(pageText)
	}

	return sb.String(), nil
}

func (p *Processor) populate(ctx context.Context, doc pdf.Document, dir, id, text string, pdfBytes []byte) (*Result, error) {
	images, err := p.writeImages(ctx, doc, dir, id)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(filepath.Join(dir, store.TextFile), []byte(text), 0o644); err != nil {
		return nil, domain.StorageError("failed to write extracted text", err)
	}

	if err := os.WriteFile(filepath.Join(dir, store.OriginalFile), pdfBytes, 0o644); err != nil {
		return nil, domain.StorageError("failed to write original PDF", err)
	}

	return &Result{ID: id, Text: text, Images: images}, nil
}

// writeImages iterates pages in order and writes each embedded image as
// page{N}_image{M}.{ext}. M is a running counter across the whole document,
// starting at 1 and reset only here. The counter increments per attempt: a
// failed single image write is skipped without renumbering later images, and
// the directory listing stays authoritative for what actually exists.
func (p *Processor) writeImages(ctx context.Context, doc pdf.Document, dir, id string) ([]string, error) {
	written := make([]string, 0)
	imageCount := 0

	for pageNr := 1; pageNr <= doc.PageCount(); pageNr++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		pageImages, err := doc.PageImages(pageNr)
		if err != nil {
			return nil, err
		}

		for _, img := range pageImages {
			imageCount++
			name := fmt.Sprintf("page%d_image%d.%s", pageNr, imageCount, pdf.NormalizeExt(img.Ext))

			path := filepath.Join(dir, store.ImagesDir, name)
			if err := os.WriteFile(path, img.Data, 0o644); err != nil {
				p.logger.Warn().
					Err(err).
					Str("upload_id", id).
					Str("image", name).
					Msg("Failed to write extracted image, skipping")
				continue
			}

			written = append(written, name)
		}
	}

	return written, nil
}
