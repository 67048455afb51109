package pdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/docsmith-io/pdf-extractor-api/internal/domain"
)

// document implements Document on top of two pure-Go parsers:
// ledongthuc/pdf for position-sorted text and pdfcpu for embedded images.
// pdfcpu's image extraction is file based, so the raw bytes are spilled to a
// scratch file the first time PageImages is called.
type document struct {
	data   []byte
	reader *lpdf.Reader
	conf   *model.Configuration
	tmpPDF string
}

// Open parses raw PDF bytes into a Document. It returns a parse error when
// the data cannot be opened; no side effects are left behind in that case.
func Open(data []byte) (Document, error) {
	if err := ValidateHeader(data); err != nil {
		return nil, err
	}

	reader, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, domain.ParseError("failed to open PDF", err)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	return &document{
		data:   data,
		reader: reader,
		conf:   conf,
	}, nil
}

func (d *document) PageCount() int {
	return d.reader.NumPage()
}

// PageText extracts one page's text sorted by position, so multi-column or
// reordered content streams come out in visual order. Falls back to the
// plain content-stream order when row extraction fails.
func (d *document) PageText(pageNr int) (text string, err error) {
	// The parser panics on some malformed font programs; a bad page must
	// surface as an error, not take the process down.
	defer func() {
		if r := recover(); r != nil {
			err = domain.ParseError(fmt.Sprintf("text extraction panicked on page %d", pageNr), fmt.Errorf("%v", r))
		}
	}()

	if pageNr < 1 || pageNr > d.reader.NumPage() {
		return "", domain.ParseError(fmt.Sprintf("page %d out of range", pageNr), nil)
	}

	page := d.reader.Page(pageNr)
	if page.V.IsNull() {
		return "", nil
	}

	rows, err := page.GetTextByRow()
	if err != nil {
		plain, perr := page.GetPlainText(nil)
		if perr != nil {
			return "", domain.ParseError(fmt.Sprintf("failed to extract text from page %d", pageNr), perr)
		}
		return plain, nil
	}

	var sb strings.Builder
	for _, row := range rows {
		for _, word := range row.Content {
			sb.WriteString(word.S)
		}
		sb.WriteByte('\n')
	}

	return sb.String(), nil
}

// PageImages extracts the embedded raster images of one page via pdfcpu,
// which decodes each image XObject and writes it with its native encoding.
func (d *document) PageImages(pageNr int) ([]Image, error) {
	if err := d.ensureTmpPDF(); err != nil {
		return nil, err
	}

	scratch, err := os.MkdirTemp("", "pdf-extract-images-*")
	if err != nil {
		return nil, domain.StorageError("failed to create scratch directory", err)
	}
	defer os.RemoveAll(scratch)

	selected := []string{strconv.Itoa(pageNr)}
	if err := api.ExtractImagesFile(d.tmpPDF, scratch, selected, d.conf); err != nil {
		return nil, domain.ParseError(fmt.Sprintf("failed to extract images from page %d", pageNr), err)
	}

	entries, err := os.ReadDir(scratch)
	if err != nil {
		return nil, domain.StorageError("failed to read scratch directory", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	images := make([]Image, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(scratch, name))
		if err != nil {
			return nil, domain.StorageError(fmt.Sprintf("failed to read extracted image %s", name), err)
		}
		images = append(images, Image{
			Data: data,
			Ext:  NormalizeExt(filepath.Ext(name)),
		})
	}

	return images, nil
}

func (d *document) Close() error {
	if d.tmpPDF != "" {
		err := os.Remove(d.tmpPDF)
		d.tmpPDF = ""
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (d *document) ensureTmpPDF() error {
	if d.tmpPDF != "" {
		return nil
	}

	f, err := os.CreateTemp("", "pdf-extract-*.pdf")
	if err != nil {
		return domain.StorageError("failed to create scratch PDF", err)
	}

	if _, err := f.Write(d.data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return domain.StorageError("failed to write scratch PDF", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return domain.StorageError("failed to write scratch PDF", err)
	}

	d.tmpPDF = f.Name()
	return nil
}
