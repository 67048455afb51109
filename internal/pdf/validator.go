package pdf

import (
	"bytes"

	"github.com/docsmith-io/pdf-extractor-api/internal/domain"
)

// pdfMagic is the header every PDF file starts with.
var pdfMagic = []byte("%PDF-")

// ValidateHeader checks that data looks like a PDF by inspecting the magic
// bytes. It is a cheap pre-flight check; real parsing happens in Open.
func ValidateHeader(data []byte) error {
	if len(data) == 0 {
		return domain.ValidationError("empty PDF data", nil)
	}
	if len(data) < len(pdfMagic) || !bytes.HasPrefix(data, pdfMagic) {
		return domain.ValidationError("data is not a PDF (missing %PDF- header)", nil)
	}
	return nil
}
