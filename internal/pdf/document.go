// Package pdf wraps the third-party PDF parsing libraries behind a small
// capability interface: open a document, stream page text, enumerate embedded
// images per page. Callers never touch the libraries directly, so any parser
// satisfying Document is interchangeable.
package pdf

import "strings"

// DefaultImageExt is used when an image's native encoding is unknown.
const DefaultImageExt = "png"

// Document is an open PDF ready for extraction. Page numbers are 1-based.
type Document interface {
	// PageCount returns the number of pages in the document.
	PageCount() int
	// PageText returns the text content of one page in visual reading order.
	PageText(pageNr int) (string, error)
	// PageImages returns the embedded raster images of one page, in the order
	// they appear in the page's resource set. Form XObjects and other
	// non-image embedded objects are skipped.
	PageImages(pageNr int) ([]Image, error)
	// Close releases any resources held by the document.
	Close() error
}

// Image is one embedded raster image, decoded by the extraction library.
type Image struct {
	Data []byte
	Ext  string
}

// OpenFunc opens a PDF document from raw bytes.
type OpenFunc func(data []byte) (Document, error)

// NormalizeExt cleans a file extension reported by the extraction library,
// falling back to DefaultImageExt when it is unknown or empty.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if ext == "" {
		return DefaultImageExt
	}
	return ext
}
