// Package store implements the filesystem result store. One subdirectory per
// upload under the store root; the directory tree is the source of truth, there
// is no in-memory index.
//
// Known race: a Delete racing a concurrent List/Get on the same id may expose
// a partially removed directory. The view is eventually consistent; callers
// get NotFound once the removal completes.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/docsmith-io/pdf-extractor-api/internal/domain"
	"github.com/docsmith-io/pdf-extractor-api/internal/observability"
)

// On-disk layout of one upload bundle. Any tooling reading the store directly
// depends on these names.
const (
	OriginalFile = "original.pdf"
	TextFile     = "extracted_text.txt"
	ImagesDir    = "images"
)

// Store reads and deletes upload bundles under a single root directory.
type Store struct {
	root   string
	logger *observability.Logger
}

// Summary describes one persisted upload, derived from a live directory scan.
type Summary struct {
	ID         string
	HasText    bool
	HasPDF     bool
	Images     []string
	ImageCount int
	CreatedAt  time.Time
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string, logger *observability.Logger) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, domain.StorageError("failed to resolve store root", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, domain.StorageError("failed to create store root", err)
	}

	return &Store{root: abs, logger: logger}, nil
}

// Root returns the absolute store root path.
func (s *Store) Root() string {
	return s.root
}

// ValidateSegment rejects any caller-supplied path segment that could resolve
// outside the store root: separators, traversal sequences, absolute markers.
func ValidateSegment(seg string) error {
	if seg == "" {
		return domain.ValidationError("path segment is empty", nil)
	}
	if seg == "." || seg == ".." {
		return domain.ValidationError("path segment is a traversal sequence", nil)
	}
	if strings.ContainsAny(seg, "/\\\x00") {
		return domain.ValidationError(fmt.Sprintf("path segment %q contains a separator", seg), nil)
	}
	if filepath.Clean(seg) != seg || filepath.IsAbs(seg) {
		return domain.ValidationError(fmt.Sprintf("path segment %q is not a clean path element", seg), nil)
	}
	return nil
}

// resolve joins validated segments under the store root. Traversal attempts
// surface as NotFound so probing reveals nothing about the filesystem.
func (s *Store) resolve(segments ...string) (string, error) {
	for _, seg := range segments {
		if err := ValidateSegment(seg); err != nil {
			return "", domain.NotFoundError("no such upload", err)
		}
	}

	path := filepath.Join(append([]string{s.root}, segments...)...)

	// Belt and braces: the joined path must still sit under the root.
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", domain.NotFoundError("no such upload", nil)
	}

	return path, nil
}

// CreateUpload creates the directory skeleton for a new upload and returns its
// path. It fails loudly when the id already exists instead of overwriting.
func (s *Store) CreateUpload(id string) (string, error) {
	if err := ValidateSegment(id); err != nil {
		return "", err
	}

	dir, err := s.resolve(id)
	if err != nil {
		return "", err
	}

	if err := os.Mkdir(dir, 0o755); err != nil {
		if os.IsExist(err) {
			return "", domain.StorageError(fmt.Sprintf("upload id %s already exists", id), err)
		}
		return "", domain.StorageError("failed to create upload directory", err)
	}

	if err := os.Mkdir(filepath.Join(dir, ImagesDir), 0o755); err != nil {
		os.RemoveAll(dir)
		return "", domain.StorageError("failed to create images directory", err)
	}

	return dir, nil
}

// Remove deletes an upload directory without the NotFound check. Used by the
// processor to clean up after a failed run.
func (s *Store) Remove(id string) error {
	dir, err := s.resolve(id)
	if err != nil {
		return err
	}
	return os.RemoveAll(dir)
}

// List enumerates all uploads via a live scan of the store root, most recent
// first. Ties are broken by id so the ordering is reproducible.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, domain.StorageError("failed to scan store root", err)
	}

	summaries := make([]Summary, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// Raced with a delete; skip.
			continue
		}

		dir := filepath.Join(s.root, entry.Name())
		summary := Summary{
			ID:        entry.Name(),
			HasText:   fileExists(filepath.Join(dir, TextFile)),
			HasPDF:    fileExists(filepath.Join(dir, OriginalFile)),
			Images:    listImages(filepath.Join(dir, ImagesDir)),
			CreatedAt: info.ModTime(),
		}
		summary.ImageCount = len(summary.Images)
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
		}
		return summaries[i].ID < summaries[j].ID
	})

	return summaries, nil
}

// Text returns the extracted text of one upload verbatim.
func (s *Store) Text(id string) (string, error) {
	path, err := s.resolve(id, TextFile)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", domain.NotFoundError(fmt.Sprintf("no extracted text for upload %s", id), err)
		}
		return "", domain.StorageError("failed to read extracted text", err)
	}

	return string(data), nil
}

// Image returns one extracted image's bytes and its sniffed content type.
func (s *Store) Image(id, name string) ([]byte, string, error) {
	path, err := s.resolve(id, ImagesDir, name)
	if err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", domain.NotFoundError(fmt.Sprintf("no image %s for upload %s", name, id), err)
		}
		return nil, "", domain.StorageError("failed to read image", err)
	}

	// mimetype falls back to application/octet-stream on unknown content.
	contentType := mimetype.Detect(data).String()

	return data, contentType, nil
}

// Original returns the verbatim copy of the uploaded PDF.
func (s *Store) Original(id string) ([]byte, error) {
	path, err := s.resolve(id, OriginalFile)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.NotFoundError(fmt.Sprintf("no original PDF for upload %s", id), err)
		}
		return nil, domain.StorageError("failed to read original PDF", err)
	}

	return data, nil
}

// Delete removes an entire upload subtree. Deleting an unknown id is NotFound,
// so delete-twice observes success then NotFound.
func (s *Store) Delete(id string) error {
	dir, err := s.resolve(id)
	if err != nil {
		return err
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NotFoundError(fmt.Sprintf("no such upload %s", id), err)
		}
		return domain.StorageError("failed to stat upload directory", err)
	}
	if !info.IsDir() {
		return domain.NotFoundError(fmt.Sprintf("no such upload %s", id), nil)
	}

	if err := os.RemoveAll(dir); err != nil {
		return domain.StorageError("failed to delete upload", err)
	}

	s.logger.Info().Str("upload_id", id).Msg("Upload deleted")
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func listImages(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return []string{}
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names
}
