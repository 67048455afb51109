// Package handlers provides the HTTP handlers for the PDF extractor API.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/docsmith-io/pdf-extractor-api/internal/domain"
	"github.com/docsmith-io/pdf-extractor-api/internal/extract"
	"github.com/docsmith-io/pdf-extractor-api/internal/observability"
	"github.com/docsmith-io/pdf-extractor-api/internal/store"
)

// multipartMemoryLimit bounds how much of a parsed form is held in memory;
// larger parts spill to disk. Distinct from the request size limit, which is
// enforced by MaxBytesReader.
const multipartMemoryLimit = 32 << 20

// UploadsHandler handles upload, fetch and delete requests.
type UploadsHandler struct {
	logger        *observability.Logger
	processor     *extract.Processor
	store         *store.Store
	maxUploadSize int64
}

// NewUploadsHandler creates a new uploads handler.
func NewUploadsHandler(logger *observability.Logger, processor *extract.Processor, st *store.Store, maxUploadSize int64) *UploadsHandler {
	return &UploadsHandler{
		logger:        logger.WithComponent("handlers"),
		processor:     processor,
		store:         st,
		maxUploadSize: maxUploadSize,
	}
}

// UploadResponseDTO is the API response for a processed upload.
type UploadResponseDTO struct {
	Success          bool     `json:"success"`
	ID               string   `json:"id"`
	OriginalFileName string   `json:"originalFileName"`
	ExtractedText    string   `json:"extractedText"`
	ImageCount       int      `json:"imageCount"`
	Images           []string `json:"images"`
}

// UploadSummaryDTO is one element of the listing response. CreatedAt is epoch
// milliseconds.
type UploadSummaryDTO struct {
	ID         string   `json:"id"`
	HasText    bool     `json:"hasText"`
	HasPDF     bool     `json:"hasPdf"`
	ImageCount int      `json:"imageCount"`
	Images     []string `json:"images"`
	CreatedAt  int64    `json:"createdAt"`
}

// TextResponseDTO is the API response for an extracted-text fetch.
type TextResponseDTO struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
}

// DeleteResponseDTO is the API response for a delete.
type DeleteResponseDTO struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// maxBytesTracker records whether the request size limit was hit while the
// body was read. The multipart parser can mask the MaxBytesError behind a MIME
// parse error on the truncated stream, so the handler needs its own signal.
type maxBytesTracker struct {
	rc  io.ReadCloser
	hit bool
}

func (t *maxBytesTracker) Read(p []byte) (int, error) {
	n, err := t.rc.Read(p)
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		t.hit = true
	}
	return n, err
}

func (t *maxBytesTracker) Close() error { return t.rc.Close() }

// Upload handles POST /api/upload: multipart field "file", synchronous
// processing, no background queue. Validation failures have no side effects.
func (h *UploadsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxUploadSize {
		h.writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("upload exceeds the %d byte limit", h.maxUploadSize), "")
		return
	}

	body := &maxBytesTracker{rc: http.MaxBytesReader(w, r.Body, h.maxUploadSize)}
	r.Body = body

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		var maxBytesErr *http.MaxBytesError
		if body.hit || errors.As(err, &maxBytesErr) {
			h.writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds the %d byte limit", h.maxUploadSize), "")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid multipart request", err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Please select a PDF file to upload", "")
		return
	}
	defer file.Close()

	if header.Size == 0 {
		h.writeError(w, http.StatusBadRequest, "Please select a PDF file to upload", "")
		return
	}

	if header.Header.Get("Content-Type") != "application/pdf" {
		h.writeError(w, http.StatusBadRequest, "Only PDF files are allowed", "")
		return
	}

	pdfBytes, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to read upload", err.Error())
		return
	}

	id := uuid.New().String()

	h.logger.Info().
		Str("upload_id", id).
		Str("file_name", header.Filename).
		Int64("size", header.Size).
		Msg("Processing upload")

	result, err := h.processor.Process(r.Context(), pdfBytes, id)
	if err != nil {
		h.logger.Error().Err(err).Str("upload_id", id).Msg("Upload processing failed")
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, UploadResponseDTO{
		Success:          true,
		ID:               result.ID,
		OriginalFileName: header.Filename,
		ExtractedText:    result.Text,
		ImageCount:       len(result.Images),
		Images:           result.Images,
	})
}

// List handles GET /api/uploads.
func (h *UploadsHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.store.List()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]UploadSummaryDTO, 0, len(summaries))
	for _, s := range summaries {
		dtos = append(dtos, UploadSummaryDTO{
			ID:         s.ID,
			HasText:    s.HasText,
			HasPDF:     s.HasPDF,
			ImageCount: s.ImageCount,
			Images:     s.Images,
			CreatedAt:  s.CreatedAt.UnixMilli(),
		})
	}

	h.writeJSON(w, http.StatusOK, dtos)
}

// GetText handles GET /api/uploads/{id}/text.
func (h *UploadsHandler) GetText(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	text, err := h.store.Text(id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, TextResponseDTO{Success: true, Text: text})
}

// GetImage handles GET /api/uploads/{id}/images/{imageName}.
func (h *UploadsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	name := chi.URLParam(r, "imageName")

	data, contentType, err := h.store.Image(id, name)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// GetPDF handles GET /api/uploads/{id}/pdf.
func (h *UploadsHandler) GetPDF(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	data, err := h.store.Original(id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="original.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Delete handles DELETE /api/uploads/{id}.
func (h *UploadsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.Delete(id); err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, DeleteResponseDTO{
		Success: true,
		Message: "Upload deleted successfully",
	})
}

// writeDomainError maps the error taxonomy to HTTP status codes: validation
// and not-found are client errors; parse and storage failures are server
// errors surfaced with a generic message.
func (h *UploadsHandler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsType(err, domain.ErrorTypeValidation):
		h.writeError(w, http.StatusBadRequest, err.Error(), "")
	case domain.IsType(err, domain.ErrorTypeNotFound):
		h.writeError(w, http.StatusNotFound, "not found", "")
	case domain.IsType(err, domain.ErrorTypeParse):
		h.writeError(w, http.StatusInternalServerError, "failed to process PDF", "")
	default:
		h.writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

func (h *UploadsHandler) writeError(w http.ResponseWriter, status int, message, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := map[string]any{
		"success": false,
		"error":   message,
	}
	if detail != "" {
		resp["detail"] = detail
	}
	json.NewEncoder(w).Encode(resp)
}

func (h *UploadsHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
