// Package main provides the API router setup.
package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/docsmith-io/pdf-extractor-api/cmd/pdf-extractor-api/handlers"
	"github.com/docsmith-io/pdf-extractor-api/cmd/pdf-extractor-api/middleware"
	"github.com/docsmith-io/pdf-extractor-api/internal/extract"
	"github.com/docsmith-io/pdf-extractor-api/internal/observability"
	"github.com/docsmith-io/pdf-extractor-api/internal/store"
)

// AppConfig holds the router-level application settings.
type AppConfig struct {
	RequestTimeout time.Duration
	MaxUploadSize  int64
	AllowedOrigins []string
}

// NewRouter creates the main API router with all routes configured.
func NewRouter(logger *observability.Logger, cfg *AppConfig, processor *extract.Processor, st *store.Store) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"pdf-extractor-api"}`))
	})

	uploadsHandler := handlers.NewUploadsHandler(logger, processor, st, cfg.MaxUploadSize)

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", uploadsHandler.Upload)

		r.Route("/uploads", func(r chi.Router) {
			r.Get("/", uploadsHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/text", uploadsHandler.GetText)
				r.Get("/images/{imageName}", uploadsHandler.GetImage)
				r.Get("/pdf", uploadsHandler.GetPDF)
				r.Delete("/", uploadsHandler.Delete)
			})
		})
	})

	return r
}
