// Package main provides the PDF extractor API server entrypoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/docsmith-io/pdf-extractor-api/internal/config"
	"github.com/docsmith-io/pdf-extractor-api/internal/extract"
	"github.com/docsmith-io/pdf-extractor-api/internal/observability"
	"github.com/docsmith-io/pdf-extractor-api/internal/pdf"
	"github.com/docsmith-io/pdf-extractor-api/internal/store"
)

// resolveConfigPath parses the --config flag, falling back to the CONFIG_PATH
// environment variable when the flag is absent.
func resolveConfigPath(args []string, getenv func(string) string) string {
	fs := flag.NewFlagSet("pdf-extractor-api", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	path := fs.String("config", getenv("CONFIG_PATH"), "path to YAML config file")
	if err := fs.Parse(args); err != nil {
		return getenv("CONFIG_PATH")
	}
	return *path
}

func main() {
	// Load configuration
	cfgPath := resolveConfigPath(os.Args[1:], os.Getenv)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("uploads_dir", cfg.Storage.UploadsDir).
		Int64("max_upload_size", cfg.Storage.MaxUploadSize).
		Msg("Starting PDF extractor API")

	// Initialize the result store and the upload processor
	st, err := store.New(cfg.Storage.UploadsDir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize result store")
	}

	processor := extract.NewProcessor(pdf.Open, st, logger)

	appCfg := &AppConfig{
		RequestTimeout: cfg.Server.WriteTimeout,
		MaxUploadSize:  cfg.Storage.MaxUploadSize,
		AllowedOrigins: []string{"*"},
	}

	router := NewRouter(logger, appCfg, processor, st)

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	// Wait for interrupt or error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error().Err(err).Msg("Server error")
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced shutdown failed")
		}
	}

	logger.Info().Msg("Server stopped")
}
