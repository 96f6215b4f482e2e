// Package main is the entry point for the trashwatch server.
//
// The main package is kept minimal. Its job is to:
// 1. Read configuration (environment, optional .env file)
// 2. Create the logger
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/handler, etc.).
package main

import (
	"log/slog"
	"os"

	"github.com/sakif/trashwatch/internal/config"
	"github.com/sakif/trashwatch/internal/logging"
	"github.com/sakif/trashwatch/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// Process environment wins over .env; see internal/config for the keys.
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// Text logs to stdout, plus a rotated file when LOG_FILE is set.
	logger, closeLog, err := logging.New(logging.Options{
		Level: cfg.LogLevel,
		File:  cfg.LogFile,
	})
	if err != nil {
		slog.Error("failed to open log file",
			slog.String("file", cfg.LogFile),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	// === 3. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		closeLog.Close()
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		closeLog.Close()
		os.Exit(1)
	}
	closeLog.Close()
}
