// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware, and
// routes, and owns the long-lived resources (database, session manager) so
// they are released in the right order on shutdown.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → Server.New() creates:
//	  sqlite.DB ─┬─→ session.Manager (live report feed per session)
//	             ├─→ AuthService  ─→ AuthHandler
//	             └─→ ReportService ─→ ReportHandler, DraftHandler
//	  media.Store ─→ ReportService (photo storage), /media/* file server
//
// This is the "composition root" pattern: all dependencies are wired in one
// place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/trashwatch/internal/auth"
	"github.com/sakif/trashwatch/internal/config"
	"github.com/sakif/trashwatch/internal/handler"
	"github.com/sakif/trashwatch/internal/media"
	"github.com/sakif/trashwatch/internal/middleware"
	sqliteRepo "github.com/sakif/trashwatch/internal/repository/sqlite"
	"github.com/sakif/trashwatch/internal/service"
	"github.com/sakif/trashwatch/internal/session"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection and the session manager. Sessions
// hold subscriptions on the database's report feed, so they are stopped
// before the database is closed (see Close).
type Server struct {
	router   *chi.Mux
	config   config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	media    *media.Store
	sessions *session.Manager
	tokens   *auth.TokenService
}

// New creates a new Server with the given config.
//
// DEPENDENCY INJECTION & WIRING:
//  1. Open the database (sqlite.New) and the photo store (media.NewStore)
//  2. Create the session manager on top of the database's report feed
//  3. Create the auth utilities (tokens, passwords) and the services
//  4. Create the handlers and wire them to routes
//
// The session reaper is not started here; Start does that, so tests that only
// use Handler don't leave a goroutine behind.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	// === CREATE DATABASE ===
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sqliteRepo.New(cfg.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	photos, err := media.NewStore(cfg.MediaDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening media store: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		media:    photos,
		sessions: session.NewManager(db, cfg.SessionTTL, logger),
		tokens:   tokens,
	}

	// Set up middleware and routes
	if err := s.setupRoutes(); err != nil {
		s.Close() // Clean up DB and sessions if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz                   → database reachability
//	GET    /media/*                   → stored report photos
//	POST   /api/auth/register         → create an actor and sign in    (token optional)
//	POST   /api/auth/login            → sign in                        (token optional)
//	POST   /api/auth/logout           → sign out                       (token required)
//	GET    /api/me                    → signed-in actor                (token required)
//	GET    /api/reports               → derived list                   (token required)
//	POST   /api/reports/sort          → toggle status sorting          (token required)
//	GET    /api/reports/stream        → derived list as SSE            (token required)
//	GET    /api/reports/{id}          → one visible report             (token required)
//	POST   /api/reports/{id}/resolve  → resolve (admins)               (token required)
//	GET    /api/draft                 → current draft                  (token required)
//	POST   /api/draft                 → begin a draft (users)          (token required)
//	DELETE /api/draft                 → discard the draft              (token required)
//	POST   /api/draft/photo           → attach a photo                 (token required)
//	POST   /api/draft/save            → persist the draft              (token required)
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns unique ID to each request (for tracing)
// 2. RealIP: extracts real client IP from proxy headers
// 3. Recoverer: catches panics and returns 500 instead of crashing
// 4. Logger: logs each request with timing info
func (s *Server) setupRoutes() error {
	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID) // Adds X-Request-ID header
	s.router.Use(chimiddleware.RealIP)    // Extracts real IP from X-Forwarded-For
	s.router.Use(chimiddleware.Recoverer) // Recovers from panics, returns 500

	// Our custom logging middleware
	s.router.Use(middleware.Logger(s.logger))

	// === Services ===
	// DEPENDENCY CHAIN:
	//   s.db implements repository.UserRepository and repository.ReportRepository
	//   s.sessions implements service.Sessions
	//   s.media implements service.PhotoStore
	passwords, err := auth.NewPasswordService(s.config.BcryptCost)
	if err != nil {
		return fmt.Errorf("creating password service: %w", err)
	}

	authService := service.NewAuthService(s.db, passwords, s.sessions, s.tokens, s.logger)
	reportService := service.NewReportService(s.db, s.media, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.tokens, s.logger)
	reportHandler := handler.NewReportHandler(authService, reportService, s.logger)
	draftHandler := handler.NewDraftHandler(authService, reportService, s.logger)
	streamHandler := handler.NewStreamHandler(authService, s.logger)

	// === Plain Routes ===
	s.router.Get("/healthz", handler.HandleHealth(s.db, s.logger))
	s.router.Handle(media.URLPrefix+"*", s.media.Handler())

	// === API Routes ===
	s.router.Route("/api", func(r chi.Router) {
		// Login and register work with or without a token. With one, the
		// actor is signed in to the session the token names.
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(s.tokens))
			r.Post("/auth/register", authHandler.HandleRegister)
			r.Post("/auth/login", authHandler.HandleLogin)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(s.tokens))

			r.Post("/auth/logout", authHandler.HandleLogout)
			r.Get("/me", authHandler.HandleMe)

			r.Get("/reports", reportHandler.HandleList)
			r.Post("/reports/sort", reportHandler.HandleToggleSort)
			r.Get("/reports/stream", streamHandler.HandleStream)
			r.Get("/reports/{id}", reportHandler.HandleGet)
			r.Post("/reports/{id}/resolve", reportHandler.HandleResolve)

			r.Get("/draft", draftHandler.HandleGet)
			r.Post("/draft", draftHandler.HandleBegin)
			r.Delete("/draft", draftHandler.HandleDiscard)
			r.Post("/draft/photo", draftHandler.HandlePhoto)
			r.Post("/draft/save", draftHandler.HandleSave)
		})
	})

	return nil
}

// Handler returns the fully wired router. Tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close stops every session and closes the database. Sessions go first: they
// are subscribed to the database's report feed.
func (s *Server) Close() error {
	s.sessions.Stop()
	return s.db.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Stop the session manager (closes every live view)
// 4. Close the database connection (flushes WAL, releases file lock)
//
// Report streams are long-lived and would hold Shutdown for the whole
// timeout; RegisterOnShutdown cancels them through BaseContext.
func (s *Server) Start() error {
	defer s.Close()

	s.sessions.Start()

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	// Create the HTTP server with sensible timeouts. WriteTimeout applies to
	// ordinary requests; the stream handler clears it for its own response.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(cancelBase)

	// Channel to receive OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	// Channel to receive server errors
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine (so it doesn't block)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.String("media", s.media.Dir()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	// Block until we receive a signal or server error
	select {
	case err := <-serverErrors:
		// Server failed to start
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give in-flight requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
