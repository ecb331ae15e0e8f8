// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go loads config and creates the logger, then:
//
//	Server.New() creates: sqlite.DB → services → handlers → routes
//
// This is the "composition root" pattern — all dependencies are wired in
// one place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/strivelab/strive-blog/internal/auth"
	"github.com/strivelab/strive-blog/internal/config"
	"github.com/strivelab/strive-blog/internal/handler"
	"github.com/strivelab/strive-blog/internal/mailer"
	"github.com/strivelab/strive-blog/internal/metrics"
	"github.com/strivelab/strive-blog/internal/middleware"
	sqliteRepo "github.com/strivelab/strive-blog/internal/repository/sqlite"
	"github.com/strivelab/strive-blog/internal/service"
	"github.com/strivelab/strive-blog/internal/storage"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. When it shuts down, the
// connection must be closed to flush the WAL and release the file lock —
// handled in Start() during graceful shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a Server with the full dependency chain assembled:
//
//  1. Database connection (sqlite.New)
//  2. Infrastructure: tokens, passwords, object store, mailer, metrics
//  3. Services with their repository interfaces
//  4. Handlers with their services
//  5. Routes
//
// Each layer only receives what it needs: services get repository
// interfaces (not the concrete sqlite.DB), handlers get services.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /health                                    → liveness probe
//	GET    /metrics                                   → Prometheus scrape
//	POST   /authors/register                          → password signup
//	POST   /authors/login                             → password login
//	GET    /authors                                   → author directory
//	GET    /authors/{id}                              → single author
//	PATCH  /authors/{id}/avatar                       → avatar upload
//	GET    /authors/auth/me                           → my profile        [auth]
//	PUT    /authors/auth/me                           → edit my profile   [auth]
//	DELETE /authors/auth/me                           → delete my account [auth]
//	PATCH  /authors/auth/me/avatar                    → my avatar upload  [auth]
//	GET    /auth/login-google                         → Google consent redirect
//	GET    /auth/google/callback                      → Google OAuth callback
//	GET    /blogposts                                 → paginated listing
//	GET    /blogposts/{id}                            → single post
//	GET    /blogposts/{id}/comments                   → comment thread
//	GET    /blogposts/{id}/comments/{commentId}       → single comment
//	POST   /blogposts/auth                            → publish           [auth]
//	PUT    /blogposts/auth/{id}                       → edit own          [auth]
//	DELETE /blogposts/auth/{id}                       → delete own        [auth]
//	PATCH  /blogposts/auth/{id}/cover                 → cover upload      [auth]
//	POST   /blogposts/auth/{id}/comments              → comment           [auth]
//	DELETE /blogposts/auth/{id}/comments/{commentId}  → delete own comment [auth]
//
// plus unauthenticated CRUD mirrors under /authors and /blogposts when
// setup/testing mode is enabled.
//
// MIDDLEWARE ORDER MATTERS:
// RequestID → RealIP → Recoverer → Logger → Metrics → CORS. Recoverer
// sits above Logger so even a panicking request gets logged as a 500.
func (s *Server) setupRoutes() error {
	cfg := s.config

	// === Infrastructure ===
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTLifetime)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	var google *auth.GoogleProvider
	if cfg.GoogleEnabled() {
		google = auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL)
	} else {
		s.logger.Warn("Google OAuth not configured — /auth/login-google is disabled")
	}

	var mail mailer.Mailer = mailer.Nop{}
	if cfg.MailEnabled() {
		smtp, err := mailer.NewSMTP(mailer.Options{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.MailFrom,
		})
		if err != nil {
			return fmt.Errorf("creating mailer: %w", err)
		}
		mail = smtp
	} else {
		s.logger.Warn("SMTP not configured — transactional email is disabled")
	}

	var store storage.ObjectStore
	if cfg.StorageEnabled() {
		minioStore, err := storage.NewMinIO(context.Background(), storage.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return fmt.Errorf("creating object store: %w", err)
		}
		store = minioStore
	} else {
		s.logger.Warn("object storage not configured — image uploads return 503")
	}

	// A private registry keeps test servers from fighting over the global
	// default registerer.
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// === Repositories and services ===
	authors := s.db.Authors()
	posts := s.db.Posts()
	comments := s.db.Comments()

	authSvc := service.NewAuthService(authors, tokens, passwords, mail, collector, s.logger)
	authorSvc := service.NewAuthorService(authors, passwords, store, s.logger)
	postSvc := service.NewPostService(posts, authors, store, mail, collector, s.logger)
	commentSvc := service.NewCommentService(comments, posts, s.logger)

	// === Handlers ===
	authHandler := handler.NewAuthHandler(authSvc, authorSvc, google, cfg.FrontendURL, s.logger)
	authorHandler := handler.NewAuthorHandler(authorSvc, store != nil, cfg.MaxUploadSize)
	postHandler := handler.NewPostHandler(postSvc, cfg.DefaultAuthorID, store != nil, cfg.MaxUploadSize)
	commentHandler := handler.NewCommentHandler(commentSvc)

	requireAuthor := auth.RequireAuthor(tokens, authors)

	// === Global middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics(collector))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// === Operational endpoints ===
	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	s.router.Handle("/metrics", metrics.Handler(registry))

	// === Auth routes ===
	if google != nil {
		s.router.Get("/auth/login-google", authHandler.HandleGoogleLogin)
		s.router.Get("/auth/google/callback", authHandler.HandleGoogleCallback)
	}

	// === Author routes ===
	s.router.Route("/authors", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)

		r.Get("/", authorHandler.HandleList)
		r.Get("/{id}", authorHandler.HandleGet)
		r.Patch("/{id}/avatar", authorHandler.HandleUploadAvatar)

		// The logged-in author's own record
		r.Route("/auth/me", func(r chi.Router) {
			r.Use(requireAuthor)
			r.Get("/", authHandler.HandleMe)
			r.Put("/", authHandler.HandleUpdateMe)
			r.Delete("/", authHandler.HandleDeleteMe)
			r.Patch("/avatar", authorHandler.HandleUploadMyAvatar)
		})

		if cfg.EnableSetupRoutes {
			r.Post("/", authorHandler.HandleCreate)
			r.Put("/{id}", authorHandler.HandleUpdate)
			r.Delete("/{id}", authorHandler.HandleDelete)
			r.Delete("/", authorHandler.HandleDeleteAll)
		}
	})

	// === Post and comment routes ===
	s.router.Route("/blogposts", func(r chi.Router) {
		r.Get("/", postHandler.HandleList)
		r.Get("/{id}", postHandler.HandleGet)
		r.Get("/{id}/comments", commentHandler.HandleList)
		r.Get("/{id}/comments/{commentId}", commentHandler.HandleGet)

		// Ownership-checked writes
		r.Route("/auth", func(r chi.Router) {
			r.Use(requireAuthor)
			r.Post("/", postHandler.HandleCreateOwn)
			r.Put("/{id}", postHandler.HandleUpdateOwn)
			r.Delete("/{id}", postHandler.HandleDeleteOwn)
			r.Patch("/{id}/cover", postHandler.HandleUploadCoverOwn)
			r.Post("/{id}/comments", commentHandler.HandleCreateOwn)
			r.Delete("/{id}/comments/{commentId}", commentHandler.HandleDeleteOwn)
		})

		if cfg.EnableSetupRoutes {
			r.Post("/", postHandler.HandleCreate)
			r.Put("/{id}", postHandler.HandleUpdate)
			r.Delete("/{id}", postHandler.HandleDelete)
			r.Delete("/", postHandler.HandleDeleteAll)
			r.Patch("/{id}/cover", postHandler.HandleUploadCover)
			r.Post("/{id}/comments", commentHandler.HandleCreate)
			r.Delete("/{id}/comments/{commentId}", commentHandler.HandleDelete)
		}
	})

	if cfg.EnableSetupRoutes {
		s.logger.Warn("setup/testing routes are ENABLED — do not run this in production")
	}

	return nil
}

// Handler exposes the configured router. Tests drive it with httptest
// without binding a port.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the server's resources without going through Start's
// signal loop. Tests use this; production shutdown happens inside Start.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
