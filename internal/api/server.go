// Package api exposes scoring, the catalog and the auto-apply workflow over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/spigell/opportunity-matcher/internal/autoapply"
	"github.com/spigell/opportunity-matcher/internal/matching"
	"github.com/spigell/opportunity-matcher/internal/store"
)

const (
	defaultAddr          = ":8080"
	defaultMatchMinScore = 70
	shutdownTimeout      = 10 * time.Second
)

// Config holds HTTP server settings.
type Config struct {
	Addr           string        `mapstructure:"addr"`
	AllowedOrigins []string      `mapstructure:"allowed-origins"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
	// MatchMinScore is the default threshold for the matches endpoint.
	MatchMinScore int `mapstructure:"match-min-score"`
}

// Server represents the HTTP API server.
type Server struct {
	config    Config
	router    *chi.Mux
	repo      store.Repository
	autoApply *autoapply.Service
	scorer    *matching.Scorer
	logger    *zap.Logger
	now       func() time.Time
}

// NewServer wires the router around the repository and the auto-apply service.
func NewServer(cfg Config, repo store.Repository, service *autoapply.Service, scorer *matching.Scorer, logger *zap.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.MatchMinScore <= 0 {
		cfg.MatchMinScore = defaultMatchMinScore
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if scorer == nil {
		scorer = matching.NewScorer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		config:    cfg,
		repo:      repo,
		autoApply: service,
		scorer:    scorer,
		logger:    logger,
		now:       time.Now,
	}
	s.setupRouter()
	return s
}

// Router returns the configured router.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.config.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/match", s.handleMatch)
		r.Post("/skills/normalize", s.handleNormalizeSkills)
		r.Post("/cover-letter", s.handleCoverLetter)

		r.Route("/opportunities", func(r chi.Router) {
			r.Get("/", s.handleListOpportunities)
			r.Post("/", s.handleCreateOpportunities)
			r.Get("/categories", s.handleListCategories)
		})

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/profile", s.handleGetProfile)
			r.Put("/profile", s.handlePutProfile)
			r.Post("/skills", s.handleAddSkill)
			r.Delete("/skills/{skill}", s.handleRemoveSkill)
			r.Get("/matches", s.handleListMatches)
			r.Get("/applications", s.handleListApplications)
			r.Post("/applications", s.handleCreateApplication)
			r.Post("/auto-apply", s.handleAutoApply)
		})
	})

	s.router = r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.config.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
