// Package server provides the HTTP API for Shinbun.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/shinbun/internal/auth"
	"github.com/hyperjump/shinbun/internal/config"
	"github.com/hyperjump/shinbun/internal/keyword"
	"github.com/hyperjump/shinbun/internal/metrics"
	"github.com/hyperjump/shinbun/internal/recommend"
	"github.com/hyperjump/shinbun/internal/storage"
)

// Recommender serves category recommendations. *recommend.Service implements it.
type Recommender interface {
	Recommend(ctx context.Context, query string) (*recommend.Result, error)
	Stats() recommend.Stats
}

// Server is the HTTP server for the Shinbun API.
type Server struct {
	storage     storage.Storage
	index       keyword.ArticleIndex
	recommender Recommender
	tokens      *auth.TokenManager
	config      *config.Config
	logger      *zap.Logger
	server      *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a server with the given dependencies.
func NewServer(
	store storage.Storage,
	index keyword.ArticleIndex,
	rec Recommender,
	tokens *auth.TokenManager,
	cfg *config.Config,
	opts ...Option,
) *Server {
	s := &Server{
		storage:     store,
		index:       index,
		recommender: rec,
		tokens:      tokens,
		config:      cfg,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const defaultHandlerTimeout = 60 * time.Second

// handlerTimeout bounds request handling so the 504 from the timeout middleware can still
// be written before the connection's write deadline.
func handlerTimeout(writeTimeout time.Duration) time.Duration {
	switch {
	case writeTimeout <= 0:
		return defaultHandlerTimeout
	case writeTimeout > 2*time.Second:
		return writeTimeout - time.Second
	default:
		return writeTimeout / 2
	}
}

// Router builds the chi router with middleware and all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(jsonRecoverer(s.logger))
	r.Use(middleware.Timeout(handlerTimeout(s.config.Server.WriteTimeout)))
	r.Use(middleware.Compress(5))
	r.Use(metrics.Middleware())

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if n := s.config.Server.RateLimitPerMinute; n > 0 {
				r.Use(httprate.LimitByIP(n, time.Minute))
			}
			r.Post("/auth/register", s.handleRegister)
			r.Post("/auth/token", s.handleToken)
			r.Post("/auth/token/refresh", s.handleRefresh)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.tokens.Middleware)

			r.Get("/status", s.handleStatus)
			r.Post("/recommend", s.handleRecommend)

			r.Get("/articles", s.handleListArticles)
			r.Post("/articles", s.handleCreateArticle)
			r.Get("/articles/search", s.handleSearchArticles)
			r.Get("/articles/{id}", s.handleGetArticle)
			r.Delete("/articles/{id}", s.handleDeleteArticle)

			r.Get("/topics", s.handleListTopics)

			r.Get("/users", s.handleListUsers)
			r.Get("/users/{id}", s.handleGetUser)
			r.Put("/users/{id}", s.handleUpdateUser)

			r.Get("/stored", s.handleListStored)
			r.Post("/stored", s.handleCreateStored)
			r.Get("/stored/{newsID}", s.handleLikesForArticle)

			r.Get("/shared", s.handleListShares)
			r.Post("/shared", s.handleCreateShare)
			r.Get("/shared/{destination}", s.handleSharesTo)

			r.Get("/bookmarked/{userID}", s.handleListBookmarked)
			r.Get("/bookmarked/{userID}/{newsID}", s.handleGetBookmarked)
			r.Delete("/bookmarked/{userID}/{newsID}", s.handleDeleteBookmarked)

			r.Get("/liked/{userID}", s.handleListLiked)
			r.Get("/liked/{userID}/{newsID}", s.handleGetLiked)
			r.Delete("/liked/{userID}/{newsID}", s.handleDeleteLiked)

			r.Get("/follow/{follower}", s.handleListFollows)
			r.Post("/follow/{follower}", s.handleCreateFollow)
			r.Get("/follow/{follower}/{following}", s.handleGetFollow)
			r.Delete("/follow/{follower}/{following}", s.handleDeleteFollow)
		})
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
