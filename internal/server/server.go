package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"StockSentinel/internal/model"
	"StockSentinel/internal/recorder"
	"StockSentinel/internal/watchlist"
)

// Watchlist is the part of watchlist.Manager the API serves.
type Watchlist interface {
	IDs() []string
	Summary(id string) (watchlist.Summary, error)
	History(id string) ([]*model.EvaluationResult, error)
	Evaluate(ctx context.Context, id string, force bool) (*watchlist.Outcome, error)
}

// ScoreStore reads persisted scores.
type ScoreStore interface {
	ScoreHistory(ctx context.Context, isin string) ([]recorder.PointsRow, error)
}

// Config holds server configuration
type Config struct {
	Addr      string
	Log       zerolog.Logger
	Watchlist Watchlist
	Scores    ScoreStore // optional
}

// Server represents the HTTP server
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	watchlist Watchlist
	scores    ScoreStore
	started   time.Time
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		watchlist: cfg.Watchlist,
		scores:    cfg.Scores,
		started:   time.Now(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	// An evaluation fetches several quote series.
	s.router.Use(middleware.Timeout(90 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/stocks", func(r chi.Router) {
		r.Get("/", s.handleListStocks)
		r.Route("/{isin}", func(r chi.Router) {
			r.Get("/", s.handleGetStock)
			r.Get("/history", s.handleHistory)
			r.Get("/scores", s.handleScores)
			r.Post("/evaluate", s.handleEvaluate)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
