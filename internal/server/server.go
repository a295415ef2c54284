// Package server provides the HTTP server and routing for riimtools.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/riimtools/internal/clients/backend"
	"github.com/aristath/riimtools/internal/config"
	"github.com/aristath/riimtools/internal/di"
	calibrationhandlers "github.com/aristath/riimtools/internal/modules/calibration/handlers"
	foldinghandlers "github.com/aristath/riimtools/internal/modules/folding/handlers"
	noisehandlers "github.com/aristath/riimtools/internal/modules/noise/handlers"
	observablehandlers "github.com/aristath/riimtools/internal/modules/observable/handlers"
	runshandlers "github.com/aristath/riimtools/internal/modules/runs/handlers"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container
	Jobs      *di.JobInstances
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	container      *di.Container
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	backendName := cfg.Config.Backend
	if cfg.Config.Backend == config.BackendRemote {
		backendName = cfg.Config.RemoteURL
	}

	var jobs JobFinder
	if cfg.Jobs != nil {
		jobs = cfg.Jobs
	}

	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		container: cfg.Container,
		systemHandlers: NewSystemHandlers(
			cfg.Log,
			cfg.Config.DataDir,
			cfg.Container.DB,
			cfg.Container.Scheduler,
			jobs,
			cfg.Container.BackupService,
			backendName,
		),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// No write timeout: sampled runs and backend websockets outlive any fixed deadline.
		// Plain API routes are bounded by the Timeout middleware instead.
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Handler returns the root handler, used by tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Long-lived websocket, kept out of the timeout and compression middleware
		backend.NewHandler(s.container.Simulator, s.cfg.Workers, s.log).RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(10 * time.Minute))
			if !s.cfg.DevMode {
				r.Use(middleware.Compress(5))
			}

			calibrationhandlers.NewHandler(s.container.CalibrationRepo, s.log).RegisterRoutes(r)
			noisehandlers.NewHandler(s.log).RegisterRoutes(r)
			foldinghandlers.NewHandler(s.log).RegisterRoutes(r)
			observablehandlers.NewHandler(s.log).RegisterRoutes(r)
			runshandlers.NewHandler(s.container.RunService, s.log).RegisterRoutes(r)
			s.systemHandlers.RegisterRoutes(r)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := "ok"
	if s.container.DB != nil {
		if err := s.container.DB.Conn().PingContext(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			body = "database unavailable"
		}
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
