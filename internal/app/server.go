package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/markdave123-py/ivyready/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/ivyready/internal/api/middlewares"
	"github.com/markdave123-py/ivyready/internal/config"
	objectclient "github.com/markdave123-py/ivyready/internal/core/object-client"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewRouter builds the chi router with every route of the service.
func NewRouter(cfg *config.Config, convHandler *handlers.ConversationHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appMiddleware.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(appMiddleware.Metrics)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", handlers.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/conversation", func(conv chi.Router) {
		conv.Get("/", convHandler.GetConversation)
		conv.With(appMiddleware.MultipartLimit(cfg.MaxUploadSize)).Post("/message", convHandler.PostMessage)
	})

	if cfg.AttachmentBackend == config.AttachmentsLocal {
		prefix := objectclient.PublicUploadsPrefix + "/"
		fileServer := http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.UploadDir)))
		r.Get(prefix+"*", func(w http.ResponseWriter, req *http.Request) {
			// no directory listings
			if strings.HasSuffix(req.URL.Path, "/") {
				http.NotFound(w, req)
				return
			}
			fileServer.ServeHTTP(w, req)
		})
	}

	return r
}

// NewServer wires the router into an http.Server listening on cfg.Port.
func NewServer(cfg *config.Config, convHandler *handlers.ConversationHandler) *Server {
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewRouter(cfg, convHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server error")
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
