package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/matheus3301/inboxd/internal/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server wraps the HTTP listener around the router.
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewServer builds the router and the HTTP server around it.
func NewServer(cfg *config.Config, h *Handlers, ws *WSHandler, logger *zap.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         cfg.ListenAddr,
			Handler:      NewRouter(cfg, h, ws, logger),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0, // WebSocket connections stay open
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}
}

// NewRouter assembles middleware and routes.
func NewRouter(cfg *config.Config, h *Handlers, ws *WSHandler, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With"},
		MaxAge:         300,
	}))
	if cfg.RateLimitPerMinute > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))
	}

	r.Get("/healthz", h.Healthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/ws", ws)

	r.Route("/api", func(r chi.Router) {
		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", h.ListConversations)
			r.Get("/search", h.SearchConversations)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/messages", h.ListMessages)
				r.Post("/messages", h.SendMessage)
			})
		})
		r.Route("/messages", func(r chi.Router) {
			r.Get("/search", h.SearchMessages)
			r.Patch("/{id}/status", h.UpdateStatus)
		})
		r.Post("/webhook/messages", h.Webhook)
	})

	return r
}

// Start blocks serving requests until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.srv.Shutdown(ctx)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}
