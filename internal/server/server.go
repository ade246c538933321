// Package server exposes the public HTTP API: published predictions, the
// refresh countdown, VIP purchases and the payment webhook.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/odd2/internal/config"
	"github.com/yourusername/odd2/internal/geo"
	"github.com/yourusername/odd2/internal/repository"
	"github.com/yourusername/odd2/internal/service"
)

// Server is the public API server
type Server struct {
	httpServer  *http.Server
	cfg         *config.Config
	location    *time.Location
	predictions repository.PredictionRepository
	access      *service.AccessService
	generator   *service.Generator
	locator     *geo.Locator
	validate    *validator.Validate
	logger      *logrus.Logger
}

// NewServer creates the API server and wires its routes
func NewServer(
	cfg *config.Config,
	location *time.Location,
	predictions repository.PredictionRepository,
	access *service.AccessService,
	generator *service.Generator,
	locator *geo.Locator,
	logger *logrus.Logger,
) *Server {
	s := &Server{
		cfg:         cfg,
		location:    location,
		predictions: predictions,
		access:      access,
		generator:   generator,
		locator:     locator,
		validate:    validator.New(),
		logger:      logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.requestLogging)

	r.Route("/api", func(r chi.Router) {
		r.Get("/predictions", s.handlePredictions)
		r.Get("/countdown", s.handleCountdown)
		r.Get("/status", s.handleStatus)

		r.Post("/payments", s.handleInitiatePayment)
		r.Get("/payments/{transactionID}", s.handleCheckPayment)

		if cfg.IsDevelopment() {
			r.Post("/demo-access", s.handleDemoAccess)
		}
	})

	r.Post("/webhook/payment", s.handlePaymentWebhook)

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.adminAuth)
		r.Post("/generate", s.handleGenerate)
		r.Get("/status", s.handleAdminStatus)
	})

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Start runs the server until the listener fails or Shutdown is called
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("API server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("API server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("API server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// requestLogging logs each request with latency and status
func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.WithFields(logrus.Fields{
			"method":  r.Method,
			"path":    r.URL.Path,
			"status":  ww.Status(),
			"latency": time.Since(start).String(),
		}).Debug("Request handled")
	})
}

// adminAuth guards the admin routes with a bearer token. With no token
// configured the routes are disabled outright.
func (s *Server) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := s.cfg.Server.AdminToken
		if token == "" {
			respondError(w, http.StatusNotFound, "not found")
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+token {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
