// Package server exposes the wallet services as a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"noblechain/market"
	"noblechain/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Services bundles everything the handlers call into
type Services struct {
	Identity      service.IdentityService
	Pins          service.PinService
	Wallets       service.WalletService
	Transactions  service.TransactionService
	Notifications service.NotificationService
	Support       service.SupportService
	Market        *market.Feed
}

// Server is the HTTP front of the wallet
type Server struct {
	svc    Services
	router chi.Router
}

// New builds the router over svc
func New(svc Services) *Server {
	s := &Server{svc: svc}
	s.router = s.routes()
	return s
}

// Handler returns the root http.Handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Device"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Public
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/login", s.handleLogin)
		r.Get("/market", s.handleMarket)

		// Signed in
		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Post("/auth/logout", s.handleLogout)
			r.Get("/auth/history", s.handleLoginHistory)

			r.Get("/wallet", s.handleWallet)
			r.Get("/wallet/address/{symbol}", s.handleWalletAddress)
			r.Post("/wallet/assets/{symbol}", s.handleAddAsset)

			r.Post("/transfers", s.handleTransfer)
			r.Get("/transactions", s.handleTransactions)

			r.Post("/pin/provision", s.handleProvisionPin)
			r.Post("/pin", s.handleSetPin)
			r.Post("/pin/verify", s.handleVerifyPin)

			r.Get("/notifications", s.handleNotifications)

			r.Get("/support/messages", s.handleSupportChats)
			r.Post("/support/messages", s.handleSupportMessage)
		})
	})

	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	log.Info("HTTP server stopped")
	return nil
}
