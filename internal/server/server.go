// Package server wires the HTTP router, middleware and listener.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"coinchat/internal/config"
	"coinchat/internal/handler"
)

// HealthCheck pings one backing dependency.
type HealthCheck func(ctx context.Context) error

// Dependencies holds all the dependencies needed by the HTTP handlers.
type Dependencies struct {
	Config     *config.Config
	Accounts   handler.Accounts
	Activities handler.Activities
	Shop       handler.Shop
	Chat       handler.Chat
	Admin      handler.Admin
	Tokens     TokenVerifier
	Health     map[string]HealthCheck
}

// Server wraps the http.Server with application dependencies.
type Server struct {
	srv    *http.Server
	cfg    *config.Config
	health map[string]HealthCheck

	accountHandler *handler.AccountHandler
	gameHandler    *handler.GameHandler
	shopHandler    *handler.ShopHandler
	chatHandler    *handler.ChatHandler
	adminHandler   *handler.AdminHandler
}

// New creates a new Server instance with the given dependencies.
func New(deps *Dependencies) (*Server, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}

	s := &Server{
		cfg:            deps.Config,
		health:         deps.Health,
		accountHandler: handler.NewAccountHandler(deps.Accounts),
		gameHandler:    handler.NewGameHandler(deps.Activities),
		shopHandler:    handler.NewShopHandler(deps.Shop),
		chatHandler:    handler.NewChatHandler(deps.Chat),
		adminHandler:   handler.NewAdminHandler(deps.Admin),
	}

	s.srv = &http.Server{
		Addr:              deps.Config.Server.Addr,
		Handler:           s.routes(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
	}
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) routes(deps *Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(recoverer)
	if t := s.cfg.Server.RequestTimeout; t > 0 {
		r.Use(middleware.Timeout(t))
	}
	r.Use(cors(s.cfg.Server.CORSOrigins))

	r.Get("/health", s.handleHealth)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.accountHandler.HandleRegister)
		r.Post("/login", s.accountHandler.HandleLogin)
		r.Post("/guest", s.accountHandler.HandleGuest)
	})

	r.Group(func(r chi.Router) {
		r.Use(authenticate(deps.Tokens))

		r.Route("/game", func(r chi.Router) {
			r.Get("/profile", s.accountHandler.HandleProfile)
			r.Get("/tasks", s.accountHandler.HandleTasks)
			r.Get("/catalog", s.accountHandler.HandleCatalog)
			r.Get("/titles", s.shopHandler.HandleTitles)
			r.Post("/buy-title", s.shopHandler.HandleBuyTitle)
			r.Post("/update-time", s.gameHandler.HandleUpdateTime)
			r.Post("/action", s.gameHandler.HandleAction)
		})

		r.Get("/chat", s.chatHandler.HandleHistory)
		r.Post("/chat", s.chatHandler.HandleSend)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(requireAdmin(deps.Admin))
		r.Get("/online", s.adminHandler.HandleOnline)
		r.Post("/give-coins", s.adminHandler.HandleGiveCoins)
		r.Get("/stats", s.adminHandler.HandleStats)
		r.Get("/transactions", s.adminHandler.HandleTransactions)
		r.Get("/audit", s.adminHandler.HandleAudit)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.health))
	for name, check := range s.health {
		if err := check(ctx); err != nil {
			log.Warn().Err(err).Str("dependency", name).Msg("Health check failed")
			checks[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "up"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": status == http.StatusOK,
		"checks":  checks,
	})
}

// Start serves until the listener is closed. http.ErrServerClosed is not
// reported as an error.
func (s *Server) Start() error {
	log.Info().Str("addr", s.srv.Addr).Msg("HTTP server is starting...")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info().Msg("HTTP server stopped gracefully")
	return nil
}
