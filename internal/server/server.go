// Package server exposes chat, history, saved responses and accounts over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/handlers"
	"go.uber.org/zap"

	"github.com/xaenox/askbot/internal/auth"
	"github.com/xaenox/askbot/internal/chat"
)

type Config struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	CORSOrigins       []string
	CookieName        string
	// SecureCookie marks the session cookie Secure.
	SecureCookie bool
}

type Server struct {
	cfg      Config
	chats    *chat.Service
	accounts *auth.Accounts
	tokens   *auth.Tokens
	router   chi.Router
	httpSrv  *http.Server
	logger   *zap.Logger
}

func New(cfg Config, chats *chat.Service, accounts *auth.Accounts, tokens *auth.Tokens, logger *zap.Logger) *Server {
	if cfg.CookieName == "" {
		cfg.CookieName = "session"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		cfg:      cfg,
		chats:    chats,
		accounts: accounts,
		tokens:   tokens,
		logger:   logger,
	}
	s.setupRoutes()

	var handler http.Handler = s.router
	if len(cfg.CORSOrigins) > 0 {
		handler = handlers.CORS(
			handlers.AllowedOrigins(cfg.CORSOrigins),
			handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
			handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
			handlers.AllowCredentials(),
		)(handler)
	}

	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(accessLog(s.logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(auth.NewMiddleware(s.tokens, s.cfg.CookieName, s.unauthorized, s.logger).Handler)

			r.Post("/chat", s.handleChat)
			r.Get("/chat-history", s.handleChatHistory)
			r.Get("/saved-responses", s.handleSavedResponses)
			r.Post("/saved-responses", s.handleSaveResponse)
			r.Delete("/saved-responses", s.handleDeleteSavedResponse)
		})
	})

	s.router = r
}

// Handler returns the routed handler without CORS, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		s.logger.Info("HTTP server listening", zap.String("addr", s.httpSrv.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return <-errCh
}
