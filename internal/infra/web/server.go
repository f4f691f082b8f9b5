package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"subscription-activation/internal/usecase"
)

// Server exposes the code-generation and redemption operations over HTTP.
type Server struct {
	genUC  *usecase.GenerationUseCase
	redUC  *usecase.RedemptionUseCase
	apiKey string
	auth   *AuthManager
	log    *zerolog.Logger
	server *http.Server
}

func NewServer(genUC *usecase.GenerationUseCase, redUC *usecase.RedemptionUseCase, apiKey string, auth *AuthManager, logger *zerolog.Logger) *Server {
	return &Server{genUC: genUC, redUC: redUC, apiKey: apiKey, auth: auth, log: logger}
}

// Router assembles the route tree. Admin routes (batch generation and
// inspection) sit behind the bearer-key middleware; redemption and status
// are user-facing.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/codes/redeem", s.handleRedeem)
		r.Post("/subscriptions/activate", s.handleActivateByPayment)
		r.Post("/subscriptions/trial", s.handleCreateTrial)
		r.Get("/subscriptions/{userID}", s.handleSubscriptionStatus)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/session", s.handleMintSession)
			r.Post("/codes/generate", s.handleGenerate)
			r.Get("/batches/{batchID}", s.handleBatchDetail)
			r.Post("/batches/{batchID}/archive", s.handleArchiveBatch)
		})
	})
	return r
}

func (s *Server) Start(port int) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info().Int("port", port).Msg("HTTP server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// handleMintSession trades the API key for a short-lived session cookie.
func (s *Server) handleMintSession(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		http.Error(w, "Sessions not configured", http.StatusNotImplemented)
		return
	}
	if _, err := s.auth.Mint(w); err != nil {
		s.log.Error().Err(err).Msg("mint session")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// authMiddleware protects the admin API. A valid operator session cookie
// or the configured bearer key both pass.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("admin API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		if s.auth != nil {
			if _, err := s.auth.VerifyRequest(r); err == nil {
				next.ServeHTTP(w, r)
				return
			}
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			http.Error(w, "Unauthorized: Malformed token", http.StatusUnauthorized)
			return
		}

		if tokenParts[1] != s.apiKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
