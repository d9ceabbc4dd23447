package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iho/chainledger/internal/adapter/http/handler"
	"github.com/iho/chainledger/internal/adapter/http/middleware"
	"github.com/iho/chainledger/internal/infrastructure/auth"
	"github.com/iho/chainledger/internal/usecase"
)

// RouterConfig holds dependencies for the router. Nil optional fields
// disable the corresponding middleware, which keeps handler tests
// independent of the full stack.
type RouterConfig struct {
	EntryHandler     *handler.EntryHandler
	AccountHandler   *handler.AccountHandler
	VerifyHandler    *handler.VerifyHandler
	AuthHandler      *handler.AuthHandler
	HealthHandler    *handler.HealthHandler
	JWTManager       *auth.JWTManager
	IdempotencyStore usecase.IdempotencyStore
	SigningSecret    []byte
	RateLimiter      *middleware.RateLimiter
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(middleware.Metrics)
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	if cfg.AuthHandler != nil {
		r.Post("/api/v1/auth/login", cfg.AuthHandler.Login)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.JWTManager != nil {
			r.Use(middleware.AuthMiddleware(cfg.JWTManager))
		}
		if len(cfg.SigningSecret) > 0 {
			signing := middleware.NewSigningMiddleware(cfg.SigningSecret)
			r.Use(signing.Wrap)
		}
		if cfg.IdempotencyStore != nil {
			idempotency := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore)
			r.Use(idempotency.Wrap)
		}

		if cfg.AuthHandler != nil {
			r.Get("/auth/me", cfg.AuthHandler.GetCurrentUser)
		}

		r.Route("/entries", func(r chi.Router) {
			r.Get("/", cfg.EntryHandler.List)
			r.Get("/{entryNumber}", cfg.EntryHandler.Get)
			r.Get("/{entryNumber}/audit", cfg.EntryHandler.AuditLog)

			r.Group(func(r chi.Router) {
				if cfg.JWTManager != nil {
					r.Use(middleware.RequirePoster)
				}
				r.Post("/", cfg.EntryHandler.Create)
				r.Put("/{entryNumber}", cfg.EntryHandler.Update)
				r.Post("/{entryNumber}/post", cfg.EntryHandler.Post)
				r.Post("/{entryNumber}/void", cfg.EntryHandler.Void)
			})

			r.Group(func(r chi.Router) {
				if cfg.JWTManager != nil {
					r.Use(middleware.RequireVerifier)
				}
				r.Get("/{entryNumber}/verify", cfg.VerifyHandler.Entry)
				r.Get("/{entryNumber}/verify/backward", cfg.VerifyHandler.Backward)
			})
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", cfg.AccountHandler.List)
			r.Get("/{id}", cfg.AccountHandler.Get)
			r.Get("/{id}/balance", cfg.AccountHandler.Balance)

			r.Group(func(r chi.Router) {
				if cfg.JWTManager != nil {
					r.Use(middleware.RequireAccountManager)
				}
				r.Post("/", cfg.AccountHandler.Create)
				r.Post("/{id}/deactivate", cfg.AccountHandler.Deactivate)
				r.Post("/{id}/reactivate", cfg.AccountHandler.Reactivate)
			})
		})

		r.Group(func(r chi.Router) {
			if cfg.JWTManager != nil {
				r.Use(middleware.RequireVerifier)
			}
			r.Get("/ledger/verify", cfg.VerifyHandler.Chain)
		})
	})

	return r
}
