// Package httpapi exposes the sync server's HTTP surface: account and token
// endpoints, and the push/pull sync API the clients drive.
package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/daykeeper/internal/logging"
	"github.com/dmitrijs2005/daykeeper/internal/server/config"
	"github.com/dmitrijs2005/daykeeper/internal/server/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter assembles the HTTP API. Auth routes sit behind a per-IP rate
// limit; sync routes require a valid access token.
func NewRouter(store storage.Storage, cfg *config.Config, logger logging.Logger) http.Handler {
	h := &Handler{store: store, config: cfg, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(RateLimiter(cfg.AuthRequestsPerSecond, cfg.AuthBurst))
			r.Post("/auth/register", h.Register)
			r.Post("/auth/login", h.Login)
			r.Post("/auth/refresh", h.Refresh)
		})

		r.Group(func(r chi.Router) {
			r.Use(Authenticator([]byte(cfg.SecretKey)))
			r.Post("/sync/push", h.Push)
			r.Get("/sync/pull", h.Pull)
		})
	})

	return r
}
