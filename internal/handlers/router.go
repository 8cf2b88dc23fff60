package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/verlyn13/dicee-server/internal/config"
)

// RouterOptions allows customization of router setup for tests
type RouterOptions struct {
	DisableRateLimiting  bool
	DisableRequestLogger bool
	CustomMiddleware     []func(http.Handler) http.Handler
}

// SetupRouter creates the application router with all routes and middleware
func SetupRouter(h *Handler, cfg *config.ServerConfig, opts *RouterOptions) *chi.Mux {
	if opts == nil {
		opts = &RouterOptions{}
	}

	r := chi.NewRouter()

	// Chi's built-in middleware (conditionally applied)
	if !opts.DisableRequestLogger {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	r.Use(limitBody(cfg.Server.MaxRequestSize))
	r.Use(secureHeaders)

	// Apply custom middleware if provided
	for _, mw := range opts.CustomMiddleware {
		r.Use(mw)
	}

	// Plain HTTP routes get per-IP rate limiting and a request timeout. The
	// WebSocket route is exempt from both: it is long-lived and the actor
	// enforces per-user chat limits itself.
	r.Group(func(r chi.Router) {
		if !opts.DisableRateLimiting {
			limiter := newIPLimiter(cfg.Server.RateLimit, cfg.Server.RateLimitBurst)
			r.Use(limiter.middleware)
		}
		r.Use(middleware.Timeout(60 * time.Second))

		r.Post("/room", h.CreateRoom)
		r.Get("/room/{code}/info", h.RoomInfo)
		r.Get("/health", h.Health)
	})

	// Room ingress: token-verified WebSocket upgrade.
	r.Get("/room/{code}", h.ConnectRoom)

	return r
}
