package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrEthical07/tokenguard/middleware"
)

// Router builds the HTTP surface. global runs on every request, outermost
// first; guard is installed last so bypassed paths and the auth endpoints
// stay reachable without a token.
func (h *Handler) Router(guard middleware.Middleware, global ...middleware.Middleware) http.Handler {
	r := chi.NewRouter()

	for _, mw := range global {
		if mw != nil {
			r.Use(mw)
		}
	}
	if guard != nil {
		r.Use(guard)
	}

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/refresh", h.Refresh)
			r.Post("/logout", h.Logout)
			r.Post("/signup", h.Signup)
		})
		r.Get("/me", h.Me)
	})

	return r
}
