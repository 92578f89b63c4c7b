package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/keeper/internal/httpserver/deps"
	"github.com/MrSnakeDoc/keeper/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/keeper/internal/httpserver/mw"
)

func init() { Register("auth", registerAuth) }

func registerAuth(r chi.Router, d deps.Deps) {
	r.Route("/auth", func(r chi.Router) {
		r.Use(mw.RateLimit(rateLimitConfig(d)))

		r.Get("/login", handlers.Login(d))
		r.Get("/callback", handlers.Callback(d))

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireSession(d.Auth, d.Logger))
			r.Post("/refresh", handlers.Refresh(d))
			r.Post("/logout", handlers.Logout(d))
		})
	})
}
