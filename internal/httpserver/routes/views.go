package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/keeper/internal/httpserver/deps"
	"github.com/MrSnakeDoc/keeper/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/keeper/internal/httpserver/mw"
)

func init() { Register("api", registerViews) }

func registerViews(r chi.Router, d deps.Deps) {
	r.Route("/api", func(r chi.Router) {
		r.Use(mw.RequireSession(d.Auth, d.Logger))

		// Long-lived stream, no request timeout.
		r.Get("/views/{viewID}/events", handlers.Events(d))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout(d)))

			r.Get("/views/{viewID}", handlers.GetView(d))

			r.Group(func(r chi.Router) {
				r.Use(mw.RateLimit(rateLimitConfig(d)))

				r.Post("/views", handlers.MountView(d))
				r.Delete("/views/{viewID}", handlers.UnmountView(d))
				r.Post("/views/{viewID}/reload", handlers.ReloadView(d))
				r.Post("/views/{viewID}/bookmarks", handlers.AddBookmark(d))
				r.Delete("/views/{viewID}/bookmarks/{bookmarkID}", handlers.DeleteBookmark(d))
				r.Post("/import", handlers.Import(d))
			})
		})
	})
}
