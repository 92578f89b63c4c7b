package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/keeper/internal/httpserver/deps"
	"github.com/MrSnakeDoc/keeper/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/keeper/internal/httpserver/mw"
)

func init() { Register("import-reload", registerReload) }

func registerReload(r chi.Router, d deps.Deps) {
	r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger), mw.EnforceHost(d.AllowedHosts, d.Logger)).Post("/import/reload", handlers.ReloadImport(d))
}
