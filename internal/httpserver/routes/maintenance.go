package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/stash/internal/httpserver/mw"
)

func init() { Register("maintenance", registerMaintenance) }

func registerMaintenance(r chi.Router, d deps.Deps) {
	r.Group(func(r chi.Router) {
		r.Use(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
		r.Post("/maintenance/links", handlers.CheckLinks(d))
		r.Post("/maintenance/favicons", handlers.RefreshFavicons(d))
		r.Post("/homepage/reload", handlers.ReloadHomepage(d))
	})
}
