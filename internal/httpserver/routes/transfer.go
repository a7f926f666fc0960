package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/httpserver/handlers"
)

func init() { Register("transfer", registerTransfer) }

func registerTransfer(r chi.Router, d deps.Deps) {
	r.Get("/export/csv", handlers.ExportCSV(d))
	r.Get("/export/html", handlers.ExportHTML(d))

	r.Group(func(r chi.Router) {
		r.Use(privileged(d)...)
		r.Post("/import/csv", handlers.ImportCSV(d))
		r.Post("/import/html", handlers.ImportHTML(d))
	})
}
