package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/httpserver/handlers"
)

func init() { Register("reading_list", registerReadingList) }

func registerReadingList(r chi.Router, d deps.Deps) {
	r.Route("/reading-list", func(r chi.Router) {
		r.Get("/", handlers.ListReadingItems(d))
		r.Post("/", handlers.AddReadingItem(d))
		r.Delete("/{id}", handlers.RemoveReadingItem(d))
		r.Post("/{id}/promote", handlers.PromoteReadingItem(d))
	})
}
