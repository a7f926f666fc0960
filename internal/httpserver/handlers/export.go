package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/store"
	"github.com/MrSnakeDoc/stash/internal/transfer/csvfile"
	"github.com/MrSnakeDoc/stash/internal/transfer/netscape"
)

type exporter func(ctx context.Context, r store.Reader) (string, error)

// ExportCSV streams the full snapshot as a tagged CSV download.
func ExportCSV(d deps.Deps) http.HandlerFunc {
	return export(d, csvfile.ExportStore, "text/csv; charset=utf-8", "csv")
}

// ExportHTML streams the bookmarks as a Netscape bookmark file download.
func ExportHTML(d deps.Deps) http.HandlerFunc {
	return export(d, netscape.ExportStore, "text/html; charset=utf-8", "html")
}

func export(d deps.Deps, fn exporter, contentType, ext string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := fn(r.Context(), d.Store)
		if err != nil {
			d.Logger.Error("export failed",
				logger.String("format", ext),
				logger.Error(err))
			writeError(w, http.StatusInternalServerError, err)
			return
		}

		filename := fmt.Sprintf("stash-bookmarks-%s.%s", d.Now().Format("2006-01-02"), ext)
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(body)); err != nil {
			d.Logger.Debug("failed to write export", logger.Error(err))
		}
	}
}
