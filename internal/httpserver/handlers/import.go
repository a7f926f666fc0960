package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/metrics"
	"github.com/MrSnakeDoc/stash/internal/transfer/csvfile"
	"github.com/MrSnakeDoc/stash/internal/transfer/netscape"
)

// ImportCSV replaces every folder and bookmark with the uploaded CSV.
// The replacement is atomic: a rejected file leaves the store untouched.
func ImportCSV(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := csvfile.Import(r.Context(), r.Body, d.Store)
		metrics.ObserveImport("csv", err, stats.Bookmarks, stats.Skipped)
		if err != nil {
			d.Logger.Warn("csv import rejected",
				logger.String("remote_ip", r.RemoteAddr),
				logger.Error(err))
			writeError(w, statusFor(err), err)
			return
		}

		d.Logger.Info("csv import completed",
			logger.Int("folders", stats.Folders),
			logger.Int("bookmarks", stats.Bookmarks),
			logger.Int("skipped", stats.Skipped))
		writeJSON(w, http.StatusOK, stats)
	}
}

// ImportHTML merges an uploaded Netscape bookmark file into the store.
func ImportHTML(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := netscape.ImportReader(r.Context(), r.Body, d.Store)
		metrics.ObserveImport("html", err, stats.BookmarksAdded, stats.Skipped)
		if err != nil {
			d.Logger.Warn("html import rejected",
				logger.String("remote_ip", r.RemoteAddr),
				logger.Error(err))
			writeError(w, statusFor(err), err)
			return
		}

		d.Logger.Info("html import completed",
			logger.Int("folders_created", stats.FoldersCreated),
			logger.Int("bookmarks_added", stats.BookmarksAdded),
			logger.Int("skipped", stats.Skipped))
		writeJSON(w, http.StatusOK, stats)
	}
}
