package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/logger"
)

type triggerResponse struct {
	Job    string `json:"job"`
	Queued bool   `json:"queued"`
}

// CheckLinks queues a link check over every bookmark.
func CheckLinks(d deps.Deps) http.HandlerFunc {
	if d.Maintenance == nil {
		return notConfigured("maintenance")
	}
	return trigger(d, "links", d.Maintenance.TriggerLinks)
}

// RefreshFavicons queues a favicon refresh for bookmarks without an icon.
func RefreshFavicons(d deps.Deps) http.HandlerFunc {
	if d.Maintenance == nil {
		return notConfigured("maintenance")
	}
	return trigger(d, "favicons", d.Maintenance.TriggerFavicons)
}

// ReloadHomepage queues a re-read of the Homepage bookmarks file.
func ReloadHomepage(d deps.Deps) http.HandlerFunc {
	if d.HomepageReload == nil {
		return notConfigured("homepage")
	}
	return trigger(d, "homepage", d.HomepageReload.TriggerReload)
}

func trigger(d deps.Deps, job string, fire func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !fire() {
			d.Logger.Warn("job already queued",
				logger.String("job", job),
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusTooManyRequests, triggerResponse{Job: job, Queued: false})
			return
		}

		d.Logger.Info("job triggered via endpoint",
			logger.String("job", job),
			logger.String("remote_ip", r.RemoteAddr))
		writeJSON(w, http.StatusAccepted, triggerResponse{Job: job, Queued: true})
	}
}

func notConfigured(job string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: job + " is not configured"})
	}
}
