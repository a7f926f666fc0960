package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/logger"
)

const maxReadingListBody = 16 << 10

type readingItemResponse struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Name       string    `json:"name"`
	HasFavicon bool      `json:"has_favicon"`
	AddedAt    time.Time `json:"added_at"`
}

type readingListResponse struct {
	Limit int                   `json:"limit"`
	Items []readingItemResponse `json:"items"`
}

type addReadingItemRequest struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	EvictOldest bool   `json:"evict_oldest"`
}

type addReadingItemResponse struct {
	Item    readingItemResponse  `json:"item"`
	Evicted *readingItemResponse `json:"evicted,omitempty"`
}

type promoteRequest struct {
	FolderID string `json:"folder_id"`
}

type bookmarkResponse struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	Name       string `json:"name"`
	FolderID   string `json:"folder_id,omitempty"`
	LinkStatus string `json:"link_status"`
}

type promoteResponse struct {
	Bookmark bookmarkResponse `json:"bookmark"`
	Created  bool             `json:"created"`
}

func toReadingItem(it domain.ReadingListItem) readingItemResponse {
	return readingItemResponse{
		ID:         it.ID,
		URL:        it.URL,
		Name:       it.Name,
		HasFavicon: len(it.FaviconData) > 0,
		AddedAt:    it.AddedAt,
	}
}

func ListReadingItems(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := d.ReadingList.Items(r.Context())
		if err != nil {
			d.Logger.Error("failed to list reading list", logger.Error(err))
			writeError(w, statusFor(err), err)
			return
		}

		resp := readingListResponse{
			Limit: d.ReadingList.Limit(),
			Items: make([]readingItemResponse, 0, len(items)),
		}
		for _, it := range items {
			resp.Items = append(resp.Items, toReadingItem(it))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// AddReadingItem queues a URL. A full list answers 409 unless the request
// asks to evict the oldest item.
func AddReadingItem(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addReadingItemRequest
		if err := decodeBody(w, r, maxReadingListBody, &req); err != nil {
			writeError(w, statusFor(err), err)
			return
		}

		var (
			item    domain.ReadingListItem
			evicted *domain.ReadingListItem
			err     error
		)
		if req.EvictOldest {
			item, evicted, err = d.ReadingList.AddEvictingOldest(r.Context(), req.URL, req.Name)
		} else {
			item, err = d.ReadingList.Add(r.Context(), req.URL, req.Name)
		}
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}

		resp := addReadingItemResponse{Item: toReadingItem(item)}
		if evicted != nil {
			ev := toReadingItem(*evicted)
			resp.Evicted = &ev
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func RemoveReadingItem(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.ReadingList.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// PromoteReadingItem turns an item into a bookmark. The body is optional.
func PromoteReadingItem(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req promoteRequest
		if r.ContentLength != 0 {
			if err := decodeBody(w, r, maxReadingListBody, &req); err != nil {
				writeError(w, statusFor(err), err)
				return
			}
		}

		b, created, err := d.ReadingList.Promote(r.Context(), chi.URLParam(r, "id"), req.FolderID)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, promoteResponse{
			Bookmark: bookmarkResponse{
				ID:         b.ID,
				URL:        b.URL,
				Name:       b.Name,
				FolderID:   b.FolderID,
				LinkStatus: string(b.LinkStatus),
			},
			Created: created,
		})
	}
}

var errBadBody = errors.New("malformed request body")

// decodeBody reads a single JSON object of at most limit bytes.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}
