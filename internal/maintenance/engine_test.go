package maintenance

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/store"
	"github.com/MrSnakeDoc/stash/internal/store/memory"
	"github.com/MrSnakeDoc/stash/internal/webclient"
)

var fixedNow = time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

type fakeClient struct {
	mu        sync.Mutex
	metadata  map[string]webclient.Metadata
	responses map[string]webclient.Response
	head      func(ctx context.Context, rawURL string) (int, error)
	calls     []string
}

func (f *fakeClient) record(kind, rawURL string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, kind+" "+rawURL)
}

func (f *fakeClient) Metadata(_ context.Context, rawURL string) (webclient.Metadata, error) {
	f.record("meta", rawURL)
	md, ok := f.metadata[rawURL]
	if !ok {
		return webclient.Metadata{}, errors.New("no metadata")
	}
	return md, nil
}

func (f *fakeClient) Get(_ context.Context, rawURL string) (webclient.Response, error) {
	f.record("get", rawURL)
	resp, ok := f.responses[rawURL]
	if !ok {
		return webclient.Response{StatusCode: http.StatusNotFound}, nil
	}
	return resp, nil
}

func (f *fakeClient) Head(ctx context.Context, rawURL string) (int, error) {
	f.record("head", rawURL)
	return f.head(ctx, rawURL)
}

func (f *fakeClient) sawPrefix(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

func newEngine(st store.Store, client Client, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	return NewEngine(st, client, opts, logger.NewNop())
}

func seedBookmarks(t *testing.T, st store.Store, bookmarks ...domain.Bookmark) map[string]string {
	t.Helper()
	ids := make(map[string]string, len(bookmarks))
	require.NoError(t, st.Update(context.Background(), func(tx store.Tx) error {
		for i, b := range bookmarks {
			b.CreatedAt = fixedNow.Add(time.Duration(i) * time.Second)
			if b.Name == "" {
				b.Name = b.URL
			}
			saved, err := tx.InsertBookmark(b)
			if err != nil {
				return err
			}
			ids[b.URL] = saved.ID
		}
		return nil
	}))
	return ids
}

func bookmarksByID(t *testing.T, st store.Store) map[string]domain.Bookmark {
	t.Helper()
	bs, err := st.Bookmarks(context.Background())
	require.NoError(t, err)
	out := make(map[string]domain.Bookmark, len(bs))
	for _, b := range bs {
		out[b.ID] = b
	}
	return out
}

func TestCheckLinks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ok", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/mail", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "mailto:someone@example.com", http.StatusFound)
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL + "/anything"
	closed.Close()

	st := memory.New()
	ids := seedBookmarks(t, st,
		domain.Bookmark{URL: srv.URL + "/ok"},
		domain.Bookmark{URL: srv.URL + "/moved"},
		domain.Bookmark{URL: srv.URL + "/mail"},
		domain.Bookmark{URL: srv.URL + "/gone"},
		domain.Bookmark{URL: srv.URL + "/broken"},
		domain.Bookmark{URL: closedURL},
		domain.Bookmark{URL: "ftp://files.example/pub"},
	)

	engine := newEngine(st, webclient.New(webclient.Options{LinkTimeout: 2 * time.Second}), Options{Concurrency: 3})
	report, err := engine.CheckLinks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, LinkReport{Valid: 3, Dead: 4}, report)

	want := map[string]domain.LinkStatus{
		srv.URL + "/ok":           domain.LinkValid,
		srv.URL + "/moved":        domain.LinkValid,
		srv.URL + "/mail":         domain.LinkValid,
		srv.URL + "/gone":         domain.LinkDead,
		srv.URL + "/broken":       domain.LinkDead,
		closedURL:                 domain.LinkDead,
		"ftp://files.example/pub": domain.LinkDead,
	}
	got := bookmarksByID(t, st)
	for u, status := range want {
		b := got[ids[u]]
		assert.Equal(t, status, b.LinkStatus, u)
		require.NotNil(t, b.LastCheckedAt, u)
		assert.True(t, b.LastCheckedAt.Equal(fixedNow), u)
	}
}

func TestCheckLinksEmptyStore(t *testing.T) {
	engine := newEngine(memory.New(), &fakeClient{}, Options{})
	report, err := engine.CheckLinks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, LinkReport{}, report)
}

func TestCheckLinksCancelled(t *testing.T) {
	slowStarted := make(chan struct{}, 2)
	client := &fakeClient{
		head: func(ctx context.Context, rawURL string) (int, error) {
			if rawURL == "https://fast.example" {
				return http.StatusOK, nil
			}
			slowStarted <- struct{}{}
			<-ctx.Done()
			return 0, ctx.Err()
		},
	}

	st := memory.New()
	ids := seedBookmarks(t, st,
		domain.Bookmark{URL: "https://fast.example"},
		domain.Bookmark{URL: "https://slow-1.example"},
		domain.Bookmark{URL: "https://slow-2.example"},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-slowStarted
		<-slowStarted
		assert.Eventually(t, func() bool { return client.sawPrefix("head https://fast.example") }, time.Second, 5*time.Millisecond)
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	engine := newEngine(st, client, Options{Concurrency: 3})
	report, err := engine.CheckLinks(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, LinkReport{Valid: 1}, report)

	got := bookmarksByID(t, st)
	assert.Equal(t, domain.LinkValid, got[ids["https://fast.example"]].LinkStatus)
	for _, u := range []string{"https://slow-1.example", "https://slow-2.example"} {
		assert.Equal(t, domain.LinkUnknown, got[ids[u]].LinkStatus, u)
		assert.Nil(t, got[ids[u]].LastCheckedAt, u)
	}
}

func TestFanOutAppliesFinishedWorkAfterCancel(t *testing.T) {
	const n = 40
	targets := make([]int, n)
	for i := range targets {
		targets[i] = i
	}

	ctx, cancel := context.WithCancel(context.Background())
	var started sync.WaitGroup
	started.Add(n)
	release := make(chan struct{})
	work := func(_ context.Context, v int) (int, bool) {
		started.Done()
		<-release
		return v, true
	}

	var (
		mu      sync.Mutex
		applied []int
	)
	apply := func(ctx context.Context, batch []int) error {
		assert.NoError(t, ctx.Err(), "writes must not inherit cancellation")
		mu.Lock()
		defer mu.Unlock()
		applied = append(applied, batch...)
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- fanOut(ctx, n, targets, work, apply) }()

	started.Wait()
	cancel()
	close(release)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("fanOut did not return")
	}
	assert.ElementsMatch(t, targets, applied)
}

func TestCheckLinksRespectsConcurrency(t *testing.T) {
	var (
		mu       sync.Mutex
		inFlight int
		peak     int
	)
	client := &fakeClient{
		head: func(ctx context.Context, rawURL string) (int, error) {
			mu.Lock()
			inFlight++
			peak = max(peak, inFlight)
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
			return http.StatusNoContent, nil
		},
	}

	st := memory.New()
	var bookmarks []domain.Bookmark
	for _, host := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		bookmarks = append(bookmarks, domain.Bookmark{URL: "https://" + host + ".example"})
	}
	seedBookmarks(t, st, bookmarks...)

	report, err := newEngine(st, client, Options{Concurrency: 2}).CheckLinks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, LinkReport{Valid: 10}, report)
	assert.LessOrEqual(t, peak, 2)
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeGIF(t *testing.T) []byte {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, 3, 3), color.Palette{color.Black, color.White})
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestRefreshFavicons(t *testing.T) {
	pngIcon := encodePNG(t)
	gifIcon := encodeGIF(t)

	client := &fakeClient{
		metadata: map[string]webclient.Metadata{
			"https://a.example/page": {IconURLs: []string{"https://a.example/missing.ico", "https://a.example/icon.png"}},
			"https://c.example":      {IconURLs: []string{"https://c.example/icon.png"}},
		},
		responses: map[string]webclient.Response{
			"https://a.example/icon.png":             {StatusCode: http.StatusOK, Body: pngIcon},
			"https://icons.test/?domain=b.example":   {StatusCode: http.StatusOK, Body: gifIcon},
			"https://c.example/icon.png":             {StatusCode: http.StatusOK, Body: []byte("not an image")},
			"https://icons.test/?domain=c.example":   {StatusCode: http.StatusInternalServerError, Body: pngIcon},
			"https://icons.test/?domain=old.example": {StatusCode: http.StatusOK, Body: pngIcon},
		},
	}

	st := memory.New()
	ids := seedBookmarks(t, st,
		domain.Bookmark{URL: "https://a.example/page"},
		domain.Bookmark{URL: "https://b.example"},
		domain.Bookmark{URL: "https://c.example"},
		domain.Bookmark{URL: "https://old.example", FaviconData: []byte("existing")},
	)

	engine := newEngine(st, client, Options{FaviconEndpoint: "https://icons.test/?domain=%s"})
	n, err := engine.RefreshFavicons(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got := bookmarksByID(t, st)
	for _, u := range []string{"https://a.example/page", "https://b.example"} {
		data := got[ids[u]].FaviconData
		require.NotEmpty(t, data, u)
		_, err := png.Decode(bytes.NewReader(data))
		assert.NoError(t, err, u)
	}
	assert.Nil(t, got[ids["https://c.example"]].FaviconData)
	assert.Equal(t, []byte("existing"), got[ids["https://old.example"]].FaviconData)
	assert.False(t, client.sawPrefix("meta https://old.example"))
	assert.False(t, client.sawPrefix("get https://icons.test/?domain=a.example"), "metadata icon wins over the fallback")
}

func TestRefreshFaviconsOverHTTP(t *testing.T) {
	pngIcon := encodePNG(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><link rel="icon" href="/static/icon.png"></head></html>`))
	})
	mux.HandleFunc("/static/icon.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngIcon)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	st := memory.New()
	ids := seedBookmarks(t, st, domain.Bookmark{URL: srv.URL + "/article"})

	engine := newEngine(st, webclient.New(webclient.Options{}), Options{FaviconEndpoint: srv.URL + "/none?d=%s"})
	n, err := engine.RefreshFavicons(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	img, err := png.Decode(bytes.NewReader(bookmarksByID(t, st)[ids[srv.URL+"/article"]].FaviconData))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())
}
