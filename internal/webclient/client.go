// Package webclient performs the outbound HTTP requests used by maintenance:
// page metadata lookups, plain GETs and link checks.
package webclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultUserAgent    = "stash/1.0 (+bookmark maintenance)"
	DefaultFetchTimeout = 10 * time.Second
	DefaultLinkTimeout  = 10 * time.Second
	DefaultMaxBodySize  = 2 << 20
	maxRedirects        = 10
)

// ErrUnsupportedScheme is returned for URLs that are not http or https.
var ErrUnsupportedScheme = errors.New("unsupported url scheme")

// Response is a fully read GET response.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
	// URL is the final address after redirects.
	URL string
}

type Options struct {
	UserAgent    string
	FetchTimeout time.Duration
	LinkTimeout  time.Duration
	MaxBodySize  int64
}

func (o Options) withDefaults() Options {
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = DefaultFetchTimeout
	}
	if o.LinkTimeout <= 0 {
		o.LinkTimeout = DefaultLinkTimeout
	}
	if o.MaxBodySize <= 0 {
		o.MaxBodySize = DefaultMaxBodySize
	}
	return o
}

// Client holds two http.Clients: a pooled one for page and icon fetches and
// a cookie-less one without keep-alives for link checks.
type Client struct {
	opts  Options
	fetch *http.Client
	check *http.Client
}

func New(opts Options) *Client {
	opts = opts.withDefaults()

	fetch := &http.Client{
		Timeout: opts.FetchTimeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        32,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     30 * time.Second,
			TLSHandshakeTimeout: opts.FetchTimeout,
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		},
		CheckRedirect: httpOnlyRedirects,
	}

	check := &http.Client{
		Timeout: opts.LinkTimeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   opts.LinkTimeout,
				KeepAlive: -1,
			}).DialContext,
			TLSHandshakeTimeout: opts.LinkTimeout,
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
			DisableKeepAlives:   true,
		},
		CheckRedirect: httpOnlyRedirects,
	}

	return &Client{opts: opts, fetch: fetch, check: check}
}

// httpOnlyRedirects follows redirects to http(s) targets only. A redirect
// elsewhere stops the chain and the redirect response itself is returned.
func httpOnlyRedirects(req *http.Request, via []*http.Request) error {
	switch strings.ToLower(req.URL.Scheme) {
	case "http", "https":
	default:
		return http.ErrUseLastResponse
	}
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	switch req.URL.Scheme {
	case "http", "https":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, req.URL.Scheme)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	return req, nil
}

// Head issues a HEAD request and returns the status code.
func (c *Client) Head(ctx context.Context, rawURL string) (int, error) {
	req, err := c.newRequest(ctx, http.MethodHead, rawURL)
	if err != nil {
		return 0, err
	}

	resp, err := c.check.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to check link: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	return resp.StatusCode, nil
}

// Get fetches rawURL and reads at most MaxBodySize bytes of the body.
// Non-2xx statuses are returned as a Response, not as an error.
func (c *Client) Get(ctx context.Context, rawURL string) (Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, rawURL)
	if err != nil {
		return Response{}, err
	}

	resp, err := c.fetch.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("failed to fetch: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBodySize))
	if err != nil {
		return Response{}, fmt.Errorf("failed to read body: %w", err)
	}

	return Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		URL:         resp.Request.URL.String(),
	}, nil
}
