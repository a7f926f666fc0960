package webclient

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Metadata is what a page says about itself.
type Metadata struct {
	Title string
	// IconURLs are absolute candidates, best first. The conventional
	// /favicon.ico of the final host is always last.
	IconURLs []string
}

// iconSelectors are tried in order of preference.
var iconSelectors = []string{
	`link[rel="apple-touch-icon"]`,
	`link[rel="apple-touch-icon-precomposed"]`,
	`link[rel="icon"]`,
	`link[rel="shortcut icon"]`,
	`link[rel~="icon"]`,
}

// Metadata fetches the page at rawURL and extracts its title and icon links.
func (c *Client) Metadata(ctx context.Context, rawURL string) (Metadata, error) {
	resp, err := c.Get(ctx, rawURL)
	if err != nil {
		return Metadata{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Metadata{}, fmt.Errorf("failed to fetch metadata: status %d", resp.StatusCode)
	}
	return ParseMetadata(resp.Body, resp.URL)
}

// ParseMetadata reads title and icon links from an HTML document served at pageURL.
func ParseMetadata(body []byte, pageURL string) (Metadata, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to parse html: %w", err)
	}

	var md Metadata
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		md.Title = strings.TrimSpace(og)
	}
	if md.Title == "" {
		md.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	seen := make(map[string]bool)
	add := func(href string) {
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "data:") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref).String()
		if !seen[abs] {
			seen[abs] = true
			md.IconURLs = append(md.IconURLs, abs)
		}
	}

	for _, sel := range iconSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if href, ok := s.Attr("href"); ok {
				add(href)
			}
		})
	}
	add("/favicon.ico")

	return md, nil
}
