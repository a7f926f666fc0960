// Package urlcanon validates bookmark URLs and reduces them to the canonical
// form used as the dedup key across imports, the reading list and the
// maintenance engine.
package urlcanon

import (
	"net/url"
	"strings"
)

// IsValid reports whether s is an absolute http(s) URL with a non-empty host.
func IsValid(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return false
	}
	return u.Hostname() != ""
}

// Canonicalize trims s, lowercases its scheme and host and drops a bare
// trailing root slash ("https://a.com/" -> "https://a.com").
// Userinfo, path, query and fragment are kept byte-for-byte.
// Input that does not parse comes back trimmed.
func Canonicalize(s string) string {
	trimmed := strings.TrimSpace(s)
	u, err := url.Parse(trimmed)
	if err != nil {
		return trimmed
	}

	var b strings.Builder
	b.Grow(len(trimmed))

	rest := trimmed
	if u.Scheme != "" {
		b.WriteString(strings.ToLower(rest[:len(u.Scheme)]))
		b.WriteByte(':')
		rest = rest[len(u.Scheme)+1:]
	}

	if strings.HasPrefix(rest, "//") {
		end := len(rest)
		if i := strings.IndexAny(rest[2:], "/?#"); i >= 0 {
			end = i + 2
		}
		b.WriteString("//")
		b.WriteString(lowerHost(rest[2:end]))
		rest = rest[end:]

		// Only a bare root path with nothing after it is dropped.
		if rest == "/" {
			rest = ""
		}
	} else if u.Scheme != "" && rest == "/" {
		rest = ""
	}

	b.WriteString(rest)
	return b.String()
}

// SameBookmark reports whether a and b identify the same bookmark.
func SameBookmark(a, b string) bool {
	return Canonicalize(a) == Canonicalize(b)
}

// Host returns the lowercased hostname of s, or "" when s has none.
func Host(s string) string {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// lowerHost lowercases the host[:port] part of an authority and leaves any
// userinfo untouched.
func lowerHost(authority string) string {
	if at := strings.LastIndexByte(authority, '@'); at >= 0 {
		return authority[:at+1] + strings.ToLower(authority[at+1:])
	}
	return strings.ToLower(authority)
}
