package netscape

import (
	"html"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type TokenKind int

const (
	OpenList TokenKind = iota
	CloseList
	FolderHeading
	Anchor
	Description
)

func (k TokenKind) String() string {
	switch k {
	case OpenList:
		return "open-list"
	case CloseList:
		return "close-list"
	case FolderHeading:
		return "folder-heading"
	case Anchor:
		return "anchor"
	case Description:
		return "description"
	default:
		return "unknown"
	}
}

// Token is one meaningful element of a bookmark file.
// Text holds the heading, anchor or description text.
type Token struct {
	Kind    TokenKind
	Text    string
	Href    string
	AddDate *time.Time
}

var (
	hrefAttr    = attrPattern("href")
	addDateAttr = attrPattern("add_date")
)

func attrPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(name) + `\s*=\s*(?:"([^"]*)"|'([^']*)'|(\S+))`)
}

// Scan walks the document once, from one tag to the next, and returns the
// tokens the importer understands. Everything else is ignored.
func Scan(doc string) []Token {
	lower := asciiLower(doc)

	var tokens []Token
	idx := 0
	for idx < len(doc) {
		lt := strings.IndexByte(doc[idx:], '<')
		if lt < 0 {
			break
		}
		lt += idx
		gt := strings.IndexByte(doc[lt+1:], '>')
		if gt < 0 {
			break
		}
		gt += lt + 1

		tag := doc[lt+1 : gt]
		tagLower := lower[lt+1 : gt]
		after := gt + 1
		idx = after

		switch {
		case isTag(tagLower, "dl"):
			tokens = append(tokens, Token{Kind: OpenList})

		case isTag(tagLower, "/dl"):
			tokens = append(tokens, Token{Kind: CloseList})

		case isTag(tagLower, "h3"):
			end := strings.Index(lower[after:], "</h3>")
			if end < 0 {
				continue
			}
			if name := unescape(doc[after : after+end]); name != "" {
				tokens = append(tokens, Token{Kind: FolderHeading, Text: name})
			}
			idx = after + end + len("</h3>")

		case hasAttributes(tagLower, "a"):
			end := strings.Index(lower[after:], "</a>")
			if end < 0 {
				continue
			}
			tokens = append(tokens, Token{
				Kind:    Anchor,
				Text:    unescape(doc[after : after+end]),
				Href:    strings.TrimSpace(html.UnescapeString(attribute(hrefAttr, tag))),
				AddDate: unixAttribute(addDateAttr, tag),
			})
			idx = after + end + len("</a>")

		case isTag(tagLower, "dd"):
			end := strings.IndexByte(doc[after:], '<')
			if end < 0 {
				end = len(doc) - after
			}
			if text := unescape(doc[after : after+end]); text != "" {
				tokens = append(tokens, Token{Kind: Description, Text: text})
			}
		}
	}
	return tokens
}

// isTag matches a bare tag name or a tag name followed by attributes.
func isTag(tagLower, name string) bool {
	return tagLower == name || hasAttributes(tagLower, name)
}

func hasAttributes(tagLower, name string) bool {
	if len(tagLower) <= len(name) || !strings.HasPrefix(tagLower, name) {
		return false
	}
	switch tagLower[len(name)] {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

func attribute(re *regexp.Regexp, tag string) string {
	m := re.FindStringSubmatch(tag)
	if m == nil {
		return ""
	}
	for _, v := range m[1:] {
		if v != "" {
			return v
		}
	}
	return ""
}

func unixAttribute(re *regexp.Regexp, tag string) *time.Time {
	raw := attribute(re, tag)
	if raw == "" {
		return nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return nil
	}
	whole, frac := math.Modf(secs)
	t := time.Unix(int64(whole), int64(frac*1e9)).UTC()
	return &t
}

func unescape(s string) string {
	return strings.TrimSpace(html.UnescapeString(s))
}

// asciiLower lowercases A-Z only so byte offsets stay aligned with the input.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
