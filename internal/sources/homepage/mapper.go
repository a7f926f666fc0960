package homepage

import (
	"maps"
	"slices"
	"strings"
)

// Entry is one bookmark read from bookmarks.yaml, flattened with its
// category.
type Entry struct {
	Category    string
	Name        string
	URL         string
	Description string
}

// MapBookmarks flattens the config in file order. Keys sharing one YAML
// mapping are taken alphabetically. Entries without an href are dropped;
// an entry without a name falls back to its abbreviation.
func MapBookmarks(config BookmarksConfig) []Entry {
	var entries []Entry

	for _, category := range config {
		for _, categoryName := range slices.Sorted(maps.Keys(category)) {
			for _, bookmarkMap := range category[categoryName] {
				for _, bookmarkName := range slices.Sorted(maps.Keys(bookmarkMap)) {
					entryList := bookmarkMap[bookmarkName]
					if len(entryList) == 0 {
						continue
					}
					entry := entryList[0]

					href := strings.TrimSpace(entry.Href)
					if href == "" {
						continue
					}

					name := strings.TrimSpace(bookmarkName)
					if name == "" {
						name = strings.TrimSpace(entry.Abbr)
					}

					entries = append(entries, Entry{
						Category:    strings.TrimSpace(categoryName),
						Name:        name,
						URL:         href,
						Description: strings.TrimSpace(entry.Description),
					})
				}
			}
		}
	}

	return entries
}
