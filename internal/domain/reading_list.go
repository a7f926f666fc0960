package domain

import "time"

// ReadingListItem is a link queued for later reading.
type ReadingListItem struct {
	ID          string
	URL         string
	Name        string
	FaviconData []byte
	AddedAt     time.Time
}

// Clone returns a copy that shares no mutable memory with it.
func (it ReadingListItem) Clone() ReadingListItem {
	c := it
	if it.FaviconData != nil {
		c.FaviconData = append([]byte(nil), it.FaviconData...)
	}
	return c
}
