// Package note holds the durable summary record shared by every storage backend.
package note

import (
	"sort"
	"time"
)

// UntitledTitle is used whenever a title cannot be extracted from model output.
const UntitledTitle = "Untitled Summary"

// Summary is the persisted result of one recording session.
type Summary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	OriginalText string    `json:"originalText"`
	CreatedAt    time.Time `json:"createdAt"`
}

// SortNewestFirst orders summaries by CreatedAt descending in place.
func SortNewestFirst(items []Summary) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
