package model

import (
	"fmt"
	"time"
)

// Item represents a lost or found posting. ContactName and ContactEmail are
// the denormalized owner identity, captured from the posting principal at
// creation time; ContactEmail is authoritative for ownership checks.
type Item struct {
	ID           string    `json:"id"`
	PostType     string    `json:"postType"`
	Thumbnail    string    `json:"thumbnail"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Category     string    `json:"category"`
	Location     string    `json:"location"`
	Date         string    `json:"date"`
	ContactName  string    `json:"contactName"`
	ContactEmail string    `json:"contactEmail"`
	OwnerID      *int64    `json:"-"` // legacy owner reference, delete checks only
	Status       string    `json:"status"`
	ImageMime    string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Post types.
const (
	PostTypeLost  = "lost"
	PostTypeFound = "found"
)

// Item statuses.
const (
	StatusNotRecovered = "not-recovered"
	StatusRecovered    = "recovered"
)

// ValidPostType reports whether t is one of the accepted post types.
func ValidPostType(t string) bool {
	return t == PostTypeLost || t == PostTypeFound
}

// NormalizeDate validates that s is a calendar date and returns it in
// canonical 2006-01-02 form. Full RFC 3339 timestamps are accepted and
// truncated to their date part.
func NormalizeDate(s string) (string, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Format("2006-01-02"), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format("2006-01-02"), nil
	}
	return "", fmt.Errorf("invalid date %q", s)
}
