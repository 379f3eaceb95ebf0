package model

import "time"

// Highlight is a banner slide shown on the marketplace landing page.
type Highlight struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Subtitle  string    `json:"subtitle,omitempty"`
	ImageURL  string    `json:"imageURL"`
	LinkURL   string    `json:"linkURL,omitempty"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
}
