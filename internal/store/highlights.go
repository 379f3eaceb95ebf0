package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/reclaimhq/reclaim/internal/model"
)

// ListHighlights returns all banner slides ordered by position.
func ListHighlights(ctx context.Context, db *sql.DB) ([]model.Highlight, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, title, subtitle, image_url, link_url, position, created_at
		 FROM highlights ORDER BY position, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing highlights: %w", err)
	}
	defer rows.Close()

	var highlights []model.Highlight
	for rows.Next() {
		var h model.Highlight
		var subtitle, linkURL sql.NullString
		if err := rows.Scan(&h.ID, &h.Title, &subtitle, &h.ImageURL, &linkURL, &h.Position, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning highlight: %w", err)
		}
		h.Subtitle = subtitle.String
		h.LinkURL = linkURL.String
		highlights = append(highlights, h)
	}
	return highlights, rows.Err()
}

// CreateHighlight inserts a banner slide.
func CreateHighlight(ctx context.Context, db *sql.DB, h *model.Highlight) (*model.Highlight, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO highlights (title, subtitle, image_url, link_url, position) VALUES (?, ?, ?, ?, ?)`,
		h.Title, h.Subtitle, h.ImageURL, h.LinkURL, h.Position,
	)
	if err != nil {
		return nil, fmt.Errorf("creating highlight: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting highlight id: %w", err)
	}

	var created model.Highlight
	var subtitle, linkURL sql.NullString
	err = db.QueryRowContext(ctx,
		`SELECT id, title, subtitle, image_url, link_url, position, created_at
		 FROM highlights WHERE id = ?`, id,
	).Scan(&created.ID, &created.Title, &subtitle, &created.ImageURL, &linkURL, &created.Position, &created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("getting highlight: %w", err)
	}
	created.Subtitle = subtitle.String
	created.LinkURL = linkURL.String
	return &created, nil
}
