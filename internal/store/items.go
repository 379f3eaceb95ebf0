package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reclaimhq/reclaim/internal/model"
)

// ItemUpdateAllowlist is the set of item fields writable through a general
// update. Status is deliberately absent: it changes only inside the recovery
// transaction.
var ItemUpdateAllowlist = map[string]string{
	"postType":    "post_type",
	"title":       "title",
	"description": "description",
	"category":    "category",
	"location":    "location",
	"date":        "date",
	"thumbnail":   "thumbnail",
}

// ItemFilter narrows an item listing. Zero values mean "no constraint".
type ItemFilter struct {
	PostType string // lost | found
	Status   string // not-recovered | recovered
	Category string // exact match
	Location string // substring, case-insensitive
	Search   string // substring over title/description, case-insensitive
	Email    string // exact match on contact email
}

const itemColumns = `id, post_type, thumbnail, title, description, category, location, date,
	contact_name, contact_email, owner_id, status, image_mime, created_at, updated_at`

// CreateItem inserts a new item with a fresh canonical id and returns it.
// The caller has already validated fields and stamped the owner identity.
func CreateItem(ctx context.Context, db *sql.DB, item *model.Item) (*model.Item, error) {
	item.ID = uuid.NewString()
	item.Status = model.StatusNotRecovered

	_, err := db.ExecContext(ctx,
		`INSERT INTO items (id, post_type, thumbnail, title, description, category,
		                    location, date, contact_name, contact_email, owner_id, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.PostType, item.Thumbnail, item.Title, item.Description, item.Category,
		item.Location, item.Date, item.ContactName, item.ContactEmail, item.OwnerID, item.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return GetItem(ctx, db, model.ParseItemRef(item.ID))
}

// GetItem returns the item the reference resolves to, or nil if none does.
// UUID-shaped references match both the normalized and the literal id form;
// legacy references match literally.
func GetItem(ctx context.Context, db *sql.DB, ref model.ItemRef) (*model.Item, error) {
	return getItem(ctx, db, ref)
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getItem(ctx context.Context, q querier, ref model.ItemRef) (*model.Item, error) {
	ids := ref.Candidates()
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = ?`
	args := []any{ids[0]}
	if len(ids) == 2 {
		query = `SELECT ` + itemColumns + ` FROM items WHERE id IN (?, ?)`
		args = append(args, ids[1])
	}

	item := &model.Item{}
	var description, imageMime sql.NullString
	var ownerID sql.NullInt64
	err := q.QueryRowContext(ctx, query, args...).Scan(
		&item.ID, &item.PostType, &item.Thumbnail, &item.Title, &description,
		&item.Category, &item.Location, &item.Date, &item.ContactName, &item.ContactEmail,
		&ownerID, &item.Status, &imageMime, &item.CreatedAt, &item.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	item.Description = description.String
	item.ImageMime = imageMime.String
	if ownerID.Valid {
		item.OwnerID = &ownerID.Int64
	}
	return item, nil
}

// ListItems returns items matching the filter, newest first.
func ListItems(ctx context.Context, db *sql.DB, filter ItemFilter) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE 1=1`
	var args []any

	if filter.PostType != "" {
		query += ` AND post_type = ?`
		args = append(args, filter.PostType)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.Location != "" {
		query += ` AND LOWER(location) LIKE ?`
		args = append(args, "%"+strings.ToLower(filter.Location)+"%")
	}
	if filter.Search != "" {
		query += ` AND (LOWER(title) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ?)`
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		args = append(args, pattern, pattern)
	}
	if filter.Email != "" {
		query += ` AND contact_email = ?`
		args = append(args, filter.Email)
	}

	query += ` ORDER BY created_at DESC, id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var item model.Item
		var description, imageMime sql.NullString
		var ownerID sql.NullInt64
		if err := rows.Scan(
			&item.ID, &item.PostType, &item.Thumbnail, &item.Title, &description,
			&item.Category, &item.Location, &item.Date, &item.ContactName, &item.ContactEmail,
			&ownerID, &item.Status, &imageMime, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		item.Description = description.String
		item.ImageMime = imageMime.String
		if ownerID.Valid {
			item.OwnerID = &ownerID.Int64
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateItemFields applies an allowlisted partial update to the item and
// returns the number of modified rows. Column names come exclusively from
// ItemUpdateAllowlist; values have been validated by the caller.
func UpdateItemFields(ctx context.Context, db *sql.DB, ref model.ItemRef, fields map[string]string) (int64, error) {
	if len(fields) == 0 {
		return 0, nil
	}

	var sets []string
	var args []any
	for name, column := range ItemUpdateAllowlist {
		value, ok := fields[name]
		if !ok {
			continue
		}
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if len(sets) == 0 {
		return 0, nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC())

	ids := ref.Candidates()
	query := `UPDATE items SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	args = append(args, ids[0])
	if len(ids) == 2 {
		query = `UPDATE items SET ` + strings.Join(sets, ", ") + ` WHERE id IN (?, ?)`
		args = append(args, ids[1])
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("updating item: %w", err)
	}

	modified, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting modified rows: %w", err)
	}
	return modified, nil
}

// SetItemImage stores the processed thumbnail blob and updates the item's
// thumbnail reference to the serving path.
func SetItemImage(ctx context.Context, db *sql.DB, id string, data []byte, mime, thumbnail string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, thumbnail = ?, updated_at = ? WHERE id = ?`,
		data, mime, thumbnail, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return nil
}

// GetItemImage returns the stored thumbnail blob and its MIME type.
func GetItemImage(ctx context.Context, db *sql.DB, ref model.ItemRef) ([]byte, string, error) {
	ids := ref.Candidates()
	query := `SELECT image, image_mime FROM items WHERE id = ?`
	args := []any{ids[0]}
	if len(ids) == 2 {
		query = `SELECT image, image_mime FROM items WHERE id IN (?, ?)`
		args = append(args, ids[1])
	}

	var data []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx, query, args...).Scan(&data, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return data, mime.String, nil
}
