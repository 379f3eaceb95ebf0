package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	sqlite "modernc.org/sqlite"

	"github.com/reclaimhq/reclaim/internal/apperr"
	"github.com/reclaimhq/reclaim/internal/model"
)

// RecoveryClaim carries the claimant-supplied recovery details, already
// validated by the caller.
type RecoveryClaim struct {
	RecoveredLocation string
	RecoveredDate     string
	Notes             string
}

// RecoveryUpdateAllowlist is the set of recovery fields writable through a
// general update.
var RecoveryUpdateAllowlist = map[string]string{
	"recoveryStatus":    "recovery_status",
	"notes":             "notes",
	"recoveredLocation": "recovered_location",
	"recoveredDate":     "recovered_date",
}

// txAttempts bounds retries of an atomic unit on transient transaction-layer
// failures (SQLITE_BUSY/SQLITE_LOCKED). Business-rule failures are terminal.
const txAttempts = 3

// RecordRecovery atomically records a recovery claim and transitions the
// referenced item to recovered. The recovery snapshots the item's current
// descriptive fields and owner identity along with the claimant. Both writes
// commit together or not at all; no concurrent reader observes one without
// the other.
//
// Fails apperr.ErrNotFound when the reference resolves to no item and
// apperr.ErrConflict when the claimant is the item's owner.
func RecordRecovery(ctx context.Context, db *sql.DB, ref model.ItemRef, claimant *model.User, claim RecoveryClaim) (*model.Recovery, error) {
	var recoveryID string

	err := withRetry(func() error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		defer tx.Rollback()

		item, err := getItem(ctx, tx, ref)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("%w: item %s", apperr.ErrNotFound, ref)
		}
		if claimant.Email == item.ContactEmail {
			return fmt.Errorf("%w: cannot recover your own item", apperr.ErrConflict)
		}

		recoveryID = uuid.NewString()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO recoveries (id, item_id, post_type, title, description, category,
			                         location, date, thumbnail, owner_name, owner_email,
			                         recovered_by_id, recovered_by_name, recovered_by_email,
			                         recovered_by_photo, recovered_location, recovered_date,
			                         notes, recovery_status)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			recoveryID, item.ID, item.PostType, item.Title, item.Description, item.Category,
			item.Location, item.Date, item.Thumbnail, item.ContactName, item.ContactEmail,
			claimant.ID, claimant.Name, claimant.Email,
			claimant.PhotoURL, claim.RecoveredLocation, claim.RecoveredDate,
			claim.Notes, model.RecoveryStatusPending,
		)
		if err != nil {
			return fmt.Errorf("inserting recovery: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE items SET status = ?, updated_at = ? WHERE id = ?`,
			model.StatusRecovered, time.Now().UTC(), item.ID,
		)
		if err != nil {
			return fmt.Errorf("updating item status: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing recovery: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetRecovery(ctx, db, recoveryID)
}

// DeleteItemWithRecoveries atomically deletes the item and every recovery
// referencing it. Returns false without error when the reference resolves to
// no item.
func DeleteItemWithRecoveries(ctx context.Context, db *sql.DB, ref model.ItemRef) (bool, error) {
	deleted := false

	err := withRetry(func() error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		defer tx.Rollback()

		item, err := getItem(ctx, tx, ref)
		if err != nil {
			return err
		}
		if item == nil {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM recoveries WHERE item_id = ?`, item.ID); err != nil {
			return fmt.Errorf("deleting item recoveries: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, item.ID); err != nil {
			return fmt.Errorf("deleting item: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing item deletion: %w", err)
		}
		deleted = true
		return nil
	})
	return deleted, err
}

const recoveryColumns = `id, item_id, post_type, title, description, category, location, date,
	thumbnail, owner_name, owner_email, recovered_by_id, recovered_by_name, recovered_by_email,
	recovered_by_photo, recovered_location, recovered_date, notes, recovery_status, created_at`

// GetRecovery returns a recovery by id.
func GetRecovery(ctx context.Context, db *sql.DB, id string) (*model.Recovery, error) {
	rec := &model.Recovery{}
	var description, category, location, date, thumbnail, photo, notes sql.NullString
	var recoveredByID sql.NullInt64
	err := db.QueryRowContext(ctx,
		`SELECT `+recoveryColumns+` FROM recoveries WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.ItemID, &rec.PostType, &rec.Title, &description, &category,
		&location, &date, &thumbnail, &rec.OwnerName, &rec.OwnerEmail,
		&recoveredByID, &rec.RecoveredByName, &rec.RecoveredByEmail,
		&photo, &rec.RecoveredLocation, &rec.RecoveredDate, &notes, &rec.RecoveryStatus, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting recovery: %w", err)
	}
	rec.Description = description.String
	rec.Category = category.String
	rec.Location = location.String
	rec.Date = date.String
	rec.Thumbnail = thumbnail.String
	rec.RecoveredByPhoto = photo.String
	rec.Notes = notes.String
	rec.RecoveredByID = recoveredByID.Int64
	return rec, nil
}

// ListRecoveriesForUser returns recoveries where the user is the claimant or
// the snapshot owner, newest first.
func ListRecoveriesForUser(ctx context.Context, db *sql.DB, user *model.User) ([]model.Recovery, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+recoveryColumns+` FROM recoveries
		 WHERE recovered_by_id = ? OR recovered_by_email = ? OR owner_email = ?
		 ORDER BY created_at DESC, id`,
		user.ID, user.Email, user.Email,
	)
	if err != nil {
		return nil, fmt.Errorf("listing recoveries: %w", err)
	}
	defer rows.Close()

	var recoveries []model.Recovery
	for rows.Next() {
		var rec model.Recovery
		var description, category, location, date, thumbnail, photo, notes sql.NullString
		var recoveredByID sql.NullInt64
		if err := rows.Scan(&rec.ID, &rec.ItemID, &rec.PostType, &rec.Title, &description, &category,
			&location, &date, &thumbnail, &rec.OwnerName, &rec.OwnerEmail,
			&recoveredByID, &rec.RecoveredByName, &rec.RecoveredByEmail,
			&photo, &rec.RecoveredLocation, &rec.RecoveredDate, &notes, &rec.RecoveryStatus, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning recovery: %w", err)
		}
		rec.Description = description.String
		rec.Category = category.String
		rec.Location = location.String
		rec.Date = date.String
		rec.Thumbnail = thumbnail.String
		rec.RecoveredByPhoto = photo.String
		rec.Notes = notes.String
		rec.RecoveredByID = recoveredByID.Int64
		recoveries = append(recoveries, rec)
	}
	return recoveries, rows.Err()
}

// UpdateRecoveryFields applies an allowlisted partial update to a recovery
// and returns the updated record, or nil if the recovery does not exist.
// Column names come exclusively from RecoveryUpdateAllowlist.
func UpdateRecoveryFields(ctx context.Context, db *sql.DB, id string, fields map[string]string) (*model.Recovery, error) {
	var sets []string
	var args []any
	for name, column := range RecoveryUpdateAllowlist {
		value, ok := fields[name]
		if !ok {
			continue
		}
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("%w: no updatable fields", apperr.ErrValidation)
	}

	args = append(args, id)
	result, err := db.ExecContext(ctx,
		`UPDATE recoveries SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("updating recovery: %w", err)
	}

	modified, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("counting modified rows: %w", err)
	}
	if modified == 0 {
		return nil, nil
	}

	return GetRecovery(ctx, db, id)
}

// withRetry runs an atomic unit, retrying only on transient transaction-layer
// failures. Anything else, including business-rule errors, is terminal.
func withRetry(unit func() error) error {
	var err error
	for attempt := 0; attempt < txAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
		}
		err = unit()
		if err == nil || !isTransient(err) {
			return err
		}
	}
	return err
}

// isTransient reports whether the error is a retryable SQLite contention
// failure (SQLITE_BUSY or SQLITE_LOCKED).
func isTransient(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	code := serr.Code() & 0xff
	return code == 5 || code == 6 // SQLITE_BUSY, SQLITE_LOCKED
}
