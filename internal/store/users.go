package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/reclaimhq/reclaim/internal/model"
)

// CreateUser creates a locally registered user.
func CreateUser(ctx context.Context, db *sql.DB, name, email, passwordHash string) (*model.User, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash) VALUES (?, ?, ?)`,
		name, email, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, db, id)
}

// CreateExternalUser provisions a user from a verified external identity.
func CreateExternalUser(ctx context.Context, db *sql.DB, name, email, firebaseUID, photoURL string) (*model.User, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO users (name, email, firebase_uid, photo_url) VALUES (?, ?, ?, ?)`,
		name, email, nullable(firebaseUID), nullable(photoURL),
	)
	if err != nil {
		return nil, fmt.Errorf("creating external user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, db, id)
}

// UpsertExternalUser records an external login. First login creates the
// user; later logins update only the fields the login explicitly supplied,
// plus a first-time photo fallback and a missing subject id. Repeated logins
// with the same email never create a second record.
func UpsertExternalUser(ctx context.Context, db *sql.DB, email, firebaseUID, name, photoURL string) (*model.User, error) {
	existing, err := GetUserByEmail(ctx, db, email)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		return CreateExternalUser(ctx, db, name, email, firebaseUID, photoURL)
	}

	_, err = db.ExecContext(ctx,
		`UPDATE users SET
		     name         = COALESCE(NULLIF(?, ''), name),
		     photo_url    = CASE WHEN ? != '' THEN ? ELSE photo_url END,
		     firebase_uid = COALESCE(firebase_uid, NULLIF(?, '')),
		     updated_at   = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		name, photoURL, photoURL, firebaseUID, existing.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating external user: %w", err)
	}

	return GetUser(ctx, db, existing.ID)
}

const userColumns = `id, name, email, firebase_uid, password_hash, photo_url, is_admin, created_at, updated_at`

// GetUser returns a user by internal id.
func GetUser(ctx context.Context, db *sql.DB, id int64) (*model.User, error) {
	return scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// GetUserByEmail returns a user by email, the logical unique key.
func GetUserByEmail(ctx context.Context, db *sql.DB, email string) (*model.User, error) {
	return scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

// GetUserByFirebaseUID returns a user by external provider subject id.
func GetUserByFirebaseUID(ctx context.Context, db *sql.DB, uid string) (*model.User, error) {
	return scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE firebase_uid = ?`, uid))
}

func scanUser(row *sql.Row) (*model.User, error) {
	u := &model.User{}
	var firebaseUID, passwordHash, photoURL sql.NullString
	err := row.Scan(&u.ID, &u.Name, &u.Email, &firebaseUID, &passwordHash, &photoURL,
		&u.Admin, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	u.FirebaseUID = firebaseUID.String
	u.PasswordHash = passwordHash.String
	u.PhotoURL = photoURL.String
	return u, nil
}

// nullable maps an empty string to NULL so partial unique indexes behave.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
