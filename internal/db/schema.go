package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    name          TEXT NOT NULL,
    email         TEXT NOT NULL,
    firebase_uid  TEXT,
    password_hash TEXT,
    photo_url     TEXT,
    is_admin      INTEGER NOT NULL DEFAULT 0,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_firebase_uid
    ON users(firebase_uid) WHERE firebase_uid IS NOT NULL;

CREATE TABLE IF NOT EXISTS items (
    id            TEXT PRIMARY KEY,
    post_type     TEXT NOT NULL CHECK (post_type IN ('lost', 'found')),
    thumbnail     TEXT NOT NULL,
    title         TEXT NOT NULL,
    description   TEXT,
    category      TEXT NOT NULL,
    location      TEXT NOT NULL,
    date          TEXT NOT NULL,
    contact_name  TEXT NOT NULL,
    contact_email TEXT NOT NULL,
    owner_id      INTEGER REFERENCES users(id),
    status        TEXT NOT NULL DEFAULT 'not-recovered'
                  CHECK (status IN ('not-recovered', 'recovered')),
    image         BLOB,
    image_mime    TEXT,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_items_contact_email ON items(contact_email);
CREATE INDEX IF NOT EXISTS idx_items_status ON items(status);

CREATE TABLE IF NOT EXISTS recoveries (
    id                 TEXT PRIMARY KEY,
    item_id            TEXT NOT NULL REFERENCES items(id),
    post_type          TEXT NOT NULL,
    title              TEXT NOT NULL,
    description        TEXT,
    category           TEXT,
    location           TEXT,
    date               TEXT,
    thumbnail          TEXT,
    owner_name         TEXT NOT NULL,
    owner_email        TEXT NOT NULL,
    recovered_by_id    INTEGER REFERENCES users(id),
    recovered_by_name  TEXT NOT NULL,
    recovered_by_email TEXT NOT NULL,
    recovered_by_photo TEXT,
    recovered_location TEXT NOT NULL,
    recovered_date     TEXT NOT NULL,
    notes              TEXT,
    recovery_status    TEXT NOT NULL DEFAULT 'pending'
                       CHECK (recovery_status IN ('pending', 'completed', 'cancelled')),
    created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_recoveries_item_id ON recoveries(item_id);
CREATE INDEX IF NOT EXISTS idx_recoveries_claimant ON recoveries(recovered_by_email);

CREATE TABLE IF NOT EXISTS highlights (
    id         INTEGER PRIMARY KEY,
    title      TEXT NOT NULL,
    subtitle   TEXT,
    image_url  TEXT NOT NULL,
    link_url   TEXT,
    position   INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
