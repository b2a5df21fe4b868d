package sqlite

import (
	"database/sql"
	"fmt"
)

// Schema is the full database layout. Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	nickname      TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'user',
	avatar_src    TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS rooms (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	owner_id   TEXT REFERENCES users(id) ON DELETE SET NULL,
	notice     TEXT NOT NULL DEFAULT 'no notice yet',
	type       TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS room_members (
	room_id   TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	user_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	joined_at DATETIME NOT NULL,
	PRIMARY KEY (room_id, user_id)
);

CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	content    TEXT NOT NULL,
	type       TEXT NOT NULL DEFAULT 'text',
	sender_id  TEXT REFERENCES users(id) ON DELETE SET NULL,
	room_id    TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS friendships (
	id           TEXT PRIMARY KEY,
	requester_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	addressee_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	room_id      TEXT REFERENCES rooms(id) ON DELETE SET NULL,
	status       TEXT NOT NULL,
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_friendships_pair
	ON friendships(min(requester_id, addressee_id), max(requester_id, addressee_id));
CREATE INDEX IF NOT EXISTS idx_friendships_room ON friendships(room_id);
CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_room_members_user ON room_members(user_id);
`

// Migrate applies Schema to db.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
