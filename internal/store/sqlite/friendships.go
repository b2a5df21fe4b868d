package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vovakirdan/wirechat-gateway/internal/store"
)

const friendshipColumns = `id, requester_id, addressee_id, room_id, status, created_at, updated_at`

// CreateFriendship inserts a friendship. ID and timestamps are filled in.
func (s *SQLiteStore) CreateFriendship(ctx context.Context, f *store.Friendship) error {
	if f.ID == "" {
		f.ID = newID()
	}
	f.CreatedAt = now()
	f.UpdatedAt = f.CreatedAt

	query := `INSERT INTO friendships (` + friendshipColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query,
		f.ID, f.RequesterID, f.AddresseeID, nullString(f.RoomID), f.Status, f.CreatedAt, f.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert friendship: %w", store.ErrConflict)
		}
		return fmt.Errorf("insert friendship: %w", err)
	}
	return nil
}

// UpdateFriendship persists status, room and parties.
func (s *SQLiteStore) UpdateFriendship(ctx context.Context, f *store.Friendship) error {
	f.UpdatedAt = now()
	query := `
		UPDATE friendships
		SET requester_id = ?, addressee_id = ?, room_id = ?, status = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		f.RequesterID, f.AddresseeID, nullString(f.RoomID), f.Status, f.UpdatedAt, f.ID)
	if err != nil {
		return fmt.Errorf("update friendship: %w", err)
	}
	return expectAffected(res, "friendship")
}

// GetFriendship retrieves a friendship by ID.
func (s *SQLiteStore) GetFriendship(ctx context.Context, id string) (*store.Friendship, error) {
	query := `SELECT ` + friendshipColumns + ` FROM friendships WHERE id = ?`
	f, err := scanFriendship(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound("friendship", err)
	}
	return f, nil
}

// FindFriendshipBetween finds the record for an unordered pair of users.
func (s *SQLiteStore) FindFriendshipBetween(ctx context.Context, userA, userB string) (*store.Friendship, error) {
	query := `
		SELECT ` + friendshipColumns + `
		FROM friendships
		WHERE (requester_id = ? AND addressee_id = ?)
		   OR (requester_id = ? AND addressee_id = ?)
	`
	f, err := scanFriendship(s.db.QueryRowContext(ctx, query, userA, userB, userB, userA))
	if err != nil {
		return nil, notFound("friendship", err)
	}
	return f, nil
}

// FindFriendshipByRoom finds the record bound to roomID in which userID is a party.
func (s *SQLiteStore) FindFriendshipByRoom(ctx context.Context, roomID, userID string) (*store.Friendship, error) {
	query := `
		SELECT ` + friendshipColumns + `
		FROM friendships
		WHERE room_id = ? AND (requester_id = ? OR addressee_id = ?)
	`
	f, err := scanFriendship(s.db.QueryRowContext(ctx, query, roomID, userID, userID))
	if err != nil {
		return nil, notFound("friendship", err)
	}
	return f, nil
}

// ListFriendships lists non-declined friendships of a user, newest first.
func (s *SQLiteStore) ListFriendships(ctx context.Context, userID string) ([]*store.Friendship, error) {
	query := `
		SELECT ` + friendshipColumns + `
		FROM friendships
		WHERE (requester_id = ? OR addressee_id = ?) AND status != ?
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, userID, store.FriendStatusDeclined)
	if err != nil {
		return nil, fmt.Errorf("query friendships: %w", err)
	}
	defer rows.Close()

	var list []*store.Friendship
	for rows.Next() {
		f, err := scanFriendship(rows)
		if err != nil {
			return nil, fmt.Errorf("scan friendship: %w", err)
		}
		list = append(list, f)
	}
	return list, rows.Err()
}

// DeleteFriendship removes a friendship record.
func (s *SQLiteStore) DeleteFriendship(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM friendships WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete friendship: %w", err)
	}
	return expectAffected(res, "friendship")
}

func scanFriendship(row rowScanner) (*store.Friendship, error) {
	var f store.Friendship
	var roomID sql.NullString
	if err := row.Scan(
		&f.ID,
		&f.RequesterID,
		&f.AddresseeID,
		&roomID,
		&f.Status,
		&f.CreatedAt,
		&f.UpdatedAt,
	); err != nil {
		return nil, err
	}
	f.RoomID = ptrString(roomID)
	return &f, nil
}
