package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vovakirdan/wirechat-gateway/internal/store"
)

const roomColumns = `r.id, r.name, r.owner_id, r.notice, r.type, r.created_at`

// CreateRoom inserts a room and its initial members in one transaction.
func (s *SQLiteStore) CreateRoom(ctx context.Context, room *store.Room, memberIDs []string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return createRoom(ctx, tx, room, memberIDs)
	})
}

func createRoom(ctx context.Context, q querier, room *store.Room, memberIDs []string) error {
	if room.ID == "" {
		room.ID = newID()
	}
	if room.Notice == "" {
		room.Notice = store.DefaultNotice
	}
	room.CreatedAt = now()

	query := `
		INSERT INTO rooms (id, name, owner_id, notice, type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := q.ExecContext(ctx, query,
		room.ID, room.Name, nullString(room.OwnerID), room.Notice, room.Type, room.CreatedAt); err != nil {
		return fmt.Errorf("insert room: %w", err)
	}

	if err := addMembers(ctx, q, room.ID, memberIDs); err != nil {
		return err
	}

	members, err := loadMembers(ctx, q, room.ID)
	if err != nil {
		return err
	}
	room.Members = members
	return nil
}

// GetRoom retrieves a room with members loaded.
func (s *SQLiteStore) GetRoom(ctx context.Context, id string) (*store.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms r WHERE r.id = ?`
	room, err := scanRoom(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound("room", err)
	}

	room.Members, err = loadMembers(ctx, s.db, room.ID)
	if err != nil {
		return nil, err
	}
	return room, nil
}

// ListUserRooms lists rooms userID is a member of, oldest first.
func (s *SQLiteStore) ListUserRooms(ctx context.Context, userID string) ([]*store.Room, error) {
	query := `
		SELECT ` + roomColumns + `
		FROM rooms r
		JOIN room_members rm ON rm.room_id = r.id
		WHERE rm.user_id = ?
		ORDER BY r.created_at ASC, r.rowid ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}

	var rooms []*store.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	err = rows.Err()
	// The pool holds one connection, so rows must be released before the member queries.
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}

	for _, room := range rooms {
		if room.Members, err = loadMembers(ctx, s.db, room.ID); err != nil {
			return nil, err
		}
	}
	return rooms, nil
}

// UpdateRoom persists name and notice.
func (s *SQLiteStore) UpdateRoom(ctx context.Context, room *store.Room) error {
	res, err := s.db.ExecContext(ctx, `UPDATE rooms SET name = ?, notice = ? WHERE id = ?`,
		room.Name, room.Notice, room.ID)
	if err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	return expectAffected(res, "room")
}

// AddMembers appends members; ids already present are ignored.
func (s *SQLiteStore) AddMembers(ctx context.Context, roomID string, userIDs []string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return addMembers(ctx, tx, roomID, userIDs)
	})
}

func addMembers(ctx context.Context, q querier, roomID string, userIDs []string) error {
	query := `
		INSERT OR IGNORE INTO room_members (room_id, user_id, joined_at)
		VALUES (?, ?, ?)
	`
	joinedAt := now()
	for _, userID := range userIDs {
		if _, err := q.ExecContext(ctx, query, roomID, userID, joinedAt); err != nil {
			return fmt.Errorf("insert room member: %w", err)
		}
	}
	return nil
}

// RemoveMembers removes members and reports how many remain; absent ids
// are ignored.
func (s *SQLiteStore) RemoveMembers(ctx context.Context, roomID string, userIDs []string) (int, error) {
	var remaining int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if len(userIDs) > 0 {
			query := `DELETE FROM room_members WHERE room_id = ? AND user_id IN (` + placeholders(len(userIDs)) + `)`
			args := append([]any{roomID}, stringArgs(userIDs)...)
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("delete room members: %w", err)
			}
		}
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM room_members WHERE room_id = ?`, roomID).Scan(&remaining); err != nil {
			return fmt.Errorf("count room members: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

// DeleteRoom removes the room and its member rows.
func (s *SQLiteStore) DeleteRoom(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM room_members WHERE room_id = ?`, id); err != nil {
			return fmt.Errorf("delete room members: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete room: %w", err)
		}
		return expectAffected(res, "room")
	})
}

func scanRoom(row rowScanner) (*store.Room, error) {
	var room store.Room
	var ownerID sql.NullString
	if err := row.Scan(
		&room.ID,
		&room.Name,
		&ownerID,
		&room.Notice,
		&room.Type,
		&room.CreatedAt,
	); err != nil {
		return nil, err
	}
	room.OwnerID = ptrString(ownerID)
	return &room, nil
}

func loadMembers(ctx context.Context, q querier, roomID string) ([]*store.User, error) {
	query := `
		SELECT u.id, u.username, u.nickname, u.role, u.avatar_src, u.password_hash, u.created_at
		FROM room_members rm
		JOIN users u ON u.id = rm.user_id
		WHERE rm.room_id = ?
		ORDER BY rm.joined_at ASC, rm.rowid ASC
	`
	rows, err := q.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	members := make([]*store.User, 0, 2)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, user)
	}
	return members, rows.Err()
}
