package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vovakirdan/wirechat-gateway/internal/store"
)

// SaveMessage persists a message. ID and CreatedAt are filled in when empty.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	if msg.ID == "" {
		msg.ID = newID()
	}
	if msg.Type == "" {
		msg.Type = store.MessageTypeText
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now()
	}

	query := `
		INSERT INTO messages (id, content, type, sender_id, room_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.Content, msg.Type, nullString(msg.SenderID), msg.RoomID, msg.CreatedAt); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

const messageSelect = `
	SELECT m.id, m.content, m.type, m.sender_id, m.room_id, m.created_at,
	       u.id, u.username, u.nickname, u.role, u.avatar_src, u.created_at
	FROM messages m
	LEFT JOIN users u ON u.id = m.sender_id
`

// GetMessage retrieves a message by ID with its sender loaded.
func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*store.Message, error) {
	msg, err := scanMessage(s.db.QueryRowContext(ctx, messageSelect+` WHERE m.id = ?`, id))
	if err != nil {
		return nil, notFound("message", err)
	}
	return msg, nil
}

// ListRecentMessages returns the newest limit messages of a room, oldest first.
func (s *SQLiteStore) ListRecentMessages(ctx context.Context, roomID string, limit int) ([]*store.Message, error) {
	query := messageSelect + `
		WHERE m.room_id = ?
		ORDER BY m.created_at DESC, m.rowid DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// DeleteMessage removes a single message.
func (s *SQLiteStore) DeleteMessage(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return expectAffected(res, "message")
}

// DeleteRoomMessages removes every message of a room.
func (s *SQLiteStore) DeleteRoomMessages(ctx context.Context, roomID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE room_id = ?`, roomID); err != nil {
		return fmt.Errorf("delete room messages: %w", err)
	}
	return nil
}

func scanMessage(row rowScanner) (*store.Message, error) {
	var (
		msg      store.Message
		senderID sql.NullString
		uID      sql.NullString
		uName    sql.NullString
		uNick    sql.NullString
		uRole    sql.NullString
		uAvatar  sql.NullString
		uCreated sql.NullTime
	)
	if err := row.Scan(
		&msg.ID,
		&msg.Content,
		&msg.Type,
		&senderID,
		&msg.RoomID,
		&msg.CreatedAt,
		&uID,
		&uName,
		&uNick,
		&uRole,
		&uAvatar,
		&uCreated,
	); err != nil {
		return nil, err
	}

	msg.SenderID = ptrString(senderID)
	if uID.Valid {
		msg.Sender = &store.User{
			ID:        uID.String,
			Username:  uName.String,
			Nickname:  uNick.String,
			Role:      store.UserRole(uRole.String),
			AvatarSrc: uAvatar.String,
			CreatedAt: uCreated.Time,
		}
	}
	return &msg, nil
}
