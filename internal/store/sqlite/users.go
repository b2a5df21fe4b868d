package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vovakirdan/wirechat-gateway/internal/store"
)

const userColumns = `id, username, nickname, role, avatar_src, password_hash, created_at`

// CreateUser inserts a user. ID and CreatedAt are filled in.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *store.User) error {
	return createUser(ctx, s.db, user)
}

func createUser(ctx context.Context, q querier, user *store.User) error {
	if user.ID == "" {
		user.ID = newID()
	}
	if user.Role == "" {
		user.Role = store.UserRoleUser
	}
	if user.Nickname == "" {
		user.Nickname = user.Username
	}
	user.CreatedAt = now()

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		user.ID, user.Username, user.Nickname, user.Role, user.AvatarSrc, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert user %q: %w", user.Username, store.ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// CreateUserWithRoom inserts a user and a room owned only by that user in one transaction.
func (s *SQLiteStore) CreateUserWithRoom(ctx context.Context, user *store.User, room *store.Room) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := createUser(ctx, tx, user); err != nil {
			return err
		}
		return createRoom(ctx, tx, room, []string{user.ID})
	})
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound("user", err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, username))
	if err != nil {
		return nil, notFound("user", err)
	}
	return user, nil
}

// GetUsersByIDs returns the users that exist among ids.
func (s *SQLiteStore) GetUsersByIDs(ctx context.Context, ids []string) ([]*store.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := s.db.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*store.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdateUser persists nickname, avatar, role and password hash.
func (s *SQLiteStore) UpdateUser(ctx context.Context, user *store.User) error {
	query := `
		UPDATE users
		SET nickname = ?, avatar_src = ?, role = ?, password_hash = ?
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query, user.Nickname, user.AvatarSrc, user.Role, user.PasswordHash, user.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return expectAffected(res, "user")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*store.User, error) {
	var user store.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Nickname,
		&user.Role,
		&user.AvatarSrc,
		&user.PasswordHash,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func expectAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return nil
}
