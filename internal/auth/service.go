package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vovakirdan/wirechat-gateway/internal/store"
)

var (
	// ErrInvalidCredentials is returned when username/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when trying to register with existing username.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidUsername is returned when username doesn't meet constraints.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidPassword is returned when password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrPasswordMismatch is returned when password and its repeat differ.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrSamePassword is returned when a new password equals the old one.
	ErrSamePassword = errors.New("new password equals the old one")
	// ErrInvalidInvitation is returned for a wrong invitation code.
	ErrInvalidInvitation = errors.New("invalid invitation code")
	// ErrUserGone is returned when a valid token names a user that no longer exists.
	ErrUserGone = errors.New("user no longer exists")
)

const (
	// SingleRoomName is the name of the private room every user gets at registration.
	SingleRoomName = "File Transfer"
	// DefaultAvatar is the avatar reference new users start with.
	DefaultAvatar = "./assets/avatar/default/avatar-0.png"
)

// Identity is what a verified token proves.
type Identity struct {
	UserID   string
	Username string
}

// RegisterInput carries a self-service registration.
type RegisterInput struct {
	Username       string
	Password       string
	PasswordRepeat string
	InvitationCode string
}

// NewUser carries an account created by an operator.
type NewUser struct {
	Username string
	Password string
	Nickname string
	Role     store.UserRole
}

// Service provides authentication and account operations.
type Service struct {
	store          store.UserStore
	jwtConfig      *JWTConfig
	invitationCode string
}

// NewService creates a new authentication service. An empty invitationCode
// disables self-service registration.
func NewService(userStore store.UserStore, jwtConfig *JWTConfig, invitationCode string) *Service {
	return &Service{
		store:          userStore,
		jwtConfig:      jwtConfig,
		invitationCode: invitationCode,
	}
}

// Register creates an account guarded by the configured invitation code.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*store.User, error) {
	if in.Password != in.PasswordRepeat {
		return nil, ErrPasswordMismatch
	}
	if s.invitationCode == "" || in.InvitationCode != s.invitationCode {
		return nil, ErrInvalidInvitation
	}
	return s.CreateUser(ctx, NewUser{Username: in.Username, Password: in.Password})
}

// CreateUser creates a user together with its single room.
func (s *Service) CreateUser(ctx context.Context, in NewUser) (*store.User, error) {
	username := strings.TrimSpace(in.Username)
	if len(username) < 3 || len(username) > 32 {
		return nil, ErrInvalidUsername
	}
	if len(in.Password) < MinPasswordLength {
		return nil, ErrInvalidPassword
	}
	switch in.Role {
	case "":
		in.Role = store.UserRoleUser
	case store.UserRoleAdmin, store.UserRoleUser, store.UserRoleGhost:
	default:
		return nil, fmt.Errorf("unknown role %q", in.Role)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &store.User{
		Username:     username,
		Nickname:     strings.TrimSpace(in.Nickname),
		Role:         in.Role,
		AvatarSrc:    DefaultAvatar,
		PasswordHash: hash,
	}
	room := &store.Room{Name: SingleRoomName, Type: store.RoomTypeSingle}
	if err := s.store.CreateUserWithRoom(ctx, user, room); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login validates credentials and returns the user with a fresh token.
func (s *Service) Login(ctx context.Context, username, password string) (*store.User, string, error) {
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}
	if !PasswordMatches(user.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// IssueToken signs a token for user.
func (s *Service) IssueToken(user *store.User) (string, error) {
	token, err := GenerateToken(s.jwtConfig, user.ID, user.Username)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}

// Verify checks a raw token and returns the identity it carries.
func (s *Service) Verify(token string) (Identity, error) {
	claims, err := ValidateToken(s.jwtConfig, token)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: claims.UserID, Username: claims.Username}, nil
}

// Authenticate verifies token and resolves the user it names. The stored
// username must still match the one in the token.
func (s *Service) Authenticate(ctx context.Context, token string) (*store.User, error) {
	id, err := s.Verify(token)
	if err != nil {
		return nil, err
	}
	user, err := s.store.GetUserByID(ctx, id.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserGone
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user.Username != id.Username {
		return nil, ErrUserGone
	}
	return user, nil
}

// ChangePassword replaces the password of userID after checking the old one.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, password, passwordRepeat string) (*store.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !PasswordMatches(user.PasswordHash, oldPassword) {
		return nil, ErrInvalidCredentials
	}
	if password != passwordRepeat {
		return nil, ErrPasswordMismatch
	}
	if password == oldPassword {
		return nil, ErrSamePassword
	}
	if len(password) < MinPasswordLength {
		return nil, ErrInvalidPassword
	}

	if user.PasswordHash, err = HashPassword(password); err != nil {
		return nil, err
	}
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// UpdateNickname sets the display name of userID.
func (s *Service) UpdateNickname(ctx context.Context, userID, nickname string) (*store.User, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" || len(nickname) > 32 {
		return nil, ErrInvalidUsername
	}
	return s.update(ctx, userID, func(u *store.User) { u.Nickname = nickname })
}

// UpdateAvatar sets the avatar reference of userID.
func (s *Service) UpdateAvatar(ctx context.Context, userID, avatarSrc string) (*store.User, error) {
	return s.update(ctx, userID, func(u *store.User) { u.AvatarSrc = avatarSrc })
}

// SearchUser finds a user by exact username. A missing user is not an error.
func (s *Service) SearchUser(ctx context.Context, username string) (*store.User, error) {
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *Service) update(ctx context.Context, userID string, apply func(*store.User)) (*store.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	apply(user)
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}
