package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-gateway/internal/auth"
	"github.com/vovakirdan/wirechat-gateway/internal/core"
)

// UserHandlers provides HTTP handlers for user operations.
type UserHandlers struct {
	authService *auth.Service
	log         *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(authService *auth.Service, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		authService: authService,
		log:         logger,
	}
}

// UpdateNicknameRequest is the body of PATCH /api/user/nickname.
type UpdateNicknameRequest struct {
	Nickname string `json:"nickname" binding:"required,max=32"`
}

// UpdateAvatarRequest is the body of PATCH /api/user/avatar.
type UpdateAvatarRequest struct {
	AvatarSrc string `json:"avatarSrc" binding:"required,max=512"`
}

// UpdatePasswordRequest is the body of PATCH /api/user/password.
type UpdatePasswordRequest struct {
	OldPassword    string `json:"oldPassword" binding:"required"`
	Password       string `json:"password" binding:"required,min=6"`
	PasswordRepeat string `json:"passwordRepeat" binding:"required"`
}

// SearchUser looks a user up by exact username. Responds null when absent.
// GET /api/user/search?username=name
func (h *UserHandlers) SearchUser(c *gin.Context) {
	username := strings.TrimSpace(c.Query("username"))
	if username == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "username is required"})
		return
	}

	user, err := h.authService.SearchUser(c.Request.Context(), username)
	if err != nil {
		h.log.Error().Err(err).Str("username", username).Msg("failed to search user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if user == nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, core.NewUserView(user))
}

// UpdateNickname changes the caller's display name.
// PATCH /api/user/nickname
func (h *UserHandlers) UpdateNickname(c *gin.Context) {
	var req UpdateNicknameRequest
	if !h.bind(c, &req) {
		return
	}
	h.respond(c, "nickname", func(userID string) (*core.UserView, error) {
		u, err := h.authService.UpdateNickname(c.Request.Context(), userID, req.Nickname)
		if err != nil {
			return nil, err
		}
		view := core.NewUserView(u)
		return &view, nil
	})
}

// UpdateAvatar changes the caller's avatar reference.
// PATCH /api/user/avatar
func (h *UserHandlers) UpdateAvatar(c *gin.Context) {
	var req UpdateAvatarRequest
	if !h.bind(c, &req) {
		return
	}
	h.respond(c, "avatar", func(userID string) (*core.UserView, error) {
		u, err := h.authService.UpdateAvatar(c.Request.Context(), userID, req.AvatarSrc)
		if err != nil {
			return nil, err
		}
		view := core.NewUserView(u)
		return &view, nil
	})
}

// UpdatePassword changes the caller's password.
// PATCH /api/user/password
func (h *UserHandlers) UpdatePassword(c *gin.Context) {
	var req UpdatePasswordRequest
	if !h.bind(c, &req) {
		return
	}
	h.respond(c, "password", func(userID string) (*core.UserView, error) {
		u, err := h.authService.ChangePassword(c.Request.Context(), userID, req.OldPassword, req.Password, req.PasswordRepeat)
		if err != nil {
			return nil, err
		}
		view := core.NewUserView(u)
		return &view, nil
	})
}

func (h *UserHandlers) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.log.Debug().Err(err).Msg("invalid user update request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func (h *UserHandlers) respond(c *gin.Context, what string, update func(userID string) (*core.UserView, error)) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	view, err := update(user.ID)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "wrong password"})
		case errors.Is(err, auth.ErrPasswordMismatch),
			errors.Is(err, auth.ErrSamePassword),
			errors.Is(err, auth.ErrInvalidPassword),
			errors.Is(err, auth.ErrInvalidUsername):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			h.log.Error().Err(err).Str("user_id", user.ID).Str("field", what).Msg("failed to update user")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	h.log.Info().Str("user_id", user.ID).Str("field", what).Msg("user updated")
	c.JSON(http.StatusOK, view)
}
