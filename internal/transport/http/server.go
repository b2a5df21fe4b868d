package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-gateway/internal/auth"
	"github.com/vovakirdan/wirechat-gateway/internal/config"
	"github.com/vovakirdan/wirechat-gateway/internal/gateway"
	"github.com/vovakirdan/wirechat-gateway/internal/metrics"
	"github.com/vovakirdan/wirechat-gateway/internal/ratelimit"
	"github.com/vovakirdan/wirechat-gateway/internal/service/friends"
	"github.com/vovakirdan/wirechat-gateway/internal/service/rooms"
)

// Deps holds what the HTTP layer needs from the application.
type Deps struct {
	Gateway     *gateway.Gateway
	Auth        *auth.Service
	Rooms       *rooms.Service
	Friends     *friends.Service
	AuthLimiter ratelimit.Limiter
	Metrics     *metrics.Metrics
	Logger      *zerolog.Logger
}

// NewServer builds the HTTP server: REST routes, the websocket endpoint,
// health and metrics.
func NewServer(d Deps, cfg config.Config) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(d, cfg),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter registers every route on a fresh gin engine.
func NewRouter(d Deps, cfg config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if d.AuthLimiter == nil {
		d.AuthLimiter = ratelimit.Nop{}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(d.Logger))

	router.GET("/health", healthHandler)
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}
	router.GET("/ws", gin.WrapH(NewWSHandler(d.Gateway, WSConfig{
		HandshakeTimeout: cfg.HandshakeTimeout,
		MaxMessageBytes:  cfg.MaxMessageBytes,
		SendBuffer:       cfg.SendBuffer,
	}, d.Logger)))

	api := NewAPIHandlers(d.Auth, d.Logger)
	users := NewUserHandlers(d.Auth, d.Logger)
	friendsH := NewFriendsHandlers(d.Friends, d.Logger)
	roomsH := NewRoomHandlers(d.Rooms, d.Logger)
	requireAuth := AuthMiddleware(d.Auth, d.Logger)

	authGroup := router.Group("/api/auth")
	{
		limited := authGroup.Group("", RateLimitMiddleware(d.AuthLimiter, d.Logger))
		limited.POST("/register", api.Register)
		limited.POST("/login", api.Login)
		authGroup.GET("/check", requireAuth, api.Check)
		authGroup.GET("/refresh", requireAuth, api.Refresh)
	}

	userGroup := router.Group("/api/user", requireAuth)
	{
		userGroup.GET("/search", users.SearchUser)
		userGroup.PATCH("/nickname", users.UpdateNickname)
		userGroup.PATCH("/avatar", users.UpdateAvatar)
		userGroup.PATCH("/password", users.UpdatePassword)
	}

	router.GET("/api/friend/mine", requireAuth, friendsH.Mine)
	router.GET("/api/room/mine", requireAuth, roomsH.Mine)

	return router
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
