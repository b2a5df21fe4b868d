// Package gateway drives websocket sessions: it authenticates connections,
// binds them to presence, pushes the initial room snapshot, and dispatches
// inbound events to the room, friend and message services.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/metrics"
	"github.com/vovakirdan/wirechat-gateway/internal/proto"
	"github.com/vovakirdan/wirechat-gateway/internal/ratelimit"
	"github.com/vovakirdan/wirechat-gateway/internal/service/friends"
	"github.com/vovakirdan/wirechat-gateway/internal/service/messages"
	"github.com/vovakirdan/wirechat-gateway/internal/service/rooms"
	"github.com/vovakirdan/wirechat-gateway/internal/store"
)

const (
	// DefaultHandlerTimeout bounds one inbound event.
	DefaultHandlerTimeout = 10 * time.Second

	evictedMessage  = "account logged in elsewhere"
	internalMessage = "internal server error"
	limitedMessage  = "too many requests, slow down"
)

var (
	// ErrUnauthenticated is returned by Authenticate for any rejected credential.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrShuttingDown is returned by Connect once Drain has been called.
	ErrShuttingDown = errors.New("gateway shutting down")
)

// Authenticator resolves a bearer token to a live user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*store.User, error)
}

// Deps are the collaborators of a Gateway. Limiter, Metrics and Logger are optional.
type Deps struct {
	Hub            *core.Hub
	Auth           Authenticator
	Rooms          *rooms.Service
	Friends        *friends.Service
	Messages       *messages.Service
	Limiter        ratelimit.Limiter
	Metrics        *metrics.Metrics
	Logger         *zerolog.Logger
	HandlerTimeout time.Duration
}

type handler func(ctx context.Context, userID string, data json.RawMessage) (*core.Plan, error)

// Gateway is the connection lifecycle controller.
type Gateway struct {
	hub      *core.Hub
	auth     Authenticator
	rooms    *rooms.Service
	limiter  ratelimit.Limiter
	metrics  *metrics.Metrics
	log      *zerolog.Logger
	timeout  time.Duration
	handlers map[string]handler

	mu       sync.Mutex
	closing  bool
	sessions sync.WaitGroup
	live     *xsync.MapOf[string, struct{}]
}

// New creates a Gateway.
func New(d Deps) *Gateway {
	g := &Gateway{
		hub:     d.Hub,
		auth:    d.Auth,
		rooms:   d.Rooms,
		limiter: d.Limiter,
		metrics: d.Metrics,
		log:     d.Logger,
		timeout: d.HandlerTimeout,
		live:    xsync.NewMapOf[string, struct{}](),
	}
	if g.limiter == nil {
		g.limiter = ratelimit.Nop{}
	}
	if g.log == nil {
		nop := zerolog.Nop()
		g.log = &nop
	}
	if g.timeout <= 0 {
		g.timeout = DefaultHandlerTimeout
	}
	g.handlers = routes(d.Rooms, d.Friends, d.Messages)
	return g
}

// Hub returns the hub the gateway delivers through.
func (g *Gateway) Hub() *core.Hub { return g.hub }

// Authenticate verifies a "<scheme> <token>" credential from the handshake.
// Every failure wraps ErrUnauthenticated.
func (g *Gateway) Authenticate(ctx context.Context, credential string) (*store.User, error) {
	token := proto.BearerToken(credential)
	if token == "" {
		g.metrics.AuthFailed()
		return nil, fmt.Errorf("%w: missing token", ErrUnauthenticated)
	}
	user, err := g.auth.Authenticate(ctx, token)
	if err != nil {
		g.metrics.AuthFailed()
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return user, nil
}

// Connect binds an authenticated connection to its user, evicting any
// previous connection, subscribes it to the user's rooms and pushes the
// initRooms snapshot. Every successful Connect must be paired with Disconnect.
func (g *Gateway) Connect(ctx context.Context, conn core.Conn) error {
	if !g.track(conn) {
		return ErrShuttingDown
	}
	logger := g.log.With().Str("user_id", conn.UserID()).Str("conn_id", conn.ID()).Logger()

	if evicted := g.hub.Presence().Register(conn.UserID(), conn); evicted != nil {
		g.hub.Send(evicted, core.UnauthorizedEvent(evictedMessage))
		evicted.Close(evictedMessage)
		g.hub.Subscriptions().LeaveAll(evicted)
		g.metrics.Evicted()
		logger.Info().Str("evicted_conn_id", evicted.ID()).Msg("previous connection evicted")
	}

	views, err := g.subscribe(ctx, conn)
	if err != nil {
		g.hub.Presence().Unregister(conn.UserID(), conn.ID())
		g.hub.Subscriptions().LeaveAll(conn)
		g.untrack(conn)
		return err
	}
	g.hub.Send(conn, core.InitRoomsEvent(views))

	g.metrics.Connections(g.hub.Presence().Len())
	logger.Debug().Int("rooms", len(views)).Msg("connection active")
	return nil
}

// subscribe joins conn to the rooms of its user and returns their views.
// Presence is already registered, so membership changes applied after the
// snapshot reach conn directly; a removal that landed between the snapshot
// and the joins is caught by reading membership again.
func (g *Gateway) subscribe(ctx context.Context, conn core.Conn) ([]core.RoomView, error) {
	subs := g.hub.Subscriptions()

	views, err := g.rooms.Snapshot(ctx, conn.UserID())
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}
	for _, v := range views {
		subs.Join(v.ID, conn)
	}

	member, err := g.rooms.MemberRoomIDs(ctx, conn.UserID())
	if err != nil {
		return nil, fmt.Errorf("recheck rooms: %w", err)
	}
	for _, roomID := range subs.Rooms(conn.ID()) {
		if _, ok := member[roomID]; !ok {
			subs.Leave(roomID, conn)
		}
	}
	return slices.DeleteFunc(views, func(v core.RoomView) bool {
		_, ok := member[v.ID]
		return !ok
	}), nil
}

// Disconnect releases the presence entry and room subscriptions of conn.
// It never notifies other users.
func (g *Gateway) Disconnect(conn core.Conn) {
	if g.hub.Presence().Unregister(conn.UserID(), conn.ID()) {
		g.limiter.Forget(conn.UserID())
	}
	g.hub.Subscriptions().LeaveAll(conn)
	g.metrics.Connections(g.hub.Presence().Len())
	g.untrack(conn)
	g.log.Debug().Str("user_id", conn.UserID()).Str("conn_id", conn.ID()).Msg("connection closed")
}

// Drain refuses new connections and waits until every connected session has
// been disconnected, or ctx is done.
func (g *Gateway) Drain(ctx context.Context) error {
	g.mu.Lock()
	g.closing = true
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.sessions.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain sessions: %w", ctx.Err())
	}
}

func (g *Gateway) track(conn core.Conn) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closing {
		return false
	}
	if _, loaded := g.live.LoadOrStore(conn.ID(), struct{}{}); !loaded {
		g.sessions.Add(1)
	}
	return true
}

func (g *Gateway) untrack(conn core.Conn) {
	if _, ok := g.live.LoadAndDelete(conn.ID()); ok {
		g.sessions.Done()
	}
}

// Dispatch runs one inbound event from conn and delivers its notifications.
// Failures are reported to conn only.
func (g *Gateway) Dispatch(ctx context.Context, conn core.Conn, in proto.Inbound) {
	start := time.Now()
	userID := conn.UserID()

	h, ok := g.handlers[in.Event]
	if !ok {
		g.hub.Send(conn, core.ToastEvent(core.ToastError, fmt.Sprintf("unknown event %q", in.Event)))
		g.metrics.Event("unknown", metrics.OutcomeInvalid, time.Since(start))
		return
	}

	allowed, err := g.limiter.Allow(ctx, userID)
	if err != nil {
		g.log.Warn().Err(err).Str("user_id", userID).Msg("rate limiter unavailable")
		allowed = true
	}
	if !allowed {
		g.hub.Send(conn, core.ToastEvent(core.ToastWarning, limitedMessage))
		g.metrics.Event(in.Event, metrics.OutcomeRateLimited, time.Since(start))
		return
	}

	// Side effects must complete even if the socket drops mid-handler.
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
	defer cancel()

	plan, err := h(hctx, userID, in.Data)
	outcome := g.report(conn, in.Event, err)
	if err == nil {
		g.hub.Apply(conn, plan)
	}
	g.metrics.Event(in.Event, outcome, time.Since(start))
}

// report sends err to conn in the shape its kind calls for and returns the
// metrics outcome.
func (g *Gateway) report(conn core.Conn, event string, err error) string {
	if err == nil {
		return metrics.OutcomeOK
	}

	if errors.Is(err, proto.ErrInvalidPayload) || core.IsKind(err, core.KindValidation) {
		g.hub.Send(conn, core.ToastEvent(core.ToastError, err.Error()))
		return metrics.OutcomeInvalid
	}
	if _, ok := core.KindOf(err); ok {
		g.hub.Send(conn, core.ExceptionEvent(err.Error()))
		return metrics.OutcomeRejected
	}

	g.log.Error().Err(err).
		Str("user_id", conn.UserID()).
		Str("conn_id", conn.ID()).
		Str("event", event).
		Msg("event handler failed")
	g.hub.Send(conn, core.ExceptionEvent(internalMessage))
	return metrics.OutcomeError
}
