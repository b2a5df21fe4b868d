package http

import (
	"bytes"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-gateway/internal/auth"
	"github.com/vovakirdan/wirechat-gateway/internal/config"
	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/gateway"
	"github.com/vovakirdan/wirechat-gateway/internal/ratelimit"
	"github.com/vovakirdan/wirechat-gateway/internal/service/friends"
	"github.com/vovakirdan/wirechat-gateway/internal/service/messages"
	"github.com/vovakirdan/wirechat-gateway/internal/service/rooms"
	"github.com/vovakirdan/wirechat-gateway/internal/store"
	"github.com/vovakirdan/wirechat-gateway/internal/store/sqlite"
	"github.com/vovakirdan/wirechat-gateway/internal/testutil"
)

const testInvitation = "let-me-in"

type testEnv struct {
	ts   *httptest.Server
	st   *sqlite.SQLiteStore
	auth *auth.Service
	gw   *gateway.Gateway
}

func newTestEnv(t *testing.T, authLimiter ratelimit.Limiter) *testEnv {
	t.Helper()

	logger := zerolog.Nop()
	st := testutil.NewStore(t)
	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	}, testInvitation)

	hub := core.NewHub(&logger)
	roomService := rooms.New(st, 30)
	friendService := friends.New(st, roomService)
	gw := gateway.New(gateway.Deps{
		Hub:      hub,
		Auth:     authService,
		Rooms:    roomService,
		Friends:  friendService,
		Messages: messages.New(st),
		Logger:   &logger,
	})

	cfg := config.Default()
	cfg.HandshakeTimeout = 2 * time.Second
	router := NewRouter(Deps{
		Gateway:     gw,
		Auth:        authService,
		Rooms:       roomService,
		Friends:     friendService,
		AuthLimiter: authLimiter,
		Logger:      &logger,
	}, cfg)

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, st: st, auth: authService, gw: gw}
}

// user creates an account and returns it with a valid token.
func (e *testEnv) user(t *testing.T, username string) (*store.User, string) {
	t.Helper()
	u, err := e.auth.CreateUser(context.Background(), auth.NewUser{Username: username, Password: "password123"})
	require.NoError(t, err)
	token, err := e.auth.IssueToken(u)
	require.NoError(t, err)
	return u, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *stdhttp.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := stdhttp.NewRequest(method, e.ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *stdhttp.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// frame is an outbound event as seen by a websocket client.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (e *testEnv) dial(t *testing.T, ctx context.Context) *websocket.Conn {
	t.Helper()
	wsURL := strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn
}

// connect dials, authenticates and consumes the initRooms snapshot.
func (e *testEnv) connect(t *testing.T, ctx context.Context, token string) (*websocket.Conn, []core.RoomView) {
	t.Helper()
	conn := e.dial(t, ctx)

	var hs struct {
		Auth struct {
			Token string `json:"token"`
		} `json:"auth"`
	}
	hs.Auth.Token = "Bearer " + token
	require.NoError(t, wsjson.Write(ctx, conn, hs))

	f := readFrame(t, ctx, conn)
	require.Equal(t, string(core.EventInitRooms), f.Event)
	var views []core.RoomView
	require.NoError(t, json.Unmarshal(f.Data, &views))
	return conn, views
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) frame {
	t.Helper()
	var f frame
	require.NoError(t, wsjson.Read(ctx, conn, &f))
	return f
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{"event": event, "data": json.RawMessage(raw)}))
}
