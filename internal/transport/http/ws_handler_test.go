package http

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/proto"
	"github.com/vovakirdan/wirechat-gateway/internal/store"
)

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := env.ts.Client().Get(env.ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx)
	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{
		"auth": map[string]string{"token": "Bearer nope"},
	}))

	_, _, err := conn.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))
}

func TestWebSocketInitRoomsAndMessage(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, token := env.user(t, "alice")
	conn, views := env.connect(t, ctx, token)

	require.Len(t, views, 1)
	single := views[0]
	assert.Equal(t, store.RoomTypeSingle, single.RoomType)

	send(t, ctx, conn, proto.EventSendMessage, proto.SendMessageData{RoomID: single.ID, Content: "hello"})

	f := readFrame(t, ctx, conn)
	require.Equal(t, string(core.EventRoom), f.Event)
	var ev core.RoomEvent
	require.NoError(t, json.Unmarshal(f.Data, &ev))
	assert.Equal(t, core.RoomAddMessage, ev.Ev)
	require.NotNil(t, ev.Message)
	assert.Equal(t, "hello", ev.Message.Content)
}

func TestWebSocketGroupRoomReachesOnlineMembers(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice, aliceToken := env.user(t, "alice")
	bob, bobToken := env.user(t, "bob")
	carol, _ := env.user(t, "carol")
	aliceConn, _ := env.connect(t, ctx, aliceToken)
	bobConn, _ := env.connect(t, ctx, bobToken)

	send(t, ctx, aliceConn, proto.EventCreateRoom, proto.CreateRoomData{
		Name:      "team",
		MemberIDs: []string{bob.ID, carol.ID},
	})

	for _, conn := range []*websocket.Conn{aliceConn, bobConn} {
		f := readFrame(t, ctx, conn)
		require.Equal(t, string(core.EventRoom), f.Event)
		var ev core.RoomEvent
		require.NoError(t, json.Unmarshal(f.Data, &ev))
		require.Equal(t, core.RoomAddRoom, ev.Ev)
		require.NotNil(t, ev.Room)
		assert.Equal(t, "team", ev.Room.Name)
		require.NotNil(t, ev.Room.OwnerID)
		assert.Equal(t, alice.ID, *ev.Room.OwnerID)

		toast := readFrame(t, ctx, conn)
		assert.Equal(t, string(core.EventMsgToClient), toast.Event)
	}
}

func TestWebSocketMalformedFrame(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, token := env.user(t, "alice")
	conn, _ := env.connect(t, ctx, token)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("not json")))

	f := readFrame(t, ctx, conn)
	require.Equal(t, string(core.EventMsgToClient), f.Event)
	var toast core.Toast
	require.NoError(t, json.Unmarshal(f.Data, &toast))
	assert.Equal(t, core.ToastError, toast.Status)

	// The session survives a bad frame.
	send(t, ctx, conn, proto.EventSendMessage, proto.SendMessageData{RoomID: "bad"})
	f = readFrame(t, ctx, conn)
	assert.Equal(t, string(core.EventMsgToClient), f.Event)
}

func TestWebSocketEvictsPreviousSession(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, token := env.user(t, "alice")
	first, _ := env.connect(t, ctx, token)
	second, views := env.connect(t, ctx, token)
	require.Len(t, views, 1)

	f := readFrame(t, ctx, first)
	assert.Equal(t, string(core.EventUnauthorized), f.Event)

	_, _, err := first.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, StatusEvicted, websocket.CloseStatus(err))

	// The newer session keeps working.
	send(t, ctx, second, proto.EventSendMessage, proto.SendMessageData{RoomID: views[0].ID, Content: "still here"})
	f = readFrame(t, ctx, second)
	assert.Equal(t, string(core.EventRoom), f.Event)
}

func TestWebSocketRefusedWhileDraining(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, token := env.user(t, "alice")
	require.NoError(t, env.gw.Drain(ctx))

	conn := env.dial(t, ctx)
	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{
		"auth": map[string]string{"token": "Bearer " + token},
	}))

	_, _, err := conn.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
}
