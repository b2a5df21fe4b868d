package messages

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/store"
	"github.com/vovakirdan/wirechat-gateway/internal/testutil"
)

func setup(t *testing.T) (store.Store, *Service, *store.User, *store.User, *store.Room) {
	t.Helper()
	st := testutil.NewStore(t)
	alice := testutil.SeedUser(t, st, "alice")
	bob := testutil.SeedUser(t, st, "bob")
	room := &store.Room{Name: "pair", Type: store.RoomTypePublic, OwnerID: &alice.ID}
	require.NoError(t, st.CreateRoom(context.Background(), room, []string{alice.ID, bob.ID}))
	return st, New(st), alice, bob, room
}

func TestSendMessage_BroadcastsToRoom(t *testing.T) {
	st, svc, alice, bob, room := setup(t)
	ctx := context.Background()

	plan, err := svc.SendMessage(ctx, alice.ID, room.ID, "hello", "")
	require.NoError(t, err)

	events := testutil.RoomEvents(testutil.EventsFor(plan, bob.ID, alice.ID, map[string]bool{room.ID: true}))
	require.Len(t, events, 1)
	assert.Equal(t, core.RoomAddMessage, events[0].Ev)
	assert.Equal(t, room.ID, events[0].RoomID)
	require.NotNil(t, events[0].Message)
	assert.Equal(t, "hello", events[0].Message.Content)
	assert.Equal(t, store.MessageTypeText, events[0].Message.MessageType)
	require.NotNil(t, events[0].Message.Sender)
	assert.Equal(t, alice.ID, events[0].Message.Sender.ID)

	// The sender receives its own message through the room as well.
	self := testutil.RoomEvents(testutil.EventsFor(plan, alice.ID, alice.ID, map[string]bool{room.ID: true}))
	assert.Len(t, self, 1)

	history, err := st.ListRecentMessages(ctx, room.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, events[0].Message.ID, history[0].ID)
}

func TestSendMessage_Rejections(t *testing.T) {
	st, svc, alice, _, room := setup(t)
	ctx := context.Background()
	carol := testutil.SeedUser(t, st, "carol")

	tests := []struct {
		name    string
		sender  string
		roomID  string
		content string
		msgType store.MessageType
		kind    core.ErrorKind
	}{
		{"empty content", alice.ID, room.ID, "   ", "", core.KindValidation},
		{"unknown type", alice.ID, room.ID, "hi", "video", core.KindValidation},
		{"missing room", alice.ID, "no-room", "hi", "", core.KindNotFound},
		{"not a member", carol.ID, room.ID, "hi", "", core.KindForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SendMessage(ctx, tt.sender, tt.roomID, tt.content, tt.msgType)
			assert.True(t, core.IsKind(err, tt.kind), "got %v", err)
		})
	}

	history, err := st.ListRecentMessages(ctx, room.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSendMessage_Image(t *testing.T) {
	_, svc, alice, bob, room := setup(t)

	plan, err := svc.SendMessage(context.Background(), alice.ID, room.ID, "https://example.com/a.png", store.MessageTypeImg)
	require.NoError(t, err)

	events := testutil.RoomEvents(testutil.EventsFor(plan, bob.ID, alice.ID, map[string]bool{room.ID: true}))
	require.Len(t, events, 1)
	assert.Equal(t, store.MessageTypeImg, events[0].Message.MessageType)
}

func TestRemoveMessage(t *testing.T) {
	st, svc, alice, bob, room := setup(t)
	ctx := context.Background()

	plan, err := svc.SendMessage(ctx, alice.ID, room.ID, "oops", "")
	require.NoError(t, err)
	sent := testutil.RoomEvents(testutil.EventsFor(plan, alice.ID, alice.ID, map[string]bool{room.ID: true}))[0].Message

	_, err = svc.RemoveMessage(ctx, bob.ID, sent.ID)
	assert.True(t, core.IsKind(err, core.KindNotFound), "other author: %v", err)

	plan, err = svc.RemoveMessage(ctx, alice.ID, sent.ID)
	require.NoError(t, err)
	events := testutil.RoomEvents(testutil.EventsFor(plan, bob.ID, alice.ID, map[string]bool{room.ID: true}))
	require.Len(t, events, 1)
	assert.Equal(t, core.RoomRemoveMessage, events[0].Ev)
	assert.Equal(t, sent.ID, events[0].MessageID)

	_, err = st.GetMessage(ctx, sent.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	_, err = svc.RemoveMessage(ctx, alice.ID, sent.ID)
	assert.True(t, core.IsKind(err, core.KindNotFound), "twice: %v", err)
}
