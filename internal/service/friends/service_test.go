package friends

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/service/rooms"
	"github.com/vovakirdan/wirechat-gateway/internal/store"
	"github.com/vovakirdan/wirechat-gateway/internal/testutil"
)

type fixture struct {
	st    store.Store
	svc   *Service
	alice *store.User
	bob   *store.User
	carol *store.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := testutil.NewStore(t)
	f := &fixture{
		st:    st,
		svc:   New(st, rooms.New(st, 0)),
		alice: testutil.SeedUser(t, st, "alice"),
		bob:   testutil.SeedUser(t, st, "bob"),
		carol: testutil.SeedUser(t, st, "carol"),
	}
	f.alice.Nickname = "Alice"
	require.NoError(t, st.UpdateUser(context.Background(), f.alice))
	return f
}

func (f *fixture) request(t *testing.T, from, to *store.User) *store.Friendship {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.RequestFriend(ctx, from.ID, Target{AddresseeID: to.ID})
	require.NoError(t, err)
	fr, err := f.st.FindFriendshipBetween(ctx, from.ID, to.ID)
	require.NoError(t, err)
	return fr
}

func (f *fixture) befriend(t *testing.T, from, to *store.User) *store.Friendship {
	t.Helper()
	fr := f.request(t, from, to)
	_, err := f.svc.AcceptFriend(context.Background(), to.ID, fr.ID)
	require.NoError(t, err)
	got, err := f.st.GetFriendship(context.Background(), fr.ID)
	require.NoError(t, err)
	return got
}

func TestRequestFriend_NotifiesBothSides(t *testing.T) {
	f := newFixture(t)

	plan, err := f.svc.RequestFriend(context.Background(), f.alice.ID, Target{AddresseeID: f.bob.ID})
	require.NoError(t, err)

	toBob := testutil.FriendEvents(testutil.EventsFor(plan, f.bob.ID, f.alice.ID, nil))
	require.Len(t, toBob, 1)
	assert.Equal(t, core.FriendAdd, toBob[0].Ev)
	assert.Equal(t, f.alice.ID, toBob[0].Friend.User.ID)
	require.NotNil(t, toBob[0].Friend.IsRequester)
	assert.True(t, *toBob[0].Friend.IsRequester)

	aliceEvents := testutil.EventsFor(plan, f.alice.ID, f.alice.ID, nil)
	toAlice := testutil.FriendEvents(aliceEvents)
	require.Len(t, toAlice, 1)
	assert.Equal(t, f.bob.ID, toAlice[0].Friend.User.ID)
	assert.False(t, *toAlice[0].Friend.IsRequester)
	assert.Equal(t, core.ToastSuccess, testutil.Toasts(aliceEvents)[0].Status)
}

func TestRequestFriend_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RequestFriend(ctx, f.alice.ID, Target{AddresseeID: f.alice.ID})
	assert.True(t, core.IsKind(err, core.KindValidation), "self: %v", err)

	_, err = f.svc.RequestFriend(ctx, f.alice.ID, Target{})
	assert.True(t, core.IsKind(err, core.KindValidation), "empty: %v", err)

	_, err = f.svc.RequestFriend(ctx, f.alice.ID, Target{AddresseeID: "nobody"})
	assert.True(t, core.IsKind(err, core.KindNotFound), "unknown user: %v", err)

	_, err = f.svc.RequestFriend(ctx, f.alice.ID, Target{RoomID: "no-room"})
	assert.True(t, core.IsKind(err, core.KindNotFound), "unknown room: %v", err)

	f.request(t, f.alice, f.bob)
	_, err = f.svc.RequestFriend(ctx, f.alice.ID, Target{AddresseeID: f.bob.ID})
	assert.True(t, core.IsKind(err, core.KindConflict), "same order: %v", err)
	_, err = f.svc.RequestFriend(ctx, f.bob.ID, Target{AddresseeID: f.alice.ID})
	assert.True(t, core.IsKind(err, core.KindConflict), "reverse order: %v", err)
}

func TestDeclineFriend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fr := f.request(t, f.alice, f.bob)

	_, err := f.svc.DeclineFriend(ctx, f.alice.ID, fr.ID)
	assert.True(t, core.IsKind(err, core.KindForbidden), "requester: %v", err)

	plan, err := f.svc.DeclineFriend(ctx, f.bob.ID, fr.ID)
	require.NoError(t, err)

	aliceEvents := testutil.EventsFor(plan, f.alice.ID, f.bob.ID, nil)
	toAlice := testutil.FriendEvents(aliceEvents)
	require.Len(t, toAlice, 1)
	assert.Equal(t, core.FriendRemove, toAlice[0].Ev)
	assert.Equal(t, fr.ID, toAlice[0].FriendshipID)
	assert.Equal(t, core.ToastWarning, testutil.Toasts(aliceEvents)[0].Status)

	toBob := testutil.FriendEvents(testutil.EventsFor(plan, f.bob.ID, f.bob.ID, nil))
	require.Len(t, toBob, 1)
	assert.Equal(t, fr.ID, toBob[0].FriendshipID)

	got, err := f.st.GetFriendship(ctx, fr.ID)
	require.NoError(t, err)
	assert.Equal(t, store.FriendStatusDeclined, got.Status)

	_, err = f.svc.DeclineFriend(ctx, f.bob.ID, fr.ID)
	assert.True(t, core.IsKind(err, core.KindStateMismatch), "twice: %v", err)

	// A declined pair can be requested again, in either direction.
	_, err = f.svc.RequestFriend(ctx, f.bob.ID, Target{AddresseeID: f.alice.ID})
	require.NoError(t, err)
	renewed, err := f.st.GetFriendship(ctx, fr.ID)
	require.NoError(t, err)
	assert.Equal(t, store.FriendStatusRequested, renewed.Status)
	assert.Equal(t, f.bob.ID, renewed.RequesterID)
}

func TestAcceptFriend_CreatesFriendRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fr := f.request(t, f.alice, f.bob)

	_, err := f.svc.AcceptFriend(ctx, f.alice.ID, fr.ID)
	assert.True(t, core.IsKind(err, core.KindForbidden), "requester: %v", err)

	plan, err := f.svc.AcceptFriend(ctx, f.bob.ID, fr.ID)
	require.NoError(t, err)

	got, err := f.st.GetFriendship(ctx, fr.ID)
	require.NoError(t, err)
	assert.Equal(t, store.FriendStatusAccepted, got.Status)
	require.NotNil(t, got.RoomID)

	room, err := f.st.GetRoom(ctx, *got.RoomID)
	require.NoError(t, err)
	assert.Equal(t, store.RoomTypeFriend, room.Type)
	assert.Len(t, room.Members, 2)

	aliceEvents := testutil.EventsFor(plan, f.alice.ID, f.bob.ID, nil)
	aliceRooms := testutil.RoomEvents(aliceEvents)
	require.Len(t, aliceRooms, 1)
	assert.Equal(t, core.RoomAddRoom, aliceRooms[0].Ev)
	assert.Equal(t, f.bob.Nickname, aliceRooms[0].Room.Name)
	updates := testutil.FriendEvents(aliceEvents)
	require.Len(t, updates, 1)
	assert.Equal(t, core.FriendUpdate, updates[0].Ev)
	assert.Equal(t, store.FriendStatusAccepted, updates[0].FriendStatus)

	bobRooms := testutil.RoomEvents(testutil.EventsFor(plan, f.bob.ID, f.bob.ID, nil))
	require.Len(t, bobRooms, 1)
	assert.Equal(t, "Alice", bobRooms[0].Room.Name)

	_, err = f.svc.AcceptFriend(ctx, f.bob.ID, fr.ID)
	assert.True(t, core.IsKind(err, core.KindStateMismatch), "twice: %v", err)
}

func TestRemoveFriend_AcceptedThenRequestAgainReusesRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fr := f.befriend(t, f.alice, f.bob)
	roomID := *fr.RoomID
	require.NoError(t, f.st.SaveMessage(ctx, &store.Message{Content: "hello", SenderID: &f.bob.ID, RoomID: roomID}))

	// Alice removes Bob: she leaves, Bob keeps the room named after her.
	plan, err := f.svc.RemoveFriend(ctx, f.alice.ID, Selector{RoomID: roomID})
	require.NoError(t, err)

	bobEvents := testutil.EventsFor(plan, f.bob.ID, f.alice.ID, map[string]bool{roomID: true})
	assert.Equal(t, core.FriendRemove, testutil.FriendEvents(bobEvents)[0].Ev)
	bobRooms := testutil.RoomEvents(bobEvents)
	require.Len(t, bobRooms, 1)
	assert.Equal(t, core.RoomRemoveMembers, bobRooms[0].Ev)
	assert.Equal(t, []string{f.alice.ID}, bobRooms[0].MemberIDs)

	aliceRooms := testutil.RoomEvents(testutil.EventsFor(plan, f.alice.ID, f.alice.ID, map[string]bool{roomID: true}))
	require.Len(t, aliceRooms, 1)
	assert.Equal(t, core.RoomRemoveRoom, aliceRooms[0].Ev)

	room, err := f.st.GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, []string{f.bob.ID}, room.MemberIDs())
	assert.Equal(t, "Alice", room.Name)

	got, err := f.st.GetFriendship(ctx, fr.ID)
	require.NoError(t, err)
	assert.Equal(t, store.FriendStatusDeclined, got.Status)

	// Alice asks again through the old room; Bob accepts and the room is reused.
	_, err = f.svc.RequestFriend(ctx, f.alice.ID, Target{RoomID: roomID})
	require.NoError(t, err)
	plan, err = f.svc.AcceptFriend(ctx, f.bob.ID, fr.ID)
	require.NoError(t, err)

	got, err = f.st.GetFriendship(ctx, fr.ID)
	require.NoError(t, err)
	assert.Equal(t, roomID, *got.RoomID)

	room, err = f.st.GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.Len(t, room.Members, 2)
	assert.Equal(t, RoomName, room.Name)

	// Bob stayed, so he only learns about the returning member.
	bobRooms = testutil.RoomEvents(testutil.EventsFor(plan, f.bob.ID, f.bob.ID, map[string]bool{roomID: true}))
	require.Len(t, bobRooms, 1)
	assert.Equal(t, core.RoomAddMembers, bobRooms[0].Ev)
	assert.Equal(t, f.alice.ID, bobRooms[0].Members[0].ID)

	// Alice gets the whole room with its history.
	aliceRooms = testutil.RoomEvents(testutil.EventsFor(plan, f.alice.ID, f.bob.ID, nil))
	require.Len(t, aliceRooms, 1)
	assert.Equal(t, core.RoomAddRoom, aliceRooms[0].Ev)
	require.Len(t, aliceRooms[0].Room.Messages, 1)
	assert.Equal(t, "hello", aliceRooms[0].Room.Messages[0].Content)
}

func TestRemoveFriend_DeclinedTearsDown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fr := f.befriend(t, f.alice, f.bob)
	roomID := *fr.RoomID

	_, err := f.svc.RemoveFriend(ctx, f.alice.ID, Selector{FriendshipID: fr.ID})
	require.NoError(t, err)

	plan, err := f.svc.RemoveFriend(ctx, f.bob.ID, Selector{FriendshipID: fr.ID})
	require.NoError(t, err)

	bobRooms := testutil.RoomEvents(testutil.EventsFor(plan, f.bob.ID, f.bob.ID, map[string]bool{roomID: true}))
	require.Len(t, bobRooms, 1)
	assert.Equal(t, core.RoomRemoveRoom, bobRooms[0].Ev)

	_, err = f.st.GetRoom(ctx, roomID)
	assert.True(t, errors.Is(err, store.ErrNotFound))
	_, err = f.st.GetFriendship(ctx, fr.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestRemoveFriend_DeclinedWithoutRoomEchoes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fr := f.request(t, f.alice, f.bob)
	_, err := f.svc.DeclineFriend(ctx, f.bob.ID, fr.ID)
	require.NoError(t, err)

	plan, err := f.svc.RemoveFriend(ctx, f.alice.ID, Selector{FriendshipID: fr.ID})
	require.NoError(t, err)
	echo := testutil.FriendEvents(testutil.EventsFor(plan, f.alice.ID, f.alice.ID, nil))
	require.Len(t, echo, 1)
	assert.Equal(t, fr.ID, echo[0].FriendshipID)
}

func TestRemoveFriend_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fr := f.request(t, f.alice, f.bob)

	_, err := f.svc.RemoveFriend(ctx, f.alice.ID, Selector{})
	assert.True(t, core.IsKind(err, core.KindValidation), "empty: %v", err)

	_, err = f.svc.RemoveFriend(ctx, f.carol.ID, Selector{FriendshipID: fr.ID})
	assert.True(t, core.IsKind(err, core.KindNotFound), "outsider: %v", err)

	_, err = f.svc.RemoveFriend(ctx, f.alice.ID, Selector{FriendshipID: fr.ID})
	assert.True(t, core.IsKind(err, core.KindStateMismatch), "pending: %v", err)
}

func TestAcceptFriend_ReplacesCrowdedRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	crowded := &store.Room{Name: RoomName, Type: store.RoomTypeFriend}
	require.NoError(t, f.st.CreateRoom(ctx, crowded, []string{f.alice.ID, f.bob.ID}))
	fr := &store.Friendship{
		RequesterID: f.alice.ID,
		AddresseeID: f.bob.ID,
		RoomID:      &crowded.ID,
		Status:      store.FriendStatusRequested,
	}
	require.NoError(t, f.st.CreateFriendship(ctx, fr))

	_, err := f.svc.AcceptFriend(ctx, f.bob.ID, fr.ID)
	require.NoError(t, err)

	got, err := f.st.GetFriendship(ctx, fr.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RoomID)
	assert.NotEqual(t, crowded.ID, *got.RoomID)

	_, err = f.st.GetRoom(ctx, crowded.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.request(t, f.alice, f.bob)
	f.befriend(t, f.carol, f.bob)

	views, err := f.svc.List(ctx, f.bob.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)

	for _, v := range views {
		switch v.User.ID {
		case f.alice.ID:
			require.NotNil(t, v.IsRequester)
			assert.True(t, *v.IsRequester)
		case f.carol.ID:
			assert.Nil(t, v.IsRequester)
			assert.Equal(t, store.FriendStatusAccepted, v.FriendStatus)
		default:
			t.Fatalf("unexpected friend %s", v.User.ID)
		}
	}
}
