// Package friends implements the friendship lifecycle and the room
// creation, reuse and teardown it drives.
package friends

import (
	"context"
	"errors"
	"fmt"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/service/rooms"
	"github.com/vovakirdan/wirechat-gateway/internal/store"
)

// RoomName is the stored name of every friend room. Clients display the
// friend's nickname instead.
const RoomName = "Friend Room"

// Target selects the other side of a request: a user or the friend room
// of an earlier friendship.
type Target struct {
	AddresseeID string
	RoomID      string
}

// Selector selects an existing friendship by id or by its room.
type Selector struct {
	FriendshipID string
	RoomID       string
}

// Service provides friend management business logic.
type Service struct {
	store store.Store
	rooms *rooms.Service
}

// New creates a new friend service. Room views are built through roomSvc.
func New(st store.Store, roomSvc *rooms.Service) *Service {
	return &Service{
		store: st,
		rooms: roomSvc,
	}
}

// RequestFriend sends a friend request from requesterID. A declined
// record for the same pair is reused, keeping its room reference.
func (s *Service) RequestFriend(ctx context.Context, requesterID string, target Target) (*core.Plan, error) {
	var (
		addresseeID string
		existing    *store.Friendship
	)

	switch {
	case target.RoomID != "":
		f, err := s.store.FindFriendshipByRoom(ctx, target.RoomID, requesterID)
		if err != nil {
			return nil, notFoundAs(err, "friendship not found")
		}
		existing = f
		addresseeID = f.Other(requesterID)
	case target.AddresseeID != "":
		addresseeID = target.AddresseeID
		if addresseeID == requesterID {
			return nil, core.Validation("cannot send friend request to yourself")
		}
		f, err := s.store.FindFriendshipBetween(ctx, requesterID, addresseeID)
		switch {
		case err == nil:
			existing = f
		case !errors.Is(err, store.ErrNotFound):
			return nil, fmt.Errorf("find friendship: %w", err)
		}
	default:
		return nil, core.Validation("addresseeId or roomId is required")
	}

	requester, err := s.getUser(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	addressee, err := s.getUser(ctx, addresseeID)
	if err != nil {
		return nil, err
	}

	var f *store.Friendship
	if existing != nil {
		if existing.Status != store.FriendStatusDeclined {
			return nil, core.Conflict("friendship already exists")
		}
		f = existing
		f.RequesterID = requesterID
		f.AddresseeID = addresseeID
		f.Status = store.FriendStatusRequested
		if err := s.store.UpdateFriendship(ctx, f); err != nil {
			return nil, fmt.Errorf("renew friend request: %w", err)
		}
	} else {
		f = &store.Friendship{
			RequesterID: requesterID,
			AddresseeID: addresseeID,
			Status:      store.FriendStatusRequested,
		}
		if err := s.store.CreateFriendship(ctx, f); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return nil, core.Conflict("friendship already exists")
			}
			return nil, fmt.Errorf("create friend request: %w", err)
		}
	}

	plan := &core.Plan{}
	plan.ToUser(addresseeID, core.AddFriendEvent(f, requester)).
		ToCaller(core.AddFriendEvent(f, addressee)).
		ToCaller(core.ToastEvent(core.ToastSuccess, "friend request sent"))
	return plan, nil
}

// AcceptFriend accepts a pending request addressed to actorID and puts both
// parties into a friend room.
//
// A referenced friend room with exactly one remaining member (one of the
// pair) is reused and the other party is added back. A referenced room in
// any other shape is deleted with its history. Otherwise a new room is made.
func (s *Service) AcceptFriend(ctx context.Context, actorID, friendshipID string) (*core.Plan, error) {
	f, err := s.getFriendship(ctx, friendshipID)
	if err != nil {
		return nil, err
	}
	if f.AddresseeID != actorID {
		return nil, core.Forbidden("only the addressee can accept this request")
	}
	if f.Status != store.FriendStatusRequested {
		return nil, core.StateMismatch("friend request is not pending")
	}

	requester, err := s.getUser(ctx, f.RequesterID)
	if err != nil {
		return nil, err
	}
	addressee, err := s.getUser(ctx, f.AddresseeID)
	if err != nil {
		return nil, err
	}

	room, leftMember, err := s.resolveRoom(ctx, f)
	if err != nil {
		return nil, err
	}

	f.Status = store.FriendStatusAccepted
	f.RoomID = &room.ID
	if err := s.store.UpdateFriendship(ctx, f); err != nil {
		return nil, fmt.Errorf("accept friend request: %w", err)
	}

	requesterView, err := s.rooms.View(ctx, room, addressee)
	if err != nil {
		return nil, err
	}
	addresseeView, err := s.rooms.View(ctx, room, requester)
	if err != nil {
		return nil, err
	}

	plan := &core.Plan{}
	plan.JoinUser(requester.ID, room.ID)
	if leftMember == requester.ID {
		plan.ToUser(requester.ID, core.AddMembersEvent(room.ID, []*store.User{addressee}))
	} else {
		plan.ToUser(requester.ID, core.AddRoomEvent(requesterView))
	}
	plan.JoinCaller(room.ID)
	if leftMember == addressee.ID {
		plan.ToCaller(core.AddMembersEvent(room.ID, []*store.User{requester}))
	} else {
		plan.ToCaller(core.AddRoomEvent(addresseeView))
	}
	plan.ToRoom(room.ID, core.UpdateFriendEvent(f)).
		ToRoom(room.ID, core.ToastEvent(core.ToastSuccess, "friend added"))
	return plan, nil
}

// resolveRoom returns the friend room for an accepted request and, when an
// existing room was reused, the member who had stayed in it.
func (s *Service) resolveRoom(ctx context.Context, f *store.Friendship) (*store.Room, string, error) {
	if f.RoomID != nil {
		old, err := s.store.GetRoom(ctx, *f.RoomID)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return nil, "", fmt.Errorf("get friend room: %w", err)
		case old.Type != store.RoomTypeFriend:
		case len(old.Members) == 1 && f.Involves(old.Members[0].ID):
			leftMember := old.Members[0].ID
			if err := s.store.AddMembers(ctx, old.ID, []string{f.Other(leftMember)}); err != nil {
				return nil, "", fmt.Errorf("rejoin friend room: %w", err)
			}
			old.Name = RoomName
			if err := s.store.UpdateRoom(ctx, old); err != nil {
				return nil, "", fmt.Errorf("rename friend room: %w", err)
			}
			room, err := s.store.GetRoom(ctx, old.ID)
			if err != nil {
				return nil, "", fmt.Errorf("reload friend room: %w", err)
			}
			return room, leftMember, nil
		default:
			if err := s.deleteRoom(ctx, old.ID); err != nil {
				return nil, "", err
			}
		}
	}

	room := &store.Room{Name: RoomName, Type: store.RoomTypeFriend}
	if err := s.store.CreateRoom(ctx, room, []string{f.RequesterID, f.AddresseeID}); err != nil {
		return nil, "", fmt.Errorf("create friend room: %w", err)
	}
	return room, "", nil
}

// DeclineFriend declines a pending request addressed to actorID.
func (s *Service) DeclineFriend(ctx context.Context, actorID, friendshipID string) (*core.Plan, error) {
	f, err := s.getFriendship(ctx, friendshipID)
	if err != nil {
		return nil, err
	}
	if f.AddresseeID != actorID {
		return nil, core.Forbidden("only the addressee can decline this request")
	}
	if f.Status != store.FriendStatusRequested {
		return nil, core.StateMismatch("friend request is not pending")
	}

	f.Status = store.FriendStatusDeclined
	if err := s.store.UpdateFriendship(ctx, f); err != nil {
		return nil, fmt.Errorf("decline friend request: %w", err)
	}

	removed := core.RemoveFriendEvent(f.ID)
	plan := &core.Plan{}
	plan.ToUser(f.RequesterID, removed).
		ToUser(f.RequesterID, core.ToastEvent(core.ToastWarning, "friend request declined")).
		ToCaller(removed)
	return plan, nil
}

// RemoveFriend ends a friendship actorID is part of.
//
// An accepted friendship becomes declined: the actor leaves the room and
// the room takes the actor's nickname, so the remaining member still sees
// who it was. A declined friendship is deleted together with its room.
func (s *Service) RemoveFriend(ctx context.Context, actorID string, sel Selector) (*core.Plan, error) {
	var f *store.Friendship
	switch {
	case sel.FriendshipID != "":
		found, err := s.getFriendship(ctx, sel.FriendshipID)
		if err != nil {
			return nil, err
		}
		if !found.Involves(actorID) {
			return nil, core.NotFound("friendship not found")
		}
		f = found
	case sel.RoomID != "":
		found, err := s.store.FindFriendshipByRoom(ctx, sel.RoomID, actorID)
		if err != nil {
			return nil, notFoundAs(err, "friendship not found")
		}
		f = found
	default:
		return nil, core.Validation("friendshipId or roomId is required")
	}

	switch f.Status {
	case store.FriendStatusAccepted:
		return s.unfriend(ctx, actorID, f)
	case store.FriendStatusDeclined:
		return s.forget(ctx, f)
	default:
		return nil, core.StateMismatch("a pending request cannot be removed")
	}
}

func (s *Service) unfriend(ctx context.Context, actorID string, f *store.Friendship) (*core.Plan, error) {
	actor, err := s.getUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	f.Status = store.FriendStatusDeclined
	if err := s.store.UpdateFriendship(ctx, f); err != nil {
		return nil, fmt.Errorf("remove friend: %w", err)
	}

	removed := core.RemoveFriendEvent(f.ID)
	plan := &core.Plan{}

	var room *store.Room
	if f.RoomID != nil {
		room, err = s.store.GetRoom(ctx, *f.RoomID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("get friend room: %w", err)
		}
	}
	if room == nil {
		plan.ToCaller(removed).ToUser(f.Other(actorID), removed)
		return plan, nil
	}

	if _, err := s.store.RemoveMembers(ctx, room.ID, []string{actorID}); err != nil {
		return nil, fmt.Errorf("leave friend room: %w", err)
	}
	room.Name = actor.Nickname
	if err := s.store.UpdateRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("rename friend room: %w", err)
	}

	plan.ToRoom(room.ID, removed).
		ToCaller(core.RemoveRoomEvent(room.ID)).
		LeaveCaller(room.ID).
		ToRoom(room.ID, core.RemoveMembersEvent(room.ID, []string{actorID})).
		ToRoom(room.ID, core.ToastEvent(core.ToastWarning, "friend removed"))
	return plan, nil
}

func (s *Service) forget(ctx context.Context, f *store.Friendship) (*core.Plan, error) {
	if f.RoomID != nil {
		if err := s.deleteRoom(ctx, *f.RoomID); err != nil {
			return nil, err
		}
	}
	if err := s.store.DeleteFriendship(ctx, f.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("delete friendship: %w", err)
	}

	plan := &core.Plan{}
	if f.RoomID == nil {
		plan.ToCaller(core.RemoveFriendEvent(f.ID))
		return plan, nil
	}
	plan.ToRoom(*f.RoomID, core.RemoveRoomEvent(*f.RoomID)).Dissolve(*f.RoomID)
	return plan, nil
}

// List returns the non-declined friendships of userID as seen by userID.
func (s *Service) List(ctx context.Context, userID string) ([]core.FriendView, error) {
	list, err := s.store.ListFriendships(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list friendships: %w", err)
	}
	if len(list) == 0 {
		return []core.FriendView{}, nil
	}

	ids := make([]string, 0, len(list))
	for _, f := range list {
		ids = append(ids, f.Other(userID))
	}
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get friends: %w", err)
	}
	byID := make(map[string]*store.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	views := make([]core.FriendView, 0, len(list))
	for _, f := range list {
		if friend, ok := byID[f.Other(userID)]; ok {
			views = append(views, core.NewFriendView(f, friend))
		}
	}
	return views, nil
}

func (s *Service) deleteRoom(ctx context.Context, roomID string) error {
	if err := s.store.DeleteRoomMessages(ctx, roomID); err != nil {
		return fmt.Errorf("delete friend room messages: %w", err)
	}
	if err := s.store.DeleteRoom(ctx, roomID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("delete friend room: %w", err)
	}
	return nil
}

func (s *Service) getFriendship(ctx context.Context, id string) (*store.Friendship, error) {
	f, err := s.store.GetFriendship(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "friendship not found")
	}
	return f, nil
}

func (s *Service) getUser(ctx context.Context, id string) (*store.User, error) {
	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "user not found")
	}
	return u, nil
}

func notFoundAs(err error, msg string) error {
	if errors.Is(err, store.ErrNotFound) {
		return core.NotFound("%s", msg)
	}
	return err
}
