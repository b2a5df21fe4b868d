// Package rooms implements room membership: group creation and removal,
// member changes, leaving, renaming and the per-connection room snapshot.
package rooms

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/store"
)

// MinGroupMembers is the smallest group size, owner included.
const MinGroupMembers = 3

// DefaultHistoryLimit is how many recent messages a room view carries.
const DefaultHistoryLimit = 30

// Service provides room membership business logic. Every mutating method
// performs its store writes and returns the notifications to deliver.
type Service struct {
	store        store.Store
	historyLimit int
}

// New creates a room service. historyLimit <= 0 uses DefaultHistoryLimit.
func New(st store.Store, historyLimit int) *Service {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Service{store: st, historyLimit: historyLimit}
}

// CreateGroupRoom creates a public room owned by ownerID.
func (s *Service) CreateGroupRoom(ctx context.Context, ownerID, name string, memberIDs []string) (*core.Plan, error) {
	ids := dedupe(append([]string{ownerID}, memberIDs...))
	if len(ids) < MinGroupMembers {
		return nil, core.Validation("a group needs at least %d members", MinGroupMembers)
	}
	if err := s.requireUsers(ctx, ids); err != nil {
		return nil, err
	}

	room := &store.Room{Name: name, OwnerID: &ownerID, Type: store.RoomTypePublic}
	if err := s.store.CreateRoom(ctx, room, ids); err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}

	addRoom := core.AddRoomEvent(core.NewRoomView(room, nil, nil))
	toast := core.ToastEvent(core.ToastInfo, fmt.Sprintf("you joined room (%s)", room.Name))
	plan := &core.Plan{}
	for _, id := range ids {
		plan.JoinUser(id, room.ID).ToUser(id, addRoom).ToUser(id, toast)
	}
	return plan, nil
}

// RemoveGroupRoom deletes a group room and its history. Owner only.
func (s *Service) RemoveGroupRoom(ctx context.Context, ownerID, roomID string) (*core.Plan, error) {
	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsOwner(ownerID) {
		return nil, core.Forbidden("only the owner can remove this room")
	}

	if err := s.deleteRoom(ctx, room.ID); err != nil {
		return nil, err
	}

	plan := &core.Plan{}
	plan.ToRoom(room.ID, core.RemoveRoomEvent(room.ID)).
		ToRoom(room.ID, core.ToastEvent(core.ToastWarning,
			fmt.Sprintf("room (%s) was dissolved by its owner", room.Name))).
		Dissolve(room.ID)
	return plan, nil
}

// AddMembers appends users to a group room the actor belongs to. Users
// already present are skipped.
func (s *Service) AddMembers(ctx context.Context, actorID, roomID string, memberIDs []string) (*core.Plan, error) {
	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasMember(actorID) {
		return nil, core.Forbidden("you are not a member of this room")
	}
	if room.Type != store.RoomTypePublic {
		return nil, core.StateMismatch("members can only be added to group rooms")
	}

	ids := dedupe(memberIDs)
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	if len(users) != len(ids) {
		return nil, core.NotFound("user not found")
	}

	byID := make(map[string]*store.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	var added []*store.User
	var addedIDs []string
	for _, id := range ids {
		if room.HasMember(id) {
			continue
		}
		added = append(added, byID[id])
		addedIDs = append(addedIDs, id)
	}

	plan := &core.Plan{}
	if len(added) == 0 {
		return plan, nil
	}

	if err := s.store.AddMembers(ctx, room.ID, addedIDs); err != nil {
		return nil, fmt.Errorf("add members: %w", err)
	}
	if room, err = s.getRoom(ctx, room.ID); err != nil {
		return nil, err
	}
	view, err := s.View(ctx, room, nil)
	if err != nil {
		return nil, err
	}

	plan.ToRoom(room.ID, core.AddMembersEvent(room.ID, added))
	addRoom := core.AddRoomEvent(view)
	toast := core.ToastEvent(core.ToastInfo, fmt.Sprintf("you were added to room (%s)", room.Name))
	for _, id := range addedIDs {
		plan.JoinUser(id, room.ID).ToUser(id, addRoom).ToUser(id, toast)
	}
	return plan, nil
}

// DeleteMembers removes users from a room. Owner only; the owner cannot remove itself.
func (s *Service) DeleteMembers(ctx context.Context, ownerID, roomID string, memberIDs []string) (*core.Plan, error) {
	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsOwner(ownerID) {
		return nil, core.Forbidden("only the owner can remove members")
	}

	ids := dedupe(memberIDs)
	var removed []string
	for _, id := range ids {
		if id == ownerID {
			return nil, core.Validation("the owner cannot remove themselves")
		}
		if room.HasMember(id) {
			removed = append(removed, id)
		}
	}

	plan := &core.Plan{}
	if len(removed) == 0 {
		return plan, nil
	}
	if _, err := s.store.RemoveMembers(ctx, room.ID, removed); err != nil {
		return nil, fmt.Errorf("remove members: %w", err)
	}

	toast := core.ToastEvent(core.ToastWarning, fmt.Sprintf("you were removed from room (%s)", room.Name))
	for _, id := range removed {
		plan.LeaveUser(id, room.ID).
			ToUser(id, core.RemoveRoomEvent(room.ID)).
			ToUser(id, toast)
	}
	plan.ToRoom(room.ID, core.RemoveMembersEvent(room.ID, removed))
	return plan, nil
}

// LeaveRoom removes userID from a group room. The room and its history are
// deleted when nobody is left.
func (s *Service) LeaveRoom(ctx context.Context, userID, roomID string) (*core.Plan, error) {
	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Type == store.RoomTypeSingle || room.Type == store.RoomTypeFriend {
		return nil, core.StateMismatch("cannot leave a %s room", room.Type)
	}
	if !room.HasMember(userID) {
		return nil, core.Forbidden("you are not a member of this room")
	}

	// The count comes from the removal itself so that concurrent leavers
	// cannot both see a member left behind.
	remaining, err := s.store.RemoveMembers(ctx, room.ID, []string{userID})
	if err != nil {
		return nil, fmt.Errorf("remove member: %w", err)
	}
	if remaining == 0 {
		if err := s.deleteRoom(ctx, room.ID); err != nil {
			return nil, err
		}
	}

	plan := &core.Plan{}
	plan.ToCaller(core.RemoveRoomEvent(room.ID)).LeaveCaller(room.ID)
	if remaining > 0 {
		plan.ToRoom(room.ID, core.RemoveMembersEvent(room.ID, []string{userID}))
	} else {
		plan.Dissolve(room.ID)
	}
	return plan, nil
}

// RenameRoom changes a room's name. Owner only.
func (s *Service) RenameRoom(ctx context.Context, ownerID, roomID, name string) (*core.Plan, error) {
	room, err := s.ownedRoom(ctx, ownerID, roomID)
	if err != nil {
		return nil, err
	}
	room.Name = name
	if err := s.store.UpdateRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("update room: %w", err)
	}

	plan := &core.Plan{}
	plan.ToRoom(room.ID, core.UpdateNameEvent(room.ID, name))
	return plan, nil
}

// UpdateNotice changes a room's notice. Owner only.
func (s *Service) UpdateNotice(ctx context.Context, ownerID, roomID, notice string) (*core.Plan, error) {
	room, err := s.ownedRoom(ctx, ownerID, roomID)
	if err != nil {
		return nil, err
	}
	room.Notice = notice
	if err := s.store.UpdateRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("update room: %w", err)
	}

	plan := &core.Plan{}
	plan.ToRoom(room.ID, core.UpdateNoticeEvent(room.ID, notice))
	return plan, nil
}

// Snapshot returns every room of userID with recent history, oldest room first.
// History loads run in an errgroup so the first failure cancels the rest; with
// the single-connection SQLite store they still execute one at a time.
func (s *Service) Snapshot(ctx context.Context, userID string) ([]core.RoomView, error) {
	rooms, err := s.store.ListUserRooms(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	views := make([]core.RoomView, len(rooms))
	g, gctx := errgroup.WithContext(ctx)
	for i, room := range rooms {
		g.Go(func() error {
			view, err := s.View(gctx, room, core.FriendOf(room, userID))
			if err != nil {
				return err
			}
			views[i] = view
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

// MemberRoomIDs returns the set of rooms userID currently belongs to.
func (s *Service) MemberRoomIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	rooms, err := s.store.ListUserRooms(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	ids := make(map[string]struct{}, len(rooms))
	for _, room := range rooms {
		ids[room.ID] = struct{}{}
	}
	return ids, nil
}

// View builds the view of room with its recent history.
func (s *Service) View(ctx context.Context, room *store.Room, friend *store.User) (core.RoomView, error) {
	messages, err := s.store.ListRecentMessages(ctx, room.ID, s.historyLimit)
	if err != nil {
		return core.RoomView{}, fmt.Errorf("list messages of %s: %w", room.ID, err)
	}
	return core.NewRoomView(room, messages, friend), nil
}

func (s *Service) getRoom(ctx context.Context, roomID string) (*store.Room, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, core.NotFound("room not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	return room, nil
}

func (s *Service) ownedRoom(ctx context.Context, ownerID, roomID string) (*store.Room, error) {
	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsOwner(ownerID) {
		return nil, core.Forbidden("only the owner can change this room")
	}
	return room, nil
}

// deleteRoom removes history first, then the room.
func (s *Service) deleteRoom(ctx context.Context, roomID string) error {
	if err := s.store.DeleteRoomMessages(ctx, roomID); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if err := s.store.DeleteRoom(ctx, roomID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("delete room: %w", err)
	}
	return nil
}

func (s *Service) requireUsers(ctx context.Context, ids []string) error {
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("get users: %w", err)
	}
	if len(users) != len(ids) {
		return core.NotFound("user not found")
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
