package gateway

import (
	"context"
	"encoding/json"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/proto"
	"github.com/vovakirdan/wirechat-gateway/internal/service/friends"
	"github.com/vovakirdan/wirechat-gateway/internal/service/messages"
	"github.com/vovakirdan/wirechat-gateway/internal/service/rooms"
	"github.com/vovakirdan/wirechat-gateway/internal/store"
)

// decoded adapts a typed handler: the payload is decoded and validated
// before fn runs.
func decoded[T any](fn func(ctx context.Context, userID string, req *T) (*core.Plan, error)) handler {
	return func(ctx context.Context, userID string, data json.RawMessage) (*core.Plan, error) {
		var req T
		if err := proto.Decode(data, &req); err != nil {
			return nil, err
		}
		return fn(ctx, userID, &req)
	}
}

func routes(rs *rooms.Service, fs *friends.Service, ms *messages.Service) map[string]handler {
	return map[string]handler{
		proto.EventSendMessage: decoded(func(ctx context.Context, uid string, req *proto.SendMessageData) (*core.Plan, error) {
			return ms.SendMessage(ctx, uid, req.RoomID, req.Content, store.MessageType(req.MessageType))
		}),
		proto.EventRemoveMessage: decoded(func(ctx context.Context, uid string, req *proto.RemoveMessageData) (*core.Plan, error) {
			return ms.RemoveMessage(ctx, uid, req.MessageID)
		}),

		proto.EventRequestFriend: decoded(func(ctx context.Context, uid string, req *proto.RequestFriendData) (*core.Plan, error) {
			return fs.RequestFriend(ctx, uid, friends.Target{AddresseeID: req.AddresseeID, RoomID: req.RoomID})
		}),
		proto.EventAcceptFriend: decoded(func(ctx context.Context, uid string, req *proto.FriendshipData) (*core.Plan, error) {
			return fs.AcceptFriend(ctx, uid, req.FriendshipID)
		}),
		proto.EventDeclineFriend: decoded(func(ctx context.Context, uid string, req *proto.FriendshipData) (*core.Plan, error) {
			return fs.DeclineFriend(ctx, uid, req.FriendshipID)
		}),
		proto.EventRemoveFriend: decoded(func(ctx context.Context, uid string, req *proto.RemoveFriendData) (*core.Plan, error) {
			return fs.RemoveFriend(ctx, uid, friends.Selector{FriendshipID: req.FriendshipID, RoomID: req.RoomID})
		}),

		proto.EventCreateRoom: decoded(func(ctx context.Context, uid string, req *proto.CreateRoomData) (*core.Plan, error) {
			return rs.CreateGroupRoom(ctx, uid, req.Name, req.MemberIDs)
		}),
		proto.EventRemoveRoom: decoded(func(ctx context.Context, uid string, req *proto.RoomData) (*core.Plan, error) {
			return rs.RemoveGroupRoom(ctx, uid, req.RoomID)
		}),
		proto.EventAddRoomMembers: decoded(func(ctx context.Context, uid string, req *proto.RoomMembersData) (*core.Plan, error) {
			return rs.AddMembers(ctx, uid, req.RoomID, req.MemberIDs)
		}),
		proto.EventDeleteRoomMembers: decoded(func(ctx context.Context, uid string, req *proto.RoomMembersData) (*core.Plan, error) {
			return rs.DeleteMembers(ctx, uid, req.RoomID, req.MemberIDs)
		}),
		proto.EventLeaveRoom: decoded(func(ctx context.Context, uid string, req *proto.RoomData) (*core.Plan, error) {
			return rs.LeaveRoom(ctx, uid, req.RoomID)
		}),
		proto.EventUpdateRoomName: decoded(func(ctx context.Context, uid string, req *proto.RoomNameData) (*core.Plan, error) {
			return rs.RenameRoom(ctx, uid, req.RoomID, req.Name)
		}),
		proto.EventUpdateRoomNotice: decoded(func(ctx context.Context, uid string, req *proto.RoomNoticeData) (*core.Plan, error) {
			return rs.UpdateNotice(ctx, uid, req.RoomID, req.Notice)
		}),
	}
}
