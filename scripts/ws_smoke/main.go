package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	token := flag.String("token", "", "access token from /api/auth/login")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	if *token == "" {
		return fmt.Errorf("-token is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	var hs proto.Handshake
	hs.Auth.Token = "Bearer " + *token
	if err := wsjson.Write(ctx, conn, hs); err != nil {
		return fmt.Errorf("send handshake: %w", err)
	}

	var init frame
	if err := wsjson.Read(ctx, conn, &init); err != nil {
		return fmt.Errorf("read initRooms: %w", err)
	}
	if init.Event != string(core.EventInitRooms) {
		return fmt.Errorf("expected %s, got %s", core.EventInitRooms, init.Event)
	}
	var rooms []core.RoomView
	if err := json.Unmarshal(init.Data, &rooms); err != nil {
		return fmt.Errorf("unmarshal initRooms: %w", err)
	}
	fmt.Printf("initRooms: %d room(s)\n", len(rooms))
	if len(rooms) == 0 {
		return fmt.Errorf("user has no rooms")
	}

	payload, err := json.Marshal(proto.SendMessageData{RoomID: rooms[0].ID, Content: *text})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Event: proto.EventSendMessage, Data: payload}); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		fmt.Printf("received event=%s\n", f.Event)

		switch core.EventName(f.Event) {
		case core.EventRoom:
			var ev core.RoomEvent
			if err := json.Unmarshal(f.Data, &ev); err != nil {
				return fmt.Errorf("unmarshal room event: %w", err)
			}
			if ev.Ev == core.RoomAddMessage && ev.Message != nil {
				fmt.Printf("message: room=%s content=%q\n", ev.RoomID, ev.Message.Content)
				return nil
			}
		case core.EventMsgToClient, core.EventException:
			fmt.Printf("notice: %s\n", string(f.Data))
		default:
			// keep looping for the echo
		}
	}
}
