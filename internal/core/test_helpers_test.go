package core

import (
	"testing"
	"time"
)

func mustEvent(t *testing.T, ch <-chan Event, name EventName) Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev.Name == name {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event %v not received", name)
	return Event{}
}

func mustNoEvent(t *testing.T, ch <-chan Event) {
	t.Helper()

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %v: %+v", ev.Name, ev.Data)
	case <-time.After(50 * time.Millisecond):
	}
}

func roomPayload(t *testing.T, ev Event) RoomEvent {
	t.Helper()

	payload, ok := ev.Data.(RoomEvent)
	if !ok {
		t.Fatalf("expected RoomEvent, got %T", ev.Data)
	}
	return payload
}
