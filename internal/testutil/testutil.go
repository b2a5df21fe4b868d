// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/store"
	"github.com/vovakirdan/wirechat-gateway/internal/store/sqlite"
)

// NewStore creates an in-memory SQLite store with the schema applied.
func NewStore(t testing.TB) *sqlite.SQLiteStore {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.Migrate)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// SeedUser inserts a user; the nickname defaults to the username.
func SeedUser(t testing.TB, st store.Store, username string) *store.User {
	t.Helper()

	u := &store.User{Username: username, PasswordHash: "hash"}
	if err := st.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to seed user %s: %v", username, err)
	}
	return u
}

// EventsFor replays plan for one online user and returns what that user
// would receive. subscribed lists the rooms the user listens to beforehand.
func EventsFor(plan *core.Plan, userID, callerID string, subscribed map[string]bool) []core.Event {
	var out []core.Event
	member := map[string]bool{}
	for k, v := range subscribed {
		member[k] = v
	}
	for _, step := range plan.Steps() {
		switch step.Kind {
		case core.StepToUser:
			if step.UserID == userID {
				out = append(out, step.Event)
			}
		case core.StepToCaller:
			if callerID == userID {
				out = append(out, step.Event)
			}
		case core.StepToRoom:
			if member[step.RoomID] {
				out = append(out, step.Event)
			}
		case core.StepJoinUser:
			if step.UserID == userID {
				member[step.RoomID] = true
			}
		case core.StepJoinCaller:
			if callerID == userID {
				member[step.RoomID] = true
			}
		case core.StepLeaveUser:
			if step.UserID == userID {
				member[step.RoomID] = false
			}
		case core.StepLeaveCaller:
			if callerID == userID {
				member[step.RoomID] = false
			}
		case core.StepDissolve:
			member[step.RoomID] = false
		}
	}
	return out
}

// RoomEvents filters events down to room payloads.
func RoomEvents(events []core.Event) []core.RoomEvent {
	var out []core.RoomEvent
	for _, ev := range events {
		if p, ok := ev.Data.(core.RoomEvent); ok {
			out = append(out, p)
		}
	}
	return out
}

// FriendEvents filters events down to friend payloads.
func FriendEvents(events []core.Event) []core.FriendEvent {
	var out []core.FriendEvent
	for _, ev := range events {
		if p, ok := ev.Data.(core.FriendEvent); ok {
			out = append(out, p)
		}
	}
	return out
}

// Toasts filters events down to toast payloads.
func Toasts(events []core.Event) []core.Toast {
	var out []core.Toast
	for _, ev := range events {
		if p, ok := ev.Data.(core.Toast); ok {
			out = append(out, p)
		}
	}
	return out
}
