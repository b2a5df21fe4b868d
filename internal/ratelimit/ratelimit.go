// Package ratelimit throttles inbound websocket events per user.
package ratelimit

import (
	"context"
	"time"
)

// Window is the period perMinute limits are measured over.
const Window = time.Minute

// Limiter decides whether key may perform one more action.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	// Forget drops local state kept for key.
	Forget(key string)
}

// Nop allows everything.
type Nop struct{}

func (Nop) Allow(context.Context, string) (bool, error) { return true, nil }

func (Nop) Forget(string) {}
