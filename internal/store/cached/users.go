// Package cached decorates a store.Store with an in-process user cache.
package cached

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/vovakirdan/wirechat-gateway/internal/store"
)

// Store serves GetUserByID from a bounded expiring cache and passes every
// other call through to the wrapped store.
type Store struct {
	store.Store

	users   *expirable.LRU[string, store.User]
	sfGroup singleflight.Group // collapses concurrent misses for the same id
}

// New wraps next. size <= 0 disables caching entirely and returns next.
func New(next store.Store, size int, ttl time.Duration) store.Store {
	if size <= 0 {
		return next
	}
	return &Store{
		Store: next,
		users: expirable.NewLRU[string, store.User](size, nil, ttl),
	}
}

// GetUserByID returns a copy of the cached user, loading it on a miss.
func (s *Store) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	if u, ok := s.users.Get(id); ok {
		return &u, nil
	}

	val, err, _ := s.sfGroup.Do(id, func() (any, error) {
		return s.Store.GetUserByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	loaded := val.(*store.User)
	s.users.Add(id, *loaded)
	u := *loaded
	return &u, nil
}

// GetUsersByIDs serves hits from the cache and loads the rest in one query.
func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) ([]*store.User, error) {
	users := make([]*store.User, 0, len(ids))
	var missing []string
	for _, id := range ids {
		if u, ok := s.users.Get(id); ok {
			users = append(users, &u)
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return users, nil
	}

	loaded, err := s.Store.GetUsersByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, u := range loaded {
		s.users.Add(u.ID, *u)
		users = append(users, u)
	}
	return users, nil
}

// UpdateUser writes through and drops the cached entry.
func (s *Store) UpdateUser(ctx context.Context, user *store.User) error {
	err := s.Store.UpdateUser(ctx, user)
	s.users.Remove(user.ID)
	return err
}
