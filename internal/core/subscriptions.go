package core

import "github.com/puzpuzpuz/xsync/v3"

// Subscriptions indexes which connections receive a room's broadcasts.
// Stored sets are copied on write and never mutated once published, so
// readers iterate them without locks.
type Subscriptions struct {
	rooms *xsync.MapOf[string, map[string]Conn]     // room id -> conn id -> conn
	conns *xsync.MapOf[string, map[string]struct{}] // conn id -> room ids
}

// NewSubscriptions returns an empty index.
func NewSubscriptions() *Subscriptions {
	return &Subscriptions{
		rooms: xsync.NewMapOf[string, map[string]Conn](),
		conns: xsync.NewMapOf[string, map[string]struct{}](),
	}
}

// Join subscribes conn to roomID.
func (s *Subscriptions) Join(roomID string, conn Conn) {
	connID := conn.ID()
	s.rooms.Compute(roomID, func(old map[string]Conn, _ bool) (map[string]Conn, bool) {
		next := make(map[string]Conn, len(old)+1)
		for k, v := range old {
			next[k] = v
		}
		next[connID] = conn
		return next, false
	})
	s.conns.Compute(connID, func(old map[string]struct{}, _ bool) (map[string]struct{}, bool) {
		return withKey(old, roomID), false
	})

	// A join racing a disconnect must not outlive it.
	select {
	case <-conn.Done():
		s.LeaveAll(conn)
	default:
	}
}

// Leave unsubscribes conn from roomID.
func (s *Subscriptions) Leave(roomID string, conn Conn) {
	s.removeFromRoom(roomID, conn.ID())
	s.conns.Compute(conn.ID(), func(old map[string]struct{}, loaded bool) (map[string]struct{}, bool) {
		if !loaded {
			return old, true
		}
		next := withoutKey(old, roomID)
		return next, len(next) == 0
	})
}

// LeaveAll drops every subscription of conn.
func (s *Subscriptions) LeaveAll(conn Conn) {
	rooms, ok := s.conns.LoadAndDelete(conn.ID())
	if !ok {
		return
	}
	for roomID := range rooms {
		s.removeFromRoom(roomID, conn.ID())
	}
}

// Dissolve unsubscribes everyone from roomID.
func (s *Subscriptions) Dissolve(roomID string) {
	members, ok := s.rooms.LoadAndDelete(roomID)
	if !ok {
		return
	}
	for connID := range members {
		s.conns.Compute(connID, func(old map[string]struct{}, loaded bool) (map[string]struct{}, bool) {
			if !loaded {
				return old, true
			}
			next := withoutKey(old, roomID)
			return next, len(next) == 0
		})
	}
}

// Members returns the connections subscribed to roomID.
func (s *Subscriptions) Members(roomID string) []Conn {
	set, ok := s.rooms.Load(roomID)
	if !ok {
		return nil
	}
	out := make([]Conn, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// Rooms returns the room ids conn is subscribed to.
func (s *Subscriptions) Rooms(connID string) []string {
	set, ok := s.conns.Load(connID)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for roomID := range set {
		out = append(out, roomID)
	}
	return out
}

// Subscribed reports whether conn receives roomID broadcasts.
func (s *Subscriptions) Subscribed(roomID, connID string) bool {
	set, ok := s.rooms.Load(roomID)
	if !ok {
		return false
	}
	_, ok = set[connID]
	return ok
}

func (s *Subscriptions) removeFromRoom(roomID, connID string) {
	s.rooms.Compute(roomID, func(old map[string]Conn, loaded bool) (map[string]Conn, bool) {
		if !loaded {
			return old, true
		}
		if _, ok := old[connID]; !ok {
			return old, false
		}
		next := make(map[string]Conn, len(old))
		for k, v := range old {
			if k != connID {
				next[k] = v
			}
		}
		return next, len(next) == 0
	})
}

func withKey(old map[string]struct{}, key string) map[string]struct{} {
	next := make(map[string]struct{}, len(old)+1)
	for k := range old {
		next[k] = struct{}{}
	}
	next[key] = struct{}{}
	return next
}

func withoutKey(old map[string]struct{}, key string) map[string]struct{} {
	next := make(map[string]struct{}, len(old))
	for k := range old {
		if k != key {
			next[k] = struct{}{}
		}
	}
	return next
}
