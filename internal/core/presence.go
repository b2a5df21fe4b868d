package core

import "github.com/puzpuzpuz/xsync/v3"

// Presence maps a user id to that user's single live connection.
// Every operation is atomic per user id.
type Presence struct {
	conns *xsync.MapOf[string, Conn]
}

// NewPresence returns an empty registry.
func NewPresence() *Presence {
	return &Presence{conns: xsync.NewMapOf[string, Conn]()}
}

// Register binds conn to userID and returns the connection it replaced, if any.
func (p *Presence) Register(userID string, conn Conn) (evicted Conn) {
	p.conns.Compute(userID, func(old Conn, loaded bool) (Conn, bool) {
		if loaded && old.ID() != conn.ID() {
			evicted = old
		}
		return conn, false
	})
	return evicted
}

// Lookup returns the live connection of userID.
func (p *Presence) Lookup(userID string) (Conn, bool) {
	return p.conns.Load(userID)
}

// Unregister removes userID only while it is still bound to connID, so a
// late disconnect of an evicted connection leaves its successor in place.
func (p *Presence) Unregister(userID, connID string) bool {
	removed := false
	p.conns.Compute(userID, func(old Conn, loaded bool) (Conn, bool) {
		if !loaded {
			return old, true
		}
		if old.ID() != connID {
			return old, false
		}
		removed = true
		return old, true
	})
	return removed
}

// Len is the number of online users.
func (p *Presence) Len() int {
	return p.conns.Size()
}

// Range calls fn for each online user until fn returns false.
func (p *Presence) Range(fn func(userID string, conn Conn) bool) {
	p.conns.Range(fn)
}
