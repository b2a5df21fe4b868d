package core

import (
	"context"

	"github.com/rs/zerolog"
)

// Hub owns the shared real-time state: who is online and which
// connections listen to which room. It executes Plans against that state.
type Hub struct {
	presence *Presence
	subs     *Subscriptions
	log      *zerolog.Logger
}

// NewHub creates a new chat hub instance.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		presence: NewPresence(),
		subs:     NewSubscriptions(),
		log:      logger,
	}
}

// Presence exposes the presence registry.
func (h *Hub) Presence() *Presence { return h.presence }

// Subscriptions exposes the room subscription index.
func (h *Hub) Subscriptions() *Subscriptions { return h.subs }

// ReasonShutdown is the close reason given to connections when the hub stops.
const ReasonShutdown = "server shutting down"

// Run blocks until ctx is done, then closes every live connection.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll(ReasonShutdown)
}

func (h *Hub) closeAll(reason string) {
	h.presence.Range(func(_ string, conn Conn) bool {
		conn.Close(reason)
		return true
	})
}

// Apply executes plan. caller is the connection that issued the command
// and may be nil for server-initiated plans. A connection that cannot take
// an event is treated as offline.
func (h *Hub) Apply(caller Conn, plan *Plan) {
	if plan == nil {
		return
	}
	for _, step := range plan.Steps() {
		switch step.Kind {
		case StepToUser:
			if conn, ok := h.presence.Lookup(step.UserID); ok {
				h.send(conn, step.Event)
			}
		case StepToRoom:
			for _, conn := range h.subs.Members(step.RoomID) {
				h.send(conn, step.Event)
			}
		case StepToCaller:
			if caller != nil {
				h.send(caller, step.Event)
			}
		case StepJoinUser:
			if conn, ok := h.presence.Lookup(step.UserID); ok {
				h.subs.Join(step.RoomID, conn)
			}
		case StepJoinCaller:
			if caller != nil {
				h.subs.Join(step.RoomID, caller)
			}
		case StepLeaveUser:
			if conn, ok := h.presence.Lookup(step.UserID); ok {
				h.subs.Leave(step.RoomID, conn)
			}
		case StepLeaveCaller:
			if caller != nil {
				h.subs.Leave(step.RoomID, caller)
			}
		case StepDissolve:
			h.subs.Dissolve(step.RoomID)
		}
	}
}

// Send delivers a single event to conn.
func (h *Hub) Send(conn Conn, ev Event) {
	h.send(conn, ev)
}

func (h *Hub) send(conn Conn, ev Event) {
	if err := conn.Send(ev); err != nil {
		h.log.Debug().Err(err).
			Str("conn_id", conn.ID()).
			Str("user_id", conn.UserID()).
			Str("event", string(ev.Name)).
			Msg("drop event")
	}
}
