package core

// StepKind is what a Step does.
type StepKind int

const (
	// StepToUser sends to the user's live connection, if any.
	StepToUser StepKind = iota
	// StepToRoom sends to every connection subscribed to the room.
	StepToRoom
	// StepToCaller sends to the connection that issued the command.
	StepToCaller
	// StepJoinUser subscribes the user's live connection to the room.
	StepJoinUser
	// StepJoinCaller subscribes the issuing connection to the room.
	StepJoinCaller
	// StepLeaveUser unsubscribes the user's live connection from the room.
	StepLeaveUser
	// StepLeaveCaller unsubscribes the issuing connection from the room.
	StepLeaveCaller
	// StepDissolve unsubscribes every connection from the room.
	StepDissolve
)

// Step is one delivery or subscription change.
type Step struct {
	Kind   StepKind
	UserID string
	RoomID string
	Event  Event
}

// Plan is the ordered list of notifications and subscription changes a
// command produces once its store mutations have succeeded. Steps run in
// order, so a join placed before a room broadcast includes the joiner.
type Plan struct {
	steps []Step
}

// Steps returns the recorded steps in order.
func (p *Plan) Steps() []Step {
	return p.steps
}

// Empty reports whether nothing was recorded.
func (p *Plan) Empty() bool {
	return len(p.steps) == 0
}

// ToUser sends ev to userID if online.
func (p *Plan) ToUser(userID string, ev Event) *Plan {
	p.steps = append(p.steps, Step{Kind: StepToUser, UserID: userID, Event: ev})
	return p
}

// ToRoom sends ev to the room's subscribers.
func (p *Plan) ToRoom(roomID string, ev Event) *Plan {
	p.steps = append(p.steps, Step{Kind: StepToRoom, RoomID: roomID, Event: ev})
	return p
}

// ToCaller sends ev to the issuing connection.
func (p *Plan) ToCaller(ev Event) *Plan {
	p.steps = append(p.steps, Step{Kind: StepToCaller, Event: ev})
	return p
}

// JoinUser subscribes userID's live connection to roomID.
func (p *Plan) JoinUser(userID, roomID string) *Plan {
	p.steps = append(p.steps, Step{Kind: StepJoinUser, UserID: userID, RoomID: roomID})
	return p
}

// JoinCaller subscribes the issuing connection to roomID.
func (p *Plan) JoinCaller(roomID string) *Plan {
	p.steps = append(p.steps, Step{Kind: StepJoinCaller, RoomID: roomID})
	return p
}

// LeaveUser unsubscribes userID's live connection from roomID.
func (p *Plan) LeaveUser(userID, roomID string) *Plan {
	p.steps = append(p.steps, Step{Kind: StepLeaveUser, UserID: userID, RoomID: roomID})
	return p
}

// LeaveCaller unsubscribes the issuing connection from roomID.
func (p *Plan) LeaveCaller(roomID string) *Plan {
	p.steps = append(p.steps, Step{Kind: StepLeaveCaller, RoomID: roomID})
	return p
}

// Dissolve unsubscribes everyone from roomID.
func (p *Plan) Dissolve(roomID string) *Plan {
	p.steps = append(p.steps, Step{Kind: StepDissolve, RoomID: roomID})
	return p
}
