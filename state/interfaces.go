// state/interfaces.go
package state

// Player defines the minimal interface for a participant that a state needs to interact with.
type Player interface {
	GetID() string
}

// MatchContext is what a started match exposes to its game states. It keeps
// the state package free of the turn coordinator's concrete type.
type MatchContext interface {
	GetMatchID() string
	// GetPlayers returns the remaining participants in seat order.
	GetPlayers() []Player
	SeatOf(playerID string) int
	ChangeState(newState State) error
	Broadcast(msgID uint16, data []byte) error
}
