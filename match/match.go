package match

import (
	"errors"
	"time"
)

// NoSeat is the seat index reported when an operation does not place a player.
const NoSeat = -1

var (
	ErrInvalidMatchID   = errors.New("invalid match id")
	ErrDuplicateMatchID = errors.New("match id already exists")
	ErrMatchNotFound    = errors.New("match not found")
	ErrMatchFull        = errors.New("match is full")
	ErrMatchInProgress  = errors.New("match already in progress")
	ErrNoEligibleMatch  = errors.New("no eligible public match")
	ErrAlreadyStarted   = errors.New("match already started")
	ErrPlayerNotInMatch = errors.New("player not in match")
	ErrAlreadyInMatch   = errors.New("player already in match")
)

// Player is anything the registry can seat. The registry never performs
// network I/O itself; StartMatch is how a participant learns its match has
// left the lobby, along with the seat the registry holds for it.
type Player interface {
	GetID() string
	StartMatch(matchID string, seat int)
}

// GameCoordinator drives the game phase of a started match.
type GameCoordinator interface {
	RemovePlayer(playerID string)
	Close()
}

// CoordinatorFactory builds the game coordinator for a match that is being
// started. seats are in seat order.
type CoordinatorFactory func(matchID string, seats []Seat) GameCoordinator

// Seat binds a player to its 1-based index within a match. Indices are never
// reassigned while the player stays, and seats are kept in index order.
type Seat struct {
	Player Player
	Index  int
}

// Match is one forming or running game and its roster.
type Match struct {
	ID           string
	IsPublic     bool
	IsFull       bool
	IsInProgress bool
	CreatedAt    time.Time

	seats       []Seat
	lastSeat    int
	coordinator GameCoordinator
}

func newMatch(id string, player Player, isPublic bool) *Match {
	return &Match{
		ID:        id,
		IsPublic:  isPublic,
		CreatedAt: time.Now(),
		seats:     []Seat{{Player: player, Index: 1}},
		lastSeat:  1,
	}
}

func (m *Match) indexOf(playerID string) int {
	for i, s := range m.seats {
		if s.Player.GetID() == playerID {
			return i
		}
	}
	return -1
}

func (m *Match) players() []Player {
	players := make([]Player, len(m.seats))
	for i, s := range m.seats {
		players[i] = s.Player
	}
	return players
}

// eligible reports whether search may place a player here.
func (m *Match) eligible() bool {
	return m.IsPublic && !m.IsFull && !m.IsInProgress
}

// Info is a read-only copy of a match.
type Info struct {
	ID           string     `json:"match_id"`
	IsPublic     bool       `json:"is_public"`
	IsFull       bool       `json:"is_full"`
	IsInProgress bool       `json:"is_in_progress"`
	CreatedAt    time.Time  `json:"created_at"`
	Seats        []SeatInfo `json:"seats"`
}

// SeatInfo names the player holding a seat.
type SeatInfo struct {
	PlayerID string `json:"player_id"`
	Index    int    `json:"seat"`
}

func (m *Match) info() Info {
	info := Info{
		ID:           m.ID,
		IsPublic:     m.IsPublic,
		IsFull:       m.IsFull,
		IsInProgress: m.IsInProgress,
		CreatedAt:    m.CreatedAt,
		Seats:        make([]SeatInfo, len(m.seats)),
	}
	for i, s := range m.seats {
		info.Seats[i] = SeatInfo{PlayerID: s.Player.GetID(), Index: s.Index}
	}
	return info
}
