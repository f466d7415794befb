// Package match holds the server-authoritative registry of lobby matches.
package match

import (
	"sync"

	"github.com/wfunc/matchlobby/logger"
	"github.com/wfunc/matchlobby/matchid"
)

// Registry owns every live match and the index of live match ids. Each
// exported operation runs as a single critical section, so the id check and
// insert in HostGame cannot interleave with another host.
type Registry struct {
	matches    []*Match          // creation order
	index      map[string]*Match // matchID -> match
	maxPlayers int
	spawn      CoordinatorFactory
	mutex      sync.RWMutex
}

// NewRegistry creates an empty registry. maxPlayers is the seat count of
// every match; spawn may be nil when no game phase is needed.
func NewRegistry(maxPlayers int, spawn CoordinatorFactory) *Registry {
	if maxPlayers < 1 {
		maxPlayers = 1
	}
	return &Registry{
		index:      make(map[string]*Match),
		maxPlayers: maxPlayers,
		spawn:      spawn,
	}
}

// MaxPlayers returns the seat count of every match.
func (r *Registry) MaxPlayers() int {
	return r.maxPlayers
}

// HostGame opens a new match with player in seat 1.
func (r *Registry) HostGame(matchID string, player Player, isPublic bool) (int, error) {
	if !matchid.Validate(matchID) {
		return NoSeat, ErrInvalidMatchID
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.index[matchID]; exists {
		logger.Log.Infow("host rejected, id already live", "match_id", matchID, "player_id", player.GetID())
		return NoSeat, ErrDuplicateMatchID
	}

	m := newMatch(matchID, player, isPublic)
	m.IsFull = len(m.seats) >= r.maxPlayers
	r.index[matchID] = m
	r.matches = append(r.matches, m)

	logger.Log.Infow("match hosted", "match_id", matchID, "player_id", player.GetID(), "public", isPublic)
	return 1, nil
}

// JoinGame seats player in an existing match that is neither full nor
// started.
func (r *Registry) JoinGame(matchID string, player Player) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	m, exists := r.index[matchID]
	if !exists {
		return NoSeat, ErrMatchNotFound
	}
	return r.joinLocked(m, player)
}

// SearchGame seats player in the oldest public match that still accepts
// players and returns that match's id.
func (r *Registry) SearchGame(player Player) (string, int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, m := range r.matches {
		if !m.eligible() || m.indexOf(player.GetID()) >= 0 {
			continue
		}
		seat, err := r.joinLocked(m, player)
		if err != nil {
			continue
		}
		return m.ID, seat, nil
	}
	return "", NoSeat, ErrNoEligibleMatch
}

func (r *Registry) joinLocked(m *Match, player Player) (int, error) {
	switch {
	case m.IsInProgress:
		return NoSeat, ErrMatchInProgress
	case m.IsFull:
		return NoSeat, ErrMatchFull
	case m.indexOf(player.GetID()) >= 0:
		return NoSeat, ErrAlreadyInMatch
	}

	m.lastSeat++
	m.seats = append(m.seats, Seat{Player: player, Index: m.lastSeat})
	m.IsFull = len(m.seats) >= r.maxPlayers

	logger.Log.Infow("match joined", "match_id", m.ID, "player_id", player.GetID(), "seat", m.lastSeat)
	return m.lastSeat, nil
}

// StartGame moves a match out of the lobby. It spawns one game coordinator
// with every current player and tells each of them to leave the lobby. A
// second call reports ErrAlreadyStarted and spawns nothing.
func (r *Registry) StartGame(matchID string) error {
	r.mutex.Lock()
	m, exists := r.index[matchID]
	if !exists {
		r.mutex.Unlock()
		return ErrMatchNotFound
	}
	if m.IsInProgress {
		r.mutex.Unlock()
		return ErrAlreadyStarted
	}
	m.IsInProgress = true
	seats := append([]Seat(nil), m.seats...)
	if r.spawn != nil {
		m.coordinator = r.spawn(matchID, append([]Seat(nil), seats...))
	}
	r.mutex.Unlock()

	logger.Log.Infow("match started", "match_id", matchID, "players", len(seats))
	for _, s := range seats {
		s.Player.StartMatch(matchID, s.Index)
	}
	return nil
}

// PlayerDisconnected removes player from its seat without renumbering the
// others. The match and its id are dropped together once nobody is left;
// the returned bool reports that.
func (r *Registry) PlayerDisconnected(player Player, matchID string) (bool, error) {
	r.mutex.Lock()
	m, exists := r.index[matchID]
	if !exists {
		r.mutex.Unlock()
		return false, ErrMatchNotFound
	}
	i := m.indexOf(player.GetID())
	if i < 0 {
		r.mutex.Unlock()
		return false, ErrPlayerNotInMatch
	}

	m.seats = append(m.seats[:i], m.seats[i+1:]...)
	if len(m.seats) > 0 {
		m.IsFull = len(m.seats) >= r.maxPlayers
		coordinator := m.coordinator
		r.mutex.Unlock()
		if coordinator != nil {
			coordinator.RemovePlayer(player.GetID())
		}
		logger.Log.Infow("player left match", "match_id", matchID, "player_id", player.GetID())
		return false, nil
	}

	delete(r.index, matchID)
	for j, candidate := range r.matches {
		if candidate == m {
			r.matches = append(r.matches[:j], r.matches[j+1:]...)
			break
		}
	}
	coordinator := m.coordinator
	m.coordinator = nil
	r.mutex.Unlock()

	if coordinator != nil {
		coordinator.Close()
	}
	logger.Log.Infow("match closed", "match_id", matchID)
	return true, nil
}

// Get returns a copy of one match.
func (r *Registry) Get(matchID string) (Info, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	m, exists := r.index[matchID]
	if !exists {
		return Info{}, false
	}
	return m.info(), true
}

// List returns copies of all live matches in creation order.
func (r *Registry) List() []Info {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	infos := make([]Info, 0, len(r.matches))
	for _, m := range r.matches {
		infos = append(infos, m.info())
	}
	return infos
}

// Players returns the players of a match in seat order.
func (r *Registry) Players(matchID string) ([]Player, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	m, exists := r.index[matchID]
	if !exists {
		return nil, false
	}
	return m.players(), true
}

// SeatOf returns the seat a player holds in a match, or NoSeat.
func (r *Registry) SeatOf(matchID, playerID string) int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	m, exists := r.index[matchID]
	if !exists {
		return NoSeat
	}
	if i := m.indexOf(playerID); i >= 0 {
		return m.seats[i].Index
	}
	return NoSeat
}

// Count returns the number of live matches.
func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.index)
}

// IDs returns the live match ids in creation order.
func (r *Registry) IDs() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ids := make([]string, 0, len(r.matches))
	for _, m := range r.matches {
		ids = append(ids, m.ID)
	}
	return ids
}
