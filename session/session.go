// session/session.go
package session

import (
	"encoding/json"
	"sync"
	"time"

	"cirello.io/goherokuname"

	"github.com/wfunc/matchlobby/logger"
	"github.com/wfunc/matchlobby/match"
	"github.com/wfunc/matchlobby/matchid"
	"github.com/wfunc/matchlobby/network"
)

// Scene is where a player currently is.
type Scene int

const (
	SceneLobby Scene = iota
	SceneGame
)

// Session is one connected player. It is the registry's view of a player and
// the only way to reach that player's connection.
type Session struct {
	ID         string
	Name       string
	Conn       network.Connection
	CreatedAt  time.Time
	LastActive time.Time

	matchID string
	seat    int
	scene   Scene
	mutex   sync.RWMutex
}

var _ match.Player = (*Session)(nil)

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Name:       goherokuname.Haikunate(),
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
		seat:       match.NoSeat,
	}
}

func (s *Session) GetID() string {
	return s.ID
}

// MatchID returns the match this player belongs to, or "".
func (s *Session) MatchID() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.matchID
}

// Seat returns the player's seat, or match.NoSeat.
func (s *Session) Seat() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.seat
}

func (s *Session) Scene() Scene {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.scene
}

// Assign records a successful host or join. A start for the same match may
// already have landed; the game scene is kept in that case.
func (s *Session) Assign(matchID string, seat int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.scene == SceneGame && s.matchID == matchID {
		return
	}
	s.matchID = matchID
	s.seat = seat
	s.scene = SceneLobby
}

// Reset returns the player to the lobby with no match.
func (s *Session) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.matchID = ""
	s.seat = match.NoSeat
	s.scene = SceneLobby
}

// StartMatch switches the player to the game scene and tells its client.
// The seat comes from the registry, so it is correct even when the join
// that produced it has not been recorded on the session yet.
func (s *Session) StartMatch(matchID string, seat int) {
	s.mutex.Lock()
	s.matchID = matchID
	s.seat = seat
	s.scene = SceneGame
	s.mutex.Unlock()

	s.SendJSON(network.MsgTypeGameStart, network.GameStartNotice{
		MatchID:  matchID,
		GroupKey: matchid.GroupKey(matchID).String(),
		Seat:     seat,
	})
}

func (s *Session) Send(msgID uint16, data []byte) error {
	s.mutex.Lock()
	s.LastActive = time.Now()
	s.mutex.Unlock()
	return s.Conn.Send(msgID, data)
}

// SendJSON marshals v and sends it. Delivery failures are logged; the read
// loop notices a dead connection on its own.
func (s *Session) SendJSON(msgID uint16, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Log.Errorw("marshal outgoing message", "session_id", s.ID, "msg_id", msgID, "error", err)
		return
	}
	if err := s.Send(msgID, data); err != nil {
		logger.Log.Warnw("send to session failed", "session_id", s.ID, "msg_id", msgID, "error", err)
	}
}

// Touch marks the session as active.
func (s *Session) Touch() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.LastActive = time.Now()
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// All returns a snapshot of every session.
func (m *Manager) All() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

// InMatch returns the sessions currently assigned to matchID.
func (m *Manager) InMatch(matchID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.MatchID() == matchID {
			result = append(result, session)
		}
	}
	return result
}
