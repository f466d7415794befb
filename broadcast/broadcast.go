// broadcast/broadcast.go
package broadcast

import (
	"errors"

	"github.com/wfunc/matchlobby/logger"
	"github.com/wfunc/matchlobby/match"
	"github.com/wfunc/matchlobby/session"
)

var (
	ErrMatchNotFound = errors.New("match not found")
)

type Broadcaster interface {
	BroadcastToMatch(matchID string, msgID uint16, data []byte) error
	BroadcastToMatchExcept(matchID, exceptID string, msgID uint16, data []byte) error
	BroadcastToAll(msgID uint16, data []byte) error
}

// MatchBroadcaster resolves match members through the registry and reaches
// them through their sessions.
type MatchBroadcaster struct {
	registry       *match.Registry
	sessionManager *session.Manager
}

func NewMatchBroadcaster(registry *match.Registry, sessionManager *session.Manager) *MatchBroadcaster {
	return &MatchBroadcaster{
		registry:       registry,
		sessionManager: sessionManager,
	}
}

func (b *MatchBroadcaster) BroadcastToMatch(matchID string, msgID uint16, data []byte) error {
	return b.BroadcastToMatchExcept(matchID, "", msgID, data)
}

// BroadcastToMatchExcept skips the member with id exceptID.
func (b *MatchBroadcaster) BroadcastToMatchExcept(matchID, exceptID string, msgID uint16, data []byte) error {
	players, exists := b.registry.Players(matchID)
	if !exists {
		return ErrMatchNotFound
	}

	for _, p := range players {
		if p.GetID() == exceptID {
			continue
		}
		s, ok := b.sessionManager.Get(p.GetID())
		if !ok {
			continue
		}
		if err := s.Send(msgID, data); err != nil {
			logger.Log.Warnw("broadcast send failed", "match_id", matchID, "session_id", s.ID, "error", err)
		}
	}
	return nil
}

func (b *MatchBroadcaster) BroadcastToAll(msgID uint16, data []byte) error {
	for _, s := range b.sessionManager.All() {
		if err := s.Send(msgID, data); err != nil {
			logger.Log.Warnw("broadcast send failed", "session_id", s.ID, "error", err)
		}
	}
	return nil
}
