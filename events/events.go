// Package events carries match lifecycle notifications out of the lobby.
package events

import (
	"context"
	"time"

	"github.com/wfunc/matchlobby/logger"
)

// Type names a lifecycle step.
type Type string

const (
	MatchHosted  Type = "match.hosted"
	MatchJoined  Type = "match.joined"
	MatchLeft    Type = "match.left"
	MatchStarted Type = "match.started"
	MatchClosed  Type = "match.closed"
)

// Event is one lifecycle step of one match.
type Event struct {
	Type     Type      `json:"type"`
	MatchID  string    `json:"match_id"`
	PlayerID string    `json:"player_id,omitempty"`
	Seat     int       `json:"seat,omitempty"`
	Public   bool      `json:"public,omitempty"`
	Players  []string  `json:"players,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher receives lifecycle events. Implementations must not block for
// long; the lobby publishes inline.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to several publishers. A failing publisher is
// logged and does not stop the others.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			logger.Log.Warnw("publish event", "type", e.Type, "match_id", e.MatchID, "error", err)
		}
	}
	return nil
}
