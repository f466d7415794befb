// models/models.go
package models

import (
	"time"

	"github.com/wfunc/matchlobby/events"
)

// MatchEvent 比赛历史记录
type MatchEvent struct {
	ID       uint      `json:"id"`
	Type     string    `json:"type"`
	MatchID  string    `json:"match_id"`
	PlayerID string    `json:"player_id,omitempty"`
	Seat     int       `json:"seat,omitempty"`
	Public   bool      `json:"public,omitempty"`
	Players  []string  `json:"players,omitempty"`
	At       time.Time `json:"at"`
}

// FromEvent converts a lifecycle event into a history row.
func FromEvent(e events.Event) MatchEvent {
	return MatchEvent{
		Type:     string(e.Type),
		MatchID:  e.MatchID,
		PlayerID: e.PlayerID,
		Seat:     e.Seat,
		Public:   e.Public,
		Players:  append([]string(nil), e.Players...),
		At:       e.At,
	}
}

// MatchSummary 单场比赛的汇总
type MatchSummary struct {
	MatchID   string    `json:"match_id"`
	Public    bool      `json:"public"`
	HostedAt  time.Time `json:"hosted_at"`
	StartedAt time.Time `json:"started_at,omitempty"`
	ClosedAt  time.Time `json:"closed_at,omitempty"`
	Players   []string  `json:"players,omitempty"`
	Joins     int       `json:"joins"`
}

// Summarize folds the events of one match, oldest first, into a summary.
func Summarize(matchID string, history []MatchEvent) MatchSummary {
	summary := MatchSummary{MatchID: matchID}
	for _, e := range history {
		switch events.Type(e.Type) {
		case events.MatchHosted:
			summary.Public = e.Public
			summary.HostedAt = e.At
		case events.MatchJoined:
			summary.Joins++
		case events.MatchStarted:
			summary.StartedAt = e.At
			summary.Players = append([]string(nil), e.Players...)
		case events.MatchClosed:
			summary.ClosedAt = e.At
		}
	}
	return summary
}
