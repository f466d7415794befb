// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormMatchEvent 比赛历史表
type GormMatchEvent struct {
	gorm.Model
	Type     string    `gorm:"index;not null"`
	MatchID  string    `gorm:"index;not null"`
	PlayerID string    `gorm:"index"`
	Seat     int       `gorm:"default:0"`
	Public   bool      `gorm:"default:false"`
	Players  []string  `gorm:"serializer:json;type:jsonb"`
	At       time.Time `gorm:"column:occurred_at;index;not null"`
}

func (GormMatchEvent) TableName() string {
	return "match_events"
}

func NewGormMatchEvent(e MatchEvent) *GormMatchEvent {
	return &GormMatchEvent{
		Type:     e.Type,
		MatchID:  e.MatchID,
		PlayerID: e.PlayerID,
		Seat:     e.Seat,
		Public:   e.Public,
		Players:  e.Players,
		At:       e.At,
	}
}

func (g *GormMatchEvent) MatchEvent() MatchEvent {
	return MatchEvent{
		ID:       g.ID,
		Type:     g.Type,
		MatchID:  g.MatchID,
		PlayerID: g.PlayerID,
		Seat:     g.Seat,
		Public:   g.Public,
		Players:  g.Players,
		At:       g.At,
	}
}
