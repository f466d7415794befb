package persistence

import (
	"context"
	"sync"

	"github.com/wfunc/matchlobby/models"
)

// MemoryHistory keeps the newest events in memory. It is used when no
// database is configured.
type MemoryHistory struct {
	events   []models.MatchEvent
	capacity int
	nextID   uint
	mutex    sync.RWMutex
}

func NewMemoryHistory(capacity int) *MemoryHistory {
	if capacity <= 0 {
		capacity = 10000
	}
	return &MemoryHistory{capacity: capacity, nextID: 1}
}

func (m *MemoryHistory) Record(ctx context.Context, e models.MatchEvent) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	e.ID = m.nextID
	m.nextID++
	m.events = append(m.events, e)
	if over := len(m.events) - m.capacity; over > 0 {
		m.events = append(m.events[:0], m.events[over:]...)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (m *MemoryHistory) Recent(ctx context.Context, limit int) ([]models.MatchEvent, error) {
	limit = clampLimit(limit)

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]models.MatchEvent, 0, limit)
	for i := len(m.events) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, m.events[i])
	}
	return result, nil
}

// ByMatch returns the events of one match, oldest first.
func (m *MemoryHistory) ByMatch(ctx context.Context, matchID string) ([]models.MatchEvent, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []models.MatchEvent
	for _, e := range m.events {
		if e.MatchID == matchID {
			result = append(result, e)
		}
	}
	if len(result) == 0 {
		return nil, ErrRecordNotFound
	}
	return result, nil
}

func (m *MemoryHistory) Close() error {
	return nil
}
