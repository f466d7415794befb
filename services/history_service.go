// services/history_service.go
package services

import (
	"context"

	"github.com/pkg/errors"

	"github.com/wfunc/matchlobby/events"
	"github.com/wfunc/matchlobby/logger"
	"github.com/wfunc/matchlobby/models"
	"github.com/wfunc/matchlobby/persistence"
)

// HistoryService writes match lifecycle events to a HistoryStore and answers
// history queries. It is an events.Publisher.
type HistoryService struct {
	store persistence.HistoryStore
}

var _ events.Publisher = (*HistoryService)(nil)

func NewHistoryService(store persistence.HistoryStore) *HistoryService {
	return &HistoryService{store: store}
}

// Publish records one event.
func (s *HistoryService) Publish(ctx context.Context, e events.Event) error {
	if err := s.store.Record(ctx, models.FromEvent(e)); err != nil {
		logger.Log.Warnw("record match history", "type", e.Type, "match_id", e.MatchID, "error", err)
		return errors.Wrap(err, "record match history")
	}
	return nil
}

// Recent returns the newest events, newest first.
func (s *HistoryService) Recent(ctx context.Context, limit int) ([]models.MatchEvent, error) {
	return s.store.Recent(ctx, limit)
}

// Summary folds every recorded event of one match.
func (s *HistoryService) Summary(ctx context.Context, matchID string) (models.MatchSummary, error) {
	history, err := s.store.ByMatch(ctx, matchID)
	if err != nil {
		return models.MatchSummary{}, err
	}
	return models.Summarize(matchID, history), nil
}

func (s *HistoryService) Close() error {
	return s.store.Close()
}
