package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wfunc/matchlobby/events"
	"github.com/wfunc/matchlobby/models"
	"github.com/wfunc/matchlobby/persistence"
)

type failingStore struct {
	persistence.HistoryStore
}

func (failingStore) Record(context.Context, models.MatchEvent) error {
	return errors.New("database down")
}

func TestHistoryService_PublishAndSummary(t *testing.T) {
	svc := NewHistoryService(persistence.NewMemoryHistory(0))
	ctx := context.Background()
	now := time.Now()

	for _, e := range []events.Event{
		{Type: events.MatchHosted, MatchID: "ABCDE", PlayerID: "p1", Seat: 1, Public: true, At: now},
		{Type: events.MatchJoined, MatchID: "ABCDE", PlayerID: "p2", Seat: 2, At: now},
		{Type: events.MatchStarted, MatchID: "ABCDE", Players: []string{"p1", "p2"}, At: now},
	} {
		if err := svc.Publish(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	recent, err := svc.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 3 || recent[0].Type != string(events.MatchStarted) {
		t.Errorf("Unexpected recent events: %+v", recent)
	}

	summary, err := svc.Summary(ctx, "ABCDE")
	if err != nil {
		t.Fatal(err)
	}
	if !summary.Public || summary.Joins != 1 || len(summary.Players) != 2 {
		t.Errorf("Unexpected summary: %+v", summary)
	}

	if _, err := svc.Summary(ctx, "ZZZZZ"); err != persistence.ErrRecordNotFound {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
}

func TestHistoryService_PublishError(t *testing.T) {
	svc := NewHistoryService(failingStore{})
	if err := svc.Publish(context.Background(), events.Event{Type: events.MatchHosted}); err == nil {
		t.Error("Expected the store error to be returned")
	}
}
