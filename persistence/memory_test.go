package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/wfunc/matchlobby/models"
)

func TestMemoryHistory_RecentNewestFirst(t *testing.T) {
	h := NewMemoryHistory(0)
	ctx := context.Background()
	for _, id := range []string{"AAAAA", "BBBBB", "CCCCC"} {
		if err := h.Record(ctx, models.MatchEvent{Type: "match.hosted", MatchID: id, At: time.Now()}); err != nil {
			t.Fatal(err)
		}
	}

	recent, err := h.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 || recent[0].MatchID != "CCCCC" || recent[1].MatchID != "BBBBB" {
		t.Errorf("Unexpected recent events: %+v", recent)
	}
	if recent[0].ID != 3 {
		t.Errorf("Expected ids to be assigned in order, got %d", recent[0].ID)
	}
}

func TestMemoryHistory_Capacity(t *testing.T) {
	h := NewMemoryHistory(2)
	ctx := context.Background()
	for _, id := range []string{"AAAAA", "BBBBB", "CCCCC"} {
		h.Record(ctx, models.MatchEvent{Type: "match.hosted", MatchID: id})
	}

	if _, err := h.ByMatch(ctx, "AAAAA"); err != ErrRecordNotFound {
		t.Errorf("Oldest event should be evicted, got %v", err)
	}
	recent, _ := h.Recent(ctx, 10)
	if len(recent) != 2 {
		t.Errorf("Expected 2 events kept, got %d", len(recent))
	}
}

func TestMemoryHistory_ByMatch(t *testing.T) {
	h := NewMemoryHistory(0)
	ctx := context.Background()
	h.Record(ctx, models.MatchEvent{Type: "match.hosted", MatchID: "ABCDE"})
	h.Record(ctx, models.MatchEvent{Type: "match.hosted", MatchID: "ZZZZZ"})
	h.Record(ctx, models.MatchEvent{Type: "match.joined", MatchID: "ABCDE", PlayerID: "p2"})

	events, err := h.ByMatch(ctx, "ABCDE")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || events[0].Type != "match.hosted" || events[1].PlayerID != "p2" {
		t.Errorf("Unexpected match events: %+v", events)
	}
	if _, err := h.ByMatch(ctx, "QQQQQ"); err != ErrRecordNotFound {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
}
