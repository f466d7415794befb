package events

import (
	"context"
	"errors"
	"testing"
)

type recordingPublisher struct {
	events []Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, e Event) error {
	r.events = append(r.events, e)
	return r.err
}

func TestMulti_FansOutPastFailures(t *testing.T) {
	failing := &recordingPublisher{err: errors.New("down")}
	ok := &recordingPublisher{}

	m := Multi{failing, ok}
	if err := m.Publish(context.Background(), Event{Type: MatchHosted, MatchID: "ABCDE"}); err != nil {
		t.Fatalf("Multi should swallow publisher errors, got %v", err)
	}
	if len(failing.events) != 1 || len(ok.events) != 1 {
		t.Errorf("Expected both publishers to see the event, got %d and %d", len(failing.events), len(ok.events))
	}
}

func TestNATSPublisher_Subject(t *testing.T) {
	p := &NATSPublisher{prefix: "lobby"}
	if got := p.Subject(MatchStarted); got != "lobby.match.started" {
		t.Errorf("Expected lobby.match.started, got %s", got)
	}
	p.prefix = ""
	if got := p.Subject(MatchClosed); got != "match.closed" {
		t.Errorf("Expected match.closed, got %s", got)
	}
}
