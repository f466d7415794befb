// Package lobby turns player commands into registry operations and sends
// each outcome back to the player who asked.
package lobby

import (
	"context"
	"errors"
	"time"

	"github.com/wfunc/matchlobby/broadcast"
	"github.com/wfunc/matchlobby/events"
	"github.com/wfunc/matchlobby/logger"
	"github.com/wfunc/matchlobby/match"
	"github.com/wfunc/matchlobby/network"
	"github.com/wfunc/matchlobby/session"
)

// Operation names used for metrics and logs.
const (
	OpHost   = "host"
	OpJoin   = "join"
	OpSearch = "search"
	OpStart  = "start"
	OpLeave  = "leave"
)

// Metrics observes every handled request.
type Metrics interface {
	ObserveRequest(op, outcome string, took time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) ObserveRequest(string, string, time.Duration) {}

// Service holds what every player's coordinator shares. There is one per
// server; it is passed to coordinators rather than looked up globally.
type Service struct {
	registry    *match.Registry
	sessions    *session.Manager
	broadcaster broadcast.Broadcaster
	publisher   events.Publisher
	metrics     Metrics
}

// Option configures a Service.
type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithBroadcaster(b broadcast.Broadcaster) Option {
	return func(s *Service) { s.broadcaster = b }
}

func NewService(registry *match.Registry, sessions *session.Manager, opts ...Option) *Service {
	s := &Service{
		registry:  registry,
		sessions:  sessions,
		publisher: events.Nop{},
		metrics:   nopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.broadcaster == nil {
		s.broadcaster = broadcast.NewMatchBroadcaster(registry, sessions)
	}
	return s
}

func (s *Service) Registry() *match.Registry {
	return s.registry
}

func (s *Service) Broadcaster() broadcast.Broadcaster {
	return s.broadcaster
}

func (s *Service) publish(e events.Event) {
	e.At = time.Now()
	if err := s.publisher.Publish(context.Background(), e); err != nil {
		logger.Log.Warnw("publish lobby event", "type", e.Type, "match_id", e.MatchID, "error", err)
	}
}

// roster lists the seated players of a match with their display names.
func (s *Service) roster(matchID string) []network.RosterEntry {
	info, exists := s.registry.Get(matchID)
	if !exists {
		return nil
	}
	entries := make([]network.RosterEntry, 0, len(info.Seats))
	for _, seat := range info.Seats {
		entry := network.RosterEntry{PlayerID: seat.PlayerID, Seat: seat.Index}
		if sess, ok := s.sessions.Get(seat.PlayerID); ok {
			entry.Name = sess.Name
		}
		entries = append(entries, entry)
	}
	return entries
}

// Outcome maps a registry or lobby error to its wire code.
func Outcome(err error) string {
	switch {
	case err == nil:
		return network.OutcomeOK
	case errors.Is(err, match.ErrDuplicateMatchID):
		return network.OutcomeDuplicateID
	case errors.Is(err, match.ErrMatchNotFound):
		return network.OutcomeMatchNotFound
	case errors.Is(err, match.ErrMatchFull):
		return network.OutcomeMatchFull
	case errors.Is(err, match.ErrMatchInProgress):
		return network.OutcomeMatchInProgress
	case errors.Is(err, match.ErrNoEligibleMatch):
		return network.OutcomeNoEligibleMatch
	case errors.Is(err, match.ErrAlreadyStarted):
		return network.OutcomeAlreadyStarted
	case errors.Is(err, match.ErrPlayerNotInMatch), errors.Is(err, ErrNotInMatch):
		return network.OutcomeNotInMatch
	case errors.Is(err, match.ErrAlreadyInMatch):
		return network.OutcomeAlreadyInMatch
	case errors.Is(err, ErrRequestPending):
		return network.OutcomeBusy
	default:
		return network.OutcomeBadRequest
	}
}
