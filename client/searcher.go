package client

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/wfunc/matchlobby/logger"
	"github.com/wfunc/matchlobby/network"
	"github.com/wfunc/matchlobby/timer"
)

// DefaultSearchInterval is the gap between search attempts.
const DefaultSearchInterval = time.Second

// Sender issues one lobby command.
type Sender interface {
	Send(msgID uint16, req network.Request) (string, error)
}

// Searcher keeps asking the server for a public match until one is found or
// the search is cancelled. At most one attempt is outstanding at a time; a
// tick that finds an attempt still in flight does nothing.
type Searcher struct {
	sender   Sender
	timers   *timer.TimerManager
	interval time.Duration
	onFound  func(network.Response)

	active   *atomic.Bool
	attempts *atomic.Int64

	mutex       sync.Mutex
	timerID     int64
	outstanding string // request id of the attempt in flight
}

func NewSearcher(sender Sender, timers *timer.TimerManager, interval time.Duration, onFound func(network.Response)) *Searcher {
	if interval <= 0 {
		interval = DefaultSearchInterval
	}
	if onFound == nil {
		onFound = func(network.Response) {}
	}
	return &Searcher{
		sender:   sender,
		timers:   timers,
		interval: interval,
		onFound:  onFound,
		active:   atomic.NewBool(false),
		attempts: atomic.NewInt64(0),
	}
}

// Start begins searching. It reports false if a search is already running.
func (s *Searcher) Start() bool {
	if !s.active.CAS(false, true) {
		return false
	}
	s.mutex.Lock()
	s.timerID = s.timers.AddTimer(0, s.interval, s.tick)
	s.mutex.Unlock()
	logger.Log.Debugw("search started", "interval", s.interval)
	return true
}

// Cancel stops searching. No further attempts are sent; a reply to an
// attempt already in flight is still reported if it seated the player.
func (s *Searcher) Cancel() {
	if !s.active.CAS(true, false) {
		return
	}
	s.stopTimer()
	logger.Log.Debugw("search cancelled", "attempts", s.attempts.Load())
}

func (s *Searcher) Active() bool {
	return s.active.Load()
}

// Attempts returns how many search commands have been sent.
func (s *Searcher) Attempts() int64 {
	return s.attempts.Load()
}

func (s *Searcher) stopTimer() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.timerID != 0 {
		s.timers.RemoveTimer(s.timerID)
		s.timerID = 0
	}
}

func (s *Searcher) tick() {
	if !s.active.Load() {
		return
	}
	id := uuid.NewString()
	if !s.claim("", id) {
		return
	}
	s.attempts.Inc()
	if _, err := s.sender.Send(network.MsgTypeSearchGame, network.Request{RequestID: id}); err != nil {
		logger.Log.Warnw("search attempt failed", "error", err)
		s.claim(id, "")
	}
}

// claim swaps the outstanding request id if it still equals old.
func (s *Searcher) claim(old, next string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.outstanding != old {
		return false
	}
	s.outstanding = next
	return true
}

// HandleResponse consumes the reply to an outstanding attempt. It is a
// ResponseHandler and ignores every other reply.
func (s *Searcher) HandleResponse(msgID uint16, resp network.Response) {
	if msgID != network.MsgTypeSearchGame || resp.RequestID == "" {
		return
	}
	if !s.claim(resp.RequestID, "") {
		return
	}
	if !resp.Success {
		return
	}
	if s.active.CAS(true, false) {
		s.stopTimer()
	}
	logger.Log.Infow("search found a match", "match_id", resp.MatchID, "seat", resp.Seat)
	s.onFound(resp)
}
