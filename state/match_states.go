package state

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/wfunc/matchlobby/logger"
	"github.com/wfunc/matchlobby/network"
)

const (
	LoadingStateID = "loading"
	PlayingStateID = "playing"
)

const (
	ActionReady   = "ready"
	ActionEndTurn = "end_turn"
)

func decodeAction(actionData []byte) (network.TurnAction, error) {
	var action network.TurnAction
	if err := json.Unmarshal(actionData, &action); err != nil {
		return action, fmt.Errorf("failed to unmarshal action data: %w", err)
	}
	return action, nil
}

// LoadingState waits for every participant to finish loading the game scene,
// or for the tick budget to run out, then starts play.
type LoadingState struct {
	MatchStateBase
	ticks int
	ready map[string]bool
	done  bool
	mutex sync.Mutex
}

// NewLoadingState waits at most ticks updates before starting play.
func NewLoadingState(match MatchContext, ticks int) *LoadingState {
	return &LoadingState{
		MatchStateBase: MatchStateBase{ID: LoadingStateID, Match: match},
		ticks:          ticks,
		ready:          make(map[string]bool),
	}
}

func (s *LoadingState) OnEnter() {
	logger.Log.Infow("match loading", "match_id", s.Match.GetMatchID())
}

func (s *LoadingState) OnUpdate() {
	s.mutex.Lock()
	s.ticks--
	expired := s.ticks <= 0
	s.mutex.Unlock()

	if expired || s.allReady() {
		s.begin()
	}
}

func (s *LoadingState) HandleAction(player Player, actionData []byte) error {
	action, err := decodeAction(actionData)
	if err != nil {
		return err
	}
	if action.Type != ActionReady {
		return ErrUnknownAction
	}

	s.mutex.Lock()
	s.ready[player.GetID()] = true
	s.mutex.Unlock()

	if s.allReady() {
		s.begin()
	}
	return nil
}

func (s *LoadingState) allReady() bool {
	players := s.Match.GetPlayers()
	if len(players) == 0 {
		return false
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, p := range players {
		if !s.ready[p.GetID()] {
			return false
		}
	}
	return true
}

func (s *LoadingState) begin() {
	s.mutex.Lock()
	if s.done {
		s.mutex.Unlock()
		return
	}
	s.done = true
	s.mutex.Unlock()

	if err := s.Match.ChangeState(NewPlayingState(s.Match)); err != nil {
		logger.Log.Errorw("start play", "match_id", s.Match.GetMatchID(), "error", err)
	}
}

// PlayingState rotates the turn through participants in seat order.
type PlayingState struct {
	MatchStateBase
	turn        int64
	currentID   string
	currentSeat int
	mutex       sync.Mutex
}

func NewPlayingState(match MatchContext) *PlayingState {
	return &PlayingState{
		MatchStateBase: MatchStateBase{ID: PlayingStateID, Match: match},
	}
}

func (s *PlayingState) OnEnter() {
	logger.Log.Infow("match playing", "match_id", s.Match.GetMatchID())
	s.advance(0)
}

// OnUpdate passes the turn on when its holder has left.
func (s *PlayingState) OnUpdate() {
	s.mutex.Lock()
	currentID, seat := s.currentID, s.currentSeat
	s.mutex.Unlock()

	if currentID != "" && s.Match.SeatOf(currentID) < 0 {
		s.advance(seat)
	}
}

func (s *PlayingState) HandleAction(player Player, actionData []byte) error {
	action, err := decodeAction(actionData)
	if err != nil {
		return err
	}
	if action.Type != ActionEndTurn {
		return ErrUnknownAction
	}

	s.mutex.Lock()
	currentID, seat := s.currentID, s.currentSeat
	s.mutex.Unlock()

	if player.GetID() != currentID {
		return ErrNotYourTurn
	}
	s.advance(seat)
	return nil
}

// Current returns the player holding the turn and the turn number.
func (s *PlayingState) Current() (string, int64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.currentID, s.turn
}

// advance hands the turn to the first participant seated after afterSeat,
// wrapping to the lowest seat.
func (s *PlayingState) advance(afterSeat int) {
	players := s.Match.GetPlayers()
	if len(players) == 0 {
		return
	}

	next := players[0]
	for _, p := range players {
		if s.Match.SeatOf(p.GetID()) > afterSeat {
			next = p
			break
		}
	}
	nextSeat := s.Match.SeatOf(next.GetID())

	s.mutex.Lock()
	s.turn++
	s.currentID = next.GetID()
	s.currentSeat = nextSeat
	notice := network.TurnNotice{
		MatchID:  s.Match.GetMatchID(),
		PlayerID: s.currentID,
		Seat:     nextSeat,
		Turn:     s.turn,
	}
	s.mutex.Unlock()

	data, err := json.Marshal(notice)
	if err != nil {
		logger.Log.Errorw("marshal turn notice", "error", err)
		return
	}
	if err := s.Match.Broadcast(network.MsgTypeTurnChanged, data); err != nil {
		logger.Log.Warnw("broadcast turn", "match_id", notice.MatchID, "error", err)
	}
}
