package state

import (
	"errors"
	"sync"
)

type StateMachine interface {
	ChangeState(state State) error
	GetCurrentState() State
	AddTransition(from, to string, condition func() bool) error
}

type State interface {
	OnEnter()
	OnExit()
	OnUpdate()
	GetID() string
	HandleAction(player Player, actionData []byte) error
}

var (
	// ErrTransitionNotAllowed is returned when a guard rejects a transition.
	ErrTransitionNotAllowed = errors.New("state transition not allowed")
	ErrUnknownAction        = errors.New("unknown action")
	ErrNotYourTurn          = errors.New("not your turn")
)

type BaseStateMachine struct {
	currentState State
	transitions  map[string]map[string]func() bool // from -> to -> guard
	mutex        sync.RWMutex
}

func NewBaseStateMachine(initialState State) *BaseStateMachine {
	machine := &BaseStateMachine{
		currentState: initialState,
		transitions:  make(map[string]map[string]func() bool),
	}
	initialState.OnEnter()
	return machine
}

// ChangeState runs OnExit and OnEnter outside the machine lock so states may
// read the machine while switching.
func (sm *BaseStateMachine) ChangeState(newState State) error {
	sm.mutex.Lock()
	old := sm.currentState
	if conditions, exists := sm.transitions[old.GetID()]; exists {
		if condition, exists := conditions[newState.GetID()]; exists && condition != nil && !condition() {
			sm.mutex.Unlock()
			return ErrTransitionNotAllowed
		}
	}
	sm.currentState = newState
	sm.mutex.Unlock()

	old.OnExit()
	newState.OnEnter()
	return nil
}

func (sm *BaseStateMachine) GetCurrentState() State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

// AddTransition guards moves from one state id to another.
func (sm *BaseStateMachine) AddTransition(from, to string, condition func() bool) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if _, exists := sm.transitions[from]; !exists {
		sm.transitions[from] = make(map[string]func() bool)
	}
	sm.transitions[from][to] = condition
	return nil
}

// MatchStateBase provides no-op hooks for game states.
type MatchStateBase struct {
	ID    string
	Match MatchContext
}

func (s *MatchStateBase) GetID() string {
	return s.ID
}

func (s *MatchStateBase) OnEnter() {}

func (s *MatchStateBase) OnExit() {}

func (s *MatchStateBase) OnUpdate() {}

func (s *MatchStateBase) HandleAction(player Player, actionData []byte) error {
	return ErrUnknownAction
}
