// Package turn runs the game phase of a started match.
package turn

import (
	"errors"
	"sync"
	"time"

	"github.com/wfunc/matchlobby/logger"
	"github.com/wfunc/matchlobby/match"
	"github.com/wfunc/matchlobby/state"
)

var ErrCoordinatorNotFound = errors.New("no game running for match")

// Coordinator is spawned once per started match. It keeps its own roster so
// the game phase never reaches back into the registry.
type Coordinator struct {
	MatchID      string
	StateMachine state.StateMachine
	CreatedAt    time.Time
	seats        []match.Seat
	broadcaster  Broadcaster
	playerMutex  sync.RWMutex
	ticker       *time.Ticker
	closeChan    chan struct{}
	closeOnce    sync.Once
	onClose      func(matchID string)
}

// Options tune the game loop.
type Options struct {
	TickInterval time.Duration
	LoadingTicks int
}

func (o Options) withDefaults() Options {
	if o.TickInterval <= 0 {
		o.TickInterval = 100 * time.Millisecond
	}
	if o.LoadingTicks <= 0 {
		o.LoadingTicks = 100 // 10 seconds at 10fps
	}
	return o
}

// NewCoordinator registers seats in order and starts the game loop in the
// loading state.
func NewCoordinator(matchID string, seats []match.Seat, broadcaster Broadcaster, opts Options) *Coordinator {
	opts = opts.withDefaults()
	c := &Coordinator{
		MatchID:     matchID,
		CreatedAt:   time.Now(),
		broadcaster: broadcaster,
		closeChan:   make(chan struct{}),
	}
	for _, s := range seats {
		c.AddPlayer(s)
	}

	c.StateMachine = state.NewBaseStateMachine(state.NewLoadingState(c, opts.LoadingTicks))
	c.StateMachine.AddTransition(state.PlayingStateID, state.LoadingStateID, func() bool { return false })

	c.ticker = time.NewTicker(opts.TickInterval)
	go c.loop()
	return c
}

// --- state.MatchContext ---

func (c *Coordinator) GetMatchID() string {
	return c.MatchID
}

func (c *Coordinator) GetPlayers() []state.Player {
	c.playerMutex.RLock()
	defer c.playerMutex.RUnlock()

	players := make([]state.Player, len(c.seats))
	for i, s := range c.seats {
		players[i] = s.Player
	}
	return players
}

func (c *Coordinator) SeatOf(playerID string) int {
	c.playerMutex.RLock()
	defer c.playerMutex.RUnlock()

	for _, s := range c.seats {
		if s.Player.GetID() == playerID {
			return s.Index
		}
	}
	return match.NoSeat
}

func (c *Coordinator) ChangeState(newState state.State) error {
	return c.StateMachine.ChangeState(newState)
}

func (c *Coordinator) Broadcast(msgID uint16, data []byte) error {
	if c.broadcaster == nil {
		return nil
	}
	return c.broadcaster.BroadcastToMatch(c.MatchID, msgID, data)
}

// --- match.GameCoordinator ---

// AddPlayer registers a participant, keeping seat order.
func (c *Coordinator) AddPlayer(seat match.Seat) {
	c.playerMutex.Lock()
	defer c.playerMutex.Unlock()

	i := len(c.seats)
	for i > 0 && c.seats[i-1].Index > seat.Index {
		i--
	}
	c.seats = append(c.seats, match.Seat{})
	copy(c.seats[i+1:], c.seats[i:])
	c.seats[i] = seat
}

func (c *Coordinator) RemovePlayer(playerID string) {
	c.playerMutex.Lock()
	defer c.playerMutex.Unlock()

	for i, s := range c.seats {
		if s.Player.GetID() == playerID {
			c.seats = append(c.seats[:i], c.seats[i+1:]...)
			return
		}
	}
}

// HandleAction forwards a participant's game command to the current state.
func (c *Coordinator) HandleAction(player state.Player, actionData []byte) error {
	current := c.StateMachine.GetCurrentState()
	if current == nil {
		return ErrCoordinatorNotFound
	}
	return current.HandleAction(player, actionData)
}

// Phase returns the id of the current game state.
func (c *Coordinator) Phase() string {
	return c.StateMachine.GetCurrentState().GetID()
}

func (c *Coordinator) loop() {
	for {
		select {
		case <-c.ticker.C:
			c.Update()
		case <-c.closeChan:
			c.ticker.Stop()
			return
		}
	}
}

// Update advances the current state by one tick.
func (c *Coordinator) Update() {
	if current := c.StateMachine.GetCurrentState(); current != nil {
		current.OnUpdate()
	}
}

// Close stops the game loop. It is safe to call more than once.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		close(c.closeChan)
		logger.Log.Infow("game coordinator closed", "match_id", c.MatchID)
		if c.onClose != nil {
			c.onClose(c.MatchID)
		}
	})
}

// Manager tracks the coordinators of running matches.
type Manager struct {
	coordinators map[string]*Coordinator
	broadcaster  Broadcaster
	opts         Options
	mutex        sync.RWMutex
}

func NewManager(broadcaster Broadcaster, opts Options) *Manager {
	return &Manager{
		coordinators: make(map[string]*Coordinator),
		broadcaster:  broadcaster,
		opts:         opts,
	}
}

// SetBroadcaster wires the broadcaster after construction, since the
// broadcaster itself depends on the registry that spawns coordinators.
func (m *Manager) SetBroadcaster(broadcaster Broadcaster) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.broadcaster = broadcaster
}

// Spawn is a match.CoordinatorFactory.
func (m *Manager) Spawn(matchID string, seats []match.Seat) match.GameCoordinator {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	c := NewCoordinator(matchID, seats, m.broadcaster, m.opts)
	c.onClose = func(string) { m.remove(c) }
	m.coordinators[matchID] = c
	return c
}

// remove forgets c unless its match id already belongs to a newer game.
func (m *Manager) remove(c *Coordinator) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.coordinators[c.MatchID] == c {
		delete(m.coordinators, c.MatchID)
	}
}

func (m *Manager) Get(matchID string) (*Coordinator, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	c, exists := m.coordinators[matchID]
	return c, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.coordinators)
}

// HandleAction routes a game command to the coordinator of matchID.
func (m *Manager) HandleAction(matchID string, player state.Player, actionData []byte) error {
	c, exists := m.Get(matchID)
	if !exists {
		return ErrCoordinatorNotFound
	}
	return c.HandleAction(player, actionData)
}

// CloseAll stops every running game loop.
func (m *Manager) CloseAll() {
	m.mutex.RLock()
	all := make([]*Coordinator, 0, len(m.coordinators))
	for _, c := range m.coordinators {
		all = append(all, c)
	}
	m.mutex.RUnlock()

	for _, c := range all {
		c.Close()
	}
}
