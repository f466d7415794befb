package match

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

// mockPlayer records StartMatch calls.
type mockPlayer struct {
	id      string
	mutex   sync.Mutex
	started []string
	seats   []int
}

func newMockPlayer(id string) *mockPlayer {
	return &mockPlayer{id: id}
}

func (p *mockPlayer) GetID() string { return p.id }

func (p *mockPlayer) StartMatch(matchID string, seat int) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.started = append(p.started, matchID)
	p.seats = append(p.seats, seat)
}

func (p *mockPlayer) startCount() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.started)
}

// mockCoordinator records the roster it was spawned with.
type mockCoordinator struct {
	matchID string
	seats   []Seat
	removed []string
	closed  bool
}

func (c *mockCoordinator) RemovePlayer(playerID string) { c.removed = append(c.removed, playerID) }

func (c *mockCoordinator) Close() { c.closed = true }

type spawnRecorder struct {
	spawned []*mockCoordinator
}

func (s *spawnRecorder) spawn(matchID string, seats []Seat) GameCoordinator {
	c := &mockCoordinator{matchID: matchID, seats: seats}
	s.spawned = append(s.spawned, c)
	return c
}

func TestRegistry_HostGame(t *testing.T) {
	r := NewRegistry(4, nil)

	for i, id := range []string{"AAAAA", "BBBBB", "CCCCC"} {
		seat, err := r.HostGame(id, newMockPlayer(fmt.Sprintf("p%d", i)), true)
		if err != nil {
			t.Fatalf("HostGame(%s) returned error: %v", id, err)
		}
		if seat != 1 {
			t.Errorf("Expected host seat 1, got %d", seat)
		}
		if r.Count() != i+1 {
			t.Errorf("Expected %d live matches, got %d", i+1, r.Count())
		}
	}
}

func TestRegistry_HostGame_DuplicateLeavesStateUnchanged(t *testing.T) {
	r := NewRegistry(4, nil)
	host := newMockPlayer("p1")
	if _, err := r.HostGame("ABCDE", host, true); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	before, _ := r.Get("ABCDE")

	for i := 0; i < 2; i++ {
		seat, err := r.HostGame("ABCDE", newMockPlayer("p2"), false)
		if !errors.Is(err, ErrDuplicateMatchID) {
			t.Fatalf("Expected ErrDuplicateMatchID, got %v", err)
		}
		if seat != NoSeat {
			t.Errorf("Expected seat %d on failure, got %d", NoSeat, seat)
		}
	}

	after, _ := r.Get("ABCDE")
	if r.Count() != 1 {
		t.Errorf("Expected 1 live match, got %d", r.Count())
	}
	if after.IsPublic != before.IsPublic || len(after.Seats) != len(before.Seats) {
		t.Errorf("Duplicate host mutated the match: before %+v after %+v", before, after)
	}
}

func TestRegistry_HostGame_InvalidID(t *testing.T) {
	r := NewRegistry(4, nil)
	for _, id := range []string{"", "abcde", "ABC", "ABCDEF"} {
		if _, err := r.HostGame(id, newMockPlayer("p1"), true); !errors.Is(err, ErrInvalidMatchID) {
			t.Errorf("HostGame(%q): expected ErrInvalidMatchID, got %v", id, err)
		}
	}
	if r.Count() != 0 {
		t.Errorf("Expected no matches, got %d", r.Count())
	}
}

func TestRegistry_ConcurrentHostSameID(t *testing.T) {
	r := NewRegistry(4, nil)

	var wg sync.WaitGroup
	var mutex sync.Mutex
	successes := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := r.HostGame("RACE1", newMockPlayer(fmt.Sprintf("p%d", i)), true); err == nil {
				mutex.Lock()
				successes++
				mutex.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("Expected exactly one successful host, got %d", successes)
	}
	if r.Count() != 1 {
		t.Errorf("Expected 1 live match, got %d", r.Count())
	}
}

func TestRegistry_Scenario_HostJoinSearch(t *testing.T) {
	r := NewRegistry(4, nil)
	p1, p2, p3, p4 := newMockPlayer("p1"), newMockPlayer("p2"), newMockPlayer("p3"), newMockPlayer("p4")

	if seat, err := r.HostGame("ABCDE", p1, true); err != nil || seat != 1 {
		t.Fatalf("Host: expected seat 1, got %d (%v)", seat, err)
	}
	if seat, err := r.JoinGame("ABCDE", p2); err != nil || seat != 2 {
		t.Fatalf("Join: expected seat 2, got %d (%v)", seat, err)
	}
	if seat, err := r.JoinGame("ZZZZZ", p3); !errors.Is(err, ErrMatchNotFound) || seat != NoSeat {
		t.Fatalf("Join unknown: expected ErrMatchNotFound and seat %d, got %d (%v)", NoSeat, seat, err)
	}
	id, seat, err := r.SearchGame(p4)
	if err != nil {
		t.Fatalf("Search: unexpected error %v", err)
	}
	if id != "ABCDE" || seat != 3 {
		t.Errorf("Search: expected ABCDE seat 3, got %s seat %d", id, seat)
	}
}

func TestRegistry_SearchGame_SkipsPrivate(t *testing.T) {
	r := NewRegistry(4, nil)
	r.HostGame("AAAAA", newMockPlayer("p1"), false)

	id, seat, err := r.SearchGame(newMockPlayer("p2"))
	if !errors.Is(err, ErrNoEligibleMatch) {
		t.Fatalf("Expected ErrNoEligibleMatch, got %v", err)
	}
	if id != "" || seat != NoSeat {
		t.Errorf("Expected empty id and seat %d, got %q seat %d", NoSeat, id, seat)
	}
	info, _ := r.Get("AAAAA")
	if len(info.Seats) != 1 {
		t.Errorf("Private match should not have been joined, has %d seats", len(info.Seats))
	}
}

func TestRegistry_SearchGame_SkipsFullAndStarted(t *testing.T) {
	r := NewRegistry(2, nil)
	r.HostGame("FULL1", newMockPlayer("a1"), true)
	r.JoinGame("FULL1", newMockPlayer("a2"))
	r.HostGame("LIVE1", newMockPlayer("b1"), true)
	r.StartGame("LIVE1")
	r.HostGame("OPEN1", newMockPlayer("c1"), true)

	id, seat, err := r.SearchGame(newMockPlayer("d1"))
	if err != nil {
		t.Fatalf("Search: unexpected error %v", err)
	}
	if id != "OPEN1" || seat != 2 {
		t.Errorf("Expected OPEN1 seat 2, got %s seat %d", id, seat)
	}

	for _, info := range r.List() {
		if info.ID == "FULL1" && len(info.Seats) != 2 {
			t.Errorf("Full match changed size to %d", len(info.Seats))
		}
		if info.ID == "LIVE1" && len(info.Seats) != 1 {
			t.Errorf("Started match changed size to %d", len(info.Seats))
		}
	}
}

func TestRegistry_SearchGame_CreationOrder(t *testing.T) {
	r := NewRegistry(4, nil)
	r.HostGame("FIRST", newMockPlayer("a"), true)
	r.HostGame("SECND", newMockPlayer("b"), true)

	id, _, err := r.SearchGame(newMockPlayer("c"))
	if err != nil || id != "FIRST" {
		t.Errorf("Expected search to pick the oldest match FIRST, got %q (%v)", id, err)
	}
}

func TestRegistry_JoinGame_Full(t *testing.T) {
	r := NewRegistry(2, nil)
	r.HostGame("ABCDE", newMockPlayer("p1"), true)

	if _, err := r.JoinGame("ABCDE", newMockPlayer("p2")); err != nil {
		t.Fatalf("Second player should fit: %v", err)
	}
	info, _ := r.Get("ABCDE")
	if !info.IsFull {
		t.Error("Expected match to be full at capacity")
	}

	seat, err := r.JoinGame("ABCDE", newMockPlayer("p3"))
	if !errors.Is(err, ErrMatchFull) || seat != NoSeat {
		t.Errorf("Expected ErrMatchFull and seat %d, got %d (%v)", NoSeat, seat, err)
	}
}

func TestRegistry_JoinGame_InProgress(t *testing.T) {
	r := NewRegistry(4, nil)
	r.HostGame("BBBBB", newMockPlayer("p1"), true)
	if err := r.StartGame("BBBBB"); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}

	seat, err := r.JoinGame("BBBBB", newMockPlayer("p2"))
	if !errors.Is(err, ErrMatchInProgress) || seat != NoSeat {
		t.Errorf("Expected ErrMatchInProgress and seat %d, got %d (%v)", NoSeat, seat, err)
	}
}

func TestRegistry_JoinGame_SamePlayerTwice(t *testing.T) {
	r := NewRegistry(4, nil)
	p1 := newMockPlayer("p1")
	r.HostGame("ABCDE", p1, true)

	if _, err := r.JoinGame("ABCDE", p1); !errors.Is(err, ErrAlreadyInMatch) {
		t.Errorf("Expected ErrAlreadyInMatch, got %v", err)
	}
}

func TestRegistry_StartGame(t *testing.T) {
	rec := &spawnRecorder{}
	r := NewRegistry(4, rec.spawn)
	p1, p2 := newMockPlayer("p1"), newMockPlayer("p2")
	r.HostGame("ABCDE", p1, true)
	r.JoinGame("ABCDE", p2)

	if err := r.StartGame("ABCDE"); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}

	if len(rec.spawned) != 1 {
		t.Fatalf("Expected one coordinator, got %d", len(rec.spawned))
	}
	c := rec.spawned[0]
	if len(c.seats) != 2 || c.seats[0].Player != p1 || c.seats[1].Player != p2 || c.seats[1].Index != 2 {
		t.Errorf("Coordinator roster not in seat order: %+v", c.seats)
	}
	if p1.startCount() != 1 || p2.startCount() != 1 {
		t.Errorf("Expected every player to be notified once, got %d and %d", p1.startCount(), p2.startCount())
	}
	if p1.seats[0] != 1 || p2.seats[0] != 2 {
		t.Errorf("Expected start notices for seats 1 and 2, got %v and %v", p1.seats, p2.seats)
	}

	if err := r.StartGame("ABCDE"); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("Expected ErrAlreadyStarted on second start, got %v", err)
	}
	if len(rec.spawned) != 1 {
		t.Errorf("Second start spawned another coordinator")
	}
	if p1.startCount() != 1 {
		t.Errorf("Second start notified players again")
	}
}

func TestRegistry_StartGame_NotFound(t *testing.T) {
	r := NewRegistry(4, nil)
	if err := r.StartGame("NOPE1"); !errors.Is(err, ErrMatchNotFound) {
		t.Errorf("Expected ErrMatchNotFound, got %v", err)
	}
}

func TestRegistry_PlayerDisconnected(t *testing.T) {
	rec := &spawnRecorder{}
	r := NewRegistry(4, rec.spawn)
	p1, p2 := newMockPlayer("p1"), newMockPlayer("p2")
	r.HostGame("ABCDE", p1, true)
	r.JoinGame("ABCDE", p2)
	r.StartGame("ABCDE")

	closed, err := r.PlayerDisconnected(p1, "ABCDE")
	if err != nil || closed {
		t.Fatalf("First leave: expected match to persist, closed=%v err=%v", closed, err)
	}
	if seat := r.SeatOf("ABCDE", "p2"); seat != 2 {
		t.Errorf("Expected p2 to keep seat 2, got %d", seat)
	}
	if rec.spawned[0].closed {
		t.Error("Coordinator closed while a player remains")
	}
	if removed := rec.spawned[0].removed; len(removed) != 1 || removed[0] != "p1" {
		t.Errorf("Expected the coordinator to drop p1, got %v", removed)
	}

	closed, err = r.PlayerDisconnected(p2, "ABCDE")
	if err != nil || !closed {
		t.Fatalf("Last leave: expected match to close, closed=%v err=%v", closed, err)
	}
	if _, exists := r.Get("ABCDE"); exists {
		t.Error("Match should be removed once empty")
	}
	if len(r.IDs()) != 0 || r.Count() != 0 {
		t.Errorf("Id index not cleared: %v", r.IDs())
	}
	if !rec.spawned[0].closed {
		t.Error("Coordinator should be closed with the match")
	}
}

func TestRegistry_PlayerDisconnected_Errors(t *testing.T) {
	r := NewRegistry(4, nil)
	r.HostGame("ABCDE", newMockPlayer("p1"), true)

	if _, err := r.PlayerDisconnected(newMockPlayer("p1"), "ZZZZZ"); !errors.Is(err, ErrMatchNotFound) {
		t.Errorf("Expected ErrMatchNotFound, got %v", err)
	}
	if _, err := r.PlayerDisconnected(newMockPlayer("p9"), "ABCDE"); !errors.Is(err, ErrPlayerNotInMatch) {
		t.Errorf("Expected ErrPlayerNotInMatch, got %v", err)
	}
}

func TestRegistry_SeatsStayUniqueAfterDeparture(t *testing.T) {
	r := NewRegistry(3, nil)
	p1, p2, p3, p4 := newMockPlayer("p1"), newMockPlayer("p2"), newMockPlayer("p3"), newMockPlayer("p4")
	r.HostGame("ABCDE", p1, true)
	r.JoinGame("ABCDE", p2)
	r.JoinGame("ABCDE", p3)

	r.PlayerDisconnected(p2, "ABCDE")
	info, _ := r.Get("ABCDE")
	if info.IsFull {
		t.Error("Match should accept players again after a departure")
	}

	seat, err := r.JoinGame("ABCDE", p4)
	if err != nil {
		t.Fatalf("Join after departure failed: %v", err)
	}
	if seat != 4 {
		t.Errorf("Expected a fresh seat 4, got %d", seat)
	}
	if r.SeatOf("ABCDE", "p1") != 1 || r.SeatOf("ABCDE", "p3") != 3 {
		t.Error("Existing seats changed after a join")
	}
}

func TestRegistry_IndexMatchesCollection(t *testing.T) {
	r := NewRegistry(2, nil)
	players := map[string][]*mockPlayer{}
	for _, id := range []string{"AAAAA", "BBBBB", "CCCCC"} {
		host, guest := newMockPlayer(id+"-h"), newMockPlayer(id+"-g")
		r.HostGame(id, host, true)
		r.JoinGame(id, guest)
		players[id] = []*mockPlayer{host, guest}
	}

	check := func() {
		t.Helper()
		ids := r.IDs()
		list := r.List()
		if len(ids) != len(list) || len(ids) != r.Count() {
			t.Fatalf("Index and collection out of sync: ids=%v list=%d count=%d", ids, len(list), r.Count())
		}
		for i, info := range list {
			if info.ID != ids[i] {
				t.Fatalf("Index order %v differs from collection at %d (%s)", ids, i, info.ID)
			}
			if len(info.Seats) == 0 {
				t.Fatalf("Match %s is live with no players", info.ID)
			}
		}
	}

	check()
	r.PlayerDisconnected(players["BBBBB"][0], "BBBBB")
	check()
	r.PlayerDisconnected(players["BBBBB"][1], "BBBBB")
	check()
	if got := r.IDs(); len(got) != 2 || got[0] != "AAAAA" || got[1] != "CCCCC" {
		t.Errorf("Expected [AAAAA CCCCC], got %v", got)
	}
}
