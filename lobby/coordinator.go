package lobby

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/matchlobby/events"
	"github.com/wfunc/matchlobby/logger"
	"github.com/wfunc/matchlobby/match"
	"github.com/wfunc/matchlobby/matchid"
	"github.com/wfunc/matchlobby/network"
	"github.com/wfunc/matchlobby/session"
)

var (
	ErrNotInMatch     = errors.New("session is not in a match")
	ErrRequestPending = errors.New("request already pending")
)

// Coordinator is the lobby side of one connected player. Every command it
// handles produces exactly one Response, sent only to its own session.
type Coordinator struct {
	svc     *Service
	session *session.Session
	pending map[string]string // requestID -> op
	mutex   sync.Mutex
}

func (s *Service) NewCoordinator(sess *session.Session) *Coordinator {
	return &Coordinator{
		svc:     s,
		session: sess,
		pending: make(map[string]string),
	}
}

func (c *Coordinator) Session() *session.Session {
	return c.session
}

// Handle decodes a lobby command and runs it. It reports false for message
// ids that are not lobby commands. Handle is safe for concurrent use.
func (c *Coordinator) Handle(msgID uint16, data []byte) bool {
	var req network.Request
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			switch msgID {
			case network.MsgTypeHostGame, network.MsgTypeJoinGame, network.MsgTypeSearchGame,
				network.MsgTypeStartGame, network.MsgTypeLeaveGame:
				c.reply(msgID, network.Response{Outcome: network.OutcomeBadRequest, Seat: match.NoSeat})
				return true
			}
			return false
		}
	}

	switch msgID {
	case network.MsgTypeHostGame:
		c.HostGame(req)
	case network.MsgTypeJoinGame:
		c.JoinGame(req)
	case network.MsgTypeSearchGame:
		c.SearchGame(req)
	case network.MsgTypeStartGame:
		c.StartGame(req)
	case network.MsgTypeLeaveGame:
		c.LeaveGame(req)
	default:
		return false
	}
	return true
}

// begin records a request as outstanding. A request id already in flight, or
// a second search while one is outstanding, is refused. The server drives a
// coordinator from one read loop, so the table only refuses work when a
// caller runs Handle for the same player from several goroutines.
func (c *Coordinator) begin(requestID, op string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.pending[requestID]; exists {
		return ErrRequestPending
	}
	if op == OpSearch {
		for _, pendingOp := range c.pending {
			if pendingOp == OpSearch {
				return ErrRequestPending
			}
		}
	}
	c.pending[requestID] = op
	return nil
}

func (c *Coordinator) end(requestID string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.pending, requestID)
}

// Pending returns the number of outstanding requests.
func (c *Coordinator) Pending() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.pending)
}

// run wraps one operation with request correlation, metrics and the
// directed reply.
func (c *Coordinator) run(op string, msgID uint16, req network.Request, fn func() network.Response) network.Response {
	started := time.Now()
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	var resp network.Response
	if err := c.begin(req.RequestID, op); err != nil {
		resp = failure(err)
	} else {
		resp = fn()
		c.end(req.RequestID)
	}
	resp.RequestID = req.RequestID

	c.svc.metrics.ObserveRequest(op, resp.Outcome, time.Since(started))
	c.reply(msgID, resp)
	return resp
}

func (c *Coordinator) reply(msgID uint16, resp network.Response) {
	c.session.SendJSON(msgID, resp)
}

func failure(err error) network.Response {
	return network.Response{Outcome: Outcome(err), Seat: match.NoSeat}
}

func (c *Coordinator) seated(matchID string, seat int) network.Response {
	return network.Response{
		Success:  true,
		Outcome:  network.OutcomeOK,
		MatchID:  matchID,
		Seat:     seat,
		GroupKey: matchid.GroupKey(matchID).String(),
		Roster:   c.svc.roster(matchID),
	}
}

// HostGame opens a match with this player in seat 1. A missing match id is
// generated; a live one is refused and not retried.
func (c *Coordinator) HostGame(req network.Request) network.Response {
	return c.run(OpHost, network.MsgTypeHostGame, req, func() network.Response {
		if c.session.MatchID() != "" {
			return failure(match.ErrAlreadyInMatch)
		}
		id := matchid.Normalize(req.MatchID)
		if id == "" {
			id = matchid.GetRandomMatchID()
		}

		seat, err := c.svc.registry.HostGame(id, c.session, req.Public)
		if err != nil {
			logger.Log.Infow("host failed", "session_id", c.session.ID, "match_id", id, "error", err)
			resp := failure(err)
			resp.MatchID = id
			return resp
		}

		c.session.Assign(id, seat)
		c.svc.publish(events.Event{Type: events.MatchHosted, MatchID: id, PlayerID: c.session.ID, Seat: seat, Public: req.Public})
		return c.seated(id, seat)
	})
}

// JoinGame takes a seat in the match named by the request.
func (c *Coordinator) JoinGame(req network.Request) network.Response {
	return c.run(OpJoin, network.MsgTypeJoinGame, req, func() network.Response {
		if c.session.MatchID() != "" {
			return failure(match.ErrAlreadyInMatch)
		}
		id := matchid.Normalize(req.MatchID)

		seat, err := c.svc.registry.JoinGame(id, c.session)
		if err != nil {
			logger.Log.Infow("join failed", "session_id", c.session.ID, "match_id", id, "error", err)
			resp := failure(err)
			resp.MatchID = id
			return resp
		}

		c.joined(id, seat)
		return c.seated(id, seat)
	})
}

// SearchGame takes a seat in the oldest open public match, if any.
func (c *Coordinator) SearchGame(req network.Request) network.Response {
	return c.run(OpSearch, network.MsgTypeSearchGame, req, func() network.Response {
		if c.session.MatchID() != "" {
			return failure(match.ErrAlreadyInMatch)
		}

		id, seat, err := c.svc.registry.SearchGame(c.session)
		if err != nil {
			return failure(err)
		}

		c.joined(id, seat)
		return c.seated(id, seat)
	})
}

func (c *Coordinator) joined(matchID string, seat int) {
	c.session.Assign(matchID, seat)
	c.svc.publish(events.Event{Type: events.MatchJoined, MatchID: matchID, PlayerID: c.session.ID, Seat: seat})
	c.notifyRoster(matchID, network.MsgTypePlayerJoined, seat)
}

// StartGame starts the match this player belongs to. Every member is moved
// to the game by the registry; only the caller gets the Response.
func (c *Coordinator) StartGame(req network.Request) network.Response {
	return c.run(OpStart, network.MsgTypeStartGame, req, func() network.Response {
		id := c.session.MatchID()
		if id == "" {
			return failure(ErrNotInMatch)
		}

		if err := c.svc.registry.StartGame(id); err != nil {
			resp := failure(err)
			resp.MatchID = id
			return resp
		}

		e := events.Event{Type: events.MatchStarted, MatchID: id, PlayerID: c.session.ID}
		for _, entry := range c.svc.roster(id) {
			e.Players = append(e.Players, entry.PlayerID)
		}
		c.svc.publish(e)

		resp := c.seated(id, c.session.Seat())
		return resp
	})
}

// LeaveGame gives up this player's seat.
func (c *Coordinator) LeaveGame(req network.Request) network.Response {
	return c.run(OpLeave, network.MsgTypeLeaveGame, req, func() network.Response {
		id := c.session.MatchID()
		if id == "" {
			return failure(ErrNotInMatch)
		}
		if err := c.leave(id); err != nil {
			return failure(err)
		}
		return network.Response{Success: true, Outcome: network.OutcomeOK, MatchID: id, Seat: match.NoSeat}
	})
}

// Disconnect releases the player's seat when its connection goes away.
func (c *Coordinator) Disconnect() {
	id := c.session.MatchID()
	if id == "" {
		return
	}
	if err := c.leave(id); err != nil {
		logger.Log.Warnw("disconnect cleanup", "session_id", c.session.ID, "match_id", id, "error", err)
	}
}

func (c *Coordinator) leave(matchID string) error {
	seat := c.session.Seat()
	closed, err := c.svc.registry.PlayerDisconnected(c.session, matchID)
	c.session.Reset()
	if err != nil {
		return err
	}

	c.svc.publish(events.Event{Type: events.MatchLeft, MatchID: matchID, PlayerID: c.session.ID, Seat: seat})
	if closed {
		c.svc.publish(events.Event{Type: events.MatchClosed, MatchID: matchID})
		return nil
	}
	c.notifyRoster(matchID, network.MsgTypePlayerLeft, seat)
	return nil
}

// notifyRoster tells the other members of a match about this player.
func (c *Coordinator) notifyRoster(matchID string, msgID uint16, seat int) {
	data, err := json.Marshal(network.RosterNotice{
		MatchID:  matchID,
		PlayerID: c.session.ID,
		Name:     c.session.Name,
		Seat:     seat,
	})
	if err != nil {
		logger.Log.Errorw("marshal roster notice", "error", err)
		return
	}
	if err := c.svc.broadcaster.BroadcastToMatchExcept(matchID, c.session.ID, msgID, data); err != nil {
		logger.Log.Warnw("roster notice", "match_id", matchID, "error", err)
	}
}
