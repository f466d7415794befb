// Package client talks to the lobby server over the framed websocket
// protocol.
package client

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/wfunc/matchlobby/logger"
	"github.com/wfunc/matchlobby/network"
)

// ResponseHandler receives the directed reply to one of this client's
// lobby commands.
type ResponseHandler func(msgID uint16, resp network.Response)

// NoticeHandler receives every message that is not a command reply.
type NoticeHandler func(msgID uint16, data []byte)

// Client sends lobby commands without waiting for their outcome. Replies
// arrive later through Run and the registered handlers.
type Client struct {
	conn      network.Connection
	responses []ResponseHandler
	notices   []NoticeHandler
	mutex     sync.RWMutex
}

// Dial connects to a lobby server, e.g. "localhost:8080".
func Dial(ctx context.Context, host string) (*Client, error) {
	u := url.URL{Scheme: "ws", Host: host, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", u.String())
	}
	return New(network.NewWSConnection(conn)), nil
}

func New(conn network.Connection) *Client {
	return &Client{conn: conn}
}

func (c *Client) OnResponse(h ResponseHandler) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.responses = append(c.responses, h)
}

func (c *Client) OnNotice(h NoticeHandler) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.notices = append(c.notices, h)
}

// Send issues a lobby command and returns its request id. An empty
// RequestID is filled in.
func (c *Client) Send(msgID uint16, req network.Request) (string, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	data, err := json.Marshal(req)
	if err != nil {
		return "", errors.Wrap(err, "marshal request")
	}
	if err := c.conn.Send(msgID, data); err != nil {
		return "", errors.Wrap(err, "send request")
	}
	return req.RequestID, nil
}

// Host opens a match. An empty matchID lets the server pick one.
func (c *Client) Host(matchID string, public bool) (string, error) {
	return c.Send(network.MsgTypeHostGame, network.Request{MatchID: matchID, Public: public})
}

func (c *Client) Join(matchID string) (string, error) {
	return c.Send(network.MsgTypeJoinGame, network.Request{MatchID: matchID})
}

// Search makes one attempt at joining a public match. Use a Searcher to
// keep trying.
func (c *Client) Search() (string, error) {
	return c.Send(network.MsgTypeSearchGame, network.Request{})
}

func (c *Client) Start() (string, error) {
	return c.Send(network.MsgTypeStartGame, network.Request{})
}

func (c *Client) Leave() (string, error) {
	return c.Send(network.MsgTypeLeaveGame, network.Request{})
}

// Action sends a game-phase command such as "ready" or "end_turn".
func (c *Client) Action(actionType string) error {
	data, err := json.Marshal(network.TurnAction{Type: actionType})
	if err != nil {
		return errors.Wrap(err, "marshal action")
	}
	return c.conn.Send(network.MsgTypeTurnAction, data)
}

func (c *Client) Heartbeat() error {
	return c.conn.Send(network.MsgTypeHeartbeat, nil)
}

// Run reads until the connection fails and dispatches every message.
func (c *Client) Run() error {
	for {
		packet, err := c.conn.ReadPacket()
		if err != nil {
			return err
		}
		c.dispatch(packet.MsgID, packet.Data)
	}
}

func (c *Client) dispatch(msgID uint16, data []byte) {
	c.mutex.RLock()
	responses := c.responses
	notices := c.notices
	c.mutex.RUnlock()

	if isReply(msgID) {
		var resp network.Response
		if err := json.Unmarshal(data, &resp); err != nil {
			logger.Log.Warnw("bad reply from server", "msg_id", msgID, "error", err)
			return
		}
		for _, h := range responses {
			h(msgID, resp)
		}
		return
	}
	for _, h := range notices {
		h(msgID, data)
	}
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func isReply(msgID uint16) bool {
	switch msgID {
	case network.MsgTypeHostGame, network.MsgTypeJoinGame, network.MsgTypeSearchGame,
		network.MsgTypeStartGame, network.MsgTypeLeaveGame:
		return true
	}
	return false
}
