package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/matchlobby/lobby"
	"github.com/wfunc/matchlobby/match"
	"github.com/wfunc/matchlobby/monitor"
	"github.com/wfunc/matchlobby/network"
	"github.com/wfunc/matchlobby/session"
	"github.com/wfunc/matchlobby/turn"
)

type testEnv struct {
	server   *LobbyServer
	http     *httptest.Server
	registry *match.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	sessions := session.NewManager()
	turns := turn.NewManager(nil, turn.Options{TickInterval: time.Hour})
	registry := match.NewRegistry(4, turns.Spawn)
	mon := monitor.NewMonitor("test")
	svc := lobby.NewService(registry, sessions, lobby.WithMetrics(mon))
	turns.SetBroadcaster(svc.Broadcaster())

	s := NewLobbyServer(Options{Heartbeat: time.Minute}, svc, sessions, turns, mon)
	h := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		h.Close()
		turns.CloseAll()
	})
	return &testEnv{server: s, http: h, registry: registry}
}

// testConn is a raw websocket player.
type testConn struct {
	t    *testing.T
	conn *network.WSConnection
}

func (e *testEnv) dial(t *testing.T) *testConn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.http.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	c := &testConn{t: t, conn: network.NewWSConnection(ws)}
	t.Cleanup(func() { c.conn.Close() })

	var welcome network.Welcome
	if err := json.Unmarshal(c.next(network.MsgTypeWelcome).Data, &welcome); err != nil {
		t.Fatal(err)
	}
	if welcome.SessionID == "" || welcome.MaxPlayers != 4 || welcome.SearchIntervalMS != 1000 {
		t.Fatalf("Unexpected welcome: %+v", welcome)
	}
	return c
}

func (c *testConn) send(msgID uint16, req network.Request) {
	c.t.Helper()
	data, _ := json.Marshal(req)
	if err := c.conn.Send(msgID, data); err != nil {
		c.t.Fatalf("Send failed: %v", err)
	}
}

// next reads until a message with msgID arrives.
func (c *testConn) next(msgID uint16) *network.Packet {
	c.t.Helper()
	c.conn.SetHeartbeat(time.Second)
	for {
		p, err := c.conn.ReadPacket()
		if err != nil {
			c.t.Fatalf("Waiting for msg %d: %v", msgID, err)
		}
		if p.MsgID == msgID {
			return p
		}
	}
}

func (c *testConn) response(msgID uint16) network.Response {
	c.t.Helper()
	var resp network.Response
	if err := json.Unmarshal(c.next(msgID).Data, &resp); err != nil {
		c.t.Fatal(err)
	}
	return resp
}

func TestServer_HostJoinStart(t *testing.T) {
	env := newTestEnv(t)
	host := env.dial(t)
	guest := env.dial(t)

	host.send(network.MsgTypeHostGame, network.Request{RequestID: "h1", MatchID: "ABCDE", Public: true})
	resp := host.response(network.MsgTypeHostGame)
	if !resp.Success || resp.Seat != 1 || resp.RequestID != "h1" {
		t.Fatalf("Unexpected host reply: %+v", resp)
	}

	guest.send(network.MsgTypeSearchGame, network.Request{RequestID: "s1"})
	resp = guest.response(network.MsgTypeSearchGame)
	if !resp.Success || resp.MatchID != "ABCDE" || resp.Seat != 2 {
		t.Fatalf("Unexpected search reply: %+v", resp)
	}
	host.next(network.MsgTypePlayerJoined)

	host.send(network.MsgTypeStartGame, network.Request{RequestID: "st"})
	if resp := host.response(network.MsgTypeStartGame); !resp.Success {
		t.Fatalf("Unexpected start reply: %+v", resp)
	}

	var notice network.GameStartNotice
	json.Unmarshal(guest.next(network.MsgTypeGameStart).Data, &notice)
	if notice.MatchID != "ABCDE" || notice.Seat != 2 {
		t.Errorf("Unexpected game start notice: %+v", notice)
	}
	if notice.GroupKey != resp.GroupKey {
		t.Errorf("Group keys differ: %s vs %s", notice.GroupKey, resp.GroupKey)
	}
}

func TestServer_DisconnectClosesMatch(t *testing.T) {
	env := newTestEnv(t)
	host := env.dial(t)

	host.send(network.MsgTypeHostGame, network.Request{MatchID: "QWERT"})
	host.response(network.MsgTypeHostGame)
	host.conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for env.registry.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("Match was not removed after its only player disconnected")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServer_HTTPEndpoints(t *testing.T) {
	env := newTestEnv(t)
	host := env.dial(t)
	host.send(network.MsgTypeHostGame, network.Request{MatchID: "ABCDE"})
	host.response(network.MsgTypeHostGame)

	resp, err := http.Get(env.http.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	var health healthReply
	json.NewDecoder(resp.Body).Decode(&health)
	resp.Body.Close()
	if health.Status != "ok" || health.Players != 1 || health.Matches != 1 {
		t.Errorf("Unexpected health: %+v", health)
	}

	resp, err = http.Get(env.http.URL + "/matches/abcde")
	if err != nil {
		t.Fatal(err)
	}
	var info match.Info
	json.NewDecoder(resp.Body).Decode(&info)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || info.ID != "ABCDE" {
		t.Errorf("Unexpected match lookup: %d %+v", resp.StatusCode, info)
	}

	resp, err = http.Get(env.http.URL + "/matches?public=true")
	if err != nil {
		t.Fatal(err)
	}
	var list []match.Info
	json.NewDecoder(resp.Body).Decode(&list)
	resp.Body.Close()
	if len(list) != 0 {
		t.Errorf("Private match should not be listed as public: %+v", list)
	}

	resp, err = http.Get(env.http.URL + "/matches/ZZZZZ")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}

	resp, err = http.Get(env.http.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected metrics to be served, got %d", resp.StatusCode)
	}
}

func TestServer_CheckOrigin(t *testing.T) {
	s := &LobbyServer{opts: Options{AllowedOrigins: []string{"https://game.example"}}}

	r := httptest.NewRequest("GET", "/ws", nil)
	if !s.checkOrigin(r) {
		t.Error("Requests without an origin should be allowed")
	}
	r.Header.Set("Origin", "https://game.example")
	if !s.checkOrigin(r) {
		t.Error("Listed origin should be allowed")
	}
	r.Header.Set("Origin", "https://evil.example")
	if s.checkOrigin(r) {
		t.Error("Unlisted origin should be refused")
	}
}
