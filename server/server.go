package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/cors"

	"github.com/wfunc/matchlobby/lobby"
	"github.com/wfunc/matchlobby/logger"
	"github.com/wfunc/matchlobby/matchid"
	"github.com/wfunc/matchlobby/monitor"
	"github.com/wfunc/matchlobby/network"
	lobbyrpc "github.com/wfunc/matchlobby/rpc"
	"github.com/wfunc/matchlobby/session"
	"github.com/wfunc/matchlobby/turn"
)

// DefaultHeartbeat is how often clients are expected to send something.
const DefaultHeartbeat = 30 * time.Second

type Options struct {
	Addr           string
	AllowedOrigins []string
	Heartbeat      time.Duration
	SearchInterval time.Duration
}

// LobbyServer accepts player connections over websocket and serves the
// operator HTTP endpoints.
type LobbyServer struct {
	opts           Options
	upgrader       websocket.Upgrader
	lobby          *lobby.Service
	sessionManager *session.Manager
	turns          *turn.Manager
	monitor        *monitor.Monitor
	rpcServer      *lobbyrpc.Server
	httpServer     *http.Server
	handler        http.Handler
	shutdownChan   chan struct{}
	shutdownOnce   sync.Once
}

// NewLobbyServer wires the HTTP routes. mon may be nil.
func NewLobbyServer(opts Options, svc *lobby.Service, sessions *session.Manager, turns *turn.Manager, mon *monitor.Monitor) *LobbyServer {
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = DefaultHeartbeat
	}
	if opts.SearchInterval <= 0 {
		opts.SearchInterval = time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	s := &LobbyServer{
		opts:           opts,
		lobby:          svc,
		sessionManager: sessions,
		turns:          turns,
		monitor:        mon,
		shutdownChan:   make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}

	router := mux.NewRouter()
	router.HandleFunc("/ws", s.handleWebSocket)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/matches", s.handleListMatches).Methods(http.MethodGet)
	router.HandleFunc("/matches/{id}", s.handleGetMatch).Methods(http.MethodGet)
	if mon != nil {
		router.Handle("/metrics", mon.Handler()).Methods(http.MethodGet)
	}

	s.handler = cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet},
	}).Handler(router)
	s.httpServer = &http.Server{Addr: opts.Addr, Handler: s.handler}
	return s
}

// SetRPCServer attaches the admin RPC listener, started and stopped with
// the HTTP server.
func (s *LobbyServer) SetRPCServer(r *lobbyrpc.Server) {
	s.rpcServer = r
}

func (s *LobbyServer) Handler() http.Handler {
	return s.handler
}

// Start serves until Shutdown.
func (s *LobbyServer) Start() error {
	if s.rpcServer != nil {
		go s.rpcServer.Start()
	}

	logger.Log.Infof("Lobby server listening on %s", s.opts.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http server")
	}
	return nil
}

// Shutdown stops accepting connections, drops every player and closes the
// running games.
func (s *LobbyServer) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		close(s.shutdownChan)
		if s.rpcServer != nil {
			s.rpcServer.Stop()
		}
		err = s.httpServer.Shutdown(ctx)
		for _, sess := range s.sessionManager.All() {
			sess.Close()
		}
		s.turns.CloseAll()
	})
	return err
}

func (s *LobbyServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *LobbyServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *LobbyServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	wsConn.SetHeartbeat(s.opts.Heartbeat)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	coordinator := s.lobby.NewCoordinator(sess)
	if s.monitor != nil {
		s.monitor.IncOnlinePlayers()
	}

	logger.Log.Infow("new connection", "remote", wsConn.RemoteAddr().String(), "session_id", sess.ID, "name", sess.Name)

	defer func() {
		logger.Log.Infow("connection closed", "remote", wsConn.RemoteAddr().String(), "session_id", sess.ID)
		coordinator.Disconnect()
		s.sessionManager.Remove(sess.ID)
		if s.monitor != nil {
			s.monitor.DecOnlinePlayers()
		}
		wsConn.Close()
	}()

	sess.SendJSON(network.MsgTypeWelcome, network.Welcome{
		SessionID:        sess.ID,
		Name:             sess.Name,
		MaxPlayers:       s.lobby.Registry().MaxPlayers(),
		SearchIntervalMS: s.opts.SearchInterval.Milliseconds(),
	})

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(coordinator, packet)
		}
	}
}

func (s *LobbyServer) handlePacket(coordinator *lobby.Coordinator, packet *network.Packet) {
	sess := coordinator.Session()
	sess.Touch()
	if s.monitor != nil {
		s.monitor.IncMessagesReceived()
	}

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
	case network.MsgTypeTurnAction:
		s.handleTurnAction(sess, packet)
	default:
		if !coordinator.Handle(packet.MsgID, packet.Data) {
			logger.Log.Infow("unknown message type", "session_id", sess.ID, "msg_id", packet.MsgID)
		}
	}
}

func (s *LobbyServer) handleTurnAction(sess *session.Session, packet *network.Packet) {
	matchID := sess.MatchID()
	if matchID == "" || sess.Scene() != session.SceneGame {
		logger.Log.Warnw("game action outside a running match", "session_id", sess.ID)
		return
	}
	if err := s.turns.HandleAction(matchID, sess, packet.Data); err != nil {
		logger.Log.Infow("game action rejected", "session_id", sess.ID, "match_id", matchID, "error", err)
	}
}

type healthReply struct {
	Status  string `json:"status"`
	Players int    `json:"players"`
	Matches int    `json:"matches"`
	Games   int    `json:"games"`
}

func (s *LobbyServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthReply{
		Status:  "ok",
		Players: s.sessionManager.Count(),
		Matches: s.lobby.Registry().Count(),
		Games:   s.turns.Count(),
	})
}

func (s *LobbyServer) handleListMatches(w http.ResponseWriter, r *http.Request) {
	publicOnly := r.URL.Query().Get("public") == "true"
	matches := s.lobby.Registry().List()
	result := matches[:0]
	for _, m := range matches {
		if publicOnly && !m.IsPublic {
			continue
		}
		result = append(result, m)
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *LobbyServer) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	id := matchid.Normalize(mux.Vars(r)["id"])
	info, exists := s.lobby.Registry().Get(id)
	if !exists {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": network.OutcomeMatchNotFound})
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Warnw("write http response", "error", err)
	}
}
