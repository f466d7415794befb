package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"

	pkgerrors "github.com/pkg/errors"

	"github.com/wfunc/matchlobby/logger"
	"github.com/wfunc/matchlobby/match"
	"github.com/wfunc/matchlobby/models"
	"github.com/wfunc/matchlobby/services"
)

// ServiceName is the name LobbyService methods are registered under.
const ServiceName = "LobbyService"

var ErrMatchNotFound = errors.New("match not found")

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer listens on addr and registers service on a private rpc.Server.
func NewServer(addr string, service *LobbyService) (*Server, error) {
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName(ServiceName, service); err != nil {
		return nil, pkgerrors.Wrap(err, "register lobby rpc service")
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "rpc listen %s", addr)
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      rpcServer,
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.address
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// LobbyService exposes read-only lobby state to operators. Methods follow
// the net/rpc signature: exported args, pointer reply, error return.
type LobbyService struct {
	registry *match.Registry
	history  *services.HistoryService
}

// NewLobbyService creates the admin service. history may be nil.
func NewLobbyService(registry *match.Registry, history *services.HistoryService) *LobbyService {
	return &LobbyService{registry: registry, history: history}
}

type ListMatchesArgs struct {
	PublicOnly bool
}

type ListMatchesReply struct {
	Matches []match.Info
}

func (ls *LobbyService) ListMatches(args *ListMatchesArgs, reply *ListMatchesReply) error {
	for _, info := range ls.registry.List() {
		if args.PublicOnly && !info.IsPublic {
			continue
		}
		reply.Matches = append(reply.Matches, info)
	}
	return nil
}

type GetMatchArgs struct {
	MatchID string
}

type GetMatchReply struct {
	Match match.Info
}

func (ls *LobbyService) GetMatch(args *GetMatchArgs, reply *GetMatchReply) error {
	info, exists := ls.registry.Get(args.MatchID)
	if !exists {
		return ErrMatchNotFound
	}
	reply.Match = info
	return nil
}

type RecentHistoryArgs struct {
	Limit int
}

type RecentHistoryReply struct {
	Events []models.MatchEvent
}

func (ls *LobbyService) RecentHistory(args *RecentHistoryArgs, reply *RecentHistoryReply) error {
	if ls.history == nil {
		return nil
	}
	history, err := ls.history.Recent(context.Background(), args.Limit)
	if err != nil {
		return err
	}
	reply.Events = history
	return nil
}

type MatchSummaryArgs struct {
	MatchID string
}

type MatchSummaryReply struct {
	Summary models.MatchSummary
}

func (ls *LobbyService) MatchSummary(args *MatchSummaryArgs, reply *MatchSummaryReply) error {
	if ls.history == nil {
		return ErrMatchNotFound
	}
	summary, err := ls.history.Summary(context.Background(), args.MatchID)
	if err != nil {
		return err
	}
	reply.Summary = summary
	return nil
}
