package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/wfunc/matchlobby/config"
	"github.com/wfunc/matchlobby/events"
	"github.com/wfunc/matchlobby/lobby"
	"github.com/wfunc/matchlobby/logger"
	"github.com/wfunc/matchlobby/match"
	"github.com/wfunc/matchlobby/monitor"
	"github.com/wfunc/matchlobby/persistence"
	"github.com/wfunc/matchlobby/rpc"
	"github.com/wfunc/matchlobby/server"
	"github.com/wfunc/matchlobby/services"
	"github.com/wfunc/matchlobby/session"
	"github.com/wfunc/matchlobby/turn"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Init("info", false)
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Init(cfg.Log.Level, cfg.Log.Development)
	defer logger.Sync()

	// Initialize match history
	store, err := openHistory(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Failed to open history store: %v", err)
	}
	history := services.NewHistoryService(store)
	defer history.Close()

	mon := monitor.NewMonitor("lobby")
	publishers := events.Multi{history, mon}
	if cfg.Events.NATSURL != "" {
		nats, err := events.NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.Subject)
		if err != nil {
			logger.Log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer nats.Close()
		publishers = append(publishers, nats)
		logger.Log.Infow("publishing lobby events", "nats_url", cfg.Events.NATSURL, "subject", cfg.Events.Subject)
	}

	// Registry, game coordinators and the per-player lobby
	sessions := session.NewManager()
	turns := turn.NewManager(nil, turn.Options{})
	registry := match.NewRegistry(cfg.Lobby.MaxPlayers, turns.Spawn)
	svc := lobby.NewService(registry, sessions,
		lobby.WithPublisher(publishers),
		lobby.WithMetrics(mon),
	)
	turns.SetBroadcaster(svc.Broadcaster())

	lobbyServer := server.NewLobbyServer(server.Options{
		Addr:           cfg.Server.HTTPAddress,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		SearchInterval: cfg.Lobby.SearchInterval,
	}, svc, sessions, turns, mon)

	if cfg.Server.RPCAddress != "" {
		rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress, rpc.NewLobbyService(registry, history))
		if err != nil {
			logger.Log.Fatalf("Failed to create RPC server: %v", err)
		}
		lobbyServer.SetRPCServer(rpcServer)
	}

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lobbyServer.Shutdown(ctx); err != nil {
			logger.Log.Warnw("shutdown", "error", err)
		}
	}()

	if err := lobbyServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
	logger.Log.Info("Lobby server stopped.")
}

func openHistory(cfg config.DatabaseConfig) (persistence.HistoryStore, error) {
	pg := cfg.Postgres
	switch cfg.Driver {
	case "", "none":
		return persistence.NewMemoryHistory(0), nil
	case "gorm":
		return persistence.NewGormHistory(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "sql":
		return persistence.NewSQLHistory(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	default:
		return nil, errors.Errorf("unknown database driver %q", cfg.Driver)
	}
}
