package app

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/fitcoach-backend/internal/data/db"
	"github.com/yungbote/fitcoach-backend/internal/data/repos"
	fchttp "github.com/yungbote/fitcoach-backend/internal/http"
	"github.com/yungbote/fitcoach-backend/internal/observability"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

const shutdownGrace = 5 * time.Second

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Metrics  *observability.Metrics
	Repos    repos.Set
	Clients  Clients
	Services Services
	Coaching Coaching
	Handlers Handlers
	Server   *fchttp.Server

	shutdownOTel func(context.Context) error
}

func New(ctx context.Context, log *logger.Logger) (*App, error) {
	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	metrics := observability.Init(log)
	shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	theDB, err := db.Open(log, cfg.DBDriver, cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}

	clients, err := wireClients(log, cfg)
	if err != nil {
		return nil, err
	}
	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, reposet, clients, metrics)
	if err != nil {
		clients.Close()
		return nil, err
	}
	coaching, err := wireCoaching(log, cfg, reposet, clients, serviceset)
	if err != nil {
		clients.Close()
		return nil, err
	}
	handlerset, err := wireHandlers(log, theDB, serviceset, coaching)
	if err != nil {
		clients.Close()
		return nil, err
	}
	middleware := wireMiddleware(log, serviceset)

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Metrics:      metrics,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		Coaching:     coaching,
		Handlers:     handlerset,
		Server:       wireServer(log, cfg, metrics, handlerset, middleware),
		shutdownOTel: shutdownOTel,
	}, nil
}

// Run serves HTTP until ctx is cancelled. Background loops (metrics
// listener, voice session reaper) stop with it.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
	go a.Handlers.Voice.RunReaper(ctx, a.Cfg.VoiceReapInterval, a.Cfg.VoiceSessionIdle)

	addr := ":" + a.Cfg.Port
	a.Log.Info("Server listening", "addr", addr)
	return a.Server.Run(ctx, addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Coaching.Text != nil {
		_ = a.Coaching.Text.Close()
	}
	a.Clients.Close()
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.shutdownOTel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		if err := a.shutdownOTel(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	observability.Shutdown()
	a.Log.Sync()
}
