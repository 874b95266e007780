// Package daemon composes the application with fx: config, logger,
// single-instance lock, store, broker, scheduler, chat facade and the
// HTTP server, with lifecycle hooks tying startup and shutdown together.
package daemon

import (
	"context"

	"github.com/matheus3301/inboxd/internal/broker"
	"github.com/matheus3301/inboxd/internal/chat"
	"github.com/matheus3301/inboxd/internal/config"
	"github.com/matheus3301/inboxd/internal/home"
	"github.com/matheus3301/inboxd/internal/httpapi"
	"github.com/matheus3301/inboxd/internal/lock"
	"github.com/matheus3301/inboxd/internal/logging"
	"github.com/matheus3301/inboxd/internal/scheduler"
	"github.com/matheus3301/inboxd/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved startup options passed to the fx module.
type Params struct {
	DataDir string
	// ListenAddr overrides the configured listen address when non-empty.
	ListenAddr string
}

// Module returns the fx module for the daemon, composing all providers
// and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideLock,
			provideStore,
			provideBroker,
			provideScheduler,
			provideService,
			provideHandlers,
			provideWSHandler,
			httpapi.NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	cfg, err := config.Load(home.ConfigPath(p.DataDir))
	if err != nil {
		return nil, err
	}
	if p.ListenAddr != "" {
		cfg.ListenAddr = p.ListenAddr
	}
	return cfg, nil
}

func provideLogger(p Params) (*zap.Logger, error) {
	if err := home.EnsureDir(p.DataDir); err != nil {
		return nil, err
	}
	return logging.New(home.LogPath(p.DataDir))
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring data dir lock", zap.String("dir", p.DataDir))
	l, err := lock.Acquire(p.DataDir)
	if err != nil {
		return nil, err
	}
	logger.Info("data dir lock acquired")
	return l, nil
}

func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := home.DBPath(p.DataDir)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideBroker() *broker.Broker {
	return broker.New()
}

func provideScheduler(cfg *config.Config, logger *zap.Logger) *scheduler.Scheduler {
	return scheduler.New(cfg.DeliveredAfter(), cfg.ReadAfter(), logger)
}

func provideService(db *store.DB, b *broker.Broker, sched *scheduler.Scheduler, cfg *config.Config, logger *zap.Logger) *chat.Service {
	return chat.NewService(db, b, sched, cfg.BusinessNumber, logger)
}

func provideHandlers(svc *chat.Service, logger *zap.Logger) *httpapi.Handlers {
	return httpapi.NewHandlers(svc, logger)
}

func provideWSHandler(b *broker.Broker, logger *zap.Logger) *httpapi.WSHandler {
	return httpapi.NewWSHandler(b, logger)
}

func registerLifecycle(lc fx.Lifecycle, srv *httpapi.Server, sched *scheduler.Scheduler, db *store.DB, lk *lock.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("http server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("http shutdown failed", zap.Error(err))
			}
			sched.Stop()
			if err := db.Close(); err != nil {
				logger.Error("store close failed", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Error("lock release failed", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
