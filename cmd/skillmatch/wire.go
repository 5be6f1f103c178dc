package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jask/skillmatch/internal/config"
	"github.com/jask/skillmatch/internal/history"
	"github.com/jask/skillmatch/internal/kv"
	"github.com/jask/skillmatch/internal/logging"
	"github.com/jask/skillmatch/internal/model"
	"github.com/jask/skillmatch/internal/notify"
	"github.com/jask/skillmatch/internal/persist"
	"github.com/jask/skillmatch/internal/query"
	"github.com/jask/skillmatch/internal/query/graphql"
	"github.com/jask/skillmatch/internal/service"
	"github.com/jask/skillmatch/internal/session"
)

type app struct {
	cfg      config.Config
	logger   *zap.Logger
	store    kv.Store
	sessions *session.Store
	nav      *history.Navigator
	persist  *persist.Adapter
	bus      *notify.Bus
	search   *service.SearchService
}

// wireApp builds the controller stack from configuration and restores the
// persisted state into it.
func wireApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	backend, err := kv.ParseBackend(cfg.Storage.Backend)
	if err != nil {
		return nil, err
	}
	store, err := kv.Open(kv.Options{Backend: backend, Dir: cfg.Storage.Path, Logger: logger})
	if err != nil {
		return nil, err
	}

	mode, err := model.ParseMode(cfg.UI.DefaultMode)
	if err != nil {
		mode = model.Seeker
	}
	sessions := session.NewStore(mode, model.Theme(cfg.UI.Theme))
	nav := history.NewNavigator()

	adapter := persist.New(store, sessions, nav, logger)
	if err := adapter.Load(ctx); err != nil {
		logger.Warn("restore persisted state", zap.Error(err))
	}
	adapter.Start()

	client := graphql.New(cfg.API.Endpoint, cfg.API.Timeout, logger)
	exec := query.NewCachingExecutor(client, cfg.Cache.TTL, cfg.Cache.CleanupInterval)
	bus := notify.NewBus()

	search := service.NewSearchService(exec, sessions, bus, logger, service.Options{
		PageSize:        cfg.Search.PageSize,
		Cooldown:        cooldown(cfg.Search.LoadMoreCooldown),
		Timeout:         cfg.API.Timeout,
		StatisticsLimit: cfg.Search.StatisticsLimit,
	})

	logger.Info("started",
		zap.String("endpoint", cfg.API.Endpoint),
		zap.String("storage", string(backend)),
		zap.String("mode", string(sessions.ActiveMode())))

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		sessions: sessions,
		nav:      nav,
		persist:  adapter,
		bus:      bus,
		search:   search,
	}, nil
}

// cooldown maps a configured zero to "no cooldown"; service options treat
// zero as the default.
func cooldown(d time.Duration) time.Duration {
	if d == 0 {
		return -1
	}
	return d
}

// Close stops controllers, flushes pending writes and releases storage.
func (a *app) Close() error {
	a.search.Close()
	a.persist.Close()
	err := a.store.Close()
	_ = a.logger.Sync()
	return err
}
