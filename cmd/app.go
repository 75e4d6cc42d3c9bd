package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/avdeev/switch-catalog/internal/api"
	"github.com/avdeev/switch-catalog/internal/clock/system"
	"github.com/avdeev/switch-catalog/internal/config"
	"github.com/avdeev/switch-catalog/internal/crawl"
	"github.com/avdeev/switch-catalog/internal/extract"
	"github.com/avdeev/switch-catalog/internal/fetch"
	"github.com/avdeev/switch-catalog/internal/id/uuid"
	"github.com/avdeev/switch-catalog/internal/logging"
	"github.com/avdeev/switch-catalog/internal/metrics"
	"github.com/avdeev/switch-catalog/internal/query"
	"github.com/avdeev/switch-catalog/internal/store"
	"github.com/avdeev/switch-catalog/internal/store/memory"
	"github.com/avdeev/switch-catalog/internal/store/postgres"
	"github.com/avdeev/switch-catalog/internal/syncer"
)

// application holds the wired service graph for one process.
type application struct {
	cfg     config.Config
	logger  *zap.Logger
	fetcher *fetch.CollyFetcher
	db      store.Store
	orch    *syncer.Orchestrator
	server  *api.Server
}

// buildApplication loads configuration and assembles every component.
func buildApplication(ctx context.Context, cfgPath string) (*application, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	metrics.Init()

	clock := system.New()

	var db store.Store
	if cfg.DB.DSN == "" {
		logger.Info("Using in-memory store")
		db = memory.New(clock, cfg.Store.CaseSensitive)
	} else {
		logger.Info("Using postgres store")
		pg, err := postgres.New(ctx, postgres.Config{
			DSN:             cfg.DB.DSN,
			MaxConns:        cfg.DB.MaxConns,
			MinConns:        cfg.DB.MinConns,
			MaxConnLifetime: time.Duration(cfg.DB.MaxConnLifetime) * time.Minute,
			CaseSensitive:   cfg.Store.CaseSensitive,
		}, clock)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		db = pg
	}

	limiter := fetch.NewLimiter(cfg.Source.Delay())
	fetcher := fetch.NewCollyFetcher(fetch.Config{
		UserAgent: cfg.Source.UserAgent,
		Timeout:   cfg.Source.Timeout(),
		Headers:   fetch.DefaultHeaders(),
	}, limiter, logger)

	extractor := extract.NewDetailExtractor(logger)
	walker := crawl.NewWalker(crawl.Config{
		BaseURL:       cfg.Source.BaseURL,
		PageTemplates: cfg.Source.PageTemplates,
		EmptyStreak:   cfg.Source.EmptyStreak,
		MaxPages:      cfg.Source.MaxPages,
	}, fetcher, extract.Entries, logger)

	orch := syncer.New(walker, fetcher, extractor, db, uuid.NewGenerator(), clock, logger)
	server := api.NewServer(query.New(db), orch, clock, logger)

	return &application{
		cfg:     cfg,
		logger:  logger,
		fetcher: fetcher,
		db:      db,
		orch:    orch,
		server:  server,
	}, nil
}

// close releases the application's long-lived resources.
func (a *application) close() {
	a.fetcher.Close()
	a.db.Close()
	_ = a.logger.Sync()
}
