package app

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/stash/internal/config"
	"github.com/MrSnakeDoc/stash/internal/httpserver"
	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/maintenance"
	"github.com/MrSnakeDoc/stash/internal/metrics"
	"github.com/MrSnakeDoc/stash/internal/readinglist"
	"github.com/MrSnakeDoc/stash/internal/redis"
	"github.com/MrSnakeDoc/stash/internal/scheduler"
	"github.com/MrSnakeDoc/stash/internal/sources/homepage"
	"github.com/MrSnakeDoc/stash/internal/store"
	"github.com/MrSnakeDoc/stash/internal/store/memory"
	redisstore "github.com/MrSnakeDoc/stash/internal/store/redis"
	"github.com/MrSnakeDoc/stash/internal/store/sqlite"
	"github.com/MrSnakeDoc/stash/internal/utils"
	"github.com/MrSnakeDoc/stash/internal/version"
	"github.com/MrSnakeDoc/stash/internal/webclient"
)

type App struct {
	cfg      *config.Config
	logger   logger.Logger
	store    store.Store
	titles   *maintenance.TitleLookup
	runner   *scheduler.MaintenanceRunner
	reloader *scheduler.HomepageReloader
	server   *httpserver.Server
}

// OpenStore connects the backend selected by cfg.Store.Backend.
func OpenStore(ctx context.Context, cfg *config.Config, log logger.Logger) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		log.Warn("using the in-memory store, data is lost on exit")
		return memory.New(), nil

	case config.BackendSQLite:
		log.Info("opening sqlite store", logger.String("path", cfg.Store.SQLitePath))
		st, err := sqlite.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return st, nil

	case config.BackendRedis:
		log.Info("connecting to redis", logger.String("addr", cfg.Redis.Addr))
		client, err := redis.New(ctx, redis.ConnectOptions{
			Addr:           cfg.Redis.Addr,
			User:           cfg.Redis.Username,
			Password:       cfg.Redis.Password,
			RedisDB:        cfg.Redis.DB,
			DialTimeout:    cfg.Redis.DialTimeout,
			ReadTimeout:    cfg.Redis.ReadTimeout,
			WriteTimeout:   cfg.Redis.WriteTimeout,
			PoolSize:       cfg.Redis.PoolSize,
			ConnectTimeout: cfg.Redis.ConnectTimeout,
			RetryInterval:  cfg.Redis.RetryInterval,
			MaxWait:        cfg.Redis.MaxWait,
			PingTimeout:    cfg.Redis.PingTimeout,
			WarnThreshold:  cfg.Redis.WarnThreshold,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return redisstore.NewStore(client), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// NewWebClient builds the outbound HTTP client used by maintenance jobs.
func NewWebClient(cfg *config.Config) *webclient.Client {
	return webclient.New(webclient.Options{
		UserAgent:    cfg.Maintenance.UserAgent,
		FetchTimeout: cfg.Maintenance.FetchTimeout,
		LinkTimeout:  cfg.Maintenance.LinkTimeout,
	})
}

// NewEngine builds the maintenance engine over st.
func NewEngine(st store.Store, client *webclient.Client, cfg *config.Config, log logger.Logger) *maintenance.Engine {
	return maintenance.NewEngine(st, client, maintenance.Options{
		Concurrency:     cfg.Maintenance.Concurrency,
		FaviconEndpoint: cfg.Maintenance.FaviconEndpoint,
	}, log.Named("maintenance"))
}

// New wires every service for `stash serve`. The caller owns Close.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	metrics.Init()
	log.Debug("configuration loaded", logger.String("config", fmt.Sprintf("%+v", cfg.Redacted())))

	st, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	client := NewWebClient(cfg)
	engine := NewEngine(st, client, cfg, log)
	titles := maintenance.NewTitleLookup(client, cfg.Maintenance.TitleDelay, log.Named("titles"))
	list := readinglist.New(st, readinglist.Options{
		Limit:  cfg.ReadingList.Limit,
		Titles: titles,
	}, log.Named("reading_list"))

	runner := scheduler.NewMaintenanceRunner(engine, log.Named("scheduler"), cfg.Maintenance.Interval, cfg.Maintenance.RunOnStart)

	var reloader *scheduler.HomepageReloader
	if cfg.Homepage.BookmarksFile != "" {
		log.Info("homepage bookmarks file configured",
			logger.String("file", cfg.Homepage.BookmarksFile),
			logger.Bool("watch", cfg.Homepage.Watch))
		source := homepage.NewSource(cfg.Homepage.BookmarksFile, st, log.Named("homepage"))
		reloader = scheduler.NewHomepageReloader(source, log.Named("scheduler"), cfg.Homepage.ReloadInterval, cfg.Homepage.Watch)
	}

	d := deps.Deps{
		Logger:           log,
		StartTime:        time.Now(),
		Version:          version.Version,
		Commit:           version.Commit,
		BuildDate:        version.BuildDate,
		GoVersion:        version.GoVersion,
		TimeNow:          time.Now,
		AllowedCIDRS:     cfg.Server.AllowedCIDRs,
		TrustProxy:       cfg.Server.TrustProxy,
		ImportRatePerMin: cfg.Server.ImportRatePerMin,
		ImportBurst:      cfg.Server.ImportBurst,
		Store:            st,
		ReadingList:      list,
		Maintenance:      runner,
	}
	// A nil *HomepageReloader must stay a nil interface.
	if reloader != nil {
		d.HomepageReload = reloader
	}

	return &App{
		cfg:      cfg,
		logger:   log,
		store:    st,
		titles:   titles,
		runner:   runner,
		reloader: reloader,
		server:   httpserver.New(cfg, log, d),
	}, nil
}

// Run starts background jobs and the HTTP server, then blocks until ctx is
// cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting stash",
		logger.String("version", version.Version),
		logger.String("commit", version.Commit),
		logger.String("built", version.BuildDate),
		logger.String("go", version.GoVersion),
		logger.String("listen", a.cfg.Server.Listen),
		logger.String("store", a.cfg.Store.Backend))

	if a.reloader != nil {
		if err := a.reloader.Start(ctx); err != nil {
			return fmt.Errorf("failed to start homepage reloader: %w", err)
		}
		a.logger.Info("homepage reloader started",
			logger.Duration("interval", a.cfg.Homepage.ReloadInterval))
	}

	a.runner.Start(ctx)
	a.logger.Info("maintenance runner started",
		logger.Duration("interval", a.cfg.Maintenance.Interval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down gracefully...")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}

	if a.reloader != nil {
		a.reloader.Stop()
	}
	a.runner.Stop()

	if runErr == nil {
		a.logger.Info("stash stopped cleanly")
	}
	return runErr
}

// Close releases the store and cancels pending title lookups.
func (a *App) Close() {
	a.titles.Close()
	utils.Close(a.store, "store", a.logger)
}
