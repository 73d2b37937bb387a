package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mx-space/memory-explorer/internal/config"
	"github.com/mx-space/memory-explorer/internal/database"
	"github.com/mx-space/memory-explorer/internal/middleware"
	"github.com/mx-space/memory-explorer/internal/modules/post"
	pkgcron "github.com/mx-space/memory-explorer/internal/pkg/cron"
	"github.com/mx-space/memory-explorer/internal/pkg/metrics"
	pkgredis "github.com/mx-space/memory-explorer/internal/pkg/redis"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg      *config.AppConfig
	router   *gin.Engine
	db       *gorm.DB
	rc       *pkgredis.Client
	metrics  *metrics.Metrics
	services *services
	logger   *zap.Logger
	cancel   context.CancelFunc
	sched    *pkgcron.Scheduler
}

// New initializes the application: storage → posts → services → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	store, rc, db, err := openStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
		gin.DebugPrintRouteFunc = func(string, string, string, int) {}
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	m := metrics.New()

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(m.Middleware())
	router.Use(cors.New(corsConfig(cfg)))

	ctx, cancel := context.WithCancel(context.Background())
	svcs, err := buildServices(ctx, cfg, store, rc, m, logger)
	if err != nil {
		cancel()
		closeStorage(rc, db, logger)
		return nil, err
	}
	go svcs.hub.Run(ctx)

	sched := pkgcron.New(logger)
	if err := registerCronJobs(sched, cfg, svcs, m, logger); err != nil {
		cancel()
		closeStorage(rc, db, logger)
		return nil, fmt.Errorf("cron: %w", err)
	}
	sched.Start(ctx)

	app := &App{
		cfg:      cfg,
		router:   router,
		db:       db,
		rc:       rc,
		metrics:  m,
		services: svcs,
		logger:   logger,
		cancel:   cancel,
		sched:    sched,
	}
	app.registerRoutes()

	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background jobs and releases storage connections.
func (a *App) Shutdown() {
	a.cancel()
	a.sched.Wait()
	closeStorage(a.rc, a.db, a.logger)
}

func (a *App) uptime() time.Duration {
	return time.Since(processStart)
}

var processStart = time.Now()

func closeStorage(rc *pkgredis.Client, db *gorm.DB, logger *zap.Logger) {
	if rc != nil {
		if err := rc.Close(); err != nil {
			logger.Warn("redis close failed", zap.Error(err))
		}
	}
	if err := database.Close(db); err != nil {
		logger.Warn("database close failed", zap.Error(err))
	}
}

// loadPosts performs the first load. A missing document leaves the store
// empty and the explorer shows its load-failure notice.
func loadPosts(ctx context.Context, store *post.Store, logger *zap.Logger) {
	if err := store.Load(ctx); err != nil {
		logger.Warn("posts not loaded, starting empty", zap.Error(err))
	}
}
