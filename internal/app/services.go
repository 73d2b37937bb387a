package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mx-space/memory-explorer/internal/config"
	"github.com/mx-space/memory-explorer/internal/database"
	"github.com/mx-space/memory-explorer/internal/modules/bookmark"
	"github.com/mx-space/memory-explorer/internal/modules/customfilter"
	"github.com/mx-space/memory-explorer/internal/modules/explorer"
	"github.com/mx-space/memory-explorer/internal/modules/gateway"
	"github.com/mx-space/memory-explorer/internal/modules/geo"
	"github.com/mx-space/memory-explorer/internal/modules/post"
	"github.com/mx-space/memory-explorer/internal/modules/ranking"
	"github.com/mx-space/memory-explorer/internal/modules/slideshow"
	"github.com/mx-space/memory-explorer/internal/pkg/jwt"
	"github.com/mx-space/memory-explorer/internal/pkg/kv"
	"github.com/mx-space/memory-explorer/internal/pkg/metrics"
	pkgredis "github.com/mx-space/memory-explorer/internal/pkg/redis"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// services groups the domain services shared by handlers and cron jobs.
type services struct {
	posts     *post.Store
	bookmarks *bookmark.Service
	filters   *customfilter.Service
	geo       *geo.Service
	ranking   *ranking.Service
	explorer  *explorer.Service
	hub       *gateway.Hub
}

// openStorage connects the persistence backend selected by storage.driver.
// Redis is also dialed for the memory driver when rate limiting needs it;
// that connection is optional.
func openStorage(cfg *config.AppConfig, logger *zap.Logger) (kv.Store, *pkgredis.Client, *gorm.DB, error) {
	switch cfg.Storage.Driver {
	case config.StorageRedis:
		rc, err := pkgredis.Connect(cfg.Storage.Redis.URLValue())
		if err != nil {
			return nil, nil, nil, fmt.Errorf("redis: %w", err)
		}
		logger.Info("storage ready", zap.String("driver", cfg.Storage.Driver))
		return kv.NewRedisStore(rc, cfg.Storage.Prefix), rc, nil, nil
	case config.StorageMySQL:
		db, err := database.Connect(cfg, true)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("database: %w", err)
		}
		logger.Info("storage ready", zap.String("driver", cfg.Storage.Driver))
		return kv.NewSQLStore(db), optionalRedis(cfg, logger), db, nil
	default:
		logger.Info("storage ready", zap.String("driver", config.StorageMemory))
		return kv.NewMemoryStore(), optionalRedis(cfg, logger), nil, nil
	}
}

func optionalRedis(cfg *config.AppConfig, logger *zap.Logger) *pkgredis.Client {
	if !cfg.RateLimit.Enable {
		return nil
	}
	rc, err := pkgredis.Connect(cfg.Storage.Redis.URLValue())
	if err != nil {
		logger.Warn("redis unavailable, rate limiting disabled", zap.Error(err))
		return nil
	}
	return rc
}

func buildServices(ctx context.Context, cfg *config.AppConfig, store kv.Store, rc *pkgredis.Client, m *metrics.Metrics, logger *zap.Logger) (*services, error) {
	sources, err := post.BuildSources(cfg.Data)
	if err != nil {
		return nil, err
	}
	posts := post.NewStore(sources, post.WithLogger(logger))
	loadPosts(ctx, posts, logger)
	m.SetPosts(len(posts.Posts()))

	bookmarks := bookmark.NewService(store, bookmark.WithLogger(logger))
	if err := bookmarks.Reload(ctx); err != nil {
		logger.Warn("bookmarks not loaded", zap.Error(err))
	}
	filters := customfilter.NewService(store, customfilter.WithLogger(logger))

	cache := geo.NewCache(store, logger)
	if err := cache.Load(ctx); err != nil {
		logger.Warn("geocode cache not loaded", zap.Error(err))
	}
	geocoder := geo.NewNominatim(cfg.Geocoder, geo.WithNominatimLogger(logger))
	geoSvc := geo.NewService(posts, geocoder, cache,
		geo.WithLogger(logger),
		geo.WithMetrics(m),
		geo.WithConcurrency(cfg.Geocoder.Concurrency),
	)

	credentials := ranking.NewCredentials(cfg.AI.Provider.APIKey, cfg.AI.SecretsFile, store, logger)
	rankSvc := ranking.NewService(ranking.NewLLMProvider(cfg.AI.Provider), credentials,
		ranking.WithLogger(logger),
		ranking.WithMetrics(m),
		ranking.WithCandidateLimit(cfg.AI.CandidateLimit),
		ranking.WithDefaultTopN(cfg.AI.DefaultTopN),
		ranking.WithTimeout(cfg.AI.Timeout),
	)

	// The hub authorizes sockets through explorer sessions and the explorer
	// notifies through the hub, so validation is bound late.
	var explorerSvc *explorer.Service
	hub := gateway.NewHub(rc, func(token string) (string, bool) {
		return explorerSvc.Validate(token)
	}, gateway.WithLogger(logger), gateway.WithMetrics(m))

	if strings.TrimSpace(cfg.JWTSecret) == "" {
		logger.Warn("jwt_secret is empty, using built-in default secret")
	}
	engineOpts := []slideshow.Option{
		slideshow.WithLogger(logger),
		slideshow.WithIntervalMs(cfg.Slideshow.DefaultIntervalMs),
	}
	if cfg.Slideshow.PrefetchImages {
		engineOpts = append(engineOpts, slideshow.WithLoader(slideshow.Prefetcher{
			Client: &http.Client{Timeout: 15 * time.Second},
		}))
	}
	explorerSvc = explorer.NewService(explorer.Deps{
		Posts:     posts,
		Bookmarks: bookmarks,
		Filters:   filters,
		Ranker:    rankSvc,
		Signer:    jwt.NewSigner(cfg.JWTSecret),
	},
		explorer.WithLogger(logger),
		explorer.WithMetrics(m),
		explorer.WithNotifier(hub),
		explorer.WithConfig(cfg.Explorer),
		explorer.WithEngineOptions(engineOpts...),
	)

	return &services{
		posts:     posts,
		bookmarks: bookmarks,
		filters:   filters,
		geo:       geoSvc,
		ranking:   rankSvc,
		explorer:  explorerSvc,
		hub:       hub,
	}, nil
}
