package app

import (
	"context"
	"time"

	"github.com/mx-space/memory-explorer/internal/config"
	pkgcron "github.com/mx-space/memory-explorer/internal/pkg/cron"
	"github.com/mx-space/memory-explorer/internal/pkg/metrics"
	"go.uber.org/zap"
)

const (
	evictInterval    = time.Minute
	geoWarmInterval  = 24 * time.Hour
	jobReloadPosts   = "reload_posts"
	jobEvictSessions = "evict_sessions"
	jobWarmGeocode   = "warm_geocode_cache"
)

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, cfg *config.AppConfig, svcs *services, m *metrics.Metrics, logger *zap.Logger) error {
	cronLogger := logger.Named("CronService")

	if every := cfg.Data.ReloadInterval; every > 0 {
		err := sched.Register(pkgcron.Job{
			Name:        jobReloadPosts,
			Description: "Reload the posts document every " + humanizeDuration(every),
			Interval:    every,
			Fn: func(ctx context.Context) error {
				if err := svcs.posts.Load(ctx); err != nil {
					cronLogger.Warn("posts reload failed, keeping previous snapshot", zap.Error(err))
					return err
				}
				svcs.explorer.Refresh()
				m.SetPosts(len(svcs.posts.Posts()))
				return nil
			},
		})
		if err != nil {
			return err
		}
	}

	err := sched.Register(pkgcron.Job{
		Name:        jobEvictSessions,
		Description: "Drop explorer sessions idle for " + humanizeDuration(cfg.Explorer.SessionTTL),
		Interval:    evictInterval,
		Fn: func(context.Context) error {
			svcs.explorer.Evict()
			return nil
		},
	})
	if err != nil {
		return err
	}

	return sched.Register(pkgcron.Job{
		Name:        jobWarmGeocode,
		Description: "Resolve every post location into the geocode cache",
		Interval:    geoWarmInterval,
		RunOnStart:  cfg.Geocoder.WarmOnStart,
		Fn: func(ctx context.Context) error {
			return svcs.geo.Warm(ctx)
		},
	})
}
