package geo

import (
	"context"
	"sync/atomic"

	"github.com/mx-space/memory-explorer/internal/models"
	"github.com/mx-space/memory-explorer/internal/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PostSource provides the current post snapshot.
type PostSource interface {
	Posts() []*models.Post
}

// Result is the grouped location list with its summary.
type Result struct {
	Locations []*models.Location `json:"locations"`
	Stats     Stats              `json:"stats"`
	Resolved  int                `json:"resolved"`
}

type Service struct {
	posts       PostSource
	geocoder    Geocoder
	cache       *Cache
	concurrency int
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("GeoService")
		}
	}
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithConcurrency bounds how many labels are geocoded at once.
func WithConcurrency(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func NewService(posts PostSource, geocoder Geocoder, cache *Cache, opts ...ServiceOption) *Service {
	s := &Service{
		posts:       posts,
		geocoder:    geocoder,
		cache:       cache,
		concurrency: 2,
		logger:      zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Locations groups the current posts. With resolve set every location is
// geocoded; places that cannot be resolved are returned without a point.
func (s *Service) Locations(ctx context.Context, resolve bool) (*Result, error) {
	locations, stats := Group(s.posts.Posts())
	res := &Result{Locations: locations, Stats: stats}
	if !resolve {
		for _, loc := range locations {
			if p, ok := s.cache.Get(loc.Label); ok {
				loc.Point = p
				res.Resolved++
			}
		}
		return res, nil
	}
	n, err := s.ResolveAll(ctx, locations)
	if err != nil {
		return nil, err
	}
	res.Resolved = n
	return res, nil
}

// Resolve returns the cached point for label or asks the geocoder.
func (s *Service) Resolve(ctx context.Context, label string) (*models.GeoPoint, error) {
	if p, ok := s.cache.Get(label); ok {
		s.metrics.GeocodeLookup("cached")
		return p, nil
	}
	p, err := s.geocoder.Geocode(ctx, label)
	if err != nil {
		s.metrics.GeocodeLookup("failed")
		return nil, err
	}
	if p == nil {
		s.metrics.GeocodeLookup("empty")
		return nil, nil
	}
	s.metrics.GeocodeLookup("resolved")
	s.cache.Put(label, *p)
	return p, nil
}

// ResolveAll geocodes locations with bounded concurrency and sets their
// points. Labels that fail after retries are skipped. Only cancellation of
// ctx aborts the run. The cache is persisted afterwards.
func (s *Service) ResolveAll(ctx context.Context, locations []*models.Location) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	var resolved atomic.Int64

	for _, loc := range locations {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := s.Resolve(gctx, loc.Label)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.logger.Warn("geocode skipped", zap.String("label", loc.Label), zap.Error(err))
				return nil
			}
			if p != nil {
				loc.Point = p
				resolved.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()
	if flushErr := s.cache.Flush(context.WithoutCancel(ctx)); flushErr != nil {
		s.logger.Warn("geocode cache not saved", zap.Error(flushErr))
	}
	return int(resolved.Load()), err
}

// Warm resolves every current location so later map requests hit the cache.
func (s *Service) Warm(ctx context.Context) error {
	locations, _ := Group(s.posts.Posts())
	n, err := s.ResolveAll(ctx, locations)
	s.logger.Info("geocode cache warmed", zap.Int("locations", len(locations)), zap.Int("resolved", n), zap.Int("cached", s.cache.Len()))
	return err
}
