package geo

import (
	"context"
	"errors"
	"sync"

	"github.com/mx-space/memory-explorer/internal/models"
	"github.com/mx-space/memory-explorer/internal/pkg/kv"
	"go.uber.org/zap"
)

// Cache keeps resolved points by label and persists them as one JSON
// object. Only successful lookups are cached.
type Cache struct {
	store  kv.Store
	logger *zap.Logger

	mu     sync.RWMutex
	points map[string]models.GeoPoint
	dirty  bool
}

func NewCache(store kv.Store, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{store: store, logger: logger, points: map[string]models.GeoPoint{}}
}

// Load replaces the cached points with the persisted ones. A malformed
// value is treated as an empty cache.
func (c *Cache) Load(ctx context.Context) error {
	points, ok, err := kv.LoadJSON[map[string]models.GeoPoint](ctx, c.store, kv.KeyGeoCache)
	if errors.Is(err, kv.ErrMalformed) {
		c.logger.Warn("geocode cache corrupt, starting empty", zap.String("key", kv.KeyGeoCache), zap.Error(err))
		err = nil
	}
	if err != nil {
		return err
	}
	if !ok || points == nil {
		points = map[string]models.GeoPoint{}
	}
	c.mu.Lock()
	c.points = points
	c.dirty = false
	c.mu.Unlock()
	return nil
}

func (c *Cache) Get(label string) (*models.GeoPoint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.points[label]
	if !ok {
		return nil, false
	}
	return &p, true
}

func (c *Cache) Put(label string, p models.GeoPoint) {
	c.mu.Lock()
	c.points[label] = p
	c.dirty = true
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.points)
}

// Flush writes the cache back when it changed since the last load or flush.
func (c *Cache) Flush(ctx context.Context) error {
	c.mu.Lock()
	if !c.dirty {
		c.mu.Unlock()
		return nil
	}
	snapshot := make(map[string]models.GeoPoint, len(c.points))
	for k, v := range c.points {
		snapshot[k] = v
	}
	c.dirty = false
	c.mu.Unlock()

	if err := kv.SaveJSON(ctx, c.store, kv.KeyGeoCache, snapshot); err != nil {
		c.mu.Lock()
		c.dirty = true
		c.mu.Unlock()
		return err
	}
	c.logger.Debug("geocode cache saved", zap.Int("entries", len(snapshot)))
	return nil
}
