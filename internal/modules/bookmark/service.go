package bookmark

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mx-space/memory-explorer/internal/pkg/kv"
	"go.uber.org/zap"
)

// retryDelay spaces out reload attempts from Has after a failed load.
const retryDelay = 30 * time.Second

// Service tracks the bookmarked post ids. The set is cached in memory and
// written through to the store on every toggle.
type Service struct {
	store  kv.Store
	logger *zap.Logger

	mu      sync.RWMutex
	ids     []string
	set     map[string]struct{}
	loaded  bool
	retryAt time.Time
	now     func() time.Time
}

// ServiceOption configures a bookmark Service.
type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("BookmarkService")
		}
	}
}

// WithClock overrides the time source used to space out reload retries.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(store kv.Store, opts ...ServiceOption) *Service {
	s := &Service{store: store, logger: zap.NewNop(), set: map[string]struct{}{}, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Reload replaces the cached set with the persisted one. Corrupt data
// yields an empty set.
func (s *Service) Reload(ctx context.Context) error {
	ids, ok, err := kv.LoadJSON[[]string](ctx, s.store, kv.KeyBookmarks)
	if errors.Is(err, kv.ErrMalformed) {
		s.logger.Warn("bookmarks corrupt, treating as empty", zap.String("key", kv.KeyBookmarks), zap.Error(err))
		err = nil
	}
	if err != nil {
		return err
	}
	if !ok {
		ids = nil
	}
	set := make(map[string]struct{}, len(ids))
	ordered := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := set[id]; dup {
			continue
		}
		set[id] = struct{}{}
		ordered = append(ordered, id)
	}

	s.mu.Lock()
	s.ids = ordered
	s.set = set
	s.loaded = true
	s.mu.Unlock()
	return nil
}

func (s *Service) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.Reload(ctx)
}

// Has reports whether id is bookmarked. It runs once per post during
// filtering, so after a failed load it retries at most every retryDelay
// and answers from the empty set meanwhile.
func (s *Service) Has(id string) bool {
	s.mu.RLock()
	loaded, retryAt := s.loaded, s.retryAt
	s.mu.RUnlock()
	if !loaded && !s.now().Before(retryAt) {
		if err := s.Reload(context.Background()); err != nil {
			s.mu.Lock()
			s.retryAt = s.now().Add(retryDelay)
			s.mu.Unlock()
			s.logger.Warn("bookmarks unavailable", zap.Error(err))
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.set[id]
	return ok
}

// IDs returns the bookmarked ids in the order they were added.
func (s *Service) IDs(ctx context.Context) ([]string, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.ids...), nil
}

// Toggle flips the bookmark for id and reports whether it is now saved.
func (s *Service) Toggle(ctx context.Context, id string) (bool, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.ids)+1)
	_, had := s.set[id]
	for _, existing := range s.ids {
		if existing != id {
			ids = append(ids, existing)
		}
	}
	if !had {
		ids = append(ids, id)
	}
	if err := kv.SaveJSON(ctx, s.store, kv.KeyBookmarks, ids); err != nil {
		return had, err
	}

	s.ids = ids
	if had {
		delete(s.set, id)
	} else {
		s.set[id] = struct{}{}
	}
	return !had, nil
}

// Toast is the notice shown after a toggle.
func Toast(saved bool) string {
	if saved {
		return "Saved to favorites"
	}
	return "Removed from favorites"
}
