package customfilter

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mx-space/memory-explorer/internal/models"
	"github.com/mx-space/memory-explorer/internal/pkg/kv"
	"go.uber.org/zap"
)

var (
	ErrNameRequired = errors.New("custom filter name is required")
	ErrNoCriteria   = errors.New("custom filter needs at least one criterion")
	ErrNotFound     = errors.New("custom filter not found")
)

// Notice maps service errors to the text shown to the user.
func Notice(err error) string {
	switch {
	case errors.Is(err, ErrNameRequired):
		return "Please give your custom filter a name."
	case errors.Is(err, ErrNoCriteria):
		return "Select at least one person, event, city, or year."
	case errors.Is(err, ErrNotFound):
		return "Custom filter not found."
	default:
		return "Could not update custom filters."
	}
}

// Service persists the custom filter list as one JSON array.
type Service struct {
	store  kv.Store
	logger *zap.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// ServiceOption configures a custom filter Service.
type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("CustomFilterService")
		}
	}
}

// WithClock overrides the time source used for createdAt.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(store kv.Store, opts ...ServiceOption) *Service {
	s := &Service{store: store, logger: zap.NewNop(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) load(ctx context.Context) ([]models.CustomFilter, error) {
	filters, ok, err := kv.LoadJSON[[]models.CustomFilter](ctx, s.store, kv.KeyCustomFilters)
	if errors.Is(err, kv.ErrMalformed) {
		s.logger.Warn("custom filters corrupt, treating as empty", zap.String("key", kv.KeyCustomFilters), zap.Error(err))
		err = nil
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return []models.CustomFilter{}, nil
	}
	out := filters[:0]
	for _, f := range filters {
		if strings.TrimSpace(f.Name) != "" {
			out = append(out, f)
		}
	}
	return out, nil
}

// List returns the saved filters, newest first.
func (s *Service) List(ctx context.Context) ([]models.CustomFilter, error) {
	filters, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(filters, func(i, j int) bool {
		return filters[i].CreatedAt > filters[j].CreatedAt
	})
	return filters, nil
}

// Get finds a filter by name, case-insensitively.
func (s *Service) Get(ctx context.Context, name string) (*models.CustomFilter, error) {
	filters, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range filters {
		if filters[i].SameName(name) {
			f := filters[i]
			return &f, nil
		}
	}
	return nil, ErrNotFound
}

// Save creates or replaces the filter with the same name and stamps createdAt.
func (s *Service) Save(ctx context.Context, input models.CustomFilter) (*models.CustomFilter, error) {
	f := models.CustomFilter{
		Name:   strings.TrimSpace(input.Name),
		Years:  distinct(input.Years),
		People: distinct(input.People),
		Cities: distinct(input.Cities),
		Events: distinct(input.Events),
	}
	if f.Name == "" {
		return nil, ErrNameRequired
	}
	if !f.HasCriteria() {
		return nil, ErrNoCriteria
	}
	f.CreatedAt = s.now().UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()

	filters, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	replaced := false
	for i := range filters {
		if filters[i].SameName(f.Name) {
			filters[i] = f
			replaced = true
			break
		}
	}
	if !replaced {
		filters = append(filters, f)
	}
	if err := kv.SaveJSON(ctx, s.store, kv.KeyCustomFilters, filters); err != nil {
		return nil, err
	}
	s.logger.Info("custom filter saved", zap.String("name", f.Name), zap.Bool("replaced", replaced))
	return &f, nil
}

// Delete removes the filter with the given name.
func (s *Service) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	filters, err := s.load(ctx)
	if err != nil {
		return err
	}
	kept := make([]models.CustomFilter, 0, len(filters))
	for _, f := range filters {
		if !f.SameName(name) {
			kept = append(kept, f)
		}
	}
	if len(kept) == len(filters) {
		return ErrNotFound
	}
	return kv.SaveJSON(ctx, s.store, kv.KeyCustomFilters, kept)
}

func distinct(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
