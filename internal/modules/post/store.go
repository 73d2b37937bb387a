package post

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mx-space/memory-explorer/internal/models"
	"go.uber.org/zap"
)

// ErrDataUnavailable is returned when no source yields a posts document.
var ErrDataUnavailable = errors.New("posts data unavailable")

// Stats are the aggregate counts shown with the gallery.
type Stats struct {
	Posts  int `json:"posts"`
	People int `json:"people"`
	Cities int `json:"cities"`
}

// Facets are the values offered by the filter controls.
type Facets struct {
	Years  []string `json:"years"`
	People []string `json:"people"`
	Cities []string `json:"cities"`
	Events []string `json:"events"`
}

// Store holds the loaded posts sorted by date descending. A load swaps the
// whole snapshot; posts themselves are never mutated.
type Store struct {
	sources []Source
	logger  *zap.Logger

	mu         sync.RWMutex
	posts      []*models.Post
	index      map[string]*models.Post
	loadedFrom string
	loadedAt   time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger for the post store.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l.Named("PostStore")
		}
	}
}

func NewStore(sources []Source, opts ...StoreOption) *Store {
	s := &Store{sources: sources, logger: zap.NewNop(), index: map[string]*models.Post{}}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load tries each source in order and keeps the first document that decodes.
// On failure the previous snapshot stays in place.
func (s *Store) Load(ctx context.Context) error {
	var lastErr error
	for _, src := range s.sources {
		data, err := src.Fetch(ctx)
		if err != nil {
			s.logger.Debug("post source unavailable", zap.String("source", src.Name()), zap.Error(err))
			lastErr = err
			continue
		}
		posts, err := Decode(data)
		if err != nil {
			s.logger.Warn("post source is not a valid document", zap.String("source", src.Name()), zap.Error(err))
			lastErr = err
			continue
		}
		s.Replace(posts)
		s.mu.Lock()
		s.loadedFrom = src.Name()
		s.mu.Unlock()
		s.logger.Info("posts loaded", zap.String("source", src.Name()), zap.Int("count", len(posts)))
		return nil
	}
	if lastErr == nil {
		return ErrDataUnavailable
	}
	return fmt.Errorf("%w: %v", ErrDataUnavailable, lastErr)
}

// Replace installs posts as the current snapshot. posts must already be
// normalized and sorted, as returned by Decode.
func (s *Store) Replace(posts []*models.Post) {
	index := make(map[string]*models.Post, len(posts))
	for _, p := range posts {
		index[p.ID] = p
	}
	// Deep links address posts by their canonical url.
	for _, p := range posts {
		if _, taken := index[p.URL]; p.URL != "" && !taken {
			index[p.URL] = p
		}
	}
	s.mu.Lock()
	s.posts = posts
	s.index = index
	s.loadedAt = time.Now()
	s.mu.Unlock()
}

// Posts returns the current snapshot. Callers must not modify it.
func (s *Store) Posts() []*models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.posts
}

// Lookup finds a post by id or canonical url.
func (s *Store) Lookup(id string) (*models.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.index[id]
	return p, ok
}

// Loaded reports the source of the current snapshot and when it was installed.
func (s *Store) Loaded() (string, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedFrom, s.loadedAt
}

func (s *Store) Stats() Stats {
	return ComputeStats(s.Posts())
}

func (s *Store) Facets() Facets {
	return ComputeFacets(s.Posts())
}

// Decode parses a posts document, normalizes every post, drops posts without
// identity and duplicate ids, and sorts the result.
func Decode(data []byte) ([]*models.Post, error) {
	var raw []models.Post
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	seen := make(map[string]struct{}, len(raw))
	posts := make([]*models.Post, 0, len(raw))
	for i := range raw {
		p := &raw[i]
		if !p.Normalize() {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		posts = append(posts, p)
	}
	SortByDate(posts)
	return posts, nil
}

// SortByDate orders posts by date descending using plain string comparison.
// Missing dates compare as "" and sink to the end in their original order.
func SortByDate(posts []*models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Date > posts[j].Date
	})
}

func ComputeStats(posts []*models.Post) Stats {
	people := map[string]struct{}{}
	cities := map[string]struct{}{}
	for _, p := range posts {
		for _, person := range p.People {
			people[person] = struct{}{}
		}
		if p.LocationCity != "" {
			cities[p.LocationCity] = struct{}{}
		}
	}
	return Stats{Posts: len(posts), People: len(people), Cities: len(cities)}
}

// ComputeFacets collects filter options: years descending, people by
// frequency (ties keep first-seen order), cities and events ascending.
func ComputeFacets(posts []*models.Post) Facets {
	years := map[string]struct{}{}
	cities := map[string]struct{}{}
	events := map[string]struct{}{}
	peopleCount := map[string]int{}
	var peopleOrder []string

	for _, p := range posts {
		if y := p.Year(); y != "" {
			years[y] = struct{}{}
		}
		if p.LocationCity != "" {
			cities[p.LocationCity] = struct{}{}
		}
		for _, e := range p.Events {
			events[e] = struct{}{}
		}
		for _, person := range p.People {
			if _, ok := peopleCount[person]; !ok {
				peopleOrder = append(peopleOrder, person)
			}
			peopleCount[person]++
		}
	}

	f := Facets{
		Years:  sortedKeys(years),
		People: peopleOrder,
		Cities: sortedKeys(cities),
		Events: sortedKeys(events),
	}
	sort.Sort(sort.Reverse(sort.StringSlice(f.Years)))
	if f.People == nil {
		f.People = []string{}
	}
	sort.SliceStable(f.People, func(i, j int) bool {
		return peopleCount[f.People[i]] > peopleCount[f.People[j]]
	})
	return f
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
