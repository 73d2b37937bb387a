// Package explorer owns the per-session browsing state: filters, the post
// views derived from them, the detail page and the slideshow composer.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/mx-space/memory-explorer/internal/config"
	"github.com/mx-space/memory-explorer/internal/models"
	"github.com/mx-space/memory-explorer/internal/modules/post"
	"github.com/mx-space/memory-explorer/internal/modules/ranking"
	"github.com/mx-space/memory-explorer/internal/modules/slideshow"
	"github.com/mx-space/memory-explorer/internal/pkg/jwt"
	"github.com/mx-space/memory-explorer/internal/pkg/metrics"
	"github.com/mx-space/memory-explorer/internal/pkg/session"
	"go.uber.org/zap"
)

const (
	defaultPageSize  = 60
	defaultPageStep  = 40
	tokenTTL         = 24 * time.Hour
	noticeLoadFailed = "Failed to load posts_full.json"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrPostNotFound    = errors.New("post not found")
	ErrUnknownAction   = errors.New("unknown action")
	ErrNoActivePost    = errors.New("no post is open")
	// ErrSuperseded is returned by an AI search whose result was discarded
	// because a newer search or a filter reset happened meanwhile.
	ErrSuperseded = errors.New("search superseded")
)

// PostSource is the read side of the post store.
type PostSource interface {
	Posts() []*models.Post
	Lookup(id string) (*models.Post, bool)
	Stats() post.Stats
	Loaded() (string, time.Time)
}

type Bookmarks interface {
	Has(id string) bool
	Toggle(ctx context.Context, id string) (bool, error)
}

type CustomFilters interface {
	Get(ctx context.Context, name string) (*models.CustomFilter, error)
}

type Ranker interface {
	Search(ctx context.Context, query string, topN int, posts []*models.Post) (*ranking.Result, error)
}

// Notifier delivers session events to connected clients. Emit must not block.
type Notifier interface {
	Emit(room, event string, payload interface{})
}

type nopNotifier struct{}

func (nopNotifier) Emit(string, string, interface{}) {}

// Deps are the collaborators shared by every session.
type Deps struct {
	Posts     PostSource
	Bookmarks Bookmarks
	Filters   CustomFilters
	Ranker    Ranker
	Signer    *jwt.Signer
}

// Service creates sessions and routes requests to their controllers.
type Service struct {
	posts     PostSource
	bookmarks Bookmarks
	filters   CustomFilters
	ranker    Ranker
	signer    *jwt.Signer
	sessions  *session.Registry[*Controller]

	notifier      Notifier
	logger        *zap.Logger
	metrics       *metrics.Metrics
	pageSize      int
	pageStep      int
	aiConstraints bool
	engineOpts    []slideshow.Option
	intN          func(n int) int
}

type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("ExplorerService")
		}
	}
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithConfig applies the explorer settings.
func WithConfig(cfg config.ExplorerConfig) ServiceOption {
	return func(s *Service) {
		if cfg.PageSize > 0 {
			s.pageSize = cfg.PageSize
		}
		if cfg.PageStep > 0 {
			s.pageStep = cfg.PageStep
		}
		if cfg.SessionTTL > 0 {
			s.sessions = session.NewRegistry[*Controller](cfg.SessionTTL)
		}
		s.aiConstraints = cfg.AIModeConstraints == config.AIConstraintsApply
	}
}

// WithEngineOptions is passed to the slideshow engine of every session.
func WithEngineOptions(opts ...slideshow.Option) ServiceOption {
	return func(s *Service) { s.engineOpts = append(s.engineOpts, opts...) }
}

// WithRandom replaces the source used by OpenRandom.
func WithRandom(intN func(n int) int) ServiceOption {
	return func(s *Service) { s.intN = intN }
}

func NewService(deps Deps, opts ...ServiceOption) *Service {
	s := &Service{
		posts:     deps.Posts,
		bookmarks: deps.Bookmarks,
		filters:   deps.Filters,
		ranker:    deps.Ranker,
		signer:    deps.Signer,
		sessions:  session.NewRegistry[*Controller](session.DefaultTTL),
		notifier:  nopNotifier{},
		logger:    zap.NewNop(),
		pageSize:  defaultPageSize,
		pageStep:  defaultPageStep,
		intN:      rand.IntN,
	}
	if s.signer == nil {
		s.signer = jwt.NewSigner("")
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateRequest carries the query string a session is opened with.
type CreateRequest struct {
	Post string
	From string
	Lat  string
	Lon  string
	Zoom string
}

type Created struct {
	Token string `json:"token"`
	View  View   `json:"view"`
}

// Create opens a session. A post deep link opens its detail page; from=map
// remembers the viewport for the back button.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Created, error) {
	c := newController(s)
	id := s.sessions.Add(c)
	c.id = id

	token, err := s.signer.Sign(id, tokenTTL)
	if err != nil {
		s.sessions.Remove(id)
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	c.mu.Lock()
	if strings.EqualFold(req.From, "map") {
		c.state.mapReturn = ParseMapReturn(req.Lat, req.Lon, req.Zoom)
	}
	c.runLocked()
	if id := strings.TrimSpace(req.Post); id != "" {
		if p, ok := s.posts.Lookup(id); ok {
			c.openLocked(p)
		}
	}
	if _, at := s.posts.Loaded(); at.IsZero() {
		c.state.notice = noticeLoadFailed
	}
	view := c.viewLocked()
	c.mu.Unlock()

	s.metrics.SetSessions(s.sessions.Len())
	s.logger.Debug("session created", zap.String("session", id), zap.Bool("deepLink", view.Detail != nil))
	return &Created{Token: token, View: view}, nil
}

// Session resolves a token to its live controller.
func (s *Service) Session(token string) (*Controller, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return nil, err
	}
	c, ok := s.sessions.Get(claims.SessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return c, nil
}

// Validate maps a token to its session id, for the gateway handshake.
func (s *Service) Validate(token string) (string, bool) {
	c, err := s.Session(token)
	if err != nil {
		return "", false
	}
	return c.id, true
}

// End closes the session of c.
func (s *Service) End(c *Controller) {
	s.sessions.Remove(c.id)
	c.close()
	s.metrics.SetSessions(s.sessions.Len())
}

// Evict drops idle sessions and reports how many were removed.
func (s *Service) Evict() int {
	evicted := s.sessions.Evict()
	for _, c := range evicted {
		c.close()
	}
	s.metrics.SetSessions(s.sessions.Len())
	if len(evicted) > 0 {
		s.logger.Info("evicted idle sessions", zap.Int("count", len(evicted)))
	}
	return len(evicted)
}

// Refresh re-runs every session's filters, after the posts were reloaded.
func (s *Service) Refresh() {
	s.sessions.Each(func(_ string, c *Controller) {
		c.refresh()
	})
}

func (s *Service) Len() int { return s.sessions.Len() }
