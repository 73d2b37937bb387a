package ranking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mx-space/memory-explorer/internal/models"
	"github.com/mx-space/memory-explorer/internal/pkg/metrics"
	"go.uber.org/zap"
)

var (
	ErrEmptyQuery = errors.New("empty search query")
	ErrNoContent  = errors.New("no posts to search")
)

// Outcome tells how a result was produced.
type Outcome string

const (
	OutcomeAI       Outcome = "ai"
	OutcomeFallback Outcome = "fallback"
	OutcomeNoKey    Outcome = "no_key"
)

const (
	NoticeEmptyQuery  = "Enter a search to run AI search."
	NoticeNoContent   = "No content to search."
	NoticeUnavailable = "AI unavailable, showing local matches."
	NoticeNoKey       = "Add an OpenAI API key to use AI search. Showing local matches."
)

// Result is an ordered id list ready to become the AI filter mode.
type Result struct {
	Query   string   `json:"query"`
	IDs     []string `json:"ids"`
	Outcome Outcome  `json:"outcome"`
	Notice  string   `json:"notice"`
}

// Notice maps a Search error to the message shown to the user.
func Notice(err error) string {
	switch {
	case errors.Is(err, ErrEmptyQuery):
		return NoticeEmptyQuery
	case errors.Is(err, ErrNoContent):
		return NoticeNoContent
	default:
		return NoticeUnavailable
	}
}

type Service struct {
	provider       Provider
	credentials    *Credentials
	candidateLimit int
	defaultTopN    int
	timeout        time.Duration
	metrics        *metrics.Metrics
	logger         *zap.Logger
}

type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("RankingService")
		}
	}
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func WithCandidateLimit(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.candidateLimit = n
		}
	}
}

func WithDefaultTopN(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.defaultTopN = n
		}
	}
}

func WithTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewService(provider Provider, credentials *Credentials, opts ...ServiceOption) *Service {
	s := &Service{
		provider:       provider,
		credentials:    credentials,
		candidateLimit: DefaultCandidateLimit,
		defaultTopN:    DefaultTopN,
		timeout:        30 * time.Second,
		logger:         zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Search ranks posts for query. Provider failures, a missing key or an
// empty answer never fail the search: the local top-N is returned with a
// notice instead. Only an empty query or an empty post list are errors.
func (s *Service) Search(ctx context.Context, query string, topN int, posts []*models.Post) (*Result, error) {
	terms := Terms(query)
	if len(terms) == 0 {
		return nil, ErrEmptyQuery
	}
	if len(posts) == 0 {
		return nil, ErrNoContent
	}
	topN = ClampTopN(topN, s.defaultTopN)
	candidates := BuildCandidates(RankLocal(posts, query), s.candidateLimit)
	local := candidateIDs(candidates, topN)

	var key string
	if s.credentials != nil {
		key = s.credentials.Resolve(ctx)
	}
	if key == "" || s.provider == nil {
		s.metrics.RankingRequest(string(OutcomeNoKey))
		return &Result{Query: query, IDs: local, Outcome: OutcomeNoKey, Notice: NoticeNoKey}, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ids, err := s.provider.Rank(callCtx, key, Request{Query: query, TopN: topN, Candidates: candidates})
	if err != nil {
		s.logger.Warn("AI ranking failed, using local ranking", zap.String("query", query), zap.Error(err))
		s.metrics.RankingRequest(string(OutcomeFallback))
		return &Result{Query: query, IDs: local, Outcome: OutcomeFallback, Notice: NoticeUnavailable}, nil
	}
	if len(ids) == 0 {
		s.logger.Info("AI ranking returned no ids, using candidate order", zap.String("query", query))
		s.metrics.RankingRequest(string(OutcomeFallback))
		return &Result{Query: query, IDs: local, Outcome: OutcomeFallback, Notice: NoticeUnavailable}, nil
	}
	if len(ids) > topN {
		ids = ids[:topN]
	}
	s.metrics.RankingRequest(string(OutcomeAI))
	return &Result{
		Query:   query,
		IDs:     ids,
		Outcome: OutcomeAI,
		Notice:  fmt.Sprintf("AI search applied %d results.", len(ids)),
	}, nil
}
