package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/mx-space/memory-explorer/internal/config"
	"github.com/mx-space/memory-explorer/internal/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Geocoder resolves a place label. A nil point with a nil error means the
// place is unknown.
type Geocoder interface {
	Geocode(ctx context.Context, label string) (*models.GeoPoint, error)
}

// errUpstream marks a response that should be retried.
var errUpstream = errors.New("geocoder upstream error")

// Nominatim queries an OpenStreetMap Nominatim search endpoint. Transport
// failures and non-2xx responses are retried with exponential backoff; an
// empty result is final.
type Nominatim struct {
	endpoint  string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
	executor  failsafe.Executor[*models.GeoPoint]
	logger    *zap.Logger
}

type NominatimOption func(*Nominatim)

func WithHTTPClient(c *http.Client) NominatimOption {
	return func(n *Nominatim) {
		if c != nil {
			n.client = c
		}
	}
}

func WithNominatimLogger(l *zap.Logger) NominatimOption {
	return func(n *Nominatim) {
		if l != nil {
			n.logger = l.Named("Nominatim")
		}
	}
}

func NewNominatim(cfg config.GeocoderConfig, opts ...NominatimOption) *Nominatim {
	n := &Nominatim{
		endpoint:  cfg.Endpoint,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: 15 * time.Second},
		limiter:   newLimiter(cfg.RatePerSecond),
		executor:  failsafe.With(newRetryPolicy(cfg.MaxAttempts, cfg.BaseDelay)),
		logger:    zap.NewNop(),
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// newRetryPolicy allows attempts tries in total, doubling the delay from
// base after each failure.
func newRetryPolicy(attempts int, base time.Duration) retrypolicy.RetryPolicy[*models.GeoPoint] {
	if attempts < 1 {
		attempts = 1
	}
	builder := retrypolicy.NewBuilder[*models.GeoPoint]().
		AbortOnErrors(context.Canceled, context.DeadlineExceeded).
		WithMaxRetries(attempts - 1)
	if attempts > 2 {
		builder = builder.WithBackoff(base, base<<(attempts-2))
	} else {
		builder = builder.WithDelay(base)
	}
	return builder.Build()
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (n *Nominatim) Geocode(ctx context.Context, label string) (*models.GeoPoint, error) {
	point, err := n.executor.WithContext(ctx).Get(func() (*models.GeoPoint, error) {
		return n.search(ctx, label)
	})
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", label, err)
	}
	return point, nil
}

func (n *Nominatim) search(ctx context.Context, label string) (*models.GeoPoint, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("q", label)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Debug("geocode request failed", zap.String("label", label), zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", errUpstream, resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("%w: %v", errUpstream, err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad lat %q", errUpstream, results[0].Lat)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad lon %q", errUpstream, results[0].Lon)
	}
	return &models.GeoPoint{Lat: lat, Lon: lon}, nil
}
