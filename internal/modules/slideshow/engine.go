package slideshow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mx-space/memory-explorer/internal/models"
	"go.uber.org/zap"
)

// DefaultIntervalMs is the advance speed used when none or an invalid one is given.
const DefaultIntervalMs = 5000

var (
	ErrNoSlides   = errors.New("no slides to play")
	ErrNotPlaying = errors.New("slideshow is not running")
)

type Status string

const (
	StatusIdle     Status = "idle"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Snapshot is the visible state of the engine.
type Snapshot struct {
	Status     Status        `json:"status"`
	Index      int           `json:"index"`
	Total      int           `json:"total"`
	Counter    string        `json:"counter"`
	Slide      *models.Slide `json:"slide,omitempty"`
	ImageSrc   string        `json:"imageSrc,omitempty"`
	Caption    string        `json:"caption"`
	Loading    bool          `json:"loading"`
	IntervalMs int           `json:"intervalMs"`
	Token      uint64        `json:"token"`
	CanReplay  bool          `json:"canReplay"`
}

// Engine plays a slide sequence. Every showSlide advances a generation token;
// image loads and timer callbacks carry the token they were started with and
// are ignored once it is stale. At most one timer is pending at any time.
type Engine struct {
	mu       sync.Mutex
	clock    Clock
	loader   ImageLoader
	spawn    func(func())
	notify   func(Snapshot)
	logger   *zap.Logger
	interval time.Duration

	slides  []models.Slide
	index   int
	status  Status
	token   uint64
	loading bool
	timer   Timer
	cache   map[string]string
	pending map[string]struct{}
	src     string
	caption string
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option configures an Engine.
type Option func(*Engine)

func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

func WithLoader(l ImageLoader) Option { return func(e *Engine) { e.loader = l } }

// WithSpawn sets how image work is started. The default runs each job on its
// own goroutine.
func WithSpawn(spawn func(func())) Option { return func(e *Engine) { e.spawn = spawn } }

// WithNotify registers a callback that receives every state change.
func WithNotify(fn func(Snapshot)) Option { return func(e *Engine) { e.notify = fn } }

func WithIntervalMs(ms int) Option {
	return func(e *Engine) { e.interval = intervalFromMs(ms) }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l.Named("Slideshow")
		}
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		clock:    realClock{},
		loader:   PassThrough{},
		spawn:    func(f func()) { go f() },
		logger:   zap.NewNop(),
		interval: intervalFromMs(DefaultIntervalMs),
		status:   StatusIdle,
		cache:    map[string]string{},
		pending:  map[string]struct{}{},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func intervalFromMs(ms int) time.Duration {
	if ms <= 0 {
		ms = DefaultIntervalMs
	}
	return time.Duration(ms) * time.Millisecond
}

// Play starts slides from the first one.
func (e *Engine) Play(slides []models.Slide) error {
	if len(slides) == 0 {
		return ErrNoSlides
	}
	e.mu.Lock()
	e.slides = append([]models.Slide(nil), slides...)
	e.renewContextLocked()
	jobs := e.showLocked(0, false)
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.emit(snap)
	e.run(jobs)
	return nil
}

// Next shows the following slide, wrapping after the last one.
func (e *Engine) Next() error { return e.navigate(func(i int) int { return i + 1 }) }

// Previous shows the preceding slide, wrapping before the first one.
func (e *Engine) Previous() error { return e.navigate(func(i int) int { return i - 1 }) }

// Jump shows slide index modulo the slide count.
func (e *Engine) Jump(index int) error { return e.navigate(func(int) int { return index }) }

// Replay restarts the current sequence from the first slide.
func (e *Engine) Replay() error {
	e.mu.Lock()
	if len(e.slides) == 0 {
		e.mu.Unlock()
		return ErrNoSlides
	}
	e.renewContextLocked()
	jobs := e.showLocked(0, false)
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.emit(snap)
	e.run(jobs)
	return nil
}

func (e *Engine) navigate(target func(current int) int) error {
	e.mu.Lock()
	if len(e.slides) == 0 {
		e.mu.Unlock()
		return ErrNoSlides
	}
	if e.status == StatusIdle {
		e.mu.Unlock()
		return ErrNotPlaying
	}
	jobs := e.showLocked(target(e.index), false)
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.emit(snap)
	e.run(jobs)
	return nil
}

// SetIntervalMs changes the advance speed. Non-positive values fall back to
// the default. A running timer is restarted with the new speed.
func (e *Engine) SetIntervalMs(ms int) int {
	e.mu.Lock()
	e.interval = intervalFromMs(ms)
	if e.status == StatusPlaying && !e.loading {
		e.startTimerLocked()
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.emit(snap)
	return snap.IntervalMs
}

// Stop hides the slideshow. In-flight image work is cancelled and its
// results no longer affect the visible state.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopTimerLocked()
	e.token++
	e.loading = false
	e.status = StatusIdle
	if e.cancel != nil {
		e.cancel()
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.emit(snap)
}

// Snapshot returns the current visible state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) renewContextLocked() {
	if e.ctx == nil || e.ctx.Err() != nil {
		e.ctx, e.cancel = context.WithCancel(context.Background())
	}
}

// showLocked moves to index. Timer-driven moves past the end finish the
// show instead of wrapping. It returns image jobs to start after unlocking.
func (e *Engine) showLocked(index int, auto bool) []func() {
	n := len(e.slides)
	if auto && index >= n {
		e.stopTimerLocked()
		e.token++
		e.loading = false
		e.status = StatusFinished
		return nil
	}

	i := Wrap(index, n)
	e.index = i
	e.token++
	e.stopTimerLocked()
	e.status = StatusPlaying
	e.caption = ""
	tok := e.token

	var jobs []func()
	current := e.slides[i].ImageURL
	if src, ok := e.cache[current]; ok {
		e.src = src
		e.finishLocked()
	} else {
		e.src = current
		e.loading = true
		jobs = append(jobs, e.loadJobLocked(tok, current, true))
	}

	if i+1 < n {
		next := e.slides[i+1].ImageURL
		_, cached := e.cache[next]
		_, inFlight := e.pending[next]
		if !cached && !inFlight && next != current {
			jobs = append(jobs, e.loadJobLocked(tok, next, false))
		}
	}
	return jobs
}

func (e *Engine) loadJobLocked(tok uint64, url string, current bool) func() {
	ctx := e.ctx
	e.pending[url] = struct{}{}
	return func() {
		src, err := e.loader.Load(ctx, url)
		e.complete(tok, url, current, src, err)
	}
}

func (e *Engine) complete(tok uint64, url string, current bool, src string, err error) {
	e.mu.Lock()
	delete(e.pending, url)
	if err == nil && src != "" {
		e.cache[url] = src
	}
	if !current || tok != e.token || e.status != StatusPlaying {
		e.mu.Unlock()
		return
	}
	if err != nil {
		e.logger.Debug("slide image failed", zap.String("url", url), zap.Error(err))
	} else if src != "" {
		e.src = src
	}
	e.finishLocked()
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.emit(snap)
}

// finishLocked reveals the caption and arms the advance timer.
func (e *Engine) finishLocked() {
	e.loading = false
	e.caption = e.slides[e.index].Caption
	if e.status == StatusPlaying {
		e.startTimerLocked()
	}
}

func (e *Engine) startTimerLocked() {
	e.stopTimerLocked()
	tok := e.token
	e.timer = e.clock.AfterFunc(e.interval, func() { e.tick(tok) })
}

func (e *Engine) stopTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *Engine) tick(tok uint64) {
	e.mu.Lock()
	if tok != e.token || e.status != StatusPlaying {
		e.mu.Unlock()
		return
	}
	e.timer = nil
	jobs := e.showLocked(e.index+1, true)
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.emit(snap)
	e.run(jobs)
}

func (e *Engine) snapshotLocked() Snapshot {
	s := Snapshot{
		Status:     e.status,
		Index:      e.index,
		Total:      len(e.slides),
		Caption:    e.caption,
		Loading:    e.loading,
		IntervalMs: int(e.interval / time.Millisecond),
		Token:      e.token,
		CanReplay:  e.status == StatusFinished,
	}
	if len(e.slides) > 0 && e.status != StatusIdle {
		slide := e.slides[e.index]
		s.Slide = &slide
		s.ImageSrc = e.src
		s.Counter = fmt.Sprintf("%d / %d", e.index+1, len(e.slides))
	}
	return s
}

func (e *Engine) emit(s Snapshot) {
	if e.notify != nil {
		e.notify(s)
	}
}

func (e *Engine) run(jobs []func()) {
	for _, job := range jobs {
		e.spawn(job)
	}
}
