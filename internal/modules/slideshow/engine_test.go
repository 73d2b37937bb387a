package slideshow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mx-space/memory-explorer/internal/models"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) pending() []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// fire runs the single pending timer.
func (c *fakeClock) fire(t *testing.T) {
	t.Helper()
	pending := c.pending()
	require.Len(t, pending, 1, "exactly one timer must be pending")
	pending[0].fired = true
	pending[0].f()
}

type countingLoader struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
}

func (l *countingLoader) Load(_ context.Context, url string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.calls == nil {
		l.calls = map[string]int{}
	}
	l.calls[url]++
	if l.fail[url] {
		return "", errors.New("broken image")
	}
	return "processed:" + url, nil
}

func makeSlides(n int) []models.Slide {
	slides := make([]models.Slide, n)
	for i := range slides {
		slides[i] = models.Slide{ImageURL: "img" + string(rune('0'+i)), Caption: "caption " + string(rune('0'+i))}
	}
	return slides
}

func syncEngine(clock Clock, loader ImageLoader, opts ...Option) *Engine {
	base := []Option{WithClock(clock), WithLoader(loader), WithSpawn(func(f func()) { f() })}
	return NewEngine(append(base, opts...)...)
}

func TestPlayShowsFirstSlideAndArmsTimer(t *testing.T) {
	clock := &fakeClock{}
	loader := &countingLoader{}
	e := syncEngine(clock, loader)

	require.ErrorIs(t, e.Play(nil), ErrNoSlides)
	require.NoError(t, e.Play(makeSlides(3)))

	s := e.Snapshot()
	require.Equal(t, StatusPlaying, s.Status)
	require.Equal(t, 0, s.Index)
	require.False(t, s.Loading)
	require.Equal(t, "caption 0", s.Caption)
	require.Equal(t, "processed:img0", s.ImageSrc)
	require.Equal(t, "1 / 3", s.Counter)
	require.Equal(t, 1, loader.calls["img1"], "next slide is preloaded")

	pending := clock.pending()
	require.Len(t, pending, 1)
	require.Equal(t, DefaultIntervalMs*time.Millisecond, pending[0].d)
}

func TestAutoAdvanceFinishesInsteadOfWrapping(t *testing.T) {
	clock := &fakeClock{}
	e := syncEngine(clock, &countingLoader{})
	require.NoError(t, e.Play(makeSlides(3)))

	clock.fire(t)
	require.Equal(t, 1, e.Snapshot().Index)
	clock.fire(t)
	require.Equal(t, 2, e.Snapshot().Index)
	clock.fire(t)

	s := e.Snapshot()
	require.Equal(t, StatusFinished, s.Status)
	require.Equal(t, 2, s.Index)
	require.True(t, s.CanReplay)
	require.Empty(t, clock.pending())

	require.NoError(t, e.Next())
	s = e.Snapshot()
	require.Equal(t, StatusPlaying, s.Status)
	require.Equal(t, 0, s.Index)
}

func TestManualNextWrapsFromLastSlide(t *testing.T) {
	e := syncEngine(&fakeClock{}, &countingLoader{})
	require.NoError(t, e.Play(makeSlides(3)))
	require.NoError(t, e.Jump(2))
	require.NoError(t, e.Next())
	require.Equal(t, 0, e.Snapshot().Index)
	require.NoError(t, e.Previous())
	require.Equal(t, 2, e.Snapshot().Index)
}

func TestJumpWrapsBothDirections(t *testing.T) {
	e := syncEngine(&fakeClock{}, &countingLoader{})
	require.NoError(t, e.Play(makeSlides(5)))

	require.NoError(t, e.Jump(-1))
	require.Equal(t, 4, e.Snapshot().Index)
	require.NoError(t, e.Jump(5))
	require.Equal(t, 0, e.Snapshot().Index)
	require.NoError(t, e.Jump(-6))
	require.Equal(t, 4, e.Snapshot().Index)
}

func TestNavigationCancelsAndRestartsTimer(t *testing.T) {
	clock := &fakeClock{}
	e := syncEngine(clock, &countingLoader{})
	require.NoError(t, e.Play(makeSlides(4)))

	first := clock.pending()
	require.Len(t, first, 1)
	require.NoError(t, e.Next())
	require.True(t, first[0].stopped)
	require.Len(t, clock.pending(), 1)
}

func TestSetIntervalRestartsTimer(t *testing.T) {
	clock := &fakeClock{}
	e := syncEngine(clock, &countingLoader{})
	require.NoError(t, e.Play(makeSlides(3)))

	require.Equal(t, 2000, e.SetIntervalMs(2000))
	pending := clock.pending()
	require.Len(t, pending, 1)
	require.Equal(t, 2*time.Second, pending[0].d)

	require.Equal(t, DefaultIntervalMs, e.SetIntervalMs(-5))
}

func TestStaleLoadIsDiscarded(t *testing.T) {
	clock := &fakeClock{}
	loader := &countingLoader{}
	var queued []func()
	e := NewEngine(WithClock(clock), WithLoader(loader), WithSpawn(func(f func()) { queued = append(queued, f) }))

	require.NoError(t, e.Play(makeSlides(3)))
	require.True(t, e.Snapshot().Loading)
	require.NoError(t, e.Next())

	// The first job is the load started for slide 0 before navigating away.
	queued[0]()
	s := e.Snapshot()
	require.Equal(t, 1, s.Index)
	require.True(t, s.Loading)
	require.Empty(t, s.Caption)
	require.Equal(t, "img1", s.ImageSrc)
	require.Empty(t, clock.pending())

	for _, job := range queued[1:] {
		job()
	}
	s = e.Snapshot()
	require.False(t, s.Loading)
	require.Equal(t, "caption 1", s.Caption)
	require.Equal(t, "processed:img1", s.ImageSrc)
	require.Len(t, clock.pending(), 1)

	// Slide 0 was cached by the stale load, so going back needs no new load.
	require.NoError(t, e.Previous())
	require.Equal(t, 1, loader.calls["img0"])
	require.False(t, e.Snapshot().Loading)
}

func TestIntervalChangeWhileLoadingWaitsForImage(t *testing.T) {
	clock := &fakeClock{}
	var queued []func()
	e := NewEngine(WithClock(clock), WithLoader(&countingLoader{}), WithSpawn(func(f func()) { queued = append(queued, f) }))

	require.NoError(t, e.Play(makeSlides(2)))
	e.SetIntervalMs(1000)
	require.Empty(t, clock.pending())

	queued[0]()
	pending := clock.pending()
	require.Len(t, pending, 1)
	require.Equal(t, time.Second, pending[0].d)
}

func TestStopDiscardsPendingWork(t *testing.T) {
	clock := &fakeClock{}
	var queued []func()
	e := NewEngine(WithClock(clock), WithLoader(&countingLoader{}), WithSpawn(func(f func()) { queued = append(queued, f) }))

	require.NoError(t, e.Play(makeSlides(3)))
	e.Stop()
	for _, job := range queued {
		job()
	}
	s := e.Snapshot()
	require.Equal(t, StatusIdle, s.Status)
	require.False(t, s.Loading)
	require.Nil(t, s.Slide)
	require.Empty(t, clock.pending())
	require.ErrorIs(t, e.Next(), ErrNotPlaying)

	require.NoError(t, e.Replay())
	require.Equal(t, StatusPlaying, e.Snapshot().Status)
}

func TestFailedImageStillAdvances(t *testing.T) {
	clock := &fakeClock{}
	loader := &countingLoader{fail: map[string]bool{"img0": true}}
	e := syncEngine(clock, loader)

	require.NoError(t, e.Play(makeSlides(2)))
	s := e.Snapshot()
	require.False(t, s.Loading)
	require.Equal(t, "img0", s.ImageSrc)
	require.Equal(t, "caption 0", s.Caption)
	require.Len(t, clock.pending(), 1)
}

func TestReplayRestartsFromFirstSlide(t *testing.T) {
	clock := &fakeClock{}
	e := syncEngine(clock, &countingLoader{})
	require.NoError(t, e.Play(makeSlides(2)))
	clock.fire(t)
	clock.fire(t)
	require.Equal(t, StatusFinished, e.Snapshot().Status)

	require.NoError(t, e.Replay())
	s := e.Snapshot()
	require.Equal(t, StatusPlaying, s.Status)
	require.Equal(t, 0, s.Index)
}

func TestNotifyReceivesSnapshots(t *testing.T) {
	var got []Snapshot
	e := syncEngine(&fakeClock{}, &countingLoader{}, WithNotify(func(s Snapshot) { got = append(got, s) }))
	require.NoError(t, e.Play(makeSlides(2)))
	require.GreaterOrEqual(t, len(got), 2)
	require.True(t, got[0].Loading)
	require.False(t, got[len(got)-1].Loading)
}
