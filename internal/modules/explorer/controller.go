package explorer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mx-space/memory-explorer/internal/models"
	"github.com/mx-space/memory-explorer/internal/modules/bookmark"
	"github.com/mx-space/memory-explorer/internal/modules/customfilter"
	"github.com/mx-space/memory-explorer/internal/modules/filter"
	"github.com/mx-space/memory-explorer/internal/modules/gateway"
	"github.com/mx-space/memory-explorer/internal/modules/ranking"
	"github.com/mx-space/memory-explorer/internal/modules/slideshow"
	"go.uber.org/zap"
)

// Action is one user intent. Only the fields the action type reads are set.
type Action struct {
	Type   string   `json:"type" binding:"required"`
	Value  string   `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
	ID     string   `json:"id,omitempty"`
	Index  int      `json:"index,omitempty"`
	Delta  int      `json:"delta,omitempty"`
	Ms     int      `json:"ms,omitempty"`
}

type actionFunc func(c *Controller, ctx context.Context, a Action) error

var explorerActions = map[string]actionFunc{
	"SetSearch":         (*Controller).setSearch,
	"SetYear":           (*Controller).setYear,
	"SetCity":           (*Controller).setCity,
	"SetEvent":          (*Controller).setEvent,
	"SetPersons":        (*Controller).setPersons,
	"ToggleFavorites":   (*Controller).toggleFavorites,
	"ApplyCustomFilter": (*Controller).applyCustomFilter,
	"ClearFilters":      (*Controller).clearFilters,
	"OpenPost":          (*Controller).openPost,
	"OpenLatest":        (*Controller).openLatest,
	"OpenRandom":        (*Controller).openRandom,
	"ShowHome":          (*Controller).showHome,
	"LoadMore":          (*Controller).loadMore,
	"ToggleTimeline":    (*Controller).toggleTimeline,
	"ToggleBookmark":    (*Controller).toggleBookmark,
	"ShowSlide":         (*Controller).showSlide,
	"NextSlide":         (*Controller).nextSlide,
	"PrevSlide":         (*Controller).prevSlide,
}

// Controller is one browsing session. Every mutation runs under mu, so
// filter runs are synchronous and total.
type Controller struct {
	mu        sync.Mutex
	id        string
	svc       *Service
	state     state
	engine    *slideshow.Engine
	selection *slideshow.Selection
}

func newController(s *Service) *Controller {
	c := &Controller{
		svc:       s,
		state:     newState(s.pageSize, s.pageStep),
		selection: slideshow.NewSelection(),
	}
	opts := append([]slideshow.Option{
		slideshow.WithLogger(s.logger),
		slideshow.WithNotify(func(snap slideshow.Snapshot) {
			s.notifier.Emit(c.id, gateway.EventSlideshowState, snap)
		}),
	}, s.engineOpts...)
	c.engine = slideshow.NewEngine(opts...)
	return c
}

func (c *Controller) ID() string { return c.id }

// View renders the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Dispatch applies one explorer action and returns the new view.
func (c *Controller) Dispatch(ctx context.Context, a Action) (View, error) {
	fn, ok := explorerActions[a.Type]
	if !ok {
		return View{}, fmt.Errorf("%w %q", ErrUnknownAction, a.Type)
	}

	c.mu.Lock()
	c.state.notice = ""
	if err := fn(c, ctx, a); err != nil {
		c.mu.Unlock()
		return View{}, err
	}
	view := c.viewLocked()
	c.mu.Unlock()

	c.publish(view)
	return view, nil
}

// AISearch ranks posts for query and makes the ids the active filter mode.
// The provider call runs without holding the session lock; its result is
// applied only if no newer search or reset happened in the meantime.
func (c *Controller) AISearch(ctx context.Context, query string, topN int) (View, error) {
	c.mu.Lock()
	c.state.aiGen++
	gen := c.state.aiGen
	c.state.aiLoading = true
	c.state.notice = ""
	loading := c.viewLocked()
	c.mu.Unlock()
	c.publish(loading)

	res, err := c.svc.ranker.Search(ctx, query, topN, c.svc.posts.Posts())

	c.mu.Lock()
	if gen != c.state.aiGen {
		view := c.viewLocked()
		c.mu.Unlock()
		return view, ErrSuperseded
	}
	s := &c.state
	s.aiLoading = false
	if err != nil {
		s.notice = ranking.Notice(err)
	} else {
		s.aiResults = append([]string{}, res.IDs...)
		s.aiQuery = res.Query
		s.clearCustom()
		c.runLocked()
		s.notice = res.Notice
	}
	view := c.viewLocked()
	c.mu.Unlock()

	c.publish(view)
	return view, nil
}

func (c *Controller) refresh() {
	c.mu.Lock()
	if c.state.active != nil {
		if p, ok := c.svc.posts.Lookup(c.state.active.ID); ok {
			c.state.active = p
		}
	}
	c.runLocked()
	view := c.viewLocked()
	c.mu.Unlock()
	c.publish(view)
}

func (c *Controller) close() {
	c.mu.Lock()
	c.state.aiGen++
	c.mu.Unlock()
	c.engine.Stop()
}

// runLocked re-applies the active filter and fixes up the dependent views.
func (c *Controller) runLocked() {
	s := &c.state
	resolved, filtered := filter.Run(s.input(c.svc.aiConstraints), c.svc.posts.Posts(), c.svc.posts.Lookup, c.svc.bookmarks)
	s.mode = resolved.Mode
	s.filtered = filtered
	s.window.Reset()

	if len(filtered) == 0 {
		c.showHomeLocked()
		return
	}
	if s.screen == ScreenDetail && !s.contains(s.active) {
		s.active = filtered[0]
		s.slideIndex = 0
	}
}

func (c *Controller) openLocked(p *models.Post) {
	c.state.active = p
	c.state.screen = ScreenDetail
	c.state.slideIndex = 0
}

func (c *Controller) showHomeLocked() {
	c.state.screen = ScreenHome
	if c.engine.Snapshot().Status != slideshow.StatusIdle {
		c.engine.Stop()
	}
}

func (c *Controller) publish(view View) {
	c.svc.notifier.Emit(c.id, gateway.EventExplorerState, view)
	if view.Notice != "" {
		c.svc.notifier.Emit(c.id, gateway.EventNotice, map[string]string{"message": view.Notice})
	}
}

func (c *Controller) viewLocked() View {
	s := &c.state
	posts := c.svc.posts.Posts()
	v := View{
		SessionID: c.id,
		Screen:    s.screen,
		Mode:      s.mode,
		Filters: Filters{
			Search:        s.search,
			Year:          s.manual.Year,
			City:          s.manual.City,
			Event:         s.manual.Event,
			Persons:       append([]string{}, s.manual.Persons...),
			FavoritesOnly: s.favoritesOnly,
			CustomMeta:    "No custom filter applied.",
			Timeline:      s.timeline,
		},
		AI: AIStatus{
			Query:   s.aiQuery,
			Active:  s.aiResults != nil,
			Loading: s.aiLoading,
			Results: len(s.aiResults),
		},
		Stats:     Stats{Stats: c.svc.posts.Stats(), Showing: len(s.filtered)},
		Bookmarks: BuildBookmarks(posts, c.svc.bookmarks),
		Notice:    s.notice,
	}
	if s.custom != nil {
		v.Filters.Custom = s.custom.Name
		v.Filters.CustomMeta = "Using: " + s.custom.Name + " (" + s.custom.Describe() + ")"
	}
	if s.timeline {
		v.Timeline = BuildTimeline(s.filtered)
	} else {
		v.QuickView = BuildQuickView(s.filtered, s.window)
	}
	if len(s.filtered) == 0 {
		v.Empty = emptyResult
	}
	if s.screen == ScreenDetail && s.active != nil {
		v.Detail = BuildDetail(s.active, s.slideIndex, c.svc.bookmarks.Has(s.active.ID), s.mapReturn)
	}
	return v
}

func (c *Controller) setSearch(_ context.Context, a Action) error {
	c.state.search = strings.TrimSpace(a.Value)
	c.runLocked()
	return nil
}

func (c *Controller) setYear(_ context.Context, a Action) error {
	c.setManual(func(m *filter.Manual) { m.Year = singleValue(a.Value) })
	return nil
}

func (c *Controller) setCity(_ context.Context, a Action) error {
	c.setManual(func(m *filter.Manual) { m.City = singleValue(a.Value) })
	return nil
}

func (c *Controller) setEvent(_ context.Context, a Action) error {
	c.setManual(func(m *filter.Manual) { m.Event = singleValue(a.Value) })
	return nil
}

func (c *Controller) setPersons(_ context.Context, a Action) error {
	persons := make([]string, 0, len(a.Values))
	for _, p := range a.Values {
		if p = strings.TrimSpace(p); p != "" {
			persons = append(persons, p)
		}
	}
	c.setManual(func(m *filter.Manual) { m.Persons = persons })
	return nil
}

// setManual edits a manual control. Once the user touches the controls
// again, the values stashed by a custom filter are no longer restored.
func (c *Controller) setManual(edit func(m *filter.Manual)) {
	edit(&c.state.manual)
	c.state.stashed = nil
	c.runLocked()
}

func singleValue(v string) string {
	if v = strings.TrimSpace(v); v == "" {
		return filter.All
	}
	return v
}

func (c *Controller) toggleFavorites(context.Context, Action) error {
	c.state.favoritesOnly = !c.state.favoritesOnly
	c.runLocked()
	return nil
}

func (c *Controller) applyCustomFilter(ctx context.Context, a Action) error {
	s := &c.state
	name := strings.TrimSpace(a.Value)
	if name == "" {
		s.clearCustom()
		c.runLocked()
		return nil
	}

	f, err := c.svc.filters.Get(ctx, name)
	if errors.Is(err, customfilter.ErrNotFound) {
		s.notice = customfilter.Notice(err)
		return nil
	}
	if err != nil {
		return err
	}

	s.custom = f
	s.aiResults = nil
	s.aiQuery = ""
	s.aiLoading = false
	s.aiGen++
	if s.stashed == nil {
		stash := s.manual.Clone()
		s.stashed = &stash
	}
	s.manual = filter.DefaultManual()
	c.runLocked()
	return nil
}

func (c *Controller) clearFilters(context.Context, Action) error {
	s := &c.state
	s.search = ""
	s.manual = filter.DefaultManual()
	s.favoritesOnly = false
	s.custom = nil
	s.stashed = nil
	s.aiResults = nil
	s.aiQuery = ""
	s.aiLoading = false
	s.aiGen++
	s.timeline = false
	c.runLocked()
	return nil
}

func (c *Controller) openPost(_ context.Context, a Action) error {
	p, ok := c.svc.posts.Lookup(strings.TrimSpace(a.ID))
	if !ok {
		return ErrPostNotFound
	}
	c.openLocked(p)
	return nil
}

func (c *Controller) openLatest(context.Context, Action) error {
	if len(c.state.filtered) > 0 {
		c.openLocked(c.state.filtered[0])
	}
	return nil
}

func (c *Controller) openRandom(context.Context, Action) error {
	if n := len(c.state.filtered); n > 0 {
		c.openLocked(c.state.filtered[c.svc.intN(n)])
	}
	return nil
}

func (c *Controller) showHome(context.Context, Action) error {
	c.showHomeLocked()
	return nil
}

func (c *Controller) loadMore(context.Context, Action) error {
	c.state.window.Grow()
	return nil
}

func (c *Controller) toggleTimeline(context.Context, Action) error {
	c.state.timeline = !c.state.timeline
	return nil
}

// toggleBookmark flips the open post's bookmark. The filtered list is left
// alone even when favorites-only is active.
func (c *Controller) toggleBookmark(ctx context.Context, _ Action) error {
	if c.state.active == nil {
		return ErrNoActivePost
	}
	saved, err := c.svc.bookmarks.Toggle(ctx, c.state.active.ID)
	if err != nil {
		c.svc.logger.Warn("persist bookmarks failed", zap.String("post", c.state.active.ID), zap.Error(err))
		return err
	}
	c.state.notice = bookmark.Toast(saved)
	return nil
}

func (c *Controller) showSlide(_ context.Context, a Action) error {
	return c.moveSlide(func(int) int { return a.Index })
}

func (c *Controller) nextSlide(context.Context, Action) error {
	return c.moveSlide(func(i int) int { return i + 1 })
}

func (c *Controller) prevSlide(context.Context, Action) error {
	return c.moveSlide(func(i int) int { return i - 1 })
}

// moveSlide steps the detail page's inline slides, wrapping both ways.
func (c *Controller) moveSlide(target func(current int) int) error {
	s := &c.state
	if s.screen != ScreenDetail || s.active == nil {
		return ErrNoActivePost
	}
	n := len(slideshow.BuildSlides(s.active, false))
	if n == 0 {
		return nil
	}
	s.slideIndex = slideshow.Wrap(target(s.slideIndex), n)
	return nil
}
