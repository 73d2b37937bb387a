package explorer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mx-space/memory-explorer/internal/config"
	"github.com/mx-space/memory-explorer/internal/models"
	"github.com/mx-space/memory-explorer/internal/modules/bookmark"
	"github.com/mx-space/memory-explorer/internal/modules/customfilter"
	"github.com/mx-space/memory-explorer/internal/modules/filter"
	"github.com/mx-space/memory-explorer/internal/modules/gateway"
	"github.com/mx-space/memory-explorer/internal/modules/post"
	"github.com/mx-space/memory-explorer/internal/modules/ranking"
	"github.com/mx-space/memory-explorer/internal/modules/slideshow"
	"github.com/mx-space/memory-explorer/internal/pkg/kv"
	"github.com/stretchr/testify/require"
)

type event struct {
	room, name string
	payload    interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []event
}

func (n *recordingNotifier) Emit(room, name string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event{room: room, name: name, payload: payload})
}

func (n *recordingNotifier) names() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.name)
	}
	return out
}

type rankerFunc func(ctx context.Context, query string, topN int, posts []*models.Post) (*ranking.Result, error)

func (f rankerFunc) Search(ctx context.Context, query string, topN int, posts []*models.Post) (*ranking.Result, error) {
	return f(ctx, query, topN, posts)
}

type manualClock struct{}

type noopTimer struct{}

func (noopTimer) Stop() bool { return true }

func (manualClock) AfterFunc(time.Duration, func()) slideshow.Timer { return noopTimer{} }

func samplePosts() []*models.Post {
	return []*models.Post{
		{
			ID: "p1", Title: "Beach day", Date: "2024-07-01", LocationCity: "Lisbon", LocationCountry: "Portugal",
			People: []string{"Ana", "Ben"}, Events: []string{"Holiday"},
			ContentBlocks: []models.ContentBlock{
				{Type: models.BlockText, Content: "Sun"},
				{Type: models.BlockImage, URL: "https://img/s1600/a.jpg"},
				{Type: models.BlockImage, URL: "https://img/b.jpg"},
			},
		},
		{
			ID: "p2", Title: "Dinner", Date: "2023-05-02", LocationCity: "Paris", LocationCountry: "France",
			People: []string{"Ana"}, Events: []string{"Birthday"},
			ContentBlocks: []models.ContentBlock{{Type: models.BlockImage, URL: "https://img/c.jpg"}},
		},
		{
			ID: "p3", Title: "Hike", Date: "2023-01-10",
			People: []string{"Ben"}, Events: []string{},
			ContentBlocks: []models.ContentBlock{{Type: models.BlockText, Content: "Long walk"}},
		},
		{ID: "p4", Title: "Untitled", LocationCity: "Rome", People: []string{}, Events: []string{}},
	}
}

type fixture struct {
	svc      *Service
	store    *post.Store
	filters  *customfilter.Service
	notifier *recordingNotifier
	ranker   rankerFunc
}

func newFixture(t *testing.T, ranker rankerFunc, opts ...ServiceOption) *fixture {
	t.Helper()
	kvStore := kv.NewMemoryStore()
	store := post.NewStore(nil)
	store.Replace(samplePosts())
	f := &fixture{
		store:    store,
		filters:  customfilter.NewService(kvStore),
		notifier: &recordingNotifier{},
	}
	if ranker == nil {
		ranker = func(_ context.Context, query string, _ int, _ []*models.Post) (*ranking.Result, error) {
			return &ranking.Result{Query: query, IDs: []string{"p3", "p1", "missing"}, Outcome: ranking.OutcomeAI, Notice: "AI search applied 3 results."}, nil
		}
	}
	base := []ServiceOption{
		WithNotifier(f.notifier),
		WithEngineOptions(slideshow.WithClock(manualClock{}), slideshow.WithSpawn(func(fn func()) { fn() })),
		WithRandom(func(n int) int { return n - 1 }),
	}
	f.svc = NewService(Deps{
		Posts:     store,
		Bookmarks: bookmark.NewService(kvStore),
		Filters:   f.filters,
		Ranker:    ranker,
	}, append(base, opts...)...)
	return f
}

func (f *fixture) session(t *testing.T, req CreateRequest) (*Controller, View) {
	t.Helper()
	created, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	c, err := f.svc.Session(created.Token)
	require.NoError(t, err)
	return c, created.View
}

func dispatch(t *testing.T, c *Controller, a Action) View {
	t.Helper()
	v, err := c.Dispatch(context.Background(), a)
	require.NoError(t, err)
	return v
}

func TestCreateOpensDeepLinkFromMap(t *testing.T) {
	f := newFixture(t, nil)
	c, view := f.session(t, CreateRequest{Post: "p2", From: "map", Lat: "48.85", Lon: "2.35", Zoom: "8"})

	require.Equal(t, ScreenDetail, view.Screen)
	require.NotNil(t, view.Detail)
	require.Equal(t, "p2", view.Detail.ID)
	require.Equal(t, "2023-05-02 - Paris France", view.Detail.DateLine)
	require.Equal(t, "./map.html?lat=48.85&lon=2.35&zoom=8", view.Detail.MapBack)
	require.Empty(t, view.Notice)

	id, ok := f.svc.Validate(mustToken(t, f, c))
	require.True(t, ok)
	require.Equal(t, c.ID(), id)
}

func mustToken(t *testing.T, f *fixture, c *Controller) string {
	t.Helper()
	token, err := f.svc.signer.Sign(c.ID(), time.Hour)
	require.NoError(t, err)
	return token
}

func TestCreateWithoutDataCarriesNotice(t *testing.T) {
	svc := NewService(Deps{
		Posts:     post.NewStore(nil),
		Bookmarks: bookmark.NewService(kv.NewMemoryStore()),
		Filters:   customfilter.NewService(kv.NewMemoryStore()),
	})
	created, err := svc.Create(context.Background(), CreateRequest{Post: "p1"})
	require.NoError(t, err)
	require.Equal(t, noticeLoadFailed, created.View.Notice)
	require.Equal(t, ScreenHome, created.View.Screen)
	require.Equal(t, emptyResult, created.View.Empty)
}

func TestFilterRunResetsWindowAndFixesDetail(t *testing.T) {
	f := newFixture(t, nil, WithConfig(config.ExplorerConfig{PageSize: 2, PageStep: 1}))
	c, view := f.session(t, CreateRequest{})
	require.Equal(t, 2, view.QuickView.Limit)
	require.True(t, view.QuickView.HasMore)

	view = dispatch(t, c, Action{Type: "LoadMore"})
	require.Equal(t, 3, view.QuickView.Limit)
	require.Len(t, view.QuickView.Cards, 3)

	dispatch(t, c, Action{Type: "OpenPost", ID: "p1"})
	view = dispatch(t, c, Action{Type: "SetYear", Value: "2023"})
	require.Equal(t, 2, view.QuickView.Limit)
	require.Equal(t, 2, view.Stats.Showing)
	require.Equal(t, ScreenDetail, view.Screen)
	require.Equal(t, "p2", view.Detail.ID)

	view = dispatch(t, c, Action{Type: "SetCity", Value: "Nowhere"})
	require.Equal(t, ScreenHome, view.Screen)
	require.Nil(t, view.Detail)
	require.Equal(t, emptyResult, view.Empty)
}

func TestCustomFilterRoundTrip(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.filters.Save(context.Background(), models.CustomFilter{Name: "Trip", Cities: []string{"Paris"}})
	require.NoError(t, err)
	c, _ := f.session(t, CreateRequest{})

	dispatch(t, c, Action{Type: "SetYear", Value: "2024"})
	view := dispatch(t, c, Action{Type: "ApplyCustomFilter", Value: "trip"})
	require.Equal(t, filter.ModeCustom, view.Mode)
	require.Equal(t, filter.All, view.Filters.Year)
	require.Equal(t, "Trip", view.Filters.Custom)
	require.Equal(t, 1, view.Stats.Showing)
	require.Contains(t, view.Filters.CustomMeta, "Using: Trip")

	view = dispatch(t, c, Action{Type: "ApplyCustomFilter", Value: "missing"})
	require.Equal(t, "Custom filter not found.", view.Notice)
	require.Equal(t, filter.ModeCustom, view.Mode)

	view = dispatch(t, c, Action{Type: "ApplyCustomFilter"})
	require.Equal(t, filter.ModeManual, view.Mode)
	require.Equal(t, "2024", view.Filters.Year)
	require.Equal(t, 1, view.Stats.Showing)
	require.Equal(t, "No custom filter applied.", view.Filters.CustomMeta)
}

func TestAISearchAppliesRankedIDs(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.filters.Save(context.Background(), models.CustomFilter{Name: "Trip", Cities: []string{"Paris"}})
	require.NoError(t, err)
	c, _ := f.session(t, CreateRequest{})
	dispatch(t, c, Action{Type: "ApplyCustomFilter", Value: "Trip"})

	view, err := c.AISearch(context.Background(), "walk", 10)
	require.NoError(t, err)
	require.Equal(t, filter.ModeAI, view.Mode)
	require.Empty(t, view.Filters.Custom)
	require.True(t, view.AI.Active)
	require.False(t, view.AI.Loading)
	require.Equal(t, "AI search applied 3 results.", view.Notice)
	require.Len(t, view.QuickView.Cards, 2)
	require.Equal(t, "p3", view.QuickView.Cards[0].ID)
	require.Equal(t, "p1", view.QuickView.Cards[1].ID)

	view = dispatch(t, c, Action{Type: "ClearFilters"})
	require.Equal(t, filter.ModeManual, view.Mode)
	require.False(t, view.AI.Active)
	require.Equal(t, 4, view.Stats.Showing)
}

func TestAISearchEmptyQueryNotice(t *testing.T) {
	f := newFixture(t, func(context.Context, string, int, []*models.Post) (*ranking.Result, error) {
		return nil, ranking.ErrEmptyQuery
	})
	c, _ := f.session(t, CreateRequest{})
	view, err := c.AISearch(context.Background(), "  ", 10)
	require.NoError(t, err)
	require.Equal(t, ranking.NoticeEmptyQuery, view.Notice)
	require.Equal(t, filter.ModeManual, view.Mode)
	require.False(t, view.AI.Loading)
}

func TestAISearchSupersededByReset(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	f := newFixture(t, func(_ context.Context, query string, _ int, _ []*models.Post) (*ranking.Result, error) {
		close(started)
		<-release
		return &ranking.Result{Query: query, IDs: []string{"p2"}}, nil
	})
	c, _ := f.session(t, CreateRequest{})

	done := make(chan error, 1)
	go func() {
		_, err := c.AISearch(context.Background(), "dinner", 5)
		done <- err
	}()
	<-started
	require.True(t, c.View().AI.Loading)
	dispatch(t, c, Action{Type: "ClearFilters"})
	close(release)

	require.ErrorIs(t, <-done, ErrSuperseded)
	view := c.View()
	require.Equal(t, filter.ModeManual, view.Mode)
	require.False(t, view.AI.Active)
}

func TestBookmarkToggleAndFavorites(t *testing.T) {
	f := newFixture(t, nil)
	c, _ := f.session(t, CreateRequest{})

	_, err := c.Dispatch(context.Background(), Action{Type: "ToggleBookmark"})
	require.ErrorIs(t, err, ErrNoActivePost)

	dispatch(t, c, Action{Type: "OpenPost", ID: "p2"})
	view := dispatch(t, c, Action{Type: "ToggleBookmark"})
	require.Equal(t, "Saved to favorites", view.Notice)
	require.True(t, view.Detail.Bookmarked)
	require.Len(t, view.Bookmarks.Items, 1)
	require.Equal(t, "2023-05-02 · Paris", view.Bookmarks.Items[0].Meta)

	view = dispatch(t, c, Action{Type: "ToggleFavorites"})
	require.Equal(t, 1, view.Stats.Showing)
	require.True(t, view.Filters.FavoritesOnly)

	view = dispatch(t, c, Action{Type: "ToggleBookmark"})
	require.Equal(t, "Removed from favorites", view.Notice)
	require.Equal(t, 1, view.Stats.Showing)
	require.Equal(t, noFavorites, view.Bookmarks.Empty)
}

func TestOpenLatestRandomAndHome(t *testing.T) {
	f := newFixture(t, nil)
	c, _ := f.session(t, CreateRequest{})

	view := dispatch(t, c, Action{Type: "OpenLatest"})
	require.Equal(t, "p1", view.Detail.ID)
	view = dispatch(t, c, Action{Type: "OpenRandom"})
	require.Equal(t, "p4", view.Detail.ID)
	require.Empty(t, view.Detail.Slides)
	require.Empty(t, view.Detail.MapBack)

	view = dispatch(t, c, Action{Type: "ShowHome"})
	require.Equal(t, ScreenHome, view.Screen)
	require.Nil(t, view.Detail)

	_, err := c.Dispatch(context.Background(), Action{Type: "OpenPost", ID: "nope"})
	require.ErrorIs(t, err, ErrPostNotFound)
	_, err = c.Dispatch(context.Background(), Action{Type: "Dance"})
	require.ErrorIs(t, err, ErrUnknownAction)
}

func TestInlineSlidesWrap(t *testing.T) {
	f := newFixture(t, nil)
	c, _ := f.session(t, CreateRequest{Post: "p1"})

	view := dispatch(t, c, Action{Type: "PrevSlide"})
	require.Equal(t, 1, view.Detail.SlideIndex)
	require.Equal(t, "https://img/b.jpg", view.Detail.Slide.ImageURL)
	require.Equal(t, "Sun", view.Detail.Slide.Caption)

	view = dispatch(t, c, Action{Type: "NextSlide"})
	require.Equal(t, 0, view.Detail.SlideIndex)
	view = dispatch(t, c, Action{Type: "ShowSlide", Index: 5})
	require.Equal(t, 1, view.Detail.SlideIndex)
}

func TestTimelineToggle(t *testing.T) {
	f := newFixture(t, nil)
	c, _ := f.session(t, CreateRequest{})

	view := dispatch(t, c, Action{Type: "ToggleTimeline"})
	require.Nil(t, view.QuickView)
	require.Len(t, view.Timeline, 4)
	require.Equal(t, unknownDate, view.Timeline[0].Key)
	require.Equal(t, "2024-07-01", view.Timeline[1].Key)

	view = dispatch(t, c, Action{Type: "ClearFilters"})
	require.False(t, view.Filters.Timeline)
	require.NotNil(t, view.QuickView)
}

func TestComposerAndPlayback(t *testing.T) {
	f := newFixture(t, nil)
	c, _ := f.session(t, CreateRequest{})
	ctx := context.Background()

	dispatch(t, c, Action{Type: "SetCity", Value: "Nowhere"})
	sv, err := c.DispatchSlideshow(ctx, Action{Type: "AddAll"})
	require.NoError(t, err)
	require.Equal(t, noticeNoMatches, sv.Notice)
	require.Empty(t, sv.Selection)

	dispatch(t, c, Action{Type: "ClearFilters"})
	_, err = c.DispatchSlideshow(ctx, Action{Type: "Add", ID: "p3"})
	require.NoError(t, err)
	sv, err = c.DispatchSlideshow(ctx, Action{Type: "Play"})
	require.NoError(t, err)
	require.Equal(t, noticeNoImages, sv.Notice)
	require.Equal(t, slideshow.StatusIdle, sv.Player.Status)

	_, err = c.DispatchSlideshow(ctx, Action{Type: "Add", ID: "p1"})
	require.NoError(t, err)
	sv, err = c.DispatchSlideshow(ctx, Action{Type: "Move", Index: 1, Delta: -1})
	require.NoError(t, err)
	require.Equal(t, "p1", sv.Selection[0].ID)
	require.Equal(t, 2, sv.Selection[0].Images)

	sv, err = c.DispatchSlideshow(ctx, Action{Type: "Play"})
	require.NoError(t, err)
	require.Equal(t, slideshow.StatusPlaying, sv.Player.Status)
	require.Equal(t, 2, sv.Player.Total)
	require.Equal(t, "https://img/s0/a.jpg", sv.Player.Slide.ImageURL)

	sv, err = c.DispatchSlideshow(ctx, Action{Type: "Next"})
	require.NoError(t, err)
	require.Equal(t, 1, sv.Player.Index)

	sv, err = c.DispatchSlideshow(ctx, Action{Type: "SetInterval", Ms: 2000})
	require.NoError(t, err)
	require.Equal(t, 2000, sv.Player.IntervalMs)

	view := dispatch(t, c, Action{Type: "ShowHome"})
	require.Equal(t, ScreenHome, view.Screen)
	require.Equal(t, slideshow.StatusIdle, c.Slideshow().Player.Status)

	_, err = c.DispatchSlideshow(ctx, Action{Type: "Next"})
	require.ErrorIs(t, err, slideshow.ErrNotPlaying)

	sv, err = c.DispatchSlideshow(ctx, Action{Type: "AddRandom"})
	require.NoError(t, err)
	require.Len(t, sv.Selection, 4)

	sv, err = c.DispatchSlideshow(ctx, Action{Type: "Remove", Index: 0})
	require.NoError(t, err)
	require.Len(t, sv.Selection, 3)
	sv, err = c.DispatchSlideshow(ctx, Action{Type: "Clear"})
	require.NoError(t, err)
	require.Empty(t, sv.Selection)

	_, err = c.DispatchSlideshow(ctx, Action{Type: "Shuffle"})
	require.ErrorIs(t, err, ErrUnknownAction)
}

func TestNotificationsPerAction(t *testing.T) {
	f := newFixture(t, nil)
	c, _ := f.session(t, CreateRequest{})

	dispatch(t, c, Action{Type: "OpenPost", ID: "p1"})
	dispatch(t, c, Action{Type: "ToggleBookmark"})

	require.Equal(t, []string{
		gateway.EventExplorerState,
		gateway.EventExplorerState,
		gateway.EventNotice,
	}, f.notifier.names())
	for _, e := range f.notifier.events {
		require.Equal(t, c.ID(), e.room)
	}
}

func TestRefreshAfterReload(t *testing.T) {
	f := newFixture(t, nil)
	c, _ := f.session(t, CreateRequest{Post: "p3"})

	f.store.Replace(samplePosts()[:2])
	f.svc.Refresh()

	view := c.View()
	require.Equal(t, 2, view.Stats.Showing)
	require.Equal(t, "p1", view.Detail.ID)
}

func TestEvictIdleSessions(t *testing.T) {
	f := newFixture(t, nil, WithConfig(config.ExplorerConfig{SessionTTL: time.Millisecond}))
	created, err := f.svc.Create(context.Background(), CreateRequest{})
	require.NoError(t, err)
	require.Equal(t, 1, f.svc.Len())

	time.Sleep(10 * time.Millisecond)
	require.Equal(t, 1, f.svc.Evict())
	_, err = f.svc.Session(created.Token)
	require.ErrorIs(t, err, ErrSessionNotFound)
}
