package explorer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mx-space/memory-explorer/internal/models"
	"github.com/mx-space/memory-explorer/internal/modules/gateway"
	"github.com/mx-space/memory-explorer/internal/modules/slideshow"
)

const (
	noticeNoMatches = "No posts match the current filters."
	noticeNoImages  = "No images found in selected posts."
)

var slideshowActions = map[string]actionFunc{
	"Add":         (*Controller).composerAdd,
	"AddAll":      (*Controller).composerAddAll,
	"AddRandom":   (*Controller).composerAddRandom,
	"Move":        (*Controller).composerMove,
	"Remove":      (*Controller).composerRemove,
	"Clear":       (*Controller).composerClear,
	"Play":        (*Controller).slideshowPlay,
	"Stop":        (*Controller).slideshowStop,
	"Next":        func(c *Controller, _ context.Context, _ Action) error { return c.engine.Next() },
	"Previous":    func(c *Controller, _ context.Context, _ Action) error { return c.engine.Previous() },
	"Jump":        func(c *Controller, _ context.Context, a Action) error { return c.engine.Jump(a.Index) },
	"Replay":      func(c *Controller, _ context.Context, _ Action) error { return c.engine.Replay() },
	"SetInterval": (*Controller).slideshowSetInterval,
}

type SelectionItem struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Date   string `json:"date,omitempty"`
	Images int    `json:"images"`
}

// SlideshowView is the composer and player state of a session.
type SlideshowView struct {
	Available int                `json:"available"`
	Selection []SelectionItem    `json:"selection"`
	Player    slideshow.Snapshot `json:"player"`
	Notice    string             `json:"notice,omitempty"`
}

// Slideshow renders the composer state.
func (c *Controller) Slideshow() SlideshowView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slideshowViewLocked("")
}

// DispatchSlideshow applies one composer or playback action.
func (c *Controller) DispatchSlideshow(ctx context.Context, a Action) (SlideshowView, error) {
	fn, ok := slideshowActions[a.Type]
	if !ok {
		return SlideshowView{}, fmt.Errorf("%w %q", ErrUnknownAction, a.Type)
	}

	c.mu.Lock()
	c.state.notice = ""
	err := fn(c, ctx, a)
	if err != nil && !isComposerNotice(err) {
		c.mu.Unlock()
		return SlideshowView{}, err
	}
	view := c.slideshowViewLocked(composerNotice(err))
	c.mu.Unlock()

	if view.Notice != "" {
		c.svc.notifier.Emit(c.id, gateway.EventNotice, map[string]string{"message": view.Notice})
	}
	return view, nil
}

func (c *Controller) slideshowViewLocked(notice string) SlideshowView {
	posts := c.selection.Posts()
	items := make([]SelectionItem, 0, len(posts))
	for _, p := range posts {
		items = append(items, SelectionItem{
			ID:     p.ID,
			Title:  p.Title,
			Date:   p.Date,
			Images: countImages(p),
		})
	}
	return SlideshowView{
		Available: len(c.state.filtered),
		Selection: items,
		Player:    c.engine.Snapshot(),
		Notice:    notice,
	}
}

func countImages(p *models.Post) int {
	n := 0
	for _, b := range p.ContentBlocks {
		if b.Type == models.BlockImage {
			n++
		}
	}
	return n
}

func isComposerNotice(err error) bool {
	return errors.Is(err, slideshow.ErrNoMatches) || errors.Is(err, slideshow.ErrNoImages)
}

func composerNotice(err error) string {
	switch {
	case errors.Is(err, slideshow.ErrNoMatches):
		return noticeNoMatches
	case errors.Is(err, slideshow.ErrNoImages):
		return noticeNoImages
	default:
		return ""
	}
}

func (c *Controller) composerAdd(_ context.Context, a Action) error {
	p, ok := c.svc.posts.Lookup(strings.TrimSpace(a.ID))
	if !ok {
		return ErrPostNotFound
	}
	c.selection.Add(p)
	return nil
}

func (c *Controller) composerAddAll(context.Context, Action) error {
	_, err := c.selection.AddAll(c.state.filtered)
	return err
}

func (c *Controller) composerAddRandom(context.Context, Action) error {
	_, err := c.selection.AddRandom(c.state.filtered, slideshow.RandomPickCount)
	return err
}

func (c *Controller) composerMove(_ context.Context, a Action) error {
	c.selection.Move(a.Index, a.Delta)
	return nil
}

func (c *Controller) composerRemove(_ context.Context, a Action) error {
	c.selection.Remove(a.Index)
	return nil
}

func (c *Controller) composerClear(context.Context, Action) error {
	c.selection.Clear()
	return nil
}

func (c *Controller) slideshowPlay(context.Context, Action) error {
	slides, err := c.selection.Slides()
	if err != nil {
		return err
	}
	return c.engine.Play(slides)
}

func (c *Controller) slideshowStop(context.Context, Action) error {
	c.engine.Stop()
	return nil
}

func (c *Controller) slideshowSetInterval(_ context.Context, a Action) error {
	c.engine.SetIntervalMs(a.Ms)
	return nil
}
