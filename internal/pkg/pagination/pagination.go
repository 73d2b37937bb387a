package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mx-space/memory-explorer/internal/pkg/response"
)

const (
	DefaultPage = 1
	DefaultSize = 10
	MaxSize     = 100
)

// Query holds parsed pagination parameters.
type Query struct {
	Page int
	Size int
}

// FromContext extracts and validates pagination params from the request.
func FromContext(c *gin.Context) Query {
	page := parseIntOr(c.DefaultQuery("page", "1"), DefaultPage)
	size := parseIntOr(c.DefaultQuery("size", "10"), DefaultSize)

	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}

	return Query{Page: page, Size: size}
}

// Slice returns the requested page of items and the pagination metadata.
func Slice[T any](items []T, q Query) ([]T, response.Pagination) {
	total := len(items)
	totalPage := (total + q.Size - 1) / q.Size

	start := (q.Page - 1) * q.Size
	if start > total {
		start = total
	}
	end := start + q.Size
	if end > total {
		end = total
	}

	return items[start:end], response.Pagination{
		Total:       int64(total),
		CurrentPage: q.Page,
		TotalPage:   totalPage,
		Size:        q.Size,
		HasNextPage: q.Page < totalPage,
	}
}

// Window is a grow-only "show more" limit over a list.
type Window struct {
	Initial int
	Step    int
	limit   int
}

func NewWindow(initial, step int) Window {
	return Window{Initial: initial, Step: step, limit: initial}
}

// Reset shrinks the window back to its initial size.
func (w *Window) Reset() { w.limit = w.Initial }

// Grow extends the window by one step.
func (w *Window) Grow() { w.limit += w.Step }

func (w Window) Limit() int { return w.limit }

// Apply returns the visible prefix of items and whether more remain.
func Apply[T any](w Window, items []T) ([]T, bool) {
	if len(items) <= w.limit {
		return items, false
	}
	return items[:w.limit], true
}

func parseIntOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
