package slideshow

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ImageLoader prepares a slide image and returns the source to display.
type ImageLoader interface {
	Load(ctx context.Context, url string) (string, error)
}

// PassThrough displays images as-is.
type PassThrough struct{}

func (PassThrough) Load(_ context.Context, url string) (string, error) { return url, nil }

// Prefetcher downloads each image once so the upstream cache is warm before
// the slide is shown, and rejects responses that are not images.
type Prefetcher struct {
	Client *http.Client
}

func (p Prefetcher) Load(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("image %s: status %d", url, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return "", fmt.Errorf("image %s: unexpected content type %q", url, ct)
	}
	return url, nil
}
