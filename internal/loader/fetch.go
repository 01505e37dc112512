package loader

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/san-kum/tilewall/internal/catalog"
	"github.com/san-kum/tilewall/internal/grid"
)

// maxBody caps a single image download.
const maxBody = 16 << 20

// Fetcher loads remote refs over HTTP and local refs from disk, keeping
// decoded images in memory so a tile that returns to the wall is not
// fetched twice.
type Fetcher struct {
	client    *http.Client
	userAgent string

	mu    sync.Mutex
	cache map[catalog.Ref]image.Image
}

func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		cache:     make(map[catalog.Ref]image.Image),
	}
}

func (f *Fetcher) Fetch(ctx context.Context, req Request) (image.Image, error) {
	f.mu.Lock()
	img, ok := f.cache[req.Ref]
	f.mu.Unlock()
	if ok {
		return img, nil
	}

	var err error
	if req.Ref.Remote() {
		img, err = f.fetchRemote(ctx, req.Ref)
	} else {
		img, err = decodeFile(req.Ref.Path())
	}
	if err != nil {
		return nil, &grid.LoadError{Ref: req.Ref.String(), Wrapped: err}
	}

	f.mu.Lock()
	f.cache[req.Ref] = img
	f.mu.Unlock()
	return img, nil
}

func (f *Fetcher) Cached() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cache)
}

func (f *Fetcher) fetchRemote(ctx context.Context, ref catalog.Ref) (image.Image, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.String(), nil)
	if err != nil {
		return nil, err
	}
	if f.userAgent != "" {
		httpReq.Header.Set("User-Agent", f.userAgent)
	}
	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	img, _, err := image.Decode(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return img, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return img, nil
}
