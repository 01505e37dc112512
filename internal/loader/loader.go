package loader

import (
	"context"
	"image"
	"sync"

	"github.com/san-kum/tilewall/internal/catalog"
	"github.com/san-kum/tilewall/internal/grid"
	"github.com/san-kum/tilewall/internal/log"
)

// Request asks for the image behind Ref. Ticket and Epoch let the session
// recognize results that no longer apply.
type Request struct {
	Ticket uint64
	Epoch  uint64
	ID     grid.ImageID
	Ref    catalog.Ref
}

// Result is delivered exactly once per Request.
type Result struct {
	Request
	Image image.Image
	Err   error
}

// Source produces a decoded image for a request.
type Source interface {
	Fetch(ctx context.Context, req Request) (image.Image, error)
}

// Async runs each request on its own goroutine, bounded by a worker limit,
// and posts results to a channel the event loop drains.
type Async struct {
	ctx     context.Context
	cancel  context.CancelFunc
	source  Source
	sem     chan struct{}
	results chan Result
	wg      sync.WaitGroup
	log     *log.Logger
}

func NewAsync(ctx context.Context, source Source, workers int, logger *log.Logger) *Async {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = log.Discard()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Async{
		ctx:     ctx,
		cancel:  cancel,
		source:  source,
		sem:     make(chan struct{}, workers),
		results: make(chan Result, 64),
		log:     logger.Named("loader"),
	}
}

// Load is fire and forget; the result arrives on Results.
func (a *Async) Load(req Request) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		select {
		case a.sem <- struct{}{}:
		case <-a.ctx.Done():
			return
		}
		img, err := a.source.Fetch(a.ctx, req)
		<-a.sem
		if err != nil {
			a.log.Debugf("fetch %s failed: %v", req.Ref, err)
		}
		select {
		case a.results <- Result{Request: req, Image: img, Err: err}:
		case <-a.ctx.Done():
		}
	}()
}

func (a *Async) Results() <-chan Result { return a.results }

// Close abandons in-flight requests and waits for their goroutines.
func (a *Async) Close() {
	a.cancel()
	a.wg.Wait()
}

// Queue resolves requests synchronously but holds the results until Drain,
// so callers observe the same deferred delivery as with Async.
type Queue struct {
	source  Source
	pending []Result
}

func NewQueue(source Source) *Queue {
	return &Queue{source: source}
}

func (q *Queue) Load(req Request) {
	img, err := q.source.Fetch(context.Background(), req)
	q.pending = append(q.pending, Result{Request: req, Image: img, Err: err})
}

func (q *Queue) Pending() int { return len(q.pending) }

// Drain delivers queued results in request order, including any queued by
// deliver itself.
func (q *Queue) Drain(deliver func(Result)) int {
	n := 0
	for len(q.pending) > 0 {
		r := q.pending[0]
		q.pending = q.pending[1:]
		deliver(r)
		n++
	}
	return n
}
