// Package crawler fetches index pages in parallel for one crawl session.
package crawler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/harrybrwn/scout/internal/logging"
	"github.com/harrybrwn/scout/link"
	"github.com/harrybrwn/scout/storage"
	"github.com/harrybrwn/scout/web"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultWorkers is the number of pages fetched at the same time.
const DefaultWorkers = 10

var ErrGetterClosed = errors.New("page getter is closed")

// PageGetter fetches pages with a fixed pool of workers. A url is fetched at
// most once for the lifetime of the getter, later requests for it are
// served from the page cache.
type PageGetter struct {
	Logger logrus.FieldLogger

	fetcher   web.Fetcher
	cache     web.PageCache
	seen      storage.URLSet
	workers   int
	queueSize int

	ctx    context.Context
	cancel context.CancelFunc

	start   sync.Once
	pending chan *job
	// sendMu keeps Close from closing the pending channel while jobs are
	// being sent.
	sendMu sync.RWMutex
	closed bool

	mu          sync.Mutex
	idle        *sync.Cond
	outstanding int
	done        []*link.Link

	errs    errSlot
	fetched int64
}

type job struct {
	link        *link.Link
	requirement string
}

type Option func(*PageGetter)

func WithWorkers(n int) Option               { return func(g *PageGetter) { g.workers = n } }
func WithQueueSize(n int) Option             { return func(g *PageGetter) { g.queueSize = n } }
func WithSeenSet(s storage.URLSet) Option    { return func(g *PageGetter) { g.seen = s } }
func WithLogger(l logrus.FieldLogger) Option { return func(g *PageGetter) { g.Logger = l } }
func WithContext(ctx context.Context) Option { return func(g *PageGetter) { g.ctx = ctx } }

// New creates a PageGetter. The cache is shared with anything else that
// fetches pages in the same session.
func New(cache web.PageCache, fetcher web.Fetcher, opts ...Option) *PageGetter {
	g := &PageGetter{
		fetcher:   fetcher,
		cache:     cache,
		workers:   DefaultWorkers,
		queueSize: 256,
		ctx:       context.Background(),
	}
	for _, o := range opts {
		o(g)
	}
	if g.cache == nil {
		g.cache = web.NewPageCache()
	}
	if g.fetcher == nil {
		g.fetcher = web.NewFetcher(nil)
	}
	if g.seen == nil {
		g.seen = storage.NewInMemoryURLSet()
	}
	if g.Logger == nil {
		g.Logger = logrus.StandardLogger()
	}
	if g.workers < 1 {
		g.workers = 1
	}
	if g.queueSize < 0 {
		g.queueSize = 0
	}
	g.ctx, g.cancel = context.WithCancel(g.ctx)
	g.idle = sync.NewCond(&g.mu)
	g.pending = make(chan *job, g.queueSize)
	return g
}

// GetPages fetches every location that has not been seen by this getter
// and waits until all submitted work, including work from earlier calls that
// is still running, has finished. It returns the html pages for the
// requested locations only, in no particular order.
//
// If a fetch failed while waiting, that error is returned unchanged and no
// pages are returned. Cancelling ctx abandons the wait, the fetches keep
// running.
func (g *PageGetter) GetPages(ctx context.Context, locations []string, requirement string) ([]*web.HTMLPage, error) {
	g.start.Do(g.startWorkers)

	requested, err := parseLocations(locations)
	if err != nil {
		return nil, err
	}
	submit, err := g.markSeen(ctx, requested)
	if err != nil {
		return nil, err
	}
	g.Logger.WithFields(logrus.Fields{
		"requirement": requirement,
		"requested":   len(requested),
		"new":         len(submit),
	}).Debug("getting pages")

	if err = g.enqueue(ctx, submit, requirement); err != nil {
		return nil, err
	}
	if err = g.wait(ctx); err != nil {
		return nil, err
	}
	if err = g.errs.take(); err != nil {
		return nil, err
	}

	pages := make([]*web.HTMLPage, 0, len(requested))
	for _, l := range requested {
		page, ok, err := g.cache.Get(ctx, l.Key())
		if err != nil {
			return nil, errors.Wrap(err, "could not read page cache")
		}
		if ok && page != nil {
			pages = append(pages, page)
		}
	}
	return pages, nil
}

// Done returns the links that have been processed without error.
func (g *PageGetter) Done() []*link.Link {
	g.mu.Lock()
	defer g.mu.Unlock()
	done := make([]*link.Link, len(g.done))
	copy(done, g.done)
	return done
}

// Fetched returns the number of urls that the workers have processed.
func (g *PageGetter) Fetched() int64 { return atomic.LoadInt64(&g.fetched) }

// Pending returns the number of submitted urls that have not finished.
func (g *PageGetter) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.outstanding
}

// Close ends the session. Workers finish the fetch they are on and exit.
func (g *PageGetter) Close() error {
	g.sendMu.Lock()
	defer g.sendMu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	g.cancel()
	close(g.pending)
	return nil
}

func parseLocations(locations []string) ([]*link.Link, error) {
	var (
		links = make([]*link.Link, 0, len(locations))
		keys  = make(map[string]struct{}, len(locations))
	)
	for _, loc := range locations {
		l, err := link.Parse(loc)
		if err != nil {
			return nil, errors.Wrapf(err, "bad location %q", loc)
		}
		if _, ok := keys[l.Key()]; ok {
			continue
		}
		keys[l.Key()] = struct{}{}
		links = append(links, l)
	}
	return links, nil
}

// markSeen adds unseen links to the seen set and counts them as
// outstanding before they are queued.
func (g *PageGetter) markSeen(ctx context.Context, links []*link.Link) ([]*link.Link, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	submit := make([]*link.Link, 0, len(links))
	for _, l := range links {
		if g.seen.Has(ctx, l) {
			continue
		}
		if err := g.seen.Put(ctx, l); err != nil {
			return nil, errors.Wrap(err, "could not update seen set")
		}
		g.outstanding++
		submit = append(submit, l)
	}
	return submit, nil
}

// enqueue queues jobs for links that markSeen counted as outstanding. Every
// link is either sent to a worker or finished, even when ctx is cancelled.
func (g *PageGetter) enqueue(ctx context.Context, links []*link.Link, requirement string) error {
	g.sendMu.RLock()
	defer g.sendMu.RUnlock()
	if g.closed {
		g.finish(len(links))
		return ErrGetterClosed
	}
	for i, l := range links {
		select {
		case g.pending <- &job{link: l, requirement: requirement}:
		case <-ctx.Done():
			if ctx == g.ctx {
				// the session is over, nothing will pick up the rest
				g.finish(len(links) - i)
				return ctx.Err()
			}
			// the rest are already marked as seen, later calls rely on
			// them being fetched
			go g.enqueue(g.ctx, links[i:], requirement)
			return ctx.Err()
		}
	}
	return nil
}

func (g *PageGetter) wait(ctx context.Context) error {
	idle := make(chan struct{})
	go func() {
		g.mu.Lock()
		for g.outstanding > 0 {
			g.idle.Wait()
		}
		g.mu.Unlock()
		close(idle)
	}()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *PageGetter) finish(n int) {
	g.mu.Lock()
	g.outstanding -= n
	if g.outstanding <= 0 {
		g.outstanding = 0
		g.idle.Broadcast()
	}
	g.mu.Unlock()
}

func (g *PageGetter) startWorkers() {
	for i := 0; i < g.workers; i++ {
		go g.work(i)
	}
}

func (g *PageGetter) work(id int) {
	logger := g.Logger.WithField("worker", id)
	ctx := logging.Stash(g.ctx, logger)
	for j := range g.pending {
		g.process(ctx, logger, j)
	}
}

func (g *PageGetter) process(ctx context.Context, logger logrus.FieldLogger, j *job) {
	defer g.finish(1)
	defer func() {
		if r := recover(); r != nil {
			g.fail(logger, j, fmt.Errorf("panic while getting %s: %v", j.link, r))
		}
	}()
	atomic.AddInt64(&g.fetched, 1)
	_, err := web.GetPage(ctx, j.link, j.requirement, g.cache, g.fetcher)
	if err != nil {
		g.fail(logger, j, err)
		return
	}
	g.mu.Lock()
	g.done = append(g.done, j.link)
	g.mu.Unlock()
}

func (g *PageGetter) fail(logger logrus.FieldLogger, j *job, err error) {
	logger.WithFields(logrus.Fields{
		"error": err,
		"url":   j.link.String(),
		"type":  fmt.Sprintf("%T", err),
	}).Warn("could not get page")
	g.errs.set(err)
}

// errSlot holds the first error reported by a worker until the coordinator
// takes it.
type errSlot struct {
	mu  sync.Mutex
	err error
}

func (s *errSlot) set(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

func (s *errSlot) take() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.err
	s.err = nil
	return err
}
