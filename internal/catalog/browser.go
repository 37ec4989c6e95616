// Package catalog keeps the client-side view of a paginated movie listing:
// the accumulated cache of fetched pages, the filtered visible subset and the
// single in-flight request guard.
package catalog

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"sync"

	"github.com/vadimtrunov/flicks/internal/metadata/tmdb"
)

// Option configures a Browser.
type Option func(*Browser)

// WithExecutor sets how fetches are run. The default starts a goroutine;
// tests pass a synchronous executor to resolve fetches inline.
func WithExecutor(exec func(func())) Option {
	return func(b *Browser) {
		if exec != nil {
			b.exec = exec
		}
	}
}

// WithLogger sets the browser's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Browser) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Browser holds one screen's worth of catalog state.
//
// At most one fetch is outstanding at a time; RefetchPosts and AddMorePosts
// called while a fetch is in flight are refused rather than queued. All
// methods are safe for concurrent use.
type Browser struct {
	fetcher Fetcher
	exec    func(func())
	logger  *slog.Logger

	mu          sync.Mutex
	cache       []tmdb.Movie
	visible     []tmdb.Movie
	inFlight    bool
	filtering   bool
	filterText  string
	currentPage int
	totalPages  int

	observers      map[int]Observer
	nextObserverID int
}

// New creates an empty Browser on page 1.
func New(fetcher Fetcher, opts ...Option) *Browser {
	b := &Browser{
		fetcher:     fetcher,
		exec:        func(f func()) { go f() },
		logger:      slog.Default(),
		cache:       []tmdb.Movie{},
		visible:     []tmdb.Movie{},
		currentPage: 1,
		observers:   make(map[int]Observer),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// RefetchPosts reloads endpoint from its first page. It returns false, and
// does nothing else, when a fetch is already in flight.
//
// On success the cache is replaced and any active filter is cleared, so the
// visible list equals the new cache; onSuccess then runs before the in-flight
// flag is released. On failure cache, visible list and page counter keep their
// previous values and onError (which may be nil) receives the error.
func (b *Browser) RefetchPosts(ctx context.Context, endpoint string, onSuccess func(), onError func(error)) bool {
	b.mu.Lock()
	if b.inFlight {
		b.mu.Unlock()
		b.logger.Debug("refetch refused, fetch in flight", slog.String("endpoint", endpoint))
		return false
	}
	b.inFlight = true
	prevPage := b.currentPage
	b.currentPage = 1
	b.mu.Unlock()

	b.notifyStarted()

	b.exec(func() {
		page, err := b.fetcher.FetchMovies(ctx, endpoint, url.Values{})
		if err != nil {
			b.mu.Lock()
			b.currentPage = prevPage
			b.mu.Unlock()
			b.fail(endpoint, err, onError)
			return
		}

		b.mu.Lock()
		b.cache = append([]tmdb.Movie(nil), page.Movies...)
		b.totalPages = page.TotalPages
		b.clearFilterLocked()
		b.mu.Unlock()

		b.logger.Debug("catalog reloaded",
			slog.String("endpoint", endpoint),
			slog.Int("movies", len(page.Movies)),
		)
		b.succeed(onSuccess)
	})
	return true
}

// AddMorePosts fetches the next page of endpoint and appends it to the cache.
// It returns false without side effects when a fetch is in flight or a filter
// is active, since pages are only meaningful over the unfiltered cache.
//
// The page counter advances before the request is sent and is rolled back if
// the request fails, so the same page is asked for on the next attempt. If a
// filter was applied while the page was loading, the visible list is the
// filtered grown cache.
func (b *Browser) AddMorePosts(ctx context.Context, endpoint string, onSuccess func()) bool {
	b.mu.Lock()
	if b.inFlight || b.filtering {
		filtering := b.filtering
		b.mu.Unlock()
		b.logger.Debug("load more refused",
			slog.String("endpoint", endpoint),
			slog.Bool("filtering", filtering),
		)
		return false
	}
	b.inFlight = true
	b.currentPage++
	pageNum := b.currentPage
	b.mu.Unlock()

	b.notifyStarted()

	params := url.Values{"page": {strconv.Itoa(pageNum)}}
	b.exec(func() {
		page, err := b.fetcher.FetchMovies(ctx, endpoint, params)
		if err != nil {
			b.mu.Lock()
			b.currentPage = pageNum - 1
			b.mu.Unlock()
			b.fail(endpoint, err, nil)
			return
		}

		b.mu.Lock()
		b.cache = append(b.cache, page.Movies...)
		if page.TotalPages > 0 {
			b.totalPages = page.TotalPages
		}
		// A filter applied while the page was loading stays in effect.
		if b.filtering {
			b.visible = filterMovies(b.cache, b.filterText)
		} else {
			b.visible = append([]tmdb.Movie(nil), b.cache...)
		}
		b.mu.Unlock()

		b.logger.Debug("catalog page appended",
			slog.String("endpoint", endpoint),
			slog.Int("page", pageNum),
			slog.Int("movies", len(page.Movies)),
		)
		b.succeed(onSuccess)
	})
	return true
}

// ApplyFilter narrows the visible list to movies whose title contains *text,
// ignoring case. A nil text clears the filter and shows the whole cache.
// An empty, non-nil text still counts as an active filter.
func (b *Browser) ApplyFilter(text *string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if text == nil {
		b.clearFilterLocked()
		return
	}
	b.filtering = true
	b.filterText = *text
	b.visible = filterMovies(b.cache, *text)
}

// ClearFilter is ApplyFilter(nil).
func (b *Browser) ClearFilter() {
	b.ApplyFilter(nil)
}

// Visible returns a copy of the currently displayed movies.
func (b *Browser) Visible() []tmdb.Movie {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]tmdb.Movie{}, b.visible...)
}

// Cache returns a copy of every movie fetched in this session.
func (b *Browser) Cache() []tmdb.Movie {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]tmdb.Movie{}, b.cache...)
}

// InFlight reports whether a fetch is outstanding.
func (b *Browser) InFlight() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inFlight
}

// Filtering reports whether a filter is active.
func (b *Browser) Filtering() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filtering
}

// FilterText returns the active filter, or "" when none is set.
func (b *Browser) FilterText() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filterText
}

// CurrentPage returns the last page number requested successfully (or in flight).
func (b *Browser) CurrentPage() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentPage
}

// HasMore reports whether the catalog advertised pages beyond the current one.
// It is true until the first response carrying total_pages arrives.
func (b *Browser) HasMore() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalPages == 0 || b.currentPage < b.totalPages
}

// clearFilterLocked resets the visible list to the cache. Caller must hold b.mu.
func (b *Browser) clearFilterLocked() {
	b.filtering = false
	b.filterText = ""
	b.visible = append([]tmdb.Movie(nil), b.cache...)
}

func (b *Browser) succeed(onSuccess func()) {
	if onSuccess != nil {
		onSuccess()
	}

	b.mu.Lock()
	b.inFlight = false
	obs := b.snapshotObservers()
	b.mu.Unlock()

	for _, o := range obs {
		o.FetchFinished()
	}
}

func (b *Browser) fail(endpoint string, err error, onError func(error)) {
	b.logger.Warn("catalog fetch failed",
		slog.String("endpoint", endpoint),
		slog.String("error", err.Error()),
	)

	if onError != nil {
		onError(err)
	}

	b.mu.Lock()
	b.inFlight = false
	obs := b.snapshotObservers()
	b.mu.Unlock()

	for _, o := range obs {
		o.FetchFailed(err)
	}
}
