package catalog_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vadimtrunov/flicks/internal/catalog"
	"github.com/vadimtrunov/flicks/internal/catalog/mocks"
	"github.com/vadimtrunov/flicks/internal/metadata/tmdb"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// inline resolves fetches on the calling goroutine.
func inline(f func()) { f() }

func movie(id int, title string) tmdb.Movie {
	return tmdb.Movie{ID: id, Title: title}
}

func ptr(s string) *string { return &s }

func newBrowser(t *testing.T) (*catalog.Browser, *mocks.MockFetcher) {
	t.Helper()
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockFetcher(ctrl)
	b := catalog.New(fetcher, catalog.WithExecutor(inline), catalog.WithLogger(testLogger()))
	return b, fetcher
}

// seed loads movies through a successful refetch.
func seed(t *testing.T, b *catalog.Browser, fetcher *mocks.MockFetcher, movies ...tmdb.Movie) {
	t.Helper()
	fetcher.EXPECT().
		FetchMovies(gomock.Any(), tmdb.NowPlaying, url.Values{}).
		Return(tmdb.Page{Number: 1, TotalPages: 10, Movies: movies}, nil)
	require.True(t, b.RefetchPosts(context.Background(), tmdb.NowPlaying, nil, nil))
}

func TestBrowser_InitialState(t *testing.T) {
	b, _ := newBrowser(t)

	assert.Empty(t, b.Cache())
	assert.Empty(t, b.Visible())
	assert.False(t, b.InFlight())
	assert.False(t, b.Filtering())
	assert.Equal(t, 1, b.CurrentPage())
	assert.True(t, b.HasMore())
}

func TestRefetchPosts_LoadsFirstPage(t *testing.T) {
	b, fetcher := newBrowser(t)
	arrival := movie(1, "Arrival")

	fetcher.EXPECT().
		FetchMovies(gomock.Any(), "now_playing", url.Values{}).
		Return(tmdb.Page{Number: 1, Movies: []tmdb.Movie{arrival}}, nil)

	var successCalls int
	started := b.RefetchPosts(context.Background(), "now_playing", func() {
		successCalls++
		assert.True(t, b.InFlight(), "onSuccess runs before the in-flight flag is released")
	}, func(err error) {
		t.Errorf("unexpected error: %v", err)
	})

	require.True(t, started)
	assert.Equal(t, 1, successCalls)
	assert.Equal(t, []tmdb.Movie{arrival}, b.Cache())
	assert.Equal(t, b.Cache(), b.Visible())
	assert.False(t, b.InFlight())
	assert.Equal(t, 1, b.CurrentPage())
}

func TestRefetchPosts_ResetsPagination(t *testing.T) {
	b, fetcher := newBrowser(t)
	seed(t, b, fetcher, movie(1, "A"))

	fetcher.EXPECT().
		FetchMovies(gomock.Any(), tmdb.NowPlaying, url.Values{"page": {"2"}}).
		Return(tmdb.Page{Movies: []tmdb.Movie{movie(2, "B")}}, nil)
	require.True(t, b.AddMorePosts(context.Background(), tmdb.NowPlaying, nil))
	require.Equal(t, 2, b.CurrentPage())

	fetcher.EXPECT().
		FetchMovies(gomock.Any(), tmdb.TopRated, url.Values{}).
		Return(tmdb.Page{Movies: []tmdb.Movie{movie(9, "Z")}}, nil)
	require.True(t, b.RefetchPosts(context.Background(), tmdb.TopRated, nil, nil))

	assert.Equal(t, 1, b.CurrentPage())
	assert.Equal(t, []tmdb.Movie{movie(9, "Z")}, b.Cache(), "refetch replaces, never appends")
}

func TestRefetchPosts_ClearsFilter(t *testing.T) {
	b, fetcher := newBrowser(t)
	seed(t, b, fetcher, movie(1, "Arrival"), movie(2, "Heat"))

	b.ApplyFilter(ptr("heat"))
	require.True(t, b.Filtering())

	fetcher.EXPECT().
		FetchMovies(gomock.Any(), tmdb.NowPlaying, gomock.Any()).
		Return(tmdb.Page{Movies: []tmdb.Movie{movie(3, "Heat"), movie(4, "Up")}}, nil)
	require.True(t, b.RefetchPosts(context.Background(), tmdb.NowPlaying, nil, nil))

	assert.False(t, b.Filtering())
	assert.Empty(t, b.FilterText())
	assert.Equal(t, b.Cache(), b.Visible())
	assert.Len(t, b.Visible(), 2)
}

func TestRefetchPosts_FailureKeepsState(t *testing.T) {
	b, fetcher := newBrowser(t)
	seed(t, b, fetcher, movie(1, "A"), movie(2, "B"))

	fetcher.EXPECT().
		FetchMovies(gomock.Any(), tmdb.NowPlaying, gomock.Any()).
		Return(tmdb.Page{Movies: []tmdb.Movie{movie(3, "C")}}, nil)
	require.True(t, b.AddMorePosts(context.Background(), tmdb.NowPlaying, nil))
	before := b.Cache()

	boom := errors.New("network down")
	fetcher.EXPECT().
		FetchMovies(gomock.Any(), tmdb.NowPlaying, url.Values{}).
		Return(tmdb.Page{}, boom)

	var gotErr error
	require.True(t, b.RefetchPosts(context.Background(), tmdb.NowPlaying, func() {
		t.Error("onSuccess must not run on failure")
	}, func(err error) {
		gotErr = err
	}))

	assert.ErrorIs(t, gotErr, boom)
	assert.Equal(t, before, b.Cache())
	assert.Equal(t, before, b.Visible())
	assert.Equal(t, 2, b.CurrentPage(), "failed refetch restores the page counter")
	assert.False(t, b.InFlight())
}

func TestRefetchPosts_NilErrorCallback(t *testing.T) {
	b, fetcher := newBrowser(t)
	fetcher.EXPECT().
		FetchMovies(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(tmdb.Page{}, tmdb.ErrMalformedResponse)

	assert.NotPanics(t, func() {
		b.RefetchPosts(context.Background(), tmdb.NowPlaying, nil, nil)
	})
	assert.False(t, b.InFlight(), "malformed response must not leave the browser stuck")
}

func TestRefetchPosts_InFlightGuard(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockFetcher(ctrl)
	b := catalog.New(fetcher, catalog.WithLogger(testLogger()))

	release := make(chan struct{})
	fetcher.EXPECT().
		FetchMovies(gomock.Any(), tmdb.NowPlaying, gomock.Any()).
		DoAndReturn(func(context.Context, string, url.Values) (tmdb.Page, error) {
			<-release
			return tmdb.Page{Movies: []tmdb.Movie{movie(1, "Arrival")}}, nil
		}).
		Times(1)

	done := make(chan struct{})
	unsubscribe := b.Subscribe(catalog.ObserverFuncs{Finished: func() { close(done) }})
	defer unsubscribe()

	require.True(t, b.RefetchPosts(context.Background(), tmdb.NowPlaying, nil, nil))
	require.True(t, b.InFlight())

	secondSuccess := false
	assert.False(t, b.RefetchPosts(context.Background(), tmdb.TopRated, func() { secondSuccess = true }, nil))
	assert.False(t, b.AddMorePosts(context.Background(), tmdb.NowPlaying, nil))
	assert.Empty(t, b.Cache())
	assert.Equal(t, 1, b.CurrentPage())
	assert.True(t, b.InFlight())

	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not finish")
	}

	assert.False(t, secondSuccess)
	assert.Equal(t, []tmdb.Movie{movie(1, "Arrival")}, b.Cache())
	assert.False(t, b.InFlight())
}

func TestAddMorePosts_AppendsInOrder(t *testing.T) {
	b, fetcher := newBrowser(t)
	m1, m2, m3, m4 := movie(1, "One"), movie(2, "Two"), movie(3, "Three"), movie(4, "Four")
	seed(t, b, fetcher, m1, m2)

	fetcher.EXPECT().
		FetchMovies(gomock.Any(), tmdb.NowPlaying, url.Values{"page": {"2"}}).
		Return(tmdb.Page{Number: 2, Movies: []tmdb.Movie{m3, m4}}, nil)

	called := false
	require.True(t, b.AddMorePosts(context.Background(), tmdb.NowPlaying, func() { called = true }))

	assert.True(t, called)
	assert.Equal(t, []tmdb.Movie{m1, m2, m3, m4}, b.Cache())
	assert.Equal(t, b.Cache(), b.Visible())
	assert.Equal(t, 2, b.CurrentPage())
	assert.False(t, b.InFlight())
}

func TestAddMorePosts_BlockedWhileFiltering(t *testing.T) {
	b, fetcher := newBrowser(t)
	seed(t, b, fetcher, movie(1, "Arrival"), movie(2, "Heat"))

	b.ApplyFilter(ptr("arr"))
	visible := b.Visible()

	// No FetchMovies expectation: any call fails the test.
	assert.False(t, b.AddMorePosts(context.Background(), tmdb.NowPlaying, func() {
		t.Error("onSuccess must not run")
	}))
	assert.Equal(t, 1, b.CurrentPage())
	assert.Equal(t, visible, b.Visible())
	assert.Len(t, b.Cache(), 2)
	assert.False(t, b.InFlight())
}

func TestAddMorePosts_FailureRollsBackPage(t *testing.T) {
	b, fetcher := newBrowser(t)
	seed(t, b, fetcher, movie(1, "A"))

	gomock.InOrder(
		fetcher.EXPECT().
			FetchMovies(gomock.Any(), tmdb.NowPlaying, url.Values{"page": {"2"}}).
			Return(tmdb.Page{}, errors.New("timeout")),
		fetcher.EXPECT().
			FetchMovies(gomock.Any(), tmdb.NowPlaying, url.Values{"page": {"2"}}).
			Return(tmdb.Page{Movies: []tmdb.Movie{movie(2, "B")}}, nil),
	)

	require.True(t, b.AddMorePosts(context.Background(), tmdb.NowPlaying, nil))
	assert.Equal(t, 1, b.CurrentPage())
	assert.Len(t, b.Cache(), 1)
	assert.False(t, b.InFlight())

	require.True(t, b.AddMorePosts(context.Background(), tmdb.NowPlaying, nil))
	assert.Equal(t, 2, b.CurrentPage())
	assert.Equal(t, []tmdb.Movie{movie(1, "A"), movie(2, "B")}, b.Cache())
}

func TestAddMorePosts_FilterAppliedWhileLoading(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockFetcher(ctrl)

	var pending []func()
	deferred := func(f func()) { pending = append(pending, f) }
	b := catalog.New(fetcher, catalog.WithExecutor(deferred), catalog.WithLogger(testLogger()))

	arrival, heat, up, barbarella := movie(1, "Arrival"), movie(2, "Heat"), movie(3, "Up"), movie(4, "Barbarella")
	fetcher.EXPECT().
		FetchMovies(gomock.Any(), tmdb.NowPlaying, url.Values{}).
		Return(tmdb.Page{Number: 1, TotalPages: 5, Movies: []tmdb.Movie{arrival, heat}}, nil)
	require.True(t, b.RefetchPosts(context.Background(), tmdb.NowPlaying, nil, nil))
	require.Len(t, pending, 1)
	pending[0]()

	fetcher.EXPECT().
		FetchMovies(gomock.Any(), tmdb.NowPlaying, url.Values{"page": {"2"}}).
		Return(tmdb.Page{Number: 2, TotalPages: 5, Movies: []tmdb.Movie{up, barbarella}}, nil)
	require.True(t, b.AddMorePosts(context.Background(), tmdb.NowPlaying, nil))
	require.True(t, b.InFlight())

	b.ApplyFilter(ptr("ar"))
	require.Len(t, pending, 2)
	pending[1]()

	assert.False(t, b.InFlight())
	assert.True(t, b.Filtering())
	assert.Equal(t, "ar", b.FilterText())
	assert.Equal(t, []tmdb.Movie{arrival, heat, up, barbarella}, b.Cache())
	assert.Equal(t, []tmdb.Movie{arrival, barbarella}, b.Visible())
	for _, m := range b.Visible() {
		assert.Contains(t, strings.ToLower(m.Title), "ar")
	}

	b.ClearFilter()
	assert.Equal(t, b.Cache(), b.Visible())
}

func TestApplyFilter_Scenarios(t *testing.T) {
	b, fetcher := newBrowser(t)
	arrival := movie(1, "Arrival")
	seed(t, b, fetcher, arrival)

	b.ApplyFilter(ptr("arr"))
	assert.Equal(t, []tmdb.Movie{arrival}, b.Visible())
	assert.True(t, b.Filtering())
	assert.Equal(t, "arr", b.FilterText())

	b.ApplyFilter(ptr("zz"))
	assert.Empty(t, b.Visible())
	assert.Len(t, b.Cache(), 1, "filtering never touches the cache")
}

func TestApplyFilter_Properties(t *testing.T) {
	b, fetcher := newBrowser(t)
	seed(t, b, fetcher,
		movie(1, "The Dark Knight"),
		movie(2, "Arrival"),
		movie(3, "DARK CITY"),
		movie(4, "Amélie"),
		movie(5, "Knives Out"),
		movie(6, "Dunkirk"),
	)
	cache := b.Cache()

	filters := []string{"dark", "DARK", "k", "ÉLIE", "i", "", "nothing matches", " "}
	for _, f := range filters {
		t.Run(f, func(t *testing.T) {
			b.ApplyFilter(ptr(f))
			once := b.Visible()

			// Applying the same filter twice is idempotent.
			b.ApplyFilter(ptr(f))
			assert.Equal(t, once, b.Visible())

			// Visible is an order-preserving subsequence of the cache whose
			// titles contain the filter case-insensitively.
			next := 0
			for _, m := range once {
				assert.Contains(t, strings.ToLower(m.Title), strings.ToLower(f))
				for next < len(cache) && cache[next].ID != m.ID {
					next++
				}
				require.Less(t, next, len(cache), "visible movie %q out of cache order", m.Title)
				next++
			}

			// Clearing restores the full cache.
			b.ApplyFilter(nil)
			assert.Equal(t, cache, b.Visible())
			assert.False(t, b.Filtering())
		})
	}
}

func TestApplyFilter_CaseFolding(t *testing.T) {
	b, fetcher := newBrowser(t)
	seed(t, b, fetcher, movie(1, "Amélie"), movie(2, "Heat"))

	b.ApplyFilter(ptr("AMÉLIE"))
	require.Len(t, b.Visible(), 1)
	assert.Equal(t, 1, b.Visible()[0].ID)
}

func TestApplyFilter_EmptyStringIsActive(t *testing.T) {
	b, fetcher := newBrowser(t)
	seed(t, b, fetcher, movie(1, "A"), movie(2, "B"))

	b.ApplyFilter(ptr(""))
	assert.True(t, b.Filtering())
	assert.Len(t, b.Visible(), 2)
	assert.False(t, b.AddMorePosts(context.Background(), tmdb.NowPlaying, nil))

	b.ClearFilter()
	assert.False(t, b.Filtering())
}

func TestObserver_Lifecycle(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockFetcher(ctrl)
	obs := mocks.NewMockObserver(ctrl)
	b := catalog.New(fetcher, catalog.WithExecutor(inline), catalog.WithLogger(testLogger()))

	boom := errors.New("boom")
	fetcher.EXPECT().FetchMovies(gomock.Any(), gomock.Any(), gomock.Any()).Return(tmdb.Page{}, nil)
	fetcher.EXPECT().FetchMovies(gomock.Any(), gomock.Any(), gomock.Any()).Return(tmdb.Page{}, boom)

	gomock.InOrder(
		obs.EXPECT().FetchStarted(),
		obs.EXPECT().FetchFinished(),
		obs.EXPECT().FetchStarted(),
		obs.EXPECT().FetchFailed(boom),
	)

	unsubscribe := b.Subscribe(obs)
	b.RefetchPosts(context.Background(), tmdb.NowPlaying, nil, nil)
	b.AddMorePosts(context.Background(), tmdb.NowPlaying, nil)
	unsubscribe()

	// Unsubscribed observers see nothing further; gomock fails on unexpected calls.
	fetcher.EXPECT().FetchMovies(gomock.Any(), gomock.Any(), gomock.Any()).Return(tmdb.Page{}, nil)
	b.RefetchPosts(context.Background(), tmdb.NowPlaying, nil, nil)
	unsubscribe()
}

func TestObserver_NotRequired(t *testing.T) {
	b, fetcher := newBrowser(t)
	fetcher.EXPECT().FetchMovies(gomock.Any(), gomock.Any(), gomock.Any()).Return(tmdb.Page{}, errors.New("x"))

	assert.NotPanics(t, func() {
		b.RefetchPosts(context.Background(), tmdb.NowPlaying, nil, nil)
	})
}

func TestHasMore(t *testing.T) {
	b, fetcher := newBrowser(t)
	fetcher.EXPECT().
		FetchMovies(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(tmdb.Page{Number: 1, TotalPages: 2}, nil)
	b.RefetchPosts(context.Background(), tmdb.NowPlaying, nil, nil)
	assert.True(t, b.HasMore())

	fetcher.EXPECT().
		FetchMovies(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(tmdb.Page{Number: 2, TotalPages: 2}, nil)
	b.AddMorePosts(context.Background(), tmdb.NowPlaying, nil)
	assert.False(t, b.HasMore())
}
