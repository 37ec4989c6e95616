package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/vadimtrunov/flicks/internal/catalog"
	"github.com/vadimtrunov/flicks/internal/config"
	"github.com/vadimtrunov/flicks/internal/metadata/tmdb"
)

const ratingBarWidth = 10

// listOptions controls a non-interactive listing.
type listOptions struct {
	endpoint string
	pages    int
	filter   *string
}

func newListCmd() *cobra.Command {
	var (
		pages   int
		filter  string
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:       "list [now_playing|top_rated]",
		Short:     "Print a movie listing",
		Long:      "Fetch one or more pages of a listing and print them, optionally filtered by title.",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{tmdb.NowPlaying, tmdb.TopRated},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			logger := config.SetupLogger(cfg.App.LogLevel, nil)
			svc := initServices(cfg, logger)

			opts := listOptions{endpoint: cfg.Browse.DefaultEndpoint, pages: pages}
			if len(args) == 1 {
				opts.endpoint = args[0]
			}
			if cmd.Flags().Changed("filter") {
				opts.filter = &filter
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			movies, err := listMovies(ctx, svc.tmdb, opts, logger)
			if err != nil {
				return err
			}
			if jsonOut {
				return printMoviesJSON(cmd.OutOrStdout(), movies)
			}
			printMovies(cmd.OutOrStdout(), opts.endpoint, movies)
			return nil
		},
	}

	cmd.Flags().IntVarP(&pages, "pages", "p", 1, "number of pages to fetch")
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "only show titles containing this text")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON instead of a table")
	return cmd
}

// listMovies drives a Browser synchronously: one refetch, then load-more
// until opts.pages pages are cached or the listing runs out.
func listMovies(ctx context.Context, fetcher catalog.Fetcher, opts listOptions, logger *slog.Logger) ([]tmdb.Movie, error) {
	if opts.pages < 1 {
		return nil, fmt.Errorf("--pages must be at least 1, got %d", opts.pages)
	}

	b := catalog.New(fetcher,
		catalog.WithExecutor(func(f func()) { f() }),
		catalog.WithLogger(logger),
	)

	var fetchErr error
	unsubscribe := b.Subscribe(catalog.ObserverFuncs{
		Failed: func(err error) { fetchErr = err },
	})
	defer unsubscribe()

	b.RefetchPosts(ctx, opts.endpoint, nil, nil)
	if fetchErr != nil {
		return nil, fmt.Errorf("fetch %s: %w", opts.endpoint, fetchErr)
	}

	for b.CurrentPage() < opts.pages && b.HasMore() {
		if !b.AddMorePosts(ctx, opts.endpoint, nil) {
			break
		}
		if fetchErr != nil {
			return nil, fmt.Errorf("fetch %s page %d: %w", opts.endpoint, b.CurrentPage()+1, fetchErr)
		}
	}

	b.ApplyFilter(opts.filter)
	return b.Visible(), nil
}

func printMovies(w io.Writer, endpoint string, movies []tmdb.Movie) {
	if len(movies) == 0 {
		fmt.Fprintln(w, styleDim.Render("No movies."))
		return
	}

	fmt.Fprintln(w, styleHeader.Render(endpointTitle(endpoint)))
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	for i, m := range movies {
		fmt.Fprintf(w, "%s %s\n   %s\n",
			label.Render(fmt.Sprintf("%d.", i+1)),
			styleTitle.Render(movieLabel(m)),
			ratingBar(m.VoteAverage, ratingBarWidth),
		)
	}
}

func printMoviesJSON(w io.Writer, movies []tmdb.Movie) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(movies); err != nil {
		return fmt.Errorf("encode movies: %w", err)
	}
	return nil
}

func endpointTitle(endpoint string) string {
	switch endpoint {
	case tmdb.NowPlaying:
		return "Now Playing"
	case tmdb.TopRated:
		return "Top Rated"
	default:
		return endpoint
	}
}
