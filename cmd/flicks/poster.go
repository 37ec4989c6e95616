package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vadimtrunov/flicks/internal/config"
	"github.com/vadimtrunov/flicks/internal/imageload"
	"github.com/vadimtrunov/flicks/internal/metadata/tmdb"
	"github.com/vadimtrunov/flicks/internal/termimg"
)

const (
	defaultPosterCols = 40
	defaultPosterRows = 30
)

func newPosterCmd() *cobra.Command {
	var cols, rows int
	cmd := &cobra.Command{
		Use:   "poster <tmdb-id>",
		Short: "Draw a movie poster in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid TMDb ID %q", args[0])
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			logger := config.SetupLogger(cfg.App.LogLevel, nil)
			svc := initServices(cfg, logger)

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return showPoster(ctx, cmd.OutOrStdout(), svc.tmdb, svc.images, cfg.TMDb.PosterSize, id, cols, rows)
		},
	}
	cmd.Flags().IntVar(&cols, "cols", defaultPosterCols, "maximum poster width in terminal cells")
	cmd.Flags().IntVar(&rows, "rows", defaultPosterRows, "maximum poster height in terminal cells")
	return cmd
}

// posterSource is the part of the TMDb client showPoster needs.
type posterSource interface {
	GetMovie(ctx context.Context, id int) (*tmdb.MovieDetails, error)
	PosterURL(posterPath, size string) string
}

// showPoster fetches a movie's details and draws its poster without fading.
func showPoster(ctx context.Context, w io.Writer, src posterSource, images *imageload.Loader, size string, id, cols, rows int) error {
	details, err := src.GetMovie(ctx, id)
	if err != nil {
		return fmt.Errorf("get movie: %w", err)
	}

	fmt.Fprintln(w, styleHeader.Render(movieLabel(tmdb.Movie{Title: details.Title, ReleaseDate: details.ReleaseDate})))

	posterURL := src.PosterURL(details.PosterPath, size)
	if posterURL == "" {
		fmt.Fprintln(w, styleDim.Render("No poster available."))
		return nil
	}

	frame := imageload.NewFrame(nil)
	loader := *images
	loader.FadeDuration = 0
	if err := loader.Load(ctx, posterURL, frame); err != nil {
		return fmt.Errorf("load poster: %w", err)
	}

	img, opacity := frame.Snapshot()
	c, r := termimg.Size(img, cols, rows)
	fmt.Fprintln(w, termimg.Render(img, c, r, opacity))
	return nil
}
