package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vadimtrunov/flicks/internal/config"
	"github.com/vadimtrunov/flicks/internal/httpclient"
	"github.com/vadimtrunov/flicks/internal/imageload"
	"github.com/vadimtrunov/flicks/internal/metadata/tmdb"
)

// Lipgloss styles used across commands.
var (
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	styleInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")) // blue
	styleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
	styleRating  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow

	styleSelected = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true) // cyan bold
	styleTitle    = lipgloss.NewStyle().Bold(true)

	styleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("5")).
			MarginBottom(1)
)

// loadConfig loads and validates the configuration file. A missing file is
// not an error: settings then come from FLICKS_* environment variables.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

// services bundles the clients every command needs.
type services struct {
	cfg    *config.Config
	tmdb   *tmdb.Client
	images *imageload.Loader
	logger *slog.Logger
}

// initServices creates the TMDb client and the poster loader.
func initServices(cfg *config.Config, logger *slog.Logger) *services {
	httpCfg := httpclient.Config{
		Timeout:   cfg.HTTP.Timeout,
		UserAgent: cfg.HTTP.UserAgent,
	}

	client := tmdb.NewWithOptions(cfg.TMDb.APIKey, tmdb.Options{
		BaseURL:      cfg.TMDb.BaseURL,
		ImageBaseURL: cfg.TMDb.ImageBaseURL,
		HTTP:         httpCfg,
	}, logger)
	logger.Info("TMDb client initialized", slog.String("url", sanitizeURL(cfg.TMDb.BaseURL)))

	images := imageload.New(httpclient.New(httpCfg, logger), logger)
	images.FadeDuration = cfg.Browse.FadeDuration

	return &services{cfg: cfg, tmdb: client, images: images, logger: logger}
}

// posterURL resolves a poster path at the configured size.
func (s *services) posterURL(posterPath string) string {
	return s.tmdb.PosterURL(posterPath, s.cfg.TMDb.PosterSize)
}

// sanitizeURL strips credentials, query params, and fragment from a URL for safe logging.
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || u.Scheme == "" {
		return "<redacted>"
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// ratingBar draws a 0-10 vote average as a bar of the given width.
func ratingBar(vote float64, width int) string {
	filled := int(vote / 10 * float64(width))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	empty := width - filled

	bar := styleRating.Render(strings.Repeat("█", filled)) +
		styleDim.Render(strings.Repeat("░", empty))
	return fmt.Sprintf("%s %s", bar, styleDim.Render(fmt.Sprintf("%.1f", vote)))
}

// movieLabel renders "Title (Year)".
func movieLabel(m tmdb.Movie) string {
	if y := m.Year(); y > 0 {
		return fmt.Sprintf("%s (%d)", m.Title, y)
	}
	return m.Title
}
