package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vadimtrunov/flicks/internal/httpclient"
)

const (
	defaultBaseURL      = "https://api.themoviedb.org/3"
	defaultImageBaseURL = "https://image.tmdb.org/t/p/"
	detailsTTL          = 15 * time.Minute
)

// Listing endpoints understood by FetchMovies.
const (
	NowPlaying = "now_playing"
	TopRated   = "top_rated"
)

// Options overrides the client's defaults. Zero fields keep the default.
type Options struct {
	BaseURL      string
	ImageBaseURL string
	HTTP         httpclient.Config
}

// Client is a TMDb API v3 client.
type Client struct {
	baseURL      string
	imageBaseURL string
	apiKey       string
	http         *httpclient.Client
	details      *ttlCache[*MovieDetails]
	logger       *slog.Logger
}

// New creates a new TMDb client.
func New(apiKey string, logger *slog.Logger) *Client {
	return NewWithOptions(apiKey, Options{}, logger)
}

// NewWithOptions creates a TMDb client with custom endpoints and transport settings.
func NewWithOptions(apiKey string, opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.ImageBaseURL == "" {
		opts.ImageBaseURL = defaultImageBaseURL
	}
	if opts.HTTP == (httpclient.Config{}) {
		opts.HTTP = httpclient.DefaultConfig()
	}
	return &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		imageBaseURL: opts.ImageBaseURL,
		apiKey:       apiKey,
		http:         httpclient.New(opts.HTTP, logger),
		details:      newTTLCache[*MovieDetails](detailsTTL),
		logger:       logger,
	}
}

// NewForTest creates a TMDb client with a custom base URL for testing.
// Exported because it is used by cross-package tests (e.g. internal/mcp).
func NewForTest(baseURL string, logger *slog.Logger) *Client {
	return NewWithOptions("test-key", Options{BaseURL: baseURL, ImageBaseURL: baseURL + "/images/"}, logger)
}

// FetchMovies requests one page of a listing endpoint. endpoint is either a
// listing name (NowPlaying, TopRated), a path below the API root, or an
// absolute URL. params are sent alongside api_key and win on collision.
func (c *Client) FetchMovies(ctx context.Context, endpoint string, params url.Values) (Page, error) {
	target, err := c.resolveEndpoint(endpoint)
	if err != nil {
		return Page{}, err
	}

	resp, err := c.get(ctx, target, params)
	if err != nil {
		return Page{}, fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	page, err := DecodePage(resp.Body)
	if err != nil {
		return Page{}, fmt.Errorf("fetch %s: %w", endpoint, err)
	}

	c.logger.Debug("fetched catalog page",
		slog.String("endpoint", endpoint),
		slog.Int("page", page.Number),
		slog.Int("total_pages", page.TotalPages),
		slog.Int("movies", len(page.Movies)),
	)
	return page, nil
}

// GetMovie retrieves full details for a movie by TMDb ID.
func (c *Client) GetMovie(ctx context.Context, id int) (*MovieDetails, error) {
	if details, ok := c.details.get(id); ok {
		return details, nil
	}

	resp, err := c.get(ctx, fmt.Sprintf("%s/movie/%d", c.baseURL, id), nil)
	if err != nil {
		return nil, fmt.Errorf("get movie %d: %w", id, err)
	}
	defer resp.Body.Close()

	var details MovieDetails
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return nil, fmt.Errorf("get movie %d: decode: %w", id, err)
	}

	c.details.set(id, &details)
	return &details, nil
}

// PosterURL returns the full poster URL using this client's image host.
func (c *Client) PosterURL(posterPath, size string) string {
	return joinPoster(c.imageBaseURL, posterPath, size)
}

// PosterURL returns the full URL for a poster path on the public image host.
func PosterURL(posterPath, size string) string {
	return joinPoster(defaultImageBaseURL, posterPath, size)
}

func joinPoster(base, posterPath, size string) string {
	if posterPath == "" {
		return ""
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	if !strings.HasPrefix(posterPath, "/") {
		posterPath = "/" + posterPath
	}
	return base + size + posterPath
}

func (c *Client) resolveEndpoint(endpoint string) (string, error) {
	switch {
	case endpoint == "":
		return "", fmt.Errorf("empty endpoint")
	case strings.HasPrefix(endpoint, "http://"), strings.HasPrefix(endpoint, "https://"):
		return endpoint, nil
	case strings.HasPrefix(endpoint, "/"):
		return c.baseURL + endpoint, nil
	default:
		return c.baseURL + "/movie/" + endpoint, nil
	}
}

// get performs an authenticated GET request. The caller closes the body.
func (c *Client) get(ctx context.Context, target string, params url.Values) (*http.Response, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	q := u.Query()
	q.Set("api_key", c.apiKey)
	for k, vs := range params {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return c.http.Do(req)
}
