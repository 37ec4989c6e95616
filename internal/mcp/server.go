package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vadimtrunov/flicks/internal/catalog"
	"github.com/vadimtrunov/flicks/internal/metadata/tmdb"
)

// DetailsClient fetches full movie details.
type DetailsClient interface {
	GetMovie(ctx context.Context, id int) (*tmdb.MovieDetails, error)
}

// Deps holds the dependencies of the MCP tool handlers.
type Deps struct {
	Browser         *catalog.Browser
	Details         DetailsClient
	DefaultEndpoint string
	// PosterURL turns a poster path into an absolute URL; nil omits poster URLs.
	PosterURL func(posterPath string) string
}

// Server wraps an MCP SDK server with catalog tool handlers.
type Server struct {
	server *mcpsdk.Server
	deps   Deps
	logger *slog.Logger

	// mu serializes the tools that drive the browser so each one observes
	// the lifecycle events of its own fetch.
	mu       sync.Mutex
	endpoint string
}

// NewServer creates an MCP server with all catalog tools registered.
func NewServer(deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.DefaultEndpoint == "" {
		deps.DefaultEndpoint = tmdb.NowPlaying
	}

	s := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "flicks",
			Version: "0.1.0",
		},
		&mcpsdk.ServerOptions{Logger: logger},
	)

	srv := &Server{server: s, deps: deps, logger: logger}
	srv.registerTools()
	return srv
}

// ServeStdio runs the MCP server over stdin/stdout.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.server.Run(ctx, &mcpsdk.StdioTransport{})
}

// MCPServer returns the underlying MCP SDK server (for testing).
func (s *Server) MCPServer() *mcpsdk.Server {
	return s.server
}

func (s *Server) registerTools() {
	s.server.AddTool(refetchMoviesTool(), s.handleRefetchMovies)
	s.server.AddTool(loadMoreMoviesTool(), s.handleLoadMoreMovies)
	s.server.AddTool(filterMoviesTool(), s.handleFilterMovies)
	s.server.AddTool(listMoviesTool(), s.handleListMovies)
	s.server.AddTool(getMovieDetailsTool(), s.handleGetMovieDetails)
}

func refetchMoviesTool() *mcpsdk.Tool {
	return &mcpsdk.Tool{
		Name:        "refetch_movies",
		Description: "Reload a movie listing from its first page. Clears any active title filter. Returns the visible movies.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"endpoint": map[string]any{
					"type":        "string",
					"enum":        []any{tmdb.NowPlaying, tmdb.TopRated},
					"description": "Which listing to load; defaults to the configured listing",
				},
			},
		},
	}
}

func loadMoreMoviesTool() *mcpsdk.Tool {
	return &mcpsdk.Tool{
		Name:        "load_more_movies",
		Description: "Append the next page of the current listing. Not allowed while a title filter is active.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	}
}

func filterMoviesTool() *mcpsdk.Tool {
	return &mcpsdk.Tool{
		Name:        "filter_movies",
		Description: "Show only loaded movies whose title contains the given text (case-insensitive). Omit text to clear the filter.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{
					"type":        "string",
					"description": "Substring to look for in titles",
				},
			},
		},
	}
}

func listMoviesTool() *mcpsdk.Tool {
	return &mcpsdk.Tool{
		Name:        "list_movies",
		Description: "Return the currently visible movies without fetching anything.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	}
}

func getMovieDetailsTool() *mcpsdk.Tool {
	return &mcpsdk.Tool{
		Name:        "get_movie_details",
		Description: "Get detailed information about a movie by its TMDb ID. Returns runtime, genres, tagline, full overview, and ratings.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"tmdb_id": map[string]any{
					"type":        "integer",
					"description": "The TMDb ID of the movie",
				},
			},
			"required": []any{"tmdb_id"},
		},
	}
}

// Tool handlers.

func (s *Server) handleRefetchMovies(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	if s.deps.Browser == nil {
		return toolError("catalog browser not configured"), nil
	}

	var args struct {
		Endpoint string `json:"endpoint"`
	}
	if err := decodeArgs(req.Params.Arguments, &args); err != nil {
		return toolError(err.Error()), nil
	}
	endpoint := args.Endpoint
	if endpoint == "" {
		endpoint = s.deps.DefaultEndpoint
	}
	if endpoint != tmdb.NowPlaying && endpoint != tmdb.TopRated {
		return toolError(fmt.Sprintf("unknown endpoint %q", endpoint)), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.awaitFetch(ctx, func() bool {
		return s.deps.Browser.RefetchPosts(ctx, endpoint, nil, nil)
	})
	if err != nil {
		return toolError(fmt.Sprintf("refetch failed: %v", err)), nil
	}
	s.endpoint = endpoint
	return toolJSON(s.snapshot())
}

func (s *Server) handleLoadMoreMovies(ctx context.Context, _ *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	if s.deps.Browser == nil {
		return toolError("catalog browser not configured"), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.endpoint == "" {
		return toolError("nothing loaded yet, call refetch_movies first"), nil
	}
	if s.deps.Browser.Filtering() {
		return toolError("clear the title filter before loading more movies"), nil
	}

	err := s.awaitFetch(ctx, func() bool {
		return s.deps.Browser.AddMorePosts(ctx, s.endpoint, nil)
	})
	if err != nil {
		return toolError(fmt.Sprintf("load more failed: %v", err)), nil
	}
	return toolJSON(s.snapshot())
}

func (s *Server) handleFilterMovies(_ context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	if s.deps.Browser == nil {
		return toolError("catalog browser not configured"), nil
	}

	var args struct {
		Text *string `json:"text"`
	}
	if err := decodeArgs(req.Params.Arguments, &args); err != nil {
		return toolError(err.Error()), nil
	}

	s.deps.Browser.ApplyFilter(args.Text)
	return toolJSON(s.snapshot())
}

func (s *Server) handleListMovies(_ context.Context, _ *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	if s.deps.Browser == nil {
		return toolError("catalog browser not configured"), nil
	}
	return toolJSON(s.snapshot())
}

func (s *Server) handleGetMovieDetails(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	if s.deps.Details == nil {
		return toolError("TMDb client not configured"), nil
	}

	tmdbID, err := extractIntFromArgs(req.Params.Arguments, "tmdb_id")
	if err != nil {
		return toolError(err.Error()), nil
	}

	details, err := s.deps.Details.GetMovie(ctx, tmdbID)
	if err != nil {
		return toolError(fmt.Sprintf("tmdb get movie failed: %v", err)), nil
	}
	return toolJSON(details)
}

// awaitFetch starts a browser fetch and blocks until its terminal lifecycle
// event. Caller must hold s.mu.
func (s *Server) awaitFetch(ctx context.Context, start func() bool) error {
	done := make(chan error, 1)
	unsubscribe := s.deps.Browser.Subscribe(catalog.ObserverFuncs{
		Finished: func() { done <- nil },
		Failed:   func(err error) { done <- err },
	})
	defer unsubscribe()

	if !start() {
		return fmt.Errorf("a fetch is already in flight")
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type movieView struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Year        int     `json:"year,omitempty"`
	Rating      float64 `json:"rating"`
	Overview    string  `json:"overview,omitempty"`
	PosterURL   string  `json:"poster_url,omitempty"`
	ReleaseDate string  `json:"release_date,omitempty"`
}

type listingView struct {
	Endpoint string      `json:"endpoint,omitempty"`
	Page     int         `json:"page"`
	HasMore  bool        `json:"has_more"`
	Filter   *string     `json:"filter,omitempty"`
	Total    int         `json:"total_loaded"`
	Movies   []movieView `json:"movies"`
}

func (s *Server) snapshot() listingView {
	b := s.deps.Browser
	visible := b.Visible()

	view := listingView{
		Endpoint: s.endpoint,
		Page:     b.CurrentPage(),
		HasMore:  b.HasMore(),
		Total:    len(b.Cache()),
		Movies:   make([]movieView, 0, len(visible)),
	}
	if b.Filtering() {
		text := b.FilterText()
		view.Filter = &text
	}
	for _, m := range visible {
		mv := movieView{
			ID:          m.ID,
			Title:       m.Title,
			Year:        m.Year(),
			Rating:      m.VoteAverage,
			Overview:    m.Overview,
			ReleaseDate: m.ReleaseDate,
		}
		if s.deps.PosterURL != nil {
			mv.PosterURL = s.deps.PosterURL(m.PosterPath)
		}
		view.Movies = append(view.Movies, mv)
	}
	return view
}

// Helper functions.

// toolJSON marshals v to JSON and returns it as text content.
func toolJSON(v any) (*mcpsdk.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return toolError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
	}, nil
}

// toolError returns a tool result indicating an error.
func toolError(msg string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: msg}},
		IsError: true,
	}
}

// decodeArgs unmarshals raw tool arguments; empty arguments leave v untouched.
func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// extractIntFromArgs extracts an integer argument from raw JSON arguments.
func extractIntFromArgs(raw json.RawMessage, key string) (int, error) {
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return 0, fmt.Errorf("invalid arguments: %w", err)
	}

	val, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("%s is required", key)
	}

	switch v := val.(type) {
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s must be a number: %w", key, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be a number, got %T", key, val)
	}
}
