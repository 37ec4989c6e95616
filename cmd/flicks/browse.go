package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/vadimtrunov/flicks/internal/catalog"
	"github.com/vadimtrunov/flicks/internal/config"
	"github.com/vadimtrunov/flicks/internal/imageload"
	"github.com/vadimtrunov/flicks/internal/metadata/tmdb"
	"github.com/vadimtrunov/flicks/internal/termimg"
)

const (
	// loadMoreThreshold is how close to the end of the list the cursor gets
	// before the next page is requested.
	loadMoreThreshold = 3
	eventBuffer       = 32
	posterRows        = 18
)

var browseEndpoints = []string{tmdb.NowPlaying, tmdb.TopRated}

func newBrowseCmd() *cobra.Command {
	var logFile string
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse movie listings interactively",
		Long: "Browse movie listings with infinite scrolling and posters.\n" +
			"Keys: ↑/↓ move, enter details, / filter, esc clear filter,\n" +
			"tab switch listing, r reload, m load more, q quit.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBrowse(cmd.Context(), cmd.OutOrStdout(), logFile)
		},
	}
	cmd.Flags().StringVar(&logFile, "log-file", "", "append logs to this file (discarded otherwise)")
	return cmd
}

// runBrowse starts the Bubble Tea browser, or prints the first page when
// stdout is not a terminal.
func runBrowse(parent context.Context, out io.Writer, logFile string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fd := os.Stdout.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		logger := config.SetupLogger(cfg.App.LogLevel, nil)
		svc := initServices(cfg, logger)
		movies, err := listMovies(ctx, svc.tmdb, listOptions{endpoint: cfg.Browse.DefaultEndpoint, pages: 1}, logger)
		if err != nil {
			return err
		}
		printMovies(out, cfg.Browse.DefaultEndpoint, movies)
		return nil
	}

	// The alternate screen owns the terminal, so logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := config.SetupLogger(cfg.App.LogLevel, logOut)
	svc := initServices(cfg, logger)

	m := newBrowseModel(ctx, browseDeps{
		browser:   catalog.New(svc.tmdb, catalog.WithLogger(logger)),
		details:   svc.tmdb,
		images:    svc.images,
		posterURL: svc.posterURL,
		endpoint:  cfg.Browse.DefaultEndpoint,
		preload:   cfg.Browse.PreloadPosters,
		logger:    logger,
	})
	defer m.close()

	p := tea.NewProgram(m, tea.WithAltScreen())

	// Bridge OS signal cancellation into the Bubble Tea event loop.
	go func() {
		<-ctx.Done()
		p.Send(tea.Quit())
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run browser: %w", err)
	}
	return nil
}

// detailsClient fetches full movie details.
type detailsClient interface {
	GetMovie(ctx context.Context, id int) (*tmdb.MovieDetails, error)
}

// browseDeps holds what the browser model drives.
type browseDeps struct {
	browser   *catalog.Browser
	details   detailsClient
	images    *imageload.Loader // nil disables posters
	posterURL func(posterPath string) string
	endpoint  string
	preload   int
	logger    *slog.Logger
}

// Messages delivered to the model from background work.
type (
	fetchStartedMsg  struct{}
	fetchFinishedMsg struct{}
	fetchFailedMsg   struct{ err error }
	posterRedrawMsg  struct{}
	posterFailedMsg  struct {
		id  int
		err error
	}
	preloadDoneMsg struct{ err error }
	detailsMsg     struct {
		id      int
		details *tmdb.MovieDetails
		err     error
	}
)

// browseModel is the Bubble Tea model for the interactive browser.
type browseModel struct {
	ctx  context.Context
	deps browseDeps

	// events carries browser lifecycle and poster failures; redraw is a
	// coalescing signal raised whenever a poster frame changes.
	events      chan tea.Msg
	redraw      chan struct{}
	unsubscribe func()

	spinner spinner.Model
	filter  textinput.Model
	typing  bool

	endpoint        string
	pendingEndpoint string
	movies          []tmdb.Movie
	cursor          int
	loading         bool
	err             error

	frames  map[int]*imageload.Frame
	details map[int]*tmdb.MovieDetails

	width  int
	height int
	ready  bool
}

// newBrowseModel subscribes to the browser's lifecycle events. Call close
// when the model is discarded.
func newBrowseModel(ctx context.Context, deps browseDeps) browseModel {
	if deps.logger == nil {
		deps.logger = slog.Default()
	}
	if deps.endpoint == "" {
		deps.endpoint = tmdb.NowPlaying
	}

	ti := textinput.New()
	ti.Placeholder = "Filter titles..."
	ti.Prompt = "/ "
	ti.CharLimit = 100

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styleInfo

	m := browseModel{
		ctx:      ctx,
		deps:     deps,
		events:   make(chan tea.Msg, eventBuffer),
		redraw:   make(chan struct{}, 1),
		spinner:  s,
		filter:   ti,
		endpoint: deps.endpoint,
		frames:   make(map[int]*imageload.Frame),
		details:  make(map[int]*tmdb.MovieDetails),
	}
	m.unsubscribe = deps.browser.Subscribe(catalog.ObserverFuncs{
		Started:  func() { m.send(fetchStartedMsg{}) },
		Finished: func() { m.send(fetchFinishedMsg{}) },
		Failed:   func(err error) { m.send(fetchFailedMsg{err: err}) },
	})
	return m
}

func (m browseModel) close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// send queues msg for the event loop unless the session is over.
func (m browseModel) send(msg tea.Msg) {
	select {
	case m.events <- msg:
	case <-m.ctx.Done():
	}
}

func (m browseModel) signalRedraw() {
	select {
	case m.redraw <- struct{}{}:
	default:
	}
}

func (m browseModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-m.events:
			return msg
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m browseModel) waitForRedraw() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.redraw:
			return posterRedrawMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

// Init requests the first page and starts listening for background events.
func (m browseModel) Init() tea.Cmd {
	m.deps.browser.RefetchPosts(m.ctx, m.endpoint, nil, nil)
	return tea.Batch(m.waitForEvent(), m.waitForRedraw(), m.spinner.Tick)
}

// Update handles incoming messages and user input.
func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filter.Width = max(m.width-4, 10)
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case fetchStartedMsg:
		m.loading = true
		m.err = nil
		return m, tea.Batch(m.waitForEvent(), m.spinner.Tick)

	case fetchFinishedMsg:
		m.loading = false
		if m.pendingEndpoint != "" {
			m.endpoint = m.pendingEndpoint
			m.pendingEndpoint = ""
			m.cursor = 0
		}
		m.syncMovies()
		return m, tea.Batch(m.waitForEvent(), m.preloadPosters(), m.ensurePoster())

	case fetchFailedMsg:
		m.loading = false
		m.pendingEndpoint = ""
		m.err = msg.err
		return m, m.waitForEvent()

	case posterFailedMsg:
		delete(m.frames, msg.id)
		m.deps.logger.Debug("poster failed", slog.Int("movie_id", msg.id), slog.String("error", msg.err.Error()))
		return m, m.waitForEvent()

	case posterRedrawMsg:
		return m, m.waitForRedraw()

	case preloadDoneMsg:
		if msg.err != nil {
			m.deps.logger.Debug("poster preload incomplete", slog.String("error", msg.err.Error()))
		}
		return m, nil

	case detailsMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.details[msg.id] = msg.details
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	if m.typing {
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleKey dispatches key events; the filter input captures typing while focused.
func (m browseModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.typing {
		return m.handleFilterKey(msg)
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, m.ensurePoster()
	case "down", "j":
		if m.cursor < len(m.movies)-1 {
			m.cursor++
		}
		if m.cursor >= len(m.movies)-loadMoreThreshold {
			m.loadMore()
		}
		return m, m.ensurePoster()
	case "m":
		m.loadMore()
		return m, nil
	case "r":
		m.deps.browser.RefetchPosts(m.ctx, m.endpoint, nil, nil)
		return m, nil
	case "tab":
		next := nextEndpoint(m.endpoint)
		if m.deps.browser.RefetchPosts(m.ctx, next, nil, nil) {
			m.pendingEndpoint = next
		}
		return m, nil
	case "/":
		m.typing = true
		return m, m.filter.Focus()
	case "esc":
		m.filter.SetValue("")
		m.deps.browser.ClearFilter()
		m.syncMovies()
		return m, m.ensurePoster()
	case "enter":
		return m, m.fetchDetails()
	}
	return m, nil
}

func (m browseModel) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.typing = false
		m.filter.Blur()
		m.filter.SetValue("")
		m.deps.browser.ClearFilter()
		m.syncMovies()
		return m, m.ensurePoster()
	case "enter":
		m.typing = false
		m.filter.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	text := m.filter.Value()
	m.deps.browser.ApplyFilter(&text)
	m.syncMovies()
	return m, tea.Batch(cmd, m.ensurePoster())
}

// loadMore asks for the next page when the listing has one and no filter hides it.
func (m *browseModel) loadMore() {
	b := m.deps.browser
	if b.Filtering() || !b.HasMore() || len(m.movies) == 0 {
		return
	}
	b.AddMorePosts(m.ctx, m.endpoint, nil)
}

// syncMovies copies the visible list out of the browser and keeps the cursor on it.
func (m *browseModel) syncMovies() {
	m.movies = m.deps.browser.Visible()
	if m.cursor >= len(m.movies) {
		m.cursor = max(len(m.movies)-1, 0)
	}
}

func (m browseModel) selected() (tmdb.Movie, bool) {
	if m.cursor < 0 || m.cursor >= len(m.movies) {
		return tmdb.Movie{}, false
	}
	return m.movies[m.cursor], true
}

func (m browseModel) posterFor(movie tmdb.Movie) string {
	if m.deps.images == nil || m.deps.posterURL == nil {
		return ""
	}
	return m.deps.posterURL(movie.PosterPath)
}

// ensurePoster starts loading the selected movie's poster once.
func (m browseModel) ensurePoster() tea.Cmd {
	movie, ok := m.selected()
	if !ok {
		return nil
	}
	url := m.posterFor(movie)
	if url == "" {
		return nil
	}
	if _, ok := m.frames[movie.ID]; ok {
		return nil
	}

	frame := imageload.NewFrame(m.signalRedraw)
	m.frames[movie.ID] = frame
	id := movie.ID
	m.deps.images.LoadImage(m.ctx, url, frame, nil, func(err error) {
		m.send(posterFailedMsg{id: id, err: err})
	})
	return nil
}

// preloadPosters fetches posters for the first visible movies in the background.
func (m browseModel) preloadPosters() tea.Cmd {
	if m.deps.preload <= 0 {
		return nil
	}

	var reqs []imageload.Request
	for _, movie := range m.movies[:min(m.deps.preload, len(m.movies))] {
		url := m.posterFor(movie)
		if url == "" {
			continue
		}
		if _, ok := m.frames[movie.ID]; ok {
			continue
		}
		frame := imageload.NewFrame(m.signalRedraw)
		m.frames[movie.ID] = frame
		reqs = append(reqs, imageload.Request{URL: url, Target: frame})
	}
	if len(reqs) == 0 {
		return nil
	}

	images, ctx := m.deps.images, m.ctx
	return func() tea.Msg {
		return preloadDoneMsg{err: images.LoadAll(ctx, reqs)}
	}
}

// fetchDetails loads full details for the selected movie unless already cached.
func (m browseModel) fetchDetails() tea.Cmd {
	movie, ok := m.selected()
	if !ok || m.deps.details == nil {
		return nil
	}
	if _, ok := m.details[movie.ID]; ok {
		return nil
	}

	client, ctx, id := m.deps.details, m.ctx, movie.ID
	return func() tea.Msg {
		details, err := client.GetMovie(ctx, id)
		return detailsMsg{id: id, details: details, err: err}
	}
}

func nextEndpoint(current string) string {
	for i, ep := range browseEndpoints {
		if ep == current {
			return browseEndpoints[(i+1)%len(browseEndpoints)]
		}
	}
	return browseEndpoints[0]
}

// View renders the listing tabs, the movie list, and the selected movie's pane.
func (m browseModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.renderTabs()
	if m.loading {
		header += "  " + m.spinner.View() + styleDim.Render(" Loading...")
	}

	footer := m.renderFooter()
	bodyHeight := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer)-1, 1)

	listWidth := max(m.width*2/5, 20)
	paneWidth := max(m.width-listWidth-2, 10)

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(listWidth).MaxHeight(bodyHeight).Render(m.renderList(bodyHeight)),
		"  ",
		lipgloss.NewStyle().Width(paneWidth).MaxHeight(bodyHeight).Render(m.renderPane(paneWidth)),
	)

	return header + "\n" + body + "\n" + footer
}

func (m browseModel) renderTabs() string {
	active := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5")).Underline(true)
	tabs := make([]string, 0, len(browseEndpoints))
	for _, ep := range browseEndpoints {
		if ep == m.endpoint {
			tabs = append(tabs, active.Render(endpointTitle(ep)))
		} else {
			tabs = append(tabs, styleDim.Render(endpointTitle(ep)))
		}
	}
	return strings.Join(tabs, styleDim.Render(" │ "))
}

func (m browseModel) renderList(height int) string {
	if len(m.movies) == 0 {
		switch {
		case m.loading:
			return styleDim.Render("Loading...")
		case m.deps.browser.Filtering():
			return styleDim.Render("No titles match the filter.")
		default:
			return styleDim.Render("No movies.")
		}
	}

	start := 0
	if m.cursor >= height {
		start = m.cursor - height + 1
	}
	end := min(start+height, len(m.movies))

	var sb strings.Builder
	for i := start; i < end; i++ {
		line := movieLabel(m.movies[i])
		if i == m.cursor {
			sb.WriteString(styleSelected.Render("› " + line))
		} else {
			sb.WriteString("  " + line)
		}
		if i < end-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func (m browseModel) renderPane(width int) string {
	movie, ok := m.selected()
	if !ok {
		return ""
	}

	var sb strings.Builder
	if frame, ok := m.frames[movie.ID]; ok {
		img, opacity := frame.Snapshot()
		cols, rows := termimg.Size(img, width, posterRows)
		sb.WriteString(termimg.Render(img, cols, rows, opacity))
		sb.WriteString("\n\n")
	}

	sb.WriteString(styleTitle.Render(movieLabel(movie)))
	sb.WriteString("\n")
	sb.WriteString(ratingBar(movie.VoteAverage, ratingBarWidth))
	sb.WriteString("\n")

	overview := movie.Overview
	if d, ok := m.details[movie.ID]; ok {
		var facts []string
		if d.Runtime > 0 {
			facts = append(facts, fmt.Sprintf("%d min", d.Runtime))
		}
		for _, g := range d.Genres {
			facts = append(facts, g.Name)
		}
		if len(facts) > 0 {
			sb.WriteString(styleDim.Render(strings.Join(facts, " · ")))
			sb.WriteString("\n")
		}
		if d.Tagline != "" {
			sb.WriteString(styleInfo.Render(d.Tagline))
			sb.WriteString("\n")
		}
		if d.Overview != "" {
			overview = d.Overview
		}
	}
	if overview != "" {
		sb.WriteString("\n")
		sb.WriteString(lipgloss.NewStyle().Width(width).Render(overview))
	}
	return sb.String()
}

func (m browseModel) renderFooter() string {
	var lines []string
	if m.typing || m.deps.browser.Filtering() {
		lines = append(lines, m.filter.View())
	}
	if m.err != nil {
		lines = append(lines, styleError.Render("Error: "+m.err.Error()))
	}

	help := "↑/↓ move · enter details · / filter · tab listing · r reload · q quit"
	if m.deps.browser.HasMore() && !m.deps.browser.Filtering() {
		help = "↑/↓ move · enter details · / filter · tab listing · r reload · m more · q quit"
	}
	lines = append(lines, styleDim.Render(fmt.Sprintf("%d movies · page %d · %s",
		len(m.movies), m.deps.browser.CurrentPage(), help)))
	return strings.Join(lines, "\n")
}
