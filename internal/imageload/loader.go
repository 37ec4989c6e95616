// Package imageload fetches poster images and fades them into display surfaces.
package imageload

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/harmonica"
	"golang.org/x/sync/errgroup"

	"github.com/vadimtrunov/flicks/internal/httpclient"
)

const (
	// DefaultFadeDuration is how long a freshly loaded image takes to become opaque.
	DefaultFadeDuration = 600 * time.Millisecond
	// DefaultConcurrency bounds LoadAll.
	DefaultConcurrency = 4

	fadeFPS       = 60
	maxImageBytes = 10 << 20
)

// Surface is anything an image can be shown on.
type Surface interface {
	SetOpacity(alpha float64)
	SetImage(img image.Image)
}

// Request pairs an image URL with the surface it belongs on.
type Request struct {
	URL    string
	Target Surface
}

// Loader fetches and decodes images. It keeps no cache.
type Loader struct {
	http         *httpclient.Client
	logger       *slog.Logger
	FadeDuration time.Duration
	Concurrency  int
}

// New creates a Loader with the default fade duration.
func New(client *httpclient.Client, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		http:         client,
		logger:       logger,
		FadeDuration: DefaultFadeDuration,
		Concurrency:  DefaultConcurrency,
	}
}

// LoadImage hides target, fetches url in the background and, once decoded,
// shows the image and fades it in. onSuccess runs after the fade; onFailure
// receives the error otherwise. Either callback may be nil.
func (l *Loader) LoadImage(ctx context.Context, url string, target Surface, onSuccess func(), onFailure func(error)) {
	target.SetOpacity(0)
	go func() {
		if err := l.load(ctx, url, target); err != nil {
			if onFailure != nil {
				onFailure(err)
			}
			return
		}
		if onSuccess != nil {
			onSuccess()
		}
	}()
}

// Load is the blocking form of LoadImage.
func (l *Loader) Load(ctx context.Context, url string, target Surface) error {
	target.SetOpacity(0)
	return l.load(ctx, url, target)
}

// LoadAll loads every request, at most Concurrency at a time. A failed image
// does not stop the others; all failures are joined in the returned error.
func (l *Loader) LoadAll(ctx context.Context, reqs []Request) error {
	limit := l.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(limit)

	for _, req := range reqs {
		g.Go(func() error {
			if err := l.Load(ctx, req.URL, req.Target); err != nil {
				l.logger.Warn("poster load failed",
					slog.String("url", req.URL),
					slog.String("error", err.Error()),
				)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}

	_ = g.Wait()
	return errors.Join(errs...)
}

func (l *Loader) load(ctx context.Context, url string, target Surface) error {
	img, err := l.fetch(ctx, url)
	if err != nil {
		return err
	}
	target.SetImage(img)
	l.fade(ctx, target)
	return nil
}

func (l *Loader) fetch(ctx context.Context, url string) (image.Image, error) {
	if url == "" {
		return nil, fmt.Errorf("load image: empty URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("load image: create request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := l.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("load image: %w", err)
	}
	defer resp.Body.Close()

	img, format, err := image.Decode(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("load image: decode: %w", err)
	}

	l.logger.Debug("image loaded",
		slog.String("format", format),
		slog.Int("width", img.Bounds().Dx()),
		slog.Int("height", img.Bounds().Dy()),
	)
	return img, nil
}

// fade drives target's opacity from 0 to 1 over FadeDuration with a
// critically damped spring. The final frame always lands on exactly 1.
func (l *Loader) fade(ctx context.Context, target Surface) {
	frames := int(l.FadeDuration.Seconds() * fadeFPS)
	if frames <= 0 {
		target.SetOpacity(1)
		return
	}

	// Angular frequency chosen so the spring is ~98% settled after FadeDuration.
	omega := 6 / l.FadeDuration.Seconds()
	spring := harmonica.NewSpring(harmonica.FPS(fadeFPS), omega, 1.0)

	ticker := time.NewTicker(time.Second / fadeFPS)
	defer ticker.Stop()

	pos, vel := 0.0, 0.0
	for range frames - 1 {
		select {
		case <-ctx.Done():
			target.SetOpacity(1)
			return
		case <-ticker.C:
		}
		pos, vel = spring.Update(pos, vel, 1)
		target.SetOpacity(clamp01(pos))
	}
	target.SetOpacity(1)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
