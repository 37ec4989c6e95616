package catalog

import (
	"context"
	"net/url"

	"github.com/vadimtrunov/flicks/internal/metadata/tmdb"
)

//go:generate mockgen -destination=mocks/mock_catalog.go -package=mocks . Fetcher,Observer

// Fetcher issues one GET against a listing endpoint. params carries the
// extra query parameters (only "page" in practice); the implementation adds
// the API key itself and lets params win on a name collision.
type Fetcher interface {
	FetchMovies(ctx context.Context, endpoint string, params url.Values) (tmdb.Page, error)
}
