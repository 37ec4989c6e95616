package catalog

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/vadimtrunov/flicks/internal/metadata/tmdb"
)

// filterMovies returns the movies whose title contains text, compared after
// Unicode case folding. Order is preserved and the result never aliases movies.
func filterMovies(movies []tmdb.Movie, text string) []tmdb.Movie {
	fold := cases.Fold()
	needle := fold.String(text)

	out := make([]tmdb.Movie, 0, len(movies))
	for _, m := range movies {
		if strings.Contains(fold.String(m.Title), needle) {
			out = append(out, m)
		}
	}
	return out
}
