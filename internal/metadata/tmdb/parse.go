package tmdb

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrMalformedResponse is returned when a listing response has no usable
// "results" array.
var ErrMalformedResponse = errors.New("malformed catalog response")

// ParseError describes a listing element that could not be turned into a Movie.
type ParseError struct {
	Index int    // position in the results array, -1 when parsed standalone
	Field string // offending field, empty when the element itself is invalid
	Err   error
}

func (e *ParseError) Error() string {
	switch {
	case e.Index >= 0 && e.Field != "":
		return fmt.Sprintf("parse movie #%d: field %q: %v", e.Index, e.Field, e.Err)
	case e.Index >= 0:
		return fmt.Sprintf("parse movie #%d: %v", e.Index, e.Err)
	case e.Field != "":
		return fmt.Sprintf("parse movie: field %q: %v", e.Field, e.Err)
	default:
		return fmt.Sprintf("parse movie: %v", e.Err)
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	errMissing = errors.New("missing required value")
	errInvalid = errors.New("invalid value")
)

// listResponse is the paginated envelope shared by the listing endpoints.
type listResponse struct {
	Page       int             `json:"page"`
	TotalPages int             `json:"total_pages"`
	Results    json.RawMessage `json:"results"`
}

// ParseMovie decodes a single catalog object. "id" must be a positive integer
// and "title" a non-empty string; every other field defaults to its zero value.
func ParseMovie(raw json.RawMessage) (Movie, error) {
	m, err := parseMovie(raw)
	if err != nil {
		err.Index = -1
		return Movie{}, err
	}
	return m, nil
}

func parseMovie(raw json.RawMessage) (Movie, *ParseError) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Movie{}, &ParseError{Err: fmt.Errorf("%w: expected JSON object", errInvalid)}
	}

	var mj movieJSON
	if err := json.Unmarshal(trimmed, &mj); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return Movie{}, &ParseError{Field: typeErr.Field, Err: fmt.Errorf("%w: %v", errInvalid, err)}
		}
		return Movie{}, &ParseError{Err: err}
	}

	switch {
	case mj.ID == nil:
		return Movie{}, &ParseError{Field: "id", Err: errMissing}
	case *mj.ID <= 0:
		return Movie{}, &ParseError{Field: "id", Err: fmt.Errorf("%w: %d", errInvalid, *mj.ID)}
	case mj.Title == nil || *mj.Title == "":
		return Movie{}, &ParseError{Field: "title", Err: errMissing}
	}

	return Movie{
		ID:          *mj.ID,
		Title:       *mj.Title,
		Overview:    mj.Overview,
		ReleaseDate: mj.ReleaseDate,
		PosterPath:  mj.PosterPath,
		VoteAverage: mj.VoteAverage,
		VoteCount:   mj.VoteCount,
		GenreIDs:    mj.GenreIDs,
	}, nil
}

// DecodeMovies reads a listing response and returns its movies.
func DecodeMovies(r io.Reader) ([]Movie, error) {
	page, err := DecodePage(r)
	if err != nil {
		return nil, err
	}
	return page.Movies, nil
}

// DecodePage reads a listing response. A missing, null or non-array
// "results" member yields ErrMalformedResponse; a single malformed element
// fails the whole page with a *ParseError.
func DecodePage(r io.Reader) (Page, error) {
	var resp listResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	results := bytes.TrimSpace(resp.Results)
	if len(results) == 0 || bytes.Equal(results, []byte("null")) {
		return Page{}, fmt.Errorf("%w: missing results", ErrMalformedResponse)
	}
	if results[0] != '[' {
		return Page{}, fmt.Errorf("%w: results is not an array", ErrMalformedResponse)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(results, &elems); err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	movies := make([]Movie, 0, len(elems))
	for i, raw := range elems {
		m, perr := parseMovie(raw)
		if perr != nil {
			perr.Index = i
			return Page{}, perr
		}
		movies = append(movies, m)
	}

	return Page{
		Number:     resp.Page,
		TotalPages: resp.TotalPages,
		Movies:     movies,
	}, nil
}
