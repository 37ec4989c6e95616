package tmdb

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseMovie_MinimalObject(t *testing.T) {
	m, err := ParseMovie(json.RawMessage(`{"id":1,"title":"Arrival"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.ID != 1 || m.Title != "Arrival" {
		t.Errorf("unexpected movie: %+v", m)
	}
	if m.Overview != "" || m.PosterPath != "" || m.VoteAverage != 0 {
		t.Errorf("optional fields should default to zero: %+v", m)
	}
}

func TestParseMovie_NullPoster(t *testing.T) {
	m, err := ParseMovie(json.RawMessage(`{"id":7,"title":"Heat","poster_path":null}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.PosterPath != "" {
		t.Errorf("expected empty poster path, got %q", m.PosterPath)
	}
}

func TestParseMovie_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantField string
	}{
		{"missing_id", `{"title":"Arrival"}`, "id"},
		{"zero_id", `{"id":0,"title":"Arrival"}`, "id"},
		{"string_id", `{"id":"1","title":"Arrival"}`, "id"},
		{"missing_title", `{"id":1}`, "title"},
		{"empty_title", `{"id":1,"title":""}`, "title"},
		{"numeric_title", `{"id":1,"title":42}`, "title"},
		{"not_object", `[1,2]`, ""},
		{"null", `null`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMovie(json.RawMessage(tt.raw))
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %v", err)
			}
			if pe.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", pe.Field, tt.wantField)
			}
			if pe.Index != -1 {
				t.Errorf("Index = %d, want -1", pe.Index)
			}
		})
	}
}

func TestDecodePage(t *testing.T) {
	body := `{"page":2,"total_pages":5,"results":[{"id":1,"title":"A"},{"id":2,"title":"B","genre_ids":[18]}]}`
	page, err := DecodePage(strings.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Number != 2 || page.TotalPages != 5 {
		t.Errorf("unexpected page metadata: %+v", page)
	}
	if len(page.Movies) != 2 || page.Movies[1].Title != "B" {
		t.Errorf("unexpected movies: %+v", page.Movies)
	}
	if len(page.Movies[1].GenreIDs) != 1 {
		t.Errorf("expected genre ids to be kept: %+v", page.Movies[1])
	}
}

func TestDecodePage_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing_results", `{"page":1}`},
		{"null_results", `{"results":null}`},
		{"object_results", `{"results":{"id":1}}`},
		{"string_results", `{"results":"x"}`},
		{"not_json", `<html>`},
		{"top_level_array", `[{"id":1,"title":"A"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePage(strings.NewReader(tt.body))
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("expected ErrMalformedResponse, got %v", err)
			}
		})
	}
}

func TestDecodePage_BadElementFailsPage(t *testing.T) {
	body := `{"results":[{"id":1,"title":"A"},{"id":2},{"id":3,"title":"C"}]}`
	_, err := DecodeMovies(strings.NewReader(body))

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if pe.Index != 1 {
		t.Errorf("Index = %d, want 1", pe.Index)
	}
	if pe.Field != "title" {
		t.Errorf("Field = %q, want title", pe.Field)
	}
	if !strings.Contains(err.Error(), "#1") {
		t.Errorf("error should name the element: %v", err)
	}
}

func TestMovieYear(t *testing.T) {
	tests := map[string]int{
		"2016-11-11": 2016,
		"":           0,
		"20":         0,
		"abcd-01-01": 0,
	}
	for date, want := range tests {
		if got := (Movie{ReleaseDate: date}).Year(); got != want {
			t.Errorf("Year(%q) = %d, want %d", date, got, want)
		}
	}
}
