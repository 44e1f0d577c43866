package tmdb_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"shelfscan/internal/identification/tmdb"
	"shelfscan/internal/services"
)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := tmdb.New("", "https://example.com", "en-US"); err == nil {
		t.Fatal("expected error when api key missing")
	}
	if _, err := tmdb.New("key", " ", "en-US"); err == nil {
		t.Fatal("expected error when base url missing")
	}
}

func TestSearchMultiSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/multi" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("api_key") != "key" || q.Get("query") != `"The Matrix" 1999` || q.Get("page") != "1" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":1,"total_pages":1,"total_results":2,"results":[
			{"id":603,"media_type":"movie","title":"The Matrix","release_date":"1999-03-30","popularity":80.5,"vote_average":8.2,"vote_count":25000},
			{"id":1,"media_type":"person","name":"Keanu Reeves"}]}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "en-US")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	resp, err := client.SearchMulti(context.Background(), `"The Matrix" 1999`, 1)
	if err != nil {
		t.Fatalf("SearchMulti returned error: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("unexpected response: %#v", resp)
	}
	first := resp.Results[0]
	if first.DisplayTitle() != "The Matrix" || first.Year() != 1999 || first.MediaType != tmdb.MediaMovie {
		t.Fatalf("unexpected first result: %#v", first)
	}
	if resp.Results[1].DisplayTitle() != "Keanu Reeves" || resp.Results[1].Year() != 0 {
		t.Fatalf("unexpected second result: %#v", resp.Results[1])
	}
}

func TestSearchMultiEmptyQuery(t *testing.T) {
	client, err := tmdb.New("key", "https://example.com", "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.SearchMulti(context.Background(), "  ", 1); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{status: http.StatusInternalServerError, want: services.ErrNetwork},
		{status: http.StatusNotFound, want: services.ErrNotFound},
		{status: http.StatusUnauthorized, want: services.ErrConfiguration},
	}
	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(`{"status_code":7}`))
		}))
		client, _ := tmdb.New("key", server.URL, "")
		_, err := client.SearchMulti(context.Background(), "fail", 1)
		server.Close()
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: expected %v, got %v", tt.status, tt.want, err)
		}
	}
}

func TestGetDetailsKeepsRawRecord(t *testing.T) {
	body := `{"id":603,"title":"The Matrix","release_date":"1999-03-30","runtime":136,"budget":63000000,
		"credits":{"cast":[{"name":"Keanu Reeves","character":"Neo","order":0}],"crew":[{"name":"Lana Wachowski","job":"Director"},{"name":"Bill Pope","job":"Director of Photography"}]}}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/603" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("append_to_response") != "credits" {
			t.Errorf("expected credits appended, got %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	client, _ := tmdb.New("key", server.URL, "")
	details, err := client.GetDetails(context.Background(), tmdb.MediaMovie, 603)
	if err != nil {
		t.Fatalf("GetDetails returned error: %v", err)
	}
	if details.MediaType != tmdb.MediaMovie || details.Runtime != 136 || details.DisplayTitle() != "The Matrix" {
		t.Fatalf("unexpected details: %#v", details)
	}
	if got := details.Directors(); len(got) != 1 || got[0] != "Lana Wachowski" {
		t.Fatalf("unexpected directors %v", got)
	}
	var raw map[string]any
	if err := json.Unmarshal(details.Raw, &raw); err != nil {
		t.Fatalf("raw record not json: %v", err)
	}
	if raw["budget"] != float64(63000000) {
		t.Fatalf("expected untyped fields preserved, got %v", raw["budget"])
	}
}

func TestGetDetailsRejectsUnknownMediaType(t *testing.T) {
	client, _ := tmdb.New("key", "https://example.com", "")
	if _, err := client.GetDetails(context.Background(), "person", 1); err == nil {
		t.Fatal("expected error for person media type")
	}
	if _, err := client.GetDetails(context.Background(), tmdb.MediaTV, 0); err == nil {
		t.Fatal("expected error for zero id")
	}
}

func TestConfiguration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/configuration" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"images":{"base_url":"http://image.tmdb.org/t/p/"}}`))
	}))
	t.Cleanup(server.Close)

	client, _ := tmdb.New("key", server.URL, "")
	if err := client.Configuration(context.Background()); err != nil {
		t.Fatalf("Configuration returned error: %v", err)
	}
}
