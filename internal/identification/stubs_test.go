package identification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"

	"shelfscan/internal/identification/tmdb"
	"shelfscan/internal/services"
	"shelfscan/internal/testsupport"
	"shelfscan/internal/tieredcache"
	"shelfscan/internal/upc"
)

type stubLooker struct {
	records map[string]*upc.ProductRecord
	release chan struct{}
	calls   atomic.Int32
}

func (s *stubLooker) Lookup(ctx context.Context, barcode string) (*upc.ProductRecord, error) {
	s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	record, ok := s.records[barcode]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "upc", "lookup", "no product for "+barcode, nil)
	}
	copied := *record
	return &copied, nil
}

type stubSearcher struct {
	mu         sync.Mutex
	responses  map[string][]tmdb.Result
	failures   map[string]error
	details    map[string]string
	detailErr  error
	queries    []string
	detailHits int
}

func newStubSearcher() *stubSearcher {
	return &stubSearcher{
		responses: make(map[string][]tmdb.Result),
		failures:  make(map[string]error),
		details:   make(map[string]string),
	}
}

func (s *stubSearcher) SearchMulti(_ context.Context, query string, _ int) (*tmdb.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	if err := s.failures[query]; err != nil {
		return nil, err
	}
	results := s.responses[query]
	return &tmdb.Response{Page: 1, Results: results, TotalPages: 1, TotalResults: len(results)}, nil
}

func (s *stubSearcher) GetDetails(_ context.Context, mediaType string, id int64) (*tmdb.Details, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detailHits++
	if s.detailErr != nil {
		return nil, s.detailErr
	}
	body, ok := s.details[fmt.Sprintf("%s:%d", mediaType, id)]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "tmdb", "details", "returned 404", nil)
	}
	details := &tmdb.Details{Raw: json.RawMessage(body)}
	if err := json.Unmarshal(details.Raw, details); err != nil {
		return nil, err
	}
	details.MediaType = mediaType
	return details, nil
}

func (s *stubSearcher) queryLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

func newTestCache(t *testing.T) *tieredcache.Cache {
	t.Helper()
	cache := tieredcache.New(tieredcache.NewFileStore(memfs.New(), 0))
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func newTestResolver(t *testing.T, looker upc.Looker, searcher tmdb.Searcher, cache *tieredcache.Cache, opts ...Option) *Resolver {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	fixed := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	opts = append([]Option{WithRateLimit(0), WithClock(func() time.Time { return fixed })}, opts...)
	return NewResolverWithDependencies(cfg, cache, nil, looker, searcher, opts...)
}

const matrixBarcode = "012345678905"

func matrixLooker() *stubLooker {
	return &stubLooker{records: map[string]*upc.ProductRecord{
		matrixBarcode: {
			Barcode:  matrixBarcode,
			RawTitle: "The Matrix (1999) Widescreen Special Edition DVD",
			Brand:    "Warner Home Video",
			Category: "Movies",
		},
	}}
}

func matrixResult() tmdb.Result {
	return tmdb.Result{
		ID:          603,
		Title:       "The Matrix",
		ReleaseDate: "1999-03-30",
		MediaType:   tmdb.MediaMovie,
		Popularity:  80,
		VoteAverage: 8.2,
		VoteCount:   25000,
	}
}

const matrixDetails = `{"id":603,"title":"The Matrix","release_date":"1999-03-30","budget":63000000,"credits":{"cast":[{"name":"Keanu Reeves","order":0}],"crew":[]}}`
