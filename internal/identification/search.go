package identification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"shelfscan/internal/coalesce"
	"shelfscan/internal/identification/tmdb"
	"shelfscan/internal/matching"
)

const (
	searchNamespace  = "search"
	detailsNamespace = "details"
	upcNamespace     = "upc"
)

// scoredCandidate is a cached search result. Score is absent on entries
// written before scores were cached.
type scoredCandidate struct {
	matching.Candidate
	Score *float64 `json:"match_score,omitempty"`
}

// searchRecord is the cached outcome of one strategy query.
type searchRecord struct {
	Query      string            `json:"query"`
	Candidates []scoredCandidate `json:"candidates"`
}

// tmdbSearch fronts the TMDB client with the tiered cache, request
// coalescing and a minimum spacing between upstream calls.
type tmdbSearch struct {
	client     tmdb.Searcher
	cache      coalesce.Cache
	group      *coalesce.Group
	searchTTL  time.Duration
	detailsTTL time.Duration
	rateLimit  time.Duration
	mu         sync.Mutex
	lastLookup time.Time
}

func searchCacheKey(query string, year int) string {
	return fmt.Sprintf("%s|%d", strings.ToLower(strings.Join(strings.Fields(query), " ")), year)
}

func detailsCacheKey(mediaType string, id int64) string {
	return fmt.Sprintf("%s:%d", mediaType, id)
}

// search runs query and scores every movie or tv result against title and
// year. Results of other media types are dropped before caching.
func (s *tmdbSearch) search(ctx context.Context, query, title string, year int) (searchRecord, error) {
	return coalesce.Through(ctx, s.cache, s.group, searchNamespace, searchCacheKey(query, year), s.searchTTL,
		func(ctx context.Context) (searchRecord, error) {
			if err := s.throttle(ctx); err != nil {
				return searchRecord{}, err
			}
			resp, err := s.client.SearchMulti(ctx, query, 1)
			if err != nil {
				return searchRecord{}, err
			}
			if resp == nil {
				return searchRecord{}, errors.New("tmdb returned no response")
			}
			record := searchRecord{Query: query, Candidates: []scoredCandidate{}}
			for _, result := range resp.Results {
				if result.MediaType != tmdb.MediaMovie && result.MediaType != tmdb.MediaTV {
					continue
				}
				candidate := candidateFromResult(result)
				score := matching.Score(candidate, title, year)
				record.Candidates = append(record.Candidates, scoredCandidate{Candidate: candidate, Score: &score})
			}
			return record, nil
		})
}

// details returns the raw TMDB detail record for mediaType/id.
func (s *tmdbSearch) details(ctx context.Context, mediaType string, id int64) (json.RawMessage, error) {
	return coalesce.Through(ctx, s.cache, s.group, detailsNamespace, detailsCacheKey(mediaType, id), s.detailsTTL,
		func(ctx context.Context) (json.RawMessage, error) {
			if err := s.throttle(ctx); err != nil {
				return nil, err
			}
			details, err := s.client.GetDetails(ctx, mediaType, id)
			if err != nil {
				return nil, err
			}
			if len(details.Raw) == 0 {
				return json.Marshal(details)
			}
			return details.Raw, nil
		})
}

// throttle spaces upstream calls at least rateLimit apart.
func (s *tmdbSearch) throttle(ctx context.Context) error {
	if s.rateLimit <= 0 {
		return nil
	}
	s.mu.Lock()
	wait := s.rateLimit - time.Since(s.lastLookup)
	if wait > 0 {
		s.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		s.mu.Lock()
	}
	s.lastLookup = time.Now()
	s.mu.Unlock()
	return nil
}

func candidateFromResult(result tmdb.Result) matching.Candidate {
	return matching.Candidate{
		ExternalID:  result.ID,
		Title:       result.DisplayTitle(),
		MediaType:   result.MediaType,
		ReleaseYear: result.Year(),
		Popularity:  result.Popularity,
		VoteAverage: result.VoteAverage,
		VoteCount:   result.VoteCount,
	}
}

// bestOfRecord picks the highest scoring candidate, first seen on ties.
// Entries without a cached score get LegacyConfidence; legacy reports
// whether the winner was scored that way.
func bestOfRecord(record searchRecord, title string, year int) (best matching.Match, legacy bool, ok bool) {
	for _, candidate := range record.Candidates {
		score := 0.0
		recomputed := candidate.Score == nil
		if recomputed {
			score = matching.LegacyConfidence(candidate.Candidate, title, year)
		} else {
			score = *candidate.Score
		}
		if !ok || score > best.Score {
			best = matching.Match{Candidate: candidate.Candidate, Score: score}
			legacy = recomputed
			ok = true
		}
	}
	return best, legacy, ok
}
