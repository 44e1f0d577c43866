package identification

import (
	"encoding/json"
	"time"

	"shelfscan/internal/matching"
	"shelfscan/internal/titles"
	"shelfscan/internal/upc"
)

// CandidateKind distinguishes resolved matches from no-match placeholders.
type CandidateKind string

const (
	// KindMatch is a scored TMDB search result or a pinned override.
	KindMatch CandidateKind = "match"
	// KindPlaceholder stands in when no strategy produced a result.
	KindPlaceholder CandidateKind = "placeholder"
)

// Candidate is the chosen identification. Match is nil for placeholders.
type Candidate struct {
	Kind              CandidateKind   `json:"kind"`
	Title             string          `json:"title"`
	Match             *matching.Match `json:"match,omitempty"`
	NeedsManualReview bool            `json:"needsManualReview"`
}

// Score returns the match score, 0 for placeholders.
func (c Candidate) Score() float64 {
	if c.Match == nil {
		return 0
	}
	return c.Match.Score
}

// IsPlaceholder reports whether no search result backs the candidate.
func (c Candidate) IsPlaceholder() bool {
	return c.Kind == KindPlaceholder
}

func matchCandidate(match matching.Match, needsReview bool) Candidate {
	return Candidate{Kind: KindMatch, Title: match.Title, Match: &match, NeedsManualReview: needsReview}
}

func placeholderCandidate(title string) Candidate {
	return Candidate{Kind: KindPlaceholder, Title: title, NeedsManualReview: true}
}

// Resolution is the outcome of resolving one barcode.
type Resolution struct {
	RequestID       string                 `json:"requestId"`
	Barcode         string                 `json:"barcode"`
	UPCData         *upc.ProductRecord     `json:"upcData"`
	TMDBData        json.RawMessage        `json:"tmdbData"`
	Candidate       Candidate              `json:"candidate"`
	PhysicalEdition titles.PhysicalEdition `json:"physicalEdition"`
	CleanTitle      string                 `json:"cleanTitle"`
	ExtractedYear   int                    `json:"extractedYear,omitempty"`
	Confidence      float64                `json:"confidence"`
	NeedsReview     bool                   `json:"needsReview"`
	ReviewReason    string                 `json:"reviewReason,omitempty"`
	Strategy        string                 `json:"strategy,omitempty"`
	Elapsed         time.Duration          `json:"-"`
}

// placeholderRecord is returned as tmdbData when nothing matched.
type placeholderRecord struct {
	Title             string  `json:"title"`
	MatchScore        float64 `json:"matchScore"`
	NeedsManualReview bool    `json:"needsManualReview"`
	Placeholder       bool    `json:"placeholder"`
}

// overlayDetails returns the raw detail record with matchScore and
// media_type set from the search stage. Every other field is preserved.
func overlayDetails(raw json.RawMessage, score float64, mediaType string) (json.RawMessage, error) {
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	scoreJSON, err := json.Marshal(score)
	if err != nil {
		return nil, err
	}
	typeJSON, err := json.Marshal(mediaType)
	if err != nil {
		return nil, err
	}
	fields["matchScore"] = scoreJSON
	fields["media_type"] = typeJSON
	return json.Marshal(fields)
}

// detailTitle reads title or name from a raw detail record.
func detailTitle(raw json.RawMessage) string {
	var named struct {
		Title string `json:"title"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(raw, &named); err != nil {
		return ""
	}
	if named.Title != "" {
		return named.Title
	}
	return named.Name
}
