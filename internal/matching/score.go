package matching

import (
	"math"
	"strings"

	"shelfscan/internal/textutil"
	"shelfscan/internal/titles"
)

const (
	// MaxTitleSimilarity is the score awarded to an exact normalized match.
	MaxTitleSimilarity = 40.0
	containmentScore   = 35.0
	editWeight         = 0.6
	overlapWeight      = 0.4

	maxPopularityBonus = 15.0
	movieBonus         = 10.0
	maxVoteBonus       = 5.0
)

// Media types accepted from the metadata search service.
const (
	MediaMovie = "movie"
	MediaTV    = "tv"
)

// Candidate is one metadata search result.
type Candidate struct {
	ExternalID  int64   `json:"id"`
	Title       string  `json:"title"`
	MediaType   string  `json:"media_type"`
	ReleaseYear int     `json:"release_year,omitempty"`
	Popularity  float64 `json:"popularity"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int64   `json:"vote_count"`
}

// Match is a scored candidate.
type Match struct {
	Candidate
	Score float64 `json:"match_score"`
}

// TitleSimilarity compares two titles after NormalizeForComparison and
// returns a score in [0,40].
func TitleSimilarity(original, candidate string) float64 {
	a := titles.NormalizeForComparison(original)
	b := titles.NormalizeForComparison(candidate)
	if a == b {
		return MaxTitleSimilarity
	}
	if a == "" || b == "" {
		return 0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return containmentScore
	}
	combined := editWeight*textutil.EditSimilarity(a, b) + overlapWeight*textutil.JaccardWords(a, b)
	return clamp(combined*MaxTitleSimilarity, 0, MaxTitleSimilarity)
}

// YearBonus rewards release years close to the target. A zero target or
// candidate year earns nothing.
func YearBonus(candidateYear, targetYear int) float64 {
	if targetYear == 0 || candidateYear == 0 {
		return 0
	}
	diff := candidateYear - targetYear
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff == 0:
		return 30
	case diff == 1:
		return 20
	case diff <= 3:
		return 10
	default:
		return 0
	}
}

// PopularityBonus returns min(popularity/10, 15).
func PopularityBonus(popularity float64) float64 {
	return clamp(popularity/10, 0, maxPopularityBonus)
}

// Score computes the full candidate score for originalTitle and targetYear.
func Score(c Candidate, originalTitle string, targetYear int) float64 {
	score := TitleSimilarity(originalTitle, c.Title)
	score += YearBonus(c.ReleaseYear, targetYear)
	score += PopularityBonus(c.Popularity)
	if c.MediaType == MediaMovie {
		score += movieBonus
	}
	score += clamp(c.VoteAverage/2, 0, maxVoteBonus)
	return score
}

// LegacyConfidence recomputes a confidence for cached results stored without
// a score, using only title similarity, year proximity and popularity.
func LegacyConfidence(c Candidate, originalTitle string, targetYear int) float64 {
	return TitleSimilarity(originalTitle, c.Title) + YearBonus(c.ReleaseYear, targetYear) + PopularityBonus(c.Popularity)
}

// SelectBest scores every candidate and returns the highest. Ties keep the
// first candidate seen. Returns false when candidates is empty.
func SelectBest(candidates []Candidate, originalTitle string, targetYear int) (Match, bool) {
	var best Match
	found := false
	for _, candidate := range candidates {
		score := Score(candidate, originalTitle, targetYear)
		if !found || score > best.Score {
			best = Match{Candidate: candidate, Score: score}
			found = true
		}
	}
	return best, found
}

func clamp(value, lo, hi float64) float64 {
	if math.IsNaN(value) {
		return lo
	}
	return math.Max(lo, math.Min(hi, value))
}
