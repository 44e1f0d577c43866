package matching

import "fmt"

// Thresholds controls the manual review decision.
type Thresholds struct {
	MinScore      float64
	YearTolerance int
	MinPopularity float64
}

// DefaultThresholds returns the stock review thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinScore:      35,
		YearTolerance: 2,
		MinPopularity: 0.5,
	}
}

// Decision is the outcome of a review check.
type Decision struct {
	NeedsReview bool
	Reason      string
}

// Review decides whether match must be confirmed by a person. A nil match or
// one flagged noResult always needs review.
func (t Thresholds) Review(match *Match, noResult bool, targetYear int) Decision {
	switch {
	case match == nil:
		return Decision{true, "no candidate"}
	case noResult:
		return Decision{true, "no search results"}
	case match.Score < t.MinScore:
		return Decision{true, fmt.Sprintf("score %.1f below %.1f", match.Score, t.MinScore)}
	case targetYear != 0 && yearDistance(match.ReleaseYear, targetYear) > t.YearTolerance:
		return Decision{true, fmt.Sprintf("release year %d too far from %d", match.ReleaseYear, targetYear)}
	case match.Popularity < t.MinPopularity:
		return Decision{true, fmt.Sprintf("popularity %.2f below %.2f", match.Popularity, t.MinPopularity)}
	}
	return Decision{}
}

// NeedsReview reports Review(...).NeedsReview.
func (t Thresholds) NeedsReview(match *Match, noResult bool, targetYear int) bool {
	return t.Review(match, noResult, targetYear).NeedsReview
}

// yearDistance treats an unknown candidate year as infinitely far.
func yearDistance(candidateYear, targetYear int) int {
	if candidateYear == 0 {
		return int(^uint(0) >> 1)
	}
	diff := candidateYear - targetYear
	if diff < 0 {
		return -diff
	}
	return diff
}
