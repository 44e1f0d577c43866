package textutil

import "strings"

// Levenshtein returns the edit distance between a and b counted in runes.
func Levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// EditSimilarity returns 1 minus the edit distance divided by the longer
// length, in [0,1]. Two empty strings are identical.
func EditSimilarity(a, b string) float64 {
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}
	return 1 - float64(Levenshtein(a, b))/float64(longest)
}

// Words splits text on whitespace and returns the distinct words.
func Words(text string) map[string]struct{} {
	fields := strings.Fields(text)
	set := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		set[field] = struct{}{}
	}
	return set
}

// JaccardWords returns |A∩B| / |A∪B| over the distinct words of a and b.
// Returns 0 when both are empty.
func JaccardWords(a, b string) float64 {
	wa := Words(a)
	wb := Words(b)
	if len(wa) == 0 && len(wb) == 0 {
		return 0
	}
	shared := 0
	for word := range wa {
		if _, ok := wb[word]; ok {
			shared++
		}
	}
	union := len(wa) + len(wb) - shared
	return float64(shared) / float64(union)
}
