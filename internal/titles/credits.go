package titles

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	starringPattern = regexp.MustCompile(`(?i)\b(?:starring|stars)\s*:?\s+([^.;:\n()]+)`)
	directorPattern = regexp.MustCompile(`(?i)\b(?:directed\s+by|director)\s*:?\s+([^.;:,\n()]+)`)
	nameSplitter    = regexp.MustCompile(`\s*(?:,|&|\band\b)\s*`)
)

const maxCastNames = 3

// Credits holds people named in a product description.
type Credits struct {
	Cast      []string
	Directors []string
}

// ExtractCredits pulls cast and director names from phrases such as
// "Starring Keanu Reeves, Laurence Fishburne" or "Directed by Lana Wachowski".
// Only capitalized two to four word names are kept.
func ExtractCredits(description string) Credits {
	var credits Credits
	if match := starringPattern.FindStringSubmatch(description); len(match) == 2 {
		credits.Cast = collectNames(match[1], maxCastNames)
	}
	if match := directorPattern.FindStringSubmatch(description); len(match) == 2 {
		credits.Directors = collectNames(match[1], 1)
	}
	return credits
}

func collectNames(fragment string, limit int) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, part := range nameSplitter.Split(fragment, -1) {
		name := strings.Join(strings.Fields(part), " ")
		if !looksLikeName(name) {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, name)
		if len(names) == limit {
			break
		}
	}
	return names
}

func looksLikeName(value string) bool {
	words := strings.Fields(value)
	if len(words) < 2 || len(words) > 4 {
		return false
	}
	for _, word := range words {
		first := []rune(word)[0]
		if !unicode.IsUpper(first) {
			return false
		}
	}
	return true
}
