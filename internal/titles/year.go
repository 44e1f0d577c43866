package titles

import (
	"regexp"
	"strconv"
	"time"
)

var yearTokenPattern = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)

// ExtractYear returns the first four-digit year token in raw when it falls
// between 1900 and two years past the current year.
func ExtractYear(raw string) (int, bool) {
	return ExtractYearAt(raw, time.Now())
}

// ExtractYearAt is ExtractYear with an explicit reference time.
func ExtractYearAt(raw string, now time.Time) (int, bool) {
	match := yearTokenPattern.FindStringSubmatch(raw)
	if len(match) != 2 {
		return 0, false
	}
	year, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	if year < 1900 || year > now.Year()+2 {
		return 0, false
	}
	return year, true
}
