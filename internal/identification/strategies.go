package identification

import (
	"strconv"
	"strings"

	"shelfscan/internal/titles"
)

const maxCastStrategies = 2

// strategy is one query formulation sent to TMDB multi search. Only
// high-priority strategies may end the search early.
type strategy struct {
	name         string
	query        string
	highPriority bool
}

// buildStrategies orders queries from most to least precise: quoted title
// with year, title with year, quoted title, bare title, then title combined
// with credited people.
func buildStrategies(title string, year int, credits titles.Credits, includePersons bool) []strategy {
	title = strings.Join(strings.Fields(strings.ReplaceAll(title, `"`, "")), " ")
	if title == "" {
		return nil
	}
	quoted := `"` + title + `"`

	var out []strategy
	seen := make(map[string]struct{})
	add := func(name, query string, high bool) {
		key := strings.ToLower(query)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, strategy{name: name, query: query, highPriority: high})
	}

	if year > 0 {
		yearText := strconv.Itoa(year)
		add("quoted_title_year", quoted+" "+yearText, true)
		add("title_year", title+" "+yearText, true)
	}
	add("quoted_title", quoted, true)
	add("title", title, true)

	if !includePersons {
		return out
	}
	for _, director := range credits.Directors {
		add("title_director", title+" "+director, false)
	}
	for idx, member := range credits.Cast {
		if idx >= maxCastStrategies {
			break
		}
		add("title_cast", title+" "+member, false)
	}
	return out
}
