package logging

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

type infoField struct {
	key   string
	value string
}

// infoHighlightKeys are printed first, in this order, ahead of any other attrs.
var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	FieldDecisionType,
	"decision_result",
	"decision_reason",
	FieldBarcode,
	FieldNamespace,
	"title",
	"clean_title",
	"confidence",
	"needs_review",
	"status",
	"error",
	FieldErrorHint,
	FieldImpact,
}

// selectInfoFields orders attrs for console output and drops debug-only keys
// unless includeDebug is set. It returns the fields plus a count of hidden entries.
func selectInfoFields(attrs []kv, includeDebug bool) ([]infoField, int) {
	if len(attrs) == 0 {
		return nil, 0
	}
	used := make([]bool, len(attrs))
	result := make([]infoField, 0, len(attrs))
	hidden := 0

	take := func(idx int) {
		used[idx] = true
		attr := attrs[idx]
		if attr.key == "" {
			return
		}
		if !includeDebug && isDebugOnlyKey(attr.key) {
			hidden++
			return
		}
		result = append(result, infoField{key: attr.key, value: formatValueForKey(attr.key, attr.value)})
	}

	for _, key := range infoHighlightKeys {
		for idx, attr := range attrs {
			if !used[idx] && attr.key == key {
				take(idx)
				break
			}
		}
	}
	for idx := range attrs {
		if !used[idx] {
			take(idx)
		}
	}
	return result, hidden
}

// formatValueForKey renders sizes and durations for humans; everything else
// goes through formatValue.
func formatValueForKey(key string, v slog.Value) string {
	v = v.Resolve()
	if isByteSizeKey(key) {
		switch v.Kind() {
		case slog.KindInt64:
			if n := v.Int64(); n >= 0 {
				return quoteIfNeeded(humanize.IBytes(uint64(n)))
			}
		case slog.KindUint64:
			return quoteIfNeeded(humanize.IBytes(v.Uint64()))
		}
	}
	if v.Kind() == slog.KindDuration {
		return formatDuration(v.Duration())
	}
	if key == FieldErrorHint || key == "error" {
		return truncateErrorValue(formatValue(v))
	}
	return formatValue(v)
}

func isByteSizeKey(key string) bool {
	return strings.HasSuffix(key, "_bytes")
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return d.String()
	case d < time.Second:
		return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
	default:
		return d.Round(10 * time.Millisecond).String()
	}
}

func truncateErrorValue(value string) string {
	const maxLen = 200
	if len(value) > maxLen {
		return value[:maxLen] + "…"
	}
	return value
}

// isDebugOnlyKey hides identifiers and raw provider fields from info-level
// console lines. JSON output always carries every key.
func isDebugOnlyKey(key string) bool {
	switch key {
	case FieldCorrelationID, FieldSessionID, "url", "query", "popularity", "vote_count", "vote_average":
		return true
	}
	return strings.HasSuffix(key, "_id") || strings.HasPrefix(key, "tmdb_")
}
