// Package tmdb provides the minimal TMDB API client used during barcode
// identification.
//
// It authenticates requests and exposes multi search, movie/TV detail retrieval
// with credits appended, and a configuration probe used by preflight checks.
// Detail responses keep the raw JSON record alongside the typed fields so the
// resolver can return the full record with its own fields overlaid. Options
// allow tests to supply custom HTTP clients without modifying production code.
package tmdb
