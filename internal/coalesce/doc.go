// Package coalesce joins concurrent requests for the same key onto a single
// in-flight operation.
//
// Group wraps golang.org/x/sync/singleflight with context-aware waiting and
// pending bookkeeping. Through layers the tiered cache in front of a Group so
// a burst of lookups for an uncached key produces exactly one upstream call.
package coalesce
