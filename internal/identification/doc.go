// Package identification resolves scanned barcodes to TMDB titles.
//
// The Resolver runs one lookup end to end: UPC product lookup, title cleaning
// and year extraction, an ordered series of TMDB search strategies scored by
// the matching package, the manual-review decision, and a detail fetch for
// the winning candidate. Every network stage goes through the tiered cache
// and a shared coalescing group so concurrent scans of the same product make
// one upstream call. Searches that find nothing produce a placeholder
// candidate routed to review instead of an error; UPC and detail failures
// propagate.
//
// Barcode pins from the overrides catalog bypass the search stage entirely.
package identification
