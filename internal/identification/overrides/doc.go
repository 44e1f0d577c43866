// Package overrides loads user-authored barcode pins.
//
// A pin maps barcodes to a specific TMDB record so the resolver can skip the
// search stage for products whose retail titles defeat automatic matching.
package overrides
