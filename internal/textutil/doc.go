// Package textutil provides string distance and word-overlap measures used when
// comparing catalog titles.
//
// Inputs are expected to be normalized by the caller; these helpers compare
// runes and whitespace-separated words exactly as given.
package textutil
