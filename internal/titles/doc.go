// Package titles turns noisy retail product titles into searchable movie titles.
//
// CleanTitle runs an ordered list of named rules (Rules) over the raw
// listing text: bracketed years, edition and format markers, studio names,
// disc and region indicators, marketing copy, item condition, trailing genre
// words, split contractions, punctuation and finally title casing. Each rule
// is a pure string-to-string function and can be exercised on its own.
//
// ExtractYear, NormalizeForComparison, ExtractPhysicalEdition and
// ExtractCredits share the same vocabulary tables and never perform I/O.
package titles
