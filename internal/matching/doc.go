// Package matching scores metadata search candidates against a cleaned
// product title and decides whether the winner needs manual review.
//
// TitleSimilarity contributes up to 40 points; Score adds year proximity,
// popularity, media type and vote average bonuses for a maximum near 100.
// Every function here is pure: the same inputs always produce the same
// score and review decision.
package matching
