package titles

import "strings"

// PhysicalEdition describes the packaged release a barcode belongs to.
type PhysicalEdition struct {
	Format      string   `json:"format,omitempty"`
	Edition     string   `json:"edition,omitempty"`
	Region      string   `json:"region,omitempty"`
	Distributor string   `json:"distributor,omitempty"`
	Features    []string `json:"features"`
}

// ExtractPhysicalEdition scans the provided product texts (title, brand,
// description) against the format, edition, region, studio and feature
// vocabularies. The first match in each table wins; features accumulate in
// table order without duplicates.
func ExtractPhysicalEdition(texts ...string) PhysicalEdition {
	joined := strings.Join(texts, " \n ")
	info := PhysicalEdition{
		Format:      firstLabel(formatPatterns, joined),
		Edition:     firstLabel(editionPatterns, joined),
		Region:      firstLabel(regionPatterns, joined),
		Distributor: firstLabel(studioPatterns, joined),
		Features:    []string{},
	}
	for _, feature := range featurePatterns {
		if feature.pattern.MatchString(joined) {
			info.Features = append(info.Features, feature.label)
		}
	}
	return info
}

func firstLabel(patterns []labelPattern, text string) string {
	for _, lp := range patterns {
		if lp.pattern.MatchString(text) {
			return lp.label
		}
	}
	return ""
}
