package titles

import "regexp"

// labelDef pairs a normalized label with the pattern that detects it.
type labelDef struct {
	label   string
	pattern string
}

type labelPattern struct {
	label   string
	pattern *regexp.Regexp
}

// editionDefs lists retail edition markers. Order matters: the first match
// wins when labelling a product.
var editionDefs = []labelDef{
	{"Director's Cut", `director['’]?s?\s*(?:cut|edition|version)`},
	{"Extended Edition", `extended(?:\s*(?:cut|edition|version))?`},
	{"Unrated", `unrated(?:\s*(?:cut|edition|version))?`},
	{"Uncut", `uncut(?:\s*(?:edition|version))?`},
	{"Theatrical", `theatrical\s*(?:cut|edition|version|release)`},
	{"Remastered", `(?:digitally\s*)?remastered(?:\s*(?:edition|version))?`},
	{"Anniversary Edition", `\d+\s*(?:th|st|nd|rd)?\s*anniversary(?:\s*edition)?`},
	{"Collector's Edition", `collector['’]?s?\s*edition`},
	{"Special Edition", `special\s*edition`},
	{"Limited Edition", `limited\s*edition`},
	{"Deluxe Edition", `deluxe\s*edition`},
	{"Ultimate Edition", `ultimate\s*(?:cut|edition)`},
	{"Definitive Edition", `definitive\s*(?:cut|edition)`},
	{"Final Cut", `final\s*cut`},
	{"IMAX", `imax(?:\s*edition)?`},
}

// formatDefs lists physical formats, most specific first.
var formatDefs = []labelDef{
	{"4K Ultra HD", `4k(?:\s*ultra\s*hd)?|ultra\s*hd|uhd`},
	{"Blu-ray 3D", `blu[\s-]?ray\s*3d`},
	{"Blu-ray", `blu[\s-]?ray`},
	{"HD DVD", `hd[\s-]?dvd`},
	{"DVD", `dvd`},
	{"Digital", `digital\s*(?:hd|copy|code)`},
}

// featureDefs lists packaging and presentation features.
var featureDefs = []labelDef{
	{"Widescreen", `widescreen`},
	{"Full Screen", `full[\s-]?screen`},
	{"Steelbook", `steel\s*book`},
	{"Combo Pack", `combo\s*pack`},
	{"Digital Copy", `digital\s*(?:hd|copy|code)`},
	{"Slipcover", `slip\s*cover`},
	{"Bonus Features", `bonus\s*(?:features|content|disc)|special\s*features`},
	{"HDR", `hdr(?:10\+?)?`},
	{"Dolby Vision", `dolby\s*vision`},
	{"Dolby Atmos", `dolby\s*atmos|atmos`},
	{"Commentary", `commentary`},
}

// studioDefs lists studios and home-video distributors.
var studioDefs = []labelDef{
	{"Warner Bros.", `warner\s*(?:bros\.?|brothers)(?:\s*(?:pictures|home\s*(?:video|entertainment)))?|warner\s*home\s*video`},
	{"Universal", `universal\s*(?:pictures|studios)(?:\s*home\s*entertainment)?`},
	{"Paramount", `paramount(?:\s*(?:pictures|home\s*(?:video|entertainment)))?`},
	{"Disney", `(?:walt\s*)?disney(?:\s*pixar)?(?:\s*home\s*(?:video|entertainment))?`},
	{"Pixar", `pixar`},
	{"DreamWorks", `dreamworks(?:\s*animation)?`},
	{"Sony Pictures", `sony\s*pictures(?:\s*home\s*entertainment)?`},
	{"Columbia Pictures", `columbia\s*(?:pictures|tristar)`},
	{"20th Century Studios", `(?:20th|twentieth)\s*century\s*(?:fox|studios)(?:\s*home\s*entertainment)?`},
	{"Lionsgate", `lions\s*gate(?:\s*films)?`},
	{"MGM", `mgm(?:\s*home\s*entertainment)?`},
	{"New Line Cinema", `new\s*line\s*cinema`},
	{"Miramax", `miramax`},
	{"The Criterion Collection", `(?:the\s*)?criterion\s*collection`},
	{"A24", `a24`},
	{"Anchor Bay", `anchor\s*bay(?:\s*entertainment)?`},
	{"Shout! Factory", `(?:shout!?|scream)\s*factory`},
	{"Arrow Video", `arrow\s*(?:video|films)`},
	{"Kino Lorber", `kino\s*lorber`},
	{"Touchstone", `touchstone\s*(?:pictures|home\s*video)`},
	{"Buena Vista", `buena\s*vista(?:\s*home\s*entertainment)?`},
	{"Focus Features", `focus\s*features`},
	{"Summit Entertainment", `summit\s*entertainment`},
	{"HBO", `hbo(?:\s*home\s*(?:video|entertainment))?`},
}

// regionDefs lists disc region markings.
var regionDefs = []labelDef{
	{"Region Free", `region[\s-]*(?:free|0)`},
	{"Region 1", `region\s*1`},
	{"Region 2", `region\s*2`},
	{"Region 4", `region\s*4`},
	{"Region A", `region\s*a`},
	{"Region B", `region\s*b`},
	{"Region C", `region\s*c`},
	// Video standards only count in upper case; "pal" is also an English word.
	{"NTSC", `(?-i:NTSC)`},
	{"PAL", `(?-i:PAL)`},
}

var (
	editionPatterns = compileLabels(editionDefs)
	formatPatterns  = compileLabels(formatDefs)
	featurePatterns = compileLabels(featureDefs)
	studioPatterns  = compileLabels(studioDefs)
	regionPatterns  = compileLabels(regionDefs)
)

func compileLabels(defs []labelDef) []labelPattern {
	out := make([]labelPattern, 0, len(defs))
	for _, def := range defs {
		out = append(out, labelPattern{
			label:   def.label,
			pattern: regexp.MustCompile(`(?i)\b(?:` + def.pattern + `)\b`),
		})
	}
	return out
}

// alternation joins every pattern in defs into one case-insensitive,
// word-bounded expression used for stripping.
func alternation(suffix string, groups ...[]labelDef) *regexp.Regexp {
	expr := ""
	for _, defs := range groups {
		for _, def := range defs {
			if expr != "" {
				expr += "|"
			}
			expr += def.pattern
		}
	}
	return regexp.MustCompile(`(?i)\b(?:` + expr + `)` + suffix + `\b`)
}
