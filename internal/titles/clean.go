package titles

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Rule is one named step of the title cleaning pipeline.
type Rule struct {
	Name  string
	Apply func(string) string
}

var (
	bracketedYearPattern = regexp.MustCompile(`[\(\[]\s*(?:19|20)\d{2}\s*[\)\]]`)
	editionStripPattern  = alternation("", editionDefs)
	formatStripPattern   = alternation(`(?:\s*(?:edition|version|format))?`, formatDefs, featureDefs)
	studioStripPattern   = alternation(`(?:['’]s)?`, studioDefs)
	discRegionPattern    = regexp.MustCompile(`(?i)\b(?:\d+\s*-?\s*dis[ck]s?(?:\s*set)?|(?:single|double|two|three|four)[\s-]*dis[ck](?:\s*set)?|dis[ck]\s*\d+|` + labelsExpr(regionDefs) + `)\b`)
	marketingPattern     = regexp.MustCompile(`(?i)\b(?:includes?\s*digital\s*copy|with\s*bonus\s*features|free\s*shipping|fast\s*shipping|(?:target|walmart|best\s*buy|amazon)\s*exclusive|exclusive|movie\s*cash|with\s*slip\s*cover|o[\s-]?ring|brand\s*new\s*in\s*box|out\s*of\s*print)\b`)
	conditionWords       = `brand\s*new|factory\s*sealed|pre[\s-]?owned|like\s*new|sealed|used`
	leadingCondition     = regexp.MustCompile(`(?i)^[\W_]*(?:` + conditionWords + `)\b`)
	trailingCondition    = regexp.MustCompile(`(?i)\b(?:` + conditionWords + `|new|mint)[\W_]*$`)
	genreWords           = `action|adventure|comedy|drama|horror|thriller|sci[\s-]?fi|science\s*fiction|romance|animated|animation|documentary|family|musical|western|fantasy|mystery|crime|kids`
	trailingGenrePattern = regexp.MustCompile(`(?i)\s*[\-:,/|]+\s*(?:` + genreWords + `)(?:[\s\-:,/|&]+(?:` + genreWords + `))*[\s\W]*$`)
	splitApostrophe      = regexp.MustCompile(`\s*['’]\s*(s|t)\b`)
	strayPossessive      = regexp.MustCompile(`\b([A-Za-z]{2,})\s+s\b`)
	strayNegation        = regexp.MustCompile(`(?i)\b([a-z]+n)\s+t\b`)
	separatorPattern     = regexp.MustCompile(`[_|/+;,]+|^[-–—:]+\s*`)
	subtitlePattern      = regexp.MustCompile(`\s+[-–—:]+(?:\s+|$)`)
	emptyBracketPattern  = regexp.MustCompile(`[\(\[\{]\s*[\)\]\}]`)
	edgePunctPattern     = regexp.MustCompile(`^[\s\-–—:.,!&]+|[\s\-–—:,&]+$`)
	romanNumeralPattern  = regexp.MustCompile(`^(?i:x{0,3}(?:ix|iv|v?i{0,3}))$`)
)

var smallWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "as": {}, "at": {}, "but": {}, "by": {}, "for": {},
	"in": {}, "of": {}, "on": {}, "or": {}, "the": {}, "to": {}, "vs": {}, "vs.": {},
}

var cleanRules = []Rule{
	{"bracketed-year", stripBracketedYear},
	{"edition", stripEditions},
	{"format", stripFormats},
	{"studio", stripStudios},
	{"disc-region", stripDiscRegion},
	{"marketing", stripMarketing},
	{"condition", stripCondition},
	{"genre", stripTrailingGenre},
	{"contraction", repairContractions},
	{"punctuation", canonicalPunctuation},
	{"title-case", titleCase},
}

// Rules returns the ordered cleaning rules applied by CleanTitle.
func Rules() []Rule {
	out := make([]Rule, len(cleanRules))
	copy(out, cleanRules)
	return out
}

// CleanTitle strips retail noise from a product title and returns a
// title-cased search string. When cleaning leaves fewer than two characters,
// the trimmed input is returned unchanged.
func CleanTitle(raw string) string {
	original := strings.TrimSpace(raw)
	result := original
	for _, rule := range cleanRules {
		result = rule.Apply(result)
	}
	if utf8.RuneCountInString(result) < 2 {
		return original
	}
	return result
}

func stripBracketedYear(value string) string {
	return bracketedYearPattern.ReplaceAllString(value, " ")
}

func stripEditions(value string) string {
	return editionStripPattern.ReplaceAllString(value, " ")
}

func stripFormats(value string) string {
	return formatStripPattern.ReplaceAllString(value, " ")
}

func stripStudios(value string) string {
	return studioStripPattern.ReplaceAllString(value, " ")
}

func stripDiscRegion(value string) string {
	return discRegionPattern.ReplaceAllString(value, " ")
}

func stripMarketing(value string) string {
	return marketingPattern.ReplaceAllString(value, " ")
}

// stripCondition only removes condition words at either end of the title, and
// bare "new" only at the end, so "A New Hope" and "New Jack City" survive.
func stripCondition(value string) string {
	for {
		next := leadingCondition.ReplaceAllString(value, " ")
		next = trailingCondition.ReplaceAllString(next, " ")
		if next == value {
			return value
		}
		value = next
	}
}

// stripTrailingGenre removes genre words that follow an explicit separator,
// leaving "The Addams Family" alone.
func stripTrailingGenre(value string) string {
	return trailingGenrePattern.ReplaceAllString(value, "")
}

func repairContractions(value string) string {
	value = splitApostrophe.ReplaceAllString(value, "'$1")
	value = strayPossessive.ReplaceAllString(value, "$1's")
	return strayNegation.ReplaceAllString(value, "$1't")
}

func canonicalPunctuation(value string) string {
	value = separatorPattern.ReplaceAllString(value, " ")
	value = subtitlePattern.ReplaceAllString(value, " - ")
	for {
		next := emptyBracketPattern.ReplaceAllString(value, " ")
		if next == value {
			break
		}
		value = next
	}
	value = strings.Join(strings.Fields(value), " ")
	return edgePunctPattern.ReplaceAllString(value, "")
}

func titleCase(value string) string {
	if value == "" {
		return ""
	}
	caser := cases.Title(language.English, cases.NoLower)
	if !hasLower(value) {
		caser = cases.Title(language.English)
	}
	words := strings.Fields(caser.String(value))
	for i, word := range words {
		lower := strings.ToLower(word)
		if _, ok := smallWords[lower]; ok && i > 0 && !startsSubtitle(words[i-1]) {
			words[i] = lower
			continue
		}
		if romanNumeralPattern.MatchString(word) {
			words[i] = strings.ToUpper(word)
		}
	}
	return strings.Join(words, " ")
}

// startsSubtitle reports whether the word after prev opens a subtitle, as in
// "2001: A Space Odyssey" or "Episode IV - A New Hope".
func startsSubtitle(prev string) bool {
	return prev == "-" || strings.HasSuffix(prev, ":")
}

func hasLower(value string) bool {
	for _, r := range value {
		if unicode.IsLower(r) {
			return true
		}
	}
	return false
}

func labelsExpr(defs []labelDef) string {
	parts := make([]string, 0, len(defs))
	for _, def := range defs {
		parts = append(parts, def.pattern)
	}
	return strings.Join(parts, "|")
}
