package resolution

import (
	"regexp"
	"strings"
)

// defaultSourceAliases maps the spellings venues use in resolution rules to a
// canonical source name. Kept as data so deployments can extend it without
// code changes.
var defaultSourceAliases = map[string]string{
	"ap":                         "associated press",
	"associated press":           "associated press",
	"reuters":                    "reuters",
	"bloomberg":                  "bloomberg",
	"nyt":                        "new york times",
	"new york times":             "new york times",
	"the new york times":         "new york times",
	"bls":                        "bureau of labor statistics",
	"bureau of labor statistics": "bureau of labor statistics",
	"cdc":                        "cdc",
	"fed":                        "federal reserve",
	"federal reserve":            "federal reserve",
	"fomc":                       "federal reserve",
	"noaa":                       "noaa",
	"national weather service":   "noaa",
	"nws":                        "noaa",
	"espn":                       "espn",
	"coingecko":                  "coingecko",
	"coinbase":                   "coinbase",
	"binance":                    "binance",
	"sec":                        "sec",
	"official government data":   "official government data",
}

var (
	// Dates like "January 2, 2026", "Jan 2 2026" and "2026-01-02".
	dateLongRe = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|sept|oct|nov|dec)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	dateISORe  = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)

	// Explicit condition phrasing: "resolves yes if ...", "if ... then", and
	// bare numeric thresholds.
	conditionRe = regexp.MustCompile(`(?i)\b(?:resolves?\s+(?:to\s+)?(?:yes|no)\s+if|will\s+resolve\s+(?:yes|no)\s+if|if\s+and\s+only\s+if|provided\s+that)\b`)
	numberRe    = regexp.MustCompile(`\b\d+(?:\.\d+)?%?\b`)
)

var monthNumbers = map[string]string{
	"january": "01", "jan": "01",
	"february": "02", "feb": "02",
	"march": "03", "mar": "03",
	"april": "04", "apr": "04",
	"may":  "05",
	"june": "06", "jun": "06",
	"july": "07", "jul": "07",
	"august": "08", "aug": "08",
	"september": "09", "sep": "09", "sept": "09",
	"october": "10", "oct": "10",
	"november": "11", "nov": "11",
	"december": "12", "dec": "12",
}

// criteria is what the pattern rules extract from one market's free text.
type criteria struct {
	sources    []string // canonical names, deduplicated
	dates      []string // normalized yyyy-mm-dd
	conditions bool     // explicit conditional phrasing present
	numbers    []string // numeric thresholds appearing in the text
}

// extract applies the pattern rules to a market's combined free text.
func (a *Analyzer) extract(text string) criteria {
	lower := strings.ToLower(text)

	var c criteria

	seen := make(map[string]bool)
	for alias, canonical := range a.sourceAliases {
		if seen[canonical] {
			continue
		}
		if containsWord(lower, alias) {
			c.sources = append(c.sources, canonical)
			seen[canonical] = true
		}
	}

	dateSeen := make(map[string]bool)
	for _, m := range dateISORe.FindAllStringSubmatch(lower, -1) {
		d := m[1] + "-" + m[2] + "-" + m[3]
		if !dateSeen[d] {
			c.dates = append(c.dates, d)
			dateSeen[d] = true
		}
	}
	for _, m := range dateLongRe.FindAllStringSubmatch(lower, -1) {
		month := monthNumbers[strings.TrimSuffix(m[1], ".")]
		if month == "" {
			continue
		}
		day := m[2]
		if len(day) == 1 {
			day = "0" + day
		}
		d := m[3] + "-" + month + "-" + day
		if !dateSeen[d] {
			c.dates = append(c.dates, d)
			dateSeen[d] = true
		}
	}

	c.conditions = conditionRe.MatchString(lower)
	c.numbers = numberRe.FindAllString(lower, -1)

	return c
}

// containsWord reports whether needle appears in haystack on word boundaries.
// A plain substring match would turn "cap" into a hit for "AP".
func containsWord(haystack, needle string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], needle)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(needle)
		beforeOK := start == 0 || !isWordChar(haystack[start-1])
		afterOK := end == len(haystack) || !isWordChar(haystack[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

func intersects(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		if set[s] {
			return true
		}
	}
	return false
}
