package matching

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// stopwords excluded from keyword overlap. Market titles are question-shaped,
// so interrogatives dominate raw token counts.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "in": true, "is": true,
	"it": true, "of": true, "on": true, "or": true, "that": true, "the": true,
	"this": true, "to": true, "will": true, "with": true, "before": true,
	"after": true, "who": true, "what": true, "when": true, "which": true,
	"would": true, "does": true, "do": true, "how": true, "many": true,
}

// titleSimilarity returns a normalized edit-distance similarity in [0,1].
func titleSimilarity(a, b string) float64 {
	na := normalize(a)
	nb := normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	dist := levenshtein.ComputeDistance(na, nb)
	longest := len([]rune(na))
	if l := len([]rune(nb)); l > longest {
		longest = l
	}
	return 1 - float64(dist)/float64(longest)
}

// keywordOverlap returns the Jaccard similarity of the two texts' keyword
// sets, stopwords removed.
func keywordOverlap(a, b string) float64 {
	setA := keywords(a)
	setB := keywords(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func keywords(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(normalize(text)) {
		if len(tok) < 2 || stopwords[tok] {
			continue
		}
		set[tok] = true
	}
	return set
}

// normalize lowercases and strips punctuation, collapsing whitespace.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}
