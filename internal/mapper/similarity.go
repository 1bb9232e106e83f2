package mapper

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Default blend between whole-token agreement and character similarity.
// Header labels are short multi-word phrases, so token overlap is the
// stronger signal and carries the larger weight. The weights are fixed for
// reproducibility; construct a Scorer explicitly to tune them.
const (
	DefaultTokenWeight = 0.6
	DefaultCharWeight  = 0.4
)

// Minimum rune length for the abbreviation rule below. Single characters
// prefix too many words to be a usable signal.
const minAbbrevLen = 2

// Scorer computes a bounded similarity score between two normalized labels.
type Scorer struct {
	tokenWeight float64
	charWeight  float64
}

// NewScorer creates a scorer with the default 0.6/0.4 weighting.
func NewScorer() *Scorer {
	return NewWeightedScorer(DefaultTokenWeight, DefaultCharWeight)
}

// NewWeightedScorer creates a scorer with explicit weights. Non-positive
// pairs fall back to the defaults.
func NewWeightedScorer(tokenWeight, charWeight float64) *Scorer {
	if tokenWeight <= 0 || charWeight <= 0 {
		tokenWeight = DefaultTokenWeight
		charWeight = DefaultCharWeight
	}
	sum := tokenWeight + charWeight
	return &Scorer{
		tokenWeight: tokenWeight / sum,
		charWeight:  charWeight / sum,
	}
}

// Score returns a similarity in [0,1] between two normalized labels.
// It is symmetric, and 1.0 exactly when both normal forms are identical.
func (s *Scorer) Score(a, b string) float64 {
	if a == b {
		return 1.0
	}

	score := s.tokenWeight*tokenOverlap(Tokens(a), Tokens(b)) +
		s.charWeight*charRatio(a, b)

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// tokenAliases maps conventional header abbreviations to the full word
// they stand for. Prefix matching cannot recover these: "no" shares no
// prefix with "number". When multiple abbreviations mean the same word,
// they all map here.
var tokenAliases = map[string]string{
	"no":  "number",
	"num": "number",
	"nbr": "number",
	"qty": "quantity",
	"amt": "amount",
	"pct": "percent",
	"avg": "average",
	"wt":  "weight",
	"ht":  "height",
	"mfg": "manufacturing",
}

// tokenOverlap is the Jaccard index over the two token sets, with one
// refinement: tokens also count as matching when their alias-expanded
// forms are equal ("no" vs "number") or one is a prefix of the other
// ("temp" vs "temperature"). Column headers abbreviate aggressively and
// exact-token Jaccard misses those pairs.
func tokenOverlap(at, bt []string) float64 {
	as := uniqueSorted(at)
	bs := uniqueSorted(bt)

	if len(as) == 0 && len(bs) == 0 {
		return 1
	}
	if len(as) == 0 || len(bs) == 0 {
		return 0
	}

	sizeA := len(as)
	sizeB := len(bs)
	matched := 0

	usedB := make([]bool, len(bs))
	for i, a := range as {
		for j, b := range bs {
			if usedB[j] || a != b {
				continue
			}
			usedB[j] = true
			as[i] = ""
			matched++
			break
		}
	}
	for i, a := range as {
		if a == "" {
			continue
		}
		for j, b := range bs {
			if usedB[j] || !abbreviates(a, b) {
				continue
			}
			usedB[j] = true
			as[i] = ""
			matched++
			break
		}
	}

	return float64(matched) / float64(sizeA+sizeB-matched)
}

// abbreviates reports whether two tokens stand for the same word: their
// alias-expanded forms are equal, or one is a prefix of the other. Both
// expanded forms must be at least minAbbrevLen runes long.
func abbreviates(a, b string) bool {
	a = expandAlias(a)
	b = expandAlias(b)
	if utf8.RuneCountInString(a) < minAbbrevLen || utf8.RuneCountInString(b) < minAbbrevLen {
		return false
	}
	if a == b {
		return true
	}
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}

func expandAlias(token string) string {
	if full, ok := tokenAliases[token]; ok {
		return full
	}
	return token
}

// charRatio is the normalized edit-distance similarity between the full
// normalized strings: 1 - dist/max(len), and 1.0 when both are empty.
func charRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	la := utf8.RuneCountInString(a)
	lb := utf8.RuneCountInString(b)
	denom := la
	if lb > denom {
		denom = lb
	}
	if denom == 0 {
		return 1
	}

	ratio := 1 - float64(levenshtein.ComputeDistance(a, b))/float64(denom)
	if ratio < 0 {
		return 0
	}
	return ratio
}

func uniqueSorted(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
