package similarity

import (
	"math"
	"strings"
	"unicode/utf8"
)

const (
	// MatchThreshold is the score at or above which two titles are treated as the same show.
	MatchThreshold = 0.7

	headlinerStrongScore = 0.9
	headlinerFloor       = 0.85
	prefixMinLength      = 5
	prefixMinRatio       = 0.5
	prefixFloor          = 0.8
)

const (
	StrategyDirect    = "direct"
	StrategyHeadliner = "headliner"
	StrategyPrefix    = "prefix"
)

// Scorer combines the direct, headliner and prefix strategies.
type Scorer struct {
	openers *Openers
}

var defaultScorer = mustDefaultScorer()

func mustDefaultScorer() *Scorer {
	openers, err := CompileOpeners(DefaultOpenerPatterns())
	if err != nil {
		panic(err)
	}
	return &Scorer{openers: openers}
}

// NewScorer builds a Scorer around a compiled opener set. A nil set falls back to the defaults.
func NewScorer(openers *Openers) *Scorer {
	if openers == nil {
		return defaultScorer
	}
	return &Scorer{openers: openers}
}

// Default returns the Scorer using DefaultOpenerPatterns.
func Default() *Scorer {
	return defaultScorer
}

// Score returns the best of the three strategies, in [0,1].
func Score(a, b string) float64 {
	return defaultScorer.Score(a, b)
}

func (s *Scorer) Score(a, b string) float64 {
	score, _ := s.Best(a, b)
	return score
}

// Best returns the winning score and the strategy that produced it. Ties go to
// the earlier strategy in direct, headliner, prefix order.
func (s *Scorer) Best(a, b string) (float64, string) {
	score, strategy := Direct(a, b), StrategyDirect
	if h := s.Headliner(a, b); h > score {
		score, strategy = h, StrategyHeadliner
	}
	if p := Prefix(a, b); p > score {
		score, strategy = p, StrategyPrefix
	}
	return score, strategy
}

// Direct compares normalized titles by edit distance.
func Direct(a, b string) float64 {
	return directNormalized(Normalize(a), Normalize(b))
}

func directNormalized(na, nb string) float64 {
	if na == nb {
		return 1
	}
	maxLen := max(utf8.RuneCountInString(na), utf8.RuneCountInString(nb))
	if maxLen == 0 {
		return 1
	}
	distance := levenshtein(na, nb)
	return float64(maxLen-distance) / float64(maxLen)
}

// Headliner compares titles after their opener clauses are removed. It scores 0
// unless stripping changed at least one side.
func (s *Scorer) Headliner(a, b string) float64 {
	var openers *Openers
	if s != nil {
		openers = s.openers
	}

	ha := Normalize(openers.Headliner(a))
	hb := Normalize(openers.Headliner(b))
	if ha == "" || hb == "" {
		return 0
	}
	if ha == Normalize(a) && hb == Normalize(b) {
		return 0
	}

	score := directNormalized(ha, hb)
	if score >= headlinerStrongScore {
		score = math.Max(score, headlinerFloor)
	}
	return score
}

// Prefix rewards a title that is the leading part of the other, such as
// "Open Mic Night" against "Open Mic Night - December 20".
func Prefix(a, b string) float64 {
	na := Normalize(a)
	nb := Normalize(b)

	shorter, longer := na, nb
	if utf8.RuneCountInString(shorter) > utf8.RuneCountInString(longer) {
		shorter, longer = longer, shorter
	}

	shortLen := utf8.RuneCountInString(shorter)
	if shortLen < prefixMinLength || !strings.HasPrefix(longer, shorter) {
		return 0
	}

	ratio := float64(shortLen) / float64(utf8.RuneCountInString(longer))
	if ratio >= prefixMinRatio {
		return math.Max(ratio, prefixFloor)
	}
	return ratio
}
