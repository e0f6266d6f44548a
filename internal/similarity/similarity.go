// Package similarity measures how closely a code submission matches known
// sources. Comparison is character-level Ratcliff/Obershelp matching, not a
// semantic or syntax-tree comparison.
package similarity

import (
	"context"
	"math"

	"github.com/pmezard/go-difflib/difflib"
)

// MaxCompareRunes bounds how much of each text is matched. Matching cost grows
// faster than quadratically with length, so longer texts are compared by
// their leading MaxCompareRunes runes.
const MaxCompareRunes = 5000

// Match is the best-scoring reference for a submission.
type Match struct {
	Index   int     `json:"index"` // -1 when there were no references
	Percent float64 `json:"percent"`
}

// Calculate returns the similarity of a and b as a percentage in [0, 100],
// rounded to 2 decimal places. Two empty texts are identical; one empty text
// shares nothing with a non-empty one.
func Calculate(a, b string) float64 {
	pct, _ := compare(a, b, -1)
	return pct
}

// Best compares code against each reference and returns the highest match.
// Ties keep the earliest reference. It stops with ctx's error between
// references once ctx is done.
func Best(ctx context.Context, code string, references []string) (Match, error) {
	best := Match{Index: -1}
	for i, ref := range references {
		if err := ctx.Err(); err != nil {
			return best, err
		}
		beat := -1.0
		if best.Index >= 0 {
			beat = best.Percent
		}
		if pct, ok := compare(code, ref, beat); ok && (best.Index < 0 || pct > best.Percent) {
			best = Match{Index: i, Percent: pct}
		}
	}
	return best, nil
}

// compare returns the similarity of a and b. When beat is not negative and a
// cheap upper bound shows the result cannot exceed it, the full match is
// skipped and ok is false.
func compare(a, b string, beat float64) (pct float64, ok bool) {
	if a == "" && b == "" {
		return 100.0, true
	}
	if a == "" || b == "" {
		return 0.0, true
	}

	// Popular-element pruning is off: with it, long repetitive code can score
	// below 100 against itself.
	m := difflib.NewMatcherWithJunk(splitChars(a), splitChars(b), false, nil)
	if beat >= 0 && (percent(m.RealQuickRatio()) <= beat || percent(m.QuickRatio()) <= beat) {
		return 0, false
	}
	return percent(m.Ratio()), true
}

func percent(ratio float64) float64 {
	return math.Round(ratio*100*100) / 100
}

// splitChars breaks s into one element per rune, up to MaxCompareRunes.
func splitChars(s string) []string {
	out := make([]string, 0, min(len(s), MaxCompareRunes))
	for _, r := range s {
		if len(out) == MaxCompareRunes {
			break
		}
		out = append(out, string(r))
	}
	return out
}
