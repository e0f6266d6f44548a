package risk

import "math"

// Calculator is the weighted-sum Scorer.
type Calculator struct {
	weights Weights
}

var _ Scorer = (*Calculator)(nil)

// NewCalculator creates a calculator with the default weights.
func NewCalculator() *Calculator {
	return &Calculator{weights: DefaultWeights}
}

// NewCalculatorWithWeights creates a calculator with custom weights. Negative
// weights are treated as zero so the score never falls as a signal grows.
func NewCalculatorWithWeights(w Weights) *Calculator {
	w.TabSwitch = math.Max(0, w.TabSwitch)
	w.FaceAbsence = math.Max(0, w.FaceAbsence)
	w.Similarity = math.Max(0, w.Similarity)
	w.CopyPaste = math.Max(0, w.CopyPaste)
	w.MultipleFaces = math.Max(0, w.MultipleFaces)
	return &Calculator{weights: w}
}

// Weights returns the calculator's weighting.
func (c *Calculator) Weights() Weights {
	return c.weights
}

// Contributions returns every factor's points in FactorOrder, including
// zero-valued ones.
func (c *Calculator) Contributions(s Signals) []Contribution {
	faces := 0.0
	if s.MultipleFacesDetected {
		faces = 1
	}
	return []Contribution{
		{FactorTabSwitches, float64(s.TabSwitchCount), float64(s.TabSwitchCount) * c.weights.TabSwitch},
		{FactorFaceAbsence, float64(s.FaceAbsentSeconds), float64(s.FaceAbsentSeconds) * c.weights.FaceAbsence},
		{FactorCodeSimilarity, s.CodeSimilarityPercent, s.CodeSimilarityPercent * c.weights.Similarity},
		{FactorCopyPaste, float64(s.CopyPasteCount), float64(s.CopyPasteCount) * c.weights.CopyPaste},
		{FactorMultipleFaces, faces, faces * c.weights.MultipleFaces},
	}
}

// Score sums the contributions and clamps the total to [0, 100].
func (c *Calculator) Score(s Signals) float64 {
	var total float64
	for _, contrib := range c.Contributions(s) {
		total += contrib.Points
	}
	return Clamp(total)
}

// Calculate scores signals with the default weights.
func Calculate(s Signals) float64 {
	return NewCalculator().Score(s)
}

// Clamp bounds v to [MinScore, MaxScore].
func Clamp(v float64) float64 {
	return math.Max(MinScore, math.Min(MaxScore, v))
}
