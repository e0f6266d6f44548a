// Package risk scores the behavioural risk of an assessment attempt.
//
// Every attempt is evaluated against 5 weighted signals: tab switches, face
// absence, code similarity, copy-paste events and a multiple-faces flag.
// Scores range from 0 (clean) to 100 (maximum risk). This is the only risk
// formula in the system; explanations derive their per-factor numbers from
// Calculator.Contributions so the weights live in one place.
package risk

// Factor names one behavioural signal.
type Factor string

const (
	FactorTabSwitches    Factor = "tab_switches"
	FactorFaceAbsence    Factor = "face_absence"
	FactorCodeSimilarity Factor = "code_similarity"
	FactorCopyPaste      Factor = "copy_paste"
	FactorMultipleFaces  Factor = "multiple_faces"
)

// FactorOrder is the fixed reporting order of factors.
var FactorOrder = []Factor{
	FactorTabSwitches,
	FactorFaceAbsence,
	FactorCodeSimilarity,
	FactorCopyPaste,
	FactorMultipleFaces,
}

// Score bounds.
const (
	MinScore = 0.0
	MaxScore = 100.0
)

// Signals are the derived behavioural facts of one attempt.
type Signals struct {
	TabSwitchCount        int     `json:"tab_switch_count"`
	FaceAbsentSeconds     int     `json:"face_absent_seconds"`
	CodeSimilarityPercent float64 `json:"code_similarity_percent"`
	CopyPasteCount        int     `json:"copy_paste_count"`
	MultipleFacesDetected bool    `json:"multiple_faces_detected"`
}

// Weights are per-unit risk points for each signal.
type Weights struct {
	TabSwitch     float64 // per switch
	FaceAbsence   float64 // per absent second
	Similarity    float64 // per similarity percentage point
	CopyPaste     float64 // per event
	MultipleFaces float64 // flat
}

// DefaultWeights is the production weighting.
var DefaultWeights = Weights{
	TabSwitch:     10,
	FaceAbsence:   2,
	Similarity:    0.5,
	CopyPaste:     5,
	MultipleFaces: 25,
}

// Contribution is one factor's share of the unclamped risk sum.
type Contribution struct {
	Factor Factor
	Raw    float64 // the signal value; 1 or 0 for the multiple-faces flag
	Points float64
}

// Active reports whether the underlying signal is strictly positive.
func (c Contribution) Active() bool {
	return c.Raw > 0
}

// Scorer turns behavioural signals into a bounded risk score.
type Scorer interface {
	Score(s Signals) float64
}
