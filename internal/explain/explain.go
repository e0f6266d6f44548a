// Package explain turns behavioural signals and a risk score into an auditable
// breakdown and a plain-language narrative.
//
// Per-factor contributions come from risk.Calculator.Contributions and are not
// clamped.
// When the weighted sum exceeds the risk cap, UncappedTotal is larger than
// TotalRiskScore; both are reported so a reviewer can see the cap was hit.
package explain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/mbd888/trustscore/internal/risk"
)

// NoRiskNarrative is the narrative when no factor is active.
const NoRiskNarrative = "No suspicious behavior detected."

const narrativePrefix = "Risk factors detected: "

// Factor is one active factor's raw signal and risk contribution.
type Factor struct {
	Name             risk.Factor
	Raw              float64
	RiskContribution float64
}

// MarshalJSON keys the raw value by its unit, e.g. {"count": 2, ...}.
func (f Factor) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{"risk_contribution": f.RiskContribution}
	switch f.Name {
	case risk.FactorTabSwitches, risk.FactorCopyPaste:
		m["count"] = int(f.Raw)
	case risk.FactorFaceAbsence:
		m["seconds"] = int(f.Raw)
	case risk.FactorCodeSimilarity:
		m["percentage"] = f.Raw
	case risk.FactorMultipleFaces:
		m["detected"] = f.Raw > 0
	}
	return json.Marshal(m)
}

// UnmarshalJSON reads the unit-keyed form written by MarshalJSON. Name is
// set by the enclosing Explanation.
func (f *Factor) UnmarshalJSON(data []byte) error {
	var raw struct {
		RiskContribution float64  `json:"risk_contribution"`
		Count            *float64 `json:"count"`
		Seconds          *float64 `json:"seconds"`
		Percentage       *float64 `json:"percentage"`
		Detected         *bool    `json:"detected"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.RiskContribution = raw.RiskContribution
	switch {
	case raw.Count != nil:
		f.Raw = *raw.Count
	case raw.Seconds != nil:
		f.Raw = *raw.Seconds
	case raw.Percentage != nil:
		f.Raw = *raw.Percentage
	case raw.Detected != nil && *raw.Detected:
		f.Raw = 1
	}
	return nil
}

// Explanation is the auditable account of one risk score.
type Explanation struct {
	TotalRiskScore      float64                 `json:"total_risk_score"`
	UncappedTotal       float64                 `json:"uncapped_total"`
	ContributingFactors map[risk.Factor]*Factor `json:"contributing_factors"`
	Narrative           string                  `json:"human_readable_explanation"`
}

// Capped reports whether the contributions sum past the displayed total.
func (e *Explanation) Capped() bool {
	return e.UncappedTotal > e.TotalRiskScore
}

// Ordered returns the active factors in reporting order.
func (e *Explanation) Ordered() []*Factor {
	out := make([]*Factor, 0, len(e.ContributingFactors))
	for _, name := range risk.FactorOrder {
		if f, ok := e.ContributingFactors[name]; ok {
			out = append(out, f)
		}
	}
	return out
}

// UnmarshalJSON restores factor names from the map keys.
func (e *Explanation) UnmarshalJSON(data []byte) error {
	type plain Explanation
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	for name, f := range p.ContributingFactors {
		f.Name = name
	}
	*e = Explanation(p)
	return nil
}

// Builder produces explanations using a calculator's weights.
type Builder struct {
	calc *risk.Calculator
}

// NewBuilder creates a builder that explains scores from calc.
func NewBuilder(calc *risk.Calculator) *Builder {
	if calc == nil {
		calc = risk.NewCalculator()
	}
	return &Builder{calc: calc}
}

// Build explains riskScore in terms of the signals that produced it.
// riskScore is carried through unchanged.
func (b *Builder) Build(s risk.Signals, riskScore float64) *Explanation {
	e := &Explanation{
		TotalRiskScore:      riskScore,
		ContributingFactors: make(map[risk.Factor]*Factor),
	}

	var sentences []string
	for _, c := range b.calc.Contributions(s) {
		if !c.Active() {
			continue
		}
		points := round2(c.Points)
		e.ContributingFactors[c.Factor] = &Factor{Name: c.Factor, Raw: c.Raw, RiskContribution: points}
		e.UncappedTotal += points
		sentences = append(sentences, sentence(c.Factor, c.Raw, points))
	}
	e.UncappedTotal = round2(e.UncappedTotal)

	if len(sentences) == 0 {
		e.Narrative = NoRiskNarrative
	} else {
		e.Narrative = narrativePrefix + strings.Join(sentences, " ")
	}
	return e
}

// Build explains riskScore with the default weights.
func Build(s risk.Signals, riskScore float64) *Explanation {
	return NewBuilder(nil).Build(s, riskScore)
}

func sentence(f risk.Factor, raw, points float64) string {
	switch f {
	case risk.FactorTabSwitches:
		return "Tab switching occurred " + integer(raw) + " times (+" + number(points) + " risk)."
	case risk.FactorFaceAbsence:
		return "Face absent for " + integer(raw) + " seconds (+" + number(points) + " risk)."
	case risk.FactorCodeSimilarity:
		return "Code similarity of " + decimal(raw) + "% (+" + decimal(points) + " risk)."
	case risk.FactorCopyPaste:
		return "Copy-paste used " + integer(raw) + " times (+" + number(points) + " risk)."
	case risk.FactorMultipleFaces:
		return "Multiple faces detected (+" + number(points) + " risk)."
	}
	return ""
}

func integer(v float64) string {
	return strconv.FormatInt(int64(v), 10)
}

// number prints whole values bare and fractional ones in shortest form.
func number(v float64) string {
	if v == math.Trunc(v) {
		return integer(v)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// decimal prints shortest form with at least one fractional digit.
func decimal(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
