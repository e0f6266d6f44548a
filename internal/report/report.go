// Package report assembles the final, immutable record of a scored attempt.
//
// A Report only aggregates values computed elsewhere; it never recomputes a
// score. The one decision it makes is the mandatory-review flag, raised when
// the risk score reaches the review threshold.
package report

import (
	"context"
	"errors"
	"time"

	"github.com/mbd888/trustscore/internal/explain"
	"github.com/mbd888/trustscore/internal/idgen"
	"github.com/mbd888/trustscore/internal/risk"
	"github.com/mbd888/trustscore/internal/skill"
	"github.com/mbd888/trustscore/internal/trust"
)

// DefaultReviewThreshold is the risk score at which a human must audit the
// attempt.
const DefaultReviewThreshold = 50.0

const noExplanation = "No explanation provided."

// ErrReportNotFound is returned when a report ID is unknown.
var ErrReportNotFound = errors.New("report: not found")

// Report is the aggregated outcome of one attempt.
type Report struct {
	Metadata      Metadata      `json:"metadata"`
	Summary       Summary       `json:"summary"`
	SkillAnalysis SkillAnalysis `json:"skill_analysis"`
	RiskAnalysis  RiskAnalysis  `json:"risk_analysis"`
	TrustImpact   TrustImpact   `json:"trust_impact"`
}

// Metadata identifies the report.
type Metadata struct {
	ReportID             string    `json:"report_id"`
	UserID               string    `json:"user_id"`
	AttemptID            string    `json:"attempt_id,omitempty"`
	GeneratedAt          time.Time `json:"generated_at"`
	NeedsMandatoryReview bool      `json:"needs_mandatory_review"`
}

// Summary is the headline view for dashboards.
type Summary struct {
	AssessmentScore float64 `json:"assessment_score"`
	RiskRating      float64 `json:"risk_rating"`
	TrustStanding   float64 `json:"trust_standing"`
}

// SkillAnalysis mirrors skill.Scores.
type SkillAnalysis struct {
	ProblemSolving float64 `json:"problem_solving"`
	Logic          float64 `json:"logic"`
	Efficiency     float64 `json:"efficiency"`
}

// RiskAnalysis carries the risk score and its explanation.
type RiskAnalysis struct {
	Score              float64                         `json:"score"`
	ExplanationSummary string                          `json:"explanation_summary"`
	Breakdown          map[risk.Factor]*explain.Factor `json:"breakdown"`
	UncappedTotal      float64                         `json:"uncapped_total"`
}

// TrustImpact records how the attempt moved the user's trust score.
type TrustImpact struct {
	PreviousScore float64     `json:"previous_score"`
	NewScore      float64     `json:"new_score"`
	Change        float64     `json:"change"`
	Trend         trust.Trend `json:"trend"`
}

// Input is everything the assembler needs; all scores are precomputed.
type Input struct {
	UserID        string
	AttemptID     string
	FinalScore    float64
	RiskScore     float64
	OldTrustScore float64
	NewTrustScore float64
	Skills        skill.Scores
	Explanation   *explain.Explanation
}

// Assembler builds reports.
type Assembler struct {
	threshold float64
	now       func() time.Time
}

// NewAssembler creates an assembler with the given review threshold.
func NewAssembler(threshold float64) *Assembler {
	return &Assembler{threshold: threshold, now: time.Now}
}

// WithClock overrides the time source used for GeneratedAt.
func (a *Assembler) WithClock(now func() time.Time) *Assembler {
	a.now = now
	return a
}

// Threshold returns the review threshold.
func (a *Assembler) Threshold() float64 {
	return a.threshold
}

// NeedsReview reports whether riskScore requires a human audit.
func (a *Assembler) NeedsReview(riskScore float64) bool {
	return riskScore >= a.threshold
}

// Build assembles a report from precomputed values.
func (a *Assembler) Build(in Input) *Report {
	change, trend := trust.Change(in.OldTrustScore, in.NewTrustScore)

	ra := RiskAnalysis{
		Score:              in.RiskScore,
		ExplanationSummary: noExplanation,
		Breakdown:          map[risk.Factor]*explain.Factor{},
	}
	if in.Explanation != nil {
		ra.ExplanationSummary = in.Explanation.Narrative
		ra.UncappedTotal = in.Explanation.UncappedTotal
		for name, f := range in.Explanation.ContributingFactors {
			cp := *f
			ra.Breakdown[name] = &cp
		}
	}

	return &Report{
		Metadata: Metadata{
			ReportID:             idgen.Report(),
			UserID:               in.UserID,
			AttemptID:            in.AttemptID,
			GeneratedAt:          a.now().UTC(),
			NeedsMandatoryReview: a.NeedsReview(in.RiskScore),
		},
		Summary: Summary{
			AssessmentScore: in.FinalScore,
			RiskRating:      in.RiskScore,
			TrustStanding:   in.NewTrustScore,
		},
		SkillAnalysis: SkillAnalysis{
			ProblemSolving: in.Skills.ProblemSolving,
			Logic:          in.Skills.Logic,
			Efficiency:     in.Skills.Efficiency,
		},
		RiskAnalysis: ra,
		TrustImpact: TrustImpact{
			PreviousScore: in.OldTrustScore,
			NewScore:      in.NewTrustScore,
			Change:        change,
			Trend:         trend,
		},
	}
}

// Store persists reports for audit.
type Store interface {
	Save(ctx context.Context, r *Report) error
	Get(ctx context.Context, id string) (*Report, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*Report, error)
}
