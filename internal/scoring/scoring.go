// Package scoring runs the behaviour-to-trust pipeline for one completed
// attempt: skill scores, risk, explanation, trust update and final report.
//
// Data flows one way. Skill and risk are computed from the inputs, the
// explanation restates the risk, the trust ledger applies the deduction and
// the report aggregates everything. The report is stored before the trust
// update is committed, so a failed save leaves the user's trust untouched.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mbd888/trustscore/internal/explain"
	"github.com/mbd888/trustscore/internal/logging"
	"github.com/mbd888/trustscore/internal/metrics"
	"github.com/mbd888/trustscore/internal/report"
	"github.com/mbd888/trustscore/internal/risk"
	"github.com/mbd888/trustscore/internal/skill"
	"github.com/mbd888/trustscore/internal/traces"
	"github.com/mbd888/trustscore/internal/trust"
	"go.opentelemetry.io/otel/codes"
)

// Input is one attempt's derived signals and submission metrics.
type Input struct {
	UserID     string
	AttemptID  string
	FinalScore float64
	Signals    risk.Signals
	Submission skill.Submission
}

// Deps are the pipeline's collaborators. Calculator, Assembler and Reports
// default when nil; Ledger is required.
type Deps struct {
	Calculator *risk.Calculator
	Ledger     *trust.Ledger
	Assembler  *report.Assembler
	Reports    report.Store
	Logger     *slog.Logger
}

// Pipeline scores attempts.
type Pipeline struct {
	calc      *risk.Calculator
	explainer *explain.Builder
	ledger    *trust.Ledger
	assembler *report.Assembler
	reports   report.Store
	logger    *slog.Logger
}

// New creates a pipeline.
func New(d Deps) (*Pipeline, error) {
	if d.Ledger == nil {
		return nil, errors.New("scoring: trust ledger is required")
	}
	if d.Calculator == nil {
		d.Calculator = risk.NewCalculator()
	}
	if d.Assembler == nil {
		d.Assembler = report.NewAssembler(report.DefaultReviewThreshold)
	}
	if d.Reports == nil {
		d.Reports = report.NewMemoryStore()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Pipeline{
		calc:      d.Calculator,
		explainer: explain.NewBuilder(d.Calculator),
		ledger:    d.Ledger,
		assembler: d.Assembler,
		reports:   d.Reports,
		logger:    d.Logger,
	}, nil
}

// Evaluate scores one attempt, commits the trust update and stores the report.
func (p *Pipeline) Evaluate(ctx context.Context, in Input) (*report.Report, error) {
	ctx, span := traces.StartSpan(ctx, "scoring.Evaluate",
		traces.UserID(in.UserID),
		traces.AttemptID(in.AttemptID),
	)
	defer span.End()

	skills := skill.Analyze(in.Submission)
	riskScore := p.calc.Score(in.Signals)
	explanation := p.explainer.Build(in.Signals, riskScore)
	span.SetAttributes(traces.RiskScore(riskScore))

	var (
		rep       *report.Report
		saveError bool
	)
	snap, err := p.ledger.ApplyThen(ctx, in.UserID, in.AttemptID, riskScore, func(s *trust.Snapshot) error {
		rep = p.assembler.Build(report.Input{
			UserID:        in.UserID,
			AttemptID:     in.AttemptID,
			FinalScore:    in.FinalScore,
			RiskScore:     riskScore,
			OldTrustScore: s.PreviousScore,
			NewTrustScore: s.NewScore,
			Skills:        skills,
			Explanation:   explanation,
		})
		if err := p.reports.Save(ctx, rep); err != nil {
			saveError = true
			metrics.ScoringFailuresTotal.WithLabelValues("report").Inc()
			return fmt.Errorf("failed to save report: %w", err)
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, trust.ErrAttemptAlreadyScored):
			metrics.ScoringFailuresTotal.WithLabelValues("duplicate").Inc()
		case !saveError:
			metrics.ScoringFailuresTotal.WithLabelValues("trust").Inc()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "scoring failed")
		return nil, err
	}

	review := rep.Metadata.NeedsMandatoryReview
	span.SetAttributes(traces.NeedsReview(review))
	metrics.ObserveScored(riskScore, snap.Change, review, explanation.Capped())

	logger := logging.With(ctx, p.logger)
	logger.Info("attempt scored",
		"user_id", in.UserID,
		"attempt_id", in.AttemptID,
		"report_id", rep.Metadata.ReportID,
		"risk_score", riskScore,
		"trust_before", snap.PreviousScore,
		"trust_after", snap.NewScore,
		"needs_review", review,
	)
	if explanation.Capped() {
		logger.Debug("risk contributions exceed cap",
			"attempt_id", in.AttemptID,
			"uncapped_total", explanation.UncappedTotal,
		)
	}

	return rep, nil
}

// Reports returns the store reports are written to.
func (p *Pipeline) Reports() report.Store {
	return p.reports
}

// Ledger returns the trust ledger.
func (p *Pipeline) Ledger() *trust.Ledger {
	return p.ledger
}

// ReviewThreshold returns the risk score that triggers mandatory review.
func (p *Pipeline) ReviewThreshold() float64 {
	return p.assembler.Threshold()
}
