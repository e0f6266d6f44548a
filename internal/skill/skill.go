// Package skill converts submission metrics into skill scores.
//
// Logic is the test pass rate. Problem solving and efficiency start from the
// logic score and subtract linear penalties for elapsed time and code length:
//
//	time:   up to 20 points, saturating at 1 hour
//	length: up to 15 points, saturating at 2000 characters
package skill

import "math"

const (
	// TimeBudgetSeconds is the elapsed time at which the time penalty saturates.
	TimeBudgetSeconds = 3600.0
	MaxTimePenalty    = 20.0

	// LengthBudgetChars is the code length at which the length penalty saturates.
	LengthBudgetChars = 2000.0
	MaxLengthPenalty  = 15.0
)

// Submission holds the measurable facts of one code submission.
type Submission struct {
	TimeTakenSeconds int `json:"time_taken_seconds"`
	CodeLengthChars  int `json:"code_length_chars"`
	TestsPassed      int `json:"tests_passed"`
	TestsTotal       int `json:"tests_total"`
}

// Scores are the derived skill ratings, each in [0, 100].
type Scores struct {
	ProblemSolving float64 `json:"problem_solving_score"`
	Logic          float64 `json:"logic_score"`
	Efficiency     float64 `json:"efficiency_score"`
}

// Analyze scores a submission. A problem with no tests yields all zeros, as
// does a submission that passed nothing.
func Analyze(s Submission) Scores {
	if s.TestsTotal == 0 {
		return Scores{}
	}

	logic := round2(100 * float64(s.TestsPassed) / float64(s.TestsTotal))
	if s.TestsPassed == 0 {
		return Scores{Logic: logic}
	}

	timePenalty := math.Min(float64(s.TimeTakenSeconds)/TimeBudgetSeconds*MaxTimePenalty, MaxTimePenalty)
	lengthPenalty := math.Min(float64(s.CodeLengthChars)/LengthBudgetChars*MaxLengthPenalty, MaxLengthPenalty)

	return Scores{
		ProblemSolving: round2(math.Max(logic-timePenalty, 0)),
		Logic:          logic,
		Efficiency:     round2(math.Max(logic-lengthPenalty, 0)),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
