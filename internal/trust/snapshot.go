package trust

import "time"

// Snapshot is one recorded trust update.
type Snapshot struct {
	ID            int64     `json:"id"`
	UserID        string    `json:"user_id"`
	AttemptID     string    `json:"attempt_id,omitempty"`
	PreviousScore float64   `json:"previous_score"`
	NewScore      float64   `json:"new_score"`
	RiskScore     float64   `json:"risk_score"`
	Change        float64   `json:"change"`
	Trend         Trend     `json:"trend"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewSnapshot builds a snapshot for an update from old to new.
func NewSnapshot(userID, attemptID string, old, new, riskScore float64) *Snapshot {
	change, trend := Change(old, new)
	return &Snapshot{
		UserID:        userID,
		AttemptID:     attemptID,
		PreviousScore: old,
		NewScore:      new,
		RiskScore:     riskScore,
		Change:        change,
		Trend:         trend,
		CreatedAt:     time.Now().UTC(),
	}
}

// HistoryQuery holds query parameters for historical updates.
type HistoryQuery struct {
	UserID string
	From   time.Time
	To     time.Time
	Limit  int
}
