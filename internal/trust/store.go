package trust

import "context"

// UpdateFunc computes the snapshot to record from the user's locked current
// score. Returning an error aborts the update.
type UpdateFunc func(old float64) (*Snapshot, error)

// Store persists current trust scores and their update history.
type Store interface {
	// Current returns the user's latest score, or ErrUserNotFound.
	Current(ctx context.Context, userID string) (float64, error)

	// Update reads the user's score (initial if none is stored) under a lock
	// that excludes every other writer of that user, passes it to fn and
	// records the returned snapshot as the new current score. A non-empty
	// attemptID that already has a recorded update yields
	// ErrAttemptAlreadyScored without calling fn.
	Update(ctx context.Context, userID, attemptID string, initial float64, fn UpdateFunc) (*Snapshot, error)

	// History returns updates matching the query, newest first.
	History(ctx context.Context, q HistoryQuery) ([]*Snapshot, error)
}
