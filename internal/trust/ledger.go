package trust

import (
	"context"
	"errors"
	"fmt"

	"github.com/mbd888/trustscore/internal/syncutil"
)

// Ledger applies trust updates against a Store. Updates for the same user are
// serialised in process by a sharded lock and across processes by the store's
// row lock, so concurrent attempts cannot lose a deduction.
type Ledger struct {
	store   Store
	initial float64
	locks   syncutil.ShardedMutex
}

// NewLedger creates a ledger. Users with no stored score start at initial.
func NewLedger(store Store, initial float64) *Ledger {
	return &Ledger{store: store, initial: Clamp(initial)}
}

// Current returns the user's trust score, falling back to the initial value.
func (l *Ledger) Current(ctx context.Context, userID string) (float64, error) {
	score, err := l.store.Current(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return l.initial, nil
	}
	if err != nil {
		return 0, err
	}
	return score, nil
}

// Apply deducts riskScore from the user's trust and records the update.
func (l *Ledger) Apply(ctx context.Context, userID, attemptID string, riskScore float64) (*Snapshot, error) {
	return l.ApplyThen(ctx, userID, attemptID, riskScore, nil)
}

// ApplyThen is Apply with a hook that runs under the user's lock after the new
// score is computed and before it is stored. If the hook fails nothing is
// stored and its error is returned. Replaying an attemptID returns
// ErrAttemptAlreadyScored and never runs the hook.
func (l *Ledger) ApplyThen(ctx context.Context, userID, attemptID string, riskScore float64, before func(*Snapshot) error) (*Snapshot, error) {
	unlock := l.locks.Lock(userID)
	defer unlock()

	var hookErr error
	snap, err := l.store.Update(ctx, userID, attemptID, l.initial, func(old float64) (*Snapshot, error) {
		snap := NewSnapshot(userID, attemptID, old, Update(old, riskScore), riskScore)
		if before != nil {
			if err := before(snap); err != nil {
				hookErr = err
				return nil, err
			}
		}
		return snap, nil
	})
	switch {
	case hookErr != nil:
		return nil, hookErr
	case errors.Is(err, ErrAttemptAlreadyScored):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("failed to update trust for %s: %w", userID, err)
	}
	return snap, nil
}

// History returns the user's recorded updates, newest first.
func (l *Ledger) History(ctx context.Context, q HistoryQuery) ([]*Snapshot, error) {
	return l.store.History(ctx, q)
}
