package trust

import (
	"context"
	"sync"
	"testing"

	"github.com/mbd888/trustscore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStoreRoundTrip(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPostgresStore(db)

	_, err := store.Current(ctx, "user-1")
	assert.ErrorIs(t, err, ErrUserNotFound)

	l := NewLedger(store, DefaultScore)
	_, err = l.Apply(ctx, "user-1", "att_1", 100)
	require.NoError(t, err)
	snap, err := l.Apply(ctx, "user-1", "att_2", 40)
	require.NoError(t, err)
	assert.NotZero(t, snap.ID)

	current, err := store.Current(ctx, "user-1")
	require.NoError(t, err)
	assert.InDelta(t, 86.0, current, 1e-9)

	history, err := store.History(ctx, HistoryQuery{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "att_2", history[0].AttemptID)
	assert.Equal(t, TrendDecreased, history[0].Trend)
}

func TestPostgresStoreRejectsReplayedAttempt(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	ctx := context.Background()
	l := NewLedger(NewPostgresStore(db), DefaultScore)

	_, err := l.Apply(ctx, "user-1", "ext-42", 100)
	require.NoError(t, err)
	_, err = l.Apply(ctx, "user-1", "ext-42", 100)
	assert.ErrorIs(t, err, ErrAttemptAlreadyScored)
	_, err = l.Apply(ctx, "user-2", "ext-42", 100)
	assert.ErrorIs(t, err, ErrAttemptAlreadyScored)

	score, err := l.Current(ctx, "user-1")
	require.NoError(t, err)
	assert.InDelta(t, 90.0, score, 1e-9)
}

// Two ledgers on one database stand in for two server processes: their
// in-process locks are independent, so only the row lock serialises them.
func TestPostgresStoreSerialisesAcrossLedgers(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	ctx := context.Background()
	ledgers := []*Ledger{
		NewLedger(NewPostgresStore(db), DefaultScore),
		NewLedger(NewPostgresStore(db), DefaultScore),
	}

	const perLedger = 10
	var wg sync.WaitGroup
	for _, l := range ledgers {
		for i := 0; i < perLedger; i++ {
			wg.Add(1)
			go func(l *Ledger) {
				defer wg.Done()
				_, err := l.Apply(ctx, "user-1", "", 10)
				assert.NoError(t, err)
			}(l)
		}
	}
	wg.Wait()

	score, err := ledgers[0].Current(ctx, "user-1")
	require.NoError(t, err)
	assert.InDelta(t, 100.0-2*perLedger, score, 1e-9)

	history, err := ledgers[0].History(ctx, HistoryQuery{UserID: "user-1", Limit: 100})
	require.NoError(t, err)
	assert.Len(t, history, 2*perLedger)
}
