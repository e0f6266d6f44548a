package report

import (
	"context"
	"testing"
	"time"

	"github.com/mbd888/trustscore/internal/explain"
	"github.com/mbd888/trustscore/internal/risk"
	"github.com/mbd888/trustscore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport(userID string, at time.Time) *Report {
	e := explain.Build(risk.Signals{TabSwitchCount: 1, CodeSimilarityPercent: 12.5}, 16.25)
	return NewAssembler(DefaultReviewThreshold).
		WithClock(func() time.Time { return at }).
		Build(Input{UserID: userID, AttemptID: "att_x", RiskScore: 16.25, OldTrustScore: 100, NewTrustScore: 98.38, Explanation: e})
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	first := sampleReport("user-1", base)
	second := sampleReport("user-1", base.Add(time.Minute))
	other := sampleReport("user-2", base)
	for _, r := range []*Report{first, second, other} {
		require.NoError(t, store.Save(ctx, r))
	}

	got, err := store.Get(ctx, first.Metadata.ReportID)
	require.NoError(t, err)
	assert.Equal(t, first.Metadata.ReportID, got.Metadata.ReportID)
	assert.True(t, first.Metadata.GeneratedAt.Equal(got.Metadata.GeneratedAt))
	assert.Equal(t, first.RiskAnalysis.ExplanationSummary, got.RiskAnalysis.ExplanationSummary)
	require.Contains(t, got.RiskAnalysis.Breakdown, risk.FactorCodeSimilarity)
	assert.Equal(t, 12.5, got.RiskAnalysis.Breakdown[risk.FactorCodeSimilarity].Raw)
	assert.Equal(t, first.TrustImpact, got.TrustImpact)

	_, err = store.Get(ctx, "rpt_missing")
	assert.ErrorIs(t, err, ErrReportNotFound)

	list, err := store.ListByUser(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.Metadata.ReportID, list[0].Metadata.ReportID)

	list, err = store.ListByUser(ctx, "user-1", 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = store.ListByUser(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	r := sampleReport("user-1", time.Now())
	require.NoError(t, store.Save(ctx, r))

	r.Summary.RiskRating = 99
	got, err := store.Get(ctx, r.Metadata.ReportID)
	require.NoError(t, err)
	assert.Equal(t, 16.25, got.Summary.RiskRating)

	assert.Error(t, store.Save(ctx, r), "duplicate IDs must be rejected")
}

func TestPostgresStore(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	exerciseStore(t, NewPostgresStore(db))
}
