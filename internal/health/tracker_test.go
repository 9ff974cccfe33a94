package health_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchestrd/orchestrd/internal/health"
	"github.com/orchestrd/orchestrd/internal/testutil"
)

func newTracker(t *testing.T) (*health.Tracker, *testutil.TestDB) {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	t.Cleanup(tdb.Close)
	tr := health.New(tdb.Conn, health.Config{
		FailureThreshold:      3,
		BackoffMultiplier:     2.0,
		InitialBackoffMinutes: 5,
		MaxBackoffHours:       3,
	})
	return tr, tdb
}

func TestTracker_Get_DefaultsHealthy(t *testing.T) {
	tr, _ := newTracker(t)
	s, err := tr.Get(context.Background(), "idx-1")
	require.NoError(t, err)
	assert.Equal(t, 0, s.ConsecutiveFailures)
	assert.False(t, s.InBackoff(time.Now()))
}

func TestTracker_RecordFailure_BelowThresholdNoBackoff(t *testing.T) {
	tr, _ := newTracker(t)
	ctx := context.Background()
	s, err := tr.RecordFailure(ctx, "idx-1", "timeout")
	require.NoError(t, err)
	assert.Equal(t, 1, s.ConsecutiveFailures)
	assert.Nil(t, s.BackoffUntil)
}

func TestTracker_RecordFailure_EscalatesBackoff(t *testing.T) {
	tr, _ := newTracker(t)
	ctx := context.Background()

	var last health.Status
	for i := 0; i < 4; i++ {
		s, err := tr.RecordFailure(ctx, "idx-1", "timeout")
		require.NoError(t, err)
		last = s
	}
	require.NotNil(t, last.BackoffUntil)
	assert.True(t, last.InBackoff(time.Now()))
	// 4th failure is 1 escalation past threshold (3): 5min * 2^1 = 10min.
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), *last.BackoffUntil, 30*time.Second)
}

func TestTracker_RecordSuccess_ResetsStreak(t *testing.T) {
	tr, _ := newTracker(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := tr.RecordFailure(ctx, "idx-1", "timeout")
		require.NoError(t, err)
	}
	require.NoError(t, tr.RecordSuccess(ctx, "idx-1"))

	s, err := tr.Get(ctx, "idx-1")
	require.NoError(t, err)
	assert.Equal(t, 0, s.ConsecutiveFailures)
	assert.Nil(t, s.BackoffUntil)
}

func TestTracker_SweepExpired(t *testing.T) {
	tr, tdb := newTracker(t)
	ctx := context.Background()

	_, err := tdb.Conn.ExecContext(ctx, `
		INSERT INTO indexer_status (indexer_id, consecutive_failures, backoff_until, updated_at)
		VALUES (?, ?, ?, ?)`, "idx-2", 5, time.Now().Add(-time.Minute), time.Now())
	require.NoError(t, err)

	n, err := tr.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	s, err := tr.Get(ctx, "idx-2")
	require.NoError(t, err)
	assert.Nil(t, s.BackoffUntil)
}
