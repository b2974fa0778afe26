package retention_test

import (
	"context"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"activitytracker/entity"
	"activitytracker/query"
	"activitytracker/retention"
)

func TestSweep_KeepsCutoffDay(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, err := query.Open(ctx, query.DriverModernc, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	now := time.Date(2026, 10, 18, 8, 30, 0, 0, time.Local)
	for _, date := range []string{"2026-10-10", "2026-10-11", "2026-10-12", "2026-10-18"} {
		require.NoError(t, db.InsertActivity(ctx, entity.ActivityRecord{UserName: "alice", Date: date, CreatedAt: now}))
		require.NoError(t, db.UpsertUserIdle(ctx, entity.UserIdleRecord{UserName: "alice", Date: date, IdleTime: entity.ZeroHMS}))
	}

	res, err := retention.Sweep(ctx, db, now)
	require.NoError(t, err)
	require.Equal(t, "2026-10-11", res.Cutoff)
	require.EqualValues(t, 1, res.Activities)
	require.EqualValues(t, 1, res.IdleTimes)
	require.EqualValues(t, 2, res.Total())

	left, err := db.ActivitiesBetween(ctx, "2000-01-01", "2100-01-01")
	require.NoError(t, err)
	require.Len(t, left, 3)
	require.Equal(t, "2026-10-11", left[0].Date)

	_, err = db.UserIdle(ctx, "alice", "2026-10-11")
	require.NoError(t, err)
}

type failingStore struct{}

func (failingStore) DeleteActivitiesBefore(context.Context, string) (int64, error) {
	return 0, xerrors.New("activities unavailable")
}

func (failingStore) DeleteUserIdleBefore(context.Context, string) (int64, error) {
	return 0, xerrors.New("idle unavailable")
}

func TestSweep_CombinesErrors(t *testing.T) {
	t.Parallel()

	_, err := retention.Sweep(context.Background(), failingStore{}, time.Now())
	require.Error(t, err)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 2)
}
