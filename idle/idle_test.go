package idle_test

import (
	"context"
	"testing"
	"time"

	"cdr.dev/slog"
	"cdr.dev/slog/sloggers/slogtest"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"activitytracker/entity"
	"activitytracker/idle"
	"activitytracker/query"
)

func TestNext(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name    string
		prev    int64
		current float64
		want    int64
		armed   bool
	}{
		{"BelowThreshold", 0, 29.9, 0, false},
		{"BelowThresholdKeepsMax", 42, 3, 42, false},
		{"AtThreshold", 0, 30, 1, true},
		{"LongIdleStillOneSecond", 10, 600, 11, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, armed := idle.Next(tc.prev, tc.current, idle.DefaultThreshold)
			require.Equal(t, tc.want, got)
			require.Equal(t, tc.armed, armed)
		})
	}
}

func newAccumulator(t *testing.T, store idle.Store, secs *float64) (*idle.Accumulator, *quartz.Mock) {
	t.Helper()
	clock := quartz.NewMock(t)
	clock.Set(time.Date(2026, 10, 18, 9, 0, 0, 0, time.Local))
	src := func(context.Context) (float64, error) { return *secs, nil }
	logger := slogtest.Make(t, &slogtest.Options{IgnoreErrors: true}).Leveled(slog.LevelDebug)
	return idle.New(store, src, clock, logger), clock
}

func openStore(t *testing.T) *query.Database {
	t.Helper()
	db, err := query.Open(context.Background(), query.DriverModernc, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestAccumulator_BelowThresholdZero(t *testing.T) {
	t.Parallel()
	secs := 5.0
	acc, _ := newAccumulator(t, openStore(t), &secs)

	require.Equal(t, entity.ZeroHMS, acc.Get(context.Background(), "alice", entity.ZeroHMS))
}

func TestAccumulator_CountsOneSecondPerCall(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openStore(t)
	secs := 45.0
	acc, clock := newAccumulator(t, db, &secs)

	prev := entity.ZeroHMS
	for i := 1; i <= 5; i++ {
		got := acc.Get(ctx, "alice", prev)
		require.Equal(t, entity.FormatHMS(int64(i)), got)
		prev = got
		clock.Advance(time.Second)
	}

	// Activity does not shrink the counter.
	secs = 1
	require.Equal(t, "00:00:05", acc.Get(ctx, "alice", prev))

	rec, err := db.UserIdle(ctx, "alice", "2026-10-18")
	require.NoError(t, err)
	require.Equal(t, "00:00:05", rec.IdleTime)
}

func TestAccumulator_PersistedValueOverridesCaller(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openStore(t)
	require.NoError(t, db.UpsertUserIdle(ctx, entity.UserIdleRecord{
		UserName: "alice", Date: "2026-10-18", IdleTime: "00:10:00",
	}))
	secs := 31.0
	acc, _ := newAccumulator(t, db, &secs)

	require.Equal(t, "00:10:01", acc.Get(ctx, "alice", entity.ZeroHMS))
}

type brokenStore struct{}

func (brokenStore) UserIdle(context.Context, string, string) (entity.UserIdleRecord, error) {
	return entity.UserIdleRecord{}, xerrors.New("store down")
}

func (brokenStore) UpsertUserIdle(context.Context, entity.UserIdleRecord) error {
	return xerrors.New("store down")
}

func TestAccumulator_StoreFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	secs := 2.0
	acc, _ := newAccumulator(t, brokenStore{}, &secs)
	require.Equal(t, "00:00:07", acc.Get(ctx, "alice", "00:00:07"))

	secs = 60
	require.Equal(t, "00:00:08", acc.Get(ctx, "alice", "00:00:07"))
}

func TestAccumulator_SourceFailure(t *testing.T) {
	t.Parallel()
	clock := quartz.NewMock(t)
	src := func(context.Context) (float64, error) { return 0, xerrors.New("no idle counter") }
	acc := idle.New(openStore(t), src, clock, slogtest.Make(t, nil))

	require.Equal(t, "00:01:00", acc.Get(context.Background(), "alice", "00:01:00"))
	require.Equal(t, entity.ZeroHMS, acc.Get(context.Background(), "alice", "garbage"))
}
