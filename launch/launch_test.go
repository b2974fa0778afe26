package launch_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"cdr.dev/slog/sloggers/slogtest"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activitytracker/config"
	"activitytracker/entity"
	"activitytracker/input"
	"activitytracker/launch"
	"activitytracker/osinfo"
	"activitytracker/query"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type stubOS struct{}

func (stubOS) ForegroundApp(context.Context) (osinfo.App, error) {
	return osinfo.App{Name: "code.exe", Title: "main.go - editor", Path: `C:\code.exe`, StartTime: testNow}, nil
}
func (stubOS) IsSystemLocked(context.Context) bool { return false }
func (stubOS) IdleSeconds(context.Context) (float64, error) { return 0, nil }
func (stubOS) BootTime(context.Context) (time.Time, error) { return testNow.Add(-time.Hour), nil }
func (stubOS) LoggedInUser(context.Context) (string, error) { return "alice", nil }
func (stubOS) Workstation() string { return "WS1" }

// countingOS counts foreground samples so a test can see the monitor tick.
type countingOS struct {
	stubOS
	samples atomic.Int64
}

func (c *countingOS) ForegroundApp(ctx context.Context) (osinfo.App, error) {
	c.samples.Add(1)
	return c.stubOS.ForegroundApp(ctx)
}

type nopListener struct{ started, stopped bool }

func (l *nopListener) Start(input.Handlers) error { l.started = true; return nil }
func (l *nopListener) Stop() error { l.stopped = true; return nil }

func newEnv(t *testing.T) (launch.Env, *query.Database) {
	t.Helper()
	db, err := query.Open(context.Background(), query.DriverModernc, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := quartz.NewMock(t)
	clock.Set(testNow)
	return launch.Env{
		Config: &config.Config{ConnectionString: ":memory:", DatabaseName: "tracker"},
		Logger: slogtest.Make(t, nil),
		Clock:  clock,
		OS:     stubOS{},
		Store:  db,
	}, db
}

func cancelled() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func TestTracker_SweepsOnStartup(t *testing.T) {
	t.Parallel()
	env, db := newEnv(t)
	ctx := context.Background()

	for _, date := range []string{"2025-03-01", "2025-03-03", "2025-03-10"} {
		require.NoError(t, db.InsertActivity(ctx, entity.ActivityRecord{
			UserName: "alice", AppName: "code.exe", TotalTime: "00:00:01", Date: date, CreatedAt: testNow,
		}))
	}
	require.NoError(t, db.UpsertUserIdle(ctx, entity.UserIdleRecord{
		UserName: "alice", Date: "2025-03-02", IdleTime: "00:00:31", LastUpdated: testNow,
	}))

	require.NoError(t, launch.Tracker(cancelled(), env))

	left, err := db.ActivitiesBetween(ctx, "2025-01-01", "2025-12-31")
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, "2025-03-03", left[0].Date)

	_, err = db.UserIdle(ctx, "alice", "2025-03-02")
	require.ErrorIs(t, err, query.ErrNotFound)
}

func TestAFK_RecordsOpenIntervalOnShutdown(t *testing.T) {
	t.Parallel()
	env, db := newEnv(t)
	l := &nopListener{}

	require.NoError(t, launch.AFK(cancelled(), env, l))
	assert.True(t, l.started)
	assert.True(t, l.stopped)

	recs, err := db.AFKRecords(context.Background(), query.AFKFilter{Since: "2025-03-10"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "alice", recs[0].Username)
	assert.Equal(t, entity.AFKTypeWork, recs[0].Type)
	assert.Equal(t, "main.go - editor", recs[0].Window)
	assert.False(t, recs[0].IsHeartbeat)
}

func TestTracker_KeepsSamplingWhenStoreIsDown(t *testing.T) {
	t.Parallel()
	clock := quartz.NewMock(t)
	clock.Set(testNow)
	sys := &countingOS{}
	env := launch.Env{
		Config: &config.Config{
			ConnectionString:         "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=200&connectTimeoutMS=200",
			DatabaseName:             "tracker",
			StoreReadyTimeoutSeconds: 1,
		},
		Logger: slogtest.Make(t, &slogtest.Options{IgnoreErrors: true}),
		Clock:  clock,
		OS:     sys,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- launch.Tracker(ctx, env) }()

	require.Eventually(t, func() bool {
		clock.Advance(time.Second).MustWait(ctx)
		return sys.samples.Load() >= 2
	}, 15*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("tracker did not stop")
	}
}
