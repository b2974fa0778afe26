package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"cdr.dev/slog/sloggers/slogtest"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"activitytracker/entity"
	"activitytracker/osinfo"
)

type fakeOS struct {
	mu     sync.Mutex
	app    osinfo.App
	appErr error
	locked bool
}

func (f *fakeOS) set(app osinfo.App, err error, locked bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.app, f.appErr, f.locked = app, err, locked
}

func (f *fakeOS) ForegroundApp(context.Context) (osinfo.App, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.app, f.appErr
}

func (f *fakeOS) IsSystemLocked(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locked
}

func (*fakeOS) IdleSeconds(context.Context) (float64, error) { return 0, nil }

func (*fakeOS) BootTime(context.Context) (time.Time, error) {
	return time.Date(2026, 10, 18, 7, 0, 0, 0, time.Local), nil
}

func (*fakeOS) LoggedInUser(context.Context) (string, error) { return "alice", nil }
func (*fakeOS) Workstation() string                          { return "WS1" }

type fakeIdle struct{}

func (fakeIdle) Get(_ context.Context, _, previousMax string) string { return previousMax }

type memStore struct {
	mu        sync.Mutex
	records   []entity.ActivityRecord
	insertErr error
}

func (s *memStore) InsertActivity(_ context.Context, a entity.ActivityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.records = append(s.records, a)
	return nil
}

func (s *memStore) ActivitiesBetween(_ context.Context, start, end string) ([]entity.ActivityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.ActivityRecord
	for _, r := range s.records {
		if r.Date >= start && r.Date <= end {
			out = append(out, r)
		}
	}
	return out, nil
}

func newTestMonitor(t *testing.T, store *memStore, os *fakeOS) (*Monitor, *quartz.Mock) {
	t.Helper()
	clock := quartz.NewMock(t)
	clock.Set(time.Date(2026, 10, 18, 9, 0, 0, 0, time.Local))
	m := NewMonitor(Options{
		Store:  store,
		OS:     os,
		Idle:   fakeIdle{},
		Clock:  clock,
		Logger: slogtest.Make(t, nil),
	})
	m.Recover(context.Background())
	return m, clock
}

func TestMonitor_TicksPersistRecords(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := &memStore{}
	os := &fakeOS{app: osinfo.App{Name: "code.exe", Title: "main.go", Path: `C:\code.exe`}}
	m, clock := newTestMonitor(t, store, os)

	for i := 0; i < 3; i++ {
		m.tick(ctx)
		clock.Advance(Interval)
	}
	os.set(osinfo.App{}, osinfo.ErrInvalidWindow, false)
	m.tick(ctx)
	clock.Advance(Interval)
	m.tick(ctx)

	require.Len(t, store.records, 4)
	require.Equal(t, "code.exe", store.records[2].AppName)
	require.Equal(t, "00:00:03", store.records[2].TotalTime)
	require.Equal(t, "WS1", store.records[2].WorkstationName)
	require.Equal(t, "alice", store.records[2].UserName)
	require.Equal(t, entity.AppSystemLocked, store.records[3].AppName)
	require.Equal(t, "00:00:01", store.records[3].TotalTime)
}

func TestMonitor_UnknownAndLocked(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	os := &fakeOS{appErr: xerrors.New("process exited")}
	m, _ := newTestMonitor(t, &memStore{}, os)

	s := m.sample(ctx)
	require.Equal(t, entity.AppUnknown, s.AppName)
	require.False(t, s.IsLocked)

	os.set(osinfo.App{Name: "code.exe", Title: ""}, nil, true)
	s = m.sample(ctx)
	require.Equal(t, entity.AppSystemLocked, s.AppName)
	require.True(t, s.IsLocked)
}

func TestMonitor_RecoversAfterRestart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := &memStore{}
	for _, total := range []string{"00:01:00", "00:01:30", "00:01:45"} {
		store.records = append(store.records, entity.ActivityRecord{
			Date: "2026-10-18", AppName: "X", AppTitle: "x", AppPath: "x.exe", TotalTime: total,
		})
	}
	os := &fakeOS{app: osinfo.App{Name: "X", Title: "x", Path: "x.exe"}}
	m, clock := newTestMonitor(t, store, os)
	require.Equal(t, 105*time.Second, m.machine.Total("X"))

	m.tick(ctx)
	clock.Advance(Interval)
	m.tick(ctx)
	require.Equal(t, "00:01:46", store.records[len(store.records)-1].TotalTime)
}

func TestMonitor_PersistFailureKeepsCounting(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := &memStore{insertErr: xerrors.New("store down")}
	os := &fakeOS{app: osinfo.App{Name: "code.exe"}}
	m, clock := newTestMonitor(t, store, os)

	for i := 0; i < 3; i++ {
		m.tick(ctx)
		clock.Advance(Interval)
	}
	require.Empty(t, store.records)
	require.Equal(t, 2*time.Second, m.machine.Total("code.exe"))
}

func TestMonitor_RunStopsOnCancel(t *testing.T) {
	t.Parallel()
	os := &fakeOS{app: osinfo.App{Name: "code.exe"}}
	m, _ := newTestMonitor(t, &memStore{}, os)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, m.Run(ctx))
}
