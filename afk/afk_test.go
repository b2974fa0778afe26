package afk_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"cdr.dev/slog/sloggers/slogtest"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"activitytracker/afk"
	"activitytracker/entity"
	"activitytracker/input"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var start = time.Date(2026, 10, 18, 10, 0, 0, 0, time.Local)

func newState(titles ...string) *afk.State {
	i := 0
	window := func() string {
		if i >= len(titles) {
			return "last"
		}
		i++
		return titles[i-1]
	}
	return afk.NewState("alice", 10*time.Second, 5*time.Second, window, start)
}

func TestState_WorkingHeartbeat(t *testing.T) {
	t.Parallel()
	s := newState("editor")

	recs := s.CheckAndTransition(start.Add(5 * time.Second))
	require.Len(t, recs, 1)
	hb := recs[0]
	require.True(t, hb.IsHeartbeat)
	require.Equal(t, entity.AFKTypeWork, hb.Type)
	require.Equal(t, entity.AFKStatusWork, hb.Status)
	require.Equal(t, "10:00:00", hb.StartTime)
	require.Equal(t, "10:00:05", hb.EndTime)
	require.Equal(t, "00:00:05", hb.Duration)
	require.Equal(t, "editor", hb.Window)
	require.Equal(t, "2026-10-18", hb.Date)
	require.False(t, s.Away())
}

func TestState_WorkToAwayToWork(t *testing.T) {
	t.Parallel()
	s := newState("editor", "browser")

	require.Empty(t, s.RecordActivity(start.Add(2*time.Second)))
	require.Len(t, s.CheckAndTransition(start.Add(10*time.Second)), 1)

	recs := s.CheckAndTransition(start.Add(12 * time.Second))
	require.Len(t, recs, 2)
	require.True(t, recs[0].IsHeartbeat)
	closed := recs[1]
	require.False(t, closed.IsHeartbeat)
	require.Equal(t, entity.AFKTypeWork, closed.Type)
	require.Equal(t, "10:00:00", closed.StartTime)
	require.Equal(t, "10:00:12", closed.EndTime)
	require.Equal(t, "00:00:12", closed.Duration)
	require.True(t, s.Away())

	recs = s.CheckAndTransition(start.Add(17 * time.Second))
	require.Len(t, recs, 1)
	require.Equal(t, entity.AFKTypeAFK, recs[0].Type)
	require.Equal(t, entity.AFKStatusAFK, recs[0].Status)
	require.True(t, recs[0].IsHeartbeat)

	recs = s.RecordActivity(start.Add(72 * time.Second))
	require.Len(t, recs, 1)
	back := recs[0]
	require.Equal(t, entity.AFKTypeAFK, back.Type)
	require.False(t, back.IsHeartbeat)
	require.Equal(t, "10:00:12", back.StartTime)
	require.Equal(t, "10:01:12", back.EndTime)
	require.Equal(t, "00:01:00", back.Duration)
	require.False(t, s.Away())

	// The window is refreshed on return.
	recs = s.CheckAndTransition(start.Add(75 * time.Second))
	require.Equal(t, "browser", recs[0].Window)
	require.Equal(t, entity.AFKTypeWork, recs[0].Type)
}

func TestState_Close(t *testing.T) {
	t.Parallel()

	s := newState("editor")
	recs := s.Close(start.Add(30 * time.Second))
	require.Len(t, recs, 1)
	require.Equal(t, entity.AFKTypeWork, recs[0].Type)
	require.Equal(t, "00:00:30", recs[0].Duration)

	s = newState("editor")
	s.CheckAndTransition(start.Add(20 * time.Second))
	recs = s.Close(start.Add(50 * time.Second))
	require.Equal(t, entity.AFKTypeAFK, recs[0].Type)
	require.Equal(t, "10:00:20", recs[0].StartTime)
	require.Equal(t, "00:00:30", recs[0].Duration)
}

func TestState_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	s := newState()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				now := start.Add(time.Duration(i*200+j) * time.Second)
				if j%2 == 0 {
					s.RecordActivity(now)
				} else {
					s.CheckAndTransition(now)
				}
			}
		}(i)
	}
	wg.Wait()
	require.Len(t, s.Close(start.Add(time.Hour)), 1)
}

type fakeListener struct {
	mu       sync.Mutex
	handlers input.Handlers
	started  bool
}

func (f *fakeListener) Start(h input.Handlers) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers, f.started = h, true
	return nil
}

func (f *fakeListener) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = false
	return nil
}

func (f *fakeListener) press() {
	f.mu.Lock()
	h := f.handlers
	f.mu.Unlock()
	h.OnKeyPress()
}

type memStore struct {
	mu   sync.Mutex
	recs []entity.AFKSessionRecord
}

func (m *memStore) InsertAFK(_ context.Context, rec entity.AFKSessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memStore) transitions() []entity.AFKSessionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.AFKSessionRecord
	for _, r := range m.recs {
		if !r.IsHeartbeat {
			out = append(out, r)
		}
	}
	return out
}

func TestWatcher_Lifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := quartz.NewMock(t)
	clock.Set(start)
	listener := &fakeListener{}
	store := &memStore{}

	w := afk.NewWatcher(afk.Options{
		Username:      "alice",
		IdleThreshold: 10 * time.Second,
		PollInterval:  5 * time.Second,
		Window:        func() string { return "editor" },
		Listener:      listener,
		Store:         store,
		Clock:         clock,
		Logger:        slogtest.Make(t, nil),
	})
	require.NoError(t, w.Start(ctx))
	require.Error(t, w.Start(ctx))

	clock.Advance(5 * time.Second).MustWait(ctx)
	clock.Advance(5 * time.Second).MustWait(ctx)
	require.True(t, w.State().Away())
	require.Len(t, store.transitions(), 1)

	clock.Advance(5 * time.Second).MustWait(ctx)
	listener.press()
	require.False(t, w.State().Away())
	require.Len(t, store.transitions(), 2)

	clock.Advance(5 * time.Second).MustWait(ctx)
	require.NoError(t, w.Stop(ctx))
	require.NoError(t, w.Stop(ctx))

	trans := store.transitions()
	require.Len(t, trans, 3)
	require.Equal(t, entity.AFKTypeWork, trans[0].Type)
	require.Equal(t, entity.AFKTypeAFK, trans[1].Type)
	require.Equal(t, "00:00:05", trans[1].Duration)
	require.Equal(t, entity.AFKTypeWork, trans[2].Type)
	require.Equal(t, "10:00:15", trans[2].StartTime)
	require.Equal(t, "10:00:20", trans[2].EndTime)
	require.False(t, listener.started)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.recs, 4+3)
}
