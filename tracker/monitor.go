package tracker

import (
	"context"
	"errors"
	"time"

	"cdr.dev/slog"
	"github.com/coder/quartz"
	"golang.org/x/xerrors"

	"activitytracker/entity"
	"activitytracker/osinfo"
)

const (
	Interval = time.Second

	lockedTitle = "Lock screen"
	lockedPath  = "System"
)

// Store is the subset of query.Store the monitor needs.
type Store interface {
	InsertActivity(ctx context.Context, a entity.ActivityRecord) error
	ActivitiesBetween(ctx context.Context, startDate, endDate string) ([]entity.ActivityRecord, error)
}

// IdleCounter is satisfied by idle.Accumulator.
type IdleCounter interface {
	Get(ctx context.Context, user, previousMax string) string
}

type Options struct {
	Store  Store
	OS     osinfo.Introspector
	Idle   IdleCounter
	Clock  quartz.Clock
	Logger slog.Logger
}

// Monitor samples the desktop every second and persists what the Machine
// emits. No single failure stops it.
type Monitor struct {
	store  Store
	os     osinfo.Introspector
	idle   IdleCounter
	clock  quartz.Clock
	logger slog.Logger

	machine  *Machine
	boot     time.Time
	user     string
	maxIdle  string
	idleDate string
}

func NewMonitor(opts Options) *Monitor {
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	return &Monitor{
		store:   opts.Store,
		os:      opts.OS,
		idle:    opts.Idle,
		clock:   opts.Clock,
		logger:  opts.Logger,
		user:    "unknown",
		maxIdle: entity.ZeroHMS,
	}
}

// Recover loads today's persisted totals. Failures are logged and
// tracking starts from zero.
func (m *Monitor) Recover(ctx context.Context) {
	now := m.clock.Now()
	today := now.Format(entity.DateLayout)

	boot, err := m.os.BootTime(ctx)
	if err != nil {
		m.logger.Warn(ctx, "read boot time", slog.Error(err))
		boot = now
	}
	m.boot = boot

	var recovered map[string]Usage
	records, err := m.store.ActivitiesBetween(ctx, today, today)
	if err != nil {
		m.logger.Warn(ctx, "load today's activities", slog.Error(err))
	} else {
		recovered, err = RecoverTotals(records)
		if err != nil {
			m.logger.Warn(ctx, "skipped malformed totals", slog.Error(err))
		}
	}
	m.machine = NewMachine(today, recovered)
	m.logger.Info(ctx, "recovered app totals",
		slog.F("date", today),
		slog.F("records", len(records)),
		slog.F("apps", len(recovered)),
	)
}

// Run ticks until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	if m.machine == nil {
		m.Recover(ctx)
	}
	w := m.clock.TickerFunc(ctx, Interval, func() error {
		m.tick(ctx)
		return nil
	}, "tracker")
	err := w.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (m *Monitor) tick(ctx context.Context) {
	sample := m.sample(ctx)
	for _, rec := range m.machine.Step(sample) {
		if err := m.store.InsertActivity(ctx, rec); err != nil {
			m.logger.Warn(ctx, "persist activity",
				slog.F("app", rec.AppName),
				slog.F("total_time", rec.TotalTime),
				slog.Error(err),
			)
		}
	}
}

func (m *Monitor) sample(ctx context.Context) entity.ActivitySample {
	now := m.clock.Now()
	date := now.Format(entity.DateLayout)
	if date != m.idleDate {
		m.idleDate = date
		m.maxIdle = entity.ZeroHMS
	}

	if user, err := m.os.LoggedInUser(ctx); err == nil {
		m.user = user
	} else {
		m.logger.Debug(ctx, "read logged in user", slog.Error(err))
	}

	idle := m.idle.Get(ctx, m.user, m.maxIdle)
	if idle > m.maxIdle {
		m.maxIdle = idle
	}

	s := entity.ActivitySample{
		Workstation: m.os.Workstation(),
		User:        m.user,
		Timestamp:   now,
		IdleTime:    idle,
		BootTime:    m.boot,
	}

	app, err := m.os.ForegroundApp(ctx)
	switch {
	case err == nil:
		s.AppName, s.AppTitle, s.AppPath, s.AppStartTime = app.Name, app.Title, app.Path, app.StartTime
	case xerrors.Is(err, osinfo.ErrInvalidWindow):
		s.IsLocked = true
	default:
		m.logger.Debug(ctx, "read foreground app", slog.Error(err))
		s.AppName, s.AppTitle, s.AppPath = entity.AppUnknown, entity.AppUnknown, entity.AppUnknown
		s.AppStartTime = now
	}
	if s.IsLocked || m.os.IsSystemLocked(ctx) {
		s.IsLocked = true
		s.AppName, s.AppTitle, s.AppPath = entity.AppSystemLocked, lockedTitle, lockedPath
		s.AppStartTime = now
	}
	return s
}
