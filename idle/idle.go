// Package idle keeps the running maximum idle time of each user for the
// current day.
package idle

import (
	"context"

	"cdr.dev/slog"
	"github.com/coder/quartz"
	"golang.org/x/xerrors"

	"activitytracker/entity"
	"activitytracker/query"
)

// DefaultThreshold is the OS idle time, in seconds, below which a pause
// is not counted.
const DefaultThreshold = 30.0

// Store is the subset of query.Store the accumulator needs.
type Store interface {
	UserIdle(ctx context.Context, user, date string) (entity.UserIdleRecord, error)
	UpsertUserIdle(ctx context.Context, rec entity.UserIdleRecord) error
}

// Source reports seconds since the last user input.
type Source func(ctx context.Context) (float64, error)

// Next advances the counter. Below the threshold the previous value is
// kept; at or above it the counter grows by exactly one second, matching
// the 1 Hz caller, regardless of the measured idle delta.
func Next(prevSeconds int64, currentIdle, threshold float64) (int64, bool) {
	if currentIdle < threshold {
		return prevSeconds, false
	}
	return prevSeconds + 1, true
}

type Accumulator struct {
	store     Store
	source    Source
	clock     quartz.Clock
	logger    slog.Logger
	threshold float64
}

func New(store Store, source Source, clock quartz.Clock, logger slog.Logger) *Accumulator {
	return &Accumulator{
		store:     store,
		source:    source,
		clock:     clock,
		logger:    logger,
		threshold: DefaultThreshold,
	}
}

// Get returns the idle counter for user as HH:MM:SS. A value persisted
// for today overrides previousMax. Errors are logged and previousMax (or
// zero) is returned.
func (a *Accumulator) Get(ctx context.Context, user, previousMax string) string {
	now := a.clock.Now()
	date := now.Format(entity.DateLayout)
	logger := a.logger.With(slog.F("user", user), slog.F("date", date))

	rec, err := a.store.UserIdle(ctx, user, date)
	switch {
	case err == nil:
		previousMax = rec.IdleTime
	case xerrors.Is(err, query.ErrNotFound):
	default:
		logger.Warn(ctx, "load idle time", slog.Error(err))
	}

	prev, err := entity.ParseHMS(previousMax)
	if err != nil {
		logger.Warn(ctx, "parse previous idle time", slog.F("value", previousMax), slog.Error(err))
		return entity.ZeroHMS
	}

	current, err := a.source(ctx)
	if err != nil {
		logger.Debug(ctx, "read idle seconds", slog.Error(err))
		return entity.FormatHMS(prev)
	}

	next, armed := Next(prev, current, a.threshold)
	if !armed {
		return entity.FormatHMS(prev)
	}
	formatted := entity.FormatHMS(next)
	err = a.store.UpsertUserIdle(ctx, entity.UserIdleRecord{
		UserName:    user,
		Date:        date,
		IdleTime:    formatted,
		LastUpdated: now,
	})
	if err != nil {
		logger.Warn(ctx, "save idle time", slog.Error(err))
	}
	return formatted
}
