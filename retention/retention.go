// Package retention removes tracker records that have aged out.
package retention

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/xerrors"

	"activitytracker/entity"
)

// Days is how many days of records are kept besides today.
const Days = 7

// Store is the subset of query.Store the sweeper needs.
type Store interface {
	DeleteActivitiesBefore(ctx context.Context, date string) (int64, error)
	DeleteUserIdleBefore(ctx context.Context, date string) (int64, error)
}

// Result reports what a sweep removed.
type Result struct {
	Cutoff     string `json:"cutoff"`
	Activities int64  `json:"activities"`
	IdleTimes  int64  `json:"idle_times"`
}

func (r Result) Total() int64 {
	return r.Activities + r.IdleTimes
}

// Cutoff is the oldest date that is kept. Records dated strictly before
// it are removed.
func Cutoff(now time.Time) string {
	return now.AddDate(0, 0, -Days).Format(entity.DateLayout)
}

// Sweep deletes activity and idle records older than the cutoff. Both
// deletes are attempted; their errors are combined.
func Sweep(ctx context.Context, store Store, now time.Time) (Result, error) {
	res := Result{Cutoff: Cutoff(now)}
	var errs error

	n, err := store.DeleteActivitiesBefore(ctx, res.Cutoff)
	if err != nil {
		errs = multierror.Append(errs, xerrors.Errorf("sweep activities: %w", err))
	}
	res.Activities = n

	n, err = store.DeleteUserIdleBefore(ctx, res.Cutoff)
	if err != nil {
		errs = multierror.Append(errs, xerrors.Errorf("sweep idle times: %w", err))
	}
	res.IdleTimes = n

	return res, errs
}
