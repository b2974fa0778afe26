package report

import (
	"time"

	"activitytracker/entity"
)

const (
	DefaultAFKDays     = 7
	DefaultSummaryDays = 3
)

type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Today is the range covering only now's date.
func Today(now time.Time) DateRange {
	d := now.Format(entity.DateLayout)
	return DateRange{From: d, To: d}
}

// DaysBack is the range from days before now through today.
func DaysBack(now time.Time, days int) DateRange {
	return DateRange{
		From: now.AddDate(0, 0, -days).Format(entity.DateLayout),
		To:   now.Format(entity.DateLayout),
	}
}
