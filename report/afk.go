package report

import (
	"sort"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/xerrors"

	"activitytracker/entity"
)

// AFKInterval is one merged Work or Away interval. The JSON keys are the
// ones dashboards already read.
type AFKInterval struct {
	UserName  string `json:"user_name"`
	Status    string `json:"Status"`
	Date      string `json:"date"`
	Duration  string `json:"duration"`
	Window    string `json:"window"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type AFKSummaryRow struct {
	Username      string `json:"username"`
	Date          string `json:"date"`
	Type          string `json:"type"`
	TotalRecords  int    `json:"total_records"`
	TotalDuration string `json:"total_duration_str"`
}

// MergeAFK orders records by (username, date, start_time) and fuses runs
// of records with the same user, type, date and window where each end time
// equals the next start time. The fused duration is recomputed from the
// outer start and end times; a run whose times do not parse is not fused.
func MergeAFK(records []entity.AFKSessionRecord) ([]AFKInterval, error) {
	sorted := make([]entity.AFKSessionRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Username != b.Username {
			return a.Username < b.Username
		}
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.StartTime < b.StartTime
	})

	out := []AFKInterval{}
	if len(sorted) == 0 {
		return out, nil
	}

	var errs error
	cur := toInterval(sorted[0])
	for _, rec := range sorted[1:] {
		next := toInterval(rec)
		if cur.UserName == next.UserName &&
			cur.Status == next.Status &&
			cur.Date == next.Date &&
			cur.Window == next.Window &&
			cur.EndTime == next.StartTime {
			secs, err := SessionDuration(cur.StartTime, next.EndTime)
			if err == nil {
				cur.EndTime = next.EndTime
				cur.Duration = entity.FormatHMS(secs)
				continue
			}
			// Left unmerged so each interval's end and duration agree.
			errs = multierror.Append(errs, xerrors.Errorf("merged afk interval: %w", err))
		}
		out = append(out, cur)
		cur = next
	}
	out = append(out, cur)
	return out, errs
}

func toInterval(r entity.AFKSessionRecord) AFKInterval {
	window := r.Window
	if window == "" {
		window = entity.AppUnknown
	}
	return AFKInterval{
		UserName:  r.Username,
		Status:    string(r.Type),
		Date:      r.Date,
		Duration:  r.Duration,
		Window:    window,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
	}
}

// AFKSummary counts transition records per (username, date, type) and
// sums the durations of the afk ones. Heartbeats are ignored.
func AFKSummary(records []entity.AFKSessionRecord) ([]AFKSummaryRow, error) {
	type key struct {
		user, date string
		typ        entity.AFKType
	}
	var (
		errs  error
		rows  []AFKSummaryRow
		secs  []int64
		index = map[key]int{}
	)
	for _, r := range records {
		if r.IsHeartbeat {
			continue
		}
		k := key{r.Username, r.Date, r.Type}
		i, ok := index[k]
		if !ok {
			i = len(rows)
			index[k] = i
			rows = append(rows, AFKSummaryRow{Username: r.Username, Date: r.Date, Type: string(r.Type)})
			secs = append(secs, 0)
		}
		rows[i].TotalRecords++
		if r.Type != entity.AFKTypeAFK {
			continue
		}
		d, err := entity.ParseHMS(r.Duration)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		secs[i] += d
	}
	for i := range rows {
		rows[i].TotalDuration = entity.FormatHMS(secs[i])
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		if a.Username != b.Username {
			return a.Username < b.Username
		}
		return a.Type < b.Type
	})
	if rows == nil {
		rows = []AFKSummaryRow{}
	}
	return rows, errs
}
