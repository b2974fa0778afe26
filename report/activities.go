// Package report turns the raw per-second record streams into the
// sessions and totals served by the API. Every function is pure and safe
// for concurrent use.
package report

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/xerrors"

	"activitytracker/entity"
)

const secondsPerDay = 24 * 60 * 60

// UsageTime is the per (date, user, app) total of merged sessions.
type UsageTime struct {
	Date         string `json:"date"`
	UserName     string `json:"user_name"`
	AppName      string `json:"app_name"`
	TotalTime    string `json:"total_time"`
	SessionCount int    `json:"session_count"`
}

// UsageStat is the per (user, app, date) total over raw records.
type UsageStat struct {
	UserName   string `json:"user_name"`
	AppName    string `json:"app_name"`
	Date       string `json:"date"`
	UsageCount int    `json:"usage_count"`
	MaxTime    string `json:"max_time"`
	TotalTime  string `json:"total_time"`

	seconds int64
}

type sessionKey struct {
	date, user, workstation, app, logon string
}

func sessionStart(a entity.ActivityRecord) string {
	if a.LogonTime != "" {
		return a.LogonTime
	}
	return a.AppStartTime
}

// newerFirst orders records descending by date, user, app, app start time
// and creation time.
func newerFirst(a, b entity.ActivityRecord) bool {
	if a.Date != b.Date {
		return a.Date > b.Date
	}
	if a.UserName != b.UserName {
		return a.UserName > b.UserName
	}
	if a.AppName != b.AppName {
		return a.AppName > b.AppName
	}
	if a.AppStartTime != b.AppStartTime {
		return a.AppStartTime > b.AppStartTime
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// MergeActivities collapses the cumulative record stream into one session
// per (date, user, workstation, app, logon) key, keeping the record with
// the greatest logoff time, and recomputes each session's total_time from
// its logon and logoff stamps. Sessions whose stamps do not parse keep the
// stored total_time; the returned error lists them. Merging the output
// again yields the same output.
func MergeActivities(records []entity.ActivityRecord) ([]entity.ActivityRecord, error) {
	sorted := make([]entity.ActivityRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return newerFirst(sorted[i], sorted[j]) })

	merged := make(map[sessionKey]entity.ActivityRecord, len(sorted))
	for _, a := range sorted {
		key := sessionKey{a.Date, a.UserName, a.WorkstationName, a.AppName, sessionStart(a)}
		prev, ok := merged[key]
		if !ok || (a.LogoffTime != "" && a.LogoffTime > prev.LogoffTime) {
			merged[key] = a
		}
	}

	var errs error
	sessions := make([]entity.ActivityRecord, 0, len(merged))
	for _, a := range merged {
		start := sessionStart(a)
		if start != "" && a.LogoffTime != "" {
			secs, err := SessionDuration(start, a.LogoffTime)
			if err != nil {
				errs = multierror.Append(errs, err)
			} else {
				a.TotalTime = entity.FormatHMS(secs)
			}
		}
		if a.TotalTime == "" {
			a.TotalTime = entity.ZeroHMS
		}
		sessions = append(sessions, a)
	}

	sort.Slice(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if newerFirst(a, b) || newerFirst(b, a) {
			return newerFirst(a, b)
		}
		if a.WorkstationName != b.WorkstationName {
			return a.WorkstationName > b.WorkstationName
		}
		return sessionStart(a) > sessionStart(b)
	})
	return sessions, errs
}

// SessionDuration returns logoff-logon in seconds, reduced modulo 24h.
// Both stamps must be full "YYYY-MM-DD HH:MM:SS" datetimes or both bare
// "HH:MM:SS" times; a bare end time before its start is taken to be on
// the next day.
func SessionDuration(logon, logoff string) (int64, error) {
	layout := entity.ClockLayout
	if strings.Contains(logon, " ") && strings.Contains(logoff, " ") {
		layout = entity.DateTimeLayout
	}
	start, err := time.Parse(layout, logon)
	if err != nil {
		return 0, xerrors.Errorf("parse logon %q: %w", logon, err)
	}
	end, err := time.Parse(layout, logoff)
	if err != nil {
		return 0, xerrors.Errorf("parse logoff %q: %w", logoff, err)
	}
	if layout == entity.ClockLayout && end.Before(start) {
		end = end.Add(24 * time.Hour)
	}
	secs := int64(end.Sub(start) / time.Second)
	return ((secs % secondsPerDay) + secondsPerDay) % secondsPerDay, nil
}

// UsageSummary totals merged sessions per (date, user, app). Sessions with
// an unparsable total_time are skipped and reported in the error.
func UsageSummary(sessions []entity.ActivityRecord) ([]UsageTime, error) {
	type key struct{ date, user, app string }
	var (
		errs   error
		order  []key
		totals = map[key]*struct {
			secs  int64
			count int
		}{}
	)
	for _, s := range sessions {
		secs, err := entity.ParseHMS(s.TotalTime)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		k := key{s.Date, s.UserName, s.AppName}
		t, ok := totals[k]
		if !ok {
			t = &struct {
				secs  int64
				count int
			}{}
			totals[k] = t
			order = append(order, k)
		}
		t.secs += secs
		t.count++
	}

	out := make([]UsageTime, 0, len(order))
	for _, k := range order {
		t := totals[k]
		out = append(out, UsageTime{
			Date:         k.date,
			UserName:     k.user,
			AppName:      k.app,
			TotalTime:    entity.FormatHMS(t.secs),
			SessionCount: t.count,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		if a.UserName != b.UserName {
			return a.UserName > b.UserName
		}
		return a.TotalTime > b.TotalTime
	})
	return out, errs
}

// lenientSeconds parses a stored total_time the way the usage statistics
// always have: malformed fields read as zero, and values over 24 hours or
// with out-of-range minutes or seconds count as zero.
func lenientSeconds(s string) int64 {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0
	}
	var f [3]int64
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || v < 0 {
			v = 0
		}
		f[i] = v
	}
	if f[0] > 24 || f[1] > 59 || f[2] > 59 {
		return 0
	}
	return f[0]*3600 + f[1]*60 + f[2]
}

// UsageStats aggregates raw, unmerged records per (user, app, date): the
// number of records, the largest stored total_time and the sum of stored
// total_time values capped at 24 hours.
func UsageStats(records []entity.ActivityRecord) []UsageStat {
	type key struct{ user, app, date string }
	index := map[key]int{}
	var out []UsageStat
	for _, r := range records {
		k := key{r.UserName, r.AppName, r.Date}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, UsageStat{UserName: r.UserName, AppName: r.AppName, Date: r.Date})
		}
		s := &out[i]
		s.UsageCount++
		s.seconds += lenientSeconds(r.TotalTime)
		if r.TotalTime > s.MaxTime {
			s.MaxTime = r.TotalTime
		}
	}
	for i := range out {
		if out[i].seconds > secondsPerDay {
			out[i].seconds = secondsPerDay
		}
		out[i].TotalTime = entity.FormatHMS(out[i].seconds)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		if a.seconds != b.seconds {
			return a.seconds > b.seconds
		}
		if a.UserName != b.UserName {
			return a.UserName < b.UserName
		}
		return a.AppName < b.AppName
	})
	if out == nil {
		out = []UsageStat{}
	}
	return out
}
