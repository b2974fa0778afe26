// Package tracker follows the foreground application once per second and
// turns the samples into cumulative per-app activity records.
package tracker

import (
	"time"

	"activitytracker/entity"
)

type State int

const (
	NoActiveApp State = iota
	TrackingApp
)

func (s State) String() string {
	switch s {
	case NoActiveApp:
		return "no_active_app"
	case TrackingApp:
		return "tracking_app"
	default:
		return "unknown"
	}
}

// Usage is the running total of one application for the current day.
type Usage struct {
	Total time.Duration
	Title string
	Path  string
}

// Machine is the app-switch state machine. It does no I/O: Step takes a
// sample and returns the records to persist.
type Machine struct {
	state  State
	day    string
	active string
	// logon is when the active app came to the front, mark is the last
	// instant already added to its total.
	logon    time.Time
	mark     time.Time
	appStart time.Time
	usage    map[string]*Usage
}

// NewMachine starts a machine for day with totals recovered from records
// persisted earlier that day.
func NewMachine(day string, recovered map[string]Usage) *Machine {
	m := &Machine{day: day, usage: make(map[string]*Usage, len(recovered))}
	for name, u := range recovered {
		u := u
		m.usage[name] = &u
	}
	return m
}

func (m *Machine) State() State   { return m.state }
func (m *Machine) Active() string { return m.active }
func (m *Machine) Day() string    { return m.day }

// Total is the accumulated time of app today.
func (m *Machine) Total(app string) time.Duration {
	if u, ok := m.usage[app]; ok {
		return u.Total
	}
	return 0
}

// Step feeds one sample. While the same app stays in front one record is
// returned per step; when the app changes, the previous app's closing
// record is returned and tracking restarts for the new app. A sample on a
// new date closes the running session on the old date and resets every
// total.
func (m *Machine) Step(s entity.ActivitySample) []entity.ActivityRecord {
	now := s.Timestamp
	var out []entity.ActivityRecord

	if day := now.Format(entity.DateLayout); day != m.day {
		if m.state == TrackingApp {
			m.accumulate(now)
			out = append(out, m.record(s, now))
		}
		m.day = day
		m.usage = map[string]*Usage{}
		m.state = NoActiveApp
		m.active = ""
	}

	if m.state == TrackingApp && s.AppName == m.active {
		m.accumulate(now)
		u := m.usage[m.active]
		u.Title, u.Path = s.AppTitle, s.AppPath
		m.appStart = s.AppStartTime
		return append(out, m.record(s, now))
	}

	if m.state == TrackingApp {
		m.accumulate(now)
		out = append(out, m.record(s, now))
	}
	m.state = TrackingApp
	m.active = s.AppName
	m.logon = now
	m.mark = now
	m.appStart = s.AppStartTime
	if _, ok := m.usage[s.AppName]; !ok {
		m.usage[s.AppName] = &Usage{Title: s.AppTitle, Path: s.AppPath}
	}
	return out
}

func (m *Machine) accumulate(now time.Time) {
	if d := now.Sub(m.mark); d > 0 {
		m.usage[m.active].Total += d
	}
	m.mark = now
}

// record describes the active app as of now. Session fields come from the
// machine; host fields come from the sample.
func (m *Machine) record(s entity.ActivitySample, now time.Time) entity.ActivityRecord {
	u := m.usage[m.active]
	uptime := entity.ZeroHMS
	boot := ""
	if !s.BootTime.IsZero() {
		uptime = entity.FormatDuration(now.Sub(s.BootTime))
		boot = s.BootTime.Format(entity.DateTimeLayout)
	}
	appStart := ""
	if !m.appStart.IsZero() {
		appStart = m.appStart.Format(entity.DateTimeLayout)
	}
	return entity.ActivityRecord{
		WorkstationName:   s.Workstation,
		UserName:          s.User,
		LogonTime:         m.logon.Format(entity.DateTimeLayout),
		LogoffTime:        now.Format(entity.DateTimeLayout),
		IdleTime:          s.IdleTime,
		ActiveTime:        uptime,
		AppName:           m.active,
		AppTitle:          u.Title,
		AppPath:           u.Path,
		TotalTime:         entity.FormatDuration(u.Total),
		BootTime:          boot,
		AppStartTime:      appStart,
		SystemWorkingTime: uptime,
		Date:              m.day,
		CreatedAt:         now,
	}
}
