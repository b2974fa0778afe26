// Package afk decides whether the user is at the keyboard and records
// Work and Away intervals.
package afk

import (
	"sync"
	"time"

	"activitytracker/entity"
)

const (
	DefaultIdleThreshold = 300 * time.Second
	DefaultPollInterval  = 5 * time.Second
)

// State holds everything input callbacks and the poll timer share. All
// access goes through its methods, which hold one lock for their whole
// read-modify-write. Each method returns the records to persist.
type State struct {
	username  string
	threshold time.Duration
	poll      time.Duration
	window    func() string

	mu           sync.Mutex
	away         bool
	lastActivity time.Time
	afkStart     time.Time
	workStart    time.Time
	curWindow    string
}

// NewState starts Working at now. window is asked for the foreground
// window title at start and whenever the user comes back.
func NewState(username string, threshold, poll time.Duration, window func() string, now time.Time) *State {
	if threshold <= 0 {
		threshold = DefaultIdleThreshold
	}
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	if window == nil {
		window = func() string { return entity.AppUnknown }
	}
	return &State{
		username:     username,
		threshold:    threshold,
		poll:         poll,
		window:       window,
		lastActivity: now,
		workStart:    now,
		curWindow:    window(),
	}
}

func (s *State) Away() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.away
}

// RecordActivity notes user input at now. Coming back from Away closes the
// Away interval.
func (s *State) RecordActivity(now time.Time) []entity.AFKSessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActivity = now
	if !s.away {
		return nil
	}
	s.away = false
	rec := s.interval(entity.AFKTypeAFK, s.afkStart, now)
	s.workStart = now
	s.curWindow = s.window()
	return []entity.AFKSessionRecord{rec}
}

// CheckAndTransition runs once per poll interval. It emits the heartbeat
// of the current state and, when input has been quiet for the threshold,
// switches to Away and closes the Working interval.
func (s *State) CheckAndTransition(now time.Time) []entity.AFKSessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	typ := entity.AFKTypeWork
	if s.away {
		typ = entity.AFKTypeAFK
	}
	out := []entity.AFKSessionRecord{s.heartbeat(typ, now)}

	if !s.away && now.Sub(s.lastActivity) >= s.threshold {
		s.away = true
		s.afkStart = now
		out = append(out, s.interval(entity.AFKTypeWork, s.workStart, now))
	}
	return out
}

// Close ends whichever interval is open.
func (s *State) Close(now time.Time) []entity.AFKSessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.away {
		return []entity.AFKSessionRecord{s.interval(entity.AFKTypeAFK, s.afkStart, now)}
	}
	return []entity.AFKSessionRecord{s.interval(entity.AFKTypeWork, s.workStart, now)}
}

// heartbeat spans the nominal poll interval ending at now, not the time
// actually elapsed since the previous heartbeat.
func (s *State) heartbeat(typ entity.AFKType, now time.Time) entity.AFKSessionRecord {
	rec := s.record(typ, now.Add(-s.poll), now, s.poll)
	rec.IsHeartbeat = true
	return rec
}

func (s *State) interval(typ entity.AFKType, start, end time.Time) entity.AFKSessionRecord {
	return s.record(typ, start, end, end.Sub(start))
}

func (s *State) record(typ entity.AFKType, start, end time.Time, d time.Duration) entity.AFKSessionRecord {
	status := entity.AFKStatusWork
	if typ == entity.AFKTypeAFK {
		status = entity.AFKStatusAFK
	}
	return entity.AFKSessionRecord{
		Username:  s.username,
		Date:      end.Format(entity.DateLayout),
		Window:    s.curWindow,
		Type:      typ,
		Status:    status,
		StartTime: start.Format(entity.ClockLayout),
		EndTime:   end.Format(entity.ClockLayout),
		Duration:  entity.FormatDuration(d),
		Timestamp: end,
	}
}
