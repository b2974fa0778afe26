package entity

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/xerrors"
)

// ZeroHMS is the formatted zero duration.
const ZeroHMS = "00:00:00"

// FormatHMS formats whole seconds as HH:MM:SS. Negative input is clamped to
// zero; hours are not wrapped at 24.
func FormatHMS(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatDuration truncates d to whole seconds and formats it as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	return FormatHMS(int64(d / time.Second))
}

// ParseHMS parses "HH:MM:SS" (or the unpadded "H:MM:SS") into seconds.
func ParseHMS(s string) (int64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, xerrors.Errorf("parse duration %q: want HH:MM:SS", s)
	}
	var fields [3]int64
	for i, p := range parts {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return 0, xerrors.Errorf("parse duration %q: %w", s, err)
		}
		if v < 0 {
			return 0, xerrors.Errorf("parse duration %q: negative field", s)
		}
		fields[i] = v
	}
	if fields[1] > 59 || fields[2] > 59 {
		return 0, xerrors.Errorf("parse duration %q: minutes and seconds must be below 60", s)
	}
	return fields[0]*3600 + fields[1]*60 + fields[2], nil
}

// ParseHMSOrZero is ParseHMS returning zero on error.
func ParseHMSOrZero(s string) int64 {
	v, err := ParseHMS(s)
	if err != nil {
		return 0
	}
	return v
}
