// Package osinfo answers questions about the local desktop session: which
// window is in front, how long the user has been idle, when the machine
// booted and who is logged in.
package osinfo

import (
	"context"
	"os"
	"time"

	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/process"
	"golang.org/x/xerrors"
)

var (
	// ErrInvalidWindow is returned when the foreground window handle is
	// zero or does not map to a live process. Callers treat it as a locked
	// session.
	ErrInvalidWindow = xerrors.New("invalid foreground window")
	// ErrUnsupported is returned on platforms without window or input
	// introspection.
	ErrUnsupported = xerrors.New("not supported on this platform")
)

// App describes the process that owns the foreground window.
type App struct {
	Name      string
	Title     string
	Path      string
	StartTime time.Time
}

type Introspector interface {
	ForegroundApp(ctx context.Context) (App, error)
	IsSystemLocked(ctx context.Context) bool
	IdleSeconds(ctx context.Context) (float64, error)
	BootTime(ctx context.Context) (time.Time, error)
	LoggedInUser(ctx context.Context) (string, error)
	Workstation() string
}

// System is the Introspector backed by the running OS.
type System struct{}

var _ Introspector = System{}

func (System) ForegroundApp(ctx context.Context) (App, error) {
	w, err := foregroundWindow()
	if err != nil {
		return App{}, err
	}
	if w.handle == 0 || w.pid <= 0 {
		return App{}, ErrInvalidWindow
	}

	p, err := process.NewProcessWithContext(ctx, w.pid)
	if err != nil {
		return App{}, xerrors.Errorf("lookup process %d: %w", w.pid, err)
	}
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return App{}, xerrors.Errorf("process %d name: %w", w.pid, err)
	}
	exe, err := p.ExeWithContext(ctx)
	if err != nil {
		return App{}, xerrors.Errorf("process %d exe: %w", w.pid, err)
	}
	created, err := p.CreateTimeWithContext(ctx)
	if err != nil {
		return App{}, xerrors.Errorf("process %d create time: %w", w.pid, err)
	}
	return App{
		Name:      name,
		Title:     w.title,
		Path:      exe,
		StartTime: time.UnixMilli(created),
	}, nil
}

// IsSystemLocked reports a locked session when there is no foreground
// window or it has no title, which is what the lock screen looks like.
// Lookup failures count as locked.
func (System) IsSystemLocked(context.Context) bool {
	w, err := foregroundWindow()
	if xerrors.Is(err, ErrUnsupported) {
		return false
	}
	if err != nil {
		return true
	}
	return w.handle == 0 || w.title == ""
}

func (System) IdleSeconds(context.Context) (float64, error) {
	ms, err := idleMillis()
	if err != nil {
		return 0, err
	}
	return float64(ms) / 1000, nil
}

func (System) BootTime(ctx context.Context) (time.Time, error) {
	secs, err := host.BootTimeWithContext(ctx)
	if err != nil {
		return time.Time{}, xerrors.Errorf("boot time: %w", err)
	}
	return time.Unix(int64(secs), 0), nil
}

// LoggedInUser returns the first interactive session user, falling back
// to the environment when the OS has no session table.
func (System) LoggedInUser(ctx context.Context) (string, error) {
	users, err := host.UsersWithContext(ctx)
	if err == nil && len(users) > 0 && users[0].User != "" {
		return users[0].User, nil
	}
	for _, key := range []string{"USERNAME", "USER"} {
		if v := os.Getenv(key); v != "" {
			return v, nil
		}
	}
	if err != nil {
		return "", xerrors.Errorf("list users: %w", err)
	}
	return "", xerrors.New("no logged in user")
}

func (System) Workstation() string {
	if v := os.Getenv("COMPUTERNAME"); v != "" {
		return v
	}
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}

type window struct {
	handle uintptr
	pid    int32
	title  string
}
