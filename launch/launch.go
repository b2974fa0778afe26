// Package launch wires the long-running processes together: config,
// logging, the store and the component each binary runs.
package launch

import (
	"context"
	"time"

	"cdr.dev/slog"
	"github.com/coder/quartz"
	"golang.org/x/xerrors"

	"activitytracker/afk"
	"activitytracker/config"
	"activitytracker/entity"
	"activitytracker/idle"
	"activitytracker/input"
	"activitytracker/osinfo"
	"activitytracker/query"
	"activitytracker/retention"
	"activitytracker/storage"
	"activitytracker/tracker"
	"activitytracker/web"
)

// Env holds what every process shares. Zero fields are filled with the
// real implementations.
type Env struct {
	Config *config.Config
	Logger slog.Logger
	Clock  quartz.Clock
	OS     osinfo.Introspector
	// Store is opened from Config when nil and closed on return.
	Store query.Store
}

func (e *Env) open(ctx context.Context) (func(), error) {
	if e.Clock == nil {
		e.Clock = quartz.NewReal()
	}
	if e.OS == nil {
		e.OS = osinfo.System{}
	}
	if e.Store != nil {
		return func() {}, nil
	}
	store, err := storage.Open(ctx, e.Config, e.Logger)
	if err != nil {
		return nil, err
	}
	e.Store = store
	return func() {
		if err := store.Close(); err != nil {
			e.Logger.Warn(context.Background(), "close store", slog.Error(err))
		}
	}, nil
}

// Tracker sweeps expired records once, restores today's totals and
// samples the foreground application until ctx is done.
func Tracker(ctx context.Context, env Env) error {
	closeStore, err := env.open(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	res, err := retention.Sweep(ctx, env.Store, env.Clock.Now())
	if err != nil {
		env.Logger.Error(ctx, "startup retention sweep", slog.F("cutoff", res.Cutoff), slog.Error(err))
	} else {
		env.Logger.Info(ctx, "startup retention sweep",
			slog.F("cutoff", res.Cutoff),
			slog.F("activities", res.Activities),
			slog.F("idle_times", res.IdleTimes),
		)
	}

	acc := idle.New(env.Store, env.OS.IdleSeconds, env.Clock, env.Logger.Named("idle"))
	mon := tracker.NewMonitor(tracker.Options{
		Store:  env.Store,
		OS:     env.OS,
		Idle:   acc,
		Clock:  env.Clock,
		Logger: env.Logger,
	})
	mon.Recover(ctx)
	env.Logger.Info(ctx, "tracking foreground applications", slog.F("workstation", env.OS.Workstation()))
	return mon.Run(ctx)
}

// AFK runs the away-from-keyboard watcher for the logged-in user until
// ctx is done, then records the interval that is still open.
func AFK(ctx context.Context, env Env, listener input.Listener) error {
	closeStore, err := env.open(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	user, err := env.OS.LoggedInUser(ctx)
	if err != nil {
		env.Logger.Warn(ctx, "resolve logged-in user", slog.Error(err))
		user = "unknown"
	}
	if listener == nil {
		listener = input.NewIdlePoller(env.OS.IdleSeconds, env.Clock, input.DefaultPollInterval, env.Logger.Named("input"))
	}

	w := afk.NewWatcher(afk.Options{
		Username:      user,
		IdleThreshold: env.Config.IdleThreshold(),
		PollInterval:  env.Config.PollInterval(),
		Window:        foregroundTitle(env.OS, env.Logger),
		Listener:      listener,
		Store:         env.Store,
		Clock:         env.Clock,
		Logger:        env.Logger,
	})
	if err := w.Start(ctx); err != nil {
		return xerrors.Errorf("start afk watcher: %w", err)
	}
	<-ctx.Done()

	// ctx is already cancelled; the final record still needs a live one.
	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return w.Stop(stopCtx)
}

func foregroundTitle(sys osinfo.Introspector, logger slog.Logger) func() string {
	return func() string {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		app, err := sys.ForegroundApp(ctx)
		if err != nil {
			logger.Debug(ctx, "read foreground window", slog.Error(err))
			return entity.AppUnknown
		}
		return app.Title
	}
}

// API serves the HTTP API on the configured address until ctx is done.
func API(ctx context.Context, env Env) error {
	closeStore, err := env.open(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	srv, err := web.New(web.Options{
		Store:           env.Store,
		Clock:           env.Clock,
		Logger:          env.Logger,
		SecretKey:       env.Config.SecretKey,
		SessionLifetime: env.Config.SessionLifetime(),
		CORS:            env.Config.CORS,
	})
	if err != nil {
		return err
	}
	return srv.Serve(ctx, env.Config.ListenAddr())
}
