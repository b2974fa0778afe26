package afk

import (
	"context"
	"sync"
	"time"

	"cdr.dev/slog"
	"github.com/coder/quartz"
	"golang.org/x/xerrors"

	"activitytracker/entity"
	"activitytracker/input"
)

// Store is the subset of query.Store the watcher needs.
type Store interface {
	InsertAFK(ctx context.Context, rec entity.AFKSessionRecord) error
}

type Options struct {
	Username      string
	IdleThreshold time.Duration
	PollInterval  time.Duration
	// Window returns the foreground window title.
	Window   func() string
	Listener input.Listener
	Store    Store
	Clock    quartz.Clock
	Logger   slog.Logger
}

// Watcher drives a State from input events and a poll timer and persists
// what it emits.
type Watcher struct {
	state    *State
	listener input.Listener
	store    Store
	clock    quartz.Clock
	logger   slog.Logger
	poll     time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewWatcher(opts Options) *Watcher {
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Watcher{
		state:    NewState(opts.Username, opts.IdleThreshold, opts.PollInterval, opts.Window, opts.Clock.Now()),
		listener: opts.Listener,
		store:    opts.Store,
		clock:    opts.Clock,
		logger:   opts.Logger.With(slog.F("username", opts.Username)),
		poll:     opts.PollInterval,
	}
}

func (w *Watcher) State() *State { return w.state }

// Start registers the input handlers and starts the poll timer. It does
// not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return xerrors.New("watcher already started")
	}

	onInput := func() { w.persist(ctx, w.state.RecordActivity(w.clock.Now())) }
	err := w.listener.Start(input.Handlers{
		OnMove:     onInput,
		OnClick:    onInput,
		OnScroll:   onInput,
		OnKeyPress: onInput,
	})
	if err != nil {
		return xerrors.Errorf("start input listener: %w", err)
	}

	tickCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	waiter := w.clock.TickerFunc(tickCtx, w.poll, func() error {
		w.persist(tickCtx, w.state.CheckAndTransition(w.clock.Now()))
		return nil
	}, "afk")
	go func() {
		defer close(w.done)
		_ = waiter.Wait()
	}()
	w.logger.Info(ctx, "afk watcher started", slog.F("poll_interval", w.poll))
	return nil
}

// Stop unregisters input, stops the timer and persists the interval that
// is still open.
func (w *Watcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()
	if cancel == nil {
		return nil
	}

	err := w.listener.Stop()
	cancel()
	<-done
	w.persist(ctx, w.state.Close(w.clock.Now()))
	if err != nil {
		return xerrors.Errorf("stop input listener: %w", err)
	}
	return nil
}

func (w *Watcher) persist(ctx context.Context, recs []entity.AFKSessionRecord) {
	for _, rec := range recs {
		if !rec.IsHeartbeat {
			w.logger.Info(ctx, "afk interval closed",
				slog.F("type", rec.Type),
				slog.F("start", rec.StartTime),
				slog.F("duration", rec.Duration),
			)
		}
		if err := w.store.InsertAFK(ctx, rec); err != nil {
			w.logger.Warn(ctx, "persist afk record", slog.F("type", rec.Type), slog.Error(err))
		}
	}
}
