// Package input delivers user input notifications to callbacks.
package input

import (
	"context"
	"sync"
	"time"

	"cdr.dev/slog"
	"github.com/coder/quartz"
	"golang.org/x/xerrors"
)

// Handlers are invoked asynchronously, one call per observed event. Nil
// handlers are skipped.
type Handlers struct {
	OnMove     func()
	OnClick    func()
	OnScroll   func()
	OnKeyPress func()
}

// Listener is a start/stop source of input events. Start must not block.
type Listener interface {
	Start(h Handlers) error
	Stop() error
}

// IdleSource reports seconds since the last keyboard or mouse input.
type IdleSource func(ctx context.Context) (float64, error)

const DefaultPollInterval = 250 * time.Millisecond

var ErrRunning = xerrors.New("listener already running")

// IdlePoller watches the OS last-input counter. The counter does not say
// which kind of input happened, so every detected input goes to OnMove.
type IdlePoller struct {
	idle     IdleSource
	clock    quartz.Clock
	interval time.Duration
	logger   slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var _ Listener = (*IdlePoller)(nil)

func NewIdlePoller(idle IdleSource, clock quartz.Clock, interval time.Duration, logger slog.Logger) *IdlePoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &IdlePoller{idle: idle, clock: clock, interval: interval, logger: logger}
}

func (p *IdlePoller) Start(h Handlers) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return ErrRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	last := -1.0
	w := p.clock.TickerFunc(ctx, p.interval, func() error {
		secs, err := p.idle(ctx)
		if err != nil {
			p.logger.Debug(ctx, "read idle counter", slog.Error(err))
			return nil
		}
		// The counter resets to zero on input, so a drop means new input. A
		// reading shorter than one interval is new input too: under constant
		// input the coarse counter can read zero on consecutive samples.
		dropped := last >= 0 && secs < last
		if (dropped || secs < p.interval.Seconds()) && h.OnMove != nil {
			h.OnMove()
		}
		last = secs
		return nil
	}, "input")
	go func() {
		defer close(p.done)
		_ = w.Wait()
	}()
	return nil
}

func (p *IdlePoller) Stop() error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}
