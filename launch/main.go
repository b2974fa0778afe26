package launch

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cdr.dev/slog"
)

var InterruptSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// Main is the body of every binary: parse flags, load config, then run fn
// until it returns or an interrupt arrives. It returns the exit code.
func Main(name string, args []string, tray TrayOptions, fn func(context.Context, Env) error) int {
	flags, err := ParseFlags(name, args, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	env, closeLog, err := Setup(name, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		return 1
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), InterruptSignals...)
	defer stop()

	run := func(ctx context.Context) error { return fn(ctx, env) }
	if flags.Tray {
		err = Tray(ctx, tray, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		env.Logger.Error(ctx, name+" exited", slog.Error(err))
		return 1
	}
	env.Logger.Info(ctx, name+" stopped")
	return 0
}
