package launch

import (
	"io"

	"github.com/spf13/pflag"
	"golang.org/x/xerrors"

	"activitytracker/config"
	"activitytracker/logging"
)

// Flags are the command line options shared by every binary.
type Flags struct {
	Config  string
	Tray    bool
	Verbose bool
	LogFile string
	Listen  string
}

// ParseFlags parses args for the named binary. Usage goes to out.
func ParseFlags(name string, args []string, out io.Writer) (Flags, error) {
	var f Flags
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVarP(&f.Config, "config", "c", config.DefaultPath, "path to the configuration file")
	fs.BoolVar(&f.Tray, "tray", false, "run behind a system tray icon")
	fs.BoolVarP(&f.Verbose, "verbose", "v", false, "enable debug logging")
	fs.StringVar(&f.LogFile, "log-file", "", "also write logs to this rotating file")
	fs.StringVar(&f.Listen, "listen", "", "API listen address, overrides the config file")
	if err := fs.Parse(args); err != nil {
		return Flags{}, xerrors.Errorf("parse flags: %w", err)
	}
	return f, nil
}

// Setup loads the config named by f, applies flag overrides and builds the
// logger. The returned func flushes log files.
func Setup(name string, f Flags) (Env, func(), error) {
	cfg, err := config.Load(f.Config)
	if err != nil {
		return Env{}, nil, err
	}
	if f.Verbose {
		cfg.Log.Verbose = true
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.Listen != "" {
		cfg.Listen = f.Listen
	}
	logger, closeLog := logging.Build(name, logging.Options{
		File:    cfg.Log.File,
		Verbose: cfg.Log.Verbose,
	})
	return Env{Config: cfg, Logger: logger}, closeLog, nil
}
