package launch

import (
	"context"
	"os"
	"os/exec"
	"runtime"

	"github.com/getlantern/systray"
)

type TrayOptions struct {
	Title   string
	Tooltip string
	// IconPath is read at startup; a missing icon leaves the default.
	IconPath string
	// DashboardURL adds an "Open dashboard" item when set.
	DashboardURL string
}

// Tray runs fn behind a system tray icon and blocks until fn returns or
// the user picks Quit. It must be called from the main goroutine.
func Tray(ctx context.Context, opts TrayOptions, fn func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		runErr error
		done   = make(chan struct{})
	)
	onReady := func() {
		if icon, err := os.ReadFile(opts.IconPath); err == nil {
			systray.SetIcon(icon)
		}
		systray.SetTitle(opts.Title)
		systray.SetTooltip(opts.Tooltip)

		var openCh <-chan struct{}
		if opts.DashboardURL != "" {
			openCh = systray.AddMenuItem("Open dashboard", "Open "+opts.DashboardURL+" in the browser").ClickedCh
		}
		quit := systray.AddMenuItem("Quit", "Stop and exit")

		go func() {
			defer systray.Quit()
			runErr = fn(ctx)
			close(done)
		}()
		go func() {
			for {
				select {
				case <-openCh:
					_ = openBrowser(opts.DashboardURL)
				case <-quit.ClickedCh:
					cancel()
					return
				case <-done:
					return
				}
			}
		}()
	}
	systray.Run(onReady, cancel)
	<-done
	return runErr
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		return exec.Command("open", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
