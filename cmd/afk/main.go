// Command afk records when the user is working and when they are away
// from the keyboard.
package main

import (
	"context"
	"os"

	"activitytracker/launch"
)

func main() {
	os.Exit(launch.Main("afk", os.Args[1:], launch.TrayOptions{
		Title:    "AFK Watcher",
		Tooltip:  "Watching keyboard and mouse activity",
		IconPath: "./icon.ico",
	}, func(ctx context.Context, env launch.Env) error {
		return launch.AFK(ctx, env, nil)
	}))
}
