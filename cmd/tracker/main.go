// Command tracker records the foreground application once a second.
package main

import (
	"os"

	"activitytracker/launch"
)

func main() {
	os.Exit(launch.Main("tracker", os.Args[1:], launch.TrayOptions{
		Title:    "Activity Tracker",
		Tooltip:  "Tracking application usage",
		IconPath: "./icon.ico",
	}, launch.Tracker))
}
