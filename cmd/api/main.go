// Command api serves the activity and AFK statistics over HTTP.
package main

import (
	"os"

	"activitytracker/launch"
)

func main() {
	os.Exit(launch.Main("api", os.Args[1:], launch.TrayOptions{
		Title:        "Activity Tracker API",
		Tooltip:      "Serving activity statistics",
		IconPath:     "./icon.ico",
		DashboardURL: "http://localhost:5000/api/activities",
	}, launch.API))
}
