package entity

import "time"

const (
	// DateLayout is the layout of every persisted `date` field.
	DateLayout = "2006-01-02"
	// DateTimeLayout is the layout of logon/logoff/boot/app start stamps.
	DateTimeLayout = "2006-01-02 15:04:05"
	// ClockLayout is the time-only layout used by AFK records.
	ClockLayout = "15:04:05"
)

// Pseudo applications reported instead of a real foreground process.
const (
	AppSystemLocked = "System_Locked"
	AppUnknown      = "Unknown"
)

// ActivitySample is one per-second observation of the desktop. It is never
// persisted.
type ActivitySample struct {
	Workstation  string
	User         string
	Timestamp    time.Time
	AppName      string
	AppTitle     string
	AppPath      string
	AppStartTime time.Time
	IdleTime     string
	IsLocked     bool
	BootTime     time.Time
}

// ActivityRecord is one observation of the cumulative state of the
// foreground application. Records are append-only: for a fixed
// (date, user_name, app_name, logon_time) the newest one wins.
type ActivityRecord struct {
	ID                string    `db:"id" bson:"_id,omitempty" json:"_id,omitempty"`
	WorkstationName   string    `db:"workstation_name" bson:"workstation_name" json:"workstation_name"`
	UserName          string    `db:"user_name" bson:"user_name" json:"user_name"`
	LogonTime         string    `db:"logon_time" bson:"logon_time" json:"logon_time"`
	LogoffTime        string    `db:"logoff_time" bson:"logoff_time" json:"logoff_time"`
	IdleTime          string    `db:"idle_time" bson:"idle_time" json:"idle_time"`
	ActiveTime        string    `db:"active_time" bson:"active_time" json:"active_time"`
	AppName           string    `db:"app_name" bson:"app_name" json:"app_name"`
	AppTitle          string    `db:"app_title" bson:"app_title" json:"app_title"`
	AppPath           string    `db:"app_path" bson:"app_path" json:"app_path"`
	TotalTime         string    `db:"total_time" bson:"total_time" json:"total_time"`
	BootTime          string    `db:"boot_time" bson:"boot_time" json:"boot_time"`
	AppStartTime      string    `db:"app_start_time" bson:"app_start_time" json:"app_start_time"`
	SystemWorkingTime string    `db:"system_working_time" bson:"system_working_time" json:"system_working_time"`
	Date              string    `db:"date" bson:"date" json:"date"`
	CreatedAt         time.Time `db:"created_at" bson:"created_at" json:"created_at"`
}

// UserIdleRecord holds the running idle maximum of one user for one day.
type UserIdleRecord struct {
	UserName    string    `db:"user_name" bson:"user_name" json:"user_name"`
	Date        string    `db:"date" bson:"date" json:"date"`
	IdleTime    string    `db:"idle_time" bson:"idle_time" json:"idle_time"`
	LastUpdated time.Time `db:"last_updated" bson:"last_updated" json:"last_updated"`
}
