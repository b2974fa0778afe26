package entity

import "time"

// AFKType is the `type` field of an AFK record.
type AFKType string

const (
	AFKTypeWork AFKType = "work"
	AFKTypeAFK  AFKType = "afk"
)

// AFKStatus is the `status` field of an AFK record.
type AFKStatus string

const (
	AFKStatusWork AFKStatus = "Work"
	AFKStatusAFK  AFKStatus = "AFK"
)

// AFKSessionRecord is either a heartbeat (emitted every poll interval) or a
// transition record (emitted once per Work/AFK edge and on shutdown).
type AFKSessionRecord struct {
	ID          string    `db:"id" bson:"_id,omitempty" json:"_id,omitempty"`
	Username    string    `db:"username" bson:"username" json:"username"`
	Date        string    `db:"date" bson:"date" json:"date"`
	Window      string    `db:"window" bson:"window" json:"window"`
	Type        AFKType   `db:"type" bson:"type" json:"type"`
	Status      AFKStatus `db:"status" bson:"status" json:"status"`
	StartTime   string    `db:"start_time" bson:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" bson:"end_time" json:"end_time"`
	Duration    string    `db:"duration" bson:"duration" json:"duration"`
	IsHeartbeat bool      `db:"is_heartbeat" bson:"is_heartbeat" json:"is_heartbeat"`
	Timestamp   time.Time `db:"timestamp" bson:"timestamp" json:"timestamp"`
}
