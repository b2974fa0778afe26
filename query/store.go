package query

import (
	"context"
	"errors"

	"activitytracker/entity"
)

// Collection names shared by every backend.
const (
	CollectionActivities = "activities"
	CollectionUserIdle   = "user_idle_times"
	CollectionAFK        = "afk"
	CollectionUsers      = "users"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateUser = errors.New("username already exists")
)

// AFKFilter selects AFK records. Since is an inclusive YYYY-MM-DD bound.
type AFKFilter struct {
	Since             string
	Username          string
	ExcludeHeartbeats bool
}

// Store is the document store shared by the tracker, the AFK watcher and
// the API. Activities come back ordered by created_at; AFK records by
// (username, date, start_time). Implementations must be safe for
// concurrent use.
type Store interface {
	InsertActivity(ctx context.Context, a entity.ActivityRecord) error
	ActivitiesBetween(ctx context.Context, startDate, endDate string) ([]entity.ActivityRecord, error)
	DeleteActivitiesBefore(ctx context.Context, date string) (int64, error)

	UserIdle(ctx context.Context, user, date string) (entity.UserIdleRecord, error)
	UpsertUserIdle(ctx context.Context, rec entity.UserIdleRecord) error
	DeleteUserIdleBefore(ctx context.Context, date string) (int64, error)

	InsertAFK(ctx context.Context, rec entity.AFKSessionRecord) error
	AFKRecords(ctx context.Context, filter AFKFilter) ([]entity.AFKSessionRecord, error)

	CreateUser(ctx context.Context, u entity.User) error
	UserByName(ctx context.Context, username string) (entity.User, error)

	Ping(ctx context.Context) error
	Close() error
}
