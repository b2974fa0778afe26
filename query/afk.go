package query

import (
	"context"

	"golang.org/x/xerrors"

	"activitytracker/entity"
)

func (db *Database) InsertAFK(ctx context.Context, rec entity.AFKSessionRecord) error {
	_, err := db.NamedExecContext(ctx, `
	INSERT INTO afk (username, date, "window", type, status, start_time, end_time, duration, is_heartbeat, timestamp)
	VALUES (:username, :date, :window, :type, :status, :start_time, :end_time, :duration, :is_heartbeat, :timestamp)`, rec)
	if err != nil {
		return xerrors.Errorf("InsertAFK: %w", err)
	}
	return nil
}

// AFKRecords returns AFK records ordered by username, date and start time.
func (db *Database) AFKRecords(ctx context.Context, filter AFKFilter) ([]entity.AFKSessionRecord, error) {
	items := []entity.AFKSessionRecord{}
	q := `
	SELECT id, username, date, "window", type, status, start_time, end_time, duration, is_heartbeat, timestamp
	FROM afk
	WHERE date >= ?`
	args := []any{filter.Since}
	if filter.Username != "" {
		q += ` AND username = ?`
		args = append(args, filter.Username)
	}
	if filter.ExcludeHeartbeats {
		q += ` AND is_heartbeat = FALSE`
	}
	q += `
	ORDER BY username, date, start_time, id`
	if err := db.SelectContext(ctx, &items, q, args...); err != nil {
		return nil, xerrors.Errorf("AFKRecords: %w", err)
	}
	return items, nil
}
