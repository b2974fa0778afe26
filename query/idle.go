package query

import (
	"context"
	"database/sql"
	"errors"

	"golang.org/x/xerrors"

	"activitytracker/entity"
)

// operations for the per user, per day idle maximum

func (db *Database) UserIdle(ctx context.Context, user, date string) (entity.UserIdleRecord, error) {
	var rec entity.UserIdleRecord
	err := db.GetContext(ctx, &rec, `
	SELECT user_name, date, idle_time, last_updated
	FROM user_idle_times
	WHERE user_name = ? AND date = ?`, user, date)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.UserIdleRecord{}, ErrNotFound
	}
	if err != nil {
		return entity.UserIdleRecord{}, xerrors.Errorf("UserIdle: %w", err)
	}
	return rec, nil
}

func (db *Database) UpsertUserIdle(ctx context.Context, rec entity.UserIdleRecord) error {
	_, err := db.NamedExecContext(ctx, `INSERT INTO user_idle_times (user_name, date, idle_time, last_updated)
	VALUES (:user_name, :date, :idle_time, :last_updated)
	ON CONFLICT(user_name, date) DO UPDATE SET idle_time=excluded.idle_time, last_updated=excluded.last_updated`, rec)
	if err != nil {
		return xerrors.Errorf("UpsertUserIdle: %w", err)
	}
	return nil
}

func (db *Database) DeleteUserIdleBefore(ctx context.Context, date string) (int64, error) {
	n, err := rowsAffected(db.ExecContext(ctx, "DELETE FROM user_idle_times WHERE date < ?", date))
	if err != nil {
		return 0, xerrors.Errorf("DeleteUserIdleBefore: %w", err)
	}
	return n, nil
}
