package query

import (
	"context"

	"golang.org/x/xerrors"

	"activitytracker/entity"
)

const activityColumns = `workstation_name, user_name, logon_time, logoff_time, idle_time, active_time,
	app_name, app_title, app_path, total_time, boot_time, app_start_time, system_working_time, date, created_at`

func (db *Database) InsertActivity(ctx context.Context, a entity.ActivityRecord) error {
	_, err := db.NamedExecContext(ctx, `
        INSERT INTO activities (`+activityColumns+`)
        VALUES (:workstation_name, :user_name, :logon_time, :logoff_time, :idle_time, :active_time,
	        :app_name, :app_title, :app_path, :total_time, :boot_time, :app_start_time,
	        :system_working_time, :date, :created_at)`, a)
	if err != nil {
		return xerrors.Errorf("InsertActivity: %w", err)
	}
	return nil
}

// ActivitiesBetween returns every activity whose date lies in
// [startDate, endDate], oldest first.
func (db *Database) ActivitiesBetween(ctx context.Context, startDate, endDate string) ([]entity.ActivityRecord, error) {
	items := []entity.ActivityRecord{}
	q := `SELECT id, ` + activityColumns + `
	FROM activities
	WHERE date >= ? AND date <= ?
	ORDER BY created_at, id`
	if err := db.SelectContext(ctx, &items, q, startDate, endDate); err != nil {
		return nil, xerrors.Errorf("ActivitiesBetween: %w", err)
	}
	return items, nil
}

func (db *Database) DeleteActivitiesBefore(ctx context.Context, date string) (int64, error) {
	n, err := rowsAffected(db.ExecContext(ctx, "DELETE FROM activities WHERE date < ?", date))
	if err != nil {
		return 0, xerrors.Errorf("DeleteActivitiesBefore: %w", err)
	}
	return n, nil
}
