package query

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"golang.org/x/xerrors"

	// Both sqlite drivers are registered; config picks one by name.
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

const (
	TableDatabaseVersion = "database_version"

	// DriverModernc is the pure Go driver and the default.
	DriverModernc = "sqlite"
	// DriverCgo is mattn/go-sqlite3.
	DriverCgo = "sqlite3"
)

// Database is the sqlite backed Store.
type Database struct {
	*sqlx.DB
}

var _ Store = (*Database)(nil)

func NewDatabase(db *sqlx.DB) *Database {
	return &Database{DB: db}
}

// Each entry moves the schema one version up.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS activities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		workstation_name TEXT NOT NULL DEFAULT '',
		user_name TEXT NOT NULL,
		logon_time TEXT NOT NULL DEFAULT '',
		logoff_time TEXT NOT NULL DEFAULT '',
		idle_time TEXT NOT NULL DEFAULT '00:00:00',
		active_time TEXT NOT NULL DEFAULT '00:00:00',
		app_name TEXT NOT NULL,
		app_title TEXT NOT NULL DEFAULT '',
		app_path TEXT NOT NULL DEFAULT '',
		total_time TEXT NOT NULL DEFAULT '00:00:00',
		boot_time TEXT NOT NULL DEFAULT '',
		app_start_time TEXT NOT NULL DEFAULT '',
		system_working_time TEXT NOT NULL DEFAULT '00:00:00',
		date TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_activities_date ON activities(date);`,

	`CREATE TABLE IF NOT EXISTS user_idle_times (
		user_name TEXT NOT NULL,
		date TEXT NOT NULL,
		idle_time TEXT NOT NULL DEFAULT '00:00:00',
		last_updated DATETIME NOT NULL,
		PRIMARY KEY (user_name, date)
	);`,

	`CREATE TABLE IF NOT EXISTS afk (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		date TEXT NOT NULL,
		"window" TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		duration TEXT NOT NULL,
		is_heartbeat BOOLEAN NOT NULL DEFAULT FALSE,
		timestamp DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_afk_tracking ON afk(username, date, start_time);`,

	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);`,
}

// Open opens (creating if needed) the sqlite database at dsn and brings the
// schema up to date.
func Open(ctx context.Context, driver, dsn string) (*Database, error) {
	if driver == "" {
		driver = DriverModernc
	}
	dbTemp, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, xerrors.Errorf("open %s: %w", driver, err)
	}
	// sqlite allows one writer; a single connection also keeps ":memory:"
	// databases alive across calls.
	dbTemp.SetMaxOpenConns(1)

	db := NewDatabase(dbTemp)
	if err := db.migrate(ctx); err != nil {
		_ = dbTemp.Close()
		return nil, err
	}
	return db, nil
}

func (db *Database) GetDbVersion(ctx context.Context) (int, error) {
	var dbVersion int
	err := db.GetContext(ctx, &dbVersion, "SELECT db_version FROM database_version LIMIT 1")
	if err != nil {
		return 0, xerrors.Errorf("GetDbVersion: %w", err)
	}
	return dbVersion, nil
}

func (db *Database) TableExists(ctx context.Context, tableName string) (bool, error) {
	query := `
		SELECT count(name)
		FROM sqlite_master
		WHERE type='table' AND name=?
	`
	var count int
	if err := db.QueryRowContext(ctx, query, tableName).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (db *Database) migrate(ctx context.Context) error {
	exist, err := db.TableExists(ctx, TableDatabaseVersion)
	if err != nil {
		return xerrors.Errorf("migrate: %w", err)
	}
	if !exist {
		_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS database_version (
			db_version INTEGER default 0);
		INSERT INTO database_version VALUES(0);`)
		if err != nil {
			return xerrors.Errorf("migrate: create version table: %w", err)
		}
	}

	dbVersion, err := db.GetDbVersion(ctx)
	if err != nil {
		return xerrors.Errorf("migrate: %w", err)
	}
	for v := dbVersion; v < len(migrations); v++ {
		if err := db.applyMigration(ctx, v+1, migrations[v]); err != nil {
			return err
		}
	}
	return nil
}

func (db *Database) applyMigration(ctx context.Context, version int, stmt string) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return xerrors.Errorf("migrate to %d: %w", version, err)
	}
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		_ = tx.Rollback()
		return xerrors.Errorf("migrate to %d: %w", version, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE database_version SET db_version=?`, version); err != nil {
		_ = tx.Rollback()
		return xerrors.Errorf("migrate to %d: %w", version, err)
	}
	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return xerrors.Errorf("migrate to %d: error at commit: %w", version, err)
	}
	return nil
}

func (db *Database) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

func rowsAffected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
