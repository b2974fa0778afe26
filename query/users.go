package query

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"golang.org/x/xerrors"

	"activitytracker/entity"
)

func (db *Database) CreateUser(ctx context.Context, u entity.User) error {
	_, err := db.NamedExecContext(ctx, `INSERT INTO users (id, username, password_hash, created_at)
	VALUES (:id, :username, :password_hash, :created_at)`, u)
	if err != nil {
		// Both drivers report the constraint by name in the message.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateUser
		}
		return xerrors.Errorf("CreateUser: %w", err)
	}
	return nil
}

func (db *Database) UserByName(ctx context.Context, username string) (entity.User, error) {
	var u entity.User
	err := db.GetContext(ctx, &u, `SELECT id, username, password_hash, created_at FROM users WHERE username = ?`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.User{}, ErrNotFound
	}
	if err != nil {
		return entity.User{}, xerrors.Errorf("UserByName: %w", err)
	}
	return u, nil
}
