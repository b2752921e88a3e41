// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of passkeyd.
//
// passkeyd is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/passkeyd/passkeyd/pkg/passkey"
)

type userStore struct {
	store *Store
}

// Users returns the UserStore view of the database.
func (s *Store) Users() passkey.UserStore {
	return &userStore{store: s}
}

// Create stores a new user. Duplicate ids or usernames surface as
// passkey.ErrUserExists.
func (u *userStore) Create(ctx context.Context, user *passkey.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if user == nil || user.ID == "" || user.Username == "" {
		return fmt.Errorf("user id and username are required")
	}

	result, err := u.store.sqlDB.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (id, username, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.Username, toMillis(user.CreatedAt), toMillis(user.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	if affected == 0 {
		return passkey.ErrUserExists
	}
	return nil
}

// FindByID fetches a user by id.
func (u *userStore) FindByID(ctx context.Context, id string) (*passkey.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("user id is required")
	}

	row := u.store.sqlDB.QueryRowContext(ctx,
		`SELECT id, username, created_at, updated_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*passkey.User, error) {
	var user passkey.User
	var createdAt, updatedAt int64
	if err := row.Scan(&user.ID, &user.Username, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, passkey.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updatedAt)
	return &user, nil
}
