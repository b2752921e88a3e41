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
	"time"

	"github.com/passkeyd/passkeyd/pkg/passkey"
)

type challengeStore struct {
	store *Store
}

// Challenges returns the ChallengeStore view of the database.
func (s *Store) Challenges() passkey.ChallengeStore {
	return &challengeStore{store: s}
}

// Create stores a new challenge. A duplicate session id surfaces as
// passkey.ErrChallengeExists.
func (c *challengeStore) Create(ctx context.Context, challenge *passkey.Challenge) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if challenge == nil || challenge.ID == "" || challenge.Kind == "" {
		return fmt.Errorf("challenge id and kind are required")
	}

	result, err := c.store.sqlDB.ExecContext(ctx,
		`INSERT OR IGNORE INTO challenges (id, kind, value, username, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		challenge.ID, string(challenge.Kind), challenge.Value, challenge.Username,
		toMillis(challenge.CreatedAt), toMillis(challenge.ExpiresAt))
	if err != nil {
		return fmt.Errorf("insert challenge: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert challenge: %w", err)
	}
	if affected == 0 {
		return passkey.ErrChallengeExists
	}
	return nil
}

// Find fetches a challenge by session id and kind. Expired rows are
// returned; expiry is the caller's decision.
func (c *challengeStore) Find(ctx context.Context, id string, kind passkey.CeremonyKind) (*passkey.Challenge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("challenge id is required")
	}

	row := c.store.sqlDB.QueryRowContext(ctx,
		`SELECT id, kind, value, username, created_at, expires_at
		 FROM challenges WHERE id = ? AND kind = ?`, id, string(kind))

	var challenge passkey.Challenge
	var kindText string
	var createdAt, expiresAt int64
	err := row.Scan(&challenge.ID, &kindText, &challenge.Value, &challenge.Username,
		&createdAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, passkey.ErrChallengeNotFound
		}
		return nil, fmt.Errorf("get challenge: %w", err)
	}
	challenge.Kind = passkey.CeremonyKind(kindText)
	challenge.CreatedAt = fromMillis(createdAt)
	challenge.ExpiresAt = fromMillis(expiresAt)
	return &challenge, nil
}

// Delete removes a challenge; absent rows are not an error. An empty kind
// matches any kind.
func (c *challengeStore) Delete(ctx context.Context, id string, kind passkey.CeremonyKind) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("challenge id is required")
	}

	_, err := c.store.sqlDB.ExecContext(ctx,
		`DELETE FROM challenges WHERE id = ? AND (kind = ? OR ? = '')`,
		id, string(kind), string(kind))
	if err != nil {
		return fmt.Errorf("delete challenge: %w", err)
	}
	return nil
}

// DeleteExpired removes challenges whose TTL elapsed before now.
func (c *challengeStore) DeleteExpired(ctx context.Context, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.store.sqlDB.ExecContext(ctx,
		`DELETE FROM challenges WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return fmt.Errorf("delete expired challenges: %w", err)
	}
	return nil
}
