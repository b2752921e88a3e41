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
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-webauthn/webauthn/protocol"

	"github.com/passkeyd/passkeyd/pkg/passkey"
)

type credentialStore struct {
	store *Store
}

// Credentials returns the CredentialStore view of the database.
func (s *Store) Credentials() passkey.CredentialStore {
	return &credentialStore{store: s}
}

// encodeCredentialID renders the binary credential id as its base64url text
// form, the same encoding authenticators use on the wire.
func encodeCredentialID(id []byte) string {
	return base64.RawURLEncoding.EncodeToString(id)
}

func encodeTransports(transports []protocol.AuthenticatorTransport) string {
	parts := make([]string, 0, len(transports))
	for _, t := range transports {
		parts = append(parts, string(t))
	}
	return strings.Join(parts, ",")
}

func decodeTransports(value string) []protocol.AuthenticatorTransport {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	transports := make([]protocol.AuthenticatorTransport, 0, len(parts))
	for _, p := range parts {
		transports = append(transports, protocol.AuthenticatorTransport(p))
	}
	return transports
}

// Create stores a new credential. A duplicate credential id surfaces as
// passkey.ErrCredentialExists.
func (c *credentialStore) Create(ctx context.Context, credential *passkey.Credential) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if credential == nil || len(credential.ID) == 0 {
		return fmt.Errorf("credential id is required")
	}
	if credential.UserID == "" {
		return fmt.Errorf("user id is required")
	}

	backedUp := 0
	if credential.BackedUp {
		backedUp = 1
	}
	result, err := c.store.sqlDB.ExecContext(ctx,
		`INSERT OR IGNORE INTO credentials
		 (id, public_key, user_id, sign_count, device_type, backed_up, transports, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		encodeCredentialID(credential.ID), credential.PublicKey, credential.UserID,
		credential.SignCount, credential.DeviceType, backedUp,
		encodeTransports(credential.Transports),
		toMillis(credential.CreatedAt), toMillis(credential.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	if affected == 0 {
		return passkey.ErrCredentialExists
	}
	return nil
}

// FindByID fetches a credential and its owning user in one query.
func (c *credentialStore) FindByID(ctx context.Context, credentialID []byte) (*passkey.Credential, *passkey.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if len(credentialID) == 0 {
		return nil, nil, fmt.Errorf("credential id is required")
	}

	row := c.store.sqlDB.QueryRowContext(ctx,
		`SELECT c.public_key, c.sign_count, c.device_type, c.backed_up, c.transports,
		        c.created_at, c.updated_at,
		        u.id, u.username, u.created_at, u.updated_at
		 FROM credentials c
		 JOIN users u ON u.id = c.user_id
		 WHERE c.id = ?`, encodeCredentialID(credentialID))

	var credential passkey.Credential
	var user passkey.User
	var backedUp int
	var transports string
	var cCreated, cUpdated, uCreated, uUpdated int64
	err := row.Scan(&credential.PublicKey, &credential.SignCount, &credential.DeviceType,
		&backedUp, &transports, &cCreated, &cUpdated,
		&user.ID, &user.Username, &uCreated, &uUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, passkey.ErrCredentialNotFound
		}
		return nil, nil, fmt.Errorf("get credential: %w", err)
	}

	credential.ID = append([]byte(nil), credentialID...)
	credential.UserID = user.ID
	credential.BackedUp = backedUp != 0
	credential.Transports = decodeTransports(transports)
	credential.CreatedAt = fromMillis(cCreated)
	credential.UpdatedAt = fromMillis(cUpdated)
	user.CreatedAt = fromMillis(uCreated)
	user.UpdatedAt = fromMillis(uUpdated)
	return &credential, &user, nil
}

// UpdateCounter persists a new signature counter.
func (c *credentialStore) UpdateCounter(ctx context.Context, credentialID []byte, counter uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(credentialID) == 0 {
		return fmt.Errorf("credential id is required")
	}

	result, err := c.store.sqlDB.ExecContext(ctx,
		`UPDATE credentials SET sign_count = ?, updated_at = ? WHERE id = ?`,
		counter, toMillis(time.Now()), encodeCredentialID(credentialID))
	if err != nil {
		return fmt.Errorf("update counter: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update counter: %w", err)
	}
	if affected == 0 {
		return passkey.ErrCredentialNotFound
	}
	return nil
}
