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

package passkey

import (
	"context"
	"time"
)

// UserStore persists identity records.
type UserStore interface {
	// Create stores a new user. Returns ErrUserExists if the id or username
	// is already taken.
	Create(ctx context.Context, user *User) error

	// FindByID returns the user with the given id or ErrUserNotFound.
	FindByID(ctx context.Context, id string) (*User, error)
}

// CredentialStore persists enrolled credentials.
type CredentialStore interface {
	// Create stores a new credential. Returns ErrCredentialExists if the
	// credential id is already enrolled.
	Create(ctx context.Context, credential *Credential) error

	// FindByID returns the credential with the given id and its owning user,
	// or ErrCredentialNotFound.
	FindByID(ctx context.Context, credentialID []byte) (*Credential, *User, error)

	// UpdateCounter persists a new signature counter. Returns
	// ErrCredentialNotFound if the credential does not exist.
	UpdateCounter(ctx context.Context, credentialID []byte, counter uint32) error
}

// ChallengeStore persists pending ceremony challenges. Rows are created once
// and deleted once; there are no updates. Find returns expired rows so that
// callers decide how expiry surfaces.
type ChallengeStore interface {
	// Create stores a new challenge. Returns ErrChallengeExists if the
	// session id is already pending.
	Create(ctx context.Context, challenge *Challenge) error

	// Find returns the challenge with the given session id and kind, or
	// ErrChallengeNotFound.
	Find(ctx context.Context, id string, kind CeremonyKind) (*Challenge, error)

	// Delete removes a challenge. Deleting an absent row is not an error.
	// An empty kind matches any kind.
	Delete(ctx context.Context, id string, kind CeremonyKind) error

	// DeleteExpired removes all challenges whose TTL elapsed before now.
	DeleteExpired(ctx context.Context, now time.Time) error
}

// TokenIssuer mints the signed session token returned by a successful
// ceremony.
type TokenIssuer interface {
	Issue(userID, username string, ttl time.Duration) (string, error)
}
