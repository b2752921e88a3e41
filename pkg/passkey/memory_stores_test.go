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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryUserStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()

	user := &User{ID: "user-1", Username: "alice"}
	require.NoError(t, store.Create(ctx, user))

	found, err := store.FindByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", found.Username)

	// Duplicate id and duplicate username both conflict.
	assert.ErrorIs(t, store.Create(ctx, &User{ID: "user-1", Username: "bob"}), ErrUserExists)
	assert.ErrorIs(t, store.Create(ctx, &User{ID: "user-2", Username: "alice"}), ErrUserExists)

	_, err = store.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemoryCredentialStore(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryUserStore()
	store := NewMemoryCredentialStore(users)

	require.NoError(t, users.Create(ctx, &User{ID: "user-1", Username: "alice"}))

	credential := &Credential{
		ID:        []byte{0x01, 0x02, 0x03},
		PublicKey: []byte{0xaa},
		UserID:    "user-1",
	}
	require.NoError(t, store.Create(ctx, credential))
	assert.ErrorIs(t, store.Create(ctx, credential), ErrCredentialExists)

	found, owner, err := store.FindByID(ctx, credential.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", found.UserID)
	assert.Equal(t, "alice", owner.Username)

	_, _, err = store.FindByID(ctx, []byte{0xff})
	assert.ErrorIs(t, err, ErrCredentialNotFound)

	require.NoError(t, store.UpdateCounter(ctx, credential.ID, 7))
	found, _, err = store.FindByID(ctx, credential.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), found.SignCount)

	assert.ErrorIs(t, store.UpdateCounter(ctx, []byte{0xff}, 1), ErrCredentialNotFound)
}

func TestMemoryChallengeStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryChallengeStore()
	now := time.Now().UTC()

	challenge := &Challenge{
		ID:        "session-1",
		Kind:      CeremonyRegistration,
		Value:     "Y2hhbGxlbmdl",
		Username:  "alice",
		CreatedAt: now,
		ExpiresAt: now.Add(5 * time.Minute),
	}
	require.NoError(t, store.Create(ctx, challenge))
	assert.ErrorIs(t, store.Create(ctx, challenge), ErrChallengeExists)

	found, err := store.Find(ctx, "session-1", CeremonyRegistration)
	require.NoError(t, err)
	assert.Equal(t, "alice", found.Username)

	// Kind is part of the lookup key.
	_, err = store.Find(ctx, "session-1", CeremonyAuthentication)
	assert.ErrorIs(t, err, ErrChallengeNotFound)

	// Deleting under the wrong kind is a no-op.
	require.NoError(t, store.Delete(ctx, "session-1", CeremonyAuthentication))
	_, err = store.Find(ctx, "session-1", CeremonyRegistration)
	require.NoError(t, err)

	// Empty kind matches any kind; deletes are idempotent.
	require.NoError(t, store.Delete(ctx, "session-1", ""))
	_, err = store.Find(ctx, "session-1", CeremonyRegistration)
	assert.ErrorIs(t, err, ErrChallengeNotFound)
	require.NoError(t, store.Delete(ctx, "session-1", ""))
}

func TestMemoryChallengeStore_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryChallengeStore()
	now := time.Now().UTC()

	require.NoError(t, store.Create(ctx, &Challenge{
		ID: "live", Kind: CeremonyRegistration,
		ExpiresAt: now.Add(time.Minute),
	}))
	require.NoError(t, store.Create(ctx, &Challenge{
		ID: "stale", Kind: CeremonyAuthentication,
		ExpiresAt: now.Add(-time.Minute),
	}))

	require.NoError(t, store.DeleteExpired(ctx, now))

	_, err := store.Find(ctx, "live", CeremonyRegistration)
	require.NoError(t, err)
	_, err = store.Find(ctx, "stale", CeremonyAuthentication)
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestMemoryStores_ReturnCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()
	require.NoError(t, store.Create(ctx, &User{ID: "user-1", Username: "alice"}))

	found, err := store.FindByID(ctx, "user-1")
	require.NoError(t, err)
	found.Username = "mutated"

	again, err := store.FindByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", again.Username)
}
