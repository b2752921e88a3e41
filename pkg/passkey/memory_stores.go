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
	"encoding/hex"
	"sync"
	"time"
)

// MemoryUserStore is an in-memory UserStore for development and tests.
type MemoryUserStore struct {
	mu         sync.RWMutex
	byID       map[string]*User
	byUsername map[string]string
}

// NewMemoryUserStore creates an empty in-memory user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byID:       make(map[string]*User),
		byUsername: make(map[string]string),
	}
}

func (s *MemoryUserStore) Create(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[user.ID]; ok {
		return ErrUserExists
	}
	if _, ok := s.byUsername[user.Username]; ok {
		return ErrUserExists
	}
	u := *user
	s.byID[u.ID] = &u
	s.byUsername[u.Username] = u.ID
	return nil
}

func (s *MemoryUserStore) FindByID(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := *user
	return &u, nil
}

// MemoryCredentialStore is an in-memory CredentialStore. It resolves
// credential owners through the sibling user store, mirroring the join the
// durable implementation performs.
type MemoryCredentialStore struct {
	mu    sync.RWMutex
	byID  map[string]*Credential
	users *MemoryUserStore
}

// NewMemoryCredentialStore creates an empty in-memory credential store that
// resolves owners against users.
func NewMemoryCredentialStore(users *MemoryUserStore) *MemoryCredentialStore {
	return &MemoryCredentialStore{
		byID:  make(map[string]*Credential),
		users: users,
	}
}

func (s *MemoryCredentialStore) Create(_ context.Context, credential *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := hex.EncodeToString(credential.ID)
	if _, ok := s.byID[key]; ok {
		return ErrCredentialExists
	}
	c := *credential
	s.byID[key] = &c
	return nil
}

func (s *MemoryCredentialStore) FindByID(ctx context.Context, credentialID []byte) (*Credential, *User, error) {
	s.mu.RLock()
	credential, ok := s.byID[hex.EncodeToString(credentialID)]
	if !ok {
		s.mu.RUnlock()
		return nil, nil, ErrCredentialNotFound
	}
	c := *credential
	s.mu.RUnlock()

	user, err := s.users.FindByID(ctx, c.UserID)
	if err != nil {
		return nil, nil, err
	}
	return &c, user, nil
}

func (s *MemoryCredentialStore) UpdateCounter(_ context.Context, credentialID []byte, counter uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	credential, ok := s.byID[hex.EncodeToString(credentialID)]
	if !ok {
		return ErrCredentialNotFound
	}
	credential.SignCount = counter
	credential.UpdatedAt = time.Now().UTC()
	return nil
}

// MemoryChallengeStore is an in-memory ChallengeStore.
type MemoryChallengeStore struct {
	mu   sync.RWMutex
	byID map[string]*Challenge
}

// NewMemoryChallengeStore creates an empty in-memory challenge store.
func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{
		byID: make(map[string]*Challenge),
	}
}

func (s *MemoryChallengeStore) Create(_ context.Context, challenge *Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[challenge.ID]; ok {
		return ErrChallengeExists
	}
	c := *challenge
	s.byID[c.ID] = &c
	return nil
}

func (s *MemoryChallengeStore) Find(_ context.Context, id string, kind CeremonyKind) (*Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	challenge, ok := s.byID[id]
	if !ok || challenge.Kind != kind {
		return nil, ErrChallengeNotFound
	}
	c := *challenge
	return &c, nil
}

func (s *MemoryChallengeStore) Delete(_ context.Context, id string, kind CeremonyKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, ok := s.byID[id]
	if !ok {
		return nil
	}
	if kind != "" && challenge.Kind != kind {
		return nil
	}
	delete(s.byID, id)
	return nil
}

func (s *MemoryChallengeStore) DeleteExpired(_ context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, challenge := range s.byID {
		if challenge.Expired(now) {
			delete(s.byID, id)
		}
	}
	return nil
}
