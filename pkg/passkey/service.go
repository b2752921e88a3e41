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
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
)

// Service runs the two-step registration and authentication ceremonies over
// pluggable stores and issues session tokens on success.
type Service struct {
	webauthn   *webauthn.WebAuthn
	config     *Config
	users      UserStore
	creds      CredentialStore
	challenges ChallengeStore
	tokens     TokenIssuer
}

// ServiceParams holds the dependencies for NewService. All fields are
// required.
type ServiceParams struct {
	Config          *Config
	UserStore       UserStore
	CredentialStore CredentialStore
	ChallengeStore  ChallengeStore
	TokenIssuer     TokenIssuer
}

// NewService validates params and constructs the ceremony service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, fmt.Errorf("%w: config is required", ErrNotConfigured)
	}
	params.Config.SetDefaults()
	if err := params.Config.Validate(); err != nil {
		return nil, err
	}
	if params.UserStore == nil {
		return nil, fmt.Errorf("%w: user store is required", ErrNotConfigured)
	}
	if params.CredentialStore == nil {
		return nil, fmt.Errorf("%w: credential store is required", ErrNotConfigured)
	}
	if params.ChallengeStore == nil {
		return nil, fmt.Errorf("%w: challenge store is required", ErrNotConfigured)
	}
	if params.TokenIssuer == nil {
		return nil, fmt.Errorf("%w: token issuer is required", ErrNotConfigured)
	}

	w, err := webauthn.New(params.Config.toWebAuthnConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}

	return &Service{
		webauthn:   w,
		config:     params.Config,
		users:      params.UserStore,
		creds:      params.CredentialStore,
		challenges: params.ChallengeStore,
		tokens:     params.TokenIssuer,
	}, nil
}

// Config returns the service configuration.
func (s *Service) Config() *Config {
	return s.config
}

// GetUser loads a user by id.
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, wrapErr("get user", ErrInvalidRequest)
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, wrapErr("get user", err)
	}
	return user, nil
}

// AbandonCeremony discards a pending challenge before it is consumed, for
// clients that cancel a ceremony explicitly. An empty kind matches any kind.
// Deleting an unknown session id is not an error.
func (s *Service) AbandonCeremony(ctx context.Context, sessionID string, kind CeremonyKind) error {
	if sessionID == "" {
		return wrapErr("abandon ceremony", ErrInvalidRequest)
	}
	if err := s.challenges.Delete(ctx, sessionID, kind); err != nil {
		return wrapErr("abandon ceremony", err)
	}
	return nil
}

// consumeChallenge loads a pending challenge, schedules its one-shot
// deletion, and enforces expiry. The returned cleanup must run on every exit
// path once the challenge was found.
func (s *Service) consumeChallenge(ctx context.Context, sessionID string, kind CeremonyKind) (*Challenge, func(), error) {
	challenge, err := s.challenges.Find(ctx, sessionID, kind)
	if err != nil {
		return nil, nil, wrapErr("find challenge", err)
	}
	// Best effort: a failed delete must not mask the ceremony outcome.
	cleanup := func() { _ = s.challenges.Delete(ctx, sessionID, kind) }

	if challenge.Expired(time.Now().UTC()) {
		cleanup()
		return nil, nil, wrapErr("find challenge", ErrChallengeExpired)
	}
	return challenge, cleanup, nil
}
