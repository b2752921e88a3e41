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
	"bytes"
	"context"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
)

// BeginAuthentication starts a usernameless authentication ceremony. The
// returned options carry no credential allow list; any discoverable
// credential for this RP may answer.
func (s *Service) BeginAuthentication(ctx context.Context) (*protocol.CredentialAssertion, string, error) {
	options, session, err := s.webauthn.BeginDiscoverableLogin()
	if err != nil {
		return nil, "", wrapErr("begin authentication", err)
	}

	now := time.Now().UTC()
	challenge := &Challenge{
		ID:        uuid.NewString(),
		Kind:      CeremonyAuthentication,
		Value:     session.Challenge,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.ChallengeTTL),
	}
	if err := s.challenges.Create(ctx, challenge); err != nil {
		return nil, "", wrapErr("store challenge", err)
	}

	return options, challenge.ID, nil
}

// FinishAuthentication completes an authentication ceremony: it resolves the
// credential the assertion names, consumes the challenge (deleted on every
// outcome), validates the assertion with user verification required, rejects
// non-advancing signature counters as clone signals, persists the new
// counter and returns a signed session token with the credential owner.
func (s *Service) FinishAuthentication(ctx context.Context, sessionID string,
	response *protocol.ParsedCredentialAssertionData) (string, *User, error) {

	if sessionID == "" || response == nil {
		return "", nil, wrapErr("finish authentication", ErrInvalidRequest)
	}

	credential, owner, err := s.creds.FindByID(ctx, response.RawID)
	if err != nil {
		return "", nil, wrapErr("find credential", err)
	}

	challenge, cleanup, err := s.consumeChallenge(ctx, sessionID, CeremonyAuthentication)
	if err != nil {
		return "", nil, err
	}
	defer cleanup()

	session := webauthn.SessionData{
		Challenge:        challenge.Value,
		Expires:          challenge.ExpiresAt,
		UserVerification: protocol.VerificationRequired,
	}

	// The handler echoes the asserted user handle; ownership is established
	// by our credential lookup above, the library checks the signature,
	// challenge, origin and RP id against the stored public key.
	validated, err := s.webauthn.ValidateDiscoverableLogin(
		func(rawID, userHandle []byte) (webauthn.User, error) {
			if !bytes.Equal(rawID, credential.ID) {
				return nil, ErrCredentialNotFound
			}
			return &ceremonyUser{
				handle:      userHandle,
				name:        owner.Username,
				credentials: []webauthn.Credential{credential.toWebAuthn()},
			}, nil
		}, session, response)
	if err != nil {
		return "", nil, failVerification("verify assertion", err)
	}

	// UpdateCounter flags a reported counter at or below the stored one
	// (either non-zero) instead of erroring; escalate it and leave the
	// stored counter untouched.
	if validated.Authenticator.CloneWarning {
		return "", nil, wrapErr("verify assertion", ErrClonedAuthenticator)
	}
	if validated.Authenticator.SignCount != credential.SignCount {
		if err := s.creds.UpdateCounter(ctx, credential.ID, validated.Authenticator.SignCount); err != nil {
			return "", nil, wrapErr("update counter", err)
		}
	}

	token, err := s.tokens.Issue(owner.ID, owner.Username, s.config.AuthenticationTokenTTL)
	if err != nil {
		return "", nil, wrapErr("issue session token", err)
	}
	return token, owner, nil
}
