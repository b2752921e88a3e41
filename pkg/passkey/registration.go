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

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
)

// BeginRegistration starts a registration ceremony for username. It returns
// the credential creation options to pass to the browser and the opaque
// session id the client must echo back at verify time.
//
// The exclude list is intentionally left empty: the caller may enroll a new
// credential without proving which authenticators it already holds.
func (s *Service) BeginRegistration(ctx context.Context, username string) (*protocol.CredentialCreation, string, error) {
	if username == "" {
		return nil, "", wrapErr("begin registration", fmt.Errorf("%w: username is required", ErrInvalidRequest))
	}

	user := &ceremonyUser{handle: []byte(username), name: username}
	options, session, err := s.webauthn.BeginRegistration(user)
	if err != nil {
		return nil, "", wrapErr("begin registration", err)
	}

	now := time.Now().UTC()
	challenge := &Challenge{
		ID:        uuid.NewString(),
		Kind:      CeremonyRegistration,
		Value:     session.Challenge,
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.ChallengeTTL),
	}
	if err := s.challenges.Create(ctx, challenge); err != nil {
		return nil, "", wrapErr("store challenge", err)
	}

	return options, challenge.ID, nil
}

// FinishRegistration completes a registration ceremony: it consumes the
// challenge (deleted on every outcome), verifies the attestation against the
// challenge, origin and RP id, enrolls the user and credential, and returns
// a signed session token with the new user.
//
// The claimed username must match the one the challenge was issued for.
func (s *Service) FinishRegistration(ctx context.Context, sessionID string,
	response *protocol.ParsedCredentialCreationData, claimed User) (string, *User, error) {

	if sessionID == "" || response == nil {
		return "", nil, wrapErr("finish registration", ErrInvalidRequest)
	}
	if claimed.ID == "" || claimed.Username == "" {
		return "", nil, wrapErr("finish registration", fmt.Errorf("%w: user id and username are required", ErrInvalidRequest))
	}

	challenge, cleanup, err := s.consumeChallenge(ctx, sessionID, CeremonyRegistration)
	if err != nil {
		return "", nil, err
	}
	defer cleanup()

	if claimed.Username != challenge.Username {
		return "", nil, failVerification("finish registration",
			fmt.Errorf("username %q does not match pending registration", claimed.Username))
	}

	// Rebuild the library session from the challenge row. The registration
	// user handle is the username bytes, so no extra state is needed.
	session := webauthn.SessionData{
		Challenge: challenge.Value,
		UserID:    []byte(challenge.Username),
		Expires:   challenge.ExpiresAt,
	}
	user := &ceremonyUser{handle: []byte(challenge.Username), name: challenge.Username}

	verified, err := s.webauthn.CreateCredential(user, session, response)
	if err != nil {
		return "", nil, failVerification("verify attestation", err)
	}

	now := time.Now().UTC()
	record := &User{
		ID:        claimed.ID,
		Username:  claimed.Username,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, record); err != nil {
		return "", nil, wrapErr("create user", err)
	}
	if err := s.creds.Create(ctx, newCredential(record.ID, verified, now)); err != nil {
		return "", nil, wrapErr("create credential", err)
	}

	token, err := s.tokens.Issue(record.ID, record.Username, s.config.RegistrationTokenTTL)
	if err != nil {
		return "", nil, wrapErr("issue session token", err)
	}
	return token, record, nil
}
