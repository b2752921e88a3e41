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
	"encoding/json"
	"testing"
	"time"

	"github.com/descope/virtualwebauthn"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// authenticate runs one authentication ceremony with the given discoverable
// authenticator credential and returns the service results.
func (env *testEnv) authenticate(t *testing.T, authenticator virtualwebauthn.Authenticator,
	credential virtualwebauthn.Credential) (string, *User, error) {
	t.Helper()
	ctx := context.Background()

	options, sessionID, err := env.svc.BeginAuthentication(ctx)
	require.NoError(t, err)

	optionsJSON, err := json.Marshal(options.Response)
	require.NoError(t, err)
	parsedOptions, err := virtualwebauthn.ParseAssertionOptions(string(optionsJSON))
	require.NoError(t, err)

	assertion := virtualwebauthn.CreateAssertionResponse(
		testRelyingParty(), authenticator, credential, *parsedOptions)
	response, err := parseAssertionResponse(assertion)
	require.NoError(t, err)

	return env.svc.FinishAuthentication(ctx, sessionID, response)
}

// discoverableAuthenticator returns an authenticator that asserts the
// registration user handle, as a platform passkey would.
func discoverableAuthenticator(username string, credential virtualwebauthn.Credential) virtualwebauthn.Authenticator {
	authenticator := virtualwebauthn.NewAuthenticatorWithOptions(virtualwebauthn.AuthenticatorOptions{
		UserHandle: []byte(username),
	})
	authenticator.AddCredential(credential)
	return authenticator
}

func TestAuthentication_FullFlow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	env.register(t, "user-1", "alice", virtualwebauthn.NewAuthenticator(), credential)

	options, sessionID, err := env.svc.BeginAuthentication(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	// Usernameless flow: no allow list.
	assert.Empty(t, options.Response.AllowedCredentials)
	assert.Equal(t, testRPID, options.Response.RelyingPartyID)
	assert.NotEmpty(t, options.Response.Challenge)

	optionsJSON, err := json.Marshal(options.Response)
	require.NoError(t, err)
	parsedOptions, err := virtualwebauthn.ParseAssertionOptions(string(optionsJSON))
	require.NoError(t, err)

	credential.Counter++
	assertion := virtualwebauthn.CreateAssertionResponse(testRelyingParty(),
		discoverableAuthenticator("alice", credential), credential, *parsedOptions)
	response, err := parseAssertionResponse(assertion)
	require.NoError(t, err)

	token, user, err := env.svc.FinishAuthentication(ctx, sessionID, response)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, "alice", user.Username)

	claims, err := env.verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)

	// Challenge consumed.
	_, err = env.challenges.Find(ctx, sessionID, CeremonyAuthentication)
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestAuthentication_CounterAdvances(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	env.register(t, "user-1", "alice", virtualwebauthn.NewAuthenticator(), credential)
	authenticator := discoverableAuthenticator("alice", credential)

	for i := 0; i < 3; i++ {
		credential.Counter++
		_, _, err := env.authenticate(t, authenticator, credential)
		require.NoError(t, err)
	}

	stored, _, err := env.creds.FindByID(ctx, credential.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), stored.SignCount)
}

func TestAuthentication_CloneDetection(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	env.register(t, "user-1", "alice", virtualwebauthn.NewAuthenticator(), credential)
	authenticator := discoverableAuthenticator("alice", credential)

	credential.Counter++
	_, _, err := env.authenticate(t, authenticator, credential)
	require.NoError(t, err)

	// Replaying the same counter value is a clone signal: the reported
	// counter does not advance past the stored one.
	_, _, err = env.authenticate(t, authenticator, credential)
	assert.ErrorIs(t, err, ErrClonedAuthenticator)

	// The stored counter is untouched by the rejected attempt.
	stored, _, err := env.creds.FindByID(ctx, credential.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), stored.SignCount)
}

func TestAuthentication_UnknownCredential(t *testing.T) {
	env := newTestEnv(t)

	// Nothing registered; assert with a credential the server never saw.
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	credential.Counter++
	_, _, err := env.authenticate(t, discoverableAuthenticator("ghost", credential), credential)
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestAuthentication_ReplaySessionID(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	env.register(t, "user-1", "alice", virtualwebauthn.NewAuthenticator(), credential)
	authenticator := discoverableAuthenticator("alice", credential)

	options, sessionID, err := env.svc.BeginAuthentication(ctx)
	require.NoError(t, err)

	optionsJSON, _ := json.Marshal(options.Response)
	parsedOptions, err := virtualwebauthn.ParseAssertionOptions(string(optionsJSON))
	require.NoError(t, err)

	credential.Counter++
	assertion := virtualwebauthn.CreateAssertionResponse(testRelyingParty(),
		authenticator, credential, *parsedOptions)
	response, err := parseAssertionResponse(assertion)
	require.NoError(t, err)

	_, _, err = env.svc.FinishAuthentication(ctx, sessionID, response)
	require.NoError(t, err)

	_, _, err = env.svc.FinishAuthentication(ctx, sessionID, response)
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestAuthentication_ExpiredChallenge(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	env.register(t, "user-1", "alice", virtualwebauthn.NewAuthenticator(), credential)

	expired := &Challenge{
		ID:        "expired-auth",
		Kind:      CeremonyAuthentication,
		Value:     "c29tZS1jaGFsbGVuZ2U",
		CreatedAt: time.Now().UTC().Add(-10 * time.Minute),
		ExpiresAt: time.Now().UTC().Add(-5 * time.Minute),
	}
	require.NoError(t, env.challenges.Create(ctx, expired))

	// Expiry is checked before verification, so a bare response naming the
	// enrolled credential is enough.
	response := &protocol.ParsedCredentialAssertionData{}
	response.RawID = credential.ID

	_, _, err := env.svc.FinishAuthentication(ctx, "expired-auth", response)
	assert.ErrorIs(t, err, ErrChallengeExpired)
}

func TestAuthentication_WrongOrigin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	env.register(t, "user-1", "alice", virtualwebauthn.NewAuthenticator(), credential)
	authenticator := discoverableAuthenticator("alice", credential)

	options, sessionID, err := env.svc.BeginAuthentication(ctx)
	require.NoError(t, err)

	optionsJSON, _ := json.Marshal(options.Response)
	parsedOptions, err := virtualwebauthn.ParseAssertionOptions(string(optionsJSON))
	require.NoError(t, err)

	// The assertion is signed for another origin; binding checks must fail.
	evilRP := testRelyingParty()
	evilRP.Origin = "https://evil.example.net"
	credential.Counter++
	assertion := virtualwebauthn.CreateAssertionResponse(evilRP, authenticator, credential, *parsedOptions)
	response, err := parseAssertionResponse(assertion)
	require.NoError(t, err)

	_, _, err = env.svc.FinishAuthentication(ctx, sessionID, response)
	assert.ErrorIs(t, err, ErrVerificationFailed)
}
