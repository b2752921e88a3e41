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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapErr(t *testing.T) {
	assert.Nil(t, wrapErr("op", nil))

	err := wrapErr("find challenge", ErrChallengeNotFound)
	assert.ErrorIs(t, err, ErrChallengeNotFound)
	assert.Contains(t, err.Error(), "find challenge")

	var opErr *Error
	assert.True(t, errors.As(err, &opErr))
	assert.Equal(t, "find challenge", opErr.Op)
}

func TestFailVerification(t *testing.T) {
	cause := errors.New("signature mismatch")
	err := failVerification("verify assertion", cause)
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.Contains(t, err.Error(), "signature mismatch")
}

func TestErrorClassifiers(t *testing.T) {
	assert.True(t, IsNotFound(wrapErr("x", ErrChallengeNotFound)))
	assert.True(t, IsNotFound(wrapErr("x", ErrChallengeExpired)))
	assert.True(t, IsNotFound(wrapErr("x", ErrUserNotFound)))
	assert.True(t, IsNotFound(wrapErr("x", ErrCredentialNotFound)))
	assert.False(t, IsNotFound(wrapErr("x", ErrUserExists)))

	assert.True(t, IsConflict(wrapErr("x", ErrUserExists)))
	assert.True(t, IsConflict(wrapErr("x", ErrCredentialExists)))
	assert.True(t, IsConflict(wrapErr("x", ErrChallengeExists)))
	assert.False(t, IsConflict(wrapErr("x", ErrVerificationFailed)))
}
