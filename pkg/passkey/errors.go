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
	"fmt"
)

// Sentinel errors returned by the ceremony service and the store
// implementations. Callers match them with errors.Is.
var (
	// ErrChallengeNotFound indicates the ceremony session id does not match a
	// pending challenge of the expected kind.
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrChallengeExpired indicates the challenge exists but its TTL has
	// elapsed.
	ErrChallengeExpired = errors.New("challenge expired")

	// ErrChallengeExists indicates a challenge with the same session id is
	// already pending.
	ErrChallengeExists = errors.New("challenge already exists")

	// ErrUserNotFound indicates no user record matches the given id.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists indicates the user id or username is already taken.
	ErrUserExists = errors.New("user already exists")

	// ErrCredentialNotFound indicates no enrolled credential matches the
	// given credential id.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrCredentialExists indicates the credential id is already enrolled.
	ErrCredentialExists = errors.New("credential already exists")

	// ErrVerificationFailed indicates the attestation or assertion failed
	// cryptographic or binding checks (challenge, origin, RP id, signature,
	// user verification).
	ErrVerificationFailed = errors.New("verification failed")

	// ErrClonedAuthenticator indicates the signature counter did not advance,
	// a signal that the credential private key may have been cloned.
	ErrClonedAuthenticator = errors.New("authenticator may be cloned")

	// ErrNotConfigured indicates the service was constructed with missing or
	// invalid relying party configuration.
	ErrNotConfigured = errors.New("service not configured")

	// ErrInvalidRequest indicates malformed ceremony input, such as an empty
	// username or session id.
	ErrInvalidRequest = errors.New("invalid request")
)

// Error wraps a sentinel with the operation that produced it.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("passkey: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrapErr tags err with the failing operation, preserving errors.Is matching.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// failVerification folds a library verification error into
// ErrVerificationFailed while keeping the underlying detail in the message.
func failVerification(op string, cause error) error {
	return &Error{Op: op, Err: fmt.Errorf("%w: %v", ErrVerificationFailed, cause)}
}

// IsNotFound reports whether err represents a missing or expired record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrChallengeNotFound) ||
		errors.Is(err, ErrChallengeExpired) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrCredentialNotFound)
}

// IsConflict reports whether err represents a duplicate record.
func IsConflict(err error) bool {
	return errors.Is(err, ErrChallengeExists) ||
		errors.Is(err, ErrUserExists) ||
		errors.Is(err, ErrCredentialExists)
}
