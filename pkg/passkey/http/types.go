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

package http

import (
	"encoding/json"

	"github.com/go-webauthn/webauthn/protocol"
)

// SessionCookieName is the cookie that carries the signed session token.
const SessionCookieName = "sessionToken"

// Error codes returned in JSON error responses.
const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeNotFound           = "not_found"
	ErrorCodeConflict           = "conflict"
	ErrorCodeVerificationFailed = "verification_failed"
	ErrorCodeUnauthorized       = "unauthorized"
	ErrorCodeConfigError        = "config_error"
	ErrorCodeInternalError      = "internal_error"
)

// RegistrationOptionsRequest is the body of POST /passkey/registration/options.
type RegistrationOptionsRequest struct {
	Username string `json:"username"`
}

// RegistrationOptionsResponse carries creation options plus the ceremony
// session id the client echoes back at verify time.
type RegistrationOptionsResponse struct {
	Options   *protocol.CredentialCreation `json:"options"`
	SessionID string                       `json:"sessionId"`
}

// ClaimedUser is the identity the registering client claims.
type ClaimedUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// RegistrationVerifyRequest is the body of POST /passkey/registration/verify.
// RegistrationResponse is the raw authenticator attestation, passed through
// to the protocol parser.
type RegistrationVerifyRequest struct {
	RegistrationResponse json.RawMessage `json:"registrationResponse"`
	SessionID            string          `json:"sessionId"`
	User                 ClaimedUser     `json:"user"`
}

// RegistrationVerifyResponse is the success body of registration verify.
type RegistrationVerifyResponse struct {
	Success  bool `json:"success"`
	Verified bool `json:"verified"`
}

// AuthenticationOptionsResponse carries assertion options plus the ceremony
// session id.
type AuthenticationOptionsResponse struct {
	OptionsJSON *protocol.CredentialAssertion `json:"optionsJSON"`
	SessionID   string                        `json:"sessionId"`
}

// AuthenticationVerifyRequest is the body of POST /passkey/authentication/verify.
type AuthenticationVerifyRequest struct {
	AuthenticationResponse json.RawMessage `json:"authenticationResponse"`
	SessionID              string          `json:"sessionId"`
}

// UserPayload is the public projection of a user record.
type UserPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// AuthenticationVerifyResponse is the success body of authentication verify.
type AuthenticationVerifyResponse struct {
	Verified bool         `json:"verified"`
	User     *UserPayload `json:"user,omitempty"`
}

// VerifyFailedResponse is the body returned when attestation or assertion
// verification fails. Verification failures are a ceremony outcome, not a
// server fault.
type VerifyFailedResponse struct {
	Verified bool   `json:"verified"`
	Error    string `json:"error"`
}

// DeleteSessionRequest is the body of DELETE /passkey/registration/session.
// An empty SessionType matches any ceremony kind.
type DeleteSessionRequest struct {
	SessionID   string `json:"sessionId"`
	SessionType string `json:"sessionType,omitempty"`
}

// DeleteSessionResponse is the body of a session delete.
type DeleteSessionResponse struct {
	Success bool `json:"success"`
}

// LogoutResponse is the body of POST /logout.
type LogoutResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the generic JSON error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
