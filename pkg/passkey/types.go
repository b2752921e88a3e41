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
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// CeremonyKind distinguishes the two challenge flavors a session id can
// identify.
type CeremonyKind string

const (
	CeremonyRegistration   CeremonyKind = "registration"
	CeremonyAuthentication CeremonyKind = "authentication"
)

// User is an identity record. The id is assigned by the registering client
// and the username is unique across users.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Device type values recorded at enrollment, mirroring the WebAuthn
// backup-eligibility split.
const (
	DeviceTypeSingle = "singleDevice"
	DeviceTypeMulti  = "multiDevice"
)

// Credential is an enrolled public-key credential bound to a user.
type Credential struct {
	ID         []byte                            `json:"id"`
	PublicKey  []byte                            `json:"publicKey"`
	UserID     string                            `json:"userId"`
	SignCount  uint32                            `json:"signCount"`
	DeviceType string                            `json:"deviceType"`
	BackedUp   bool                              `json:"backedUp"`
	Transports []protocol.AuthenticatorTransport `json:"transports,omitempty"`
	CreatedAt  time.Time                         `json:"createdAt"`
	UpdatedAt  time.Time                         `json:"updatedAt"`
}

// newCredential builds a Credential record from a verified go-webauthn
// credential.
func newCredential(userID string, wc *webauthn.Credential, now time.Time) *Credential {
	deviceType := DeviceTypeSingle
	if wc.Flags.BackupEligible {
		deviceType = DeviceTypeMulti
	}
	return &Credential{
		ID:         wc.ID,
		PublicKey:  wc.PublicKey,
		UserID:     userID,
		SignCount:  wc.Authenticator.SignCount,
		DeviceType: deviceType,
		BackedUp:   wc.Flags.BackupState,
		Transports: wc.Transport,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// toWebAuthn converts the stored record back into the library shape used
// during assertion validation.
func (c *Credential) toWebAuthn() webauthn.Credential {
	return webauthn.Credential{
		ID:        c.ID,
		PublicKey: c.PublicKey,
		Transport: c.Transports,
		Flags: webauthn.CredentialFlags{
			BackupEligible: c.DeviceType == DeviceTypeMulti,
			BackupState:    c.BackedUp,
		},
		Authenticator: webauthn.Authenticator{
			SignCount: c.SignCount,
		},
	}
}

// Challenge is one pending ceremony: created when options are issued,
// consumed exactly once when the ceremony finishes or is abandoned.
type Challenge struct {
	ID        string       `json:"id"`
	Kind      CeremonyKind `json:"kind"`
	Value     string       `json:"value"`
	Username  string       `json:"username,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// Expired reports whether the challenge TTL has elapsed at now.
func (c *Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// ceremonyUser satisfies webauthn.User for option generation and
// verification. The handle for registration is the username bytes, so it is
// reconstructable from the challenge row; for authentication it echoes the
// handle the authenticator asserted, since credential ownership is resolved
// by our own store lookup.
type ceremonyUser struct {
	handle      []byte
	name        string
	credentials []webauthn.Credential
}

func (u *ceremonyUser) WebAuthnID() []byte                         { return u.handle }
func (u *ceremonyUser) WebAuthnName() string                       { return u.name }
func (u *ceremonyUser) WebAuthnDisplayName() string                { return u.name }
func (u *ceremonyUser) WebAuthnCredentials() []webauthn.Credential { return u.credentials }
