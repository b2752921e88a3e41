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
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// Config holds relying party settings for the ceremony service.
type Config struct {
	// RPDisplayName is the human-readable relying party name shown by the
	// authenticator UI.
	RPDisplayName string `yaml:"rp_display_name" json:"rp_display_name" mapstructure:"rp_display_name"`

	// RPID is the relying party identifier, typically the site's registrable
	// domain (e.g. "example.com").
	RPID string `yaml:"rp_id" json:"rp_id" mapstructure:"rp_id"`

	// RPOrigin is the web origin assertions and attestations must be bound
	// to (e.g. "https://example.com").
	RPOrigin string `yaml:"rp_origin" json:"rp_origin" mapstructure:"rp_origin"`

	// ChallengeTTL bounds how long an issued challenge may be completed.
	ChallengeTTL time.Duration `yaml:"challenge_ttl" json:"challenge_ttl" mapstructure:"challenge_ttl"`

	// RegistrationTokenTTL is the lifetime of the session token issued after
	// a successful registration ceremony.
	RegistrationTokenTTL time.Duration `yaml:"registration_token_ttl" json:"registration_token_ttl" mapstructure:"registration_token_ttl"`

	// AuthenticationTokenTTL is the lifetime of the session token issued
	// after a successful authentication ceremony.
	AuthenticationTokenTTL time.Duration `yaml:"authentication_token_ttl" json:"authentication_token_ttl" mapstructure:"authentication_token_ttl"`

	// AuthenticatorAttachment requests "platform" or "cross-platform"
	// authenticators; empty means no preference.
	AuthenticatorAttachment string `yaml:"authenticator_attachment" json:"authenticator_attachment" mapstructure:"authenticator_attachment"`

	// ResidentKey is the resident key requirement: "discouraged",
	// "preferred" or "required".
	ResidentKey string `yaml:"resident_key" json:"resident_key" mapstructure:"resident_key"`

	// UserVerification is the user verification requirement advertised in
	// ceremony options: "discouraged", "preferred" or "required".
	UserVerification string `yaml:"user_verification" json:"user_verification" mapstructure:"user_verification"`

	// AttestationPreference is the attestation conveyance preference:
	// "none", "indirect" or "direct".
	AttestationPreference string `yaml:"attestation_preference" json:"attestation_preference" mapstructure:"attestation_preference"`
}

// SetDefaults fills unset fields with the values the reference deployment
// uses: platform authenticators, discoverable credentials, no attestation,
// five minute challenges, 24h registration and 2h authentication tokens.
func (c *Config) SetDefaults() {
	if c.ChallengeTTL == 0 {
		c.ChallengeTTL = 5 * time.Minute
	}
	if c.RegistrationTokenTTL == 0 {
		c.RegistrationTokenTTL = 24 * time.Hour
	}
	if c.AuthenticationTokenTTL == 0 {
		c.AuthenticationTokenTTL = 2 * time.Hour
	}
	if c.AuthenticatorAttachment == "" {
		c.AuthenticatorAttachment = "platform"
	}
	if c.ResidentKey == "" {
		c.ResidentKey = "preferred"
	}
	if c.UserVerification == "" {
		c.UserVerification = "preferred"
	}
	if c.AttestationPreference == "" {
		c.AttestationPreference = "none"
	}
}

// Validate checks that the relying party identity is complete.
func (c *Config) Validate() error {
	if c.RPDisplayName == "" {
		return fmt.Errorf("%w: rp_display_name is required", ErrNotConfigured)
	}
	if c.RPID == "" {
		return fmt.Errorf("%w: rp_id is required", ErrNotConfigured)
	}
	if c.RPOrigin == "" {
		return fmt.Errorf("%w: rp_origin is required", ErrNotConfigured)
	}
	if c.ChallengeTTL < 0 {
		return fmt.Errorf("%w: challenge_ttl must be positive", ErrNotConfigured)
	}
	return nil
}

// toWebAuthnConfig converts to the go-webauthn library configuration.
func (c *Config) toWebAuthnConfig() *webauthn.Config {
	var attachment protocol.AuthenticatorAttachment
	switch c.AuthenticatorAttachment {
	case "platform":
		attachment = protocol.Platform
	case "cross-platform":
		attachment = protocol.CrossPlatform
	}

	var residentKey protocol.ResidentKeyRequirement
	switch c.ResidentKey {
	case "discouraged":
		residentKey = protocol.ResidentKeyRequirementDiscouraged
	case "required":
		residentKey = protocol.ResidentKeyRequirementRequired
	default:
		residentKey = protocol.ResidentKeyRequirementPreferred
	}

	var userVerification protocol.UserVerificationRequirement
	switch c.UserVerification {
	case "discouraged":
		userVerification = protocol.VerificationDiscouraged
	case "required":
		userVerification = protocol.VerificationRequired
	default:
		userVerification = protocol.VerificationPreferred
	}

	var attestation protocol.ConveyancePreference
	switch c.AttestationPreference {
	case "indirect":
		attestation = protocol.PreferIndirectAttestation
	case "direct":
		attestation = protocol.PreferDirectAttestation
	default:
		attestation = protocol.PreferNoAttestation
	}

	return &webauthn.Config{
		RPDisplayName:         c.RPDisplayName,
		RPID:                  c.RPID,
		RPOrigins:             []string{c.RPOrigin},
		AttestationPreference: attestation,
		AuthenticatorSelection: protocol.AuthenticatorSelection{
			AuthenticatorAttachment: attachment,
			ResidentKey:             residentKey,
			UserVerification:        userVerification,
		},
		Timeouts: webauthn.TimeoutsConfig{
			Login: webauthn.TimeoutConfig{
				Enforce: true,
				Timeout: c.ChallengeTTL,
			},
			Registration: webauthn.TimeoutConfig{
				Enforce: true,
				Timeout: c.ChallengeTTL,
			},
		},
	}
}
