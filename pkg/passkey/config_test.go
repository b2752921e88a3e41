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
	"testing"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/stretchr/testify/assert"
)

func TestConfig_SetDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	assert.Equal(t, 5*time.Minute, cfg.ChallengeTTL)
	assert.Equal(t, 24*time.Hour, cfg.RegistrationTokenTTL)
	assert.Equal(t, 2*time.Hour, cfg.AuthenticationTokenTTL)
	assert.Equal(t, "platform", cfg.AuthenticatorAttachment)
	assert.Equal(t, "preferred", cfg.ResidentKey)
	assert.Equal(t, "preferred", cfg.UserVerification)
	assert.Equal(t, "none", cfg.AttestationPreference)

	// Explicit values survive.
	cfg = &Config{ChallengeTTL: time.Minute, UserVerification: "required"}
	cfg.SetDefaults()
	assert.Equal(t, time.Minute, cfg.ChallengeTTL)
	assert.Equal(t, "required", cfg.UserVerification)
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{RPID: "example.com", RPDisplayName: "Example", RPOrigin: "https://example.com"}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing display name", Config{RPID: "example.com", RPOrigin: "https://example.com"}},
		{"missing rp id", Config{RPDisplayName: "Example", RPOrigin: "https://example.com"}},
		{"missing origin", Config{RPID: "example.com", RPDisplayName: "Example"}},
		{"negative ttl", Config{RPID: "example.com", RPDisplayName: "Example",
			RPOrigin: "https://example.com", ChallengeTTL: -time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.cfg.Validate(), ErrNotConfigured)
		})
	}
}

func TestConfig_ToWebAuthnConfig(t *testing.T) {
	cfg := &Config{
		RPID:                    "example.com",
		RPDisplayName:           "Example",
		RPOrigin:                "https://example.com",
		ChallengeTTL:            5 * time.Minute,
		AuthenticatorAttachment: "platform",
		ResidentKey:             "preferred",
		UserVerification:        "preferred",
		AttestationPreference:   "none",
	}

	wc := cfg.toWebAuthnConfig()
	assert.Equal(t, "example.com", wc.RPID)
	assert.Equal(t, []string{"https://example.com"}, wc.RPOrigins)
	assert.Equal(t, protocol.Platform, wc.AuthenticatorSelection.AuthenticatorAttachment)
	assert.Equal(t, protocol.ResidentKeyRequirementPreferred, wc.AuthenticatorSelection.ResidentKey)
	assert.Equal(t, protocol.VerificationPreferred, wc.AuthenticatorSelection.UserVerification)
	assert.Equal(t, protocol.PreferNoAttestation, wc.AttestationPreference)
	assert.Equal(t, 5*time.Minute, wc.Timeouts.Registration.Timeout)

	cfg.AuthenticatorAttachment = "cross-platform"
	cfg.ResidentKey = "required"
	cfg.UserVerification = "required"
	cfg.AttestationPreference = "direct"
	wc = cfg.toWebAuthnConfig()
	assert.Equal(t, protocol.CrossPlatform, wc.AuthenticatorSelection.AuthenticatorAttachment)
	assert.Equal(t, protocol.ResidentKeyRequirementRequired, wc.AuthenticatorSelection.ResidentKey)
	assert.Equal(t, protocol.VerificationRequired, wc.AuthenticatorSelection.UserVerification)
	assert.Equal(t, protocol.PreferDirectAttestation, wc.AttestationPreference)
}
