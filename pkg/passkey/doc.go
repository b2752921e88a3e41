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

// Package passkey implements WebAuthn passkey registration and
// authentication ceremonies on top of github.com/go-webauthn/webauthn.
//
// Both ceremonies are two-step: Begin* issues browser options plus an opaque
// session id backed by a short-lived stored challenge; Finish* consumes the
// challenge exactly once and verifies the authenticator response. Successful
// ceremonies issue a signed session token through a pluggable TokenIssuer.
//
// Stores for users, credentials and challenges are interfaces; in-memory
// implementations ship in this package and a SQLite-backed implementation
// lives in internal/storage/sqlite.
package passkey
