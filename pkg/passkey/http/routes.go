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
	"github.com/go-chi/chi/v5"
)

// Mount attaches the ceremony API under /api/authn on the given chi router.
// The me endpoint sits behind the access gate in API mode; the ceremony
// endpoints are unauthenticated by nature.
func Mount(r chi.Router, h *Handler, gate *AccessGate) {
	r.Route("/api/authn", func(r chi.Router) {
		r.Post("/passkey/registration/options", h.RegistrationOptions)
		r.Post("/passkey/registration/verify", h.RegistrationVerify)
		r.Delete("/passkey/registration/session", h.DeleteSession)
		r.Get("/passkey/authentication/options", h.AuthenticationOptions)
		r.Post("/passkey/authentication/verify", h.AuthenticationVerify)
		r.With(gate.RequireAPI).Get("/me", h.Me)
		r.Post("/logout", h.Logout)
	})
}
