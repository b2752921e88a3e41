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
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-webauthn/webauthn/protocol"

	"github.com/passkeyd/passkeyd/pkg/passkey"
	"github.com/passkeyd/passkeyd/pkg/session"
)

// TokenVerifier validates session tokens presented in the session cookie.
type TokenVerifier interface {
	Verify(token string) (*session.Claims, error)
}

// CeremonyObserver is notified of finished ceremonies, for metrics.
type CeremonyObserver interface {
	CeremonyFinished(kind string, verified bool)
}

// Handler provides the passkey ceremony HTTP handlers. Mount them with
// Mount, or individually on any router.
type Handler struct {
	service       *passkey.Service
	verifier      TokenVerifier
	logger        *slog.Logger
	observer      CeremonyObserver
	secureCookies bool
}

// NewHandler creates a handler over the ceremony service.
func NewHandler(service *passkey.Service, verifier TokenVerifier) *Handler {
	return &Handler{
		service:  service,
		verifier: verifier,
		logger:   slog.Default(),
	}
}

// WithLogger sets a custom logger.
func (h *Handler) WithLogger(logger *slog.Logger) *Handler {
	h.logger = logger
	return h
}

// WithObserver sets a ceremony outcome observer.
func (h *Handler) WithObserver(observer CeremonyObserver) *Handler {
	h.observer = observer
	return h
}

// WithSecureCookies marks issued cookies Secure, for production deployments
// behind TLS.
func (h *Handler) WithSecureCookies(secure bool) *Handler {
	h.secureCookies = secure
	return h
}

// RegistrationOptions handles POST /passkey/registration/options
//
// Request body: {"username": "alice"}
// Response: {"options": {...}, "sessionId": "..."}
func (h *Handler) RegistrationOptions(w http.ResponseWriter, r *http.Request) {
	var req RegistrationOptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if req.Username == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "username is required")
		return
	}

	options, sessionID, err := h.service.BeginRegistration(r.Context(), req.Username)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, RegistrationOptionsResponse{
		Options:   options,
		SessionID: sessionID,
	})
}

// RegistrationVerify handles POST /passkey/registration/verify
//
// Request body: {"registrationResponse": {...}, "sessionId": "...",
// "user": {"id": "...", "username": "..."}}
// Response: {"success": true, "verified": true} plus the session cookie
// (SameSite strict, registration token TTL).
func (h *Handler) RegistrationVerify(w http.ResponseWriter, r *http.Request) {
	var req RegistrationVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "sessionId is required")
		return
	}
	if req.User.ID == "" || req.User.Username == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "user id and username are required")
		return
	}

	response, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(req.RegistrationResponse))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid attestation response")
		return
	}

	token, _, err := h.service.FinishRegistration(r.Context(), req.SessionID, response, passkey.User{
		ID:       req.User.ID,
		Username: req.User.Username,
	})
	if err != nil {
		h.observeCeremony(string(passkey.CeremonyRegistration), false)
		h.handleServiceError(w, err)
		return
	}
	h.observeCeremony(string(passkey.CeremonyRegistration), true)

	h.setSessionCookie(w, token, h.service.Config().RegistrationTokenTTL, http.SameSiteStrictMode)
	h.writeJSON(w, http.StatusOK, RegistrationVerifyResponse{
		Success:  true,
		Verified: true,
	})
}

// DeleteSession handles DELETE /passkey/registration/session
//
// Request body: {"sessionId": "...", "sessionType": "registration"}
// Deletes a pending ceremony challenge; idempotent. An empty sessionType
// matches any kind.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	var req DeleteSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "sessionId is required")
		return
	}

	if err := h.service.AbandonCeremony(r.Context(), req.SessionID, passkey.CeremonyKind(req.SessionType)); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, DeleteSessionResponse{Success: true})
}

// AuthenticationOptions handles GET /passkey/authentication/options
//
// Response: {"optionsJSON": {...}, "sessionId": "..."}
func (h *Handler) AuthenticationOptions(w http.ResponseWriter, r *http.Request) {
	options, sessionID, err := h.service.BeginAuthentication(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, AuthenticationOptionsResponse{
		OptionsJSON: options,
		SessionID:   sessionID,
	})
}

// AuthenticationVerify handles POST /passkey/authentication/verify
//
// Request body: {"authenticationResponse": {...}, "sessionId": "..."}
// Response: {"verified": true, "user": {...}} plus the session cookie
// (SameSite lax, authentication token TTL).
func (h *Handler) AuthenticationVerify(w http.ResponseWriter, r *http.Request) {
	var req AuthenticationVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "sessionId is required")
		return
	}

	response, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(req.AuthenticationResponse))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid assertion response")
		return
	}

	token, user, err := h.service.FinishAuthentication(r.Context(), req.SessionID, response)
	if err != nil {
		h.observeCeremony(string(passkey.CeremonyAuthentication), false)
		h.handleServiceError(w, err)
		return
	}
	h.observeCeremony(string(passkey.CeremonyAuthentication), true)

	h.setSessionCookie(w, token, h.service.Config().AuthenticationTokenTTL, http.SameSiteLaxMode)
	h.writeJSON(w, http.StatusOK, AuthenticationVerifyResponse{
		Verified: true,
		User:     &UserPayload{ID: user.ID, Username: user.Username},
	})
}

// Me handles GET /me. Requires the access gate; reads the verified identity
// from the request context and returns the live user record.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, ErrorCodeUnauthorized, "authentication required")
		return
	}

	user, err := h.service.GetUser(r.Context(), identity.UserID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, UserPayload{ID: user.ID, Username: user.Username})
}

// Logout handles POST /logout. Sessions are stateless, so logout is telling
// the client to drop the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w)
	h.writeJSON(w, http.StatusOK, LogoutResponse{Message: "Logout successful"})
}

func (h *Handler) observeCeremony(kind string, verified bool) {
	if h.observer != nil {
		h.observer.CeremonyFinished(kind, verified)
	}
}

// handleServiceError maps service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, passkey.ErrInvalidRequest):
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, err.Error())
	case passkey.IsNotFound(err):
		h.writeError(w, http.StatusNotFound, ErrorCodeNotFound, err.Error())
	case passkey.IsConflict(err):
		h.writeError(w, http.StatusConflict, ErrorCodeConflict, err.Error())
	case errors.Is(err, passkey.ErrVerificationFailed),
		errors.Is(err, passkey.ErrClonedAuthenticator):
		h.writeJSON(w, http.StatusBadRequest, VerifyFailedResponse{
			Verified: false,
			Error:    ErrorCodeVerificationFailed,
		})
	case errors.Is(err, passkey.ErrNotConfigured):
		h.logger.Error("service misconfigured", "error", err)
		h.writeError(w, http.StatusInternalServerError, ErrorCodeConfigError, "service misconfigured")
	default:
		h.logger.Error("internal error", "error", err)
		h.writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal server error")
	}
}

// writeJSON writes a JSON response.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Response headers already written, can only log the error
		h.logger.Error("failed to encode JSON response",
			"error", err,
			"status", status)
	}
}

// writeError writes an error response.
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}
