package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lifedeck/sso-hub/internal/audit"
	apperrors "github.com/lifedeck/sso-hub/internal/errors"
	"github.com/lifedeck/sso-hub/internal/model"
	"github.com/lifedeck/sso-hub/internal/service"
)

// SSOHandler exposes the cross-app session endpoints. Absence of a
// session is a normal 200 payload everywhere; 4xx is reserved for
// malformed input.
type SSOHandler struct {
	ssoService *service.SSOService

	// cookieDomainSuffix scopes the shared cookie in verified
	// deployments; empty in development.
	cookieDomainSuffix string
	cookieTTL          time.Duration
	secureCookies      bool
}

func NewSSOHandler(ssoService *service.SSOService, cookieDomainSuffix string, cookieTTL time.Duration, secureCookies bool) *SSOHandler {
	return &SSOHandler{
		ssoService:         ssoService,
		cookieDomainSuffix: cookieDomainSuffix,
		cookieTTL:          cookieTTL,
		secureCookies:      secureCookies,
	}
}

func (h *SSOHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/sso-status", h.Status)
	r.Post("/session-sync", h.SessionSync)
	r.Post("/logout-sync", h.LogoutSync)
	r.Post("/fast-bootstrap", h.FastBootstrap)

	return r
}

// GET /sso-status
func (h *SSOHandler) Status(w http.ResponseWriter, r *http.Request) {
	result := h.ssoService.Status(r.Context(), sessionCookieFromRequest(r))

	audit.Log(r.Context(), audit.Event{
		Type: audit.EventStatusCheck,
		IP:   r.RemoteAddr,
		Details: map[string]interface{}{
			"authenticated": result.Authenticated,
		},
	})

	writeJSON(w, http.StatusOK, result)
}

type sessionSyncRequest struct {
	SessionCookie string `json:"sessionCookie"`
}

// POST /session-sync
func (h *SSOHandler) SessionSync(w http.ResponseWriter, r *http.Request) {
	var req sessionSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "expected JSON"))
		return
	}

	env, err := h.ssoService.SyncIn(r.Context(), req.SessionCookie)
	if err != nil {
		writeError(w, err)
		return
	}

	// On a shared domain suffix the cookie itself propagates the
	// session; the hub store covers callers that cannot send it.
	if h.cookieDomainSuffix != "" {
		setSessionCookie(w, req.SessionCookie, h.cookieDomainSuffix, h.cookieTTL, h.secureCookies)
	}

	audit.Log(r.Context(), audit.Event{
		Type: audit.EventSessionSync,
		UID:  env.UID,
		IP:   r.RemoteAddr,
		Details: map[string]interface{}{
			"origin": env.Origin,
		},
	})

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type logoutSyncRequest struct {
	UID           string `json:"uid"`
	SessionCookie string `json:"sessionCookie"`
}

// POST /logout-sync
func (h *SSOHandler) LogoutSync(w http.ResponseWriter, r *http.Request) {
	var req logoutSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "expected JSON"))
		return
	}

	removed, err := h.ssoService.LogoutSync(r.Context(), req.UID, req.SessionCookie)
	if err != nil {
		writeError(w, err)
		return
	}

	clearSessionCookie(w, h.cookieDomainSuffix)

	audit.Log(r.Context(), audit.Event{
		Type: audit.EventLogoutSync,
		UID:  req.UID,
		IP:   r.RemoteAddr,
		Details: map[string]interface{}{
			"removed": removed,
		},
	})

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "removed": removed})
}

type bootstrapRequest struct {
	SessionCookie string `json:"sessionCookie"`
}

// POST /fast-bootstrap
//
// Never returns a non-200 status for "not authenticated"; that is a
// normal payload.
func (h *SSOHandler) FastBootstrap(w http.ResponseWriter, r *http.Request) {
	var req bootstrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, apperrors.InvalidInput("body", "expected JSON"))
		return
	}

	result := h.ssoService.Bootstrap(r.Context(), sessionCookieFromRequest(r), req.SessionCookie)

	// A body- or hub-sourced session becomes a local cookie so the
	// next load from this origin resolves without the fallback chain.
	if result.Authenticated && result.Source != model.SourceCookie {
		setSessionCookie(w, result.SessionCookie, h.cookieDomainSuffix, h.cookieTTL, h.secureCookies)
	}

	event := audit.Event{
		Type:   audit.EventBootstrap,
		Source: string(result.Source),
		IP:     r.RemoteAddr,
		Details: map[string]interface{}{
			"authenticated": result.Authenticated,
		},
	}
	if result.User != nil {
		event.UID = result.User.UID
	}
	audit.Log(r.Context(), event)

	writeJSON(w, http.StatusOK, result)
}
