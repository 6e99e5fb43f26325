package middleware

import (
	"net/http"

	"github.com/lifedeck/sso-hub/internal/audit"
	"github.com/lifedeck/sso-hub/internal/origin"
)

// CORSMiddleware gates cross-origin access per the origin policy. The
// exact caller origin is reflected back (never a wildcard, the endpoints
// carry credentials) together with credentials-allowed. Denied origins
// get no access-control headers at all: the handler still runs, the
// browser blocks the calling page from reading the response.
type CORSMiddleware struct {
	policy *origin.Policy
}

func NewCORSMiddleware(policy *origin.Policy) *CORSMiddleware {
	return &CORSMiddleware{policy: policy}
}

func (m *CORSMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		declared := r.Header.Get("Origin")
		decision := m.policy.Check(declared)

		if decision.Allowed {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", decision.Origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			h.Set("Access-Control-Max-Age", "600")
			h.Add("Vary", "Origin")
		} else if declared != "" {
			audit.Log(r.Context(), audit.Event{
				Type: audit.EventOriginRejected,
				IP:   r.RemoteAddr,
				Details: map[string]interface{}{
					"origin": declared,
					"path":   r.URL.Path,
				},
			})
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
