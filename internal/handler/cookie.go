package handler

import (
	"net/http"
	"time"

	"github.com/lifedeck/sso-hub/internal/config"
)

// sessionCookieFromRequest returns the raw session cookie value, or ""
// when the request carries none.
func sessionCookieFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(config.SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// setSessionCookie writes the session cookie. With a domain suffix the
// cookie is shared across every app on that suffix, which is how
// verified deployments propagate sessions without the hub store.
func setSessionCookie(w http.ResponseWriter, value, domainSuffix string, maxAge time.Duration, secure bool) {
	cookie := &http.Cookie{
		Name:     config.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if domainSuffix != "" {
		cookie.Domain = "." + domainSuffix
	}
	http.SetCookie(w, cookie)
}

func clearSessionCookie(w http.ResponseWriter, domainSuffix string) {
	cookie := &http.Cookie{
		Name:   config.SessionCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	}
	if domainSuffix != "" {
		cookie.Domain = "." + domainSuffix
	}
	http.SetCookie(w, cookie)
}
