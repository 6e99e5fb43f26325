package middleware

import (
	"net/http"

	"github.com/lifedeck/sso-hub/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}
