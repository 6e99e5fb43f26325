package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 30 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for startup checks
const DBPingTimeout = 5 * time.Second

// SessionCookieName is the same-origin session cookie. In verified
// deployments it is scoped to the trusted domain suffix so sibling
// apps share it.
const SessionCookieName = "lifedeck_session"
