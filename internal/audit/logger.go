package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventSessionSync     EventType = "session_sync"
	EventLogoutSync      EventType = "logout_sync"
	EventBootstrap       EventType = "bootstrap"
	EventStatusCheck     EventType = "status_check"
	EventOriginRejected  EventType = "origin_rejected"
	EventRateLimitExceed EventType = "rate_limit_exceeded"
	EventTokenMintFailed EventType = "token_mint_failed"
	EventVerifyFailed    EventType = "session_verify_failed"
)

type Event struct {
	Type      EventType
	UID       string
	Source    string
	IP        string
	UserAgent string
	Details   map[string]interface{}
}

// Log emits a structured security audit line. Verbose diagnostics are
// fine here; responses to clients are not the place for them.
func Log(ctx context.Context, event Event) {
	logger := log.With().
		Str("audit", "sso").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.UID != "" {
		logger = logger.With().Str("uid", event.UID).Logger()
	}
	if event.Source != "" {
		logger = logger.With().Str("source", event.Source).Logger()
	}
	if event.IP != "" {
		logger = logger.With().Str("ip", event.IP).Logger()
	}
	if event.UserAgent != "" {
		logger = logger.With().Str("user_agent", event.UserAgent).Logger()
	}

	logEvent := logger.Info()
	for k, v := range event.Details {
		logEvent = addField(logEvent, k, v)
	}
	logEvent.Msg("security audit event")
}

func addField(e *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	default:
		return e.Interface(key, v)
	}
}
