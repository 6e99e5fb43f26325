package identity

import (
	"context"
	"errors"
	"time"

	"github.com/lifedeck/sso-hub/internal/model"
)

// Provider is the hub's view of the external identity provider. It
// verifies session credentials in verified deployments and mints the
// short-lived exchange tokens a client-side identity library consumes.
type Provider interface {
	// VerifySessionCookie cryptographically validates a session cookie
	// and returns the envelope it attests to. Any failure (expired,
	// revoked, malformed) returns ErrVerificationFailed; callers must
	// treat that as "not authenticated" with no partial data.
	VerifySessionCookie(ctx context.Context, cookie string) (*model.SessionEnvelope, error)

	// MintExchangeToken issues a short-lived credential for the subject.
	// Best-effort from the caller's perspective: bootstrap proceeds
	// without a token when this fails.
	MintExchangeToken(ctx context.Context, uid string) (string, error)

	// MintSessionCookie issues a session cookie for an envelope. Anything
	// handed to clients as a cookie must come from here in verified
	// deployments, since VerifySessionCookie is the only way back in.
	MintSessionCookie(env *model.SessionEnvelope, ttl time.Duration) (string, error)
}

var ErrVerificationFailed = errors.New("session verification failed")
