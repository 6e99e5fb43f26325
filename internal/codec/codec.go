package codec

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lifedeck/sso-hub/internal/model"
)

// Codec turns a session envelope into a cookie-safe string and back.
// Pure transformation: no state, no side effects.

var (
	// ErrMalformed means the input is not a validly encoded envelope.
	ErrMalformed = errors.New("malformed session envelope")

	// ErrMissingSubject means the envelope decoded but carries no uid.
	ErrMissingSubject = errors.New("session envelope has no subject")
)

// Encode serializes the envelope to a compact base64url string.
// Lossless for all denormalized profile fields.
func Encode(env *model.SessionEnvelope) (string, error) {
	if !env.Valid() {
		return "", ErrMissingSubject
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Decode parses a string produced by Encode. Callers must treat any
// returned error identically to "not authenticated".
func Decode(s string) (*model.SessionEnvelope, error) {
	if s == "" {
		return nil, ErrMalformed
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var env model.SessionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !env.Valid() {
		return nil, ErrMissingSubject
	}
	return &env, nil
}
