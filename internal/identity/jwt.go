package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lifedeck/sso-hub/internal/model"
)

const (
	issuer           = "lifedeck-sso"
	exchangeTokenTTL = time.Hour
)

// JWTProvider implements Provider with HMAC-signed tokens. Verified
// deployments put a JWT in the session cookie; development deployments
// use the plain envelope codec and only call MintExchangeToken.
type JWTProvider struct {
	secret []byte
}

func NewJWTProvider(secret string) *JWTProvider {
	return &JWTProvider{secret: []byte(secret)}
}

type sessionClaims struct {
	jwt.RegisteredClaims
	DisplayName  string            `json:"displayName,omitempty"`
	AvatarURL    string            `json:"avatarUrl,omitempty"`
	Email        string            `json:"email,omitempty"`
	Preferences  map[string]string `json:"preferences,omitempty"`
	Entitlements []string          `json:"entitlements,omitempty"`
	Origin       string            `json:"origin,omitempty"`
}

func (p *JWTProvider) VerifySessionCookie(ctx context.Context, cookie string) (*model.SessionEnvelope, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(cookie, &claims, p.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrVerificationFailed)
	}

	env := &model.SessionEnvelope{
		UID:          claims.Subject,
		DisplayName:  claims.DisplayName,
		AvatarURL:    claims.AvatarURL,
		Email:        claims.Email,
		Preferences:  claims.Preferences,
		Entitlements: claims.Entitlements,
		Origin:       claims.Origin,
	}
	if claims.IssuedAt != nil {
		env.IssuedAt = claims.IssuedAt.Unix()
	}
	return env, nil
}

func (p *JWTProvider) MintExchangeToken(ctx context.Context, uid string) (string, error) {
	if uid == "" {
		return "", fmt.Errorf("mint exchange token: empty subject")
	}
	if len(p.secret) == 0 {
		return "", fmt.Errorf("mint exchange token: no signing secret configured")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   uid,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(exchangeTokenTTL)),
		ID:        uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign exchange token: %w", err)
	}
	return signed, nil
}

// MintSessionCookie issues a verified-mode session cookie for an
// envelope. Used when a hub-sourced bootstrap hands a cookie back to
// the client, and by app backends at login.
func (p *JWTProvider) MintSessionCookie(env *model.SessionEnvelope, ttl time.Duration) (string, error) {
	if !env.Valid() {
		return "", fmt.Errorf("mint session cookie: envelope has no subject")
	}

	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   env.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		DisplayName:  env.DisplayName,
		AvatarURL:    env.AvatarURL,
		Email:        env.Email,
		Preferences:  env.Preferences,
		Entitlements: env.Entitlements,
		Origin:       env.Origin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign session cookie: %w", err)
	}
	return signed, nil
}

func (p *JWTProvider) keyFunc(token *jwt.Token) (any, error) {
	return p.secret, nil
}
