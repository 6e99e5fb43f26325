package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lifedeck/sso-hub/internal/codec"
	apperrors "github.com/lifedeck/sso-hub/internal/errors"
	"github.com/lifedeck/sso-hub/internal/identity"
	"github.com/lifedeck/sso-hub/internal/model"
	"github.com/lifedeck/sso-hub/internal/repository"
	"github.com/lifedeck/sso-hub/internal/store"
)

// profileInvalidator is implemented by cached profile repositories.
type profileInvalidator interface {
	Invalidate(ctx context.Context, uid string)
}

// SSOService implements the cross-app session operations: bootstrap,
// status, sync-in and logout-sync. It owns the source priority order
// (cookie, body, hub store) and the mode-dependent validation of raw
// session representations.
type SSOService struct {
	store    *store.Store
	profiles repository.ProfileRepository
	provider identity.Provider

	// verified switches envelope decoding to cryptographic verification
	// by the identity provider (production-equivalent deployments).
	verified        bool
	sessionTTL      time.Duration
	upstreamTimeout time.Duration
}

func NewSSOService(
	sessionStore *store.Store,
	profiles repository.ProfileRepository,
	provider identity.Provider,
	verified bool,
	sessionTTL time.Duration,
	upstreamTimeout time.Duration,
) *SSOService {
	return &SSOService{
		store:           sessionStore,
		profiles:        profiles,
		provider:        provider,
		verified:        verified,
		sessionTTL:      sessionTTL,
		upstreamTimeout: upstreamTimeout,
	}
}

// sessionSource is one candidate in the resolution chain.
type sessionSource struct {
	tag model.Source
	raw string
}

// StatusResult is the sso-status payload: authentication and the raw
// session only, no profile hydration.
type StatusResult struct {
	Authenticated bool   `json:"authenticated"`
	SessionCookie string `json:"sessionCookie,omitempty"`
}

// notAuthenticated is the uniform failure shape. Expired sessions, bad
// envelopes and empty stores all collapse to it; callers cannot tell
// them apart.
func notAuthenticated() *model.AuthenticatedResult {
	return &model.AuthenticatedResult{Authenticated: false, Source: model.SourceNone}
}

// Bootstrap resolves authentication in a single round trip. Sources are
// tried in fixed priority order and the winning source's tag is part of
// the response contract. Profile hydration and token minting degrade
// gracefully: neither may fail the request once identity is proven.
func (s *SSOService) Bootstrap(ctx context.Context, cookieRaw, bodyRaw string) *model.AuthenticatedResult {
	env, raw, tag, err := s.resolveSession(ctx, cookieRaw, bodyRaw)
	if err != nil {
		log.Debug().Err(err).Str("source", string(tag)).Msg("session resolution failed")
		return notAuthenticated()
	}
	if env == nil {
		return notAuthenticated()
	}

	user := s.hydrateUser(ctx, env)
	mint := s.mintExchangeToken(ctx, env.UID)

	result := &model.AuthenticatedResult{
		Authenticated: true,
		SessionCookie: raw,
		User:          user,
		Source:        tag,
	}
	if mint.ok {
		result.CustomToken = mint.token
	}
	return result
}

// Status reports authentication without profile hydration. Callers that
// need user data must call Bootstrap.
func (s *SSOService) Status(ctx context.Context, cookieRaw string) *StatusResult {
	env, raw, tag, err := s.resolveSession(ctx, cookieRaw, "")
	if err != nil {
		log.Debug().Err(err).Str("source", string(tag)).Msg("status check failed")
		return &StatusResult{}
	}
	if env == nil {
		return &StatusResult{}
	}

	return &StatusResult{Authenticated: true, SessionCookie: raw}
}

// SyncIn accepts a session representation pushed by a sibling app and
// stores it in the hub. Malformed input fails closed with no state
// change.
func (s *SSOService) SyncIn(ctx context.Context, raw string) (*model.SessionEnvelope, error) {
	if raw == "" {
		return nil, apperrors.MissingRequired("sessionCookie")
	}

	env, err := s.resolveEnvelope(ctx, raw)
	if err != nil {
		return nil, apperrors.ValidationError("sessionCookie is not a valid session").WithCause(err)
	}

	if !s.store.Put(env) {
		return nil, apperrors.ValidationError("session has no subject identifier")
	}

	log.Info().Str("uid", env.UID).Str("origin", env.Origin).Msg("session synced into hub")
	return env, nil
}

// LogoutSync invalidates the hub's copy for a subject. Idempotent: a
// second call for an absent session reports removed=false, not an error.
func (s *SSOService) LogoutSync(ctx context.Context, uid, raw string) (bool, error) {
	if uid == "" && raw == "" {
		return false, apperrors.MissingRequired("uid or sessionCookie")
	}

	if uid == "" {
		env, err := s.resolveEnvelope(ctx, raw)
		if err != nil {
			return false, apperrors.ValidationError("sessionCookie is not a valid session").WithCause(err)
		}
		uid = env.UID
	}

	removed := s.store.Remove(uid)
	if inv, ok := s.profiles.(profileInvalidator); ok {
		inv.Invalidate(ctx, uid)
	}

	log.Info().Str("uid", uid).Bool("removed", removed).Msg("logout synced")
	return removed, nil
}

// resolveSession walks the source chain and validates the first hit.
// Cookie and body representations go through mode-dependent validation;
// hub-store envelopes were validated at sync-in and are trusted as-is,
// re-encoded only so clients get a cacheable representation. The chain
// stops at the first source that yields anything: a cookie that fails
// validation does not fall through to the body or the store.
func (s *SSOService) resolveSession(ctx context.Context, cookieRaw, bodyRaw string) (*model.SessionEnvelope, string, model.Source, error) {
	sources := []sessionSource{
		{model.SourceCookie, cookieRaw},
		{model.SourceBody, bodyRaw},
	}
	for _, src := range sources {
		if src.raw == "" {
			continue
		}
		env, err := s.resolveEnvelope(ctx, src.raw)
		if err != nil {
			return nil, "", src.tag, err
		}
		return env, src.raw, src.tag, nil
	}

	if env, ok := s.store.Latest(); ok {
		encoded, err := s.encodeForClient(env)
		if err == nil {
			return env, encoded, model.SourceMemory, nil
		}
		log.Warn().Err(err).Str("uid", env.UID).Msg("could not re-encode hub session for client")
	}

	return nil, "", model.SourceNone, nil
}

// encodeForClient produces the sessionCookie value clients cache and
// replay. It must round-trip through resolveEnvelope, so verified
// deployments get a provider-signed cookie, not the plain encoding a
// later request would fail to verify.
func (s *SSOService) encodeForClient(env *model.SessionEnvelope) (string, error) {
	if s.verified {
		return s.provider.MintSessionCookie(env, s.sessionTTL)
	}
	return codec.Encode(env)
}

// resolveEnvelope validates a raw session representation. Development
// deployments decode the portable encoding; verified deployments require
// the identity provider's cryptographic check instead.
func (s *SSOService) resolveEnvelope(ctx context.Context, raw string) (*model.SessionEnvelope, error) {
	if s.verified {
		return s.provider.VerifySessionCookie(ctx, raw)
	}
	return codec.Decode(raw)
}

// hydrateUser merges the envelope with the profile store's record. The
// profile read is bounded by the upstream timeout; on failure or absence
// the envelope's cached fields carry the user object, because the
// envelope already proves identity.
func (s *SSOService) hydrateUser(ctx context.Context, env *model.SessionEnvelope) *model.User {
	ctx, cancel := context.WithTimeout(ctx, s.upstreamTimeout)
	defer cancel()

	profile, err := s.profiles.FindByUID(ctx, env.UID)
	if err != nil {
		log.Warn().Err(err).Str("uid", env.UID).Msg("profile store unavailable, using cached fields")
		return MergeUser(env, nil)
	}
	return MergeUser(env, profile)
}

// mintOutcome distinguishes "minted" from "failed but request continues".
type mintOutcome struct {
	token string
	ok    bool
}

// mintExchangeToken is best-effort: the cookie/envelope path alone is
// sufficient for many callers.
func (s *SSOService) mintExchangeToken(ctx context.Context, uid string) mintOutcome {
	ctx, cancel := context.WithTimeout(ctx, s.upstreamTimeout)
	defer cancel()

	token, err := s.provider.MintExchangeToken(ctx, uid)
	if err != nil {
		log.Warn().Err(err).Str("uid", uid).Msg("exchange token mint failed, continuing without")
		return mintOutcome{}
	}
	return mintOutcome{token: token, ok: true}
}
