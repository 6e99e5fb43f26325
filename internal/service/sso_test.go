package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lifedeck/sso-hub/internal/codec"
	apperrors "github.com/lifedeck/sso-hub/internal/errors"
	"github.com/lifedeck/sso-hub/internal/model"
	"github.com/lifedeck/sso-hub/internal/store"
)

type mockProfileRepo struct {
	mock.Mock
}

func (m *mockProfileRepo) FindByUID(ctx context.Context, uid string) (*model.UserProfile, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserProfile), args.Error(1)
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) VerifySessionCookie(ctx context.Context, cookie string) (*model.SessionEnvelope, error) {
	args := m.Called(ctx, cookie)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SessionEnvelope), args.Error(1)
}

func (m *mockProvider) MintExchangeToken(ctx context.Context, uid string) (string, error) {
	args := m.Called(ctx, uid)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) MintSessionCookie(env *model.SessionEnvelope, ttl time.Duration) (string, error) {
	args := m.Called(env, ttl)
	return args.String(0), args.Error(1)
}

type fixture struct {
	store    *store.Store
	profiles *mockProfileRepo
	provider *mockProvider
	svc      *SSOService
}

func newFixture(verified bool) *fixture {
	f := &fixture{
		store:    store.New(5*24*time.Hour, time.Hour),
		profiles: new(mockProfileRepo),
		provider: new(mockProvider),
	}
	f.svc = NewSSOService(f.store, f.profiles, f.provider, verified, 5*24*time.Hour, 500*time.Millisecond)
	return f
}

func encode(t *testing.T, env *model.SessionEnvelope) string {
	t.Helper()
	raw, err := codec.Encode(env)
	require.NoError(t, err)
	return raw
}

func TestBootstrap(t *testing.T) {
	ctx := context.Background()

	t.Run("no source yields authenticated false, not an error", func(t *testing.T) {
		f := newFixture(false)

		result := f.svc.Bootstrap(ctx, "", "")
		assert.False(t, result.Authenticated)
		assert.Equal(t, model.SourceNone, result.Source)
		assert.Nil(t, result.User)
	})

	t.Run("cookie takes precedence over body", func(t *testing.T) {
		f := newFixture(false)
		f.profiles.On("FindByUID", mock.Anything, "cookie-user").Return(nil, nil)
		f.provider.On("MintExchangeToken", mock.Anything, "cookie-user").Return("tok", nil)

		cookieRaw := encode(t, &model.SessionEnvelope{UID: "cookie-user"})
		bodyRaw := encode(t, &model.SessionEnvelope{UID: "body-user"})

		result := f.svc.Bootstrap(ctx, cookieRaw, bodyRaw)
		require.True(t, result.Authenticated)
		assert.Equal(t, model.SourceCookie, result.Source)
		assert.Equal(t, "cookie-user", result.User.UID)
		assert.Equal(t, cookieRaw, result.SessionCookie)
	})

	t.Run("body is used when no cookie is present", func(t *testing.T) {
		f := newFixture(false)
		f.profiles.On("FindByUID", mock.Anything, "body-user").Return(nil, nil)
		f.provider.On("MintExchangeToken", mock.Anything, "body-user").Return("tok", nil)

		bodyRaw := encode(t, &model.SessionEnvelope{UID: "body-user"})

		result := f.svc.Bootstrap(ctx, "", bodyRaw)
		require.True(t, result.Authenticated)
		assert.Equal(t, model.SourceBody, result.Source)
	})

	t.Run("hub store is the last fallback", func(t *testing.T) {
		f := newFixture(false)
		f.profiles.On("FindByUID", mock.Anything, "u1").Return(nil, nil)
		f.provider.On("MintExchangeToken", mock.Anything, "u1").Return("tok", nil)

		f.store.Put(&model.SessionEnvelope{UID: "u1", DisplayName: "Hub User"})

		result := f.svc.Bootstrap(ctx, "", "")
		require.True(t, result.Authenticated)
		assert.Equal(t, model.SourceMemory, result.Source)
		assert.Equal(t, "u1", result.User.UID)
		assert.NotEmpty(t, result.SessionCookie)
	})

	t.Run("undecodable cookie yields authenticated false without falling through", func(t *testing.T) {
		f := newFixture(false)
		bodyRaw := encode(t, &model.SessionEnvelope{UID: "body-user"})

		result := f.svc.Bootstrap(ctx, "garbage", bodyRaw)
		assert.False(t, result.Authenticated)
		assert.Equal(t, model.SourceNone, result.Source)
	})

	t.Run("profile store failure degrades to envelope fields", func(t *testing.T) {
		f := newFixture(false)
		f.profiles.On("FindByUID", mock.Anything, "u1").Return(nil, errors.New("profile store down"))
		f.provider.On("MintExchangeToken", mock.Anything, "u1").Return("tok", nil)

		raw := encode(t, &model.SessionEnvelope{UID: "u1", DisplayName: "Cached Name"})

		result := f.svc.Bootstrap(ctx, raw, "")
		require.True(t, result.Authenticated)
		assert.Equal(t, "Cached Name", result.User.DisplayName)
	})

	t.Run("fresh profile fields win over envelope fields", func(t *testing.T) {
		f := newFixture(false)
		f.profiles.On("FindByUID", mock.Anything, "u1").Return(&model.UserProfile{
			UID:         "u1",
			DisplayName: "Fresh Name",
		}, nil)
		f.provider.On("MintExchangeToken", mock.Anything, "u1").Return("tok", nil)

		raw := encode(t, &model.SessionEnvelope{UID: "u1", DisplayName: "Cookie Name"})

		result := f.svc.Bootstrap(ctx, raw, "")
		require.True(t, result.Authenticated)
		assert.Equal(t, "Fresh Name", result.User.DisplayName)
	})

	t.Run("subject missing from profile store still authenticates", func(t *testing.T) {
		f := newFixture(false)
		f.profiles.On("FindByUID", mock.Anything, "provisioning").Return(nil, nil)
		f.provider.On("MintExchangeToken", mock.Anything, "provisioning").Return("tok", nil)

		raw := encode(t, &model.SessionEnvelope{UID: "provisioning"})

		result := f.svc.Bootstrap(ctx, raw, "")
		require.True(t, result.Authenticated)
		assert.Equal(t, "provisioning", result.User.UID)
	})

	t.Run("token mint failure does not fail bootstrap", func(t *testing.T) {
		f := newFixture(false)
		f.profiles.On("FindByUID", mock.Anything, "u1").Return(nil, nil)
		f.provider.On("MintExchangeToken", mock.Anything, "u1").Return("", errors.New("provider down"))

		raw := encode(t, &model.SessionEnvelope{UID: "u1"})

		result := f.svc.Bootstrap(ctx, raw, "")
		require.True(t, result.Authenticated)
		assert.Empty(t, result.CustomToken)
	})

	t.Run("exchange token is attached when minting succeeds", func(t *testing.T) {
		f := newFixture(false)
		f.profiles.On("FindByUID", mock.Anything, "u1").Return(nil, nil)
		f.provider.On("MintExchangeToken", mock.Anything, "u1").Return("exchange-token", nil)

		raw := encode(t, &model.SessionEnvelope{UID: "u1"})

		result := f.svc.Bootstrap(ctx, raw, "")
		require.True(t, result.Authenticated)
		assert.Equal(t, "exchange-token", result.CustomToken)
	})
}

func TestBootstrapVerified(t *testing.T) {
	ctx := context.Background()

	t.Run("cookie goes through provider verification", func(t *testing.T) {
		f := newFixture(true)
		f.provider.On("VerifySessionCookie", mock.Anything, "signed-cookie").
			Return(&model.SessionEnvelope{UID: "u1"}, nil)
		f.profiles.On("FindByUID", mock.Anything, "u1").Return(nil, nil)
		f.provider.On("MintExchangeToken", mock.Anything, "u1").Return("tok", nil)

		result := f.svc.Bootstrap(ctx, "signed-cookie", "")
		require.True(t, result.Authenticated)
		assert.Equal(t, model.SourceCookie, result.Source)
	})

	t.Run("verification failure short-circuits with no partial data", func(t *testing.T) {
		f := newFixture(true)
		f.provider.On("VerifySessionCookie", mock.Anything, "expired-cookie").
			Return(nil, errors.New("expired"))

		result := f.svc.Bootstrap(ctx, "expired-cookie", "")
		assert.False(t, result.Authenticated)
		assert.Nil(t, result.User)
		assert.Empty(t, result.CustomToken)
		f.profiles.AssertNotCalled(t, "FindByUID", mock.Anything, mock.Anything)
	})

	t.Run("hub envelopes skip re-verification", func(t *testing.T) {
		f := newFixture(true)
		f.store.Put(&model.SessionEnvelope{UID: "u1"})
		f.profiles.On("FindByUID", mock.Anything, "u1").Return(nil, nil)
		f.provider.On("MintExchangeToken", mock.Anything, "u1").Return("tok", nil)
		f.provider.On("MintSessionCookie", mock.Anything, mock.Anything).Return("signed-cookie", nil)

		result := f.svc.Bootstrap(ctx, "", "")
		require.True(t, result.Authenticated)
		assert.Equal(t, model.SourceMemory, result.Source)
		f.provider.AssertNotCalled(t, "VerifySessionCookie", mock.Anything, mock.Anything)
	})

	t.Run("hub-sourced sessionCookie is provider-signed and replayable", func(t *testing.T) {
		f := newFixture(true)
		f.store.Put(&model.SessionEnvelope{UID: "u1"})
		f.profiles.On("FindByUID", mock.Anything, "u1").Return(nil, nil)
		f.provider.On("MintExchangeToken", mock.Anything, "u1").Return("tok", nil)
		f.provider.On("MintSessionCookie", mock.Anything, 5*24*time.Hour).Return("signed-cookie", nil)
		f.provider.On("VerifySessionCookie", mock.Anything, "signed-cookie").
			Return(&model.SessionEnvelope{UID: "u1"}, nil)

		first := f.svc.Bootstrap(ctx, "", "")
		require.True(t, first.Authenticated)
		assert.Equal(t, "signed-cookie", first.SessionCookie)

		// The browser replays the handed-out cookie on the next request;
		// it must still authenticate, now from the cookie source.
		second := f.svc.Bootstrap(ctx, first.SessionCookie, "")
		require.True(t, second.Authenticated)
		assert.Equal(t, model.SourceCookie, second.Source)
	})

	t.Run("mint failure on the hub path degrades to unauthenticated", func(t *testing.T) {
		f := newFixture(true)
		f.store.Put(&model.SessionEnvelope{UID: "u1"})
		f.provider.On("MintSessionCookie", mock.Anything, mock.Anything).
			Return("", errors.New("signer unavailable"))

		result := f.svc.Bootstrap(ctx, "", "")
		assert.False(t, result.Authenticated)
	})
}

func TestStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("valid cookie reports authenticated without hydration", func(t *testing.T) {
		f := newFixture(false)
		raw := encode(t, &model.SessionEnvelope{UID: "u1"})

		result := f.svc.Status(ctx, raw)
		assert.True(t, result.Authenticated)
		assert.Equal(t, raw, result.SessionCookie)
		f.profiles.AssertNotCalled(t, "FindByUID", mock.Anything, mock.Anything)
	})

	t.Run("hub store answers when no cookie is present", func(t *testing.T) {
		f := newFixture(false)
		f.store.Put(&model.SessionEnvelope{UID: "u1"})

		result := f.svc.Status(ctx, "")
		assert.True(t, result.Authenticated)
		assert.NotEmpty(t, result.SessionCookie)
	})

	t.Run("empty everything is simply unauthenticated", func(t *testing.T) {
		f := newFixture(false)
		result := f.svc.Status(ctx, "")
		assert.False(t, result.Authenticated)
		assert.Empty(t, result.SessionCookie)
	})
}

func TestSyncIn(t *testing.T) {
	ctx := context.Background()

	t.Run("valid session lands in the hub store", func(t *testing.T) {
		f := newFixture(false)
		raw := encode(t, &model.SessionEnvelope{UID: "u1", DisplayName: "Synced"})

		env, err := f.svc.SyncIn(ctx, raw)
		require.NoError(t, err)
		assert.Equal(t, "u1", env.UID)

		stored, ok := f.store.GetBySubject("u1")
		require.True(t, ok)
		assert.Equal(t, "Synced", stored.DisplayName)
	})

	t.Run("malformed session fails closed with no state change", func(t *testing.T) {
		f := newFixture(false)

		_, err := f.svc.SyncIn(ctx, "garbage")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
		assert.Equal(t, 0, f.store.Count())
	})

	t.Run("missing sessionCookie is rejected", func(t *testing.T) {
		f := newFixture(false)

		_, err := f.svc.SyncIn(ctx, "")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeMissingRequired, apperrors.GetCode(err))
	})
}

func TestLogoutSync(t *testing.T) {
	ctx := context.Background()

	t.Run("removes by uid and is idempotent", func(t *testing.T) {
		f := newFixture(false)
		f.store.Put(&model.SessionEnvelope{UID: "u1"})

		removed, err := f.svc.LogoutSync(ctx, "u1", "")
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = f.svc.LogoutSync(ctx, "u1", "")
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("resolves the subject from a session representation", func(t *testing.T) {
		f := newFixture(false)
		f.store.Put(&model.SessionEnvelope{UID: "u1"})
		raw := encode(t, &model.SessionEnvelope{UID: "u1"})

		removed, err := f.svc.LogoutSync(ctx, "", raw)
		require.NoError(t, err)
		assert.True(t, removed)
	})

	t.Run("rejects a call with neither uid nor session", func(t *testing.T) {
		f := newFixture(false)

		_, err := f.svc.LogoutSync(ctx, "", "")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeMissingRequired, apperrors.GetCode(err))
	})

	t.Run("rejects an undecodable session representation", func(t *testing.T) {
		f := newFixture(false)

		_, err := f.svc.LogoutSync(ctx, "", "garbage")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
	})
}

func TestSyncBootstrapRoundTrip(t *testing.T) {
	ctx := context.Background()

	t.Run("app A syncs, app B bootstraps from the hub, logout clears it", func(t *testing.T) {
		f := newFixture(false)
		f.profiles.On("FindByUID", mock.Anything, "u1").Return(nil, nil)
		f.provider.On("MintExchangeToken", mock.Anything, "u1").Return("tok", nil)

		raw := encode(t, &model.SessionEnvelope{UID: "u1", Origin: "http://localhost:4000"})
		_, err := f.svc.SyncIn(ctx, raw)
		require.NoError(t, err)

		result := f.svc.Bootstrap(ctx, "", "")
		require.True(t, result.Authenticated)
		assert.Equal(t, model.SourceMemory, result.Source)
		assert.Equal(t, "u1", result.User.UID)

		removed, err := f.svc.LogoutSync(ctx, "u1", "")
		require.NoError(t, err)
		assert.True(t, removed)

		result = f.svc.Bootstrap(ctx, "", "")
		assert.False(t, result.Authenticated)
		assert.Equal(t, model.SourceNone, result.Source)
	})
}
