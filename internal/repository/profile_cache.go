package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/lifedeck/sso-hub/internal/model"
)

const profileCacheTTL = 5 * time.Minute

// CachedProfileRepository is a read-through Redis cache in front of a
// ProfileRepository. Cache failures fall through to the backing store;
// the cache is an optimization, never a source of truth.
type CachedProfileRepository struct {
	backing ProfileRepository
	client  *redis.Client
	ttl     time.Duration
}

func NewCachedProfileRepository(backing ProfileRepository, client *redis.Client) *CachedProfileRepository {
	return &CachedProfileRepository{
		backing: backing,
		client:  client,
		ttl:     profileCacheTTL,
	}
}

func profileCacheKey(uid string) string {
	return fmt.Sprintf("profile:%s", uid)
}

func (r *CachedProfileRepository) FindByUID(ctx context.Context, uid string) (*model.UserProfile, error) {
	key := profileCacheKey(uid)

	cached, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		var profile model.UserProfile
		if err := json.Unmarshal(cached, &profile); err == nil {
			return &profile, nil
		}
		// Unreadable cache entry: drop it and fall through.
		r.client.Del(ctx, key)
	} else if err != redis.Nil {
		log.Warn().Err(err).Str("uid", uid).Msg("profile cache read failed")
	}

	profile, err := r.backing.FindByUID(ctx, uid)
	if err != nil || profile == nil {
		return profile, err
	}

	if raw, err := json.Marshal(profile); err == nil {
		if err := r.client.Set(ctx, key, raw, r.ttl).Err(); err != nil {
			log.Warn().Err(err).Str("uid", uid).Msg("profile cache write failed")
		}
	}

	return profile, nil
}

// Invalidate drops the cached profile for a subject. Called on
// logout-sync so a re-login hydrates fresh data.
func (r *CachedProfileRepository) Invalidate(ctx context.Context, uid string) {
	if err := r.client.Del(ctx, profileCacheKey(uid)).Err(); err != nil {
		log.Warn().Err(err).Str("uid", uid).Msg("profile cache invalidate failed")
	}
}
