package service

import (
	"github.com/lifedeck/sso-hub/internal/model"
)

// MergeUser reconciles the envelope's cached profile fields with the
// profile store's fresher record. Per field: the profile value wins when
// present and non-empty, otherwise the envelope's cached value, otherwise
// the zero value. Every entry point that returns a user object must go
// through this function; divergence here is how "my name reverted" bugs
// happen.
func MergeUser(env *model.SessionEnvelope, profile *model.UserProfile) *model.User {
	user := &model.User{
		UID:          env.UID,
		DisplayName:  env.DisplayName,
		AvatarURL:    env.AvatarURL,
		Email:        env.Email,
		Preferences:  env.Preferences,
		Entitlements: env.Entitlements,
	}

	if profile == nil {
		return user
	}

	if profile.DisplayName != "" {
		user.DisplayName = profile.DisplayName
	}
	if profile.AvatarURL != "" {
		user.AvatarURL = profile.AvatarURL
	}
	if profile.Email != "" {
		user.Email = profile.Email
	}
	if len(profile.Preferences) > 0 {
		user.Preferences = profile.Preferences
	}
	if len(profile.Entitlements) > 0 {
		user.Entitlements = profile.Entitlements
	}

	return user
}
