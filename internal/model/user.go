package model

import "time"

// User is the hydrated user object returned to callers, produced by
// merging a session envelope with the profile store's fresher record.
type User struct {
	UID          string            `json:"uid"`
	DisplayName  string            `json:"displayName"`
	AvatarURL    string            `json:"avatarUrl,omitempty"`
	Email        string            `json:"email,omitempty"`
	Preferences  map[string]string `json:"preferences,omitempty"`
	Entitlements []string          `json:"entitlements,omitempty"`
}

// UserProfile is the durable profile record from the external profile
// store (persisted as a JSON document keyed by uid).
type UserProfile struct {
	UID          string            `json:"uid"`
	DisplayName  string            `json:"displayName"`
	AvatarURL    string            `json:"avatarUrl"`
	Email        string            `json:"email"`
	Preferences  map[string]string `json:"preferences"`
	Entitlements []string          `json:"entitlements"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}
