package model

import (
	"time"
)

// Source identifies which resolver satisfied an authentication request.
// It is part of the response contract: clients and diagnostics depend on it.
type Source string

const (
	SourceCookie Source = "cookie"
	SourceBody   Source = "body"
	SourceMemory Source = "in-memory"
	SourceNone   Source = "none"
)

// SessionEnvelope is the portable representation of "who is logged in",
// exchanged between apps and cached in the hub store. Profile fields are
// denormalized copies for fast hydration; the profile store stays the
// source of truth.
type SessionEnvelope struct {
	UID          string            `json:"uid"`
	IssuedAt     int64             `json:"iat"`
	DisplayName  string            `json:"displayName,omitempty"`
	AvatarURL    string            `json:"avatarUrl,omitempty"`
	Email        string            `json:"email,omitempty"`
	Preferences  map[string]string `json:"preferences,omitempty"`
	Entitlements []string          `json:"entitlements,omitempty"`

	// Provenance for debugging: which app/origin produced the envelope.
	Origin string `json:"origin,omitempty"`
}

// Valid reports whether the envelope may be stored or trusted.
// An envelope without a subject identifier is invalid.
func (e *SessionEnvelope) Valid() bool {
	return e != nil && e.UID != ""
}

// SessionRecord is what the session store holds, one per subject.
type SessionRecord struct {
	UID       string
	Envelope  SessionEnvelope
	CreatedAt time.Time
	ExpiresAt time.Time

	// Seq is the store's insertion counter, used as a deterministic
	// tie-break when two records share the same CreatedAt.
	Seq uint64
}

// Expired reports whether the record is logically absent at now,
// even if not yet physically purged.
func (r *SessionRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// AuthenticatedResult is the bootstrap handler's output contract, the
// only structure crossing the trust boundary to the browser.
type AuthenticatedResult struct {
	Authenticated bool   `json:"authenticated"`
	SessionCookie string `json:"sessionCookie,omitempty"`
	CustomToken   string `json:"customToken,omitempty"`
	User          *User  `json:"user,omitempty"`
	Source        Source `json:"source"`
}
