package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lifedeck/sso-hub/internal/model"
)

// ProfileRepository reads the durable user-profile record, the source
// of truth for display name, avatar, preferences and entitlements.
// A missing profile returns (nil, nil): absence is a normal outcome
// (the account may be mid-provisioning), not an error.
type ProfileRepository interface {
	FindByUID(ctx context.Context, uid string) (*model.UserProfile, error)
}

type profileDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type profileRepo struct {
	db profileDB
}

func NewProfileRepository(db *sqlx.DB) ProfileRepository {
	return &profileRepo{db: db}
}

// profileRow maps the user_profiles table: one JSONB document per uid.
type profileRow struct {
	UID       string          `db:"uid"`
	Doc       json.RawMessage `db:"doc"`
	UpdatedAt time.Time       `db:"updated_at"`
}

func (r *profileRepo) FindByUID(ctx context.Context, uid string) (*model.UserProfile, error) {
	var row profileRow
	err := r.db.GetContext(ctx, &row, `
		SELECT uid, doc, updated_at FROM user_profiles WHERE uid = $1
	`, uid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var profile model.UserProfile
	if err := json.Unmarshal(row.Doc, &profile); err != nil {
		return nil, err
	}
	profile.UID = row.UID
	profile.UpdatedAt = row.UpdatedAt
	return &profile, nil
}
