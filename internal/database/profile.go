package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stabledesk/internal/util"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserProfile is dashboard metadata kept next to an Account.
type UserProfile struct {
	ID          uuid.UUID             `json:"id"`
	UserID      uuid.UUID             `json:"user_id"`
	Email       string                `json:"email"`
	AccountType string                `json:"account_type"`
	DisplayName util.Optional[string] `json:"display_name"`
	Bio         util.Optional[string] `json:"bio"`
	IsActive    bool                  `json:"is_active"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

type CreateUserProfileParams struct {
	UserID      uuid.UUID
	AccountType string
	DisplayName util.Optional[string]
	Bio         util.Optional[string]
	IsActive    bool
}

func (db *Database) CreateUserProfile(ctx context.Context, params CreateUserProfileParams) (UserProfile, error) {
	now := time.Now().UTC()
	profile := UserProfile{
		ID:          uuid.New(),
		UserID:      params.UserID,
		AccountType: params.AccountType,
		DisplayName: params.DisplayName,
		Bio:         params.Bio,
		IsActive:    params.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := db.conn().QueryRow(ctx, `WITH p AS (
			INSERT INTO tbl_user_profile (id, user_id, account_type, display_name, bio, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING user_id
		) SELECT a.email FROM p JOIN tbl_account a ON a.id = p.user_id`,
		profile.ID, profile.UserID, profile.AccountType, profile.DisplayName, profile.Bio, profile.IsActive, profile.CreatedAt, profile.UpdatedAt).Scan(&profile.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return profile, ErrAccountNotFound
		}
		return profile, fmt.Errorf("database: failed to insert profile (user=%s): %w", profile.UserID, classify(err))
	}
	return profile, nil
}

type ListUserProfilesParams struct {
	UserID util.Optional[uuid.UUID]
	Limit  int
}

// ListUserProfiles lists profiles newest first.
func (db *Database) ListUserProfiles(ctx context.Context, params ListUserProfilesParams) ([]UserProfile, error) {
	b := newWhereBuilder(`SELECT p.id, p.user_id, a.email, p.account_type, p.display_name, p.bio, p.is_active, p.created_at, p.updated_at
		FROM tbl_user_profile p JOIN tbl_account a ON a.id = p.user_id`)
	if params.UserID.IsSet {
		b.and("p.user_id = $%d", params.UserID.Val)
	}
	b.raw(" ORDER BY p.created_at DESC")
	b.limit(params.Limit)

	rows, err := db.conn().Query(ctx, b.String(), b.args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list profiles: %w", err)
	}
	defer rows.Close()

	profiles := []UserProfile{}
	for rows.Next() {
		var p UserProfile
		if err := rows.Scan(&p.ID, &p.UserID, &p.Email, &p.AccountType, &p.DisplayName, &p.Bio, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("database: failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate profiles: %w", err)
	}
	return profiles, nil
}
