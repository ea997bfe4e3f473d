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

type OrganizationMember struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	UserID         uuid.UUID `json:"user_id"`
	RoleID         uuid.UUID `json:"role_id"`
	IsActive       bool      `json:"is_active"`
	JoinedAt       time.Time `json:"joined_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Membership is a member row joined with its account, organization and role.
// The joined fields are empty when the referenced row is missing.
type Membership struct {
	OrganizationMember
	UserEmail               util.Optional[string] `json:"user_email"`
	UserMetadata            map[string]any        `json:"user_metadata"`
	OrganizationName        util.Optional[string] `json:"organization_name"`
	OrganizationType        util.Optional[string] `json:"organization_type"`
	OrganizationDescription util.Optional[string] `json:"organization_description"`
	RoleName                util.Optional[string] `json:"role_name"`
	RoleColor               util.Optional[string] `json:"role_color"`
}

const memberColumns = `id, organization_id, user_id, role_id, is_active, joined_at, updated_at`

func scanMember(row pgx.Row) (OrganizationMember, error) {
	var m OrganizationMember
	err := row.Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.RoleID, &m.IsActive, &m.JoinedAt, &m.UpdatedAt)
	return m, err
}

type CreateOrganizationMemberParams struct {
	OrganizationID uuid.UUID
	UserID         uuid.UUID
	RoleID         uuid.UUID
	IsActive       bool
}

func (db *Database) CreateOrganizationMember(ctx context.Context, params CreateOrganizationMemberParams) (OrganizationMember, error) {
	now := time.Now().UTC()
	member := OrganizationMember{
		ID:             uuid.New(),
		OrganizationID: params.OrganizationID,
		UserID:         params.UserID,
		RoleID:         params.RoleID,
		IsActive:       params.IsActive,
		JoinedAt:       now,
		UpdatedAt:      now,
	}

	// The role must belong to the organization the member joins.
	tag, err := db.conn().Exec(ctx, `INSERT INTO tbl_organization_member (`+memberColumns+`)
		SELECT $1::uuid, $2::uuid, $3::uuid, $4::uuid, $5::boolean, $6::timestamptz, $7::timestamptz WHERE EXISTS (SELECT 1 FROM tbl_role WHERE id = $4 AND organization_id = $2)`,
		member.ID, member.OrganizationID, member.UserID, member.RoleID, member.IsActive, member.JoinedAt, member.UpdatedAt)
	if err != nil {
		return member, fmt.Errorf("database: failed to insert organization member (user=%s, organization=%s): %w", member.UserID, member.OrganizationID, classify(err))
	}
	if tag.RowsAffected() == 0 {
		return member, ErrRoleNotFound
	}
	return member, nil
}

type GetOrganizationMemberParams struct {
	ID             util.Optional[uuid.UUID]
	OrganizationID util.Optional[uuid.UUID]
	UserID         util.Optional[uuid.UUID]
}

func (db *Database) GetOrganizationMember(ctx context.Context, params GetOrganizationMemberParams) (OrganizationMember, error) {
	b := newWhereBuilder(`SELECT ` + memberColumns + ` FROM tbl_organization_member`)
	if params.ID.IsSet {
		b.and("id = $%d", params.ID.Val)
	}
	if params.OrganizationID.IsSet {
		b.and("organization_id = $%d", params.OrganizationID.Val)
	}
	if params.UserID.IsSet {
		b.and("user_id = $%d", params.UserID.Val)
	}

	member, err := scanMember(db.conn().QueryRow(ctx, b.String(), b.args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return member, ErrMemberNotFound
		}
		return member, fmt.Errorf("database: failed to scan organization member: %w", err)
	}
	return member, nil
}

type ListMembershipsParams struct {
	OrganizationID util.Optional[uuid.UUID]
	UserID         util.Optional[uuid.UUID]
	IsActive       util.Optional[bool]
}

// ListMemberships lists members joined with their account, organization and
// role, most recently joined first.
func (db *Database) ListMemberships(ctx context.Context, params ListMembershipsParams) ([]Membership, error) {
	b := newWhereBuilder(`SELECT m.id, m.organization_id, m.user_id, m.role_id, m.is_active, m.joined_at, m.updated_at,
		a.email, COALESCE(a.metadata, '{}'::jsonb), o.name, o.type, o.description, r.name, r.color
		FROM tbl_organization_member m
		LEFT JOIN tbl_account a ON a.id = m.user_id
		LEFT JOIN tbl_organization o ON o.id = m.organization_id
		LEFT JOIN tbl_role r ON r.id = m.role_id`)
	if params.OrganizationID.IsSet {
		b.and("m.organization_id = $%d", params.OrganizationID.Val)
	}
	if params.UserID.IsSet {
		b.and("m.user_id = $%d", params.UserID.Val)
	}
	if params.IsActive.IsSet {
		b.and("m.is_active = $%d", params.IsActive.Val)
	}
	b.raw(" ORDER BY m.joined_at DESC")

	rows, err := db.conn().Query(ctx, b.String(), b.args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list organization members: %w", err)
	}
	defer rows.Close()

	memberships := []Membership{}
	for rows.Next() {
		var m Membership
		if err := rows.Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.RoleID, &m.IsActive, &m.JoinedAt, &m.UpdatedAt,
			&m.UserEmail, &m.UserMetadata, &m.OrganizationName, &m.OrganizationType, &m.OrganizationDescription, &m.RoleName, &m.RoleColor); err != nil {
			return nil, fmt.Errorf("database: failed to scan organization member: %w", err)
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate organization members: %w", err)
	}
	return memberships, nil
}

type UpdateOrganizationMemberParams struct {
	RoleID   util.Optional[uuid.UUID]
	IsActive util.Optional[bool]
}

func (db *Database) UpdateOrganizationMemberByID(ctx context.Context, id uuid.UUID, params UpdateOrganizationMemberParams) (OrganizationMember, error) {
	var b setBuilder
	if params.RoleID.IsSet {
		b.set("role_id", params.RoleID.Val)
	}
	if params.IsActive.IsSet {
		b.set("is_active", params.IsActive.Val)
	}
	if b.empty() {
		return db.GetOrganizationMember(ctx, GetOrganizationMemberParams{ID: util.Some(id)})
	}

	member, err := scanMember(db.conn().QueryRow(ctx, b.statement("tbl_organization_member", memberColumns), append([]any{id}, b.args...)...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return member, ErrMemberNotFound
		}
		return member, fmt.Errorf("database: failed to update organization member (id=%s): %w", id, classify(err))
	}
	return member, nil
}
