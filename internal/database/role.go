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

type Role struct {
	ID                    uuid.UUID             `json:"id"`
	OrganizationID        uuid.UUID             `json:"organization_id"`
	Name                  string                `json:"name"`
	Description           util.Optional[string] `json:"description"`
	Permissions           []string              `json:"permissions"`
	CanAssignTasks        bool                  `json:"can_assign_tasks"`
	CanManageHorses       bool                  `json:"can_manage_horses"`
	CanViewAllHorses      bool                  `json:"can_view_all_horses"`
	CanManageOrganization bool                  `json:"can_manage_organization"`
	Color                 util.Optional[string] `json:"color"`
	CreatedAt             time.Time             `json:"created_at"`
	UpdatedAt             time.Time             `json:"updated_at"`
}

const roleColumns = `id, organization_id, name, description, permissions, can_assign_tasks, can_manage_horses, can_view_all_horses, can_manage_organization, color, created_at, updated_at`

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.OrganizationID, &role.Name, &role.Description, &role.Permissions,
		&role.CanAssignTasks, &role.CanManageHorses, &role.CanViewAllHorses, &role.CanManageOrganization, &role.Color, &role.CreatedAt, &role.UpdatedAt)
	return role, err
}

type CreateRoleParams struct {
	OrganizationID        uuid.UUID
	Name                  string
	Description           util.Optional[string]
	Permissions           []string
	CanAssignTasks        bool
	CanManageHorses       bool
	CanViewAllHorses      bool
	CanManageOrganization bool
	Color                 util.Optional[string]
}

func (db *Database) CreateRole(ctx context.Context, params CreateRoleParams) (Role, error) {
	now := time.Now().UTC()
	role := Role{
		ID:                    uuid.New(),
		OrganizationID:        params.OrganizationID,
		Name:                  params.Name,
		Description:           params.Description,
		Permissions:           params.Permissions,
		CanAssignTasks:        params.CanAssignTasks,
		CanManageHorses:       params.CanManageHorses,
		CanViewAllHorses:      params.CanViewAllHorses,
		CanManageOrganization: params.CanManageOrganization,
		Color:                 params.Color,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if role.Permissions == nil {
		role.Permissions = []string{}
	}

	if _, err := db.conn().Exec(ctx, `INSERT INTO tbl_role (`+roleColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		role.ID, role.OrganizationID, role.Name, role.Description, role.Permissions, role.CanAssignTasks, role.CanManageHorses,
		role.CanViewAllHorses, role.CanManageOrganization, role.Color, role.CreatedAt, role.UpdatedAt); err != nil {
		return role, fmt.Errorf("database: failed to insert role (name=%s): %w", role.Name, classify(err))
	}
	return role, nil
}

// CreateRoles inserts the roles in order. Call it inside InTx to make the set atomic.
func (db *Database) CreateRoles(ctx context.Context, params []CreateRoleParams) ([]Role, error) {
	roles := make([]Role, 0, len(params))
	for _, p := range params {
		role, err := db.CreateRole(ctx, p)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func (db *Database) GetRoleByID(ctx context.Context, id uuid.UUID) (Role, error) {
	role, err := scanRole(db.conn().QueryRow(ctx, `SELECT `+roleColumns+` FROM tbl_role WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return role, ErrRoleNotFound
		}
		return role, fmt.Errorf("database: failed to scan role: %w", err)
	}
	return role, nil
}

type ListRolesParams struct {
	OrganizationID util.Optional[uuid.UUID]
}

// ListRoles lists roles ordered by name.
func (db *Database) ListRoles(ctx context.Context, params ListRolesParams) ([]Role, error) {
	b := newWhereBuilder(`SELECT ` + roleColumns + ` FROM tbl_role`)
	if params.OrganizationID.IsSet {
		b.and("organization_id = $%d", params.OrganizationID.Val)
	}
	b.raw(" ORDER BY name ASC")

	rows, err := db.conn().Query(ctx, b.String(), b.args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list roles: %w", err)
	}
	defer rows.Close()

	roles := []Role{}
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("database: failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate roles: %w", err)
	}
	return roles, nil
}

type UpdateRoleParams struct {
	Name                  util.Optional[string]
	Description           util.Optional[string]
	Permissions           util.Optional[[]string]
	CanAssignTasks        util.Optional[bool]
	CanManageHorses       util.Optional[bool]
	CanViewAllHorses      util.Optional[bool]
	CanManageOrganization util.Optional[bool]
	Color                 util.Optional[string]
}

func (db *Database) UpdateRoleByID(ctx context.Context, id uuid.UUID, params UpdateRoleParams) (Role, error) {
	var b setBuilder
	if params.Name.IsSet {
		b.set("name", params.Name.Val)
	}
	if params.Description.IsSet {
		b.set("description", params.Description.Val)
	}
	if params.Permissions.IsSet {
		b.set("permissions", params.Permissions.Val)
	}
	if params.CanAssignTasks.IsSet {
		b.set("can_assign_tasks", params.CanAssignTasks.Val)
	}
	if params.CanManageHorses.IsSet {
		b.set("can_manage_horses", params.CanManageHorses.Val)
	}
	if params.CanViewAllHorses.IsSet {
		b.set("can_view_all_horses", params.CanViewAllHorses.Val)
	}
	if params.CanManageOrganization.IsSet {
		b.set("can_manage_organization", params.CanManageOrganization.Val)
	}
	if params.Color.IsSet {
		b.set("color", params.Color.Val)
	}
	if b.empty() {
		return db.GetRoleByID(ctx, id)
	}

	role, err := scanRole(db.conn().QueryRow(ctx, b.statement("tbl_role", roleColumns), append([]any{id}, b.args...)...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return role, ErrRoleNotFound
		}
		return role, fmt.Errorf("database: failed to update role (id=%s): %w", id, classify(err))
	}
	return role, nil
}
