package organisation

import (
	"slices"

	"stabledesk/internal/database"
	"stabledesk/internal/util"

	"github.com/google/uuid"
)

const (
	TypeStable       = "stable"
	TypeOrganization = "organization"
	TypeTrainer      = "trainer"
	TypeEnterprise   = "enterprise"
)

const (
	TierBasic      = "basic"
	TierPremium    = "premium"
	TierEnterprise = "enterprise"
)

const (
	PermissionManageOrganization = "manage_organization"
	PermissionManageHorses       = "manage_horses"
	PermissionAssignTasks        = "assign_tasks"
	PermissionViewAll            = "view_all"
	PermissionViewAssigned       = "view_assigned"
	PermissionUpdateTasks        = "update_tasks"
	PermissionManageMedical      = "manage_medical"
	PermissionViewOwnHorses      = "view_own_horses"
)

// RoleTemplate is one default role generated for a new organization.
type RoleTemplate struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
	Color       string   `json:"color"`
}

var (
	adminPermissions   = []string{PermissionManageOrganization, PermissionManageHorses, PermissionAssignTasks, PermissionViewAll}
	managerPermissions = []string{PermissionManageHorses, PermissionAssignTasks, PermissionViewAll}
	staffPermissions   = []string{PermissionViewAssigned, PermissionUpdateTasks}

	organizationRoles = []RoleTemplate{
		{Name: "Administrator", Permissions: adminPermissions, Color: "#007AFF"},
		{Name: "Manager", Permissions: managerPermissions, Color: "#34C759"},
		{Name: "Staff", Permissions: staffPermissions, Color: "#FF9500"},
		{Name: "Veterinarian", Permissions: []string{PermissionViewAll, PermissionManageMedical}, Color: "#AF52DE"},
	}

	roleTemplates = map[string][]RoleTemplate{
		TypeOrganization: organizationRoles,
		TypeEnterprise:   organizationRoles,
		TypeTrainer: {
			{Name: "Head Trainer", Permissions: adminPermissions, Color: "#007AFF"},
			{Name: "Trainer", Permissions: []string{PermissionManageHorses, PermissionAssignTasks, PermissionViewAssigned}, Color: "#34C759"},
			{Name: "Assistant Trainer", Permissions: staffPermissions, Color: "#FF9500"},
			{Name: "Client", Permissions: []string{PermissionViewOwnHorses}, Color: "#AF52DE"},
		},
		TypeStable: {
			{Name: "Stable Owner", Permissions: adminPermissions, Color: "#007AFF"},
			{Name: "Stable Manager", Permissions: managerPermissions, Color: "#34C759"},
			{Name: "Staff", Permissions: staffPermissions, Color: "#FF9500"},
			{Name: "Boarder", Permissions: []string{PermissionViewOwnHorses}, Color: "#AF52DE"},
		},
	}

	// AdminRoleNames are the role names an owner is linked to, in priority order.
	AdminRoleNames = []string{"Administrator", "Head Trainer", "Stable Owner"}
)

// RoleTemplates returns the default roles for an organization type. Unknown
// types get the organization template.
func RoleTemplates(orgType string) []RoleTemplate {
	templates, ok := roleTemplates[orgType]
	if !ok {
		templates = roleTemplates[TypeOrganization]
	}

	out := make([]RoleTemplate, len(templates))
	for i, t := range templates {
		out[i] = RoleTemplate{Name: t.Name, Permissions: slices.Clone(t.Permissions), Color: t.Color}
	}
	return out
}

// Flags are the boolean capabilities derived from a permission list.
type Flags struct {
	CanAssignTasks        bool
	CanManageHorses       bool
	CanViewAllHorses      bool
	CanManageOrganization bool
}

func DeriveFlags(permissions []string) Flags {
	return Flags{
		CanAssignTasks:        slices.Contains(permissions, PermissionAssignTasks),
		CanManageHorses:       slices.Contains(permissions, PermissionManageHorses),
		CanViewAllHorses:      slices.Contains(permissions, PermissionViewAll),
		CanManageOrganization: slices.Contains(permissions, PermissionManageOrganization),
	}
}

// DefaultRoleParams renders the role template of orgType for an organization.
func DefaultRoleParams(organizationID uuid.UUID, orgType string) []database.CreateRoleParams {
	templates := RoleTemplates(orgType)
	params := make([]database.CreateRoleParams, 0, len(templates))
	for _, t := range templates {
		params = append(params, roleParams(organizationID, t.Name, t.Name+" role for "+orgType, t.Permissions, util.Some(t.Color)))
	}
	return params
}

func roleParams(organizationID uuid.UUID, name, description string, permissions []string, color util.Optional[string]) database.CreateRoleParams {
	if permissions == nil {
		permissions = []string{}
	}
	flags := DeriveFlags(permissions)
	return database.CreateRoleParams{
		OrganizationID:        organizationID,
		Name:                  name,
		Description:           util.NonEmpty(description),
		Permissions:           permissions,
		CanAssignTasks:        flags.CanAssignTasks,
		CanManageHorses:       flags.CanManageHorses,
		CanViewAllHorses:      flags.CanViewAllHorses,
		CanManageOrganization: flags.CanManageOrganization,
		Color:                 color,
	}
}

// AdminRole picks the role an owner is linked to: the first role, in
// creation order, whose name is one of AdminRoleNames.
func AdminRole(roles []database.Role) (database.Role, bool) {
	for _, role := range roles {
		if slices.Contains(AdminRoleNames, role.Name) {
			return role, true
		}
	}
	return database.Role{}, false
}

// Settings returns the initial settings blob for an organization type.
func Settings(orgType string) map[string]any {
	if orgType == TypeTrainer {
		return map[string]any{
			"is_trainer":                true,
			"accepts_training_requests": true,
			"training_specializations":  []string{},
		}
	}
	return map[string]any{}
}

// ProfileAccountType is the profile account type for an organization owner.
func ProfileAccountType(orgType string) string {
	if orgType == TypeTrainer {
		return "trainer"
	}
	return "organization"
}
