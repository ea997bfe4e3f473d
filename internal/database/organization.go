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

type Organization struct {
	ID                    uuid.UUID                `json:"id"`
	Name                  string                   `json:"name"`
	Type                  string                   `json:"type"`
	Description           util.Optional[string]    `json:"description"`
	OwnerID               uuid.UUID                `json:"owner_id"`
	Address               util.Optional[string]    `json:"address"`
	Phone                 util.Optional[string]    `json:"phone"`
	Email                 util.Optional[string]    `json:"email"`
	Website               util.Optional[string]    `json:"website"`
	LogoURL               util.Optional[string]    `json:"logo_url"`
	Settings              map[string]any           `json:"settings"`
	SubscriptionTier      string                   `json:"subscription_tier"`
	SubscriptionExpiresAt util.Optional[time.Time] `json:"subscription_expires_at"`
	BillingCustomerID     util.Optional[string]    `json:"billing_customer_id"`
	IsActive              bool                     `json:"is_active"`
	MemberCount           int64                    `json:"member_count"`
	CreatedAt             time.Time                `json:"created_at"`
	UpdatedAt             time.Time                `json:"updated_at"`
}

const organizationColumns = `o.id, o.name, o.type, o.description, o.owner_id, o.address, o.phone, o.email, o.website, o.logo_url, o.settings, o.subscription_tier, o.subscription_expires_at, o.billing_customer_id, o.is_active, o.created_at, o.updated_at,
	(SELECT COUNT(*) FROM tbl_organization_member m WHERE m.organization_id = o.id) AS member_count`

func scanOrganization(row pgx.Row) (Organization, error) {
	var org Organization
	err := row.Scan(&org.ID, &org.Name, &org.Type, &org.Description, &org.OwnerID, &org.Address, &org.Phone, &org.Email, &org.Website, &org.LogoURL,
		&org.Settings, &org.SubscriptionTier, &org.SubscriptionExpiresAt, &org.BillingCustomerID, &org.IsActive, &org.CreatedAt, &org.UpdatedAt, &org.MemberCount)
	return org, err
}

type CreateOrganizationParams struct {
	Name             string
	Type             string
	Description      util.Optional[string]
	OwnerID          uuid.UUID
	Address          util.Optional[string]
	Phone            util.Optional[string]
	Email            util.Optional[string]
	Website          util.Optional[string]
	LogoURL          util.Optional[string]
	Settings         map[string]any
	SubscriptionTier string
	IsActive         bool
}

func (db *Database) CreateOrganization(ctx context.Context, params CreateOrganizationParams) (Organization, error) {
	now := time.Now().UTC()
	org := Organization{
		ID:                    uuid.New(),
		Name:                  params.Name,
		Type:                  params.Type,
		Description:           params.Description,
		OwnerID:               params.OwnerID,
		Address:               params.Address,
		Phone:                 params.Phone,
		Email:                 params.Email,
		Website:               params.Website,
		LogoURL:               params.LogoURL,
		Settings:              params.Settings,
		SubscriptionTier:      params.SubscriptionTier,
		SubscriptionExpiresAt: util.None[time.Time](),
		BillingCustomerID:     util.None[string](),
		IsActive:              params.IsActive,
		MemberCount:           0,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if org.Settings == nil {
		org.Settings = map[string]any{}
	}

	if _, err := db.conn().Exec(ctx, `INSERT INTO tbl_organization (id, name, type, description, owner_id, address, phone, email, website, logo_url, settings, subscription_tier, is_active, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		org.ID, org.Name, org.Type, org.Description, org.OwnerID, org.Address, org.Phone, org.Email, org.Website, org.LogoURL, org.Settings, org.SubscriptionTier, org.IsActive, org.CreatedAt, org.UpdatedAt); err != nil {
		return org, fmt.Errorf("database: failed to insert organization (name=%s): %w", org.Name, classify(err))
	}
	return org, nil
}

func (db *Database) GetOrganizationByID(ctx context.Context, id uuid.UUID) (Organization, error) {
	org, err := scanOrganization(db.conn().QueryRow(ctx, `SELECT `+organizationColumns+` FROM tbl_organization o WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return org, ErrOrganizationNotFound
		}
		return org, fmt.Errorf("database: failed to scan organization: %w", err)
	}
	return org, nil
}

type ListOrganizationsParams struct {
	IsActive util.Optional[bool]
	Type     util.Optional[string]
	OrderBy  OrderBy
}

// ListOrganizations lists organizations by creation time, each with its live member count.
func (db *Database) ListOrganizations(ctx context.Context, params ListOrganizationsParams) ([]Organization, error) {
	b := newWhereBuilder(`SELECT ` + organizationColumns + ` FROM tbl_organization o`)
	if params.IsActive.IsSet {
		b.and("o.is_active = $%d", params.IsActive.Val)
	}
	if params.Type.IsSet {
		b.and("o.type = $%d", params.Type.Val)
	}
	b.raw(" ORDER BY o.created_at " + params.OrderBy.String())

	rows, err := db.conn().Query(ctx, b.String(), b.args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list organizations: %w", err)
	}
	defer rows.Close()

	orgs := []Organization{}
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("database: failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate organizations: %w", err)
	}
	return orgs, nil
}

type UpdateOrganizationParams struct {
	Description       util.Optional[string]
	Address           util.Optional[string]
	Phone             util.Optional[string]
	Email             util.Optional[string]
	Website           util.Optional[string]
	SubscriptionTier  util.Optional[string]
	BillingCustomerID util.Optional[string]
	IsActive          util.Optional[bool]
}

func (db *Database) UpdateOrganizationByID(ctx context.Context, id uuid.UUID, params UpdateOrganizationParams) (Organization, error) {
	var b setBuilder
	if params.Description.IsSet {
		b.set("description", params.Description.Val)
	}
	if params.Address.IsSet {
		b.set("address", params.Address.Val)
	}
	if params.Phone.IsSet {
		b.set("phone", params.Phone.Val)
	}
	if params.Email.IsSet {
		b.set("email", params.Email.Val)
	}
	if params.Website.IsSet {
		b.set("website", params.Website.Val)
	}
	if params.SubscriptionTier.IsSet {
		b.set("subscription_tier", params.SubscriptionTier.Val)
	}
	if params.BillingCustomerID.IsSet {
		b.set("billing_customer_id", params.BillingCustomerID.Val)
	}
	if params.IsActive.IsSet {
		b.set("is_active", params.IsActive.Val)
	}
	if b.empty() {
		return db.GetOrganizationByID(ctx, id)
	}

	var updatedID uuid.UUID
	if err := db.conn().QueryRow(ctx, b.statement("tbl_organization", "id"), append([]any{id}, b.args...)...).Scan(&updatedID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Organization{}, ErrOrganizationNotFound
		}
		return Organization{}, fmt.Errorf("database: failed to update organization (id=%s): %w", id, classify(err))
	}
	return db.GetOrganizationByID(ctx, updatedID)
}
