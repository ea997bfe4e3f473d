package openfga

import (
	"context"

	"github.com/google/uuid"
)

const (
	RelationOwner  = "owner"
	RelationMember = "member"
)

func OwnerTuple(userID, organizationID uuid.UUID) Tuple {
	return Tuple{User: "user:" + userID.String(), Relation: RelationOwner, Object: "organization:" + organizationID.String()}
}

func MemberTuple(userID, organizationID uuid.UUID) Tuple {
	return Tuple{User: "user:" + userID.String(), Relation: RelationMember, Object: "organization:" + organizationID.String()}
}

// Authorizer is the relationship surface the organisation and provisioning
// packages depend on.
type Authorizer interface {
	IsEnabled() bool
	GrantOwner(ctx context.Context, userID, organizationID uuid.UUID) error
	RevokeOwner(ctx context.Context, userID, organizationID uuid.UUID) error
	GrantMember(ctx context.Context, userID, organizationID uuid.UUID) error
	RevokeMember(ctx context.Context, userID, organizationID uuid.UUID) error
}

func (c *Client) GrantOwner(ctx context.Context, userID, organizationID uuid.UUID) error {
	return c.Write(ctx, OwnerTuple(userID, organizationID))
}

func (c *Client) RevokeOwner(ctx context.Context, userID, organizationID uuid.UUID) error {
	return c.Delete(ctx, OwnerTuple(userID, organizationID))
}

func (c *Client) GrantMember(ctx context.Context, userID, organizationID uuid.UUID) error {
	return c.Write(ctx, MemberTuple(userID, organizationID))
}

func (c *Client) RevokeMember(ctx context.Context, userID, organizationID uuid.UUID) error {
	return c.Delete(ctx, MemberTuple(userID, organizationID))
}
