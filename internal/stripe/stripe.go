package stripe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"stabledesk/internal/config"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

var ErrBillingDisabled = errors.New("billing is disabled")

// Client registers billing customers for organizations on paid tiers.
type Client struct {
	logger *slog.Logger
	api    *client.API
}

func NewClient(logger *slog.Logger, cfg config.StripeConfig) *Client {
	c := &Client{logger: logger}
	if cfg.Enabled() {
		c.api = client.New(cfg.SecretKey, nil)
	}
	return c
}

func (c *Client) IsEnabled() bool {
	return c != nil && c.api != nil
}

type Customer struct {
	ID    string
	Email string
}

type CreateCustomerParams struct {
	OrganizationID uuid.UUID
	Name           string
	Email          string
	Tier           string
}

func (c *Client) CreateCustomer(ctx context.Context, params CreateCustomerParams) (Customer, error) {
	if !c.IsEnabled() {
		return Customer{}, ErrBillingDisabled
	}

	customerParams := &stripe.CustomerParams{
		Name:  stripe.String(params.Name),
		Email: stripe.String(params.Email),
	}
	customerParams.Context = ctx
	customerParams.AddMetadata("organization_id", params.OrganizationID.String())
	customerParams.AddMetadata("subscription_tier", params.Tier)

	result, err := c.api.Customers.New(customerParams)
	if err != nil {
		return Customer{}, fmt.Errorf("stripe: failed to create customer: %w", err)
	}

	c.logger.InfoContext(ctx, "Stripe customer created", "customer_id", result.ID, "organization_id", params.OrganizationID)
	return Customer{ID: result.ID, Email: result.Email}, nil
}

func (c *Client) DeleteCustomer(ctx context.Context, customerID string) error {
	if !c.IsEnabled() {
		return ErrBillingDisabled
	}

	params := &stripe.CustomerParams{}
	params.Context = ctx
	if _, err := c.api.Customers.Del(customerID, params); err != nil {
		return fmt.Errorf("stripe: failed to delete customer %s: %w", customerID, err)
	}

	c.logger.InfoContext(ctx, "Stripe customer deleted", "customer_id", customerID)
	return nil
}

// RequiresCustomer reports whether a subscription tier is billed.
func RequiresCustomer(tier string) bool {
	return tier != "" && tier != "basic"
}
