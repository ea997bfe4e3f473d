package provisioning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"stabledesk/internal/account"
	"stabledesk/internal/audit"
	"stabledesk/internal/database"
	"stabledesk/internal/openfga"
	"stabledesk/internal/organisation"
	"stabledesk/internal/stripe"
	"stabledesk/internal/telemetry"
	"stabledesk/internal/util"
	"stabledesk/internal/validator"

	"github.com/google/uuid"
)

const (
	StepCreateOwnerAccount      = "create_owner_account"
	StepCreateOrganization      = "create_organization"
	StepCreateDefaultRoles      = "create_default_roles"
	StepLinkOwnerMembership     = "link_owner_membership"
	StepCreateOwnerProfile      = "create_owner_profile"
	StepRegisterBillingCustomer = "register_billing_customer"
	StepGrantOwnerAccess        = "grant_owner_access"

	// StepCommit is recorded when every step succeeded but the transaction
	// did not commit.
	StepCommit = "commit"
	// StepUnknown is recorded for runs that never reported an outcome.
	StepUnknown = "unknown"
)

var (
	ErrAdminRoleNotFound = errors.New("admin role not found")
)

// Store is the transactional persistence used by the in-database steps.
type Store interface {
	account.Store
	CreateOrganization(ctx context.Context, params database.CreateOrganizationParams) (database.Organization, error)
	UpdateOrganizationByID(ctx context.Context, id uuid.UUID, params database.UpdateOrganizationParams) (database.Organization, error)
	CreateRoles(ctx context.Context, params []database.CreateRoleParams) ([]database.Role, error)
	CreateOrganizationMember(ctx context.Context, params database.CreateOrganizationMemberParams) (database.OrganizationMember, error)
	CreateUserProfile(ctx context.Context, params database.CreateUserProfileParams) (database.UserProfile, error)
}

// RunStore keeps the provisioning run records. It is used outside the
// transaction so a failed run is still recorded.
type RunStore interface {
	CreateProvisioningRun(ctx context.Context, params database.CreateProvisioningRunParams) (database.ProvisioningRun, error)
	FinishProvisioningRun(ctx context.Context, id uuid.UUID, params database.FinishProvisioningRunParams) (database.ProvisioningRun, error)
	GetProvisioningRunByID(ctx context.Context, id uuid.UUID) (database.ProvisioningRun, error)
	ListProvisioningRuns(ctx context.Context, params database.ListProvisioningRunsParams) ([]database.ProvisioningRun, error)
	FailStaleProvisioningRuns(ctx context.Context, startedBefore time.Time, step, reason string) (int64, error)
}

type Backend interface {
	RunStore
	InTx(ctx context.Context, fn func(tx Store) error) error
}

type Billing interface {
	IsEnabled() bool
	CreateCustomer(ctx context.Context, params stripe.CreateCustomerParams) (stripe.Customer, error)
	DeleteCustomer(ctx context.Context, customerID string) error
}

type Provisioner struct {
	logger    *slog.Logger
	backend   Backend
	validator *validator.Validator
	accounts  *account.Manager
	billing   Billing
	authz     openfga.Authorizer
	auditor   *audit.Auditor
	metrics   *telemetry.Metrics
}

func NewProvisioner(logger *slog.Logger, backend Backend, v *validator.Validator, accounts *account.Manager, billing Billing, authz openfga.Authorizer, auditor *audit.Auditor, metrics *telemetry.Metrics) *Provisioner {
	return &Provisioner{
		logger:    logger,
		backend:   backend,
		validator: v,
		accounts:  accounts,
		billing:   billing,
		authz:     authz,
		auditor:   auditor,
		metrics:   metrics,
	}
}

type Input struct {
	Name             string `json:"name" label:"Name" validate:"notblank"`
	Type             string `json:"type" label:"Type" validate:"notblank,enum=organization_type"`
	Description      string `json:"description"`
	Address          string `json:"address"`
	Phone            string `json:"phone"`
	Email            string `json:"email" label:"Email" validate:"omitempty,email"`
	Website          string `json:"website"`
	SubscriptionTier string `json:"subscription_tier" label:"Subscription tier" validate:"omitempty,enum=subscription_tier"`
	OwnerEmail       string `json:"owner_email" label:"Owner email" validate:"required,email"`
	OwnerName        string `json:"owner_name" label:"Owner name" validate:"notblank"`
	OwnerPassword    string `json:"owner_password" label:"Owner password" validate:"required,password_strength"`
}

type Result struct {
	Run          database.ProvisioningRun    `json:"run"`
	Organization database.Organization       `json:"organization"`
	Owner        database.Account            `json:"owner"`
	Roles        []database.Role             `json:"roles"`
	Membership   database.OrganizationMember `json:"membership"`
	Profile      database.UserProfile        `json:"profile"`
}

// StepError reports the step a run failed at. It unwraps to the cause.
type StepError struct {
	Step  string
	RunID uuid.UUID
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("provisioning: step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

type compensation struct {
	step string
	undo func(ctx context.Context) error
}

// Provision onboards an organization and its owner. The in-database steps
// share one transaction. The external steps run inside that transaction's
// scope and are compensated in reverse order when anything fails.
func (p *Provisioner) Provision(ctx context.Context, input Input) (Result, error) {
	if err := p.validator.Struct(input); err != nil {
		return Result{}, err
	}

	tier := input.SubscriptionTier
	if tier == "" {
		tier = organisation.TierBasic
	}
	ownerEmail := account.NormalizeEmail(input.OwnerEmail)
	ownerName := strings.TrimSpace(input.OwnerName)

	run, err := p.backend.CreateProvisioningRun(ctx, database.CreateProvisioningRunParams{
		OrganizationName: strings.TrimSpace(input.Name),
		OwnerEmail:       ownerEmail,
		OperatorID:       audit.OperatorFromContext(ctx),
	})
	if err != nil {
		return Result{}, fmt.Errorf("provisioning: failed to open run: %w", err)
	}

	logger := p.logger.With("run_id", run.ID, "organization", run.OrganizationName)

	var (
		result        Result
		completed     []string
		compensations []compensation
		current       string
	)

	step := func(name string, fn func() error) error {
		current = name
		if err := fn(); err != nil {
			return err
		}
		completed = append(completed, name)
		logger.DebugContext(ctx, "Provisioning step completed", "step", name)
		return nil
	}

	err = p.backend.InTx(ctx, func(tx Store) error {
		if err := step(StepCreateOwnerAccount, func() (err error) {
			result.Owner, err = p.accounts.WithStore(tx).Create(ctx, account.CreateParams{
				Email:          ownerEmail,
				Password:       input.OwnerPassword,
				FullName:       ownerName,
				EmailConfirmed: true,
				Metadata:       map[string]any{"full_name": ownerName, "role": "owner"},
			})
			return err
		}); err != nil {
			return err
		}

		if err := step(StepCreateOrganization, func() (err error) {
			result.Organization, err = tx.CreateOrganization(ctx, database.CreateOrganizationParams{
				Name:             strings.TrimSpace(input.Name),
				Type:             input.Type,
				Description:      util.NonEmpty(input.Description),
				OwnerID:          result.Owner.ID,
				Address:          util.NonEmpty(input.Address),
				Phone:            util.NonEmpty(input.Phone),
				Email:            util.NonEmpty(input.Email),
				Website:          util.NonEmpty(input.Website),
				Settings:         organisation.Settings(input.Type),
				SubscriptionTier: tier,
				IsActive:         true,
			})
			return err
		}); err != nil {
			return err
		}

		if err := step(StepCreateDefaultRoles, func() (err error) {
			result.Roles, err = tx.CreateRoles(ctx, organisation.DefaultRoleParams(result.Organization.ID, input.Type))
			return err
		}); err != nil {
			return err
		}

		if err := step(StepLinkOwnerMembership, func() (err error) {
			adminRole, ok := organisation.AdminRole(result.Roles)
			if !ok {
				return ErrAdminRoleNotFound
			}
			result.Membership, err = tx.CreateOrganizationMember(ctx, database.CreateOrganizationMemberParams{
				OrganizationID: result.Organization.ID,
				UserID:         result.Owner.ID,
				RoleID:         adminRole.ID,
				IsActive:       true,
			})
			return err
		}); err != nil {
			return err
		}

		if err := step(StepCreateOwnerProfile, func() (err error) {
			result.Profile, err = tx.CreateUserProfile(ctx, database.CreateUserProfileParams{
				UserID:      result.Owner.ID,
				AccountType: organisation.ProfileAccountType(input.Type),
				DisplayName: util.Some(ownerName),
				Bio:         util.Some(ownerName + " - " + input.Type + " owner"),
				IsActive:    true,
			})
			return err
		}); err != nil {
			return err
		}

		if p.billing != nil && p.billing.IsEnabled() && stripe.RequiresCustomer(tier) {
			if err := step(StepRegisterBillingCustomer, func() error {
				customer, err := p.billing.CreateCustomer(ctx, stripe.CreateCustomerParams{
					OrganizationID: result.Organization.ID,
					Name:           result.Organization.Name,
					Email:          ownerEmail,
					Tier:           tier,
				})
				if err != nil {
					return err
				}
				compensations = append(compensations, compensation{
					step: StepRegisterBillingCustomer,
					undo: func(ctx context.Context) error { return p.billing.DeleteCustomer(ctx, customer.ID) },
				})

				result.Organization, err = tx.UpdateOrganizationByID(ctx, result.Organization.ID, database.UpdateOrganizationParams{
					BillingCustomerID: util.Some(customer.ID),
				})
				return err
			}); err != nil {
				return err
			}
		}

		if p.authz != nil && p.authz.IsEnabled() {
			if err := step(StepGrantOwnerAccess, func() error {
				ownerID, orgID := result.Owner.ID, result.Organization.ID
				if err := p.authz.GrantOwner(ctx, ownerID, orgID); err != nil {
					return err
				}
				compensations = append(compensations, compensation{
					step: StepGrantOwnerAccess,
					undo: func(ctx context.Context) error { return p.authz.RevokeOwner(ctx, ownerID, orgID) },
				})
				return nil
			}); err != nil {
				return err
			}
		}

		current = StepCommit
		return nil
	})

	// Recording the outcome must survive a cancelled request.
	detached := context.WithoutCancel(ctx)

	if err != nil {
		failedStep := current
		for i := len(compensations) - 1; i >= 0; i-- {
			c := compensations[i]
			if undoErr := c.undo(detached); undoErr != nil {
				logger.ErrorContext(ctx, "Provisioning compensation failed", "step", c.step, "error", undoErr)
			}
		}

		if _, finishErr := p.backend.FinishProvisioningRun(detached, run.ID, database.FinishProvisioningRunParams{
			Status:         database.ProvisioningRunStatusFailed,
			CompletedSteps: completedOrEmpty(completed),
			FailedStep:     util.Some(failedStep),
			Error:          util.Some(err.Error()),
		}); finishErr != nil {
			logger.ErrorContext(ctx, "Failed to record failed provisioning run", "error", finishErr)
		}

		p.metrics.RecordProvisioningRun(ctx, string(database.ProvisioningRunStatusFailed), failedStep)
		logger.WarnContext(ctx, "Provisioning failed", "step", failedStep, "error", err)
		return Result{}, &StepError{Step: failedStep, RunID: run.ID, Err: err}
	}

	finished, err := p.backend.FinishProvisioningRun(detached, run.ID, database.FinishProvisioningRunParams{
		Status:         database.ProvisioningRunStatusCompleted,
		CompletedSteps: completedOrEmpty(completed),
		OrganizationID: util.Some(result.Organization.ID),
	})
	if err != nil {
		// The organization exists; only the marker is missing. The stale run
		// sweep will flag it, so report success with the open run.
		logger.ErrorContext(ctx, "Failed to record completed provisioning run", "error", err)
		finished = run
		finished.CompletedSteps = completedOrEmpty(completed)
	}
	result.Run = finished

	// The owner is the organization's first member.
	result.Organization.MemberCount = 1

	p.metrics.RecordProvisioningRun(ctx, string(database.ProvisioningRunStatusCompleted), "")
	p.auditor.Record(ctx, audit.EventTypeOrganizationProvisioned, map[string]any{
		"run_id":          run.ID,
		"organization_id": result.Organization.ID,
		"owner_id":        result.Owner.ID,
		"type":            result.Organization.Type,
	})
	logger.InfoContext(ctx, "Organization provisioned", "organization_id", result.Organization.ID, "steps", len(completed))
	return result, nil
}

func completedOrEmpty(steps []string) []string {
	if steps == nil {
		return []string{}
	}
	return steps
}

func (p *Provisioner) GetRun(ctx context.Context, id uuid.UUID) (database.ProvisioningRun, error) {
	run, err := p.backend.GetProvisioningRunByID(ctx, id)
	if err != nil {
		return database.ProvisioningRun{}, fmt.Errorf("provisioning: failed to get run: %w", err)
	}
	return run, nil
}

type ListRunsParam struct {
	Status string
	Limit  int
}

// ListRuns lists runs newest first.
func (p *Provisioner) ListRuns(ctx context.Context, param ListRunsParam) ([]database.ProvisioningRun, error) {
	params := database.ListProvisioningRunsParams{Limit: param.Limit}
	if param.Status != "" {
		params.Status = util.Some(database.ProvisioningRunStatus(param.Status))
	}
	runs, err := p.backend.ListProvisioningRuns(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("provisioning: failed to list runs: %w", err)
	}
	return runs, nil
}

// FailAbandonedRuns marks runs still running after maxAge as failed.
func (p *Provisioner) FailAbandonedRuns(ctx context.Context, maxAge time.Duration) (int64, error) {
	n, err := p.backend.FailStaleProvisioningRuns(ctx, time.Now().UTC().Add(-maxAge), StepUnknown, "abandoned")
	if err != nil {
		return 0, fmt.Errorf("provisioning: failed to fail abandoned runs: %w", err)
	}
	for i := int64(0); i < n; i++ {
		p.metrics.RecordProvisioningRun(ctx, string(database.ProvisioningRunStatusFailed), StepUnknown)
	}
	return n, nil
}
