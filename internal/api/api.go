package api

import (
	"context"
	"log/slog"
	"time"

	"stabledesk/internal/account"
	"stabledesk/internal/audit"
	"stabledesk/internal/business"
	"stabledesk/internal/config"
	"stabledesk/internal/dashboard"
	"stabledesk/internal/organisation"
	"stabledesk/internal/provisioning"
	"stabledesk/internal/telemetry"
	"stabledesk/internal/validator"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/session"
)

const bodyLimit = 12 << 20

// LoginLimiter counts sign-in attempts per client IP and email.
type LoginLimiter interface {
	Check(ctx context.Context, ip, email string) error
	Reset(ctx context.Context, ip, email string) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Logger        *slog.Logger
	Server        config.ServerConfig
	DB            Pinger
	Sessions      *session.Store
	Validator     *validator.Validator
	LoginLimiter  LoginLimiter
	Authenticator *account.Authenticator
	Accounts      *account.Manager
	Organisations *organisation.Manager
	Provisioner   *provisioning.Provisioner
	Business      *business.Manager
	Dashboard     *dashboard.Service
	Auditor       *audit.Auditor
	Metrics       *telemetry.Metrics
}

type Handler struct {
	logger        *slog.Logger
	server        config.ServerConfig
	db            Pinger
	sessions      *session.Store
	validator     *validator.Validator
	loginLimiter  LoginLimiter
	authenticator *account.Authenticator
	accounts      *account.Manager
	organisations *organisation.Manager
	provisioner   *provisioning.Provisioner
	business      *business.Manager
	dashboard     *dashboard.Service
	auditor       *audit.Auditor
	metrics       *telemetry.Metrics
}

func NewHandler(deps Deps) *Handler {
	return &Handler{
		logger:        deps.Logger,
		server:        deps.Server,
		db:            deps.DB,
		sessions:      deps.Sessions,
		validator:     deps.Validator,
		loginLimiter:  deps.LoginLimiter,
		authenticator: deps.Authenticator,
		accounts:      deps.Accounts,
		organisations: deps.Organisations,
		provisioner:   deps.Provisioner,
		business:      deps.Business,
		dashboard:     deps.Dashboard,
		auditor:       deps.Auditor,
		metrics:       deps.Metrics,
	}
}

// NewApp builds the Fiber app with the middleware chain and every route.
func NewApp(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "stabledesk",
		ReadTimeout:  deps.Server.ReadTimeout,
		WriteTimeout: deps.Server.WriteTimeout,
		BodyLimit:    bodyLimit,
		ErrorHandler: ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(telemetry.FiberMiddleware("stabledesk"))
	app.Use(RequestLogger(deps.Logger))
	app.Use(RequestTimeout(deps.Server.RequestTimeout))

	NewHandler(deps).Register(app)
	return app
}

func (h *Handler) Register(app *fiber.App) {
	api := app.Group("/api")

	api.Get("/health", h.Healthy)

	auth := api.Group("/auth")
	auth.Post("/login", h.loginThrottle(), h.Login)
	auth.Post("/logout", h.RequireOperator, h.Logout)
	auth.Get("/session", h.RequireOperator, h.Session)

	protected := api.Group("", h.RequireOperator)

	protected.Get("/operators", h.ListOperators)
	protected.Post("/operators", h.CreateOperator)

	protected.Get("/organizations", h.ListOrganizations)
	protected.Post("/organizations", h.CreateOrganization)
	protected.Post("/organizations/setup", h.ProvisionOrganization)
	protected.Get("/organizations/:id", h.GetOrganization)
	protected.Patch("/organizations/:id", h.UpdateOrganization)

	protected.Get("/organization-members", h.ListMembers)
	protected.Post("/organization-members", h.CreateMember)
	protected.Patch("/organization-members/:id", h.UpdateMember)

	protected.Get("/roles", h.ListRoles)
	protected.Post("/roles", h.CreateRole)
	protected.Patch("/roles/:id", h.UpdateRole)
	protected.Get("/role-templates/:type", h.GetRoleTemplate)

	protected.Get("/profiles", h.ListProfiles)
	protected.Post("/profiles", h.CreateProfile)

	protected.Get("/users", h.ListUsers)
	protected.Post("/users", h.CreateUser)

	protected.Get("/selection", h.GetSelection)
	protected.Put("/selection", h.PutSelection)

	setup := protected.Group("/business-setup")
	setup.Post("/horses", h.CreateHorses)
	setup.Get("/horses/existing", h.ListHorses)
	setup.Post("/horses/:id/photos", h.AddHorsePhoto)
	setup.Post("/consumables", h.CreateConsumables)
	setup.Get("/consumables/existing", h.ListConsumables)
	setup.Post("/service-pricing", h.CreateServicePricing)
	setup.Get("/service-pricing/existing", h.ListServicePricing)
	setup.Get("/service-pricing/templates", h.ServiceTemplates)

	protected.Get("/dashboard", h.Dashboard)
	protected.Get("/users-with-organizations", h.UsersWithOrganizations)

	protected.Get("/provisioning-runs", h.ListProvisioningRuns)
	protected.Get("/provisioning-runs/:id", h.GetProvisioningRun)

	protected.Get("/schema/options", h.SchemaOptions)
	protected.Get("/audit-log", h.ListAuditLog)
}

// loginThrottle uses Fiber's in-memory limiter when no shared limiter is
// configured.
func (h *Handler) loginThrottle() fiber.Handler {
	if h.loginLimiter != nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	maxAttempts := h.server.LoginMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	window := h.server.LoginWindow
	if window <= 0 {
		window = 15 * time.Minute
	}

	return limiter.New(limiter.Config{
		Max:        maxAttempts,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return fail(c, fiber.StatusTooManyRequests, "Too many login attempts, please try again later", nil)
		},
	})
}
