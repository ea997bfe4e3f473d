package api

import (
	"fmt"

	"stabledesk/internal/business"

	"github.com/gofiber/fiber/v2"
)

type createHorsesRequest struct {
	UserID         string                `json:"user_id"`
	OrganizationID string                `json:"organization_id"`
	Horses         []business.HorseInput `json:"horses"`
}

type createConsumablesRequest struct {
	UserID         string                     `json:"user_id"`
	OrganizationID string                     `json:"organization_id"`
	Consumables    []business.ConsumableInput `json:"consumables"`
}

type createServicePricingRequest struct {
	UserID           string                          `json:"user_id"`
	OrganizationID   string                          `json:"organization_id"`
	TransactionTypes []business.TransactionTypeInput `json:"transaction_types"`
}

func (h *Handler) requestOwner(c *fiber.Ctx, userID, organizationID string) (business.Owner, error) {
	owner, err := business.ParseOwner(userID, organizationID)
	if err != nil {
		return business.Owner{}, err
	}
	return h.ownerOrSelection(c, owner), nil
}

func (h *Handler) CreateHorses(c *fiber.Ctx) error {
	var req createHorsesRequest
	if err := decode(c, &req); err != nil {
		return h.respondError(c, err)
	}
	owner, err := h.requestOwner(c, req.UserID, req.OrganizationID)
	if err != nil {
		return h.respondError(c, err)
	}

	horses, err := h.business.CreateHorses(c.UserContext(), owner, req.Horses)
	if err != nil {
		return h.respondError(c, err)
	}
	return success(c, fiber.StatusCreated, fmt.Sprintf("Successfully added %d horses", len(horses)), fiber.Map{
		"horses_created": len(horses),
		"horses":         horses,
	})
}

func (h *Handler) ListHorses(c *fiber.Ctx) error {
	owner, err := business.ParseOwner(c.Query("user_id"), c.Query("organization_id"))
	if err != nil {
		return h.respondError(c, err)
	}

	horses, err := h.business.ListHorses(c.UserContext(), owner)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"horses": horses, "count": len(horses)})
}

func (h *Handler) AddHorsePhoto(c *fiber.Ctx) error {
	horseID, err := paramID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}

	header, err := c.FormFile("photo")
	if err != nil {
		return badRequest(c, "A photo file is required", "photo must be sent as multipart form data")
	}
	file, err := header.Open()
	if err != nil {
		return h.respondError(c, fmt.Errorf("api: failed to open upload: %w", err))
	}
	defer file.Close()

	horse, err := h.business.AddHorsePhoto(c.UserContext(), horseID, business.PhotoUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get(fiber.HeaderContentType),
		Size:        header.Size,
		Content:     file,
	})
	if err != nil {
		return h.respondError(c, err)
	}
	return success(c, fiber.StatusCreated, "Photo added", fiber.Map{"horse": horse})
}

func (h *Handler) CreateConsumables(c *fiber.Ctx) error {
	var req createConsumablesRequest
	if err := decode(c, &req); err != nil {
		return h.respondError(c, err)
	}
	owner, err := h.requestOwner(c, req.UserID, req.OrganizationID)
	if err != nil {
		return h.respondError(c, err)
	}

	consumables, err := h.business.CreateConsumables(c.UserContext(), owner, req.Consumables)
	if err != nil {
		return h.respondError(c, err)
	}
	return success(c, fiber.StatusCreated, fmt.Sprintf("Successfully added %d consumables", len(consumables)), fiber.Map{
		"consumables_created": len(consumables),
		"consumables":         consumables,
	})
}

func (h *Handler) ListConsumables(c *fiber.Ctx) error {
	owner, err := business.ParseOwner(c.Query("user_id"), c.Query("organization_id"))
	if err != nil {
		return h.respondError(c, err)
	}

	consumables, err := h.business.ListConsumables(c.UserContext(), owner)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"consumables": consumables, "count": len(consumables)})
}

func (h *Handler) CreateServicePricing(c *fiber.Ctx) error {
	var req createServicePricingRequest
	if err := decode(c, &req); err != nil {
		return h.respondError(c, err)
	}
	owner, err := h.requestOwner(c, req.UserID, req.OrganizationID)
	if err != nil {
		return h.respondError(c, err)
	}

	types, err := h.business.CreateTransactionTypes(c.UserContext(), owner.OrganizationID, owner.UserID, req.TransactionTypes)
	if err != nil {
		return h.respondError(c, err)
	}
	return success(c, fiber.StatusCreated, fmt.Sprintf("Successfully added %d transaction types", len(types)), fiber.Map{
		"transaction_types_created": len(types),
		"transaction_types":         types,
	})
}

func (h *Handler) ListServicePricing(c *fiber.Ctx) error {
	orgID, err := queryID(c, "organization_id")
	if err != nil {
		return h.respondError(c, err)
	}

	types, err := h.business.ListTransactionTypes(c.UserContext(), orgID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"transaction_types": types, "count": len(types)})
}

func (h *Handler) ServiceTemplates(c *fiber.Ctx) error {
	templates, err := business.ServiceTemplates(c.Query("category"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"templates":  templates,
		"categories": business.ServiceCategories(),
	})
}
