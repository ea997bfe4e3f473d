package api

import (
	"strings"

	"stabledesk/internal/util"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func decode(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	return nil
}

// parse decodes the body into out and runs the shared validation rules.
// Inputs that a manager validates itself only need decode.
func (h *Handler) parse(c *fiber.Ctx, out any) error {
	if err := decode(c, out); err != nil {
		return err
	}
	return h.validator.Struct(out)
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}

// queryID reads an optional id from the query string. An empty value is None.
func queryID(c *fiber.Ctx, name string) (util.Optional[uuid.UUID], error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return util.None[uuid.UUID](), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return util.None[uuid.UUID](), fiber.NewError(fiber.StatusBadRequest, name+" must be a valid id")
	}
	return util.Some(id), nil
}
