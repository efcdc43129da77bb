package helper

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func ParseUUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Params(name)))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, name+" tidak valid")
	}
	return id, nil
}

// ParseUUIDQuery membaca query param (dengan alias camelCase opsional).
// present=false kalau param tidak dikirim sama sekali.
func ParseUUIDQuery(c *fiber.Ctx, names ...string) (id uuid.UUID, present bool, err error) {
	raw := ""
	for _, n := range names {
		if v := strings.TrimSpace(c.Query(n)); v != "" {
			raw = v
			break
		}
	}
	if raw == "" {
		return uuid.Nil, false, nil
	}
	id, err = uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, true, fiber.NewError(fiber.StatusBadRequest, names[0]+" tidak valid")
	}
	return id, true, nil
}
