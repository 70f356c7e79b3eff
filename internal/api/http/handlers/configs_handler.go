package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ledger-gateway/internal/auth"
	"github.com/spec-kit/ledger-gateway/internal/service"
)

// ConfigsHandler exposes the ledger-held platform and network configuration.
type ConfigsHandler struct {
	configs *service.ConfigService
}

// NewConfigsHandler constructs handler.
func NewConfigsHandler(configs *service.ConfigService) *ConfigsHandler {
	return &ConfigsHandler{configs: configs}
}

// Get returns a handler for GET /api/configs/<kind>.
func (h *ConfigsHandler) Get(kind service.ConfigKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := h.configs.Get(c.UserContext(), kind)
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(doc)
	}
}

// Update returns a handler for POST /api/configs/<kind>.
func (h *ConfigsHandler) Update(kind service.ConfigKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, _ := auth.IdentityFromContext(c)
		doc, err := h.configs.Update(c.UserContext(), caller, kind, c.Body())
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(doc)
	}
}
