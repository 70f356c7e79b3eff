package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ledger-gateway/internal/auth"
	"github.com/spec-kit/ledger-gateway/internal/service"
)

// QueriesHandler exposes query submission and listing.
type QueriesHandler struct {
	queries *service.QueryService
}

// NewQueriesHandler constructs handler.
func NewQueriesHandler(queries *service.QueryService) *QueriesHandler {
	return &QueriesHandler{queries: queries}
}

// Submit handles POST /api/queries.
func (h *QueriesHandler) Submit(c *fiber.Ctx) error {
	caller, _ := auth.IdentityFromContext(c)
	result, err := h.queries.Submit(c.UserContext(), caller, c.Body())
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(result)
}

// Read handles GET /api/queries/read.
func (h *QueriesHandler) Read(c *fiber.Ctx) error {
	queries, err := h.queries.ReadAll(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": queries, "count": len(queries)})
}
