package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ledger-gateway/internal/domain"
	apperrors "github.com/spec-kit/ledger-gateway/pkg/util/errorutil"
)

// Route identifies an endpoint by method and registered path.
type Route struct {
	Method string
	Path   string
}

// Access describes who may call a route. An empty Roles list admits any
// authenticated caller.
type Access struct {
	Public bool
	Roles  []domain.Role
}

// Policy is the route authorization table. Routes absent from it are denied.
type Policy map[Route]Access

// Authorize decides whether a caller with role may use route. identified is false
// when no token was presented.
func (p Policy) Authorize(route Route, role domain.Role, identified bool) error {
	access, listed := p[route]
	if !listed {
		return apperrors.NewForbidden("route not permitted")
	}
	if access.Public {
		return nil
	}
	if !identified {
		return apperrors.NewUnauthorized(MsgMissingToken)
	}
	if len(access.Roles) == 0 {
		if role.Known() {
			return nil
		}
		return apperrors.NewForbidden("insufficient role")
	}
	for _, required := range access.Roles {
		if role.Satisfies(required) {
			return nil
		}
	}
	return apperrors.NewForbidden("insufficient role")
}

// Guard returns the per-route handler enforcing the table entry for route.
func (p Policy) Guard(method, path string) fiber.Handler {
	route := Route{Method: method, Path: path}
	return func(c *fiber.Ctx) error {
		role := domain.RoleUnknown
		identity, ok := IdentityFromContext(c)
		if ok {
			role = identity.Role
		}
		if err := p.Authorize(route, role, ok); err != nil {
			return err
		}
		return c.Next()
	}
}
