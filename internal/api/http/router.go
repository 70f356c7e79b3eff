package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ledger-gateway/internal/api/http/handlers"
	"github.com/spec-kit/ledger-gateway/internal/auth"
	"github.com/spec-kit/ledger-gateway/internal/domain"
	"github.com/spec-kit/ledger-gateway/internal/service"
	apperrors "github.com/spec-kit/ledger-gateway/pkg/util/errorutil"
)

const apiPrefix = "/api"

// Endpoint paths below the /api prefix.
const (
	PathLogin          = "/users/login"
	PathRegister       = "/users/register"
	PathResearchers    = "/users/researchers"
	PathUpdateUser     = "/users/update"
	PathDeleteUser     = "/users/delete"
	PathChangePassword = "/users/change_password"
	PathQueries        = "/queries"
	PathReadQueries    = "/queries/read"
	PathPlatformConfig = "/configs/platform"
	PathNetworkConfig  = "/configs/network"
)

var (
	adminOnly      = auth.Access{Roles: []domain.Role{domain.RoleAdmin}}
	researcherOnly = auth.Access{Roles: []domain.Role{domain.RoleResearcher}}
	anyRole        = auth.Access{}
	public         = auth.Access{Public: true}
)

// AccessPolicy is the role table for every /api route. Routes not listed are denied.
var AccessPolicy = auth.Policy{
	{Method: fiber.MethodPost, Path: apiPrefix + PathLogin}:          public,
	{Method: fiber.MethodPut, Path: apiPrefix + PathChangePassword}:  public,
	{Method: fiber.MethodPost, Path: apiPrefix + PathRegister}:       adminOnly,
	{Method: fiber.MethodGet, Path: apiPrefix + PathResearchers}:     adminOnly,
	{Method: fiber.MethodPut, Path: apiPrefix + PathUpdateUser}:      adminOnly,
	{Method: fiber.MethodDelete, Path: apiPrefix + PathDeleteUser}:   adminOnly,
	{Method: fiber.MethodPost, Path: apiPrefix + PathQueries}:        researcherOnly,
	{Method: fiber.MethodGet, Path: apiPrefix + PathReadQueries}:     {Roles: []domain.Role{domain.RoleAdmin, domain.RoleResearcher}},
	{Method: fiber.MethodGet, Path: apiPrefix + PathPlatformConfig}:  anyRole,
	{Method: fiber.MethodPost, Path: apiPrefix + PathPlatformConfig}: adminOnly,
	{Method: fiber.MethodGet, Path: apiPrefix + PathNetworkConfig}:   anyRole,
	{Method: fiber.MethodPost, Path: apiPrefix + PathNetworkConfig}:  adminOnly,
}

// PublicPaths may be called without a bearer token.
var PublicPaths = []string{apiPrefix + PathLogin, apiPrefix + PathChangePassword}

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Users   *handlers.UsersHandler
	Queries *handlers.QueriesHandler
	Configs *handlers.ConfigsHandler
	Gate    *auth.Gate
	Policy  auth.Policy
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	policy := cfg.Policy
	if policy == nil {
		policy = AccessPolicy
	}

	api := app.Group(apiPrefix, cfg.Gate.Handle)
	add := func(method, path string, handler fiber.Handler) {
		api.Add(method, path, policy.Guard(method, apiPrefix+path), handler)
	}

	add(fiber.MethodPost, PathLogin, cfg.Users.Login)
	add(fiber.MethodPut, PathChangePassword, cfg.Users.ChangePassword)
	add(fiber.MethodPost, PathRegister, cfg.Users.Register)
	add(fiber.MethodGet, PathResearchers, cfg.Users.Researchers)
	add(fiber.MethodPut, PathUpdateUser, cfg.Users.Update)
	add(fiber.MethodDelete, PathDeleteUser, cfg.Users.Delete)

	add(fiber.MethodPost, PathQueries, cfg.Queries.Submit)
	add(fiber.MethodGet, PathReadQueries, cfg.Queries.Read)

	add(fiber.MethodGet, PathPlatformConfig, cfg.Configs.Get(service.ConfigPlatform))
	add(fiber.MethodPost, PathPlatformConfig, cfg.Configs.Update(service.ConfigPlatform))
	add(fiber.MethodGet, PathNetworkConfig, cfg.Configs.Get(service.ConfigNetwork))
	add(fiber.MethodPost, PathNetworkConfig, cfg.Configs.Update(service.ConfigNetwork))

	api.Use(func(c *fiber.Ctx) error {
		return apperrors.NewForbidden("route not permitted")
	})
}
