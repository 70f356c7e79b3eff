package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/ledger-gateway/internal/api/dto"
	"github.com/spec-kit/ledger-gateway/internal/auth"
	"github.com/spec-kit/ledger-gateway/internal/domain"
	"github.com/spec-kit/ledger-gateway/internal/service"
	apperrors "github.com/spec-kit/ledger-gateway/pkg/util/errorutil"
)

// UsersHandler exposes login and researcher management endpoints.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// Login handles POST /api/users/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewMalformedRequest("invalid payload", err)
	}
	if req.Username == "" || req.Password == "" {
		return apperrors.NewValidationError("username and password required", nil)
	}

	res, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.LoginResponse{JWT: res.Token, TokenType: "JWT", ExpiresIn: res.ExpiresIn})
}

// Register handles POST /api/users/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewMalformedRequest("invalid payload", err)
	}
	if missing := req.Missing(); len(missing) > 0 {
		return apperrors.NewValidationError("missing fields in JSON body", map[string]any{"missing": missing})
	}

	caller, _ := auth.IdentityFromContext(c)
	user, err := h.auth.RegisterResearcher(c.UserContext(), caller, service.ResearcherDetails{
		Email:       dto.Deref(req.Email),
		FirstName:   dto.Deref(req.FirstName),
		LastName:    dto.Deref(req.LastName),
		Affiliation: dto.Deref(req.Affiliation),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": userResponse(user)})
}

// Researchers handles GET /api/users/researchers.
func (h *UsersHandler) Researchers(c *fiber.Ctx) error {
	researchers, err := h.auth.ListResearchers(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(researchers)
}

// Update handles PUT /api/users/update?user_id=.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewMalformedRequest("invalid payload", err)
	}
	if missing := req.Missing(); len(missing) > 0 {
		return apperrors.NewValidationError("missing fields in JSON body", map[string]any{"missing": missing})
	}

	caller, _ := auth.IdentityFromContext(c)
	user, err := h.auth.UpdateResearcher(c.UserContext(), caller, userID, service.ResearcherDetails{
		FirstName:   dto.Deref(req.FirstName),
		LastName:    dto.Deref(req.LastName),
		Affiliation: dto.Deref(req.Affiliation),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// Delete handles DELETE /api/users/delete?user_id=.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}
	caller, _ := auth.IdentityFromContext(c)
	if err := h.auth.DeleteResearcher(c.UserContext(), caller, userID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusOK)
}

// ChangePassword handles PUT /api/users/change_password.
func (h *UsersHandler) ChangePassword(c *fiber.Ctx) error {
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewMalformedRequest("invalid payload", err)
	}
	if req.Username == "" || req.OldPassword == "" || req.NewPassword == "" {
		return apperrors.NewValidationError("username, old_password and new_password required", nil)
	}
	if err := h.auth.ChangePassword(c.UserContext(), req.Username, req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(http.StatusOK)
}

func userIDParam(c *fiber.Ctx) (string, error) {
	raw := strings.TrimSpace(c.Query("user_id"))
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", apperrors.NewValidationError("invalid UUID in the request", map[string]any{"user_id": raw})
	}
	return id.String(), nil
}

func userResponse(u *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Affiliation: u.Affiliation,
		Role:        string(u.Role),
	}
}
