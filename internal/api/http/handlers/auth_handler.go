package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/waterworks/servicedesk/internal/api/dto"
	"github.com/waterworks/servicedesk/internal/domain"
	"github.com/waterworks/servicedesk/internal/service"
	apperrors "github.com/waterworks/servicedesk/pkg/util"
)

// AuthHandler exposes login endpoints. Login routes are the only ones
// that take the tenant from the X-Tenant-ID header; afterwards the
// tenant rides in the token.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// LoginCustomer POST /auth/customers/login.
func (h *AuthHandler) LoginCustomer(c *fiber.Ctx) error {
	tenantID, req, err := parseLogin(c)
	if err != nil {
		return err
	}
	customer, token, exp, err := h.service.LoginCustomer(c.UserContext(), tenantID, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     token,
		ExpiresAt: exp,
		Subject: dto.Subject{
			ID:       customer.ID,
			Type:     string(domain.SubjectTypeCustomer),
			Name:     customer.FullName(),
			Email:    customer.Email,
			TenantID: tenantID,
		},
	}})
}

// LoginStaff POST /auth/staff/login.
func (h *AuthHandler) LoginStaff(c *fiber.Ctx) error {
	tenantID, req, err := parseLogin(c)
	if err != nil {
		return err
	}
	member, token, exp, err := h.service.LoginStaff(c.UserContext(), tenantID, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     token,
		ExpiresAt: exp,
		Subject: dto.Subject{
			ID:       member.ID,
			Type:     string(domain.SubjectTypeStaff),
			Name:     member.Name,
			Email:    member.Email,
			Role:     string(member.Role),
			TenantID: tenantID,
		},
	}})
}

func parseLogin(c *fiber.Ctx) (string, dto.LoginRequest, error) {
	tenantID := strings.TrimSpace(c.Get("X-Tenant-ID"))
	if tenantID == "" {
		return "", dto.LoginRequest{}, apperrors.NewValidationError("missing tenant header",
			map[string]any{"X-Tenant-ID": "required"})
	}
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return "", dto.LoginRequest{}, apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return "", dto.LoginRequest{}, apperrors.NewValidationError("email and password required", nil)
	}
	return tenantID, req, nil
}
