package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/travel-auth/internal/api/dto"
	"github.com/spec-kit/travel-auth/internal/auth"
	"github.com/spec-kit/travel-auth/internal/service"
)

// AuthHandler exposes login, refresh and logout endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// LoginConsumer handles POST /api/auth/login.
func (h *AuthHandler) LoginConsumer(c *fiber.Ctx) error {
	return h.login(c, h.auth.LoginConsumer)
}

// LoginBusiness handles POST /api/auth/business/login.
func (h *AuthHandler) LoginBusiness(c *fiber.Ctx) error {
	return h.login(c, h.auth.LoginBusiness)
}

// LoginAdmin handles POST /api/auth/admin/login.
func (h *AuthHandler) LoginAdmin(c *fiber.Ctx) error {
	return h.login(c, h.auth.LoginAdmin)
}

func (h *AuthHandler) login(c *fiber.Ctx, loginFn func(context.Context, string, string) (*service.LoginResult, error)) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password required")
	}

	result, err := loginFn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"principal": fiber.Map{
				"id":       result.Principal.ID,
				"email":    result.Principal.Email,
				"userType": result.Principal.Kind,
			},
			"sessionId": result.SessionID,
			"auth": dto.AuthResponse{
				AccessToken:      result.Tokens.AccessToken,
				RefreshToken:     result.Tokens.RefreshToken,
				AccessExpiresAt:  result.Tokens.AccessExpiresAt,
				RefreshExpiresAt: result.Tokens.RefreshExpiresAt,
			},
		},
	})
}

// Refresh handles POST /api/auth/refresh. The response shape is the wire
// contract the client refresh coordinator parses: {success, accessToken,
// refreshToken} on 200, {success:false, message} otherwise.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return c.Status(http.StatusBadRequest).JSON(dto.RefreshResponse{
			Success: false,
			Message: "refreshToken required",
		})
	}

	pair, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(dto.RefreshResponse{
			Success: false,
			Message: "invalid refresh token",
		})
	}

	return c.JSON(dto.RefreshResponse{
		Success:      true,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	claims := auth.PrincipalFromContext(c)

	var req struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.BodyParser(&req); err != nil || req.SessionID == "" {
		return fiber.NewError(http.StatusBadRequest, "sessionId required")
	}

	deleted, err := h.auth.Logout(c.UserContext(), claims.UserType, claims.SubjectID(), req.SessionID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": deleted}})
}

// LogoutAll handles POST /api/auth/logout/all.
func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	claims := auth.PrincipalFromContext(c)

	count, err := h.auth.LogoutAll(c.UserContext(), claims.UserType, claims.SubjectID())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": count}})
}

// Session handles GET /api/auth/session.
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		return fiber.NewError(http.StatusBadRequest, "sessionId required")
	}

	payload, err := h.auth.Session(c.UserContext(), sessionID)
	if err != nil {
		return err
	}
	if payload == nil {
		return fiber.NewError(http.StatusNotFound, "session not found")
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"session": payload}})
}
