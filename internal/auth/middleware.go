package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/travel-auth/internal/domain"
	apperrors "github.com/spec-kit/travel-auth/pkg/util"
)

const principalKey = "auth_principal"

// AuthMiddleware validates bearer access tokens. Access tokens are never
// persisted server-side, so validity comes from the signature and exp alone.
type AuthMiddleware struct {
	tokens *TokenService
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.VerifyAccess(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(principalKey, claims)
	return c.Next()
}

// RequireKind restricts a route to the given principal kinds.
func RequireKind(kinds ...domain.PrincipalKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := PrincipalFromContext(c)
		if claims == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		for _, kind := range kinds {
			if claims.UserType == kind {
				return c.Next()
			}
		}
		return apperrors.NewForbidden("insufficient privileges")
	}
}

// PrincipalFromContext returns the verified claims stored by Handle, or nil.
func PrincipalFromContext(c *fiber.Ctx) *Claims {
	claims, _ := c.Locals(principalKey).(*Claims)
	return claims
}
