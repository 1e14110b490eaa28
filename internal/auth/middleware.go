package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/leadstack/lead-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	UserID string
}

// AuthMiddleware validates access tokens on protected routes.
type AuthMiddleware struct {
	tokens *TokenManager
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes. The access token is
// read from the cookie the login flow sets; a Bearer header is accepted as
// a fallback for non-browser clients.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token := c.Cookies(AccessTokenCookie)
	if token == "" {
		if header := c.Get("Authorization"); header != "" {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				token = parts[1]
			}
		}
	}
	if token == "" {
		return apperrors.NewUnauthorized("Access token required")
	}

	claims, err := m.tokens.ParseToken(token, TokenTypeAccess)
	if err != nil {
		return apperrors.NewUnauthorized("Invalid or expired token")
	}

	c.Locals(principalKey, &Principal{UserID: claims.UserID})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
