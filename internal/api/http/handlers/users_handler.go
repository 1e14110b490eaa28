package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/leadstack/lead-service/internal/api/dto"
	"github.com/leadstack/lead-service/internal/auth"
	"github.com/leadstack/lead-service/internal/service"
	apperrors "github.com/leadstack/lead-service/pkg/util"
)

// UsersHandler exposes the auth endpoints.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// Register handles POST /api/users/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("Invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("Email and password are required")
	}

	user, pair, err := h.auth.Register(c.Context(), req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		return err
	}

	h.setTokenCookies(c, pair)
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "User registered successfully",
		"user":    dto.NewUserResponse(user),
	})
}

// Login handles POST /api/users/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("Invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("Email and password are required")
	}

	user, pair, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.setTokenCookies(c, pair)
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Login successful",
		"user":    dto.NewUserResponse(user),
	})
}

// Refresh handles POST /api/users/refresh. It rotates the access token when
// the presented refresh cookie matches the stored one.
func (h *UsersHandler) Refresh(c *fiber.Ctx) error {
	refreshToken := c.Cookies(auth.RefreshTokenCookie)
	if refreshToken == "" {
		return apperrors.NewUnauthorized("Refresh token is required")
	}

	accessToken, err := h.auth.Refresh(c.Context(), refreshToken)
	if err != nil {
		return err
	}

	auth.SetTokenCookie(c, auth.AccessTokenCookie, accessToken, h.auth.TokenManager().AccessTTL())
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Token refreshed successfully",
	})
}

// Me handles GET /api/users/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("Access token required")
	}

	user, err := h.auth.GetUser(c.Context(), principal.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"user":    dto.NewUserResponse(user),
	})
}

// Logout handles GET /api/users/logout: stored tokens are cleared so a
// replayed refresh cookie is rejected afterwards.
func (h *UsersHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("Access token required")
	}

	if err := h.auth.Logout(c.Context(), principal.UserID); err != nil {
		return err
	}

	auth.ClearTokenCookie(c, auth.AccessTokenCookie)
	auth.ClearTokenCookie(c, auth.RefreshTokenCookie)
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}

func (h *UsersHandler) setTokenCookies(c *fiber.Ctx, pair service.TokenPair) {
	tm := h.auth.TokenManager()
	auth.SetTokenCookie(c, auth.AccessTokenCookie, pair.AccessToken, tm.AccessTTL())
	auth.SetTokenCookie(c, auth.RefreshTokenCookie, pair.RefreshToken, tm.RefreshTTL())
}
