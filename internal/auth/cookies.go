package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Cookie names used for the token pair.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// SetTokenCookie writes an httpOnly, strict-same-site cookie holding a token.
func SetTokenCookie(c *fiber.Ctx, name, value string, ttl time.Duration) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteStrictMode,
		MaxAge:   int(ttl.Seconds()),
		Path:     "/",
	})
}

// ClearTokenCookie expires a previously set token cookie.
func ClearTokenCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteStrictMode,
		Expires:  time.Now().Add(-time.Hour),
		Path:     "/",
	})
}
