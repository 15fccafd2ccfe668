package handlers

import (
	"net/http"

	"github.com/authcove/authcove/services/auth"
	"github.com/labstack/echo/v4"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

// Tokens travel only as HttpOnly, Secure cookies; they are never placed in a
// JSON body.
func (h *Handler) setAuthCookies(c echo.Context, pair *auth.TokenPair) {
	c.SetCookie(&http.Cookie{
		Name:     accessTokenCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		MaxAge:   int(h.tokens.AccessExpiry().Seconds()),
		HttpOnly: true,
		Secure:   h.config.JWT.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	c.SetCookie(&http.Cookie{
		Name:     refreshTokenCookie,
		Value:    pair.RefreshToken,
		Path:     "/",
		MaxAge:   int(h.tokens.RefreshExpiry().Seconds()),
		HttpOnly: true,
		Secure:   h.config.JWT.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearAuthCookies(c echo.Context) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.config.JWT.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func refreshTokenFromRequest(c echo.Context) string {
	if cookie, err := c.Cookie(refreshTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}
