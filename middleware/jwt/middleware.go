package jwt

import (
	"net/http"
	"strings"

	"github.com/authcove/authcove/services/token"
	"github.com/labstack/echo/v4"
)

const (
	AccessTokenCookie = "accessToken"

	UserIDKey = "_auth_user_id"
	ClaimsKey = "_auth_claims"
)

// RequireAuth verifies the access token from the accessToken cookie or, for
// non-browser clients, a Bearer header, and stashes the claims in context.
func RequireAuth(tokens *token.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString := extractToken(c)
			if tokenString == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "access token required")
			}

			claims, err := tokens.VerifyAccessToken(tokenString)
			if err != nil {
				switch err {
				case token.ErrExpiredToken:
					return echo.NewHTTPError(http.StatusUnauthorized, "access token has expired")
				case token.ErrMalformedToken:
					return echo.NewHTTPError(http.StatusUnauthorized, "malformed access token")
				case token.ErrInvalidSignature:
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token signature")
				default:
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
				}
			}

			c.Set(UserIDKey, claims.UserID)
			c.Set(ClaimsKey, claims)

			return next(c)
		}
	}
}

func extractToken(c echo.Context) string {
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}

func GetUserID(c echo.Context) uint {
	if userID, ok := c.Get(UserIDKey).(uint); ok {
		return userID
	}
	return 0
}

func GetClaims(c echo.Context) *token.Claims {
	if claims, ok := c.Get(ClaimsKey).(*token.Claims); ok {
		return claims
	}
	return nil
}
