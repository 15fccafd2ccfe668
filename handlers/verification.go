package handlers

import (
	"net/http"
	"strings"

	"github.com/authcove/authcove/middleware/jwt"
	"github.com/labstack/echo/v4"
)

type forgotPasswordRequest struct {
	Email string `json:"email" form:"email"`
}

type resetPasswordRequest struct {
	NewPassword string `json:"newPassword" form:"newPassword"`
}

func (h *Handler) VerifyEmail(c echo.Context) error {
	plain := c.Param("verificationToken")
	if plain == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email verification token is missing")
	}

	user, err := h.verification.ConsumeEmailVerification(c.Request().Context(), plain)
	if err != nil {
		return h.httpError(c, err)
	}

	return respond(c, http.StatusOK, map[string]any{"isEmailVerified": user.IsEmailVerified}, "email is verified")
}

func (h *Handler) ResendVerification(c echo.Context) error {
	if err := h.verification.IssueEmailVerification(c.Request().Context(), jwt.GetUserID(c)); err != nil {
		return h.httpError(c, err)
	}

	return respond(c, http.StatusOK, map[string]any{}, "verification email has been sent")
}

func (h *Handler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}

	if err := h.verification.IssueForgotPassword(c.Request().Context(), strings.ToLower(req.Email)); err != nil {
		return h.httpError(c, err)
	}

	return respond(c, http.StatusOK, map[string]any{}, "password reset email has been sent")
}

func (h *Handler) ResetPassword(c echo.Context) error {
	plain := c.Param("resetToken")
	if plain == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "password reset token is missing")
	}

	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.NewPassword == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "newPassword is required")
	}

	if err := h.verification.ConsumeForgotPassword(c.Request().Context(), plain, req.NewPassword); err != nil {
		return h.httpError(c, err)
	}

	return respond(c, http.StatusOK, map[string]any{}, "password reset successfully")
}
