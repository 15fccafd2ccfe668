package handlers

import (
	"context"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/authcove/authcove/middleware/jwt"
	"github.com/authcove/authcove/services/auth"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" form:"oldPassword"`
	NewPassword string `json:"newPassword" form:"newPassword"`
}

// Register accepts multipart form data: account fields plus an avatar image
// (required when storage is enabled) and an optional cover image. Images are
// uploaded before the credential record is created; if creation then fails
// the uploads are deleted. Once the record exists there is no compensation:
// a failed verification mail leaves a registered, unverified account behind
// and the user recovers via resend-verification.
func (h *Handler) Register(c echo.Context) error {
	input := auth.RegisterInput{
		Email:    strings.TrimSpace(strings.ToLower(c.FormValue("email"))),
		Username: strings.TrimSpace(strings.ToLower(c.FormValue("username"))),
		Fullname: strings.TrimSpace(c.FormValue("fullname")),
		Password: c.FormValue("password"),
	}

	if input.Email == "" || input.Username == "" || input.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email, username and password are required")
	}

	if h.config.Storage.Enabled {
		avatarKey, avatarURL, err := h.uploadFormImage(c, "avatar", "avatars")
		if err != nil {
			return err
		}
		if avatarKey == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "avatar file is missing")
		}
		input.AvatarKey = avatarKey
		input.AvatarURL = avatarURL

		coverKey, coverURL, err := h.uploadFormImage(c, "coverImage", "covers")
		if err != nil {
			h.deleteUploads(c.Request().Context(), avatarKey)
			return err
		}
		input.CoverImageKey = coverKey
		input.CoverImageURL = coverURL
	}

	user, err := h.auth.Register(c.Request().Context(), input)
	if err != nil {
		h.deleteUploads(c.Request().Context(), input.AvatarKey, input.CoverImageKey)
		return h.httpError(c, err)
	}

	return respond(c, http.StatusCreated, user.Sanitize(), "user registered successfully")
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	user, pair, err := h.auth.Login(c.Request().Context(), strings.ToLower(req.Email), req.Password)
	if err != nil {
		return h.httpError(c, err)
	}

	h.setAuthCookies(c, pair)
	return respond(c, http.StatusOK, user.Sanitize(), "user logged in successfully")
}

func (h *Handler) Refresh(c echo.Context) error {
	pair, err := h.auth.Refresh(c.Request().Context(), refreshTokenFromRequest(c))
	if err != nil {
		return h.httpError(c, err)
	}

	h.setAuthCookies(c, pair)
	return respond(c, http.StatusOK, nil, "access token refreshed successfully")
}

func (h *Handler) Logout(c echo.Context) error {
	if err := h.auth.Logout(c.Request().Context(), jwt.GetUserID(c)); err != nil {
		return h.httpError(c, err)
	}

	h.clearAuthCookies(c)
	return respond(c, http.StatusOK, map[string]any{}, "user logged out successfully")
}

func (h *Handler) ChangePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "oldPassword and newPassword are required")
	}

	if err := h.auth.ChangePassword(c.Request().Context(), jwt.GetUserID(c), req.OldPassword, req.NewPassword); err != nil {
		return h.httpError(c, err)
	}

	return respond(c, http.StatusOK, map[string]any{}, "password changed successfully")
}

func (h *Handler) uploadFormImage(c echo.Context, field, folder string) (string, string, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return "", "", nil
	}

	src, err := fileHeader.Open()
	if err != nil {
		return "", "", echo.NewHTTPError(http.StatusBadRequest, "failed to read uploaded file")
	}
	defer src.Close()

	key, url, err := h.media.Upload(c.Request().Context(), folder, contentType(fileHeader), src)
	if err != nil {
		return "", "", echo.NewHTTPError(http.StatusInternalServerError, "failed to upload "+field)
	}

	return key, url, nil
}

func (h *Handler) deleteUploads(ctx context.Context, keys ...string) {
	if h.media == nil {
		return
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := h.media.Delete(ctx, key); err != nil {
			h.logger.Warn("failed to delete uploaded media", zap.Error(err), zap.String("key", key))
		}
	}
}

func contentType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
