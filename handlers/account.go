package handlers

import (
	"net/http"
	"strings"

	"github.com/authcove/authcove/middleware/jwt"
	"github.com/labstack/echo/v4"
)

type updateAccountRequest struct {
	Fullname string `json:"fullname" form:"fullname"`
}

func (h *Handler) Me(c echo.Context) error {
	user, err := h.store.FindByID(c.Request().Context(), jwt.GetUserID(c))
	if err != nil {
		return h.httpError(c, err)
	}

	return respond(c, http.StatusOK, user.Sanitize(), "current user details")
}

func (h *Handler) UpdateAccount(c echo.Context) error {
	var req updateAccountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	req.Fullname = strings.TrimSpace(req.Fullname)
	if req.Fullname == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "fullname is required")
	}

	user, err := h.store.FindByID(c.Request().Context(), jwt.GetUserID(c))
	if err != nil {
		return h.httpError(c, err)
	}

	user.Fullname = req.Fullname
	if err := h.store.Save(c.Request().Context(), user); err != nil {
		return h.httpError(c, err)
	}

	return respond(c, http.StatusOK, user.Sanitize(), "user details updated successfully")
}

func (h *Handler) UpdateAvatar(c echo.Context) error {
	return h.updateImage(c, "avatar", "avatars")
}

func (h *Handler) UpdateCoverImage(c echo.Context) error {
	return h.updateImage(c, "coverImage", "covers")
}

// updateImage uploads the replacement first, swaps the record over, then
// deletes the old object. A stale object left behind by a failed delete is
// preferable to a record pointing at nothing.
func (h *Handler) updateImage(c echo.Context, field, folder string) error {
	if !h.config.Storage.Enabled {
		return echo.NewHTTPError(http.StatusNotImplemented, "media storage is not enabled")
	}

	key, url, err := h.uploadFormImage(c, field, folder)
	if err != nil {
		return err
	}
	if key == "" {
		return echo.NewHTTPError(http.StatusBadRequest, field+" file is required")
	}

	user, err := h.store.FindByID(c.Request().Context(), jwt.GetUserID(c))
	if err != nil {
		h.deleteUploads(c.Request().Context(), key)
		return h.httpError(c, err)
	}

	var oldKey string
	switch field {
	case "avatar":
		oldKey = user.AvatarKey
		user.AvatarKey = key
		user.AvatarURL = url
	case "coverImage":
		oldKey = user.CoverImageKey
		user.CoverImageKey = key
		user.CoverImageURL = url
	}

	if err := h.store.Save(c.Request().Context(), user); err != nil {
		h.deleteUploads(c.Request().Context(), key)
		return h.httpError(c, err)
	}

	h.deleteUploads(c.Request().Context(), oldKey)

	return respond(c, http.StatusOK, user.Sanitize(), field+" updated successfully")
}
