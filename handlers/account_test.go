package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/authcove/authcove/middleware/jwt"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_Me(t *testing.T) {
	t.Run("returns the sanitized profile", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.register(t)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
		rec := httptest.NewRecorder()
		c := f.echo.NewContext(req, rec)
		c.Set(jwt.UserIDKey, uint(1))

		require.NoError(t, f.handler.Me(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"email":"alice@example.com"`)
		assert.NotContains(t, rec.Body.String(), "password")
	})

	t.Run("unknown user maps to not found", func(t *testing.T) {
		f := newHandlerFixture(t)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
		c := f.echo.NewContext(req, httptest.NewRecorder())
		c.Set(jwt.UserIDKey, uint(999))

		err := f.handler.Me(c)
		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusNotFound, httpErr.Code)
	})
}

func TestHandler_UpdateAccount(t *testing.T) {
	t.Run("updates the full name", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.register(t)

		rec, c := f.jsonRequest(http.MethodPatch, "/api/v1/users/me",
			`{"fullname":"Alice B. Example"}`)
		c.Set(jwt.UserIDKey, uint(1))

		require.NoError(t, f.handler.UpdateAccount(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		stored := f.store.Get(1)
		assert.Equal(t, "Alice B. Example", stored.Fullname)
	})

	t.Run("blank full name", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.register(t)

		_, c := f.jsonRequest(http.MethodPatch, "/api/v1/users/me", `{"fullname":"   "}`)
		c.Set(jwt.UserIDKey, uint(1))

		err := f.handler.UpdateAccount(c)
		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	})
}

func TestHandler_UpdateImage_StorageDisabled(t *testing.T) {
	f := newHandlerFixture(t)
	f.register(t)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/users/me/avatar", nil)
	c := f.echo.NewContext(req, httptest.NewRecorder())
	c.Set(jwt.UserIDKey, uint(1))

	err := f.handler.UpdateAvatar(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotImplemented, httpErr.Code)
}
