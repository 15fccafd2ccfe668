package handlers

import (
	"errors"
	"net/http"

	"github.com/authcove/authcove/config"
	"github.com/authcove/authcove/middleware/jwt"
	"github.com/authcove/authcove/middleware/ratelimit"
	"github.com/authcove/authcove/server"
	"github.com/authcove/authcove/services/auth"
	"github.com/authcove/authcove/services/logging"
	"github.com/authcove/authcove/services/media"
	"github.com/authcove/authcove/services/password"
	"github.com/authcove/authcove/services/token"
	"github.com/authcove/authcove/services/verification"
	"github.com/authcove/authcove/store"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type Handler struct {
	config       *config.Config
	auth         *auth.Service
	verification *verification.Service
	tokens       *token.Service
	store        store.Store
	media        *media.Service
	logger       *logging.Service
}

func NewHandler(cfg *config.Config, authSvc *auth.Service, verificationSvc *verification.Service, tokens *token.Service, st store.Store, mediaSvc *media.Service, logger *logging.Service) *Handler {
	return &Handler{
		config:       cfg,
		auth:         authSvc,
		verification: verificationSvc,
		tokens:       tokens,
		store:        st,
		media:        mediaSvc,
		logger:       logger,
	}
}

func (h *Handler) RegisterRoutes(srv *server.Server) {
	srv.Get("/healthz", h.Health)

	users := srv.Group("/api/v1/users")

	limited := ratelimit.Middleware(&ratelimit.Config{
		Store:  ratelimit.NewStore(&h.config.RateLimit),
		Rate:   h.config.RateLimit.Rate,
		Period: h.config.RateLimit.Period,
	})

	users.POST("/register", h.Register)
	if h.config.RateLimit.Enabled {
		users.POST("/login", h.Login, limited)
		users.POST("/forgot-password", h.ForgotPassword, limited)
	} else {
		users.POST("/login", h.Login)
		users.POST("/forgot-password", h.ForgotPassword)
	}
	users.POST("/refresh-token", h.Refresh)
	users.POST("/verify-email/:verificationToken", h.VerifyEmail)
	users.POST("/reset-password/:resetToken", h.ResetPassword)

	authed := users.Group("", jwt.RequireAuth(h.tokens))
	authed.POST("/logout", h.Logout)
	authed.POST("/change-password", h.ChangePassword)
	authed.POST("/resend-verification", h.ResendVerification)
	authed.GET("/me", h.Me)
	authed.PATCH("/me", h.UpdateAccount)
	authed.PATCH("/me/avatar", h.UpdateAvatar)
	authed.PATCH("/me/cover-image", h.UpdateCoverImage)
}

func (h *Handler) Health(c echo.Context) error {
	return respond(c, http.StatusOK, map[string]string{"status": "ok"}, "healthy")
}

type apiResponse struct {
	Data    any    `json:"data"`
	Message string `json:"message"`
}

func respond(c echo.Context, status int, data any, message string) error {
	return c.JSON(status, apiResponse{Data: data, Message: message})
}

// httpError maps service failures onto status codes. Anything outside the
// expected taxonomy surfaces as an opaque 500 so internal error text never
// reaches the caller.
func (h *Handler) httpError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrUserExists):
		return echo.NewHTTPError(http.StatusConflict, "user with email or username already exists")
	case errors.Is(err, verification.ErrAlreadyVerified):
		return echo.NewHTTPError(http.StatusConflict, "email is already verified")
	case errors.Is(err, store.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	case errors.Is(err, auth.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid credentials")
	case errors.Is(err, auth.ErrSamePassword):
		return echo.NewHTTPError(http.StatusBadRequest, "new password must differ from the old password")
	case errors.Is(err, auth.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
	case errors.Is(err, verification.ErrTokenInvalidOrExpired):
		return echo.NewHTTPError(http.StatusBadRequest, "token is invalid or expired")
	case errors.Is(err, password.ErrPolicyViolation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("request failed", zap.Error(err), zap.String("path", c.Path()))
		return echo.NewHTTPError(http.StatusInternalServerError, "something went wrong")
	}
}
