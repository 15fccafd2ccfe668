package testutils

import (
	"time"

	"github.com/authcove/authcove/config"
)

// GetTestConfig returns a config with deterministic secrets and fast TTLs
// suitable for unit tests.
func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:             "authcove-test",
			URL:              "http://localhost:8080",
			PasswordResetURL: "http://localhost:8080/reset-password",
		},
		Auth: config.AuthConfig{
			MinLength:            8,
			RequireLower:         true,
			RequireNumber:        true,
			BcryptCost:           4,
			TemporaryTokenLength: 32,
			TemporaryTokenExpiry: 20 * time.Minute,
		},
		JWT: config.JWTConfig{
			Issuer:        "authcove-test",
			AccessSecret:  "test-access-secret-key-for-unit-tests",
			RefreshSecret: "test-refresh-secret-key-for-unit-tests",
			AccessExpiry:  time.Hour,
			RefreshExpiry: 7 * 24 * time.Hour,
			CookieSecure:  true,
		},
		RateLimit: config.RateLimitConfig{
			Enabled: false,
		},
	}
}
