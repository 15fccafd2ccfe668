package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/authcove/authcove/config"
	"github.com/authcove/authcove/services/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidToken          = errors.New("invalid token")
	ErrExpiredToken          = errors.New("token has expired")
	ErrMalformedToken        = errors.New("malformed token")
	ErrInvalidSignature      = errors.New("invalid token signature")
	ErrTokenGenerationFailed = errors.New("failed to generate secure token")
)

type Claims struct {
	UserID uint   `json:"user_id"`
	JTI    string `json:"jti"`
	jwt.RegisteredClaims
}

// TemporaryToken is a single-use secret. Plain is handed to the user exactly
// once; only Hashed and ExpiresAt are ever persisted.
type TemporaryToken struct {
	Plain     string
	Hashed    string
	ExpiresAt time.Time
}

type Service struct {
	config *config.Config
	logger *logging.Service
	now    func() time.Time
}

func NewService(cfg *config.Config, logger *logging.Service) *Service {
	return &Service{
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock overrides the time source. Tests use this to pin expiry checks.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) AccessExpiry() time.Duration {
	return s.config.JWT.AccessExpiry
}

func (s *Service) RefreshExpiry() time.Duration {
	return s.config.JWT.RefreshExpiry
}

func (s *Service) IssueAccessToken(userID uint) (string, error) {
	return s.sign(userID, s.config.JWT.AccessExpiry, s.config.JWT.AccessSecret)
}

func (s *Service) IssueRefreshToken(userID uint) (string, error) {
	return s.sign(userID, s.config.JWT.RefreshExpiry, s.config.JWT.RefreshSecret)
}

func (s *Service) sign(userID uint, expiry time.Duration, secret string) (string, error) {
	now := s.now()
	jti := uuid.New().String()
	claims := Claims{
		UserID: userID,
		JTI:    jti,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.config.JWT.Issuer,
			Subject:   fmt.Sprintf("%d", userID),
			Audience:  []string{s.config.JWT.Issuer},
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		s.logger.Error("failed to sign token", zap.Error(err))
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

func (s *Service) VerifyAccessToken(tokenString string) (*Claims, error) {
	return s.verify(tokenString, s.config.JWT.AccessSecret)
}

func (s *Service) VerifyRefreshToken(tokenString string) (*Claims, error) {
	return s.verify(tokenString, s.config.JWT.RefreshSecret)
}

func (s *Service) verify(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() == "none" {
			return nil, errors.New("'none' algorithm is not allowed")
		}

		if token.Method.Alg() != "HS256" {
			return nil, fmt.Errorf("unexpected algorithm: expected HS256, got %s", token.Method.Alg())
		}

		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid algorithm family: %v", token.Header["alg"])
		}

		return []byte(secret), nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		s.logger.Warn("token verification failed", zap.Error(err))

		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformedToken
		case errors.Is(err, jwt.ErrSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrInvalidToken
		}
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

// IssueTemporaryToken generates a random single-use secret, its SHA-256 hash
// and an expiry of now plus the configured TTL. Unlike password hashing the
// digest is deterministic so a presented plain value can be re-hashed and
// matched against the stored hash.
func (s *Service) IssueTemporaryToken() (*TemporaryToken, error) {
	bytes := make([]byte, s.config.Auth.TemporaryTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		s.logger.Error("failed to generate temporary token", zap.Error(err))
		return nil, ErrTokenGenerationFailed
	}

	plain := hex.EncodeToString(bytes)
	return &TemporaryToken{
		Plain:     plain,
		Hashed:    s.HashToken(plain),
		ExpiresAt: s.now().Add(s.config.Auth.TemporaryTokenExpiry),
	}, nil
}

func (s *Service) HashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
