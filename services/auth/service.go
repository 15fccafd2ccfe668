package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/authcove/authcove/config"
	"github.com/authcove/authcove/services/logging"
	"github.com/authcove/authcove/services/password"
	"github.com/authcove/authcove/services/token"
	"github.com/authcove/authcove/store"
	"go.uber.org/zap"
)

var (
	ErrUserExists         = errors.New("user with email or username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("invalid refresh token")
	ErrSamePassword       = errors.New("new password must differ from the old password")
)

// VerificationIssuer starts the email-verification flow for a freshly
// registered account.
type VerificationIssuer interface {
	IssueEmailVerification(ctx context.Context, userID uint) error
}

// EventPublisher emits account events. Implementations are fire-and-forget;
// a publish failure never fails the operation that triggered it.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

type Service struct {
	config       *config.Config
	store        store.Store
	passwords    *password.Service
	tokens       *token.Service
	verification VerificationIssuer
	events       EventPublisher
	logger       *logging.Service
}

type RegisterInput struct {
	Email         string
	Username      string
	Fullname      string
	Password      string
	AvatarURL     string
	AvatarKey     string
	CoverImageURL string
	CoverImageKey string
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

func NewService(cfg *config.Config, st store.Store, passwords *password.Service, tokens *token.Service, logger *logging.Service) *Service {
	return &Service{
		config:    cfg,
		store:     st,
		passwords: passwords,
		tokens:    tokens,
		logger:    logger,
	}
}

func (s *Service) SetVerificationIssuer(issuer VerificationIssuer) {
	s.verification = issuer
}

func (s *Service) SetEventPublisher(events EventPublisher) {
	s.events = events
}

// Register creates the credential record and kicks off email verification.
// Once the record exists the account is registered no matter what: a failure
// issuing the verification token or sending the mail is logged and swallowed,
// and the user recovers via resend-verification. Compensating cleanup of
// uploaded media happens in the handler, before this point.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*store.User, error) {
	if _, err := s.store.FindByEmail(ctx, input.Email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, store.ErrUserNotFound) {
		return nil, err
	}

	if _, err := s.store.FindByUsername(ctx, input.Username); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, store.ErrUserNotFound) {
		return nil, err
	}

	if err := s.passwords.Validate(input.Password); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &store.User{
		Email:           input.Email,
		Username:        input.Username,
		Fullname:        input.Fullname,
		AvatarURL:       input.AvatarURL,
		AvatarKey:       input.AvatarKey,
		CoverImageURL:   input.CoverImageURL,
		CoverImageKey:   input.CoverImageKey,
		PasswordHash:    hash,
		IsEmailVerified: false,
	}

	if err := s.store.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		zap.Uint("user_id", user.ID),
		zap.String("username", user.Username))

	if s.verification != nil {
		if err := s.verification.IssueEmailVerification(ctx, user.ID); err != nil {
			s.logger.Warn("failed to start email verification after registration",
				zap.Error(err),
				zap.Uint("user_id", user.ID))
		}
	}

	s.publish(ctx, "user.registered", map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
	})

	return user, nil
}

// Login verifies the password and mints a fresh access/refresh pair. The new
// refresh token overwrites whatever was stored before, so exactly one refresh
// token is live per account.
func (s *Service) Login(ctx context.Context, email, plainPassword string) (*store.User, *TokenPair, error) {
	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}

	if !s.passwords.Verify(user.PasswordHash, plainPassword) {
		s.logger.Warn("login failed: password mismatch", zap.Uint("user_id", user.ID))
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user logged in", zap.Uint("user_id", user.ID))
	return user, pair, nil
}

// Refresh rotates the refresh token. The presented token must verify against
// the refresh secret AND byte-for-byte equal the stored token; a stale but
// unexpired token that has since been rotated is rejected.
func (s *Service) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	if presented == "" {
		return nil, ErrUnauthorized
	}

	claims, err := s.tokens.VerifyRefreshToken(presented)
	if err != nil {
		return nil, ErrUnauthorized
	}

	user, err := s.store.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrUnauthorized
	}

	if user.RefreshToken == nil || *user.RefreshToken != presented {
		s.logger.Warn("refresh rejected: token superseded or cleared", zap.Uint("user_id", user.ID))
		return nil, ErrUnauthorized
	}

	pair, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("refresh token rotated", zap.Uint("user_id", user.ID))
	return pair, nil
}

// Logout clears the stored refresh token. Logging out twice is not an error.
func (s *Service) Logout(ctx context.Context, userID uint) error {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil
		}
		return err
	}

	user.RefreshToken = nil
	if err := s.store.Save(ctx, user); err != nil {
		return err
	}

	s.logger.Info("user logged out", zap.Uint("user_id", userID))
	return nil
}

// ChangePassword replaces the password hash. The stored refresh token is left
// untouched: changing the password does not force a re-login.
func (s *Service) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if !s.passwords.Verify(user.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}

	if s.passwords.Verify(user.PasswordHash, newPassword) {
		return ErrSamePassword
	}

	if err := s.passwords.Validate(newPassword); err != nil {
		return err
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return err
	}

	user.PasswordHash = hash
	if err := s.store.Save(ctx, user); err != nil {
		return err
	}

	s.logger.Info("password changed", zap.Uint("user_id", userID))
	s.publish(ctx, "user.password_changed", map[string]any{"user_id": userID})
	return nil
}

func (s *Service) issueSession(ctx context.Context, user *store.User) (*TokenPair, error) {
	accessToken, err := s.tokens.IssueAccessToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	refreshToken, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	user.RefreshToken = &refreshToken
	if err := s.store.Save(ctx, user); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *Service) publish(ctx context.Context, eventType string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, eventType, payload); err != nil {
		s.logger.Warn("failed to publish account event",
			zap.Error(err),
			zap.String("event_type", eventType))
	}
}
