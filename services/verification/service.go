package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/authcove/authcove/config"
	"github.com/authcove/authcove/services/logging"
	"github.com/authcove/authcove/services/password"
	"github.com/authcove/authcove/services/token"
	"github.com/authcove/authcove/store"
	"go.uber.org/zap"
)

var (
	ErrAlreadyVerified = errors.New("email is already verified")

	// ErrTokenInvalidOrExpired covers every consume failure: unknown hash,
	// expired hash, already-consumed token. The cases are deliberately not
	// distinguishable by the caller.
	ErrTokenInvalidOrExpired = errors.New("token is invalid or expired")
)

// Notifier delivers the plain token value to the account's email address.
type Notifier interface {
	SendEmailVerification(ctx context.Context, email, username, verificationURL string) error
	SendPasswordReset(ctx context.Context, email, username, resetURL string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

type Service struct {
	config    *config.Config
	store     store.Store
	tokens    *token.Service
	passwords *password.Service
	notifier  Notifier
	events    EventPublisher
	logger    *logging.Service
	now       func() time.Time
}

func NewService(cfg *config.Config, st store.Store, tokens *token.Service, passwords *password.Service, logger *logging.Service) *Service {
	return &Service{
		config:    cfg,
		store:     st,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) SetNotifier(notifier Notifier) {
	s.notifier = notifier
}

func (s *Service) SetEventPublisher(events EventPublisher) {
	s.events = events
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// IssueEmailVerification stores a fresh token hash and expiry, overwriting
// any outstanding verification token, then mails the plain value. The store
// write commits before the mail goes out: a failed send leaves a valid token
// behind and the user simply requests a resend.
func (s *Service) IssueEmailVerification(ctx context.Context, userID uint) error {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.IsEmailVerified {
		return ErrAlreadyVerified
	}

	tok, err := s.tokens.IssueTemporaryToken()
	if err != nil {
		return err
	}

	user.EmailVerificationToken = &tok.Hashed
	user.EmailVerificationExpiry = &tok.ExpiresAt
	if err := s.store.Save(ctx, user); err != nil {
		return err
	}

	s.logger.Info("email verification token issued",
		zap.Uint("user_id", user.ID),
		zap.Time("expires_at", tok.ExpiresAt))

	verificationURL := fmt.Sprintf("%s/api/v1/users/verify-email/%s", s.config.App.URL, tok.Plain)
	s.notify(ctx, user, func() error {
		return s.notifier.SendEmailVerification(ctx, user.Email, user.Username, verificationURL)
	})

	return nil
}

// ConsumeEmailVerification marks the account verified and clears the token
// pair, so presenting the same plain value again falls through to
// ErrTokenInvalidOrExpired.
func (s *Service) ConsumeEmailVerification(ctx context.Context, plain string) (*store.User, error) {
	user, err := s.store.FindByEmailVerificationToken(ctx, s.tokens.HashToken(plain), s.now())
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrTokenInvalidOrExpired
		}
		return nil, err
	}

	user.IsEmailVerified = true
	user.EmailVerificationToken = nil
	user.EmailVerificationExpiry = nil
	if err := s.store.Save(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("email verified", zap.Uint("user_id", user.ID))
	s.publish(ctx, "user.email_verified", map[string]any{"user_id": user.ID})
	return user, nil
}

// IssueForgotPassword behaves like IssueEmailVerification but keys the token
// to the reset flow and is addressed by email.
func (s *Service) IssueForgotPassword(ctx context.Context, email string) error {
	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	tok, err := s.tokens.IssueTemporaryToken()
	if err != nil {
		return err
	}

	user.ForgotPasswordToken = &tok.Hashed
	user.ForgotPasswordExpiry = &tok.ExpiresAt
	if err := s.store.Save(ctx, user); err != nil {
		return err
	}

	s.logger.Info("password reset token issued",
		zap.Uint("user_id", user.ID),
		zap.Time("expires_at", tok.ExpiresAt))

	resetURL := fmt.Sprintf("%s/%s", s.config.App.PasswordResetURL, tok.Plain)
	s.notify(ctx, user, func() error {
		return s.notifier.SendPasswordReset(ctx, user.Email, user.Username, resetURL)
	})

	return nil
}

// ConsumeForgotPassword replaces the password hash without requiring the old
// password and clears the reset token pair.
func (s *Service) ConsumeForgotPassword(ctx context.Context, plain, newPassword string) error {
	user, err := s.store.FindByForgotPasswordToken(ctx, s.tokens.HashToken(plain), s.now())
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return ErrTokenInvalidOrExpired
		}
		return err
	}

	if err := s.passwords.Validate(newPassword); err != nil {
		return err
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return err
	}

	user.ForgotPasswordToken = nil
	user.ForgotPasswordExpiry = nil
	user.PasswordHash = hash
	if err := s.store.Save(ctx, user); err != nil {
		return err
	}

	s.logger.Info("password reset completed", zap.Uint("user_id", user.ID))
	s.publish(ctx, "user.password_changed", map[string]any{"user_id": user.ID})
	return nil
}

func (s *Service) notify(ctx context.Context, user *store.User, send func() error) {
	if s.notifier == nil {
		return
	}
	if err := send(); err != nil {
		s.logger.Error("failed to send notification email",
			zap.Error(err),
			zap.Uint("user_id", user.ID))
	}
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
