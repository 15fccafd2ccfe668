package store

import (
	"context"
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

// Store is the persistence boundary for user credentials. Implementations
// return ErrUserNotFound for absent records rather than a driver error.
type Store interface {
	FindByID(ctx context.Context, id uint) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)

	// FindByEmailVerificationToken and FindByForgotPasswordToken match a
	// stored token hash whose paired expiry is strictly after now. A missing
	// hash and an expired hash are both ErrUserNotFound; callers must not
	// distinguish the two.
	FindByEmailVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*User, error)
	FindByForgotPasswordToken(ctx context.Context, tokenHash string, now time.Time) (*User, error)

	Create(ctx context.Context, user *User) error
	Save(ctx context.Context, user *User) error
}
