package verification

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/authcove/authcove/services/password"
	"github.com/authcove/authcove/services/token"
	"github.com/authcove/authcove/store"
	"github.com/authcove/authcove/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	service  *Service
	store    *testutils.MemoryStore
	notifier *testutils.MockNotifier
	tokens   *token.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := testutils.GetTestConfig()
	st := testutils.NewMemoryStore()
	tokens := token.NewService(cfg, nil)
	service := NewService(cfg, st, tokens, password.NewService(cfg, nil), nil)
	notifier := &testutils.MockNotifier{}
	service.SetNotifier(notifier)
	return &fixture{service: service, store: st, notifier: notifier, tokens: tokens}
}

func (f *fixture) addUser(t *testing.T, verified bool) *store.User {
	t.Helper()

	user := &store.User{
		Email:           "alice@example.com",
		Username:        "alice",
		PasswordHash:    "$2a$04$invalidinvalidinvalidinvalidinvalidinvalidinvalidinva",
		IsEmailVerified: verified,
	}
	require.NoError(t, f.store.Create(context.Background(), user))
	return user
}

// lastSegment pulls the plain token out of a delivered URL.
func lastSegment(url string) string {
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}

func TestService_IssueEmailVerification(t *testing.T) {
	t.Run("stores the hash and mails the plain value", func(t *testing.T) {
		f := newFixture(t)
		user := f.addUser(t, false)

		require.NoError(t, f.service.IssueEmailVerification(context.Background(), user.ID))

		stored := f.store.Get(user.ID)
		require.NotNil(t, stored.EmailVerificationToken)
		require.NotNil(t, stored.EmailVerificationExpiry)

		require.Len(t, f.notifier.VerificationSends, 1)
		send := f.notifier.VerificationSends[0]
		assert.Equal(t, "alice@example.com", send.Email)

		plain := lastSegment(send.URL)
		assert.NotEqual(t, plain, *stored.EmailVerificationToken)
		assert.Equal(t, f.tokens.HashToken(plain), *stored.EmailVerificationToken)
	})

	t.Run("already verified", func(t *testing.T) {
		f := newFixture(t)
		user := f.addUser(t, true)

		err := f.service.IssueEmailVerification(context.Background(), user.ID)
		assert.ErrorIs(t, err, ErrAlreadyVerified)
		assert.Empty(t, f.notifier.VerificationSends)
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newFixture(t)

		err := f.service.IssueEmailVerification(context.Background(), 999)
		assert.ErrorIs(t, err, store.ErrUserNotFound)
	})

	t.Run("reissue overwrites the outstanding token", func(t *testing.T) {
		f := newFixture(t)
		user := f.addUser(t, false)

		require.NoError(t, f.service.IssueEmailVerification(context.Background(), user.ID))
		first := lastSegment(f.notifier.VerificationSends[0].URL)

		require.NoError(t, f.service.IssueEmailVerification(context.Background(), user.ID))
		second := lastSegment(f.notifier.VerificationSends[1].URL)
		require.NotEqual(t, first, second)

		_, err := f.service.ConsumeEmailVerification(context.Background(), first)
		assert.ErrorIs(t, err, ErrTokenInvalidOrExpired)

		_, err = f.service.ConsumeEmailVerification(context.Background(), second)
		assert.NoError(t, err)
	})

	t.Run("token survives a failed send", func(t *testing.T) {
		f := newFixture(t)
		user := f.addUser(t, false)
		f.notifier.FailSends = true

		require.NoError(t, f.service.IssueEmailVerification(context.Background(), user.ID))

		stored := f.store.Get(user.ID)
		assert.NotNil(t, stored.EmailVerificationToken)
	})
}

func TestService_ConsumeEmailVerification(t *testing.T) {
	t.Run("marks verified and clears the token", func(t *testing.T) {
		f := newFixture(t)
		user := f.addUser(t, false)
		publisher := &testutils.MockPublisher{}
		f.service.SetEventPublisher(publisher)

		require.NoError(t, f.service.IssueEmailVerification(context.Background(), user.ID))
		plain := lastSegment(f.notifier.VerificationSends[0].URL)

		verified, err := f.service.ConsumeEmailVerification(context.Background(), plain)
		require.NoError(t, err)
		assert.Equal(t, user.ID, verified.ID)
		assert.True(t, verified.IsEmailVerified)

		stored := f.store.Get(user.ID)
		assert.True(t, stored.IsEmailVerified)
		assert.Nil(t, stored.EmailVerificationToken)
		assert.Nil(t, stored.EmailVerificationExpiry)

		require.Len(t, publisher.Events, 1)
		assert.Equal(t, "user.email_verified", publisher.Events[0].Type)
	})

	t.Run("token consumes exactly once", func(t *testing.T) {
		f := newFixture(t)
		user := f.addUser(t, false)

		require.NoError(t, f.service.IssueEmailVerification(context.Background(), user.ID))
		plain := lastSegment(f.notifier.VerificationSends[0].URL)

		_, err := f.service.ConsumeEmailVerification(context.Background(), plain)
		require.NoError(t, err)

		_, err = f.service.ConsumeEmailVerification(context.Background(), plain)
		assert.ErrorIs(t, err, ErrTokenInvalidOrExpired)
	})

	t.Run("unknown token", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.ConsumeEmailVerification(context.Background(), "deadbeef")
		assert.ErrorIs(t, err, ErrTokenInvalidOrExpired)
	})

	t.Run("expired token", func(t *testing.T) {
		f := newFixture(t)
		user := f.addUser(t, false)

		require.NoError(t, f.service.IssueEmailVerification(context.Background(), user.ID))
		plain := lastSegment(f.notifier.VerificationSends[0].URL)

		f.service.SetClock(func() time.Time { return time.Now().Add(21 * time.Minute) })

		_, err := f.service.ConsumeEmailVerification(context.Background(), plain)
		assert.ErrorIs(t, err, ErrTokenInvalidOrExpired)
	})
}

func TestService_IssueForgotPassword(t *testing.T) {
	t.Run("stores the hash and mails the reset link", func(t *testing.T) {
		f := newFixture(t)
		user := f.addUser(t, true)

		require.NoError(t, f.service.IssueForgotPassword(context.Background(), "alice@example.com"))

		stored := f.store.Get(user.ID)
		require.NotNil(t, stored.ForgotPasswordToken)
		require.NotNil(t, stored.ForgotPasswordExpiry)

		require.Len(t, f.notifier.ResetSends, 1)
		plain := lastSegment(f.notifier.ResetSends[0].URL)
		assert.Equal(t, f.tokens.HashToken(plain), *stored.ForgotPasswordToken)
	})

	t.Run("unknown email surfaces not found and mutates nothing", func(t *testing.T) {
		f := newFixture(t)
		f.addUser(t, true)

		err := f.service.IssueForgotPassword(context.Background(), "nobody@example.com")
		assert.ErrorIs(t, err, store.ErrUserNotFound)
		assert.Empty(t, f.notifier.ResetSends)
	})
}

func TestService_ConsumeForgotPassword(t *testing.T) {
	issue := func(t *testing.T, f *fixture) string {
		t.Helper()
		require.NoError(t, f.service.IssueForgotPassword(context.Background(), "alice@example.com"))
		return lastSegment(f.notifier.ResetSends[len(f.notifier.ResetSends)-1].URL)
	}

	t.Run("replaces the password and clears the token", func(t *testing.T) {
		f := newFixture(t)
		user := f.addUser(t, true)
		oldHash := user.PasswordHash
		plain := issue(t, f)

		require.NoError(t, f.service.ConsumeForgotPassword(context.Background(), plain, "secret456"))

		stored := f.store.Get(user.ID)
		assert.NotEqual(t, oldHash, stored.PasswordHash)
		assert.Nil(t, stored.ForgotPasswordToken)
		assert.Nil(t, stored.ForgotPasswordExpiry)
	})

	t.Run("token consumes exactly once", func(t *testing.T) {
		f := newFixture(t)
		f.addUser(t, true)
		plain := issue(t, f)

		require.NoError(t, f.service.ConsumeForgotPassword(context.Background(), plain, "secret456"))

		err := f.service.ConsumeForgotPassword(context.Background(), plain, "secret789")
		assert.ErrorIs(t, err, ErrTokenInvalidOrExpired)
	})

	t.Run("expired token", func(t *testing.T) {
		f := newFixture(t)
		f.addUser(t, true)
		plain := issue(t, f)

		f.service.SetClock(func() time.Time { return time.Now().Add(21 * time.Minute) })

		err := f.service.ConsumeForgotPassword(context.Background(), plain, "secret456")
		assert.ErrorIs(t, err, ErrTokenInvalidOrExpired)
	})

	t.Run("weak replacement password leaves the token alive", func(t *testing.T) {
		f := newFixture(t)
		f.addUser(t, true)
		plain := issue(t, f)

		err := f.service.ConsumeForgotPassword(context.Background(), plain, "short")
		assert.ErrorIs(t, err, password.ErrPolicyViolation)

		// a second attempt with an acceptable password still works
		assert.NoError(t, f.service.ConsumeForgotPassword(context.Background(), plain, "secret456"))
	})
}
