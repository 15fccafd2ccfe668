package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/authcove/authcove/services/password"
	"github.com/authcove/authcove/services/token"
	"github.com/authcove/authcove/store"
	"github.com/authcove/authcove/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type issuerSpy struct {
	issued []uint
	fail   bool
}

func (i *issuerSpy) IssueEmailVerification(ctx context.Context, userID uint) error {
	if i.fail {
		return errors.New("issue failed")
	}
	i.issued = append(i.issued, userID)
	return nil
}

func newTestService(t *testing.T) (*Service, *testutils.MemoryStore) {
	t.Helper()

	cfg := testutils.GetTestConfig()
	st := testutils.NewMemoryStore()
	passwords := password.NewService(cfg, nil)
	tokens := token.NewService(cfg, nil)
	return NewService(cfg, st, passwords, tokens, nil), st
}

func register(t *testing.T, service *Service) *store.User {
	t.Helper()

	user, err := service.Register(context.Background(), RegisterInput{
		Email:    "alice@example.com",
		Username: "alice",
		Fullname: "Alice Example",
		Password: "secret123",
	})
	require.NoError(t, err)
	return user
}

func TestService_Register(t *testing.T) {
	t.Run("creates an unverified account and starts verification", func(t *testing.T) {
		service, st := newTestService(t)
		issuer := &issuerSpy{}
		service.SetVerificationIssuer(issuer)
		publisher := &testutils.MockPublisher{}
		service.SetEventPublisher(publisher)

		user := register(t, service)

		assert.NotZero(t, user.ID)
		assert.False(t, user.IsEmailVerified)
		assert.NotEqual(t, "secret123", user.PasswordHash)

		stored := st.Get(user.ID)
		assert.Equal(t, "alice@example.com", stored.Email)
		assert.Equal(t, []uint{user.ID}, issuer.issued)

		require.Len(t, publisher.Events, 1)
		assert.Equal(t, "user.registered", publisher.Events[0].Type)
	})

	t.Run("duplicate email", func(t *testing.T) {
		service, _ := newTestService(t)
		register(t, service)

		_, err := service.Register(context.Background(), RegisterInput{
			Email:    "alice@example.com",
			Username: "alice2",
			Password: "secret123",
		})
		assert.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("duplicate username", func(t *testing.T) {
		service, _ := newTestService(t)
		register(t, service)

		_, err := service.Register(context.Background(), RegisterInput{
			Email:    "alice2@example.com",
			Username: "alice",
			Password: "secret123",
		})
		assert.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("rejects a password that fails policy", func(t *testing.T) {
		service, _ := newTestService(t)

		_, err := service.Register(context.Background(), RegisterInput{
			Email:    "bob@example.com",
			Username: "bob",
			Password: "short",
		})
		assert.ErrorIs(t, err, password.ErrPolicyViolation)
	})

	t.Run("account survives a verification issue failure", func(t *testing.T) {
		service, st := newTestService(t)
		service.SetVerificationIssuer(&issuerSpy{fail: true})

		user := register(t, service)

		stored := st.Get(user.ID)
		assert.Equal(t, "alice@example.com", stored.Email)
	})
}

func TestService_Login(t *testing.T) {
	t.Run("success persists the refresh token", func(t *testing.T) {
		service, st := newTestService(t)
		user := register(t, service)

		loggedIn, pair, err := service.Login(context.Background(), "alice@example.com", "secret123")
		require.NoError(t, err)
		assert.Equal(t, user.ID, loggedIn.ID)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
		assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

		stored := st.Get(user.ID)
		require.NotNil(t, stored.RefreshToken)
		assert.Equal(t, pair.RefreshToken, *stored.RefreshToken)
	})

	t.Run("unknown email", func(t *testing.T) {
		service, _ := newTestService(t)

		_, _, err := service.Login(context.Background(), "nobody@example.com", "secret123")
		assert.ErrorIs(t, err, store.ErrUserNotFound)
	})

	t.Run("wrong password", func(t *testing.T) {
		service, _ := newTestService(t)
		register(t, service)

		_, _, err := service.Login(context.Background(), "alice@example.com", "wrong-pass1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("second login supersedes the first refresh token", func(t *testing.T) {
		service, st := newTestService(t)
		user := register(t, service)

		_, first, err := service.Login(context.Background(), "alice@example.com", "secret123")
		require.NoError(t, err)
		_, second, err := service.Login(context.Background(), "alice@example.com", "secret123")
		require.NoError(t, err)

		assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

		stored := st.Get(user.ID)
		require.NotNil(t, stored.RefreshToken)
		assert.Equal(t, second.RefreshToken, *stored.RefreshToken)
	})
}

func TestService_Refresh(t *testing.T) {
	t.Run("rotation mints a new pair and persists it", func(t *testing.T) {
		service, st := newTestService(t)
		user := register(t, service)
		_, pair, err := service.Login(context.Background(), "alice@example.com", "secret123")
		require.NoError(t, err)

		rotated, err := service.Refresh(context.Background(), pair.RefreshToken)
		require.NoError(t, err)
		assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

		stored := st.Get(user.ID)
		require.NotNil(t, stored.RefreshToken)
		assert.Equal(t, rotated.RefreshToken, *stored.RefreshToken)
	})

	t.Run("superseded token is rejected", func(t *testing.T) {
		service, _ := newTestService(t)
		register(t, service)
		_, pair, err := service.Login(context.Background(), "alice@example.com", "secret123")
		require.NoError(t, err)

		_, err = service.Refresh(context.Background(), pair.RefreshToken)
		require.NoError(t, err)

		// the pre-rotation token still verifies cryptographically, but it
		// no longer matches the stored one
		_, err = service.Refresh(context.Background(), pair.RefreshToken)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("empty token", func(t *testing.T) {
		service, _ := newTestService(t)

		_, err := service.Refresh(context.Background(), "")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("garbage token", func(t *testing.T) {
		service, _ := newTestService(t)

		_, err := service.Refresh(context.Background(), "not-a-jwt")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("token for a deleted user", func(t *testing.T) {
		cfg := testutils.GetTestConfig()
		tokens := token.NewService(cfg, nil)
		service := NewService(cfg, testutils.NewMemoryStore(), password.NewService(cfg, nil), tokens, nil)

		orphan, err := tokens.IssueRefreshToken(999)
		require.NoError(t, err)

		_, err = service.Refresh(context.Background(), orphan)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestService_Logout(t *testing.T) {
	service, st := newTestService(t)
	user := register(t, service)
	_, pair, err := service.Login(context.Background(), "alice@example.com", "secret123")
	require.NoError(t, err)

	require.NoError(t, service.Logout(context.Background(), user.ID))

	stored := st.Get(user.ID)
	assert.Nil(t, stored.RefreshToken)

	t.Run("refresh after logout is rejected", func(t *testing.T) {
		_, err := service.Refresh(context.Background(), pair.RefreshToken)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("logout twice is not an error", func(t *testing.T) {
		assert.NoError(t, service.Logout(context.Background(), user.ID))
	})

	t.Run("logout for an unknown user is not an error", func(t *testing.T) {
		assert.NoError(t, service.Logout(context.Background(), 999))
	})
}

func TestService_ChangePassword(t *testing.T) {
	t.Run("old password stops working, new one logs in", func(t *testing.T) {
		service, _ := newTestService(t)
		user := register(t, service)
		publisher := &testutils.MockPublisher{}
		service.SetEventPublisher(publisher)

		err := service.ChangePassword(context.Background(), user.ID, "secret123", "secret456")
		require.NoError(t, err)

		_, _, err = service.Login(context.Background(), "alice@example.com", "secret123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		_, _, err = service.Login(context.Background(), "alice@example.com", "secret456")
		assert.NoError(t, err)

		require.Len(t, publisher.Events, 1)
		assert.Equal(t, "user.password_changed", publisher.Events[0].Type)
	})

	t.Run("wrong old password", func(t *testing.T) {
		service, _ := newTestService(t)
		user := register(t, service)

		err := service.ChangePassword(context.Background(), user.ID, "wrong-pass1", "secret456")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("new password equal to old", func(t *testing.T) {
		service, _ := newTestService(t)
		user := register(t, service)

		err := service.ChangePassword(context.Background(), user.ID, "secret123", "secret123")
		assert.ErrorIs(t, err, ErrSamePassword)
	})

	t.Run("new password must pass policy", func(t *testing.T) {
		service, _ := newTestService(t)
		user := register(t, service)

		err := service.ChangePassword(context.Background(), user.ID, "secret123", "short")
		assert.ErrorIs(t, err, password.ErrPolicyViolation)
	})

	t.Run("stored refresh token is left intact", func(t *testing.T) {
		service, st := newTestService(t)
		user := register(t, service)
		_, pair, err := service.Login(context.Background(), "alice@example.com", "secret123")
		require.NoError(t, err)

		require.NoError(t, service.ChangePassword(context.Background(), user.ID, "secret123", "secret456"))

		stored := st.Get(user.ID)
		require.NotNil(t, stored.RefreshToken)
		assert.Equal(t, pair.RefreshToken, *stored.RefreshToken)

		_, err = service.Refresh(context.Background(), pair.RefreshToken)
		assert.NoError(t, err)
	})
}
