package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/authcove/authcove/store"
)

// MemoryStore is an in-memory store.Store for tests. Find methods return
// copies so callers mutate nothing until they Save.
type MemoryStore struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]store.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID: 1,
		users:  make(map[uint]store.User),
	}
}

func (s *MemoryStore) FindByID(ctx context.Context, id uint) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user, ok := s.users[id]; ok {
		u := user
		return &u, nil
	}
	return nil, store.ErrUserNotFound
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*store.User, error) {
	return s.findBy(func(u store.User) bool { return u.Email == email })
}

func (s *MemoryStore) FindByUsername(ctx context.Context, username string) (*store.User, error) {
	return s.findBy(func(u store.User) bool { return u.Username == username })
}

func (s *MemoryStore) FindByEmailVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*store.User, error) {
	return s.findBy(func(u store.User) bool {
		return u.EmailVerificationToken != nil && *u.EmailVerificationToken == tokenHash &&
			u.EmailVerificationExpiry != nil && u.EmailVerificationExpiry.After(now)
	})
}

func (s *MemoryStore) FindByForgotPasswordToken(ctx context.Context, tokenHash string, now time.Time) (*store.User, error) {
	return s.findBy(func(u store.User) bool {
		return u.ForgotPasswordToken != nil && *u.ForgotPasswordToken == tokenHash &&
			u.ForgotPasswordExpiry != nil && u.ForgotPasswordExpiry.After(now)
	})
}

func (s *MemoryStore) Create(ctx context.Context, user *store.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.ID = s.nextID
	s.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryStore) Save(ctx context.Context, user *store.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.UpdatedAt = time.Now()
	s.users[user.ID] = *user
	return nil
}

// Get returns the stored record directly, for assertions.
func (s *MemoryStore) Get(id uint) store.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.users[id]
}

func (s *MemoryStore) findBy(match func(store.User) bool) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if match(user) {
			u := user
			return &u, nil
		}
	}
	return nil, store.ErrUserNotFound
}
