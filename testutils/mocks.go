package testutils

import (
	"context"
	"errors"
	"sync"
)

var errSendFailed = errors.New("send failed")

// MockNotifier records notification sends and optionally fails them.
type MockNotifier struct {
	mu sync.Mutex

	FailSends bool

	VerificationSends []NotificationSend
	ResetSends        []NotificationSend
}

type NotificationSend struct {
	Email    string
	Username string
	URL      string
}

func (m *MockNotifier) SendEmailVerification(ctx context.Context, email, username, verificationURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSends {
		return errSendFailed
	}
	m.VerificationSends = append(m.VerificationSends, NotificationSend{Email: email, Username: username, URL: verificationURL})
	return nil
}

func (m *MockNotifier) SendPasswordReset(ctx context.Context, email, username, resetURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSends {
		return errSendFailed
	}
	m.ResetSends = append(m.ResetSends, NotificationSend{Email: email, Username: username, URL: resetURL})
	return nil
}

// MockPublisher records published account events.
type MockPublisher struct {
	mu     sync.Mutex
	Events []PublishedEvent
}

type PublishedEvent struct {
	Type    string
	Payload any
}

func (m *MockPublisher) Publish(ctx context.Context, eventType string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Events = append(m.Events, PublishedEvent{Type: eventType, Payload: payload})
	return nil
}
