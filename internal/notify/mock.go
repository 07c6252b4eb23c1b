package notify

import (
	"context"
	"sync"
)

// MockDispatcher records notifications for test assertions.
type MockDispatcher struct {
	// DispatchFunc allows customizing dispatch behavior.
	DispatchFunc func(ctx context.Context, n Notification) error

	mu   sync.Mutex
	sent []Notification
}

// NewMockDispatcher creates a recording dispatcher for tests.
func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

// Dispatch records the notification and delegates to DispatchFunc if set.
func (m *MockDispatcher) Dispatch(ctx context.Context, n Notification) error {
	m.mu.Lock()
	m.sent = append(m.sent, n)
	m.mu.Unlock()
	if m.DispatchFunc != nil {
		return m.DispatchFunc(ctx, n)
	}
	return nil
}

// Sent returns a copy of every recorded notification.
func (m *MockDispatcher) Sent() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Notification, len(m.sent))
	copy(out, m.sent)
	return out
}
