package llm

import (
	"context"
	"fmt"
	"sync"
)

// Mock is a canned client for testing. It echoes a reply per request
// and keeps history the same way the real client does.
type Mock struct {
	mu         sync.Mutex
	replies    []string
	err        error
	calls      int
	history    []Exchange
	maxHistory int
}

// NewMock creates a mock client. With no replies it echoes the prompt.
func NewMock(replies ...string) *Mock {
	return &Mock{replies: replies, maxHistory: 10}
}

// Fail makes subsequent Respond calls return err.
func (m *Mock) Fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Respond returns the next canned reply.
func (m *Mock) Respond(ctx context.Context, userText string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if userText == "" {
		return "", ErrEmptyPrompt
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return "", m.err
	}

	var reply string
	if len(m.replies) == 0 {
		reply = fmt.Sprintf("you said: %s", userText)
	} else {
		idx := m.calls
		if idx >= len(m.replies) {
			idx = len(m.replies) - 1
		}
		reply = m.replies[idx]
	}
	m.calls++

	m.history = append(m.history, Exchange{User: userText, Model: reply})
	if len(m.history) > m.maxHistory {
		m.history = m.history[1:]
	}

	return reply, nil
}

// History returns the recorded exchanges.
func (m *Mock) History() []Exchange {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Exchange, len(m.history))
	copy(out, m.history)
	return out
}

// Reset clears the history.
func (m *Mock) Reset() {
	m.mu.Lock()
	m.history = nil
	m.mu.Unlock()
}

// Calls returns how many times Respond was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close is a no-op.
func (m *Mock) Close() error {
	return nil
}

var _ Client = (*Mock)(nil)
