package stt

import (
	"context"
	"sync"
)

// Mock is a scripted recognizer for testing. Each call to Recognize
// returns the next scripted transcript, or the last one when the
// script runs out.
type Mock struct {
	mu      sync.Mutex
	script  []string
	err     error
	calls   int
	lastLen int
}

// NewMock creates a mock recognizer that returns the given transcripts
// in order.
func NewMock(transcripts ...string) *Mock {
	if len(transcripts) == 0 {
		transcripts = []string{"hello"}
	}
	return &Mock{script: transcripts}
}

// Fail makes subsequent Recognize calls return err.
func (m *Mock) Fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Recognize returns the next scripted transcript.
func (m *Mock) Recognize(ctx context.Context, samples []int16, sampleRate int) (*Transcript, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, ErrNoAudio
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	idx := m.calls
	if idx >= len(m.script) {
		idx = len(m.script) - 1
	}
	m.calls++
	m.lastLen = len(samples)

	return &Transcript{Text: m.script[idx], Confidence: 0.95}, nil
}

// Calls returns how many times Recognize was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastSampleCount returns the sample count of the most recent request.
func (m *Mock) LastSampleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastLen
}

// Close is a no-op.
func (m *Mock) Close() error {
	return nil
}

var _ Recognizer = (*Mock)(nil)
