package tts

import (
	"context"
	"sync"
)

// Mock is a canned provider for testing. It returns a short buffer of
// PCM whose length scales with the text.
type Mock struct {
	mu    sync.Mutex
	err   error
	calls int
	texts []string
}

// NewMock creates a mock provider.
func NewMock() *Mock {
	return &Mock{}
}

// Fail makes subsequent Synthesize calls return err.
func (m *Mock) Fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Synthesize returns canned audio, 100 samples per character.
func (m *Mock) Synthesize(ctx context.Context, text string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, ErrEmptyText
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	m.calls++
	m.texts = append(m.texts, text)

	samples := make([]int16, len(text)*100)
	for i := range samples {
		samples[i] = int16((i % 64) * 100)
	}
	return &Result{
		Samples:    samples,
		SampleRate: 16000,
		CharCount:  len(text),
	}, nil
}

// Health reports the configured failure, if any.
func (m *Mock) Health(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Close is a no-op.
func (m *Mock) Close() error {
	return nil
}

// Calls returns how many times Synthesize was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Texts returns the synthesized texts in order.
func (m *Mock) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.texts))
	copy(out, m.texts)
	return out
}

var _ Provider = (*Mock)(nil)
