package audioio

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// MockSource is a mock audio source for testing and development.
// It emits scripted frames when a script is loaded, otherwise synthetic
// audio (silence or a sine wave).
type MockSource struct {
	cfg    Config
	logger *slog.Logger
	tick   time.Duration

	mu      sync.Mutex
	running bool
	closed  bool
	frameCh chan Frame
	stopCh  chan struct{}
	done    chan struct{}
	script  [][]int16

	framesRead  atomic.Int64
	samplesRead atomic.Int64
	timeouts    atomic.Int64

	// Synthetic generation when the script is empty.
	phase     float64
	frequency float64 // Hz, 0 = silence
	amplitude float64 // 0.0 to 1.0
}

// MockSourceOption configures a MockSource.
type MockSourceOption func(*MockSource)

// WithSineWave configures the mock to generate a sine wave.
func WithSineWave(frequency, amplitude float64) MockSourceOption {
	return func(m *MockSource) {
		m.frequency = frequency
		m.amplitude = amplitude
	}
}

// WithScript preloads frames that the source emits, in order, before
// falling back to synthetic audio.
func WithScript(frames ...[]int16) MockSourceOption {
	return func(m *MockSource) {
		m.script = append(m.script, frames...)
	}
}

// WithTick overrides the emission interval. Tests use a short tick so a
// scripted scenario plays out faster than real time.
func WithTick(d time.Duration) MockSourceOption {
	return func(m *MockSource) {
		m.tick = d
	}
}

// NewMockSource creates a new mock audio source.
func NewMockSource(cfg Config, logger *slog.Logger, opts ...MockSourceOption) *MockSource {
	if logger == nil {
		logger = slog.Default()
	}

	m := &MockSource{
		cfg:       cfg,
		logger:    logger,
		tick:      cfg.FrameDuration(),
		amplitude: 0.5,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Enqueue appends a scripted frame while the source is running.
func (m *MockSource) Enqueue(samples []int16) {
	m.mu.Lock()
	m.script = append(m.script, samples)
	m.mu.Unlock()
}

// Start acquires the mock device and begins emitting frames.
func (m *MockSource) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return io.ErrClosedPipe
	}
	if m.running {
		return ErrBusy
	}

	m.running = true
	m.stopCh = make(chan struct{})
	m.done = make(chan struct{})
	m.frameCh = make(chan Frame, 8)

	go m.emitLoop(ctx, m.frameCh, m.stopCh, m.done)

	m.logger.Debug("mock audio source started",
		"sample_rate", m.cfg.SampleRate,
		"frame_samples", m.cfg.FrameSamples,
	)

	return nil
}

func (m *MockSource) emitLoop(ctx context.Context, out chan<- Frame, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer close(out)

	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			frame := m.nextFrame()
			select {
			case out <- frame:
				m.framesRead.Add(1)
				m.samplesRead.Add(int64(len(frame.Samples)))
			default:
				// Consumer is behind; drop the frame.
			}
		}
	}
}

func (m *MockSource) nextFrame() Frame {
	m.mu.Lock()
	if len(m.script) > 0 {
		samples := m.script[0]
		m.script = m.script[1:]
		m.mu.Unlock()
		return Frame{Samples: samples, SampleRate: m.cfg.SampleRate}
	}
	m.mu.Unlock()

	samples := make([]int16, m.cfg.FrameSamples)
	if m.frequency > 0 {
		for i := range samples {
			v := m.amplitude * math.Sin(2*math.Pi*m.frequency*m.phase/float64(m.cfg.SampleRate))
			samples[i] = int16(v * 32767)
			m.phase++
			if m.phase >= float64(m.cfg.SampleRate) {
				m.phase = 0
			}
		}
	}
	return Frame{Samples: samples, SampleRate: m.cfg.SampleRate}
}

// Stop halts emission and releases the device. It waits for the emit
// loop to exit so the next consumer finds the device free.
func (m *MockSource) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	close(m.stopCh)
	done := m.done
	m.mu.Unlock()

	<-done
	m.logger.Debug("mock audio source stopped")
	return nil
}

// ReadFrame returns the next frame, waiting at most the configured
// read timeout.
func (m *MockSource) ReadFrame(ctx context.Context) (Frame, error) {
	m.mu.Lock()
	ch := m.frameCh
	m.mu.Unlock()
	if ch == nil {
		return Frame{}, io.EOF
	}

	timer := time.NewTimer(m.cfg.ReadTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-timer.C:
		m.timeouts.Add(1)
		return Frame{}, ErrNoData
	case frame, ok := <-ch:
		if !ok {
			return Frame{}, io.EOF
		}
		return frame, nil
	}
}

// Config returns the capture configuration.
func (m *MockSource) Config() Config {
	return m.cfg
}

// Name returns "mock".
func (m *MockSource) Name() string {
	return "mock"
}

// Close releases resources.
func (m *MockSource) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	return m.Stop()
}

// Stats returns source statistics.
func (m *MockSource) Stats() SourceStats {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()

	return SourceStats{
		FramesRead:  m.framesRead.Load(),
		SamplesRead: m.samplesRead.Load(),
		Timeouts:    m.timeouts.Load(),
		Running:     running,
		Backend:     "mock",
	}
}

// Ensure MockSource implements SourceWithStats.
var _ SourceWithStats = (*MockSource)(nil)

// MockSink is a mock audio sink for testing. It buffers written audio
// and tracks statistics; Flush simulates a token playback delay.
type MockSink struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	closed  bool
	buffer  []int16

	samplesWritten atomic.Int64
	cleared        atomic.Int64
}

// NewMockSink creates a new mock audio sink.
func NewMockSink(cfg Config, logger *slog.Logger) *MockSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &MockSink{cfg: cfg, logger: logger}
}

// Start prepares the sink.
func (m *MockSink) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return io.ErrClosedPipe
	}
	m.running = true
	return nil
}

// Stop halts playback.
func (m *MockSink) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	return nil
}

// Write queues samples for playback.
func (m *MockSink) Write(ctx context.Context, pcm []int16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || !m.running {
		return io.ErrClosedPipe
	}
	m.buffer = append(m.buffer, pcm...)
	m.samplesWritten.Add(int64(len(pcm)))
	return nil
}

// Flush simulates waiting for playback, shortened for mock use.
func (m *MockSink) Flush(ctx context.Context) error {
	m.mu.Lock()
	queued := len(m.buffer)
	m.mu.Unlock()

	if queued > 0 && m.cfg.SampleRate > 0 {
		wait := time.Duration(float64(queued)/float64(m.cfg.SampleRate)*float64(time.Second)) / 100
		if wait > 10*time.Millisecond {
			wait = 10 * time.Millisecond
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	m.mu.Lock()
	m.buffer = m.buffer[:0]
	m.mu.Unlock()
	return nil
}

// Clear discards queued audio immediately.
func (m *MockSink) Clear() error {
	m.mu.Lock()
	m.buffer = m.buffer[:0]
	m.mu.Unlock()
	m.cleared.Add(1)
	return nil
}

// Buffered returns the number of queued samples.
func (m *MockSink) Buffered() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buffer)
}

// Config returns the playback configuration.
func (m *MockSink) Config() Config {
	return m.cfg
}

// Name returns "mock".
func (m *MockSink) Name() string {
	return "mock"
}

// Close releases resources.
func (m *MockSink) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()
	return m.Stop()
}

// Stats returns sink statistics.
func (m *MockSink) Stats() SinkStats {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()
	return SinkStats{
		SamplesWritten: m.samplesWritten.Load(),
		Cleared:        m.cleared.Load(),
		Running:        running,
		Backend:        "mock",
	}
}

var _ Sink = (*MockSink)(nil)
