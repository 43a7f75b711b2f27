// Package record implements the microphone recording session with a
// simple level-based voice activity detector.
//
// A Session is the second, mutually exclusive consumer of the capture
// device: it runs after a wake detection (or a manual trigger) and
// records into a bounded, pre-allocated buffer until silence, a manual
// stop, or the buffer filling up. The buffer is truncated logically at
// the start of each recording and never reallocated, keeping worst-case
// latency bounded.
package record

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/mkarlsen/hearth/pkg/audioio"
)

// Config holds recording and VAD parameters.
type Config struct {
	// MaxDuration bounds the recording buffer. Default: 10s.
	MaxDuration time.Duration

	// VoiceThreshold is the average absolute amplitude above which a
	// frame counts as voice. The comparison is strictly greater-than.
	VoiceThreshold float64

	// SilenceTimeout is how long the level may stay at or below the
	// threshold before silence is reported. Strictly greater-than.
	SilenceTimeout time.Duration
}

// DefaultConfig returns recording defaults.
func DefaultConfig() Config {
	return Config{
		MaxDuration:    10 * time.Second,
		VoiceThreshold: 500,
		SilenceTimeout: 2 * time.Second,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxDuration <= 0 {
		return fmt.Errorf("record: max duration must be positive, got %v", c.MaxDuration)
	}
	if c.VoiceThreshold < 0 {
		return fmt.Errorf("record: voice threshold must not be negative, got %v", c.VoiceThreshold)
	}
	if c.SilenceTimeout <= 0 {
		return fmt.Errorf("record: silence timeout must be positive, got %v", c.SilenceTimeout)
	}
	return nil
}

// Session records audio from a capture source into a bounded buffer
// and decides, from the running level, when the speaker has finished.
//
// Session methods are driven from the orchestrator's main loop and are
// not safe for concurrent use, except the threshold setters.
type Session struct {
	cfg    Config
	source audioio.Source
	logger *slog.Logger

	buffer    []int16
	pos       int
	recording bool
	acquired  bool

	avgLevel      float64
	lastSoundTime time.Time

	mu             sync.Mutex
	voiceThreshold float64
	silenceTimeout time.Duration

	now func() time.Time
}

// NewSession creates a session over the given capture source. The
// recording buffer is allocated once, up front; allocation failure in
// Go surfaces as a panic, so buffer sizing is validated here instead.
func NewSession(cfg Config, source audioio.Source, logger *slog.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	capacity := int(float64(source.Config().SampleRate) * cfg.MaxDuration.Seconds())
	if capacity <= 0 {
		return nil, fmt.Errorf("record: invalid buffer capacity %d", capacity)
	}

	return &Session{
		cfg:            cfg,
		source:         source,
		logger:         logger.With("component", "record.session"),
		buffer:         make([]int16, capacity),
		voiceThreshold: cfg.VoiceThreshold,
		silenceTimeout: cfg.SilenceTimeout,
		now:            time.Now,
	}, nil
}

// Start acquires the capture source and begins a new recording. The
// buffer is logically truncated; previous contents become unreadable.
func (s *Session) Start(ctx context.Context) error {
	if s.recording {
		return nil
	}

	if !s.acquired {
		if err := s.source.Start(ctx); err != nil {
			return fmt.Errorf("record: acquire source: %w", err)
		}
		s.acquired = true
	}

	s.pos = 0
	s.avgLevel = 0
	s.recording = true
	s.lastSoundTime = s.now()

	s.logger.Info("recording started", "capacity", len(s.buffer))
	return nil
}

// Process pulls one frame from the source and appends it to the
// recording buffer, up to capacity. It updates the running average
// level used by DetectVoice. Timeouts and transient read errors are
// skipped. Recording auto-stops when the buffer fills.
func (s *Session) Process(ctx context.Context) error {
	if !s.acquired {
		return nil
	}

	frame, err := s.source.ReadFrame(ctx)
	switch {
	case err == nil:
	case errors.Is(err, audioio.ErrNoData):
		return nil
	case errors.Is(err, io.EOF):
		return nil
	default:
		s.logger.Debug("frame read failed", "error", err)
		return nil
	}

	if len(frame.Samples) == 0 {
		return nil
	}

	// Unweighted average absolute amplitude of this frame.
	var sum int64
	for _, v := range frame.Samples {
		if v < 0 {
			sum -= int64(v)
		} else {
			sum += int64(v)
		}
	}
	s.avgLevel = float64(sum) / float64(len(frame.Samples))

	if s.recording {
		n := copy(s.buffer[s.pos:], frame.Samples)
		s.pos += n

		if s.pos >= len(s.buffer) {
			s.logger.Info("recording buffer full, auto-stopping")
			s.StopRecording()
		}
	}

	return nil
}

// DetectVoice reports whether voice is currently present. While
// recording, a level at or below the threshold for longer than the
// silence timeout returns false, signalling the caller to stop. Both
// comparisons are strict.
func (s *Session) DetectVoice() bool {
	s.mu.Lock()
	threshold := s.voiceThreshold
	timeout := s.silenceTimeout
	s.mu.Unlock()

	if s.avgLevel > threshold {
		s.lastSoundTime = s.now()
		return true
	}

	if s.recording && s.now().Sub(s.lastSoundTime) > timeout {
		return false
	}

	return s.recording
}

// StopRecording freezes the buffer at its current length. The samples
// remain readable until the next Start. The capture source stays
// acquired until Release.
func (s *Session) StopRecording() {
	if !s.recording {
		return
	}
	s.recording = false
	s.logger.Info("recording stopped", "samples", s.pos)
}

// Release stops recording and gives the capture source back.
func (s *Session) Release() error {
	s.StopRecording()
	if !s.acquired {
		return nil
	}
	s.acquired = false
	return s.source.Stop()
}

// Recording reports whether a recording is in progress.
func (s *Session) Recording() bool {
	return s.recording
}

// Samples returns the recorded audio. The returned slice aliases the
// internal buffer and is only valid until the next Start.
func (s *Session) Samples() []int16 {
	return s.buffer[:s.pos]
}

// Len returns the number of recorded samples.
func (s *Session) Len() int {
	return s.pos
}

// SampleRate returns the capture rate of the recorded audio.
func (s *Session) SampleRate() int {
	return s.source.Config().SampleRate
}

// AverageLevel returns the most recent frame's average absolute
// amplitude.
func (s *Session) AverageLevel() float64 {
	return s.avgLevel
}

// VoiceThreshold returns the current VAD level threshold.
func (s *Session) VoiceThreshold() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voiceThreshold
}

// SilenceTimeout returns the current silence timeout.
func (s *Session) SilenceTimeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.silenceTimeout
}

// SetVoiceThreshold updates the VAD level threshold live.
func (s *Session) SetVoiceThreshold(threshold float64) {
	s.mu.Lock()
	s.voiceThreshold = threshold
	s.mu.Unlock()
}

// SetSilenceTimeout updates the silence timeout live.
func (s *Session) SetSilenceTimeout(timeout time.Duration) {
	s.mu.Lock()
	s.silenceTimeout = timeout
	s.mu.Unlock()
}
