// Package audioio provides audio capture and playback for hearth.
//
// Capture is frame oriented: a Source hands out fixed-size frames of
// 16-bit mono PCM, sized so downstream feature extraction sees a uniform
// window. The mock backend generates synthetic or scripted audio for
// development and CI without hardware.
package audioio

import (
	"fmt"
	"time"
)

// Backend identifies the audio backend.
type Backend string

const (
	// BackendMock generates synthetic audio for testing.
	BackendMock Backend = "mock"
	// BackendFile replays raw PCM from a file.
	BackendFile Backend = "file"
)

// Config holds audio capture configuration.
type Config struct {
	// Backend selects the capture implementation.
	Backend Backend `json:"backend"`

	// SampleRate is the capture rate in Hz. Default: 16000.
	SampleRate int `json:"sample_rate"`

	// FrameSamples is the number of samples per frame.
	// Default: 512 (32ms at 16kHz).
	FrameSamples int `json:"frame_samples"`

	// ReadTimeout bounds a single frame read. A read that times out is
	// reported as ErrNoData, not a failure. Default: 100ms.
	ReadTimeout time.Duration `json:"read_timeout"`

	// Device is the backend-specific device identifier; for the file
	// backend it is the path to a raw PCM16LE file.
	Device string `json:"device"`
}

// DefaultConfig returns a Config with capture defaults.
func DefaultConfig() Config {
	return Config{
		Backend:      BackendMock,
		SampleRate:   16000,
		FrameSamples: 512,
		ReadTimeout:  100 * time.Millisecond,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.FrameSamples <= 0 {
		return fmt.Errorf("frame_samples must be positive, got %d", c.FrameSamples)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be positive, got %v", c.ReadTimeout)
	}
	return nil
}

// FrameDuration returns the wall-clock span of one frame.
func (c *Config) FrameDuration() time.Duration {
	return time.Duration(float64(c.FrameSamples) / float64(c.SampleRate) * float64(time.Second))
}

// FrameBytes returns the size of one frame in bytes.
func (c *Config) FrameBytes() int {
	return c.FrameSamples * 2
}
