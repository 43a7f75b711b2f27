package audioio

import (
	"context"
	"errors"
	"io"
)

// Errors returned by sources.
var (
	// ErrNoData indicates no frame arrived within the read timeout.
	// Callers should treat this as "no data this tick", not a failure.
	ErrNoData = errors.New("audioio: no data")

	// ErrBusy indicates the source is already held by another consumer.
	ErrBusy = errors.New("audioio: source busy")
)

// Frame is one fixed-size window of 16-bit mono PCM samples.
type Frame struct {
	// Samples contains PCM16 samples (little-endian on the wire).
	Samples []int16

	// SampleRate is the capture rate of this frame.
	SampleRate int
}

// Bytes returns the raw little-endian bytes of the frame.
func (f *Frame) Bytes() []byte {
	buf := make([]byte, len(f.Samples)*2)
	for i, s := range f.Samples {
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	return buf
}

// FromBytes populates the frame from raw PCM16LE bytes.
func (f *Frame) FromBytes(data []byte, sampleRate int) {
	f.SampleRate = sampleRate
	f.Samples = make([]int16, len(data)/2)
	for i := range f.Samples {
		f.Samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
}

// Duration returns the playback duration of this frame.
func (f *Frame) Duration() float64 {
	if f.SampleRate == 0 {
		return 0
	}
	return float64(len(f.Samples)) / float64(f.SampleRate)
}

// Source captures audio frames from a microphone or other input device.
//
// A Source admits at most one consumer at a time: Start acquires the
// device and returns ErrBusy if it is already held, Stop releases it.
// This is how the assistant guarantees the wake listener and the
// recording session never read the microphone concurrently.
type Source interface {
	// Start acquires the device and begins capture.
	Start(ctx context.Context) error

	// Stop halts capture and releases the device. It does not return
	// until any in-flight frame read has completed, so the device is
	// free for the next consumer. Safe to call multiple times.
	Stop() error

	// ReadFrame returns the next frame. It blocks at most the
	// configured read timeout; on timeout it returns ErrNoData.
	// Returns io.EOF once the source is stopped.
	ReadFrame(ctx context.Context) (Frame, error)

	// Config returns the capture configuration.
	Config() Config

	// Name returns the backend name (e.g., "mock", "file").
	Name() string

	// Close releases all resources. After Close, the source cannot be
	// restarted.
	io.Closer
}

// SourceStats contains counters for an audio source.
type SourceStats struct {
	FramesRead  int64  `json:"frames_read"`
	SamplesRead int64  `json:"samples_read"`
	Timeouts    int64  `json:"timeouts"`
	Running     bool   `json:"running"`
	Backend     string `json:"backend"`
}

// SourceWithStats extends Source with statistics.
type SourceWithStats interface {
	Source
	Stats() SourceStats
}
