package audioio

import (
	"context"
	"io"
)

// Sink plays audio frames through a speaker or other output device.
type Sink interface {
	// Start prepares the device for playback.
	Start(ctx context.Context) error

	// Stop halts playback. Safe to call multiple times.
	Stop() error

	// Write queues PCM16 audio for playback.
	Write(ctx context.Context, pcm []int16) error

	// Flush blocks until queued audio has been played.
	Flush(ctx context.Context) error

	// Clear discards queued audio immediately. Used for barge-in: the
	// caller wants playback to cut off, not fade out.
	Clear() error

	// Config returns the playback configuration.
	Config() Config

	// Name returns the backend name.
	Name() string

	// Close releases all resources.
	io.Closer
}

// SinkStats contains counters for an audio sink.
type SinkStats struct {
	SamplesWritten int64  `json:"samples_written"`
	Cleared        int64  `json:"cleared"`
	Running        bool   `json:"running"`
	Backend        string `json:"backend"`
}
