// Package tts converts assistant replies to speech.
//
// All providers return PCM16 mono samples ready for the playback sink,
// so the assistant loop never deals with container formats. Providers
// implement the Provider interface; Chain stacks them so a fallback
// takes over when the primary fails.
package tts

import "context"

// Provider synthesizes speech from text.
type Provider interface {
	// Synthesize converts text to audio and blocks until the full
	// result is available or ctx is done.
	Synthesize(ctx context.Context, text string) (*Result, error)

	// Health checks provider connectivity and credentials.
	Health(ctx context.Context) error

	// Close releases provider resources.
	Close() error
}

// Result is a complete synthesis result.
type Result struct {
	// Samples is PCM16 mono audio.
	Samples []int16

	// SampleRate in Hz.
	SampleRate int

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the time to first byte in milliseconds.
	LatencyMs int64
}
