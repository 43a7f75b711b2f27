// Package stt converts recorded speech to text.
//
// The Recognizer interface abstracts the transcription backend so the
// assistant loop can run against the Google Cloud implementation in
// production and a mock in tests.
package stt

import (
	"context"
	"errors"
)

// Sentinel errors.
var (
	// ErrNoAPIKey is returned when the API key is missing.
	ErrNoAPIKey = errors.New("stt: API key required")

	// ErrNoAudio is returned when the recording is empty.
	ErrNoAudio = errors.New("stt: no audio to transcribe")

	// ErrNoSpeech is returned when the backend found no words in the
	// audio, for example when the wake detector fired on noise.
	ErrNoSpeech = errors.New("stt: no speech recognized")
)

// Transcript is the result of a recognition request.
type Transcript struct {
	// Text is the best transcription hypothesis.
	Text string

	// Confidence is the backend's confidence in Text, 0.0 to 1.0.
	Confidence float32
}

// Recognizer transcribes a complete utterance of PCM16 mono audio.
type Recognizer interface {
	// Recognize transcribes the given samples. It blocks until the
	// backend responds or ctx is done.
	Recognize(ctx context.Context, samples []int16, sampleRate int) (*Transcript, error)

	// Close releases backend resources.
	Close() error
}
