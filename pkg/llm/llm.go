// Package llm generates conversational replies to transcribed speech.
//
// The Client interface hides the model backend; the production
// implementation talks to the Gemini API and keeps a bounded
// conversation history so replies stay in context without the request
// growing forever.
package llm

import (
	"context"
	"errors"
)

// Sentinel errors.
var (
	// ErrNoAPIKey is returned when the API key is missing.
	ErrNoAPIKey = errors.New("llm: API key required")

	// ErrEmptyPrompt is returned when the user message is empty.
	ErrEmptyPrompt = errors.New("llm: empty prompt")

	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("llm: model returned no text")
)

// Exchange is one user turn and the model's reply.
type Exchange struct {
	User  string
	Model string
}

// Client generates a reply to a user message, carrying conversation
// history across calls.
type Client interface {
	// Respond generates a reply to the user message and records the
	// exchange in the history.
	Respond(ctx context.Context, userText string) (string, error)

	// History returns the recorded exchanges, oldest first.
	History() []Exchange

	// Reset clears the conversation history.
	Reset()

	// Close releases backend resources.
	Close() error
}
