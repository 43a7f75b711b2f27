package stt

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
)

// Google transcribes audio with the Google Cloud Speech-to-Text API.
// Utterances are short (bounded by the recording buffer), so the
// simpler non-streaming Recognize call is enough.
type Google struct {
	client   *speech.Client
	language string
	logger   *slog.Logger
}

// GoogleOption configures a Google recognizer.
type GoogleOption func(*Google)

// WithLanguage sets the BCP-47 language code. Default: en-US.
func WithLanguage(code string) GoogleOption {
	return func(g *Google) {
		g.language = code
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) GoogleOption {
	return func(g *Google) {
		g.logger = logger
	}
}

// NewGoogle creates a Speech-to-Text recognizer authenticated with an
// API key.
func NewGoogle(ctx context.Context, apiKey string, opts ...GoogleOption) (*Google, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	g := &Google{
		language: "en-US",
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "stt.google")

	client, err := speech.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("stt: create speech client: %w", err)
	}
	g.client = client

	return g, nil
}

// Recognize transcribes the samples as a single LINEAR16 utterance and
// returns the top hypothesis.
func (g *Google) Recognize(ctx context.Context, samples []int16, sampleRate int) (*Transcript, error) {
	if len(samples) == 0 {
		return nil, ErrNoAudio
	}

	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz: int32(sampleRate),
			LanguageCode:    g.language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{
				Content: pcmBytes(samples),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("stt: recognize: %w", err)
	}

	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		alt := result.Alternatives[0]
		g.logger.Info("transcription complete",
			"chars", len(alt.Transcript),
			"confidence", alt.Confidence,
		)
		return &Transcript{
			Text:       alt.Transcript,
			Confidence: alt.Confidence,
		}, nil
	}

	return nil, ErrNoSpeech
}

// Close releases the underlying gRPC connection.
func (g *Google) Close() error {
	return g.client.Close()
}

// pcmBytes serializes samples as little-endian PCM16.
func pcmBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, v := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return buf
}

var _ Recognizer = (*Google)(nil)
