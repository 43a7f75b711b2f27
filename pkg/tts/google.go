package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mkarlsen/hearth/internal/httpc"
)

const (
	googleTTSBaseURL  = "https://texttospeech.googleapis.com/v1"
	defaultVoiceName  = "en-US-Neural2-A"
	defaultLanguage   = "en-US"
	defaultSampleRate = 16000
)

// Google synthesizes speech with the Google Cloud Text-to-Speech REST
// API. The response is LINEAR16, usually wrapped in a WAV container;
// the header is stripped before the samples reach the caller.
type Google struct {
	apiKey     string
	voiceName  string
	language   string
	sampleRate int
	client     *http.Client
	logger     *slog.Logger
}

// GoogleOption configures a Google provider.
type GoogleOption func(*Google)

// WithVoiceName sets the voice, for example "en-US-Neural2-A".
func WithVoiceName(name string) GoogleOption {
	return func(g *Google) {
		g.voiceName = name
	}
}

// WithLanguage sets the BCP-47 language code.
func WithLanguage(code string) GoogleOption {
	return func(g *Google) {
		g.language = code
	}
}

// WithSampleRate sets the output sample rate in Hz.
func WithSampleRate(rate int) GoogleOption {
	return func(g *Google) {
		g.sampleRate = rate
	}
}

// WithGoogleLogger sets the logger.
func WithGoogleLogger(logger *slog.Logger) GoogleOption {
	return func(g *Google) {
		g.logger = logger
	}
}

// NewGoogle creates a Text-to-Speech provider authenticated with an
// API key.
func NewGoogle(apiKey string, opts ...GoogleOption) (*Google, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	g := &Google{
		apiKey:     apiKey,
		voiceName:  defaultVoiceName,
		language:   defaultLanguage,
		sampleRate: defaultSampleRate,
		client:     httpc.Client,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "tts.google")

	return g, nil
}

type synthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding   string `json:"audioEncoding"`
		SampleRateHertz int    `json:"sampleRateHertz"`
	} `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize converts text to PCM16 samples.
func (g *Google) Synthesize(ctx context.Context, text string) (*Result, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	var reqBody synthesizeRequest
	reqBody.Input.Text = text
	reqBody.Voice.LanguageCode = g.language
	reqBody.Voice.Name = g.voiceName
	reqBody.AudioConfig.AudioEncoding = "LINEAR16"
	reqBody.AudioConfig.SampleRateHertz = g.sampleRate

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("tts: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text:synthesize?key=%s", googleTTSBaseURL, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("tts: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts: synthesize request: %w", err)
	}
	defer resp.Body.Close()
	latency := time.Since(start).Milliseconds()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{
			Provider:   "google",
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	var synthResp synthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&synthResp); err != nil {
		return nil, fmt.Errorf("tts: decode response: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(synthResp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("tts: decode audio: %w", err)
	}

	samples, rate := decodeLinear16(raw, g.sampleRate)
	if len(samples) == 0 {
		return nil, fmt.Errorf("tts: empty audio in response")
	}

	g.logger.Info("synthesis complete",
		"chars", len(text),
		"samples", len(samples),
		"latency_ms", latency,
	)

	return &Result{
		Samples:    samples,
		SampleRate: rate,
		CharCount:  len(text),
		LatencyMs:  latency,
	}, nil
}

// Health verifies the API key by listing voices.
func (g *Google) Health(ctx context.Context) error {
	url := fmt.Sprintf("%s/voices?key=%s&languageCode=%s", googleTTSBaseURL, g.apiKey, g.language)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("tts: build health request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("tts: health request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{Provider: "google", StatusCode: resp.StatusCode, Message: "health check failed"}
	}
	return nil
}

// Close is a no-op; the HTTP client is shared.
func (g *Google) Close() error {
	return nil
}

// decodeLinear16 converts a LINEAR16 payload to samples. A leading WAV
// container is stripped, taking the sample rate from its header; bare
// PCM falls back to the requested rate.
func decodeLinear16(raw []byte, fallbackRate int) ([]int16, int) {
	rate := fallbackRate
	if len(raw) >= 44 && bytes.HasPrefix(raw, []byte("RIFF")) {
		rate = int(binary.LittleEndian.Uint32(raw[24:28]))
		raw = raw[44:]
	}

	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return samples, rate
}

var _ Provider = (*Google)(nil)
