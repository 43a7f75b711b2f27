package tts

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	elevenLabsWSBaseURL = "wss://api.elevenlabs.io/v1/text-to-speech"
	elevenLabsModelID   = "eleven_turbo_v2_5"
	handshakeTimeout    = 10 * time.Second
)

// ElevenLabs synthesizes speech over the ElevenLabs streaming
// WebSocket API. Each Synthesize call opens a connection, sends the
// full text, and collects audio chunks until the final frame. Output
// is pcm_16000, which matches the playback sink directly.
type ElevenLabs struct {
	apiKey  string
	voiceID string
	modelID string
	logger  *slog.Logger
}

// ElevenLabsOption configures an ElevenLabs provider.
type ElevenLabsOption func(*ElevenLabs)

// WithVoiceID sets the voice.
func WithVoiceID(id string) ElevenLabsOption {
	return func(e *ElevenLabs) {
		e.voiceID = id
	}
}

// WithModelID overrides the model.
func WithModelID(id string) ElevenLabsOption {
	return func(e *ElevenLabs) {
		e.modelID = id
	}
}

// WithElevenLabsLogger sets the logger.
func WithElevenLabsLogger(logger *slog.Logger) ElevenLabsOption {
	return func(e *ElevenLabs) {
		e.logger = logger
	}
}

// NewElevenLabs creates an ElevenLabs provider.
func NewElevenLabs(apiKey, voiceID string, opts ...ElevenLabsOption) (*ElevenLabs, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if voiceID == "" {
		return nil, ErrNoVoice
	}

	e := &ElevenLabs{
		apiKey:  apiKey,
		voiceID: voiceID,
		modelID: elevenLabsModelID,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "tts.elevenlabs")

	return e, nil
}

// Synthesize streams the text through the WebSocket API and returns
// the assembled audio.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (*Result, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	url := fmt.Sprintf("%s/%s/stream-input?model_id=%s&output_format=pcm_16000",
		elevenLabsWSBaseURL, e.voiceID, e.modelID)

	headers := http.Header{}
	headers.Set("xi-api-key", e.apiKey)

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, url, headers)
	if err != nil {
		if resp != nil {
			return nil, &APIError{Provider: "elevenlabs", StatusCode: resp.StatusCode, Message: err.Error()}
		}
		return nil, fmt.Errorf("tts: elevenlabs dial: %w", err)
	}
	defer conn.Close()

	start := time.Now()

	// BOS, text, EOS. The empty-text message signals end of input.
	messages := []map[string]any{
		{"text": " "},
		{"text": text, "try_trigger_generation": true},
		{"text": ""},
	}
	for _, msg := range messages {
		if err := conn.WriteJSON(msg); err != nil {
			return nil, fmt.Errorf("tts: elevenlabs send: %w", err)
		}
	}

	var pcm []byte
	var firstByteMs int64
	for {
		if deadline, ok := ctx.Deadline(); ok {
			conn.SetReadDeadline(deadline)
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) && len(pcm) > 0 {
				break
			}
			return nil, fmt.Errorf("tts: elevenlabs read: %w", err)
		}

		var chunk struct {
			Audio   string `json:"audio"`
			IsFinal bool   `json:"isFinal"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal(message, &chunk); err != nil {
			e.logger.Warn("unparseable chunk", "error", err)
			continue
		}
		if chunk.Error != "" {
			return nil, fmt.Errorf("tts: elevenlabs: %s", chunk.Error)
		}

		if chunk.Audio != "" {
			data, err := base64.StdEncoding.DecodeString(chunk.Audio)
			if err != nil {
				return nil, fmt.Errorf("tts: elevenlabs decode audio: %w", err)
			}
			if len(pcm) == 0 {
				firstByteMs = time.Since(start).Milliseconds()
			}
			pcm = append(pcm, data...)
		}
		if chunk.IsFinal {
			break
		}
	}

	if len(pcm) == 0 {
		return nil, fmt.Errorf("tts: elevenlabs returned no audio")
	}

	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}

	e.logger.Info("synthesis complete",
		"chars", len(text),
		"samples", len(samples),
		"latency_ms", firstByteMs,
	)

	return &Result{
		Samples:    samples,
		SampleRate: 16000,
		CharCount:  len(text),
		LatencyMs:  firstByteMs,
	}, nil
}

// Health opens and immediately closes a connection to verify the API
// key and voice.
func (e *ElevenLabs) Health(ctx context.Context) error {
	url := fmt.Sprintf("%s/%s/stream-input?model_id=%s", elevenLabsWSBaseURL, e.voiceID, e.modelID)

	headers := http.Header{}
	headers.Set("xi-api-key", e.apiKey)

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, url, headers)
	if err != nil {
		if resp != nil {
			return &APIError{Provider: "elevenlabs", StatusCode: resp.StatusCode, Message: "health check failed"}
		}
		return fmt.Errorf("tts: elevenlabs health: %w", err)
	}
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return conn.Close()
}

// Close is a no-op; connections are per-request.
func (e *ElevenLabs) Close() error {
	return nil
}

var _ Provider = (*ElevenLabs)(nil)
