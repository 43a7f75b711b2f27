// Package config provides environment-based configuration helpers for
// hearth commands.
package config

import (
	"os"
	"strconv"
	"time"
)

// Default service configuration.
const (
	DefaultWebPort      = "8090"
	DefaultLanguageCode = "en-US"
	DefaultProbeURL     = "https://connectivitycheck.gstatic.com/generate_204"
)

// GoogleAPIKey returns the Google API key from GOOGLE_API_KEY.
func GoogleAPIKey() string {
	return os.Getenv("GOOGLE_API_KEY")
}

// ElevenLabsKey returns the ElevenLabs API key from ELEVENLABS_API_KEY.
func ElevenLabsKey() string {
	return os.Getenv("ELEVENLABS_API_KEY")
}

// ElevenLabsVoice returns the voice ID from ELEVENLABS_VOICE_ID.
func ElevenLabsVoice() string {
	return os.Getenv("ELEVENLABS_VOICE_ID")
}

// WebPort returns the control panel port from HEARTH_WEB_PORT or the default.
func WebPort() string {
	if port := os.Getenv("HEARTH_WEB_PORT"); port != "" {
		return port
	}
	return DefaultWebPort
}

// LanguageCode returns the STT/TTS language from HEARTH_LANGUAGE or the default.
func LanguageCode() string {
	if lang := os.Getenv("HEARTH_LANGUAGE"); lang != "" {
		return lang
	}
	return DefaultLanguageCode
}

// Float returns the named env var parsed as float64, or def if unset or invalid.
func Float(name string, def float64) float64 {
	if s := os.Getenv(name); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
	}
	return def
}

// Duration returns the named env var parsed as a duration, or def.
func Duration(name string, def time.Duration) time.Duration {
	if s := os.Getenv(name); s != "" {
		if v, err := time.ParseDuration(s); err == nil {
			return v
		}
	}
	return def
}

// Bool returns the named env var parsed as a bool, or def.
func Bool(name string, def bool) bool {
	if s := os.Getenv(name); s != "" {
		if v, err := strconv.ParseBool(s); err == nil {
			return v
		}
	}
	return def
}
