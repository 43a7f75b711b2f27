// Package assistant coordinates the voice assistant's top-level
// behavior.
//
// The orchestrator owns the wake listener and the recording session
// and is the single authority over which of them holds the capture
// device. Its state machine advances only on explicit events; cloud
// calls and playback run asynchronously and report back as events, so
// the main loop never blocks.
package assistant

// State is the orchestrator's current mode.
type State int

const (
	StateInit State = iota
	StateConnecting
	StateIdle
	StateListening
	StateProcessing
	StateResponding
	StateError
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateConnecting:
		return "connecting"
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateProcessing:
		return "processing"
	case StateResponding:
		return "responding"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Event advances the state machine.
type Event int

const (
	// EventStartup is raised once when the main loop begins.
	EventStartup Event = iota

	// EventWifiConnected reports network connectivity.
	EventWifiConnected

	// EventWifiFailed reports loss of network connectivity.
	EventWifiFailed

	// EventButtonPressed is the manual trigger and interrupt.
	EventButtonPressed

	// EventWakeDetected reports a wake pattern from the listener.
	EventWakeDetected

	// EventSilenceDetected reports end of speech from the recording
	// session.
	EventSilenceDetected

	// EventProcessingComplete reports that the cloud turn finished and
	// a reply is ready to play.
	EventProcessingComplete

	// EventPlaybackComplete reports that the reply finished playing.
	EventPlaybackComplete

	// EventErrorOccurred reports a failure from any collaborator.
	EventErrorOccurred

	// EventErrorTimeout triggers recovery from the error state.
	EventErrorTimeout
)

// String returns the event name.
func (e Event) String() string {
	switch e {
	case EventStartup:
		return "startup"
	case EventWifiConnected:
		return "wifi_connected"
	case EventWifiFailed:
		return "wifi_failed"
	case EventButtonPressed:
		return "button_pressed"
	case EventWakeDetected:
		return "wake_detected"
	case EventSilenceDetected:
		return "silence_detected"
	case EventProcessingComplete:
		return "processing_complete"
	case EventPlaybackComplete:
		return "playback_complete"
	case EventErrorOccurred:
		return "error_occurred"
	case EventErrorTimeout:
		return "error_timeout"
	default:
		return "unknown"
	}
}
