package assistant

// Machine is the orchestrator's transition table. It holds only the
// current state; side effects belong to the caller, keyed off the
// returned transition. Events with no entry for the current state are
// no-ops, so a wake detection or button press arriving mid-processing
// is simply ignored.
type Machine struct {
	state State
}

// NewMachine creates a machine in the init state.
func NewMachine() *Machine {
	return &Machine{state: StateInit}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Apply processes one event. It returns the resulting state and
// whether the event caused a transition. wakeEnabled gates whether a
// wake detection may start a turn from idle; the manual button always
// may.
func (m *Machine) Apply(ev Event, wakeEnabled bool) (State, bool) {
	next, ok := transition(m.state, ev, wakeEnabled)
	if ok {
		m.state = next
	}
	return m.state, ok
}

func transition(from State, ev Event, wakeEnabled bool) (State, bool) {
	switch from {
	case StateInit:
		// Any event moves out of init.
		return StateConnecting, true

	case StateConnecting:
		switch ev {
		case EventWifiConnected:
			return StateIdle, true
		case EventWifiFailed:
			return StateError, true
		}

	case StateIdle:
		switch ev {
		case EventButtonPressed:
			return StateListening, true
		case EventWakeDetected:
			if wakeEnabled {
				return StateListening, true
			}
		}

	case StateListening:
		switch ev {
		case EventSilenceDetected, EventButtonPressed:
			return StateProcessing, true
		case EventErrorOccurred:
			return StateError, true
		}

	case StateProcessing:
		switch ev {
		case EventProcessingComplete:
			return StateResponding, true
		case EventErrorOccurred:
			return StateError, true
		}

	case StateResponding:
		switch ev {
		case EventPlaybackComplete, EventButtonPressed:
			return StateIdle, true
		case EventErrorOccurred:
			return StateError, true
		}

	case StateError:
		if ev == EventErrorTimeout {
			return StateIdle, true
		}
	}

	return from, false
}
