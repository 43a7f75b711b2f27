// Package wake implements on-device wake detection: a pattern state
// machine over per-frame audio features, and a background listener that
// drives it from a capture source.
//
// The detector does not recognize any particular word. It looks for the
// envelope of a short spoken trigger: quiet, a sharp onset, a few frames
// of voiced speech with moderate zero-crossing rate, then decay, all
// inside tight timing bounds. That shape matches "Hey" or "OK" while
// rejecting claps (too short), sustained noise (wrong ZCR), and running
// speech (too long).
package wake

import (
	"time"

	"github.com/mkarlsen/hearth/pkg/dsp"
)

// PatternState is the wake-pattern detector's state.
type PatternState int

const (
	// StateIdle waits for an energy onset above the baseline.
	StateIdle PatternState = iota
	// StateRisingEdge saw an onset and counts voiced frames.
	StateRisingEdge
	// StateSustained tracks ongoing voiced speech.
	StateSustained
	// StateFallingEdge saw the energy drop and validates the envelope.
	StateFallingEdge
	// StateDetected is entered for exactly one frame on acceptance.
	StateDetected
)

// String returns the state name.
func (s PatternState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRisingEdge:
		return "rising_edge"
	case StateSustained:
		return "sustained"
	case StateFallingEdge:
		return "falling_edge"
	case StateDetected:
		return "detected"
	default:
		return "unknown"
	}
}

// Envelope timing bounds. Wake words are typically 0.3-1.0 seconds.
const (
	// sustainTimeout aborts patterns that run too long to be a trigger.
	sustainTimeout = 1500 * time.Millisecond
	// minPatternDuration is the shortest acceptable envelope.
	minPatternDuration = 300 * time.Millisecond
	// maxPatternDuration is the longest acceptable envelope.
	maxPatternDuration = 1200 * time.Millisecond

	// risingFrames is the number of voiced frames needed to confirm
	// the onset is speech rather than a transient.
	risingFrames = 3
	// minSustainedFrames is the minimum voiced-frame count for a
	// valid pattern.
	minSustainedFrames = 5

	// Voiced speech has moderate ZCR; outside this band the frame
	// does not count toward the sustain requirement.
	voicedZCRMin = 0.02
	voicedZCRMax = 0.2
)

// DefaultEnergyThreshold is the base onset threshold in 16-bit sample
// units, before sensitivity scaling.
const DefaultEnergyThreshold = 800.0

// DefaultSensitivity is the default detection sensitivity.
const DefaultSensitivity = 0.5

// Detector is the wake-pattern state machine. It consumes one feature
// sample per call and reports when a complete speech-like envelope has
// been observed.
//
// Detector is not goroutine-safe; it is owned by the listener's
// sampling loop. Time is read through an injectable clock so tests can
// drive the timing bounds deterministically.
type Detector struct {
	baseThreshold   float64
	sensitivity     float64
	energyThreshold float64

	state           PatternState
	sustainedFrames int
	patternStart    time.Time

	now func() time.Time
}

// NewDetector creates a detector with the given base energy threshold.
// A threshold of zero or less uses DefaultEnergyThreshold.
func NewDetector(baseThreshold float64) *Detector {
	if baseThreshold <= 0 {
		baseThreshold = DefaultEnergyThreshold
	}
	d := &Detector{
		baseThreshold: baseThreshold,
		now:           time.Now,
	}
	d.SetSensitivity(DefaultSensitivity)
	return d
}

// SetSensitivity adjusts detection sensitivity in [0, 1]; out-of-range
// values are clamped. Higher sensitivity lowers the effective threshold,
// making triggering easier. The mapping is kept exactly as tuned on
// hardware: threshold / (1 + (1 - sensitivity)).
func (d *Detector) SetSensitivity(sensitivity float64) {
	if sensitivity < 0 {
		sensitivity = 0
	}
	if sensitivity > 1 {
		sensitivity = 1
	}
	d.sensitivity = sensitivity
	d.energyThreshold = d.baseThreshold / (1 + (1 - sensitivity))
}

// SetClock replaces the detector's time source. Offline tools that
// replay recorded audio faster than real time use this to pace the
// envelope timing by frame duration instead of wall clock.
func (d *Detector) SetClock(now func() time.Time) {
	if now != nil {
		d.now = now
	}
}

// Sensitivity returns the current sensitivity.
func (d *Detector) Sensitivity() float64 {
	return d.sensitivity
}

// Threshold returns the effective energy threshold after sensitivity
// scaling.
func (d *Detector) Threshold() float64 {
	return d.energyThreshold
}

// State returns the current pattern state.
func (d *Detector) State() PatternState {
	return d.state
}

// Reset returns the detector to idle.
func (d *Detector) Reset() {
	d.state = StateIdle
	d.sustainedFrames = 0
}

// Step advances the state machine with one frame's features and the
// rolling baseline energy. It returns true exactly once per completed
// wake pattern, on the frame that validates the falling edge.
func (d *Detector) Step(f dsp.Features, avgEnergy float64) bool {
	switch d.state {
	case StateIdle:
		// Onset: loud both in absolute terms and against the room's
		// recent baseline.
		if f.Energy > d.energyThreshold && f.Energy > avgEnergy*1.5 {
			d.state = StateRisingEdge
			d.patternStart = d.now()
			d.sustainedFrames = 0
		}

	case StateRisingEdge:
		if f.Energy > d.energyThreshold*0.8 &&
			f.ZCR > voicedZCRMin && f.ZCR < voicedZCRMax {
			d.sustainedFrames++
			if d.sustainedFrames >= risingFrames {
				d.state = StateSustained
			}
		} else if f.Energy < d.energyThreshold*0.3 {
			// Dropped too fast to be speech.
			d.state = StateIdle
		}

	case StateSustained:
		if f.Energy > d.energyThreshold*0.5 {
			d.sustainedFrames++
			if d.now().Sub(d.patternStart) > sustainTimeout {
				// Too long, probably not a wake word.
				d.state = StateIdle
			}
		} else {
			d.state = StateFallingEdge
		}

	case StateFallingEdge:
		elapsed := d.now().Sub(d.patternStart)
		if elapsed >= minPatternDuration && elapsed <= maxPatternDuration &&
			d.sustainedFrames >= minSustainedFrames {
			d.state = StateDetected
			return true
		}
		d.state = StateIdle

	case StateDetected:
		d.state = StateIdle
	}

	return false
}
