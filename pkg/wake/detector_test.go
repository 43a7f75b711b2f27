package wake

import (
	"sync"
	"testing"
	"time"

	"github.com/mkarlsen/hearth/pkg/dsp"
)

// fakeClock is a deterministic clock that advances a fixed amount on
// every read, so envelope timing does not depend on wall time.
type fakeClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func newFakeClock(step time.Duration) *fakeClock {
	return &fakeClock{t: time.Unix(0, 0), step: step}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}

// newTestDetector returns a detector whose effective threshold is 500
// (base 750 at default sensitivity) with a deterministic clock.
func newTestDetector(step time.Duration) *Detector {
	d := NewDetector(750)
	d.now = newFakeClock(step).Now
	return d
}

func voiced(energy float64) dsp.Features {
	return dsp.Features{Energy: energy, ZCR: 0.06}
}

func TestDetector_StartsIdle(t *testing.T) {
	d := newTestDetector(50 * time.Millisecond)
	if d.State() != StateIdle {
		t.Errorf("initial state = %v, want idle", d.State())
	}
	if d.Threshold() != 500 {
		t.Errorf("effective threshold = %v, want 500", d.Threshold())
	}
}

func TestDetector_NoTriggerOnSilence(t *testing.T) {
	d := newTestDetector(50 * time.Millisecond)

	for i := 0; i < 20; i++ {
		if d.Step(dsp.Features{}, 100) {
			t.Fatalf("frame %d: detected on silence", i)
		}
	}
	if d.State() != StateIdle {
		t.Errorf("state = %v, want idle", d.State())
	}
}

func TestDetector_OnsetEntersRisingEdge(t *testing.T) {
	d := newTestDetector(50 * time.Millisecond)

	// Below threshold: stays idle.
	d.Step(voiced(100), 100)
	if d.State() != StateIdle {
		t.Fatalf("state = %v, want idle", d.State())
	}

	// Sudden spike well above both threshold and baseline.
	d.Step(voiced(2000), 100)
	if d.State() != StateRisingEdge {
		t.Errorf("state = %v, want rising_edge", d.State())
	}
}

func TestDetector_OnsetRequiresBaselineContrast(t *testing.T) {
	d := newTestDetector(50 * time.Millisecond)

	// Loud in absolute terms but not against a loud room.
	d.Step(voiced(600), 500)
	if d.State() != StateIdle {
		t.Errorf("state = %v, want idle (no baseline contrast)", d.State())
	}
}

func TestDetector_FullDetectionSequence(t *testing.T) {
	// The clock is read once on onset, once per sustained frame, and
	// once at validation; 150ms per read puts the envelope at 450ms,
	// inside the 300-1200ms acceptance window.
	d := newTestDetector(150 * time.Millisecond)

	type step struct {
		f   dsp.Features
		avg float64
	}
	frames := []step{
		// Idle room.
		{dsp.Features{Energy: 100, ZCR: 0.01}, 150},
		{dsp.Features{Energy: 100, ZCR: 0.01}, 150},
		{dsp.Features{Energy: 100, ZCR: 0.01}, 150},
		{dsp.Features{Energy: 100, ZCR: 0.01}, 150},
		{dsp.Features{Energy: 100, ZCR: 0.01}, 150},
		// Onset.
		{voiced(1000), 200},
		{voiced(900), 200},
		{voiced(850), 200},
		{voiced(800), 200},
		// Sustained.
		{voiced(700), 200},
		{voiced(600), 200},
		// Decay.
		{dsp.Features{Energy: 100, ZCR: 0.05}, 200},
		// Validation frame.
		{dsp.Features{Energy: 50, ZCR: 0.02}, 200},
	}

	var detections []int
	for i, s := range frames {
		if d.Step(s.f, s.avg) {
			detections = append(detections, i)
		}
	}

	if len(detections) != 1 {
		t.Fatalf("got %d detections (%v), want exactly 1", len(detections), detections)
	}
	if detections[0] != len(frames)-1 {
		t.Errorf("detected on frame %d, want final frame %d", detections[0], len(frames)-1)
	}
	if d.State() != StateDetected {
		t.Errorf("state = %v, want detected", d.State())
	}

	// Detected resets to idle on the next frame.
	d.Step(dsp.Features{}, 200)
	if d.State() != StateIdle {
		t.Errorf("state after detection = %v, want idle", d.State())
	}
}

func TestDetector_ResetsOnFastDrop(t *testing.T) {
	d := newTestDetector(50 * time.Millisecond)

	d.Step(voiced(1000), 200) // rising edge
	d.Step(voiced(100), 200)  // drops below 0.3x threshold

	if d.State() != StateIdle {
		t.Errorf("state = %v, want idle after fast drop", d.State())
	}
}

func TestDetector_RejectsHighZCRNoise(t *testing.T) {
	d := newTestDetector(50 * time.Millisecond)

	// Noisy environment: moderate energy, high ZCR throughout.
	for i := 0; i < 50; i++ {
		if d.Step(dsp.Features{Energy: 600, ZCR: 0.4}, 500) {
			t.Fatalf("frame %d: detected on noise", i)
		}
	}
}

func TestDetector_RejectsTooShortEnvelope(t *testing.T) {
	// 20ms per clock read: the envelope completes well under the
	// 300ms minimum.
	d := newTestDetector(20 * time.Millisecond)

	d.Step(voiced(1000), 200)
	d.Step(voiced(900), 200)
	d.Step(voiced(850), 200)
	d.Step(voiced(800), 200)
	d.Step(voiced(700), 200)
	d.Step(voiced(600), 200)
	d.Step(dsp.Features{Energy: 100}, 200) // falling edge
	if d.Step(dsp.Features{Energy: 50}, 200) {
		t.Error("detected an envelope shorter than the minimum duration")
	}
	if d.State() != StateIdle {
		t.Errorf("state = %v, want idle", d.State())
	}
}

func TestDetector_RejectsTooFewSustainedFrames(t *testing.T) {
	// 300ms per clock read keeps the envelope duration valid, so the
	// rejection below is due to the sustained-frame minimum alone.
	d := newTestDetector(300 * time.Millisecond)

	d.Step(voiced(1000), 200)
	d.Step(voiced(900), 200)
	d.Step(voiced(850), 200)
	d.Step(voiced(800), 200) // sustained, 3 frames
	d.Step(dsp.Features{Energy: 100}, 200)
	if d.Step(dsp.Features{Energy: 50}, 200) {
		t.Error("detected with too few sustained frames")
	}
	if d.State() != StateIdle {
		t.Errorf("state = %v, want idle", d.State())
	}
}

func TestDetector_SustainTimeout(t *testing.T) {
	// 400ms per clock read: the sustain phase blows past 1500ms.
	d := newTestDetector(400 * time.Millisecond)

	detected := false
	step := func(f dsp.Features) {
		if d.Step(f, 200) {
			detected = true
		}
	}

	step(voiced(1000))
	step(voiced(900))
	step(voiced(850))
	step(voiced(800))
	// Each sustained step advances the clock 400ms.
	for i := 0; i < 5; i++ {
		step(voiced(700))
	}
	// A loud frame right after the reset may legitimately start a new
	// pattern; a quiet frame settles the detector back to idle.
	step(dsp.Features{Energy: 50, ZCR: 0.02})

	if detected {
		t.Error("detected a pattern that exceeded the sustain timeout")
	}
	if d.State() != StateIdle {
		t.Errorf("state = %v, want idle after sustain timeout", d.State())
	}
}

func TestDetector_FramePacedReplay(t *testing.T) {
	// Offline replay advances a simulated clock by one 50ms frame per
	// step instead of reading wall time. The full envelope spans seven
	// frames (350ms), inside the acceptance window.
	d := NewDetector(750)
	clock := time.Unix(0, 0)
	d.SetClock(func() time.Time { return clock })

	type step struct {
		f   dsp.Features
		avg float64
	}
	frames := []step{
		{dsp.Features{Energy: 100, ZCR: 0.01}, 150},
		{dsp.Features{Energy: 100, ZCR: 0.01}, 150},
		{dsp.Features{Energy: 100, ZCR: 0.01}, 150},
		{dsp.Features{Energy: 100, ZCR: 0.01}, 150},
		{dsp.Features{Energy: 100, ZCR: 0.01}, 150},
		{voiced(1000), 200},
		{voiced(900), 200},
		{voiced(850), 200},
		{voiced(800), 200},
		{voiced(700), 200},
		{voiced(600), 200},
		{dsp.Features{Energy: 100, ZCR: 0.05}, 200},
		{dsp.Features{Energy: 50, ZCR: 0.02}, 200},
	}

	detections := 0
	for _, s := range frames {
		clock = clock.Add(50 * time.Millisecond)
		if d.Step(s.f, s.avg) {
			detections++
		}
	}

	if detections != 1 {
		t.Errorf("got %d detections in frame-paced replay, want 1", detections)
	}
}

func TestDetector_Deterministic(t *testing.T) {
	run := func() ([]bool, PatternState) {
		d := newTestDetector(150 * time.Millisecond)
		inputs := []struct {
			f   dsp.Features
			avg float64
		}{
			{voiced(1000), 200},
			{voiced(900), 200},
			{voiced(850), 200},
			{voiced(800), 200},
			{voiced(700), 200},
			{voiced(600), 200},
			{dsp.Features{Energy: 100}, 200},
			{dsp.Features{Energy: 50}, 200},
			{dsp.Features{Energy: 50}, 200},
		}
		var outs []bool
		for _, in := range inputs {
			outs = append(outs, d.Step(in.f, in.avg))
		}
		return outs, d.State()
	}

	outs1, state1 := run()
	outs2, state2 := run()

	if state1 != state2 {
		t.Errorf("final states differ: %v vs %v", state1, state2)
	}
	for i := range outs1 {
		if outs1[i] != outs2[i] {
			t.Errorf("output %d differs: %v vs %v", i, outs1[i], outs2[i])
		}
	}
}

func TestDetector_SensitivityScaling(t *testing.T) {
	tests := []struct {
		sensitivity float64
		want        float64
	}{
		{1.0, 800}, // divisor 1
		{0.5, 800 / 1.5},
		{0.0, 400}, // divisor 2
		{-3, 400},  // clamped to 0
		{2.5, 800}, // clamped to 1
	}

	for _, tt := range tests {
		d := NewDetector(800)
		d.SetSensitivity(tt.sensitivity)
		if got := d.Threshold(); got != tt.want {
			t.Errorf("sensitivity %v: threshold = %v, want %v", tt.sensitivity, got, tt.want)
		}
	}
}

func TestDetector_SensitivityLiveUpdate(t *testing.T) {
	d := newTestDetector(50 * time.Millisecond)

	// Mid-pattern sensitivity change must not disturb state.
	d.Step(voiced(1000), 200)
	if d.State() != StateRisingEdge {
		t.Fatalf("state = %v, want rising_edge", d.State())
	}

	d.SetSensitivity(0.9)
	if d.State() != StateRisingEdge {
		t.Errorf("state after SetSensitivity = %v, want rising_edge", d.State())
	}
}
