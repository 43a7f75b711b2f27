// Package dsp computes short-time audio features used for wake-pattern
// and voice-activity detection.
package dsp

import "math"

// Features holds the per-frame signal features.
type Features struct {
	// Energy is the RMS amplitude of the frame, rescaled to the
	// original 16-bit sample range so thresholds are independent of
	// frame size.
	Energy float64

	// ZCR is the zero-crossing rate: the fraction of adjacent sample
	// pairs whose sign changes, in [0, 1]. Zero counts as non-negative.
	ZCR float64
}

// Extract computes the features of one PCM16 frame. It is a pure
// function: identical input always yields identical output.
func Extract(frame []int16) Features {
	return Features{
		Energy: Energy(frame),
		ZCR:    ZeroCrossingRate(frame),
	}
}

// Energy returns the RMS amplitude of the frame in 16-bit sample units.
// An empty frame has zero energy.
func Energy(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}

	var sum float64
	for _, s := range frame {
		normalized := float64(s) / 32768.0
		sum += normalized * normalized
	}
	return math.Sqrt(sum/float64(len(frame))) * 32768.0
}

// ZeroCrossingRate returns the fraction of sign changes between
// adjacent samples. Frames with one or fewer samples have a rate of 0.
func ZeroCrossingRate(frame []int16) float64 {
	if len(frame) <= 1 {
		return 0
	}

	crossings := 0
	for i := 1; i < len(frame); i++ {
		if (frame[i-1] >= 0 && frame[i] < 0) ||
			(frame[i-1] < 0 && frame[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(frame))
}
