package dsp

// DefaultHistorySize is the number of recent frames tracked for the
// rolling baseline, about one second of audio at 32ms frames.
const DefaultHistorySize = 32

// History is a fixed-capacity ring buffer of recent frame features.
// Slots are overwritten in place; the buffer is never reallocated after
// construction, keeping the sampling loop allocation-free.
type History struct {
	samples []Features
	index   int
}

// NewHistory creates a history with the given capacity. A size of zero
// or less uses DefaultHistorySize.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{samples: make([]Features, size)}
}

// Push records a frame's features, overwriting the oldest slot.
func (h *History) Push(f Features) {
	h.samples[h.index] = f
	h.index = (h.index + 1) % len(h.samples)
}

// AverageEnergy returns the mean energy over the whole buffer.
// Unwritten slots count as zero, matching a cold-start baseline.
func (h *History) AverageEnergy() float64 {
	var sum float64
	for _, s := range h.samples {
		sum += s.Energy
	}
	return sum / float64(len(h.samples))
}

// AverageZCR returns the mean zero-crossing rate over the buffer.
func (h *History) AverageZCR() float64 {
	var sum float64
	for _, s := range h.samples {
		sum += s.ZCR
	}
	return sum / float64(len(h.samples))
}

// Reset zeroes all slots.
func (h *History) Reset() {
	for i := range h.samples {
		h.samples[i] = Features{}
	}
	h.index = 0
}

// Size returns the buffer capacity.
func (h *History) Size() int {
	return len(h.samples)
}
