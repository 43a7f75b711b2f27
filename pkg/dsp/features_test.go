package dsp

import (
	"math"
	"testing"
)

func constantFrame(value int16, n int) []int16 {
	frame := make([]int16, n)
	for i := range frame {
		frame[i] = value
	}
	return frame
}

func alternatingFrame(amplitude int16, n int) []int16 {
	frame := make([]int16, n)
	for i := range frame {
		if i%2 == 0 {
			frame[i] = amplitude
		} else {
			frame[i] = -amplitude
		}
	}
	return frame
}

func sineFrame(freq float64, sampleRate, n int, amplitude float64) []int16 {
	frame := make([]int16, n)
	for i := range frame {
		t := float64(i) / float64(sampleRate)
		frame[i] = int16(amplitude * math.Sin(2*math.Pi*freq*t))
	}
	return frame
}

func TestEnergy_Silence(t *testing.T) {
	for _, n := range []int{1, 16, 512, 4096} {
		if got := Energy(make([]int16, n)); got != 0 {
			t.Errorf("Energy(silence, n=%d) = %v, want 0", n, got)
		}
	}
}

func TestEnergy_EmptyFrame(t *testing.T) {
	if got := Energy(nil); got != 0 {
		t.Errorf("Energy(nil) = %v, want 0", got)
	}
	if got := Energy([]int16{}); got != 0 {
		t.Errorf("Energy(empty) = %v, want 0", got)
	}
}

func TestEnergy_ConstantSignal(t *testing.T) {
	// RMS of a constant signal equals its absolute value, regardless
	// of frame length.
	for _, n := range []int{8, 128, 512, 2048} {
		for _, v := range []int16{16384, 32767, -16384, 100} {
			got := Energy(constantFrame(v, n))
			want := math.Abs(float64(v))
			if math.Abs(got-want) > 1.0 {
				t.Errorf("Energy(const %d, n=%d) = %v, want %v", v, n, got, want)
			}
		}
	}
}

func TestEnergy_SineWave(t *testing.T) {
	frame := sineFrame(440, 16000, 512, 16000)
	got := Energy(frame)
	want := 16000.0 / math.Sqrt2
	if math.Abs(got-want) > 1000 {
		t.Errorf("Energy(sine 440Hz) = %v, want ~%v", got, want)
	}
}

func TestEnergy_FrameSizeIndependent(t *testing.T) {
	short := Energy(constantFrame(8000, 64))
	long := Energy(constantFrame(8000, 4096))
	if math.Abs(short-long) > 1.0 {
		t.Errorf("energy varies with frame size: %v vs %v", short, long)
	}
}

func TestZCR_Bounds(t *testing.T) {
	frames := [][]int16{
		make([]int16, 512),
		constantFrame(1000, 512),
		alternatingFrame(1000, 512),
		sineFrame(1000, 16000, 512, 10000),
	}
	for i, frame := range frames {
		zcr := ZeroCrossingRate(frame)
		if zcr < 0 || zcr > 1 {
			t.Errorf("frame %d: ZCR = %v, out of [0,1]", i, zcr)
		}
	}
}

func TestZCR_Alternating(t *testing.T) {
	// A strictly alternating frame crosses zero between every pair.
	for _, n := range []int{2, 64, 512} {
		got := ZeroCrossingRate(alternatingFrame(1000, n))
		want := float64(n-1) / float64(n)
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("ZCR(alternating, n=%d) = %v, want %v", n, got, want)
		}
	}
}

func TestZCR_DegenerateFrames(t *testing.T) {
	if got := ZeroCrossingRate(nil); got != 0 {
		t.Errorf("ZCR(nil) = %v, want 0", got)
	}
	if got := ZeroCrossingRate([]int16{1000}); got != 0 {
		t.Errorf("ZCR(single sample) = %v, want 0", got)
	}
}

func TestZCR_NoCrossings(t *testing.T) {
	if got := ZeroCrossingRate(constantFrame(1000, 512)); got != 0 {
		t.Errorf("ZCR(all positive) = %v, want 0", got)
	}
	// Zero counts as non-negative, so an all-zero frame never crosses.
	if got := ZeroCrossingRate(make([]int16, 512)); got != 0 {
		t.Errorf("ZCR(all zero) = %v, want 0", got)
	}
}

func TestZCR_SineWave(t *testing.T) {
	// A sine at f Hz crosses zero roughly 2f times per second.
	tests := []struct {
		freq float64
		want float64
	}{
		{440, 2 * 440 / 16000.0},
		{1000, 2 * 1000 / 16000.0},
	}
	for _, tt := range tests {
		got := ZeroCrossingRate(sineFrame(tt.freq, 16000, 512, 10000))
		if math.Abs(got-tt.want) > 0.02 {
			t.Errorf("ZCR(sine %vHz) = %v, want ~%v", tt.freq, got, tt.want)
		}
	}
}

func TestExtract_Deterministic(t *testing.T) {
	frame := sineFrame(150, 16000, 512, 8000)

	first := Extract(frame)
	for i := 0; i < 10; i++ {
		if got := Extract(frame); got != first {
			t.Fatalf("Extract not deterministic: run %d got %+v, want %+v", i, got, first)
		}
	}
}
