package resampler

import (
	"errors"
	"math"
	"testing"
)

func tone(freq float64, n, rate int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return x
}

func TestResampleLength(t *testing.T) {
	tests := []struct {
		from, to, n int
	}{
		{44100, 16000, 44100},
		{48000, 16000, 24000},
		{8000, 16000, 8000},
		{22050, 16000, 1000},
	}
	for _, tt := range tests {
		out, err := Resample(tone(200, tt.n, tt.from), tt.from, tt.to)
		if err != nil {
			t.Fatalf("Resample(%d->%d): %v", tt.from, tt.to, err)
		}
		if want := OutputLen(tt.n, tt.from, tt.to); len(out) != want {
			t.Errorf("%d->%d: got %d samples, want %d", tt.from, tt.to, len(out), want)
		}
	}
}

func TestResampleSameRateCopies(t *testing.T) {
	x := []float64{0.1, 0.2, 0.3}
	out, err := Resample(x, 16000, 16000)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	out[0] = 9
	if x[0] != 0.1 {
		t.Error("Resample aliased its input")
	}
}

func TestResampleInvalidRate(t *testing.T) {
	_, err := Resample([]float64{1}, 0, 16000)
	if !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("err = %v, want ErrInvalidRate", err)
	}
}

func TestResamplePreservesEnergy(t *testing.T) {
	x := tone(300, 48000, 48000)
	out, err := Resample(x, 48000, 16000)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	// Skip the edges and compare RMS of the steady-state middle.
	rms := func(v []float64) float64 {
		s := 0.0
		for _, f := range v {
			s += f * f
		}
		return math.Sqrt(s / float64(len(v)))
	}
	in := rms(x[len(x)/4 : 3*len(x)/4])
	got := rms(out[len(out)/4 : 3*len(out)/4])
	if math.Abs(got-in)/in > 0.1 {
		t.Errorf("rms %f after resampling, want ~%f", got, in)
	}
}
