package voiceprint

import (
	"math"
	"testing"
)

func sine(freq float64, n int, rate float64) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Sin(2 * math.Pi * freq * float64(i) / rate)
	}
	return x
}

func TestButterworthQ(t *testing.T) {
	qs := butterworthQ(4)
	want := []float64{0.5412, 1.3066}
	for i, q := range qs {
		if math.Abs(q-want[i]) > 1e-3 {
			t.Errorf("Q[%d] = %f, want %f", i, q, want[i])
		}
	}
}

func TestBandpassResponse(t *testing.T) {
	c := butterBandpass(4, 80, 7600, 16000)
	tests := []struct {
		freq    float64
		minGain float64
		maxGain float64
	}{
		{20, 0, 0.05},
		{1000, 0.95, 1.05},
		{3000, 0.95, 1.05},
		{7950, 0, 0.5},
	}
	for _, tt := range tests {
		x := sine(tt.freq, 16000, 16000)
		y := c.filtfilt(x)
		mid := func(v []float64) float64 { return rmsOf(v[4000:12000]) }
		gain := mid(y) / mid(x)
		if gain < tt.minGain || gain > tt.maxGain {
			t.Errorf("%g Hz: gain %f, want [%f, %f]", tt.freq, gain, tt.minGain, tt.maxGain)
		}
	}
}

func TestFiltfiltZeroPhase(t *testing.T) {
	c := butterBandpass(4, 80, 7600, 16000)
	x := sine(500, 8000, 16000)
	y := c.filtfilt(x)
	// Zero phase: the in-band output tracks the input sample by sample.
	for i := 2000; i < 6000; i++ {
		if math.Abs(y[i]-x[i]) > 0.02 {
			t.Fatalf("sample %d: got %f, want %f", i, y[i], x[i])
		}
	}
}

func TestFiltfiltShort(t *testing.T) {
	c := butterBandpass(4, 80, 7600, 16000)
	for _, n := range []int{0, 1, 2, 5} {
		if got := c.filtfilt(make([]float64, n)); len(got) != n {
			t.Errorf("len %d: got %d samples", n, len(got))
		}
	}
}

func rmsOf(x []float64) float64 {
	s := 0.0
	for _, v := range x {
		s += v * v
	}
	return math.Sqrt(s / float64(len(x)))
}

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{25, 1.75},
		{50, 2.5},
		{70, 3.1},
		{100, 4},
	}
	for _, tt := range tests {
		if got := percentile(sorted, tt.p); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("percentile(%g) = %g, want %g", tt.p, got, tt.want)
		}
	}
	if percentile(nil, 50) != 0 {
		t.Error("percentile of empty should be 0")
	}
}
