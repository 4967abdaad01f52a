package voiceprint

import "math"

// biquad is one second-order section in transposed direct form II,
// normalized so that a0 == 1.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// dcGain returns the section's gain at 0 Hz.
func (q biquad) dcGain() float64 {
	den := 1 + q.a1 + q.a2
	if den == 0 {
		return 0
	}
	return (q.b0 + q.b1 + q.b2) / den
}

// cascade is a chain of second-order sections.
type cascade []biquad

// butterworthQ returns the pole-pair quality factors of an even-order
// Butterworth prototype.
func butterworthQ(order int) []float64 {
	qs := make([]float64, order/2)
	for k := range qs {
		theta := float64(2*k+1) * math.Pi / float64(2*order)
		qs[k] = 1 / (2 * math.Cos(theta))
	}
	return qs
}

func lowpass(fc, rate float64, q float64) biquad {
	w0 := 2 * math.Pi * fc / rate
	cos, alpha := math.Cos(w0), math.Sin(w0)/(2*q)
	a0 := 1 + alpha
	return biquad{
		b0: (1 - cos) / 2 / a0,
		b1: (1 - cos) / a0,
		b2: (1 - cos) / 2 / a0,
		a1: -2 * cos / a0,
		a2: (1 - alpha) / a0,
	}
}

func highpass(fc, rate float64, q float64) biquad {
	w0 := 2 * math.Pi * fc / rate
	cos, alpha := math.Cos(w0), math.Sin(w0)/(2*q)
	a0 := 1 + alpha
	return biquad{
		b0: (1 + cos) / 2 / a0,
		b1: -(1 + cos) / a0,
		b2: (1 + cos) / 2 / a0,
		a1: -2 * cos / a0,
		a2: (1 - alpha) / a0,
	}
}

// butterBandpass designs a Butterworth bandpass of the given per-edge order
// as a highpass cascade at low followed by a lowpass cascade at high.
func butterBandpass(order int, low, high, rate float64) cascade {
	var c cascade
	for _, q := range butterworthQ(order) {
		c = append(c, highpass(low, rate, q))
	}
	for _, q := range butterworthQ(order) {
		c = append(c, lowpass(high, rate, q))
	}
	return c
}

// filter runs x through the cascade. Each section starts in the steady
// state it would reach after an infinitely long input equal to x[0].
func (c cascade) filter(x []float64) []float64 {
	y := append([]float64(nil), x...)
	if len(y) == 0 {
		return y
	}
	in0 := y[0]
	for _, q := range c {
		out0 := in0 * q.dcGain()
		z1 := out0 - q.b0*in0
		z2 := q.b2*in0 - q.a2*out0
		for i, v := range y {
			out := q.b0*v + z1
			z1 = q.b1*v - q.a1*out + z2
			z2 = q.b2*v - q.a2*out
			y[i] = out
		}
		in0 = out0
	}
	return y
}

// filtfilt applies the cascade forward then backward, cancelling phase
// distortion. Edges are extended by odd reflection to suppress startup
// transients.
func (c cascade) filtfilt(x []float64) []float64 {
	n := len(x)
	if n == 0 || len(c) == 0 {
		return append([]float64(nil), x...)
	}
	pad := min(3*(2*len(c)+1), n-1)

	ext := make([]float64, n+2*pad)
	for i := range pad {
		ext[i] = 2*x[0] - x[pad-i]
		ext[pad+n+i] = 2*x[n-1] - x[n-2-i]
	}
	copy(ext[pad:], x)

	y := c.filter(ext)
	reverse(y)
	y = c.filter(y)
	reverse(y)
	return y[pad : pad+n]
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
