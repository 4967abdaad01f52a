package fbank

import "math"

// hannWindow generates a periodic Hann window of the given length.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// hammingWindow generates a Hamming window of the given length.
func hammingWindow(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// hzToMel converts frequency in Hz to mel scale.
func hzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// melToHz converts mel scale frequency back to Hz.
func melToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// MelFilterBank creates triangular mel filters spanning [lowFreq, highFreq].
// Returns [numMels][fftSize/2+1]. Filters are interpolated on continuous
// frequency so that narrow low-frequency filters never collapse to zero.
func MelFilterBank(numMels, fftSize, sampleRate int, lowFreq, highFreq float64) [][]float64 {
	halfFFT := fftSize/2 + 1
	highFreq = min(highFreq, float64(sampleRate)/2)
	lowMel := hzToMel(lowFreq)
	highMel := hzToMel(highFreq)

	// numMels + 2 equally spaced mel points
	edges := make([]float64, numMels+2)
	step := (highMel - lowMel) / float64(numMels+1)
	for i := range edges {
		edges[i] = melToHz(lowMel + float64(i)*step)
	}

	binHz := float64(sampleRate) / float64(fftSize)
	bank := make([][]float64, numMels)
	for m := range numMels {
		left, center, right := edges[m], edges[m+1], edges[m+2]
		filter := make([]float64, halfFFT)
		for k := range halfFFT {
			f := float64(k) * binHz
			switch {
			case f > left && f <= center:
				filter[k] = (f - left) / (center - left)
			case f > center && f < right:
				filter[k] = (right - f) / (right - center)
			}
		}
		// Keep at least the nearest bin so every band carries energy.
		if isZero(filter) {
			k := min(int(math.Round(center/binHz)), halfFFT-1)
			filter[k] = 1
		}
		bank[m] = filter
	}
	return bank
}

func isZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
