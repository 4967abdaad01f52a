package fbank

import "math"

// topDB is the dynamic range kept by PowerToDB, matching librosa.
const topDB = 80.0

// PowerToDB converts mel energies to decibels in place, clipping every value
// to within topDB of the loudest value across all frames.
func PowerToDB(mel [][]float64) {
	peak := math.Inf(-1)
	for _, row := range mel {
		for i, v := range row {
			db := 10 * math.Log10(max(v, 1e-10))
			row[i] = db
			peak = max(peak, db)
		}
	}
	floor := peak - topDB
	for _, row := range mel {
		for i, v := range row {
			row[i] = max(v, floor)
		}
	}
}

// DCT is an orthonormal DCT-II projecting numIn values onto numOut
// cepstral coefficients.
type DCT struct {
	basis [][]float64
}

// NewDCT precomputes the orthonormal DCT-II basis.
func NewDCT(numIn, numOut int) *DCT {
	basis := make([][]float64, numOut)
	n := float64(numIn)
	for k := range numOut {
		scale := math.Sqrt(2 / n)
		if k == 0 {
			scale = math.Sqrt(1 / n)
		}
		row := make([]float64, numIn)
		for i := range numIn {
			row[i] = scale * math.Cos(math.Pi*float64(k)*(2*float64(i)+1)/(2*n))
		}
		basis[k] = row
	}
	return &DCT{basis: basis}
}

// Transform projects x onto the basis.
func (d *DCT) Transform(x []float64) []float64 {
	out := make([]float64, len(d.basis))
	for k, row := range d.basis {
		sum := 0.0
		for i, b := range row {
			if i < len(x) {
				sum += b * x[i]
			}
		}
		out[k] = sum
	}
	return out
}

// MFCC computes cepstral coefficients from a power spectrogram:
// mel filterbank, decibel scaling with an 80 dB floor, orthonormal DCT-II.
// Returns [T][numCoeffs].
func MFCC(power [][]float64, bank [][]float64, numCoeffs int) [][]float64 {
	mel := make([][]float64, len(power))
	for t, row := range power {
		mel[t] = ApplyFilterBank(row, bank)
	}
	PowerToDB(mel)
	dct := NewDCT(len(bank), numCoeffs)
	out := make([][]float64, len(mel))
	for t, row := range mel {
		out[t] = dct.Transform(row)
	}
	return out
}

// Deltas computes regression deltas over ±width frames for each
// coefficient track. Frames beyond the edges repeat the edge frame.
func Deltas(frames [][]float64, width int) [][]float64 {
	if len(frames) == 0 || width <= 0 {
		return nil
	}
	denom := 0.0
	for n := 1; n <= width; n++ {
		denom += 2 * float64(n*n)
	}
	last := len(frames) - 1
	out := make([][]float64, len(frames))
	for t := range frames {
		d := make([]float64, len(frames[t]))
		for n := 1; n <= width; n++ {
			next := frames[min(t+n, last)]
			prev := frames[max(t-n, 0)]
			for i := range d {
				d[i] += float64(n) * (next[i] - prev[i])
			}
		}
		for i := range d {
			d[i] /= denom
		}
		out[t] = d
	}
	return out
}
