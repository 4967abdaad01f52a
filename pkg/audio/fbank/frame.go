package fbank

// Frames slices x into frames of frameLen samples spaced hop apart.
//
// When center is true, x is zero-padded by frameLen/2 on both sides so that
// frame t is centered on sample t*hop, giving 1 + len(x)/hop frames. When
// center is false, only complete frames are returned, except that a signal
// shorter than one frame yields a single zero-padded frame.
//
// Returned frames share no memory with x.
func Frames(x []float64, frameLen, hop int, center bool) [][]float64 {
	if frameLen <= 0 || hop <= 0 || len(x) == 0 {
		return nil
	}
	src := x
	if center {
		pad := frameLen / 2
		src = make([]float64, len(x)+2*pad)
		copy(src[pad:], x)
	}

	var n int
	switch {
	case center:
		n = 1 + len(x)/hop
	case len(src) < frameLen:
		n = 1
	default:
		n = 1 + (len(src)-frameLen)/hop
	}

	frames := make([][]float64, n)
	for t := range n {
		frame := make([]float64, frameLen)
		start := t * hop
		if start < len(src) {
			copy(frame, src[start:min(start+frameLen, len(src))])
		}
		frames[t] = frame
	}
	return frames
}
