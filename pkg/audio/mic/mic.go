// Package mic captures clips from the default input device.
//
// Capture needs the PortAudio C library and is compiled in only with the
// "portaudio" build tag:
//
//	go build -tags portaudio ./cmd/voicegate
//
// Without the tag, Available is false and New returns ErrUnavailable.
package mic

import (
	"errors"
	"time"
)

// ErrUnavailable is returned when the binary was built without
// microphone support.
var ErrUnavailable = errors.New("mic: built without portaudio support")

// bufferDuration is the length of one device read.
const bufferDuration = 20 * time.Millisecond

func framesPerBuffer(rate int) int {
	return max(1, int(time.Duration(rate)*bufferDuration/time.Second))
}

// framesFor returns the number of frames covering d at rate.
func framesFor(d time.Duration, rate int) int {
	return int(time.Duration(rate) * d / time.Second)
}
