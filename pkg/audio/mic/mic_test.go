package mic

import (
	"errors"
	"testing"
	"time"
)

func TestFrames(t *testing.T) {
	if got := framesPerBuffer(16000); got != 320 {
		t.Errorf("framesPerBuffer(16000) = %d, want 320", got)
	}
	if got := framesPerBuffer(10); got != 1 {
		t.Errorf("framesPerBuffer(10) = %d, want 1", got)
	}
	if got := framesFor(1500*time.Millisecond, 16000); got != 24000 {
		t.Errorf("framesFor = %d, want 24000", got)
	}
}

func TestUnavailable(t *testing.T) {
	if Available {
		t.Skip("built with portaudio")
	}
	if _, err := New(16000, 1); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}
