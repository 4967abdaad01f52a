// Package wavfile reads and writes RIFF/WAVE PCM audio as voiceprint clips.
package wavfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/haivivi/voicegate/pkg/voiceprint"
)

// ErrInvalid is returned for input that is not a PCM WAV stream.
var ErrInvalid = errors.New("wavfile: invalid WAV data")

// Read decodes the WAV file at path.
func Read(path string) (voiceprint.Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return voiceprint.Clip{}, err
	}
	defer f.Close()
	clip, err := Decode(f)
	if err != nil {
		return voiceprint.Clip{}, fmt.Errorf("%s: %w", path, err)
	}
	return clip, nil
}

// Decode reads a whole WAV stream. Samples are scaled to [-1, 1) and keep
// the file's channel interleaving.
func Decode(r io.ReadSeeker) (voiceprint.Clip, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return voiceprint.Clip{}, ErrInvalid
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return voiceprint.Clip{}, fmt.Errorf("wavfile: read PCM: %w", err)
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 || buf.Format.NumChannels <= 0 {
		return voiceprint.Clip{}, ErrInvalid
	}

	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(dec.BitDepth)
	}
	if depth <= 0 || depth > 32 {
		return voiceprint.Clip{}, fmt.Errorf("%w: bit depth %d", ErrInvalid, depth)
	}
	scale := float64(int64(1) << (depth - 1))
	offset := 0.0
	if depth == 8 {
		// 8-bit WAV samples are unsigned.
		offset = scale
	}

	samples := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = (float64(v) - offset) / scale
	}
	return voiceprint.Clip{
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
		Samples:    samples,
	}, nil
}

// Write encodes clip as 16-bit PCM at path.
func Write(path string, clip voiceprint.Clip) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, clip); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Encode writes clip to w as 16-bit PCM. Samples outside [-1, 1] are
// clipped.
func Encode(w io.WriteSeeker, clip voiceprint.Clip) error {
	if clip.SampleRate <= 0 {
		return fmt.Errorf("wavfile: invalid sample rate %d", clip.SampleRate)
	}
	channels := max(clip.Channels, 1)
	data := make([]int, len(clip.Samples))
	for i, s := range clip.Samples {
		s = math.Max(-1, math.Min(1, s))
		data[i] = int(math.Round(s * math.MaxInt16))
	}
	enc := wav.NewEncoder(w, clip.SampleRate, 16, channels, 1)
	err := enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: clip.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	})
	if err != nil {
		enc.Close()
		return fmt.Errorf("wavfile: encode: %w", err)
	}
	return enc.Close()
}

// Bytes returns clip encoded as a 16-bit PCM WAV file in memory.
func Bytes(clip voiceprint.Clip) ([]byte, error) {
	var ws writeSeeker
	if err := Encode(&ws, clip); err != nil {
		return nil, err
	}
	return ws.buf, nil
}

// DecodeBytes decodes an in-memory WAV file.
func DecodeBytes(data []byte) (voiceprint.Clip, error) {
	return Decode(bytes.NewReader(data))
}

// writeSeeker is an in-memory io.WriteSeeker; the encoder seeks back to
// patch the RIFF and data chunk sizes.
type writeSeeker struct {
	buf []byte
	pos int
}

func (w *writeSeeker) Write(p []byte) (int, error) {
	if end := w.pos + len(p); end > len(w.buf) {
		w.buf = append(w.buf, make([]byte, end-len(w.buf))...)
	}
	n := copy(w.buf[w.pos:], p)
	w.pos += n
	return n, nil
}

func (w *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = int64(w.pos) + offset
	case io.SeekEnd:
		pos = int64(len(w.buf)) + offset
	default:
		return 0, fmt.Errorf("wavfile: invalid whence %d", whence)
	}
	if pos < 0 {
		return 0, errors.New("wavfile: negative position")
	}
	w.pos = int(pos)
	return pos, nil
}

// Sequence replays WAV files as successive captures. It serves the live
// enrollment and verification flows when no microphone is available.
type Sequence struct {
	mu    sync.Mutex
	paths []string
	next  int
}

// NewSequence returns a Sequence over paths, in order.
func NewSequence(paths ...string) *Sequence {
	return &Sequence{paths: paths}
}

// Capture returns the next file's clip. The requested duration is ignored;
// each file is returned whole. io.EOF is returned once every file has been
// consumed.
func (s *Sequence) Capture(ctx context.Context, _ time.Duration) (voiceprint.Clip, error) {
	if err := ctx.Err(); err != nil {
		return voiceprint.Clip{}, err
	}
	s.mu.Lock()
	if s.next >= len(s.paths) {
		s.mu.Unlock()
		return voiceprint.Clip{}, io.EOF
	}
	path := s.paths[s.next]
	s.next++
	s.mu.Unlock()
	return Read(path)
}

// Remaining reports how many files have not been captured yet.
func (s *Sequence) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths) - s.next
}
