// SPDX-License-Identifier: EPL-2.0

package sink

import (
	"io"
	"time"

	"github.com/ik5/audmix/formats/wav"
	"github.com/ik5/audmix/voice/soft"
)

// chunkFrames bounds the scratch buffer of WAV.Render.
const chunkFrames = 4096

// WAV renders the mix of a soft device into a 16-bit stereo WAV file. The
// device only advances when Render is called.
type WAV struct {
	dev    *soft.Device
	w      *wav.Writer
	buf    []float32
	closed bool
}

func NewWAV(w io.WriteSeeker, dev *soft.Device) (*WAV, error) {
	wr, err := wav.NewWriter(w, dev.SampleRate(), 2)
	if err != nil {
		return nil, err
	}

	return &WAV{dev: dev, w: wr}, nil
}

// Render mixes frames device frames and appends them to the file.
func (s *WAV) Render(frames int) error {
	if s.closed {
		return ErrClosed
	}
	if frames < 0 {
		return ErrInvalidFrames
	}
	if s.buf == nil {
		s.buf = make([]float32, 2*chunkFrames)
	}

	for frames > 0 {
		chunk := min(frames, chunkFrames)
		n := s.dev.Mix(s.buf[:2*chunk])
		if err := s.w.WriteFloat32(s.buf[:n]); err != nil {
			return err
		}
		frames -= chunk
	}

	return nil
}

// Frames is the number of frames written so far.
func (s *WAV) Frames() int { return s.w.Frames() }

// Duration is the length of the audio written so far.
func (s *WAV) Duration() time.Duration {
	return time.Duration(s.w.Frames()) * time.Second / time.Duration(s.dev.SampleRate())
}

// Close patches the WAV header. The underlying writer is left open.
func (s *WAV) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	return s.w.Close()
}
