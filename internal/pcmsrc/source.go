// SPDX-License-Identifier: EPL-2.0

// Package pcmsrc adapts go-audio integer PCM decoders to audio.Source.
package pcmsrc

import (
	"fmt"
	"io"
	"time"

	goaudio "github.com/go-audio/audio"
)

// Reader is the subset of the go-audio wav and aiff decoders used here.
type Reader interface {
	Format() *goaudio.Format
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// Source yields float32 samples in [-1, 1] from an integer PCM Reader.
type Source struct {
	dec        Reader
	sampleRate int
	channels   int
	scale      float32
	offset     float32
	length     time.Duration
	intBuf     *goaudio.IntBuffer
}

// New wraps dec. Unsigned marks 8-bit data stored with a 128 bias.
// A negative length means the stream length is unknown.
func New(dec Reader, bitDepth int, unsigned bool, length time.Duration) *Source {
	format := dec.Format()
	s := &Source{
		dec:        dec,
		sampleRate: format.SampleRate,
		channels:   format.NumChannels,
		scale:      FullScale(bitDepth),
		length:     length,
	}
	if unsigned {
		s.offset = s.scale
	}

	return s
}

func (s *Source) SampleRate() int { return s.sampleRate }
func (s *Source) Channels() int   { return s.channels }
func (s *Source) Close() error    { return nil }

func (s *Source) BufSize() int {
	if s.intBuf != nil {
		return cap(s.intBuf.Data)
	}

	return 4096
}

// Duration reports the stream length, or -1 and ErrUnknownLength.
func (s *Source) Duration() (time.Duration, error) {
	if s.length < 0 {
		return -1, ErrUnknownLength
	}

	return s.length, nil
}

func (s *Source) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	if s.intBuf == nil || cap(s.intBuf.Data) < len(dst) {
		s.intBuf = &goaudio.IntBuffer{
			Data:   make([]int, len(dst)),
			Format: s.dec.Format(),
		}
	} else {
		s.intBuf.Data = s.intBuf.Data[:len(dst)]
	}

	n, err := s.dec.PCMBuffer(s.intBuf)
	if n == 0 {
		if err != nil && err != io.EOF {
			return 0, fmt.Errorf("%w", err)
		}
		return 0, io.EOF
	}

	for i := range n {
		dst[i] = (float32(s.intBuf.Data[i]) - s.offset) / s.scale
	}

	if n < len(dst) && err == nil {
		return n, io.EOF
	}

	return n, err
}

// FullScale is the magnitude of the most negative sample at bitDepth.
func FullScale(bitDepth int) float32 {
	switch bitDepth {
	case 8:
		return 128.0
	case 24:
		return 8388608.0
	case 32:
		return 2147483648.0
	default:
		return 32768.0
	}
}

// FrameDuration converts a frame count to a duration, or -1 if unknown.
func FrameDuration(frames int64, rate int) time.Duration {
	if frames < 0 || rate <= 0 {
		return -1
	}

	return time.Duration(frames * int64(time.Second) / int64(rate))
}
