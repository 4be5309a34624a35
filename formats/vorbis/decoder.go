// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"fmt"
	"io"
	"time"

	"github.com/jfreymuth/oggvorbis"

	"github.com/ik5/audmix/audio"
)

// oggReader is the subset of oggvorbis.Reader used by source.
type oggReader interface {
	SampleRate() int
	Channels() int
	Length() int64
	Read([]float32) (int, error)
}

type source struct {
	dec        oggReader
	sampleRate int
	channels   int
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return 4096 }

// Duration needs a seekable input; oggvorbis reports 0 frames otherwise.
func (s *source) Duration() (time.Duration, error) {
	frames := s.dec.Length()
	if frames <= 0 {
		return -1, ErrUnknownLength
	}

	return time.Duration(frames * int64(time.Second) / int64(s.sampleRate)), nil
}

// ReadSamples fills dst with whole frames. oggvorbis counts interleaved
// values, not frames.
func (s *source) ReadSamples(dst []float32) (int, error) {
	want := len(dst) - len(dst)%s.channels
	if want == 0 {
		return 0, nil
	}

	total := 0
	for total < want {
		n, err := s.dec.Read(dst[total:want])
		total += n
		if err != nil {
			if err == io.EOF {
				return total, io.EOF
			}
			return total, fmt.Errorf("%w", err)
		}
		if n == 0 {
			break
		}
	}

	return total, nil
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotVorbisFile, err)
	}
	if dec.Channels() <= 0 || dec.SampleRate() <= 0 {
		return nil, ErrNotVorbisFile
	}

	return &source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		channels:   dec.Channels(),
	}, nil
}
