// SPDX-License-Identifier: EPL-2.0

package midi

import (
	"fmt"
	"io"
	"time"

	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/ik5/audmix/audio"
)

// DefaultSampleRate is used when Decoder.SampleRate is zero.
const DefaultSampleRate = 44100

// renderer is the subset of meltysynth.MidiFileSequencer used by source.
type renderer interface {
	Render(left, right []float32)
}

type source struct {
	seq        renderer
	sampleRate int
	total      int64
	pos        int64
	left       []float32
	right      []float32
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return 2 }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return 2 * cap(s.left) }

func (s *source) Duration() (time.Duration, error) {
	return time.Duration(s.total * int64(time.Second) / int64(s.sampleRate)), nil
}

// ReadSamples renders interleaved stereo until the song length is reached.
func (s *source) ReadSamples(dst []float32) (int, error) {
	remaining := s.total - s.pos
	if remaining <= 0 {
		return 0, io.EOF
	}

	frames := int(min(int64(len(dst)/2), remaining))
	if frames == 0 {
		return 0, nil
	}

	if cap(s.left) < frames {
		s.left = make([]float32, frames)
		s.right = make([]float32, frames)
	}
	left, right := s.left[:frames], s.right[:frames]
	if err := safeRender(s.seq, left, right); err != nil {
		return 0, err
	}

	for i := range frames {
		dst[2*i] = left[i]
		dst[2*i+1] = right[i]
	}
	s.pos += int64(frames)

	if s.pos >= s.total {
		return 2 * frames, io.EOF
	}

	return 2 * frames, nil
}

// safeRender turns a synthesizer panic into ErrRender.
func safeRender(r renderer, left, right []float32) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrRender, p)
		}
	}()
	r.Render(left, right)

	return nil
}

// Decoder renders Standard MIDI Files through a SoundFont synthesizer.
type Decoder struct {
	SoundFont  *meltysynth.SoundFont
	SampleRate int
}

// NewDecoder loads a SoundFont 2 bank from sf.
func NewDecoder(sf io.Reader, sampleRate int) (*Decoder, error) {
	bank, err := meltysynth.NewSoundFont(sf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSoundFont, err)
	}

	return &Decoder{SoundFont: bank, SampleRate: sampleRate}, nil
}

func (d *Decoder) Decode(r io.Reader) (audio.Source, error) {
	if d.SoundFont == nil {
		return nil, ErrNoSoundFont
	}

	rate := d.SampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}

	song, err := meltysynth.NewMidiFile(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotMidiFile, err)
	}

	synth, err := meltysynth.NewSynthesizer(d.SoundFont, meltysynth.NewSynthesizerSettings(int32(rate)))
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	seq := meltysynth.NewMidiFileSequencer(synth)
	seq.Play(song, false)

	return &source{
		seq:        seq,
		sampleRate: rate,
		total:      int64(song.GetLength()) * int64(rate) / int64(time.Second),
	}, nil
}
