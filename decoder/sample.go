// SPDX-License-Identifier: EPL-2.0

package decoder

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/utils"
)

// DefaultBufferSize is the chunk size in bytes used when Options leaves it 0.
const DefaultBufferSize = 8192

// maxStalls bounds how many empty EAgain chunks DecodeAll tolerates in a row.
const maxStalls = 16

// Flags report the state of the last decode call.
type Flags uint8

const (
	// EOF is set once the source has no more data.
	EOF Flags = 1 << iota
	// Error is set when the source failed; the sample may still be rewound.
	Error
	// EAgain is set when the source returned no data without finishing.
	EAgain
)

func (f Flags) Has(flag Flags) bool { return f&flag != 0 }

// Options select the chunk size and the output PCM layout. Zero values keep
// the layout of the source.
type Options struct {
	BufferSize int
	SampleRate int
	Channels   int
}

// Sample pulls S16LE chunks out of an audio.Source. The underlying input is
// kept so the stream can be rewound and seeked by decoding it again.
type Sample struct {
	rs     io.ReadSeeker
	dec    audio.Decoder
	opts   Options
	src    audio.Source
	closer io.Closer

	format audio.Format
	buf    []byte
	out    []byte
	fbuf   []float32
	flags  Flags
	closed bool
}

// New decodes rs with dec and converts the result to opts.
func New(rs io.ReadSeeker, dec audio.Decoder, opts Options) (*Sample, error) {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}

	s := &Sample{rs: rs, dec: dec, opts: opts}
	if err := s.open(); err != nil {
		return nil, err
	}
	if err := s.SetBufferSize(opts.BufferSize); err != nil {
		_ = s.src.Close()
		return nil, err
	}

	return s, nil
}

func (s *Sample) open() error {
	src, err := s.dec.Decode(s.rs)
	if err != nil {
		return fmt.Errorf("%w", err)
	}

	if s.opts.Channels > 0 && s.opts.Channels != src.Channels() {
		mixed, err := audio.NewChannelMixer(src, s.opts.Channels)
		if err != nil {
			_ = src.Close()
			return fmt.Errorf("%w", err)
		}
		src = mixed
	}
	if s.opts.SampleRate > 0 && s.opts.SampleRate != src.SampleRate() {
		src = audio.NewResampler(src, s.opts.SampleRate)
	}

	format := audio.S16(src.SampleRate(), src.Channels())
	if !format.Valid() {
		_ = src.Close()
		return fmt.Errorf("%w: %s", ErrInvalidSourceFmt, format)
	}

	s.src = src
	s.format = format
	s.flags = 0

	return nil
}

// Info is the PCM layout of the chunks produced by Decode.
func (s *Sample) Info() audio.Format { return s.format }

func (s *Sample) Flags() Flags { return s.flags }

// Buffer holds the bytes produced by the last Decode or DecodeAll call.
func (s *Sample) Buffer() []byte { return s.out }

func (s *Sample) BufferSize() int { return len(s.buf) }

// SetBufferSize changes the chunk size. It is rounded down to whole frames.
func (s *Sample) SetBufferSize(size int) error {
	frame := s.format.FrameSize()
	size -= size % frame
	if size < frame {
		return fmt.Errorf("%w: %d bytes", ErrInvalidBuffer, size)
	}

	s.buf = make([]byte, size)
	s.fbuf = make([]float32, size/2)
	s.out = s.buf[:0]

	return nil
}

// Duration is the total length, or -1 when the source cannot tell.
func (s *Sample) Duration() time.Duration {
	d, ok := s.src.(audio.Durationer)
	if !ok {
		return -1
	}

	length, err := d.Duration()
	if err != nil || length < 0 {
		return -1
	}

	return length
}

// Decode fills the buffer with the next chunk and returns its size in bytes.
// A short chunk sets EOF; 0 bytes with EOF means the stream is drained.
func (s *Sample) Decode() (int, error) {
	if s.closed {
		s.flags |= Error
		return 0, ErrClosed
	}
	if s.flags.Has(EOF) {
		s.out = s.buf[:0]
		return 0, nil
	}
	s.flags &^= EAgain

	n, err := s.fill(s.fbuf)
	bytes := utils.PutS16LE(s.buf, s.fbuf[:n])
	s.out = s.buf[:bytes]

	return bytes, err
}

// fill reads whole frames into dst until it is full or the source stops.
func (s *Sample) fill(dst []float32) (int, error) {
	total := 0
	for total < len(dst) {
		n, err := s.src.ReadSamples(dst[total:])
		total += n

		switch {
		case errors.Is(err, io.EOF):
			s.flags |= EOF
			return s.frameAligned(total), nil
		case err != nil:
			s.flags |= Error
			return s.frameAligned(total), fmt.Errorf("%w", err)
		case n == 0:
			s.flags |= EAgain
			return s.frameAligned(total), nil
		}
	}

	return total, nil
}

func (s *Sample) frameAligned(n int) int {
	return n - n%s.format.Channels
}

// DecodeAll decodes the rest of the stream into one buffer. The current
// buffer capacity is used as the first allocation.
func (s *Sample) DecodeAll() (int, error) {
	all := make([]byte, 0, len(s.buf))
	stalls := 0
	for !s.flags.Has(EOF) && stalls < maxStalls {
		n, err := s.Decode()
		all = append(all, s.buf[:n]...)
		if err != nil {
			s.out = all
			return len(all), err
		}
		if n == 0 {
			stalls++
		} else {
			stalls = 0
		}
	}
	s.out = all

	return len(all), nil
}

// Rewind restarts decoding from the first frame.
func (s *Sample) Rewind() error {
	if s.closed {
		return ErrClosed
	}
	if _, err := s.rs.Seek(0, io.SeekStart); err != nil {
		s.flags |= Error
		return fmt.Errorf("%w: %w", ErrNotSeekable, err)
	}

	_ = s.src.Close()
	if err := s.open(); err != nil {
		s.flags |= Error
		return err
	}
	s.out = s.buf[:0]

	return nil
}

// Seek positions the stream ms milliseconds from the start. Seeking past the
// end leaves the sample at EOF.
func (s *Sample) Seek(ms uint32) error {
	if err := s.Rewind(); err != nil {
		return err
	}

	skip := int(int64(ms)*int64(s.format.SampleRate)/1000) * s.format.Channels
	for skip > 0 && !s.flags.Has(EOF) {
		n, err := s.fill(s.fbuf[:min(skip, len(s.fbuf))])
		if err != nil {
			return err
		}
		if n == 0 && !s.flags.Has(EOF) {
			break
		}
		skip -= n
	}
	s.flags &^= EAgain

	return nil
}

func (s *Sample) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.src.Close()
	if s.closer != nil {
		err = errors.Join(err, s.closer.Close())
	}
	if err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}
