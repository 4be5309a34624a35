// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
	"time"

	"github.com/ik5/audmix/utils"
)

// Resampler streams from src to a target sample rate using cubic interpolation.
// Works on interleaved samples and preserves the channel count. A one-pole
// low-pass runs on the input when downsampling.
type Resampler struct {
	src      Source
	dstRate  int
	ratio    float64 // source frames consumed per output frame
	channels int

	// frames[0] = t-1, frames[1] = t0, frames[2] = t+1, frames[3] = t+2
	frames   [4][]float32
	hasFrame [4]bool
	primed   bool

	pos    float64
	srcBuf []float32
	eof    bool

	useFilter   bool
	filterAlpha float32
	filterState []float32
}

func NewResampler(src Source, dstRate int) *Resampler {
	channels := src.Channels()
	ratio := float64(src.SampleRate()) / float64(dstRate)

	r := &Resampler{
		src:         src,
		dstRate:     dstRate,
		ratio:       ratio,
		channels:    channels,
		srcBuf:      make([]float32, channels),
		useFilter:   ratio > 1.0,
		filterAlpha: 0.5,
		filterState: make([]float32, channels),
	}

	for i := range r.frames {
		r.frames[i] = make([]float32, channels)
	}

	return r
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

// Duration forwards the length of the underlying source, which resampling
// does not change.
func (r *Resampler) Duration() (time.Duration, error) {
	d, ok := r.src.(Durationer)
	if !ok {
		return -1, nil
	}

	return d.Duration()
}

func (r *Resampler) Close() error {
	err := r.src.Close()
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// readFrame pulls one source frame into frames[slot].
func (r *Resampler) readFrame(slot int) error {
	n, err := r.src.ReadSamples(r.srcBuf)
	r.hasFrame[slot] = n > 0
	if n > 0 {
		copy(r.frames[slot], r.srcBuf[:n])
		if r.useFilter {
			if !r.primed && slot == 0 {
				copy(r.filterState, r.frames[slot])
			}
			for c := range r.channels {
				r.frames[slot][c] = r.filterAlpha*r.frames[slot][c] + (1-r.filterAlpha)*r.filterState[c]
				r.filterState[c] = r.frames[slot][c]
			}
		}
	}

	if err == io.EOF {
		r.eof = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

func (r *Resampler) prime() error {
	for i := range r.frames {
		if r.eof {
			// duplicate the last real frame into the remaining slots
			if i > 0 {
				copy(r.frames[i], r.frames[i-1])
				r.hasFrame[i] = r.hasFrame[i-1]
			}
			continue
		}
		if err := r.readFrame(i); err != nil {
			return err
		}
		if !r.hasFrame[i] && i > 0 {
			copy(r.frames[i], r.frames[i-1])
			r.hasFrame[i] = r.hasFrame[i-1]
		}
	}
	r.primed = true

	return nil
}

// advance shifts the window by one source frame.
func (r *Resampler) advance() error {
	copy(r.frames[0], r.frames[1])
	copy(r.frames[1], r.frames[2])
	copy(r.frames[2], r.frames[3])
	r.hasFrame[0] = r.hasFrame[1]
	r.hasFrame[1] = r.hasFrame[2]
	r.hasFrame[2] = r.hasFrame[3]

	if r.eof {
		r.hasFrame[3] = false
		if !r.hasFrame[2] {
			return io.EOF
		}
		return nil
	}

	return r.readFrame(3)
}

// ReadSamples produces dst samples at the target rate.
// dst length should be a multiple of the channel count.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	if !r.primed {
		if err := r.prime(); err != nil {
			return 0, err
		}
		if !r.hasFrame[0] {
			return 0, io.EOF
		}
	}

	written := 0
	framesNeeded := len(dst) / r.channels

	for written < framesNeeded {
		for r.pos >= 1.0 {
			r.pos -= 1.0
			if err := r.advance(); err != nil {
				if err == io.EOF {
					return written * r.channels, io.EOF
				}
				return written * r.channels, err
			}
		}

		if !r.hasFrame[1] || !r.hasFrame[2] {
			return written * r.channels, io.EOF
		}

		alpha := float32(r.pos)
		for c := range r.channels {
			y0 := r.frames[1][c]
			if r.hasFrame[0] {
				y0 = r.frames[0][c]
			}
			y3 := r.frames[2][c]
			if r.hasFrame[3] {
				y3 = r.frames[3][c]
			}

			dst[written*r.channels+c] = utils.CubicInterpolate(y0, r.frames[1][c], r.frames[2][c], y3, alpha)
		}

		written++
		r.pos += r.ratio
	}

	return written * r.channels, nil
}
