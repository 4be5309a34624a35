// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"time"
)

// ChannelMixer converts the channel layout of a Source.
// Down-mixing to mono averages all input channels, up-mixing from mono
// copies the single channel into every output channel.
type ChannelMixer struct {
	src      Source
	channels int
	tmp      []float32
}

func NewChannelMixer(src Source, channels int) (*ChannelMixer, error) {
	in := src.Channels()
	if channels <= 0 || (in != channels && in != 1 && channels != 1) {
		return nil, fmt.Errorf("%w: %d -> %d", ErrUnsupportedLayout, in, channels)
	}

	return &ChannelMixer{
		src:      src,
		channels: channels,
		tmp:      make([]float32, 4096),
	}, nil
}

// NewMonoMixer down-mixes src to a single channel.
func NewMonoMixer(src Source) *ChannelMixer {
	m, _ := NewChannelMixer(src, 1)
	return m
}

func (m *ChannelMixer) SampleRate() int { return m.src.SampleRate() }
func (m *ChannelMixer) Channels() int   { return m.channels }
func (m *ChannelMixer) BufSize() int    { return m.src.BufSize() }

func (m *ChannelMixer) Duration() (time.Duration, error) {
	d, ok := m.src.(Durationer)
	if !ok {
		return -1, nil
	}

	return d.Duration()
}

func (m *ChannelMixer) Close() error {
	err := m.src.Close()
	if err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

func (m *ChannelMixer) grow(samples int) []float32 {
	if cap(m.tmp) < samples {
		newCap := samples
		if newCap < 8192 {
			newCap = 8192
		}
		m.tmp = make([]float32, newCap)
	}

	return m.tmp[:samples]
}

func (m *ChannelMixer) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	in := m.src.Channels()
	if in == m.channels {
		return m.src.ReadSamples(dst)
	}
	if len(dst)%m.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	frames := len(dst) / m.channels
	tmp := m.grow(frames * in)

	n, err := m.src.ReadSamples(tmp)
	if n == 0 {
		return 0, err
	}
	got := n / in

	if in == 1 {
		for f := range got {
			v := tmp[f]
			base := f * m.channels
			for c := range m.channels {
				dst[base+c] = v
			}
		}

		return got * m.channels, err
	}

	switch in {
	case 2:
		for f := range got {
			idx := f << 1
			dst[f] = (tmp[idx] + tmp[idx+1]) * 0.5
		}
	case 4:
		for f := range got {
			idx := f << 2
			dst[f] = (tmp[idx] + tmp[idx+1] + tmp[idx+2] + tmp[idx+3]) * 0.25
		}
	default:
		inv := float32(1.0) / float32(in)
		for f := range got {
			sum := float32(0)
			base := f * in
			for c := range in {
				sum += tmp[base+c]
			}
			dst[f] = sum * inv
		}
	}

	return got, err
}
