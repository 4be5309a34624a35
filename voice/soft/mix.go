// SPDX-License-Identifier: EPL-2.0

package soft

import (
	"io"

	"github.com/ik5/audmix/utils"
	"github.com/ik5/audmix/voice"
)

const maxSkips = 8

// Mix fills dst with interleaved stereo frames at the device rate and
// advances every playing voice. It returns the number of samples written,
// which is len(dst) rounded down to whole frames.
func (d *Device) Mix(dst []float32) int {
	n := len(dst) - len(dst)%2
	clear(dst[:n])

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || d.suspended {
		return n
	}

	for _, vs := range d.voices {
		if vs.state == voice.Playing {
			d.render(vs, dst[:n])
		}
	}

	for i := range dst[:n] {
		dst[i] = min(max(dst[i], -1), 1)
	}

	return n
}

// Advance plays frames device frames and discards the output.
func (d *Device) Advance(frames int) {
	scratch := make([]float32, 2*min(frames, 4096))
	for frames > 0 {
		chunk := min(frames, len(scratch)/2)
		d.Mix(scratch[:2*chunk])
		frames -= chunk
	}
}

func (d *Device) current(vs *voiceState) *pcmBuffer {
	var b voice.Buffer
	switch {
	case vs.static != voice.NoBuffer:
		b = vs.static
	case vs.cur < len(vs.queue):
		b = vs.queue[vs.cur]
	default:
		return nil
	}

	return d.buffers[b]
}

func (d *Device) render(vs *voiceState, dst []float32) {
	gain := min(max(vs.gain, vs.minGain), vs.maxGain) * d.listener

	for i := 0; i < len(dst); i += 2 {
		pb := d.current(vs)
		for skips := 0; pb != nil && vs.pos >= float64(pb.frames); skips++ {
			// Empty buffers on a looping voice would never yield a frame.
			if skips > len(vs.queue)+maxSkips {
				vs.state = voice.Stopped
				vs.pos = 0
				return
			}
			vs.pos -= float64(pb.frames)
			if !d.next(vs) {
				return
			}
			pb = d.current(vs)
		}
		if pb == nil {
			vs.state = voice.Stopped
			return
		}

		l, r := pb.frame(vs.pos)
		dst[i] += l * gain
		dst[i+1] += r * gain

		vs.pos += float64(pb.format.SampleRate) / float64(d.rate)
	}
}

// next moves to the following buffer and reports whether playback goes on.
func (d *Device) next(vs *voiceState) bool {
	if vs.static != voice.NoBuffer {
		if vs.looping {
			return true
		}
		vs.state = voice.Stopped
		vs.pos = 0
		return false
	}

	vs.cur++
	if vs.cur < len(vs.queue) {
		return true
	}
	if vs.looping && len(vs.queue) > 0 {
		vs.cur = 0
		return true
	}

	vs.state = voice.Stopped
	vs.pos = 0
	d.log.Debug("voice ran out of queued buffers", "queued", len(vs.queue))

	return false
}

// frame returns the stereo value at a fractional frame position.
func (pb *pcmBuffer) frame(pos float64) (float32, float32) {
	idx := int(pos)
	frac := float32(pos - float64(idx))
	ch := pb.format.Channels

	at := func(i, c int) float32 {
		i = min(max(i, 0), pb.frames-1)
		return pb.samples[i*ch+c]
	}
	sample := func(c int) float32 {
		if frac == 0 {
			return at(idx, c)
		}
		return utils.CubicInterpolate(at(idx-1, c), at(idx, c), at(idx+1, c), at(idx+2, c), frac)
	}

	l := sample(0)
	if ch == 1 {
		return l, l
	}

	return l, sample(1)
}

// Output adapts a Device to audio.Source. The stream never ends.
type Output struct {
	dev *Device
}

func (d *Device) Source() *Output { return &Output{dev: d} }

func (o *Output) SampleRate() int { return o.dev.rate }
func (o *Output) Channels() int   { return 2 }
func (o *Output) BufSize() int    { return 4096 }
func (o *Output) Close() error    { return nil }

func (o *Output) ReadSamples(dst []float32) (int, error) {
	return o.dev.Mix(dst), nil
}

// Reader encodes the mix as signed 16-bit little-endian stereo, the layout
// oto expects.
type Reader struct {
	dev  *Device
	fbuf []float32
}

var _ io.Reader = (*Reader)(nil)

func (d *Device) Reader() *Reader { return &Reader{dev: d} }

func (r *Reader) Read(p []byte) (int, error) {
	samples := len(p) / 4 * 2
	if samples == 0 {
		return 0, nil
	}
	if cap(r.fbuf) < samples {
		r.fbuf = make([]float32, samples)
	}
	buf := r.fbuf[:samples]

	r.dev.Mix(buf)

	return utils.PutS16LE(p, buf), nil
}
