// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"fmt"

	"github.com/ik5/audmix/decoder"
	"github.com/ik5/audmix/voice"
)

// refillState is what one refill step of a streaming channel can observe.
type refillState struct {
	eof          bool
	stopped      bool
	buffersInUse int
	maxQueue     int
	processed    int
}

type refillAction int

const (
	refillIdle refillAction = iota
	// refillFresh fills a buffer that has never been queued.
	refillFresh
	// refillRecycle unqueues one processed buffer and fills it again.
	refillRecycle
	// refillUnderrun restarts a voice that ran dry before the stream ended.
	refillUnderrun
	// refillDrain retires the tail of a finished stream.
	refillDrain
)

func (a refillAction) String() string {
	switch a {
	case refillIdle:
		return "idle"
	case refillFresh:
		return "fresh"
	case refillRecycle:
		return "recycle"
	case refillUnderrun:
		return "underrun"
	case refillDrain:
		return "drain"
	default:
		return "unknown"
	}
}

// planRefill picks the next step for a streaming channel. Unused buffers
// are filled before processed ones are recycled, so no handle drops out of
// the rotation.
func planRefill(s refillState) refillAction {
	switch {
	case s.eof:
		return refillDrain
	case s.stopped:
		return refillUnderrun
	case s.buffersInUse < s.maxQueue:
		return refillFresh
	case s.processed > 0:
		return refillRecycle
	default:
		return refillIdle
	}
}

// afterEmptyDecode decides what a drained decoder does next: rewind and
// play again while loops remain.
func afterEmptyDecode(loops int) (bool, int) {
	switch {
	case loops < 0:
		return true, loops
	case loops > 0:
		return true, loops - 1
	default:
		return false, 0
	}
}

// pull decodes the next chunk of the stream bound to ch. An empty result
// with no error means the decoder has nothing yet, or the stream ended with
// no loops left, in which case the data is marked EOF.
func (e *Engine) pull(ch int) ([]byte, error) {
	c := &e.channels[ch]
	d := c.data
	s := d.sample

	for range 2 {
		n, err := s.Decode()
		if err != nil {
			// The queued buffers still play out, then the stream drains.
			d.eof = true
			e.log.Warn("decode failed, ending stream", "channel", ch, "err", err)
			return nil, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
		}
		if n > 0 {
			return s.Buffer()[:n], nil
		}
		if !s.Flags().Has(decoder.EOF) {
			return nil, nil
		}

		rewind, loops := afterEmptyDecode(c.loops)
		if !rewind {
			d.eof = true
			return nil, nil
		}
		if err := s.Rewind(); err != nil {
			d.eof = true
			return nil, fmt.Errorf("%w: loop rewind: %w", ErrDecodeFailed, err)
		}
		c.loops = loops
		d.eof = false
	}

	return nil, nil
}

// upload copies pcm into b and keeps the access copy when one is tracked.
func (e *Engine) upload(d *Data, b voice.Buffer, pcm []byte) error {
	if err := e.dev.BufferData(b, d.format, pcm); err != nil {
		return fmt.Errorf("%w: upload buffer %d: %w", ErrHardwareCallFailed, b, err)
	}
	if d.access != nil {
		d.access[b] = append(d.access[b][:0], pcm...)
	}

	return nil
}

// enqueue queues b on the voice of ch and mirrors it in the shadow queue.
func (e *Engine) enqueue(ch int, bufs ...voice.Buffer) error {
	c := &e.channels[ch]
	if err := e.dev.QueueBuffers(c.voice, bufs...); err != nil {
		return fmt.Errorf("%w: queue on voice %d: %w", ErrHardwareCallFailed, c.voice, err)
	}
	if sq := c.data.shadow; sq != nil {
		for _, b := range bufs {
			if !sq.PushBack(b) {
				e.log.Debug("shadow queue full", "channel", ch, "buffer", b)
			}
		}
	}

	return nil
}

// prime fills and queues the startup buffers of the stream bound to ch.
func (e *Engine) prime(ch int) error {
	c := &e.channels[ch]
	d := c.data

	count := 0
	for count < d.startup {
		pcm, err := e.pull(ch)
		if err != nil {
			return err
		}
		if len(pcm) == 0 {
			break
		}
		if err := e.upload(d, d.buffers[count], pcm); err != nil {
			return err
		}
		count++
	}
	if count == 0 {
		return fmt.Errorf("%w: no data", ErrDecodeFailed)
	}

	if d.shadow != nil {
		d.shadow.Clear()
	}
	c.lastBuffer = voice.NoBuffer
	if err := e.enqueue(ch, d.buffers[:count]...); err != nil {
		return err
	}
	d.buffersInUse = count

	return nil
}

// syncShadow trims the shadow queue to the buffers the voice has not played
// and reports a new front buffer to the data callback.
func (e *Engine) syncShadow(ch, queued, processed int) {
	c := &e.channels[ch]
	d := c.data
	if d.shadow == nil {
		return
	}
	if processed == 0 && c.lastBuffer != voice.NoBuffer {
		return
	}

	unplayed := max(queued-processed, 0)
	for d.shadow.Len() > unplayed {
		d.shadow.PopFront()
	}

	front, ok := d.shadow.Front()
	if !ok {
		c.lastBuffer = voice.NoBuffer
		return
	}
	if front != c.lastBuffer {
		c.lastBuffer = front
		e.notifyData(ch, d.access[front])
	}
}
