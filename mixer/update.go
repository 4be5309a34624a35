// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"fmt"
	"time"

	"github.com/ik5/audmix/voice"
)

const warnInterval = 5 * time.Second

// Update advances every busy channel: it expires and fades channels,
// refills stream queues, replays loops and frees channels that finished.
// It returns the number of buffers queued, or the negated number of errors
// when any occurred. With Config.Threaded the poller calls it and a manual
// call returns 0.
func (e *Engine) Update() int {
	if e.pollerRunning() {
		return 0
	}
	if err := e.begin(); err != nil {
		return 0
	}
	defer e.end()

	return e.update()
}

func (e *Engine) update() int {
	if !e.initialized || e.interrupted.Load() || e.playing == 0 {
		return 0
	}

	now := e.clock.Now()
	ops, errs := 0, 0

	for ch := range e.channels {
		c := &e.channels[ch]
		if !c.inUse() {
			continue
		}

		if c.expired(now) {
			e.log.Debug("channel expired", "channel", ch)
			e.halt(ch, false)
			continue
		}

		if err := e.tickFade(ch, now); err != nil {
			e.log.Debug("fade tick", "channel", ch, "err", err)
			errs++
		}

		var n, failed int
		if c.data.mode == Predecoded {
			n, failed = e.updatePredecoded(ch)
		} else {
			n, failed = e.updateStream(ch)
		}
		ops += n
		errs += failed
	}

	if errs > 0 {
		return -errs
	}

	return ops
}

func (e *Engine) updatePredecoded(ch int) (int, int) {
	c := &e.channels[ch]

	state, err := e.dev.State(c.voice)
	if err != nil {
		e.log.Debug("voice state", "channel", ch, "err", err)
		return 0, 1
	}
	if state != voice.Stopped {
		return 0, 0
	}

	if c.loops != 0 {
		if c.loops > 0 {
			c.loops--
		}
		if err := e.dev.Play(c.voice); err != nil {
			e.log.Debug("replaying loop", "channel", ch, "err", err)
			return 0, 1
		}
		if d := c.data; d.pcm != nil {
			e.notifyData(ch, d.pcm[d.totalBytes-d.loadedBytes:])
		}
		return 1, 0
	}

	e.finish(ch)

	return 0, 0
}

// finish frees a channel whose sound ran out.
func (e *Engine) finish(ch int) {
	e.detach(ch)
	e.notifyFinished(ch, true)
	e.clean(ch)
	e.playing = max(e.playing-1, 0)
}

func (e *Engine) counts(v voice.Handle) (voice.State, int, int, error) {
	state, err := e.dev.State(v)
	if err != nil {
		return state, 0, 0, fmt.Errorf("%w: state: %w", ErrHardwareCallFailed, err)
	}
	processed, err := e.dev.Processed(v)
	if err != nil {
		return state, 0, 0, fmt.Errorf("%w: processed: %w", ErrHardwareCallFailed, err)
	}
	queued, err := e.dev.Queued(v)
	if err != nil {
		return state, 0, 0, fmt.Errorf("%w: queued: %w", ErrHardwareCallFailed, err)
	}

	return state, processed, queued, nil
}

func (e *Engine) updateStream(ch int) (int, int) {
	c := &e.channels[ch]
	d := c.data

	state, processed, queued, err := e.counts(c.voice)
	if err != nil {
		e.log.Debug("stream counts", "channel", ch, "err", err)
		return 0, 1
	}
	e.syncShadow(ch, queued, processed)

	passes := d.perPass
	if state == voice.Stopped {
		passes = d.startup
	}
	passes = max(passes, 1)

	ops := 0
	for range passes {
		state, processed, _, err = e.counts(c.voice)
		if err != nil {
			e.log.Debug("stream counts", "channel", ch, "err", err)
			return ops, 1
		}

		action := planRefill(refillState{
			eof:          d.eof,
			stopped:      state == voice.Stopped,
			buffersInUse: d.buffersInUse,
			maxQueue:     d.maxQueue,
			processed:    processed,
		})

		switch action {
		case refillIdle:
			return ops, 0
		case refillDrain:
			return ops, e.drain(ch)
		}

		n, err := e.refill(ch, action)
		if err != nil {
			e.log.Debug("stream refill", "channel", ch, "action", action.String(), "err", err)
			return ops, 1
		}
		// Nothing decoded: wait for the decoder or drain next tick.
		if n == 0 {
			break
		}
		ops += n
	}

	return ops, 0
}

// refill decodes one chunk and queues it on ch as planned by action.
func (e *Engine) refill(ch int, action refillAction) (int, error) {
	c := &e.channels[ch]
	d := c.data

	pcm, err := e.pull(ch)
	if err != nil {
		return 0, err
	}
	if len(pcm) == 0 {
		return 0, nil
	}

	var b voice.Buffer
	switch action {
	case refillFresh:
		b = d.buffers[d.buffersInUse]

	case refillRecycle:
		bufs, err := e.dev.UnqueueBuffers(c.voice, 1)
		if err != nil {
			return 0, fmt.Errorf("%w: unqueue: %w", ErrHardwareCallFailed, err)
		}
		b = bufs[0]

	case refillUnderrun:
		e.underrun(ch)
		// Stale processed buffers would play twice once the voice restarts.
		processed, err := e.dev.Processed(c.voice)
		if err != nil {
			return 0, fmt.Errorf("%w: processed: %w", ErrHardwareCallFailed, err)
		}
		if processed > 0 {
			if _, err := e.dev.UnqueueBuffers(c.voice, processed); err != nil {
				return 0, fmt.Errorf("%w: unqueue stale buffers: %w", ErrHardwareCallFailed, err)
			}
		}
		d.buffersInUse = 0
		if d.shadow != nil {
			d.shadow.Clear()
		}
		c.lastBuffer = voice.NoBuffer
		b = d.buffers[0]

	default:
		return 0, fmt.Errorf("unexpected refill action %s", action)
	}

	if err := e.upload(d, b, pcm); err != nil {
		return 0, err
	}
	if err := e.enqueue(ch, b); err != nil {
		return 0, err
	}
	if action != refillRecycle {
		d.buffersInUse = min(d.buffersInUse+1, d.maxQueue)
	}

	if action == refillUnderrun {
		if err := e.pulse(c); err != nil {
			return 1, err
		}
	}

	return 1, nil
}

func (e *Engine) underrun(ch int) {
	e.warn.Do(func() {
		e.log.Warn("stream underrun, restarting voice", "channel", ch)
	})
}

// drain retires processed buffers of a finished stream and frees the
// channel once the voice has played everything.
func (e *Engine) drain(ch int) int {
	c := &e.channels[ch]

	_, processed, _, err := e.counts(c.voice)
	if err != nil {
		e.log.Debug("drain counts", "channel", ch, "err", err)
		return 1
	}
	if processed > 0 {
		if _, err := e.dev.UnqueueBuffers(c.voice, processed); err != nil {
			e.log.Debug("drain unqueue", "channel", ch, "err", err)
			return 1
		}
	}

	state, _, queued, err := e.counts(c.voice)
	if err != nil {
		e.log.Debug("drain counts", "channel", ch, "err", err)
		return 1
	}
	if state != voice.Stopped && state != voice.Initial {
		return 0
	}

	if queued == 0 {
		e.finish(ch)
		return 0
	}

	e.warn.Do(func() {
		e.log.Warn("voice stopped with buffers still queued", "channel", ch, "queued", queued)
	})
	e.detach(ch)
	if err := e.dev.Play(c.voice); err != nil {
		e.log.Debug("replay after detach", "channel", ch, "err", err)
	}

	return 0
}
