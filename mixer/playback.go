// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"errors"
	"fmt"
	"time"

	"github.com/ik5/audmix/decoder"
	"github.com/ik5/audmix/voice"
)

// SeekOutcome tells where a seek landed.
type SeekOutcome int

const (
	SeekOK SeekOutcome = iota
	// SeekPastEnd means the target was beyond the sound, which is now
	// positioned on its final frame.
	SeekPastEnd
)

func (o SeekOutcome) String() string {
	if o == SeekPastEnd {
		return "past end"
	}

	return "ok"
}

func ticksToExpire(ticks int) time.Duration {
	if ticks < 0 {
		return never
	}

	return time.Duration(ticks) * time.Millisecond
}

// PlayChannelTimed plays d on ch and returns the channel used. ch == -1
// picks a free unreserved channel. loops is the number of extra plays, -1
// loops forever. The channel is halted after ticks milliseconds unless
// ticks is -1.
func (e *Engine) PlayChannelTimed(ch int, d *Data, loops, ticks int) (int, error) {
	if err := e.begin(); err != nil {
		return -1, err
	}
	defer e.end()

	ch, err := e.playTimed(ch, d, loops, ticksToExpire(ticks))

	return ch, e.fail(err)
}

func (e *Engine) PlayChannel(ch int, d *Data, loops int) (int, error) {
	return e.PlayChannelTimed(ch, d, loops, -1)
}

func (e *Engine) playTimed(ch int, d *Data, loops int, expire time.Duration) (int, error) {
	if d == nil || len(d.buffers) == 0 {
		return -1, fmt.Errorf("%w: %w: sound not loaded", ErrPlayFailed, ErrNotFound)
	}
	if d.mode == Streaming && d.inUse > 0 {
		return -1, fmt.Errorf("%w: %w: streams cannot be shared", ErrPlayFailed, ErrDataInUse)
	}

	if ch == -1 {
		free, err := e.findFree(e.reserved)
		if err != nil {
			return -1, fmt.Errorf("%w: %w", ErrPlayFailed, ErrNoChannelsAvailable)
		}
		ch = free
	} else {
		if err := e.checkChannel(ch); err != nil {
			return -1, fmt.Errorf("%w: %w", ErrPlayFailed, err)
		}
		if e.channels[ch].inUse() {
			return -1, fmt.Errorf("%w: %w: %d", ErrPlayFailed, ErrChannelInUse, ch)
		}
	}

	if d.mode == Streaming && (d.eof || d.sample.Flags().Has(decoder.EOF)) {
		if err := e.rewindData(d); err != nil {
			return -1, fmt.Errorf("%w: %w", ErrPlayFailed, err)
		}
	}

	loops = max(loops, -1)
	c := &e.channels[ch]
	c.bind(d, loops, expire, e.clock.Now())

	if err := e.start(ch); err != nil {
		e.rollback(ch)
		return -1, fmt.Errorf("%w: channel %d: %w", ErrPlayFailed, ch, err)
	}
	e.playing++

	if d.mode == Predecoded && d.pcm != nil {
		e.notifyData(ch, d.pcm[d.totalBytes-d.loadedBytes:])
	}

	return ch, nil
}

// start binds the buffers of a freshly bound channel and plays its voice.
func (e *Engine) start(ch int) error {
	c := &e.channels[ch]
	d := c.data

	if err := e.dev.SetLooping(c.voice, c.loops == -1 && d.mode == Predecoded); err != nil {
		return fmt.Errorf("%w: looping: %w", ErrHardwareCallFailed, err)
	}

	if d.mode == Predecoded {
		if err := e.dev.SetBuffer(c.voice, d.buffers[0]); err != nil {
			return fmt.Errorf("%w: bind buffer: %w", ErrHardwareCallFailed, err)
		}
	} else if err := e.prime(ch); err != nil {
		return err
	}

	if err := e.dev.Play(c.voice); err != nil {
		return fmt.Errorf("%w: play voice %d: %w", ErrHardwareCallFailed, c.voice, err)
	}

	return nil
}

func (e *Engine) rollback(ch int) {
	c := &e.channels[ch]
	if err := e.dev.Stop(c.voice); err != nil {
		e.log.Debug("stopping voice after failed play", "channel", ch, "err", err)
	}
	e.detach(ch)
	e.clean(ch)
}

func (e *Engine) detach(ch int) {
	c := &e.channels[ch]
	d := c.data
	if err := e.quirks.DetachBuffers(e.dev, c.voice, d.mode == Predecoded); err != nil {
		e.log.Warn("detaching buffers", "channel", ch, "voice", c.voice, "err", err)
	}
	if d.mode == Streaming {
		d.buffersInUse = 0
		if d.shadow != nil {
			d.shadow.Clear()
		}
	}
}

// halt stops ch and frees it. natural is passed to the finished callback.
func (e *Engine) halt(ch int, natural bool) {
	c := &e.channels[ch]
	if !c.inUse() {
		return
	}
	c.halted = true

	if err := e.dev.Stop(c.voice); err != nil {
		e.log.Debug("stopping voice", "channel", ch, "err", err)
	}
	e.detach(ch)
	e.notifyFinished(ch, natural)
	e.clean(ch)
	e.playing = max(e.playing-1, 0)
}

func (e *Engine) haltAll(natural bool) int {
	n := 0
	for ch := range e.channels {
		if e.channels[ch].inUse() {
			e.halt(ch, natural)
			n++
		}
	}
	e.playing = 0

	return n
}

// each applies fn to ch, or to every channel when ch is -1, and returns how
// many calls reported true.
func (e *Engine) each(ch int, fn func(ch int) bool) (int, error) {
	if ch == -1 {
		n := 0
		for i := range e.channels {
			if fn(i) {
				n++
			}
		}
		return n, nil
	}
	if err := e.checkChannel(ch); err != nil {
		return 0, err
	}
	if fn(ch) {
		return 1, nil
	}

	return 0, nil
}

// HaltChannel stops ch, or every channel when ch is -1, and returns the
// number of channels halted.
func (e *Engine) HaltChannel(ch int) (int, error) {
	if err := e.begin(); err != nil {
		return 0, err
	}
	defer e.end()

	n, err := e.haltChannel(ch)

	return n, e.fail(err)
}

func (e *Engine) haltChannel(ch int) (int, error) {
	if ch == -1 {
		return e.haltAll(false), nil
	}

	return e.each(ch, func(ch int) bool {
		if !e.channels[ch].inUse() {
			return false
		}
		e.halt(ch, false)
		return true
	})
}

// PauseChannel pauses ch, or every playing channel when ch is -1. Expire
// and fade timers stop while paused.
func (e *Engine) PauseChannel(ch int) (int, error) {
	if err := e.begin(); err != nil {
		return 0, err
	}
	defer e.end()

	n, err := e.pauseChannel(ch)

	return n, e.fail(err)
}

func (e *Engine) pauseChannel(ch int) (int, error) {
	var errs []error
	n, err := e.each(ch, func(ch int) bool {
		c := &e.channels[ch]
		if c.state != Playing {
			return false
		}
		if err := e.dev.Pause(c.voice); err != nil {
			errs = append(errs, fmt.Errorf("%w: pause voice %d: %w", ErrHardwareCallFailed, c.voice, err))
			return false
		}
		c.pauseAt(e.clock.Now())
		return true
	})

	return n, errors.Join(append(errs, err)...)
}

// ResumeChannel resumes ch, or every paused channel when ch is -1.
func (e *Engine) ResumeChannel(ch int) (int, error) {
	if err := e.begin(); err != nil {
		return 0, err
	}
	defer e.end()

	n, err := e.resumeChannel(ch)

	return n, e.fail(err)
}

func (e *Engine) resumeChannel(ch int) (int, error) {
	var errs []error
	n, err := e.each(ch, func(ch int) bool {
		c := &e.channels[ch]
		if c.state != Paused {
			return false
		}
		if err := e.dev.Play(c.voice); err != nil {
			errs = append(errs, fmt.Errorf("%w: resume voice %d: %w", ErrHardwareCallFailed, c.voice, err))
			return false
		}
		c.resumeAt(e.clock.Now())
		return true
	})

	return n, errors.Join(append(errs, err)...)
}

// RewindData moves d back to its first frame. Rewinding data that is
// playing is allowed; queued stream buffers still play out.
func (e *Engine) RewindData(d *Data) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()

	return e.fail(e.rewindData(d))
}

func (e *Engine) rewindData(d *Data) error {
	if d == nil {
		return fmt.Errorf("%w: nil data", ErrNotFound)
	}
	if d.inUse > 0 {
		e.log.Debug("rewinding sound in use", "mode", d.mode.String(), "channels", d.inUse)
	}
	d.eof = false

	if d.mode == Predecoded {
		if d.pcm == nil || d.loadedBytes == d.totalBytes {
			return nil
		}
		if d.inUse > 0 {
			e.log.Warn("cannot restore seeked buffer while playing", "channels", d.inUse)
			return nil
		}
		if err := e.dev.BufferData(d.buffers[0], d.format, d.pcm); err != nil {
			return fmt.Errorf("%w: re-upload: %w", ErrHardwareCallFailed, err)
		}
		d.loadedBytes = d.totalBytes
		return nil
	}

	if err := d.sample.Rewind(); err != nil {
		return fmt.Errorf("%w: rewind: %w", ErrDecodeFailed, err)
	}

	return nil
}

// RewindChannel restarts ch, or every busy channel when ch is -1, keeping
// it paused if it was.
func (e *Engine) RewindChannel(ch int) (int, error) {
	if err := e.begin(); err != nil {
		return 0, err
	}
	defer e.end()

	n, err := e.rewindChannel(ch)

	return n, e.fail(err)
}

func (e *Engine) rewindChannel(ch int) (int, error) {
	var errs []error
	n, err := e.each(ch, func(ch int) bool {
		c := &e.channels[ch]
		if !c.inUse() {
			return false
		}
		if c.data.mode == Streaming {
			if err := e.rewindData(c.data); err != nil {
				errs = append(errs, err)
				return false
			}
			return true
		}
		if err := e.restartVoice(c); err != nil {
			errs = append(errs, err)
			return false
		}
		return true
	})

	return n, errors.Join(append(errs, err)...)
}

// restartVoice rewinds a predecoded voice and plays it, pausing it again
// when the channel is paused.
func (e *Engine) restartVoice(c *channel) error {
	if err := e.dev.Rewind(c.voice); err != nil {
		return fmt.Errorf("%w: rewind voice %d: %w", ErrHardwareCallFailed, c.voice, err)
	}

	return e.pulse(c)
}

// pulse plays the voice of c and, for a paused channel, pauses it again.
// A voice left in its initial state could not be resumed later.
func (e *Engine) pulse(c *channel) error {
	if err := e.dev.Play(c.voice); err != nil {
		return fmt.Errorf("%w: play voice %d: %w", ErrHardwareCallFailed, c.voice, err)
	}
	if c.state == Paused {
		if err := e.dev.Pause(c.voice); err != nil {
			return fmt.Errorf("%w: pause voice %d: %w", ErrHardwareCallFailed, c.voice, err)
		}
	}

	return nil
}

// SeekData positions d at ms milliseconds. Predecoded data must have been
// loaded with AccessData and must not be playing.
func (e *Engine) SeekData(d *Data, ms uint32) (SeekOutcome, error) {
	if err := e.begin(); err != nil {
		return SeekOK, err
	}
	defer e.end()

	out, err := e.seekData(d, ms)

	return out, e.fail(err)
}

func (e *Engine) seekData(d *Data, ms uint32) (SeekOutcome, error) {
	if ms == 0 {
		return SeekOK, e.rewindData(d)
	}
	if d == nil {
		return SeekOK, fmt.Errorf("%w: nil data", ErrNotFound)
	}

	if d.mode == Streaming {
		d.eof = false
		if err := d.sample.Seek(ms); err != nil {
			return SeekOK, fmt.Errorf("%w: seek to %dms: %w", ErrDecodeFailed, ms, err)
		}
		if d.sample.Flags().Has(decoder.EOF) {
			return SeekPastEnd, nil
		}
		return SeekOK, nil
	}

	if d.inUse > 0 {
		return SeekOK, fmt.Errorf("%w: cannot seek predecoded sound while playing", ErrDataInUse)
	}
	if d.pcm == nil {
		return SeekOK, fmt.Errorf("%w: sound was loaded without data access", ErrNotFound)
	}

	out := SeekOK
	pos := msToBytePos(ms, d.format)
	if pos >= d.totalBytes {
		pos = d.totalBytes - uint32(d.format.FrameSize())
		d.eof = true
		out = SeekPastEnd
	}

	if err := e.dev.BufferData(d.buffers[0], d.format, d.pcm[pos:]); err != nil {
		return SeekOK, fmt.Errorf("%w: re-upload: %w", ErrHardwareCallFailed, err)
	}
	d.loadedBytes = d.totalBytes - pos

	return out, nil
}

// SeekChannel moves the play position of ch, or every busy channel when ch
// is -1, to ms milliseconds.
func (e *Engine) SeekChannel(ch int, ms uint32) (int, error) {
	if err := e.begin(); err != nil {
		return 0, err
	}
	defer e.end()

	n, err := e.seekChannel(ch, ms)

	return n, e.fail(err)
}

func (e *Engine) seekChannel(ch int, ms uint32) (int, error) {
	if ms == 0 {
		return e.rewindChannel(ch)
	}

	var errs []error
	n, err := e.each(ch, func(ch int) bool {
		c := &e.channels[ch]
		if !c.inUse() {
			return false
		}

		var err error
		if c.data.mode == Predecoded {
			err = e.seekVoice(c, ms)
		} else {
			err = e.seekStream(ch, ms)
		}
		if err != nil {
			errs = append(errs, err)
			return false
		}
		return true
	})

	return n, errors.Join(append(errs, err)...)
}

func (e *Engine) seekVoice(c *channel, ms uint32) error {
	d := c.data
	frames := d.loadedBytes / uint32(d.format.FrameSize())
	last := float64(max(frames, 1)-1) / float64(d.format.SampleRate)
	sec := min(float64(ms)/1000, last)

	if err := e.dev.SetOffset(c.voice, sec); err != nil {
		return fmt.Errorf("%w: offset %.3fs: %w", ErrHardwareCallFailed, sec, err)
	}
	if c.state == Paused {
		return e.pulse(c)
	}

	return nil
}

// seekStream discards the queued buffers of ch and restarts the stream at
// ms.
func (e *Engine) seekStream(ch int, ms uint32) error {
	c := &e.channels[ch]

	if err := e.dev.Stop(c.voice); err != nil {
		return fmt.Errorf("%w: stop voice %d: %w", ErrHardwareCallFailed, c.voice, err)
	}
	e.detach(ch)

	if out, err := e.seekData(c.data, ms); err != nil {
		return err
	} else if out == SeekPastEnd {
		c.data.eof = true
		return nil
	}

	if err := e.prime(ch); err != nil {
		return err
	}

	return e.pulse(c)
}

// ExpireChannel halts ch, or every busy channel when ch is -1, after ticks
// milliseconds. 0 halts now and -1 cancels the timer.
func (e *Engine) ExpireChannel(ch, ticks int) (int, error) {
	if err := e.begin(); err != nil {
		return 0, err
	}
	defer e.end()

	n, err := e.expireChannel(ch, ticks)

	return n, e.fail(err)
}

func (e *Engine) expireChannel(ch, ticks int) (int, error) {
	if ticks == 0 {
		return e.haltChannel(ch)
	}

	expire := ticksToExpire(ticks)
	now := e.clock.Now()

	return e.each(ch, func(ch int) bool {
		c := &e.channels[ch]
		if !c.inUse() {
			return false
		}
		c.expire = expire
		c.expireStart = now
		if c.state == Paused && expire != never {
			c.pause.ExpireRemaining = expire
		}
		return true
	})
}

// IsActiveChannel reports 1 when ch is busy, or the number of busy channels
// when ch is -1.
func (e *Engine) IsActiveChannel(ch int) int {
	return e.countState(ch, func(c *channel) bool { return c.inUse() })
}

func (e *Engine) IsPlayingChannel(ch int) int {
	return e.countState(ch, func(c *channel) bool { return c.state == Playing })
}

func (e *Engine) IsPausedChannel(ch int) int {
	return e.countState(ch, func(c *channel) bool { return c.state == Paused })
}

// IsActiveVoice reports 1 when the channel owning v is busy, or the number
// of busy channels when v is voice.None.
func (e *Engine) IsActiveVoice(v voice.Handle) int {
	return e.countVoiceState(v, func(c *channel) bool { return c.inUse() })
}

func (e *Engine) IsPlayingVoice(v voice.Handle) int {
	return e.countVoiceState(v, func(c *channel) bool { return c.state == Playing })
}

func (e *Engine) IsPausedVoice(v voice.Handle) int {
	return e.countVoiceState(v, func(c *channel) bool { return c.state == Paused })
}

func (e *Engine) countState(ch int, match func(*channel) bool) int {
	if err := e.begin(); err != nil {
		return 0
	}
	defer e.end()

	return e.matching(ch, match)
}

func (e *Engine) countVoiceState(v voice.Handle, match func(*channel) bool) int {
	if err := e.begin(); err != nil {
		return 0
	}
	defer e.end()

	ch, err := e.resolveVoice(v)
	if err != nil {
		e.fail(err)
		return 0
	}

	return e.matching(ch, match)
}

func (e *Engine) matching(ch int, match func(*channel) bool) int {
	n, err := e.each(ch, func(ch int) bool { return match(&e.channels[ch]) })
	if err != nil {
		e.fail(err)
		return 0
	}

	return n
}

// resolveVoice maps v to a channel for the voice variants. voice.None means
// every channel.
func (e *Engine) resolveVoice(v voice.Handle) (int, error) {
	if v == voice.None {
		return -1, nil
	}

	return e.channelForVoice(v)
}

// HaltVoice halts the channel owning v. voice.None halts every channel.
func (e *Engine) HaltVoice(v voice.Handle) (int, error) {
	return e.onVoice(v, e.haltChannel)
}

func (e *Engine) PauseVoice(v voice.Handle) (int, error) {
	return e.onVoice(v, e.pauseChannel)
}

func (e *Engine) ResumeVoice(v voice.Handle) (int, error) {
	return e.onVoice(v, e.resumeChannel)
}

func (e *Engine) RewindVoice(v voice.Handle) (int, error) {
	return e.onVoice(v, e.rewindChannel)
}

func (e *Engine) SeekVoice(v voice.Handle, ms uint32) (int, error) {
	return e.onVoice(v, func(ch int) (int, error) { return e.seekChannel(ch, ms) })
}

func (e *Engine) ExpireVoice(v voice.Handle, ticks int) (int, error) {
	return e.onVoice(v, func(ch int) (int, error) { return e.expireChannel(ch, ticks) })
}

func (e *Engine) onVoice(v voice.Handle, fn func(ch int) (int, error)) (int, error) {
	if err := e.begin(); err != nil {
		return 0, err
	}
	defer e.end()

	ch, err := e.resolveVoice(v)
	if err != nil {
		return 0, e.fail(err)
	}
	n, err := fn(ch)

	return n, e.fail(err)
}

func (e *Engine) onVoiceErr(v voice.Handle, fn func(ch int) error) error {
	_, err := e.onVoice(v, func(ch int) (int, error) { return 0, fn(ch) })
	return err
}

// PlayVoiceTimed plays d on the channel owning v and returns that voice.
// voice.None picks a free channel.
func (e *Engine) PlayVoiceTimed(v voice.Handle, d *Data, loops, ticks int) (voice.Handle, error) {
	if err := e.begin(); err != nil {
		return voice.None, err
	}
	defer e.end()

	ch, err := e.resolveVoice(v)
	if err != nil {
		return voice.None, e.fail(fmt.Errorf("%w: %w", ErrPlayFailed, err))
	}
	ch, err = e.playTimed(ch, d, loops, ticksToExpire(ticks))
	if err != nil {
		return voice.None, e.fail(err)
	}

	return e.channels[ch].voice, nil
}

func (e *Engine) PlayVoice(v voice.Handle, d *Data, loops int) (voice.Handle, error) {
	return e.PlayVoiceTimed(v, d, loops, -1)
}
