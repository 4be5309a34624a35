// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"time"

	"github.com/ik5/audmix/voice"
)

// ChannelState is the lifecycle state of a channel.
type ChannelState int

const (
	Free ChannelState = iota
	Playing
	Paused
)

func (s ChannelState) String() string {
	switch s {
	case Free:
		return "free"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// never disables the expire timer.
const never time.Duration = -1

type fade struct {
	enabled   bool
	start     time.Duration
	duration  time.Duration
	inv       float64
	startGain float32
	endGain   float32
}

// gainAt returns the fade gain at now and whether the fade is complete.
func (f *fade) gainAt(now time.Duration) (float32, bool) {
	elapsed := min(max(now-f.start, 0), f.duration)
	if elapsed >= f.duration {
		return f.endGain, true
	}

	t := float32(float64(elapsed) * f.inv)

	return (1-t)*f.startGain + t*f.endGain, false
}

func (f *fade) arm(now, d time.Duration, from, to float32) {
	*f = fade{
		enabled:   true,
		start:     now,
		duration:  d,
		inv:       1 / float64(d),
		startGain: from,
		endGain:   to,
	}
}

// PauseSnapshot holds the timer progress of a paused channel.
type PauseSnapshot struct {
	ExpireRemaining time.Duration
	ElapsedFade     time.Duration
}

type channel struct {
	state  ChannelState
	halted bool
	voice  voice.Handle
	data   *Data
	loops  int

	start       time.Duration
	expireStart time.Duration
	expire      time.Duration

	fade  fade
	pause PauseSnapshot

	minGain float32
	maxGain float32

	lastBuffer voice.Buffer
}

func newChannel(v voice.Handle) channel {
	return channel{
		voice:   v,
		expire:  never,
		maxGain: 1,
	}
}

func (c *channel) inUse() bool { return c.state != Free }

// bind moves a free channel to Playing with d.
func (c *channel) bind(d *Data, loops int, expire, now time.Duration) {
	c.state = Playing
	c.halted = false
	c.data = d
	c.loops = loops
	c.start = now
	c.expireStart = now
	c.expire = expire
	c.fade = fade{}
	c.pause = PauseSnapshot{}
	c.lastBuffer = voice.NoBuffer
	d.inUse++
}

func (c *channel) pauseAt(now time.Duration) {
	c.state = Paused
	c.pause = PauseSnapshot{}
	if c.expire != never {
		c.pause.ExpireRemaining = max(c.expire-(now-c.expireStart), 0)
	}
	if c.fade.enabled {
		c.pause.ElapsedFade = now - c.fade.start
	}
}

func (c *channel) resumeAt(now time.Duration) {
	c.state = Playing
	if c.expire != never {
		c.expireStart = now
		c.expire = c.pause.ExpireRemaining
	}
	if c.fade.enabled {
		c.fade.start = now - c.pause.ElapsedFade
	}
	c.pause = PauseSnapshot{}
}

func (c *channel) expired(now time.Duration) bool {
	return c.expire != never && c.state != Paused && now-c.expireStart >= c.expire
}

// clean returns the channel to Free and restores the voice gain bounds.
func (e *Engine) clean(ch int) {
	c := &e.channels[ch]

	if err := e.dev.SetGain(c.voice, voice.GainMax, c.maxGain); err != nil {
		e.log.Debug("restoring max gain", "channel", ch, "err", err)
	}
	if err := e.dev.SetGain(c.voice, voice.GainMin, c.minGain); err != nil {
		e.log.Debug("restoring min gain", "channel", ch, "err", err)
	}
	if err := e.dev.SetLooping(c.voice, false); err != nil {
		e.log.Debug("clearing loop flag", "channel", ch, "err", err)
	}

	if c.data != nil {
		c.data.inUse = max(c.data.inUse-1, 0)
	}

	c.state = Free
	c.halted = false
	c.data = nil
	c.loops = 0
	c.start = 0
	c.expireStart = 0
	c.expire = never
	c.fade = fade{}
	c.pause = PauseSnapshot{}
	c.lastBuffer = voice.NoBuffer
}

// Snapshot returns the timer progress stored when ch was paused.
func (e *Engine) Snapshot(ch int) (PauseSnapshot, error) {
	if err := e.begin(); err != nil {
		return PauseSnapshot{}, err
	}
	defer e.end()

	if err := e.checkChannel(ch); err != nil {
		return PauseSnapshot{}, e.fail(err)
	}

	return e.channels[ch].pause, nil
}

// State returns the lifecycle state of ch.
func (e *Engine) State(ch int) (ChannelState, error) {
	if err := e.begin(); err != nil {
		return Free, err
	}
	defer e.end()

	if err := e.checkChannel(ch); err != nil {
		return Free, e.fail(err)
	}

	return e.channels[ch].state, nil
}
