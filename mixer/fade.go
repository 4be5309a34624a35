// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"errors"
	"fmt"
	"time"

	"github.com/ik5/audmix/voice"
)

// FadeInChannelTimed plays d on ch starting at the channel's minimum volume
// and ramps up to the current volume over fadeMs milliseconds.
func (e *Engine) FadeInChannelTimed(ch int, d *Data, loops, fadeMs, ticks int) (int, error) {
	if err := e.begin(); err != nil {
		return -1, err
	}
	defer e.end()

	ch, err := e.fadeInTimed(ch, d, loops, fadeMs, ticks)

	return ch, e.fail(err)
}

func (e *Engine) FadeInChannel(ch int, d *Data, loops, fadeMs int) (int, error) {
	return e.FadeInChannelTimed(ch, d, loops, fadeMs, -1)
}

// FadeInVoiceTimed is FadeInChannelTimed addressed by voice. voice.None
// picks a free channel.
func (e *Engine) FadeInVoiceTimed(v voice.Handle, d *Data, loops, fadeMs, ticks int) (voice.Handle, error) {
	if err := e.begin(); err != nil {
		return voice.None, err
	}
	defer e.end()

	ch, err := e.resolveVoice(v)
	if err != nil {
		return voice.None, e.fail(fmt.Errorf("%w: %w", ErrPlayFailed, err))
	}
	ch, err = e.fadeInTimed(ch, d, loops, fadeMs, ticks)
	if err != nil {
		return voice.None, e.fail(err)
	}

	return e.channels[ch].voice, nil
}

func (e *Engine) fadeInTimed(ch int, d *Data, loops, fadeMs, ticks int) (int, error) {
	if ch == -1 {
		free, err := e.findFree(e.reserved)
		if err != nil {
			return -1, fmt.Errorf("%w: %w", ErrPlayFailed, ErrNoChannelsAvailable)
		}
		ch = free
	}
	if err := e.checkChannel(ch); err != nil {
		return -1, fmt.Errorf("%w: %w", ErrPlayFailed, err)
	}

	c := &e.channels[ch]
	target, err := e.dev.Gain(c.voice, voice.GainCurrent)
	if err != nil {
		return -1, fmt.Errorf("%w: %w: read gain: %w", ErrPlayFailed, ErrHardwareCallFailed, err)
	}
	if err := e.dev.SetGain(c.voice, voice.GainCurrent, c.minGain); err != nil {
		return -1, fmt.Errorf("%w: %w: set gain: %w", ErrPlayFailed, ErrHardwareCallFailed, err)
	}

	if _, err := e.playTimed(ch, d, loops, ticksToExpire(ticks)); err != nil {
		if gerr := e.dev.SetGain(c.voice, voice.GainCurrent, target); gerr != nil {
			e.log.Debug("restoring gain after failed fade in", "channel", ch, "err", gerr)
		}
		return -1, err
	}

	if fadeMs <= 0 {
		if err := e.dev.SetGain(c.voice, voice.GainCurrent, target); err != nil {
			e.log.Debug("setting fade target", "channel", ch, "err", err)
		}
		return ch, nil
	}

	c.fade.arm(c.start, time.Duration(fadeMs)*time.Millisecond, c.minGain, target)

	return ch, nil
}

// FadeOutChannel fades ch, or every busy channel when ch is -1, to its
// minimum volume over ms milliseconds and halts it when the fade ends.
func (e *Engine) FadeOutChannel(ch, ms int) (int, error) {
	if err := e.begin(); err != nil {
		return 0, err
	}
	defer e.end()

	n, err := e.fadeOutChannel(ch, ms)

	return n, e.fail(err)
}

func (e *Engine) FadeOutVoice(v voice.Handle, ms int) (int, error) {
	return e.onVoice(v, func(ch int) (int, error) { return e.fadeOutChannel(ch, ms) })
}

func (e *Engine) fadeOutChannel(ch, ms int) (int, error) {
	if ms <= 0 {
		return e.haltChannel(ch)
	}

	d := time.Duration(ms) * time.Millisecond
	now := e.clock.Now()

	var errs []error
	n, err := e.each(ch, func(ch int) bool {
		c := &e.channels[ch]
		if !c.inUse() {
			return false
		}
		from, err := e.dev.Gain(c.voice, voice.GainCurrent)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: read gain: %w", ErrHardwareCallFailed, err))
			return false
		}
		c.fade.arm(now, d, from, c.minGain)
		c.expireStart = now
		c.expire = d
		if c.state == Paused {
			c.pause.ExpireRemaining = d
			c.pause.ElapsedFade = 0
		}
		return true
	})

	return n, errors.Join(append(errs, err)...)
}

// FadeChannel ramps ch, or every channel when ch is -1, to volume over ms
// milliseconds. The target is clamped to the channel's volume bounds.
func (e *Engine) FadeChannel(ch, ms int, volume float32) (int, error) {
	if err := e.begin(); err != nil {
		return 0, err
	}
	defer e.end()

	n, err := e.fadeChannel(ch, ms, volume)

	return n, e.fail(err)
}

func (e *Engine) FadeVoice(v voice.Handle, ms int, volume float32) (int, error) {
	return e.onVoice(v, func(ch int) (int, error) { return e.fadeChannel(ch, ms, volume) })
}

func (e *Engine) fadeChannel(ch, ms int, volume float32) (int, error) {
	d := time.Duration(ms) * time.Millisecond
	now := e.clock.Now()

	var errs []error
	n, err := e.each(ch, func(ch int) bool {
		c := &e.channels[ch]
		target := min(max(volume, c.minGain), c.maxGain)

		if ms <= 0 {
			c.fade.enabled = false
			if err := e.dev.SetGain(c.voice, voice.GainCurrent, target); err != nil {
				errs = append(errs, fmt.Errorf("%w: set gain: %w", ErrHardwareCallFailed, err))
				return false
			}
			return true
		}
		if !c.inUse() {
			return false
		}

		from, err := e.dev.Gain(c.voice, voice.GainCurrent)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: read gain: %w", ErrHardwareCallFailed, err))
			return false
		}
		c.fade.arm(now, d, from, target)
		if c.state == Paused {
			c.pause.ElapsedFade = 0
		}
		return true
	})

	return n, errors.Join(append(errs, err)...)
}

// tickFade applies the fade of ch at now.
func (e *Engine) tickFade(ch int, now time.Duration) error {
	c := &e.channels[ch]
	if !c.fade.enabled || c.state == Paused {
		return nil
	}

	gain, done := c.fade.gainAt(now)
	if done {
		c.fade.enabled = false
	}
	if err := e.dev.SetGain(c.voice, voice.GainCurrent, gain); err != nil {
		return fmt.Errorf("%w: fade gain: %w", ErrHardwareCallFailed, err)
	}

	return nil
}
