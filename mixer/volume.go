// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"errors"
	"fmt"

	"github.com/ik5/audmix/voice"
)

func clampUnit(v float32) float32 { return min(max(v, 0), 1) }

// SetVolumeChannel sets the gain of ch, or of every channel when ch is -1.
func (e *Engine) SetVolumeChannel(ch int, volume float32) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()

	return e.fail(e.setVolume(ch, clampUnit(volume)))
}

// SetVolumeVoice sets the gain of the channel owning v. voice.None sets
// every channel.
func (e *Engine) SetVolumeVoice(v voice.Handle, volume float32) error {
	return e.onVoiceErr(v, func(ch int) error { return e.setVolume(ch, clampUnit(volume)) })
}

func (e *Engine) setVolume(ch int, volume float32) error {
	var errs []error
	_, err := e.each(ch, func(ch int) bool {
		if err := e.dev.SetGain(e.channels[ch].voice, voice.GainCurrent, volume); err != nil {
			errs = append(errs, fmt.Errorf("%w: set gain: %w", ErrHardwareCallFailed, err))
			return false
		}
		return true
	})

	return errors.Join(append(errs, err)...)
}

// SetMaxVolumeChannel caps the gain of ch. A minimum above the new cap is
// lowered to match.
func (e *Engine) SetMaxVolumeChannel(ch int, volume float32) error {
	return e.lockedBound(ch, clampUnit(volume), true)
}

// SetMinVolumeChannel sets the gain floor of ch. A maximum below the new
// floor is raised to match.
func (e *Engine) SetMinVolumeChannel(ch int, volume float32) error {
	return e.lockedBound(ch, clampUnit(volume), false)
}

func (e *Engine) SetMaxVolumeVoice(v voice.Handle, volume float32) error {
	return e.onVoiceErr(v, func(ch int) error { return e.setBound(ch, clampUnit(volume), true) })
}

func (e *Engine) SetMinVolumeVoice(v voice.Handle, volume float32) error {
	return e.onVoiceErr(v, func(ch int) error { return e.setBound(ch, clampUnit(volume), false) })
}

func (e *Engine) lockedBound(ch int, volume float32, upper bool) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()

	return e.fail(e.setBound(ch, volume, upper))
}

func (e *Engine) setBound(ch int, volume float32, upper bool) error {
	var errs []error
	_, err := e.each(ch, func(ch int) bool {
		c := &e.channels[ch]
		if upper {
			c.maxGain = volume
			c.minGain = min(c.minGain, volume)
		} else {
			c.minGain = volume
			c.maxGain = max(c.maxGain, volume)
		}

		if err := e.dev.SetGain(c.voice, voice.GainMin, c.minGain); err != nil {
			errs = append(errs, fmt.Errorf("%w: min gain: %w", ErrHardwareCallFailed, err))
			return false
		}
		if err := e.dev.SetGain(c.voice, voice.GainMax, c.maxGain); err != nil {
			errs = append(errs, fmt.Errorf("%w: max gain: %w", ErrHardwareCallFailed, err))
			return false
		}
		return true
	})

	return errors.Join(append(errs, err)...)
}

// VolumeChannel returns the gain of ch, or the average gain when ch is -1.
func (e *Engine) VolumeChannel(ch int) (float32, error) {
	return e.lockedRead(ch, e.volume)
}

// VolumeVoice returns the gain of the channel owning v, or the average gain
// when v is voice.None.
func (e *Engine) VolumeVoice(v voice.Handle) (float32, error) {
	return e.onVoiceRead(v, e.volume)
}

// MaxVolumeChannel returns the gain cap of ch, or the average when ch is -1.
func (e *Engine) MaxVolumeChannel(ch int) (float32, error) {
	return e.lockedRead(ch, e.maxVolume)
}

func (e *Engine) MinVolumeChannel(ch int) (float32, error) {
	return e.lockedRead(ch, e.minVolume)
}

func (e *Engine) MaxVolumeVoice(v voice.Handle) (float32, error) {
	return e.onVoiceRead(v, e.maxVolume)
}

func (e *Engine) MinVolumeVoice(v voice.Handle) (float32, error) {
	return e.onVoiceRead(v, e.minVolume)
}

func (e *Engine) lockedRead(ch int, read func(ch int) (float32, error)) (float32, error) {
	if err := e.begin(); err != nil {
		return 0, err
	}
	defer e.end()

	g, err := read(ch)
	if err != nil {
		return 0, e.fail(err)
	}

	return g, nil
}

func (e *Engine) onVoiceRead(v voice.Handle, read func(ch int) (float32, error)) (float32, error) {
	if err := e.begin(); err != nil {
		return 0, err
	}
	defer e.end()

	ch, err := e.resolveVoice(v)
	if err != nil {
		return 0, e.fail(err)
	}
	g, err := read(ch)
	if err != nil {
		return 0, e.fail(err)
	}

	return g, nil
}

func (e *Engine) volume(ch int) (float32, error) {
	var (
		sum  float32
		errs []error
	)
	n, err := e.each(ch, func(ch int) bool {
		g, err := e.dev.Gain(e.channels[ch].voice, voice.GainCurrent)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: read gain: %w", ErrHardwareCallFailed, err))
			return false
		}
		sum += g
		return true
	})
	if err := errors.Join(append(errs, err)...); err != nil {
		return 0, err
	}

	return average(sum, n), nil
}

func (e *Engine) maxVolume(ch int) (float32, error) {
	return e.bound(ch, func(c *channel) float32 { return c.maxGain })
}

func (e *Engine) minVolume(ch int) (float32, error) {
	return e.bound(ch, func(c *channel) float32 { return c.minGain })
}

func (e *Engine) bound(ch int, get func(*channel) float32) (float32, error) {
	var sum float32
	n, err := e.each(ch, func(ch int) bool {
		sum += get(&e.channels[ch])
		return true
	})
	if err != nil {
		return 0, err
	}

	return average(sum, n), nil
}

func average(sum float32, n int) float32 {
	if n == 0 {
		return 0
	}

	return sum / float32(n)
}

// SetMasterVolume sets the listener gain that scales every channel.
func (e *Engine) SetMasterVolume(volume float32) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()

	if err := e.dev.SetListenerGain(max(volume, 0)); err != nil {
		return e.fail(fmt.Errorf("%w: listener gain: %w", ErrHardwareCallFailed, err))
	}

	return nil
}

func (e *Engine) MasterVolume() (float32, error) {
	if err := e.begin(); err != nil {
		return 0, err
	}
	defer e.end()

	g, err := e.dev.ListenerGain()
	if err != nil {
		return 0, e.fail(fmt.Errorf("%w: listener gain: %w", ErrHardwareCallFailed, err))
	}

	return g, nil
}
