// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"fmt"
	"slices"
	"sort"

	"github.com/ik5/audmix/voice"
)

type mapEntry struct {
	voice   voice.Handle
	channel int
}

func (e *Engine) sortByVoice() {
	sort.Slice(e.byVoice, func(i, j int) bool { return e.byVoice[i].voice < e.byVoice[j].voice })
}

func (e *Engine) sortByChannel() {
	sort.Slice(e.byVoice, func(i, j int) bool { return e.byVoice[i].channel < e.byVoice[j].channel })
}

// AllocateChannels resizes the channel table to n and returns the new
// count. n < 0 only reports the count and n == 0 selects DefaultChannels.
// Channels removed by a shrink are halted first.
func (e *Engine) AllocateChannels(n int) (int, error) {
	if err := e.begin(); err != nil {
		return 0, err
	}
	defer e.end()

	count, err := e.allocate(n)

	return count, e.fail(err)
}

func (e *Engine) allocate(n int) (int, error) {
	switch {
	case n < 0:
		return len(e.channels), nil
	case n == 0:
		n = DefaultChannels
	}

	old := len(e.channels)
	switch {
	case n > old:
		voices, err := e.dev.GenVoices(n - old)
		if err != nil {
			e.log.Warn("cannot grow channel table", "have", old, "want", n, "err", err)
			return old, fmt.Errorf("%w: %w: %w", ErrOutOfMemory, ErrHardwareCallFailed, err)
		}
		for i, v := range voices {
			e.channels = append(e.channels, newChannel(v))
			e.byVoice = append(e.byVoice, mapEntry{voice: v, channel: old + i})
		}
		e.sortByVoice()

	case n < old:
		removed := make([]voice.Handle, 0, old-n)
		for ch := n; ch < old; ch++ {
			if e.channels[ch].inUse() {
				e.halt(ch, false)
			}
			removed = append(removed, e.channels[ch].voice)
		}
		if err := e.dev.DeleteVoices(removed...); err != nil {
			e.log.Warn("deleting voices of removed channels", "count", len(removed), "err", err)
		}

		e.sortByChannel()
		e.byVoice = slices.Clip(e.byVoice[:n])
		e.channels = slices.Clip(e.channels[:n])
		e.sortByVoice()
	}

	e.log.Debug("channels allocated", "count", n)

	return n, nil
}

// ChannelForVoice maps v to its channel. voice.None picks the first free
// unreserved channel.
func (e *Engine) ChannelForVoice(v voice.Handle) (int, error) {
	if err := e.begin(); err != nil {
		return -1, err
	}
	defer e.end()

	ch, err := e.channelForVoice(v)

	return ch, e.fail(err)
}

func (e *Engine) channelForVoice(v voice.Handle) (int, error) {
	if v == voice.None {
		ch, err := e.findFree(e.reserved)
		if err != nil {
			return -1, ErrNoChannelsAvailable
		}
		return ch, nil
	}

	i := sort.Search(len(e.byVoice), func(i int) bool { return e.byVoice[i].voice >= v })
	if i < len(e.byVoice) && e.byVoice[i].voice == v {
		return e.byVoice[i].channel, nil
	}

	return -1, fmt.Errorf("%w: voice %d", ErrNotFound, v)
}

// VoiceForChannel returns the voice of ch. ch == -1 picks the voice of the
// first free unreserved channel.
func (e *Engine) VoiceForChannel(ch int) (voice.Handle, error) {
	if err := e.begin(); err != nil {
		return voice.None, err
	}
	defer e.end()

	if ch == -1 {
		free, err := e.findFree(e.reserved)
		if err != nil {
			return voice.None, e.fail(ErrNoChannelsAvailable)
		}
		ch = free
	}
	if err := e.checkChannel(ch); err != nil {
		return voice.None, e.fail(err)
	}

	return e.channels[ch].voice, nil
}

// FindFreeChannel returns the first free channel at or after start,
// skipping reserved channels.
func (e *Engine) FindFreeChannel(start int) (int, error) {
	if err := e.begin(); err != nil {
		return -1, err
	}
	defer e.end()

	if start >= len(e.channels) {
		return -1, e.fail(fmt.Errorf("%w: %d", ErrInvalidChannel, start))
	}
	ch, err := e.findFree(start)

	return ch, e.fail(err)
}

func (e *Engine) findFree(start int) (int, error) {
	for ch := max(start, e.reserved, 0); ch < len(e.channels); ch++ {
		if !e.channels[ch].inUse() {
			return ch, nil
		}
	}

	return -1, fmt.Errorf("%w: no free channel from %d", ErrNotFound, start)
}

// ReserveChannels keeps the first n channels out of automatic selection and
// returns the reserved count. n < 0 only reports it.
func (e *Engine) ReserveChannels(n int) int {
	if err := e.begin(); err != nil {
		return 0
	}
	defer e.end()

	if n >= 0 {
		e.reserved = n
	}

	return e.reserved
}

func (e *Engine) checkChannel(ch int) error {
	if ch < 0 || ch >= len(e.channels) {
		return fmt.Errorf("%w: %d of %d", ErrInvalidChannel, ch, len(e.channels))
	}

	return nil
}

// countUsed counts channels in use in [from, len).
func (e *Engine) countUsed(from int) int {
	n := 0
	for ch := max(from, 0); ch < len(e.channels); ch++ {
		if e.channels[ch].inUse() {
			n++
		}
	}

	return n
}

func (e *Engine) CountUsedChannels() int {
	if err := e.begin(); err != nil {
		return 0
	}
	defer e.end()

	return e.countUsed(0)
}

func (e *Engine) CountFreeChannels() int {
	if err := e.begin(); err != nil {
		return 0
	}
	defer e.end()

	return len(e.channels) - e.countUsed(0)
}

// CountUnreservedUsedChannels counts busy channels outside the reserved range.
func (e *Engine) CountUnreservedUsedChannels() int {
	if err := e.begin(); err != nil {
		return 0
	}
	defer e.end()

	return e.countUsed(e.reserved)
}

// CountUnreservedFreeChannels counts the channels auto-pick can still use.
func (e *Engine) CountUnreservedFreeChannels() int {
	if err := e.begin(); err != nil {
		return 0
	}
	defer e.end()

	return max(len(e.channels)-e.reserved, 0) - e.countUsed(e.reserved)
}

// CountReservedUsedChannels counts busy channels inside the reserved range.
func (e *Engine) CountReservedUsedChannels() int {
	if err := e.begin(); err != nil {
		return 0
	}
	defer e.end()

	return e.countUsed(0) - e.countUsed(e.reserved)
}

// CountReservedFreeChannels counts idle channels inside the reserved range.
func (e *Engine) CountReservedFreeChannels() int {
	if err := e.begin(); err != nil {
		return 0
	}
	defer e.end()

	reserved := min(e.reserved, len(e.channels))

	return reserved - (e.countUsed(0) - e.countUsed(e.reserved))
}

// Channels returns the current channel count.
func (e *Engine) Channels() int {
	if err := e.begin(); err != nil {
		return 0
	}
	defer e.end()

	return len(e.channels)
}
