// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"log/slog"
	"time"

	"github.com/ik5/audmix/audio"
)

const (
	// DefaultChannels is the channel count used when Config.Channels or
	// AllocateChannels asks for zero.
	DefaultChannels = 16
	// DefaultPollIdle is how long the poller sleeps after an idle pass.
	DefaultPollIdle = 10 * time.Millisecond
)

// Config holds engine settings. Zero values select the defaults.
type Config struct {
	// Channels is the initial channel count.
	Channels int
	// Reserved channels are skipped when a free channel is picked
	// automatically.
	Reserved int

	// Quirks works around voice device bugs. CanonicalQuirks when nil.
	Quirks Quirks
	// Clock drives expire and fade timers. Wall-clock time when nil.
	Clock Clock
	// Registry maps file extensions to decoders for LoadFile and LoadReader.
	Registry *audio.Registry
	Logger   *slog.Logger

	// Threaded runs Update on a background goroutine.
	Threaded bool
	PollIdle time.Duration
}

func (c *Config) setDefaults() {
	if c.Channels <= 0 {
		c.Channels = DefaultChannels
	}
	if c.Reserved < 0 {
		c.Reserved = 0
	}
	if c.Quirks == nil {
		c.Quirks = CanonicalQuirks{}
	}
	if c.Clock == nil {
		c.Clock = newMonotonicClock()
	}
	if q, ok := c.Quirks.(RetryDetachQuirks); ok && q.Clock == nil {
		q.Clock = c.Clock
		c.Quirks = q
	}
	if c.Registry == nil {
		c.Registry = audio.NewRegistry()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.PollIdle <= 0 {
		c.PollIdle = DefaultPollIdle
	}
}
