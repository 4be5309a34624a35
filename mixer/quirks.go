// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ik5/audmix/voice"
)

// Quirks isolates voice device workarounds from the scheduler.
type Quirks interface {
	// DetachBuffers removes every buffer from a stopped voice.
	DetachBuffers(dev voice.Device, v voice.Handle, predecoded bool) error
	// LowerPollerPriority makes the poller sleep even after busy passes.
	LowerPollerPriority() bool
}

// CanonicalQuirks trusts the device: binding NoBuffer clears both the static
// buffer and the queue.
type CanonicalQuirks struct{}

func (CanonicalQuirks) DetachBuffers(dev voice.Device, v voice.Handle, _ bool) error {
	if err := dev.SetBuffer(v, voice.NoBuffer); err != nil {
		return fmt.Errorf("%w: detach voice %d: %w", ErrHardwareCallFailed, v, err)
	}

	return nil
}

func (CanonicalQuirks) LowerPollerPriority() bool { return false }

// DefaultDetachTimeout bounds the unqueue loop of RetryDetachQuirks.
const DefaultDetachTimeout = 200 * time.Millisecond

// RetryDetachQuirks drains queued buffers by hand before clearing the
// binding, for drivers that mark buffers processed before releasing them.
type RetryDetachQuirks struct {
	Timeout     time.Duration
	LowPriority bool
	Logger      *slog.Logger

	// Clock measures Timeout. New fills in the engine clock when nil.
	Clock Clock
	// Sleep waits between polls. time.Sleep when nil.
	Sleep func(time.Duration)
}

// detachPoll is the wait between queue polls of RetryDetachQuirks.
const detachPoll = time.Millisecond

func (q RetryDetachQuirks) DetachBuffers(dev voice.Device, v voice.Handle, predecoded bool) error {
	timeout := q.Timeout
	if timeout <= 0 {
		timeout = DefaultDetachTimeout
	}
	log := q.Logger
	if log == nil {
		log = slog.Default()
	}
	clock := q.Clock
	if clock == nil {
		clock = newMonotonicClock()
	}
	sleep := q.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	if !predecoded {
		deadline := clock.Now() + timeout
		polls := int(timeout/detachPoll) + 1
		for {
			queued, err := dev.Queued(v)
			if err != nil || queued == 0 {
				break
			}
			if clock.Now() >= deadline || polls == 0 {
				log.Warn("timed out unqueuing buffers", "voice", v, "queued", queued, "timeout", timeout)
				break
			}

			processed, err := dev.Processed(v)
			if err != nil {
				break
			}
			if processed > 0 {
				if _, err := dev.UnqueueBuffers(v, processed); err != nil {
					log.Debug("unqueue during detach failed", "voice", v, "err", err)
				}
				continue
			}
			polls--
			sleep(detachPoll)
		}
	}

	return CanonicalQuirks{}.DetachBuffers(dev, v, predecoded)
}

func (q RetryDetachQuirks) LowerPollerPriority() bool { return q.LowPriority }
