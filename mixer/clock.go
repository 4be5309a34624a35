// SPDX-License-Identifier: EPL-2.0

package mixer

import "time"

// Clock reports monotonic time elapsed since an arbitrary origin.
type Clock interface {
	Now() time.Duration
}

type monotonicClock struct {
	origin time.Time
}

func newMonotonicClock() *monotonicClock {
	return &monotonicClock{origin: time.Now()}
}

func (c *monotonicClock) Now() time.Duration { return time.Since(c.origin) }
