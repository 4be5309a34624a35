// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"sync"
	"time"
)

// FakeClock is a manually advanced monotonic clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Duration
}

func NewFakeClock() *FakeClock { return &FakeClock{} }

func (c *FakeClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

func (c *FakeClock) Set(d time.Duration) {
	c.mu.Lock()
	c.now = d
	c.mu.Unlock()
}
