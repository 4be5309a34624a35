// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"runtime"
	"time"
)

const busySleep = time.Millisecond

type poller struct {
	stop chan struct{}
	done chan struct{}
}

func (e *Engine) pollerRunning() bool {
	e.pollMu.Lock()
	defer e.pollMu.Unlock()

	return e.poller != nil
}

func (e *Engine) startPoller() {
	e.pollMu.Lock()
	defer e.pollMu.Unlock()

	if e.poller != nil {
		return
	}

	p := &poller{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	e.poller = p

	go e.poll(p)
	e.log.Debug("poller started", "idle", e.cfg.PollIdle)
}

// stopPoller stops the poller and waits for its last pass. It must not be
// called with the engine lock held.
func (e *Engine) stopPoller() {
	e.pollMu.Lock()
	p := e.poller
	e.poller = nil
	e.pollMu.Unlock()

	if p == nil {
		return
	}
	close(p.stop)
	<-p.done
	e.log.Debug("poller stopped")
}

func (e *Engine) poll(p *poller) {
	defer close(p.done)

	timer := time.NewTimer(e.cfg.PollIdle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-p.stop:
			return
		default:
		}

		e.mu.Lock()
		n := e.update()
		e.end()

		var wait time.Duration
		switch {
		case n == 0:
			wait = e.cfg.PollIdle
		case e.quirks.LowerPollerPriority():
			wait = busySleep
		default:
			runtime.Gosched()
			continue
		}

		timer.Reset(wait)
		select {
		case <-p.stop:
			return
		case <-timer.C:
		}
	}
}

// SuspendUpdates stops the background poller until ResumeUpdates.
func (e *Engine) SuspendUpdates() {
	e.stopPoller()
}

// AreUpdatesSuspended reports whether a threaded engine has no poller
// running. It is always false for an engine without one.
func (e *Engine) AreUpdatesSuspended() bool {
	return e.cfg.Threaded && !e.pollerRunning()
}

// ResumeUpdates restarts the poller of a threaded engine.
func (e *Engine) ResumeUpdates() {
	if !e.cfg.Threaded || e.interrupted.Load() {
		return
	}
	e.startPoller()
}
