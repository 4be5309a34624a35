// SPDX-License-Identifier: EPL-2.0

package mixer

import "fmt"

// BeginInterruption suspends updates and the device, for example when the
// OS takes the audio session away. Until EndInterruption every other call
// returns ErrInterrupted without blocking.
func (e *Engine) BeginInterruption() error {
	if e.interrupted.Load() {
		return nil
	}
	e.stopPoller()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.interrupted.Store(true)
	if err := e.dev.Suspend(); err != nil {
		return e.fail(fmt.Errorf("%w: suspend: %w", ErrHardwareCallFailed, err))
	}
	e.log.Debug("interruption started")

	return nil
}

// EndInterruption resumes the device and, when threaded, the poller.
func (e *Engine) EndInterruption() error {
	if !e.interrupted.Load() {
		return nil
	}

	e.mu.Lock()
	err := e.dev.Resume()
	e.interrupted.Store(false)
	e.mu.Unlock()

	if err != nil {
		return e.fail(fmt.Errorf("%w: resume: %w", ErrHardwareCallFailed, err))
	}
	e.log.Debug("interruption ended")

	if e.cfg.Threaded {
		e.startPoller()
	}

	return nil
}

func (e *Engine) IsInInterruption() bool { return e.interrupted.Load() }
