// SPDX-License-Identifier: EPL-2.0

package sink

import "errors"

var (
	ErrDeviceUnavailable = errors.New("audio output device unavailable")
	ErrInvalidFrames     = errors.New("frame count must not be negative")
	ErrClosed            = errors.New("sink is closed")
)
